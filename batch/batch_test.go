package batch

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sshorch/sshorch/internal/fakesession"
	"github.com/sshorch/sshorch/inventory"
	"github.com/sshorch/sshorch/session"
)

func fakeInventory(ids ...string) *inventory.Inventory {
	inv := inventory.New()
	for _, id := range ids {
		inv.AddHost(id, inventory.HostCredentials{Hostname: id, Username: "root", Password: "x"})
	}
	return inv
}

func fakeExecutor(inv *inventory.Inventory, maxConcurrent int) *Executor {
	return &Executor{
		Inventory:     inv,
		MaxConcurrent: maxConcurrent,
		Connect: func(hostID string, creds inventory.HostCredentials) (session.Transport, error) {
			return fakesession.New(hostID), nil
		},
	}
}

func TestRunAllHostsSucceed(t *testing.T) {
	inv := fakeInventory("h1", "h2", "h3")
	e := fakeExecutor(inv, 2)

	result := Run(e, "smoke", inv.AllHosts(), func(t session.Transport) (string, error) {
		return t.Host(), nil
	})

	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	if rate := result.SuccessRate(); rate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %v", rate)
	}
}

func TestRunUnknownHostRecordsConnectionError(t *testing.T) {
	inv := fakeInventory("h1")
	e := fakeExecutor(inv, 5)

	result := Run(e, "smoke", []string{"h1", "ghost"}, func(t session.Transport) (string, error) {
		return t.Host(), nil
	})

	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
	hr, ok := result.Results["ghost"]
	if !ok || hr.Err == nil {
		t.Fatalf("expected an error result for unknown host, got %+v ok=%v", hr, ok)
	}
}

func TestRunPartialFailureSuccessRate(t *testing.T) {
	inv := fakeInventory("good", "bad")
	e := fakeExecutor(inv, 5)

	result := Run(e, "smoke", inv.AllHosts(), func(t session.Transport) (string, error) {
		if t.Host() == "bad" {
			return "", errFake
		}
		return "ok", nil
	})

	if rate := result.SuccessRate(); rate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", rate)
	}
	if len(result.Successful()) != 1 || result.Successful()[0] != "good" {
		t.Fatalf("unexpected successful set: %v", result.Successful())
	}
	if len(result.Failed()) != 1 || result.Failed()[0] != "bad" {
		t.Fatalf("unexpected failed set: %v", result.Failed())
	}
}

func TestRunEmitsInfoLinePerHostOnCompletion(t *testing.T) {
	inv := fakeInventory("h1", "h2")
	e := fakeExecutor(inv, 5)

	var mu sync.Mutex
	seen := map[string]string{}
	e.Logger = session.Logger{
		Debugf: func(map[string]interface{}, string, ...interface{}) {},
		Infof: func(fields map[string]interface{}, format string, v ...interface{}) {
			mu.Lock()
			defer mu.Unlock()
			host, _ := fields["host"].(string)
			task, _ := fields["task"].(string)
			if task != "smoke" {
				t.Errorf("expected task field %q, got %q", "smoke", task)
			}
			seen[host] = fmt.Sprintf(format, v...)
		},
	}

	Run(e, "smoke", inv.AllHosts(), func(t session.Transport) (string, error) {
		return t.Host(), nil
	})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("expected one info line per host, got %v", seen)
	}
}

var errFake = &fakeErr{}

type fakeErr struct{}

func (e *fakeErr) Error() string { return "fake operation failure" }
