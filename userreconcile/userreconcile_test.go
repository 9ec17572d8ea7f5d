package userreconcile

import (
	"testing"

	"github.com/sshorch/sshorch/internal/fakesession"
)

func TestCreateAbsentUser(t *testing.T) {
	tr := fakesession.New("h1")

	result, err := Reconcile(tr, Options{
		Name:       "deploy",
		State:      StatePresent,
		HomeDir:    "/home/deploy",
		Shell:      "/bin/bash",
		CreateHome: true,
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected change creating a new user")
	}
	rec, ok := tr.User("deploy")
	if !ok {
		t.Fatalf("user was not created")
	}
	if rec.Home != "/home/deploy" || rec.Shell != "/bin/bash" {
		t.Fatalf("unexpected user record: %+v", rec)
	}
}

func TestPresentNoDriftIsNoop(t *testing.T) {
	tr := fakesession.New("h1")
	tr.SeedUser("alice", fakesession.UserRecord{UID: 1500, GID: 1500, Home: "/home/alice", Shell: "/bin/bash"})

	result, err := Reconcile(tr, Options{
		Name:    "alice",
		State:   StatePresent,
		HomeDir: "/home/alice",
		Shell:   "/bin/bash",
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Changed {
		t.Fatalf("expected no-op, got changed")
	}
}

func TestPresentDriftTriggersUsermod(t *testing.T) {
	tr := fakesession.New("h1")
	tr.SeedUser("alice", fakesession.UserRecord{UID: 1500, GID: 1500, Home: "/home/alice", Shell: "/bin/sh"})

	result, err := Reconcile(tr, Options{
		Name:    "alice",
		State:   StatePresent,
		HomeDir: "/home/alice",
		Shell:   "/bin/bash",
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected a change for shell drift")
	}
	rec, _ := tr.User("alice")
	if rec.Shell != "/bin/bash" {
		t.Fatalf("usermod did not apply: %+v", rec)
	}
}

func TestGroupsAlwaysDrift(t *testing.T) {
	tr := fakesession.New("h1")
	tr.SeedUser("bob", fakesession.UserRecord{UID: 1600, GID: 1600, Home: "/home/bob", Shell: "/bin/bash"})

	result, err := Reconcile(tr, Options{
		Name:   "bob",
		State:  StatePresent,
		Groups: []string{"docker", "sudo"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected group specification to always be treated as drift")
	}
}

func TestCreateUserWithExpiresAppliesFlag(t *testing.T) {
	tr := fakesession.New("h1")

	result, err := Reconcile(tr, Options{
		Name:    "contractor",
		State:   StatePresent,
		Expires: "2026-12-31",
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected change creating a new user")
	}
	rec, ok := tr.User("contractor")
	if !ok {
		t.Fatalf("user was not created")
	}
	if rec.Expires != "2026-12-31" {
		t.Fatalf("expires not applied, got %+v", rec)
	}
}

func TestExpiresAlwaysDrift(t *testing.T) {
	tr := fakesession.New("h1")
	tr.SeedUser("dave", fakesession.UserRecord{UID: 1800, GID: 1800, Home: "/home/dave", Shell: "/bin/bash"})

	result, err := Reconcile(tr, Options{
		Name:    "dave",
		State:   StatePresent,
		Expires: "2027-01-01",
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected expires specification to always be treated as drift")
	}
	rec, _ := tr.User("dave")
	if rec.Expires != "2027-01-01" {
		t.Fatalf("usermod did not apply expires: %+v", rec)
	}
}

func TestAbsentRemovesExistingUser(t *testing.T) {
	tr := fakesession.New("h1")
	tr.SeedUser("carol", fakesession.UserRecord{UID: 1700, GID: 1700})

	result, err := Reconcile(tr, Options{Name: "carol", State: StateAbsent})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Changed {
		t.Fatalf("expected deletion to be a change")
	}
	if _, ok := tr.User("carol"); ok {
		t.Fatalf("user still present after userdel")
	}
}

func TestAbsentAlreadyGoneIsNoop(t *testing.T) {
	tr := fakesession.New("h1")

	result, err := Reconcile(tr, Options{Name: "nobody", State: StateAbsent})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Changed {
		t.Fatalf("expected no-op when user already absent")
	}
}
