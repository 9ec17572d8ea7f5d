package filedeploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sshorch/sshorch/internal/fakesession"
)

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestFreshDeploy(t *testing.T) {
	local := writeLocal(t, "hi\n")
	tr := fakesession.New("h1")

	result, err := Deploy(tr, local, "/tmp/hello.txt", Options{Mode: "644"})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if result.BytesTransferred != 3 {
		t.Fatalf("got BytesTransferred=%d, want 3", result.BytesTransferred)
	}
	rec, ok := tr.File("/tmp/hello.txt")
	if !ok {
		t.Fatalf("expected /tmp/hello.txt to exist")
	}
	if string(rec.Content) != "hi\n" {
		t.Fatalf("got content %q, want %q", rec.Content, "hi\n")
	}
	if rec.Mode != 0o644 {
		t.Fatalf("got mode %o, want 0644", rec.Mode)
	}
	if staging := tr.StagingFiles(); len(staging) != 0 {
		t.Fatalf("expected no staging files, got %v", staging)
	}
}

func TestIdempotentRedeploy(t *testing.T) {
	local := writeLocal(t, "hi\n")
	tr := fakesession.New("h1")

	if _, err := Deploy(tr, local, "/tmp/hello.txt", Options{Mode: "644"}); err != nil {
		t.Fatalf("first Deploy: %v", err)
	}
	result, err := Deploy(tr, local, "/tmp/hello.txt", Options{Mode: "644"})
	if err != nil {
		t.Fatalf("second Deploy: %v", err)
	}
	if result.BytesTransferred != 0 {
		t.Fatalf("got BytesTransferred=%d, want 0 on idempotent redeploy", result.BytesTransferred)
	}
	if staging := tr.StagingFiles(); len(staging) != 0 {
		t.Fatalf("expected no staging files, got %v", staging)
	}
}

func TestContentDrift(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(p, []byte("hi\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tr := fakesession.New("h1")
	if _, err := Deploy(tr, p, "/tmp/hello.txt", Options{Mode: "644"}); err != nil {
		t.Fatalf("first Deploy: %v", err)
	}

	if err := os.WriteFile(p, []byte("hi\nmore\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	result, err := Deploy(tr, p, "/tmp/hello.txt", Options{Mode: "644"})
	if err != nil {
		t.Fatalf("second Deploy: %v", err)
	}
	if result.BytesTransferred != 8 {
		t.Fatalf("got BytesTransferred=%d, want 8", result.BytesTransferred)
	}
	rec, _ := tr.File("/tmp/hello.txt")
	if string(rec.Content) != "hi\nmore\n" {
		t.Fatalf("got content %q, want %q", rec.Content, "hi\nmore\n")
	}
}

func TestIdempotentSkipStillAppliesAttributes(t *testing.T) {
	local := writeLocal(t, "hi\n")
	tr := fakesession.New("h1")
	if _, err := Deploy(tr, local, "/tmp/hello.txt", Options{Mode: "644"}); err != nil {
		t.Fatalf("first Deploy: %v", err)
	}
	result, err := Deploy(tr, local, "/tmp/hello.txt", Options{Mode: "600", Owner: "root"})
	if err != nil {
		t.Fatalf("second Deploy: %v", err)
	}
	if result.BytesTransferred != 0 {
		t.Fatalf("expected a drift-only attribute update to skip bytes")
	}
	rec, _ := tr.File("/tmp/hello.txt")
	if rec.Mode != 0o600 {
		t.Fatalf("got mode %o, want 0600", rec.Mode)
	}
	if rec.Owner != "root" {
		t.Fatalf("got owner %q, want root", rec.Owner)
	}
}

func TestCreateDirsAndBackup(t *testing.T) {
	local := writeLocal(t, "v2\n")
	tr := fakesession.New("h1")
	tr.SeedFile("/etc/app/config.txt", []byte("v1\n"), 0o644)

	result, err := Deploy(tr, local, "/etc/app/config.txt", Options{Mode: "644", CreateDirs: true, Backup: true})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if result.BytesTransferred != 3 {
		t.Fatalf("got BytesTransferred=%d, want 3", result.BytesTransferred)
	}
	rec, _ := tr.File("/etc/app/config.txt")
	if string(rec.Content) != "v2\n" {
		t.Fatalf("got content %q, want %q", rec.Content, "v2\n")
	}
}
