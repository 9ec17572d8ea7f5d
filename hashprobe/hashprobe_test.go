package hashprobe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sshorch/sshorch/internal/fakesession"
)

func TestLocalHash(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hi.txt")
	if err := os.WriteFile(p, []byte("hi\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := LocalHash(p)
	if err != nil {
		t.Fatalf("LocalHash: %v", err)
	}
	const wantHex = "98ea6e4f216f2fb4b69fff9b3a44842c38686ca685f3f55dc48c5d3fb1107be4"
	if info.HexDigest != wantHex {
		t.Fatalf("got digest %s, want %s", info.HexDigest, wantHex)
	}
	if info.SizeBytes != 3 {
		t.Fatalf("got size %d, want 3", info.SizeBytes)
	}
}

func TestRemoteHashAbsent(t *testing.T) {
	tr := fakesession.New("h1")
	_, exists, err := RemoteHash(tr, "/tmp/nope.txt")
	if err != nil {
		t.Fatalf("RemoteHash: %v", err)
	}
	if exists {
		t.Fatalf("expected absent file to report !exists")
	}
}

func TestRemoteHashExists(t *testing.T) {
	tr := fakesession.New("h1")
	tr.SeedFile("/tmp/hi.txt", []byte("hi\n"), 0o644)
	info, exists, err := RemoteHash(tr, "/tmp/hi.txt")
	if err != nil {
		t.Fatalf("RemoteHash: %v", err)
	}
	if !exists {
		t.Fatalf("expected file to exist")
	}
	if info.SizeBytes != 3 {
		t.Fatalf("got size %d, want 3", info.SizeBytes)
	}
}

func TestMatch(t *testing.T) {
	a := FileHashInfo{HexDigest: "abc", SizeBytes: 3}
	b := FileHashInfo{HexDigest: "abc", SizeBytes: 3}
	c := FileHashInfo{HexDigest: "def", SizeBytes: 3}
	if !Match(a, b) {
		t.Fatalf("expected a == b")
	}
	if Match(a, c) {
		t.Fatalf("expected a != c")
	}
}
