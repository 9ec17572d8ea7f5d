package systemprobe

import (
	"testing"

	"github.com/sshorch/sshorch/internal/fakesession"
	"github.com/sshorch/sshorch/session"
)

func canned(stdout string) func() (session.CommandResult, error) {
	return func() (session.CommandResult, error) {
		return session.CommandResult{ExitCode: 0, Stdout: stdout}, nil
	}
}

func TestProbeHappyPath(t *testing.T) {
	tr := fakesession.New("h1")
	tr.Handlers["hostname"] = canned("web1\n")
	tr.Handlers["uname -a"] = canned("Linux web1 6.1.0 x86_64 GNU/Linux\n")
	tr.Handlers["uptime"] = canned(" 12:00:00 up 3 days,  2:14,  1 user,  load average: 0.10, 0.08, 0.05\n")
	tr.Handlers["free -m"] = canned("              total        used        free\nMem:           7975        2043        1234\nSwap:              0           0           0\n")
	tr.Handlers["df -h"] = canned("Filesystem      Size  Used Avail Use% Mounted on\n/dev/sda1        50G   12G   35G  26% /\n")
	tr.Handlers["lscpu"] = canned("Architecture:        x86_64\nCPU(s):              4\nModel name:          Intel(R) Xeon(R) CPU\n")
	tr.Handlers["ip -o addr show"] = canned("1: lo    inet 127.0.0.1/8 scope host lo\n2: eth0    inet 10.0.0.5/24 brd 10.0.0.255 scope global eth0\n")

	info, err := Probe(tr)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Hostname != "web1" {
		t.Fatalf("hostname = %q", info.Hostname)
	}
	if info.MemTotalMB != 7975 || info.MemUsedMB != 2043 || info.MemFreeMB != 1234 {
		t.Fatalf("memory parse: %+v", info)
	}
	if len(info.Disks) != 1 || info.Disks[0].MountedOn != "/" || info.Disks[0].UsePercent != "26%" {
		t.Fatalf("disk parse: %+v", info.Disks)
	}
	if info.CPUModel != "Intel(R) Xeon(R) CPU" || info.CPUCores != 4 {
		t.Fatalf("cpu parse: model=%q cores=%d", info.CPUModel, info.CPUCores)
	}
	if len(info.Interfaces) != 1 || info.Interfaces[0].Name != "eth0" || info.Interfaces[0].IP != "10.0.0.5" {
		t.Fatalf("interface parse: %+v", info.Interfaces)
	}
	if len(info.Errors) != 0 {
		t.Fatalf("expected no probe errors, got %v", info.Errors)
	}
}

func TestProbeTolerantOfMissingLscpu(t *testing.T) {
	tr := fakesession.New("h1")
	tr.Handlers["hostname"] = canned("bsdhost\n")
	tr.Handlers["lscpu"] = func() (session.CommandResult, error) {
		return session.CommandResult{ExitCode: 127, Stderr: "lscpu: command not found"}, nil
	}

	info, err := Probe(tr)
	if err != nil {
		t.Fatalf("Probe should tolerate a missing lscpu, got err: %v", err)
	}
	if info.Hostname != "bsdhost" {
		t.Fatalf("hostname = %q", info.Hostname)
	}
	if _, ok := info.Errors["lscpu"]; !ok {
		t.Fatalf("expected lscpu failure to be recorded in Errors")
	}
}
