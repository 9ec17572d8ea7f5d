// Sshorch
// Copyright (C) 2019-2026+ The sshorch contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package systemprobe collects a snapshot of a remote host's hostname,
// kernel, uptime, memory, disks, CPU and network interfaces via a
// sequence of read-only shell commands. Any single probe's absence (a
// missing lscpu on a BSD-like host, say) is tolerated; the probe reports
// what it could gather rather than failing outright.
package systemprobe

import (
	"strconv"
	"strings"

	"github.com/sshorch/sshorch/session"
)

// DiskInfo is one line of `df -h` output.
type DiskInfo struct {
	Filesystem string
	Size       string
	Used       string
	Avail      string
	UsePercent string
	MountedOn  string
}

// NetInterface is one address line of `ip -o addr show` output.
type NetInterface struct {
	Name string
	IP   string
}

// Info is the aggregated snapshot returned by Probe.
type Info struct {
	Hostname   string
	Kernel     string
	Uptime     string
	MemTotalMB int
	MemUsedMB  int
	MemFreeMB  int
	Disks      []DiskInfo
	CPUModel   string
	CPUCores   int
	Interfaces []NetInterface

	// Errors records, by probe name, any individual command that failed;
	// the rest of Info is still populated from whatever succeeded.
	Errors map[string]string
}

func runTrimmed(t session.Transport, cmd string) (string, error) {
	result, err := t.Run(cmd)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &probeFailure{cmd: cmd, exitCode: result.ExitCode, stderr: result.Stderr}
	}
	return strings.TrimSpace(result.Stdout), nil
}

type probeFailure struct {
	cmd      string
	exitCode int
	stderr   string
}

func (e *probeFailure) Error() string {
	return e.cmd + " exited " + strconv.Itoa(e.exitCode) + ": " + e.stderr
}

// Probe gathers a best-effort system snapshot from t. Every probe failure,
// a transport error as well as a non-zero exit, is recorded in Info.Errors;
// the returned error is always nil.
func Probe(t session.Transport) (Info, error) {
	info := Info{Errors: map[string]string{}}

	if v, err := runTrimmed(t, "hostname"); err == nil {
		info.Hostname = v
	} else {
		info.Errors["hostname"] = err.Error()
	}

	if v, err := runTrimmed(t, "uname -a"); err == nil {
		info.Kernel = v
	} else {
		info.Errors["uname"] = err.Error()
	}

	if v, err := runTrimmed(t, "uptime"); err == nil {
		info.Uptime = v
	} else {
		info.Errors["uptime"] = err.Error()
	}

	if v, err := runTrimmed(t, "free -m"); err == nil {
		parseMemory(v, &info)
	} else {
		info.Errors["free"] = err.Error()
	}

	if v, err := runTrimmed(t, "df -h"); err == nil {
		info.Disks = parseDisks(v)
	} else {
		info.Errors["df"] = err.Error()
	}

	if v, err := runTrimmed(t, "lscpu"); err == nil {
		info.CPUModel, info.CPUCores = parseCPU(v)
	} else {
		info.Errors["lscpu"] = err.Error()
	}

	if v, err := runTrimmed(t, "ip -o addr show"); err == nil {
		info.Interfaces = parseInterfaces(v)
	} else {
		info.Errors["ip"] = err.Error()
	}

	return info, nil
}

// parseMemory reads the "Mem:" row of `free -m` output:
//
//	              total        used        free
//	Mem:           7975        2043        1234
func parseMemory(out string, info *Info) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "Mem:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return
		}
		info.MemTotalMB, _ = strconv.Atoi(fields[1])
		info.MemUsedMB, _ = strconv.Atoi(fields[2])
		info.MemFreeMB, _ = strconv.Atoi(fields[3])
		return
	}
}

// parseDisks skips the `df -h` header line and reads one DiskInfo per
// remaining line with at least 6 whitespace-separated fields.
func parseDisks(out string) []DiskInfo {
	lines := strings.Split(out, "\n")
	var disks []DiskInfo
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		disks = append(disks, DiskInfo{
			Filesystem: fields[0],
			Size:       fields[1],
			Used:       fields[2],
			Avail:      fields[3],
			UsePercent: fields[4],
			MountedOn:  strings.Join(fields[5:], " "),
		})
	}
	return disks
}

// parseCPU extracts "Model name" and "CPU(s)" from `lscpu`'s colon-delimited
// key/value output.
func parseCPU(out string) (model string, cores int) {
	for _, line := range strings.Split(out, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		switch key {
		case "Model name":
			model = val
		case "CPU(s)":
			cores, _ = strconv.Atoi(val)
		}
	}
	return model, cores
}

// parseInterfaces reads `ip -o addr show` one-line-per-address output, e.g.:
//
//	2: eth0    inet 10.0.0.5/24 brd 10.0.0.255 scope global eth0
//
// and skips the loopback interface.
func parseInterfaces(out string) []NetInterface {
	var ifaces []NetInterface
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		name := strings.TrimSuffix(fields[1], ":")
		if name == "lo" {
			continue
		}
		if fields[2] != "inet" && fields[2] != "inet6" {
			continue
		}
		addr := fields[3]
		if idx := strings.Index(addr, "/"); idx >= 0 {
			addr = addr[:idx]
		}
		ifaces = append(ifaces, NetInterface{Name: name, IP: addr})
	}
	return ifaces
}
