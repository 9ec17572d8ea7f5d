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

// Package tempname generates collision-resistant staging names for local
// and remote temp paths, the way remote.go's fmtUID generates a random
// suffix for mgmt's bootstrap directories.
package tempname

import (
	"fmt"
	"math/rand"
	"os"
	"path"
	"runtime"
	"time"
)

// Suffix returns a temp suffix of the form
// "{unix_seconds}.{subsec_nanos}.{random_u32}". Two calls within the same
// process are collision-free with overwhelming probability because the
// random component alone has ~4 billion possible values.
func Suffix() string {
	now := time.Now()
	r := rand.Uint32()
	return fmt.Sprintf("%d.%d.%d", now.Unix(), now.Nanosecond(), r)
}

// LocalDir returns the platform temp directory to stage files in before
// they're uploaded: %TEMP%/%TMP%, falling back to C:\Windows\Temp on
// Windows, or the standard /tmp-rooted os.TempDir elsewhere.
func LocalDir() string {
	if runtime.GOOS != "windows" {
		return os.TempDir()
	}
	if dir := os.Getenv("TEMP"); dir != "" {
		return dir
	}
	if dir := os.Getenv("TMP"); dir != "" {
		return dir
	}
	return `C:\Windows\Temp`
}

// LocalPath returns a unique local staging path for base (a plain file
// name, not a full path).
func LocalPath(base string) string {
	return path.Join(LocalDir(), fmt.Sprintf("%s.tmp.%s", base, Suffix()))
}

// RemotePath returns a unique POSIX remote staging path derived from dest,
// e.g. "/etc/app.conf" -> "/etc/app.conf.tmp.<suffix>". Remote hosts are
// always addressed with forward slashes regardless of the orchestrator's
// own platform.
func RemotePath(dest string) string {
	return fmt.Sprintf("%s.tmp.%s", dest, Suffix())
}
