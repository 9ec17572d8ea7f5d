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

package session

import (
	"os"

	"golang.org/x/sys/unix"
)

// ossFileMode converts a POSIX permission bit pattern (e.g. 0644) to the
// os.FileMode the sftp client's Chmod expects. The low 9 bits line up
// directly; unix.S_IRWXU et al. document the bits we accept.
func ossFileMode(mode uint32) os.FileMode {
	return os.FileMode(mode & (unix.S_IRWXU | unix.S_IRWXG | unix.S_IRWXO))
}
