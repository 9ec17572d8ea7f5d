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

import "io"

// Transport is the capability every other component in the engine needs
// from a remote host: run a command, or move bytes by SCP. *Session is the
// production implementation; tests substitute an in-memory fake rather
// than dialing a real sshd, the way the teacher's own resource tests avoid
// touching the filesystem where they can.
type Transport interface {
	Run(cmd string) (CommandResult, error)
	ScpSend(remotePath string, mode uint32, size int64, r io.Reader) error
	ScpRecv(remotePath string) (io.ReadCloser, int64, error)
	Ping() (bool, error)
	Host() string
	Close() error
}

var _ Transport = (*Session)(nil)
