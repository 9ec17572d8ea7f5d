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

// Package session provides one authenticated transport to one host. It
// generalizes remote.go's agentless-bootstrap SSH.Connect/Sftp into a
// general-purpose run/scp_send/scp_recv capability used by every other
// component in the engine.
package session

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/inventory"
)

const (
	// MaxConnectAttempts is the total number of TCP dial plus SSH handshake
	// attempts Connect makes before giving up.
	MaxConnectAttempts = 3

	// HandshakeTimeout bounds the TCP dial plus SSH handshake.
	HandshakeTimeout = 10 * time.Second

	// backoffUnit is the linear backoff step between connect attempts:
	// attempt N waits (N-1) * backoffUnit before retrying.
	backoffUnit = 1 * time.Second
)

// CommandResult is the outcome of a single Run call.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Logger is the per-operation logging facility threaded through Session and
// Executor, playing the role engine.Init.Logf plays for the teacher's
// resources: an injected callback rather than a global singleton, so the
// engine never imports a logging framework for its own lines. fields carries
// the namespacing (host, task, attempt) a caller should attach; it becomes
// logrus.Fields verbatim in cmd/sshorch's wiring.
type Logger struct {
	Debugf func(fields map[string]interface{}, format string, v ...interface{})
	Infof  func(fields map[string]interface{}, format string, v ...interface{})
}

// NopLogger discards every line. It's the default for Connect and for an
// Executor built by NewExecutor.
func NopLogger() Logger {
	nop := func(map[string]interface{}, string, ...interface{}) {}
	return Logger{Debugf: nop, Infof: nop}
}

// Session is one authenticated SSH transport to one host.
type Session struct {
	host  string
	creds inventory.HostCredentials

	mu     sync.Mutex
	client *ssh.Client
	sftp   *sftp.Client
}

// Connect establishes a TCP connection, performs the SSH handshake, and
// authenticates, retrying connection establishment up to MaxConnectAttempts
// times with linear backoff. Authentication failures are never retried.
// Retry attempts are silently discarded; use ConnectWithLogger to observe
// them.
func Connect(host string, creds inventory.HostCredentials) (*Session, error) {
	return ConnectWithLogger(host, creds, NopLogger())
}

// ConnectWithLogger is Connect with a Logger that receives a debug line for
// every failed dial or handshake attempt, the last one included.
func ConnectWithLogger(host string, creds inventory.HostCredentials, logger Logger) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, errwrap.WrapError(errwrap.KindSSHConnection, err, "invalid credentials for host %q", host)
	}

	auth, err := authMethods(creds)
	if err != nil {
		return nil, errwrap.WrapError(errwrap.KindAuthentication, err, "building auth methods for host %q", host)
	}

	addr := fmt.Sprintf("%s:%d", creds.Hostname, creds.EffectivePort())
	config := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: support a known_hosts callback
		Timeout:         HandshakeTimeout,
	}

	var lastErr error
	for attempt := 1; attempt <= MaxConnectAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * backoffUnit)
		}

		conn, dialErr := net.DialTimeout("tcp", addr, HandshakeTimeout)
		if dialErr != nil {
			lastErr = dialErr
			logger.Debugf(map[string]interface{}{"host": host, "attempt": attempt}, "dial failed: %v", dialErr)
			continue
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}

		sshConn, chans, reqs, handshakeErr := ssh.NewClientConn(conn, addr, config)
		if handshakeErr != nil {
			conn.Close()
			if isAuthError(handshakeErr) {
				return nil, errwrap.WrapError(errwrap.KindAuthentication, handshakeErr, "authenticating to host %q", host)
			}
			lastErr = handshakeErr
			logger.Debugf(map[string]interface{}{"host": host, "attempt": attempt}, "handshake failed: %v", handshakeErr)
			continue
		}

		client := ssh.NewClient(sshConn, chans, reqs)
		sftpClient, sftpErr := sftp.NewClient(client)
		if sftpErr != nil {
			client.Close()
			return nil, errwrap.WrapError(errwrap.KindSSHConnection, sftpErr, "opening sftp subsystem on host %q", host)
		}

		return &Session{host: host, creds: creds, client: client, sftp: sftpClient}, nil
	}

	return nil, errwrap.WrapError(errwrap.KindSSHConnection, lastErr, "connecting to host %q after %d attempts", host, MaxConnectAttempts)
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "auth")
}

func authMethods(creds inventory.HostCredentials) ([]ssh.AuthMethod, error) {
	if creds.PrivateKeyPath != "" {
		keyBytes, err := ioutil.ReadFile(creds.PrivateKeyPath)
		if err != nil {
			return nil, errwrap.Wrapf(err, "reading private key %q", creds.PrivateKeyPath)
		}
		var signer ssh.Signer
		if creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, errwrap.Wrapf(err, "parsing private key %q", creds.PrivateKeyPath)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(creds.Password)}, nil
}

// Close tears down the sftp subsystem and the underlying SSH connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reterr error
	if s.sftp != nil {
		reterr = errwrap.Append(reterr, s.sftp.Close())
	}
	if s.client != nil {
		reterr = errwrap.Append(reterr, s.client.Close())
	}
	return reterr
}

// Run executes cmd through the user's login shell on the remote host. No
// shell interpretation is added here: the caller constructs the full
// command string. A channel-level failure (non-zero exit, remote process
// killed) does not close the session.
func (s *Session) Run(cmd string) (CommandResult, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return CommandResult{}, errwrap.WrapError(errwrap.KindCommandExecution, err, "opening session on host %q", s.host)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	runErr := sess.Run(cmd)
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			return CommandResult{Stdout: stdout.String(), Stderr: stderr.String()},
				errwrap.WrapError(errwrap.KindCommandExecution, runErr, "running %q on host %q", cmd, s.host)
		}
	}

	return CommandResult{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// ScpSend writes size bytes read from r to remotePath with the given POSIX
// file mode, creating or truncating the file as needed.
func (s *Session) ScpSend(remotePath string, mode uint32, size int64, r io.Reader) error {
	f, err := s.sftp.Create(remotePath)
	if err != nil {
		return errwrap.WrapError(errwrap.KindFileOperation, err, "creating remote file %q on host %q", remotePath, s.host)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errwrap.WrapError(errwrap.KindFileOperation, err, "writing remote file %q on host %q", remotePath, s.host)
	}
	if err := f.Chmod(ossFileMode(mode)); err != nil {
		return errwrap.WrapError(errwrap.KindFileOperation, err, "chmod remote file %q on host %q", remotePath, s.host)
	}
	return nil
}

// ScpRecv returns a reader over the contents of remotePath and its size.
func (s *Session) ScpRecv(remotePath string) (io.ReadCloser, int64, error) {
	f, err := s.sftp.Open(remotePath)
	if err != nil {
		return nil, 0, errwrap.WrapError(errwrap.KindFileOperation, err, "opening remote file %q on host %q", remotePath, s.host)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, errwrap.WrapError(errwrap.KindFileOperation, err, "stat remote file %q on host %q", remotePath, s.host)
	}
	return f, info.Size(), nil
}

// Ping exercises a round trip command and confirms the expected reply, the
// cheapest possible liveness check for a host.
func (s *Session) Ping() (bool, error) {
	result, err := s.Run("echo 'pong'")
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0 && strings.TrimSpace(result.Stdout) == "pong", nil
}

// Host returns the host id this session was opened for.
func (s *Session) Host() string {
	return s.host
}
