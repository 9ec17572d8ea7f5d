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

// Package batch fans an operation out across a set of hosts, bounded by a
// counting semaphore the way remote.go bounds its concurrent SSH tunnels,
// and collects one result per host without ever dropping one.
package batch

import (
	"sort"
	"sync"

	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/internal/semaphore"
	"github.com/sshorch/sshorch/inventory"
	"github.com/sshorch/sshorch/session"
)

// DefaultMaxConcurrent matches the spec's default counting-semaphore capacity.
const DefaultMaxConcurrent = 15

// Operation is the per-host unit of work handed to Run. It receives a fresh
// session.Transport, already connected, scoped to one host.
type Operation[T any] func(t session.Transport) (T, error)

// HostResult is one host's outcome from a Run call.
type HostResult[T any] struct {
	HostID string
	Value  T
	Err    error
}

// Result aggregates every host's HostResult from one Run call.
type Result[T any] struct {
	Results map[string]HostResult[T]
}

// Successful returns the host ids whose operation returned a nil error.
func (r Result[T]) Successful() []string {
	var ids []string
	for id, hr := range r.Results {
		if hr.Err == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Failed returns the host ids whose operation returned a non-nil error.
func (r Result[T]) Failed() []string {
	var ids []string
	for id, hr := range r.Results {
		if hr.Err != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SuccessRate is |successful| / |results|; zero hosts yields a rate of zero.
func (r Result[T]) SuccessRate() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(len(r.Successful())) / float64(len(r.Results))
}

// Connector opens a session.Transport to one inventory host. NewExecutor
// installs one backed by session.ConnectWithLogger; tests substitute a fake
// transport factory. A zero-value Executor has no Connector set.
type Connector func(hostID string, creds inventory.HostCredentials) (session.Transport, error)

// Executor bounds concurrent per-host operations against one Inventory.
type Executor struct {
	Inventory     *inventory.Inventory
	MaxConcurrent int
	Connect       Connector

	// Logger receives one debug line per connect retry attempt (via
	// Connect) and one info line per host on Run completion. The
	// zero-value Executor discards every line.
	Logger session.Logger
}

// NewExecutor builds an Executor backed by real SSH sessions.
func NewExecutor(inv *inventory.Inventory, maxConcurrent int) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	e := &Executor{
		Inventory:     inv,
		MaxConcurrent: maxConcurrent,
		Logger:        session.NopLogger(),
	}
	e.Connect = func(hostID string, creds inventory.HostCredentials) (session.Transport, error) {
		return session.ConnectWithLogger(hostID, creds, e.Logger)
	}
	return e
}

// Run executes op against every host in hostIDs, bounded by e.MaxConcurrent
// simultaneous outstanding connections. Host ids absent from the inventory
// are recorded as a connection error without consuming a permit. Run blocks
// until every host has a recorded result. label identifies the caller's unit
// of work (e.g. a playbook task name) and is attached to every log line Run
// emits through e.Logger.
func Run[T any](e *Executor, label string, hostIDs []string, op Operation[T]) Result[T] {
	sem := semaphore.NewSemaphore(e.MaxConcurrent)
	defer sem.Close()

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]HostResult[T], len(hostIDs))

	record := func(id string, hr HostResult[T]) {
		mu.Lock()
		results[id] = hr
		mu.Unlock()
		if e.Logger.Infof != nil {
			e.Logger.Infof(map[string]interface{}{"host": id, "task": label}, "task completed: success=%v", hr.Err == nil)
		}
	}

	for _, id := range hostIDs {
		creds, ok := e.Inventory.Host(id)
		if !ok {
			record(id, HostResult[T]{HostID: id, Err: errwrap.NewError(errwrap.KindSSHConnection, "host %q not found", id)})
			continue
		}

		wg.Add(1)
		go func(id string, creds inventory.HostCredentials) {
			defer wg.Done()
			if err := sem.P(1); err != nil {
				record(id, HostResult[T]{HostID: id, Err: errwrap.WrapError(errwrap.KindSSHConnection, err, "acquiring permit for host %q", id)})
				return
			}
			defer sem.V(1)

			t, err := e.Connect(id, creds)
			if err != nil {
				record(id, HostResult[T]{HostID: id, Err: err})
				return
			}
			defer t.Close()

			value, err := op(t)
			record(id, HostResult[T]{HostID: id, Value: value, Err: err})
		}(id, creds)
	}

	wg.Wait()
	return Result[T]{Results: results}
}
