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

// Package semaphore contains a counting semaphore used by the batch
// executor to bound the number of simultaneously open SSH sessions.
package semaphore

import (
	"fmt"
)

// Semaphore is a counting semaphore. It must be initialized before use.
type Semaphore struct {
	C      chan struct{}
	closed chan struct{}
}

// NewSemaphore creates a new semaphore with the given capacity.
func NewSemaphore(size int) *Semaphore {
	obj := &Semaphore{}
	obj.Init(size)
	return obj
}

// Init initializes the semaphore.
func (obj *Semaphore) Init(size int) {
	obj.C = make(chan struct{}, size)
	obj.closed = make(chan struct{})
}

// Close shuts down the semaphore and releases all outstanding waiters.
func (obj *Semaphore) Close() {
	close(obj.closed)
}

// P acquires n permits, blocking until they're available or the semaphore
// is closed.
func (obj *Semaphore) P(n int) error {
	for i := 0; i < n; i++ {
		select {
		case obj.C <- struct{}{}:
		case <-obj.closed:
			return fmt.Errorf("closed")
		}
	}
	return nil
}

// V releases n permits.
func (obj *Semaphore) V(n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-obj.C:
		case <-obj.closed:
			return fmt.Errorf("closed")
		default:
			panic("semaphore: V > P")
		}
	}
	return nil
}
