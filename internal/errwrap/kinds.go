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

package errwrap

import "fmt"

// Kind identifies which of the fixed error categories an error belongs to.
// See the error surface table in the engine design: every operation-level
// failure is one of these kinds so that callers and log sinks can branch on
// it without string matching.
type Kind string

// The fixed set of error kinds the engine ever returns.
const (
	KindSSHConnection      Kind = "SshConnectionError"
	KindAuthentication     Kind = "AuthenticationError"
	KindCommandExecution   Kind = "CommandExecutionError"
	KindCommand            Kind = "CommandError"
	KindFileOperation      Kind = "FileOperationError"
	KindSystemInfo         Kind = "SystemInfoError"
	KindTemplate           Kind = "TemplateError"
	KindValidation         Kind = "ValidationError"
	KindIO                 Kind = "IoError"
)

// Error is a descriptive, kinded error. It wraps an optional underlying
// cause so callers can still use errors.Unwrap/errors.Is on it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// NewError builds a kinded error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a kinded error that wraps an existing cause.
func WrapError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause.Error())
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match two *Error values of the same Kind, regardless of
// message or cause — callers generally only care which kind they hit.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
