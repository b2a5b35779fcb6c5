// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tenexerr provides the façade's error taxonomy (spec §7).
package tenexerr

import "fmt"

// ErrNotLoggedIn is returned when an operation requiring a signer is called
// before login.
var ErrNotLoggedIn = &sentinel{"not logged in"}

// ErrCoreNotInitialized is returned when an operation is called before init().
var ErrCoreNotInitialized = &sentinel{"core not initialized"}

// ErrInvalidNsec is returned when the login secret fails to parse.
var ErrInvalidNsec = &sentinel{"invalid nsec"}

type sentinel struct{ msg string }

func (s *sentinel) Error() string { return s.msg }

// LockError indicates a poisoned lock was detected; non-recoverable.
type LockError struct {
	Resource string
}

func (e *LockError) Error() string { return fmt.Sprintf("lock error: %s", e.Resource) }

// LogoutFailed indicates disconnect acknowledgement, worker join, or
// cache-wipe failed; state was not cleared.
type LogoutFailed struct {
	Message string
}

func (e *LogoutFailed) Error() string { return fmt.Sprintf("logout failed: %s", e.Message) }

// Internal wraps any other failure: timeouts, backend I/O, remote-signer
// protocol errors.
type Internal struct {
	Message string
	Cause   error
}

func (e *Internal) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *Internal) Unwrap() error { return e.Cause }

// Wrap builds an *Internal from an arbitrary cause.
func Wrap(message string, cause error) error {
	return &Internal{Message: message, Cause: cause}
}
