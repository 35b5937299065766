// Copyright 2026 The memscan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memscan

import "github.com/pkg/errors"

// ErrorKind classifies an engine-level failure; it is what gets mirrored
// into the shared buffer's error_code field, so its values are part of the
// host-facing ABI and must not be reordered.
type ErrorKind uint32

const (
	ErrKindNone ErrorKind = iota
	ErrKindNotInitialized
	ErrKindAlreadySearching
	ErrKindInvalidArgument
	ErrKindIO
	ErrKindReaderFailure
	ErrKindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNone:
		return "none"
	case ErrKindNotInitialized:
		return "not initialized"
	case ErrKindAlreadySearching:
		return "already searching"
	case ErrKindInvalidArgument:
		return "invalid argument"
	case ErrKindIO:
		return "io"
	case ErrKindReaderFailure:
		return "reader failure"
	case ErrKindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// EngineError wraps an underlying cause with the ErrorKind the shared
// buffer and the public API surface on.
type EngineError struct {
	Kind  ErrorKind
	cause error
}

func (e *EngineError) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *EngineError) Unwrap() error { return e.cause }

// newEngineError builds an EngineError, wrapping cause with pkg/errors so a
// stack trace is attached the way the teacher's codebase wraps I/O and
// parse failures.
func newEngineError(kind ErrorKind, cause error) *EngineError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &EngineError{Kind: kind, cause: cause}
}

func notInitializedError() error {
	return newEngineError(ErrKindNotInitialized, errors.New("engine not initialized"))
}

func alreadySearchingError() error {
	return newEngineError(ErrKindAlreadySearching, errors.New("a search or refine is already in flight"))
}

func invalidArgumentError(msg string) error {
	return newEngineError(ErrKindInvalidArgument, errors.New(msg))
}

func ioError(cause error) error {
	return newEngineError(ErrKindIO, cause)
}

func readerFailureError(cause error) error {
	return newEngineError(ErrKindReaderFailure, cause)
}

func internalError(cause error) error {
	return newEngineError(ErrKindInternal, cause)
}
