// Copyright (c) 2026 The Evstream Authors. All rights reserved.
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

package evstream

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	errorx "github.com/panjf2000/evstream/pkg/errors"
)

// ProtocolErrorCode is the code of errors raised by protocol layers rather
// than by the operating system.
const ProtocolErrorCode = -1

// StreamError is the error state of a stream. Code is the errno of a failed
// system call, or ProtocolErrorCode.
type StreamError struct {
	Code int
	Msg  string
	Err  error
}

func (e *StreamError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("evstream: %s (code %d)", e.Msg, e.Code)
	}
	return fmt.Sprintf("evstream: error code %d", e.Code)
}

// Unwrap returns the cause.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// newStreamError converts an I/O failure into stream error state.
func newStreamError(err error) *StreamError {
	var se *StreamError
	if errors.As(err, &se) {
		return se
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &StreamError{Code: int(errno), Msg: err.Error(), Err: err}
	}
	var serr *os.SyscallError
	if errors.As(err, &serr) {
		return &StreamError{Code: ProtocolErrorCode, Msg: serr.Error(), Err: err}
	}
	return &StreamError{Code: ProtocolErrorCode, Msg: err.Error(), Err: err}
}

// protocolError builds the error state set explicitly through SetError.
func protocolError(code int, msg string) *StreamError {
	var cause error = errorx.ErrProtocol
	if code > 0 {
		cause = syscall.Errno(code)
	}
	return &StreamError{Code: code, Msg: msg, Err: cause}
}
