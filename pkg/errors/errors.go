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

// Package errors defines common errors for evstream.
package errors

import "errors"

var (
	// ErrClosed occurs when trying to do I/O on a stream that has already been closed.
	ErrClosed = errors.New("evstream: stream is closed")
	// ErrIdle occurs when a readiness pass has nothing to wait for: no descriptor interest,
	// no deadline and an unbounded maximum wait.
	ErrIdle = errors.New("evstream: nothing to wait for")
	// ErrNotSuspendable occurs when ContinueSelect is called outside a suspension-enabled callback.
	ErrNotSuspendable = errors.New("evstream: stream callback is not running inside a task")
	// ErrLiveTask occurs when a task is started while another one of the same stream is still alive.
	ErrLiveTask = errors.New("evstream: stream already has a live task")
	// ErrTaskTerminated is delivered to a suspended task that is being unwound.
	ErrTaskTerminated = errors.New("evstream: task has been terminated")
	// ErrTaskPoolOverload occurs when the goroutine pool refuses to start a new task.
	ErrTaskPoolOverload = errors.New("evstream: too many live tasks")
	// ErrUnsupportedPlatform occurs when descriptor polling is requested on a platform without poll(2).
	ErrUnsupportedPlatform = errors.New("evstream: descriptor polling is not supported on this platform")
	// ErrProtocol is the cause of errors set explicitly by a protocol layer.
	ErrProtocol = errors.New("evstream: protocol error")
)
