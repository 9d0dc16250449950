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
	"time"

	errorx "github.com/panjf2000/evstream/pkg/errors"
)

// EnableSuspension makes the handler of s run inside a Task from the next
// dispatch on, which lets it call ContinueSelect.
func (s *Stream) EnableSuspension() {
	s.suspendable = true
}

// Suspendable reports whether the handler of s runs inside a Task.
func (s *Stream) Suspendable() bool {
	return s.suspendable
}

// Suspended reports whether s has a task waiting to be resumed.
func (s *Stream) Suspended() bool {
	return s.task != nil && s.task.State() == TaskSuspended
}

func (s *Stream) inTask() bool {
	return s.suspendable && s.task != nil && s.task.State() == TaskRunning
}

// ContinueSelect suspends the running handler of s until the loop finds s
// ready again. With timeout >= 0 the alarm of s is set to bound the wait and
// cleared again on return. It reports whether s was resumed for an I/O or
// forced condition rather than only because the alarm went off.
//
// It may only be called from the handler of a suspension-enabled stream and
// panics with errors.ErrNotSuspendable otherwise.
func (s *Stream) ContinueSelect(timeout time.Duration) bool {
	if !s.inTask() {
		panic(errorx.ErrNotSuspendable)
	}
	armed := timeout >= 0
	if armed {
		s.Alarm(timeout)
	}
	s.task.Suspend()
	if armed {
		s.deadline = time.Time{}
		s.fired = false
	}
	return s.ready&^OpTimeout != 0
}

// TerminateSuspension unwinds the suspended task of s, if any, and waits for
// it to finish. It fails with errors.ErrLiveTask when called from the task
// itself.
func (s *Stream) TerminateSuspension() error {
	if s.task == nil {
		return nil
	}
	return s.task.Terminate()
}
