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
	"runtime"
	"sync"

	errorx "github.com/panjf2000/evstream/pkg/errors"
	"github.com/panjf2000/evstream/pkg/pool/goroutine"
)

// TaskState is the life cycle state of a Task.
type TaskState int32

const (
	// TaskRunnable is a task that has not been started yet.
	TaskRunnable TaskState = iota
	// TaskRunning is a task that holds control.
	TaskRunning
	// TaskSuspended is a task waiting to be resumed or terminated.
	TaskSuspended
	// TaskTerminated is a task whose function returned or was unwound.
	TaskTerminated
)

func (s TaskState) String() string {
	switch s {
	case TaskRunnable:
		return "runnable"
	case TaskRunning:
		return "running"
	case TaskSuspended:
		return "suspended"
	case TaskTerminated:
		return "terminated"
	}
	return "unknown"
}

// Task runs a function on its own goroutine while the caller waits, so that
// the function can give control back in the middle and be resumed later.
// Control is handed over synchronously: the caller and the task never run
// at the same time. A terminated task can be started again.
type Task struct {
	pool     *goroutine.Pool
	state    TaskState
	fn       func()
	resumeCh chan bool
	yieldCh  chan struct{}
	panicked any
}

var (
	defaultTaskPoolOnce sync.Once
	defaultTaskPool     *goroutine.Pool
)

func sharedTaskPool() *goroutine.Pool {
	defaultTaskPoolOnce.Do(func() {
		defaultTaskPool = goroutine.Default()
	})
	return defaultTaskPool
}

// NewTask returns a task whose goroutines come from pool, a shared pool is
// used when pool is nil.
func NewTask(pool *goroutine.Pool) *Task {
	if pool == nil {
		pool = sharedTaskPool()
	}
	return &Task{
		pool:     pool,
		resumeCh: make(chan bool),
		yieldCh:  make(chan struct{}),
	}
}

// State returns the state of t.
func (t *Task) State() TaskState {
	return t.state
}

// Start runs fn on a pooled goroutine until fn returns or suspends.
// A panic of fn is raised again in the caller.
func (t *Task) Start(fn func()) error {
	if t.state == TaskRunning || t.state == TaskSuspended {
		return errorx.ErrLiveTask
	}
	t.fn = fn
	t.state = TaskRunning
	if err := t.pool.Submit(t.run); err != nil {
		t.state = TaskTerminated
		t.fn = nil
		if errors.Is(err, goroutine.ErrPoolOverload) {
			return errorx.ErrTaskPoolOverload
		}
		return err
	}
	<-t.yieldCh
	t.rethrow()
	return nil
}

func (t *Task) run() {
	defer func() {
		// recover returns nil while unwinding from runtime.Goexit.
		if r := recover(); r != nil {
			t.panicked = r
		}
		t.fn = nil
		t.state = TaskTerminated
		t.yieldCh <- struct{}{}
	}()
	t.fn()
}

// Suspend gives control back to the caller of Start or Resume. It must be
// called from the task's goroutine and returns when the task is resumed.
// When the task is terminated instead, Suspend does not return: the
// goroutine unwinds, running deferred calls.
func (t *Task) Suspend() {
	t.state = TaskSuspended
	t.yieldCh <- struct{}{}
	if !<-t.resumeCh {
		runtime.Goexit()
	}
}

// Resume hands control to a suspended task until it suspends again or returns.
func (t *Task) Resume() error {
	if t.state != TaskSuspended {
		if t.state == TaskRunning {
			return errorx.ErrLiveTask
		}
		return errorx.ErrTaskTerminated
	}
	t.state = TaskRunning
	t.resumeCh <- true
	<-t.yieldCh
	t.rethrow()
	return nil
}

// Terminate unwinds a suspended task and waits for its goroutine to finish.
// It does nothing on a task that is not alive and fails on a running one,
// which cannot be stopped from the outside.
func (t *Task) Terminate() error {
	switch t.state {
	case TaskRunning:
		return errorx.ErrLiveTask
	case TaskSuspended:
		t.resumeCh <- false
		<-t.yieldCh
		t.rethrow()
	}
	return nil
}

func (t *Task) rethrow() {
	if p := t.panicked; p != nil {
		t.panicked = nil
		panic(p)
	}
}

// runTask starts the handler of s in its task, or resumes the task when it
// is suspended.
func (s *Stream) runTask() {
	if s.task == nil {
		s.task = NewTask(s.pool)
	}
	if s.task.State() == TaskSuspended {
		_ = s.task.Resume()
		return
	}
	if s.handler == nil {
		return
	}
	handler, ctx := s.handler, s.ctx
	if err := s.task.Start(func() { handler(s, ctx) }); err != nil {
		// Retried on the next pass that finds s ready.
		s.logger.Warnf("%s: cannot start task: %v", s.label, err)
	}
}
