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
	"strings"
	"time"

	"github.com/panjf2000/evstream/internal/toolkit"
	"github.com/panjf2000/evstream/pkg/netpoll"
)

// Ops is a set of readiness conditions.
type Ops uint8

const (
	// OpRead means a read would return data (or report end of stream).
	OpRead Ops = 1 << iota
	// OpWrite means a write would be accepted.
	OpWrite
	// OpExcept means an exceptional condition, such as an error on the descriptor.
	OpExcept
	// OpTimeout means the stream's alarm went off. It is reported, never wanted.
	OpTimeout
)

// Has reports whether every condition of x is in o.
func (o Ops) Has(x Ops) bool {
	return o&x == x
}

func (o Ops) String() string {
	if o == 0 {
		return "none"
	}
	var parts []string
	for _, op := range []struct {
		bit  Ops
		name string
	}{{OpRead, "read"}, {OpWrite, "write"}, {OpExcept, "except"}, {OpTimeout, "timeout"}} {
		if o&op.bit != 0 {
			parts = append(parts, op.name)
		}
	}
	return strings.Join(parts, "|")
}

func (o Ops) ioEvent() (ev netpoll.IOEvent) {
	if o&OpRead != 0 {
		ev |= netpoll.EventRead
	}
	if o&OpWrite != 0 {
		ev |= netpoll.EventWrite
	}
	if o&OpExcept != 0 {
		ev |= netpoll.EventErr
	}
	return
}

// Query is the immutable request of one readiness pass.
type Query struct {
	// Peers resolves coupling relations, streams fall back to their own registry when nil.
	Peers *Registry
	// Now is the reference time of the pass, the stream's clock is used when zero.
	Now time.Time
	// MaxWait bounds the blocking check, negative means unbounded.
	MaxWait time.Duration
	// Wants overrides the default wanted conditions of the streams it reaches, 0 keeps them.
	Wants Ops
	// Inherit makes a composite pass its effective wants down to its children.
	Inherit bool
	// UseDefault makes the Loop service its default composite as well.
	UseDefault bool
}

func (q Query) wants(def Ops) Ops {
	if q.Wants != 0 {
		return q.Wants
	}
	return def
}

// child returns the query a composite hands to its children.
func (q Query) child(parentWants Ops) Query {
	if q.Inherit {
		q.Wants = parentWants
	} else {
		q.Wants = 0
	}
	return q
}

// Interest is one descriptor a stream wants polled.
type Interest struct {
	FD  int
	Ops Ops
}

// Plan is what a stream answers in the prepare phase. Plans of many streams
// merge into one; a merge only ever tightens the timeout.
type Plan struct {
	Interests []Interest
	// Timeout is the longest the stream can wait, negative means no limit.
	Timeout time.Duration
	// Ready is set when the stream already knows it is ready without polling.
	Ready bool
}

// NewPlan returns a plan without interest and without a timeout.
func NewPlan() Plan {
	return Plan{Timeout: -1}
}

// Watch registers interest in ops on fd.
func (p *Plan) Watch(fd int, ops Ops) {
	if fd < 0 || ops == 0 {
		return
	}
	p.Interests = append(p.Interests, Interest{FD: fd, Ops: ops})
}

// Shorten lowers the timeout to d, it never raises it. Negative d is ignored.
func (p *Plan) Shorten(d time.Duration) {
	if d < 0 {
		return
	}
	p.Timeout = toolkit.MinTimeout(p.Timeout, d)
}

// MarkReady declares the stream ready, which also means the pass must not block.
func (p *Plan) MarkReady() {
	p.Ready = true
	p.Timeout = 0
}

// Merge folds o into p.
func (p *Plan) Merge(o Plan) {
	p.Interests = append(p.Interests, o.Interests...)
	p.Shorten(o.Timeout)
	if o.Ready {
		p.MarkReady()
	}
}

// Events carries the outcome of the blocking check into the collect phase.
// A nil *Events reports nothing, which is what a stream sees when it is
// collected without any polling.
type Events struct {
	ps *netpoll.PollSet
}

// Revents returns the conditions reported for fd.
func (e *Events) Revents(fd int) (ops Ops) {
	if e == nil || e.ps == nil || fd < 0 {
		return
	}
	ev := e.ps.Revents(fd)
	if netpoll.IsReadEvent(ev) {
		ops |= OpRead
	}
	if netpoll.IsWriteEvent(ev) {
		ops |= OpWrite
	}
	if netpoll.IsErrorEvent(ev) {
		ops |= OpExcept
	}
	return
}

// Selectable is what the Loop and composites drive. Stream, Composite and
// Ticker implement it, and so can any type embedding them.
type Selectable interface {
	// ID identifies the stream in a Registry.
	ID() ID
	// Prepare registers what the stream waits for.
	Prepare(q Query) Plan
	// Collect interprets the outcome of the check, does the opportunistic
	// I/O that goes with waking up and returns the ready conditions.
	Collect(q Query, ev *Events) Ops
	// Ready returns what the last Collect found, until the next Callback.
	Ready() Ops
	// Callback runs the built-in behaviour and the user handler.
	Callback()
	// IsOK reports whether the stream is still open.
	IsOK() bool
	// Release terminates suspension, closes the stream and frees its buffers.
	Release() error
}
