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
	"io"
	"time"

	"github.com/panjf2000/evstream/pkg/buffer/ring"
	errorx "github.com/panjf2000/evstream/pkg/errors"
	"github.com/panjf2000/evstream/pkg/logging"
	"github.com/panjf2000/evstream/pkg/netpoll"
	"github.com/panjf2000/evstream/pkg/pool/goroutine"
)

// Handler is invoked when a stream is ready, with the context given to SetCallback.
type Handler func(s *Stream, ctx any)

// Stream is a buffered, pollable I/O endpoint. All of its methods must be
// called from the goroutine driving the Loop, or from the stream's own
// task while it runs.
type Stream struct {
	id    ID
	label string
	t     Transport
	raw   bool // t is an EventSource

	in  ring.Buffer
	out ring.Buffer

	handler Handler
	ctx     any
	onClose Handler

	deadline time.Time // zero means no alarm
	fired    bool

	wants     Ops
	force     Ops
	ready     Ops
	readPeer  ID
	writePeer ID
	peers     *Registry

	stopRead   bool
	stopWrite  bool
	halfClosed bool
	closed     bool
	eof        bool
	eofSeen    bool

	outLimit  int
	queueMin  int
	autoFlush bool

	err *StreamError

	suspendable bool
	task        *Task
	pool        *goroutine.Pool
	ps          *netpoll.PollSet // private poll set of blocking GetLine calls

	clock  Clock
	logger logging.Logger
}

// NewStream wraps t into a stream. A nil transport makes a stream that only
// ever becomes ready through its alarm or forced conditions.
func NewStream(t Transport, opts ...StreamOption) *Stream {
	s := new(Stream)
	s.init(t, loadStreamOptions(opts...))
	s.peers.Register(s)
	return s
}

func (s *Stream) init(t Transport, opts *StreamOptions) {
	s.id = nextID()
	s.t = t
	if _, ok := t.(EventSource); ok {
		s.raw = true
	}
	s.label = opts.Label
	if s.label == "" {
		s.label = fmt.Sprintf("stream-%d", s.id)
	}
	s.wants = opts.Wants
	s.peers = opts.Registry
	s.outLimit = opts.OutputLimit
	s.queueMin = opts.QueueMin
	s.autoFlush = opts.AutoFlush
	s.suspendable = opts.Suspendable
	s.pool = opts.TaskPool
	s.clock = opts.Clock
	s.logger = opts.Logger
}

// ID returns the unique identifier of s.
func (s *Stream) ID() ID {
	return s.id
}

// Label returns the debug label of s.
func (s *Stream) Label() string {
	return s.label
}

func (s *Stream) String() string {
	return s.label
}

// Transport returns the transport underneath s.
func (s *Stream) Transport() Transport {
	return s.t
}

// SetCallback sets the handler invoked when s is ready.
func (s *Stream) SetCallback(fn Handler, ctx any) {
	s.handler = fn
	s.ctx = ctx
}

// SetCloseCallback sets the handler invoked once when s gets closed.
func (s *Stream) SetCloseCallback(fn Handler) {
	s.onClose = fn
}

// Context returns the context given to SetCallback.
func (s *Stream) Context() any {
	return s.ctx
}

// SetWants replaces the conditions s is polled for by default.
func (s *Stream) SetWants(ops Ops) {
	s.wants = ops &^ OpTimeout
}

// Wants returns the conditions s is polled for by default.
func (s *Stream) Wants() Ops {
	return s.wants
}

// ForceSelect makes s report ops as ready on every pass until UndoForceSelect.
func (s *Stream) ForceSelect(ops Ops) {
	s.force |= ops
}

// UndoForceSelect stops forcing ops.
func (s *Stream) UndoForceSelect(ops Ops) {
	s.force &^= ops
}

// ReadRequiresWritable makes the read readiness of s depend on peer being
// able to take more output. A zero ID removes the relation.
func (s *Stream) ReadRequiresWritable(peer ID) {
	s.readPeer = peer
}

// WriteRequiresReadable makes the write readiness of s depend on peer having
// input. A zero ID removes the relation.
func (s *Stream) WriteRequiresReadable(peer ID) {
	s.writePeer = peer
}

// Ready returns the conditions found by the last Collect, they are cleared
// at the end of Callback.
func (s *Stream) Ready() Ops {
	return s.ready
}

// IsOK reports whether s is still open.
func (s *Stream) IsOK() bool {
	return !s.closed
}

// Err returns the error state of s, nil if none was recorded.
func (s *Stream) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// ErrCode returns the error code of s, 0 if none was recorded.
func (s *Stream) ErrCode() int {
	if s.err == nil {
		return 0
	}
	return s.err.Code
}

// SetError records a protocol level error and closes s.
func (s *Stream) SetError(code int, msg string) {
	s.err = protocolError(code, msg)
	_ = s.Close()
}

func (s *Stream) fail(err error) {
	s.err = newStreamError(err)
	s.logger.Errorf("%s: %v", s.label, err)
	_ = s.Close()
}

func (s *Stream) fd() int {
	if s.t == nil {
		return -1
	}
	return s.t.FD()
}

func (s *Stream) now(q Query) time.Time {
	if q.Now.IsZero() {
		return s.clock()
	}
	return q.Now
}

func (s *Stream) readPending() bool {
	p, ok := s.t.(Pender)
	return ok && p.ReadPending()
}

func (s *Stream) readCondition() bool {
	if s.closed || s.stopRead {
		return false
	}
	need := s.queueMin
	if need < 1 {
		need = 1
	}
	return s.in.Buffered() >= need || (s.eof && !s.eofSeen)
}

func (s *Stream) writeCondition() bool {
	return !s.closed && !s.stopWrite && (s.outLimit == 0 || s.out.Buffered() < s.outLimit)
}

// condition reports the software side of op, which is what coupled streams
// look at. A stream with output still waiting for its transport does not
// count as writable, so that a coupled reader cannot outpace it.
func (s *Stream) condition(op Ops) bool {
	switch op {
	case OpRead:
		return s.readCondition()
	case OpWrite:
		return s.writeCondition() && s.out.IsEmpty()
	}
	return false
}

type conditioner interface {
	condition(op Ops) bool
}

func (s *Stream) peerAllows(q Query, id ID, op Ops) bool {
	if id == 0 {
		return true
	}
	r := q.Peers
	if r == nil {
		r = s.peers
	}
	p, ok := r.Lookup(id)
	if !ok {
		return true
	}
	if c, ok := p.(conditioner); ok {
		return c.condition(op)
	}
	return p.Ready()&op != 0
}

// Prepare tells what s waits for. Conditions that already hold, an expired
// alarm and forced conditions make the plan ready without polling.
func (s *Stream) Prepare(q Query) Plan {
	p := NewPlan()
	if s.closed {
		return p
	}
	if s.force != 0 {
		p.MarkReady()
	}
	if !s.deadline.IsZero() {
		if d := s.deadline.Sub(s.now(q)); d <= 0 {
			p.MarkReady()
		} else {
			p.Shorten(d)
		}
	}

	if s.t == nil {
		return p
	}

	wants := q.wants(s.wants)
	fd := s.fd()
	if s.raw {
		p.Watch(fd, wants&(OpRead|OpWrite|OpExcept))
		return p
	}

	if wants&OpRead != 0 && !s.stopRead && s.peerAllows(q, s.readPeer, OpWrite) {
		if s.readCondition() || s.readPending() {
			p.MarkReady()
		} else {
			p.Watch(fd, OpRead)
		}
	}
	if wants&OpWrite != 0 && s.writeCondition() && s.peerAllows(q, s.writePeer, OpRead) {
		if fd < 0 {
			p.MarkReady()
		} else {
			p.Watch(fd, OpWrite)
		}
	}
	if !s.out.IsEmpty() {
		if fd < 0 {
			p.Shorten(0)
		} else {
			p.Watch(fd, OpWrite)
		}
	}
	if wants&OpExcept != 0 {
		p.Watch(fd, OpExcept)
	}
	return p
}

// Collect interprets ev for s: it reads what arrived, flushes what can be
// written and returns the conditions that hold.
func (s *Stream) Collect(q Query, ev *Events) Ops {
	s.ready = 0
	if s.closed {
		return 0
	}
	wants := q.wants(s.wants)
	fd := s.fd()
	rev := ev.Revents(fd)

	var ops Ops
	switch {
	case s.t == nil:
	case s.raw:
		ops = rev & (wants | OpExcept)
	default:
		if !s.stopRead && (rev&(OpRead|OpExcept) != 0 || s.readPending()) {
			s.fill()
		}
		if !s.out.IsEmpty() && (fd < 0 || rev&(OpWrite|OpExcept) != 0) {
			s.flush()
		}
		if s.closed {
			return 0
		}
		if wants&OpRead != 0 && s.readCondition() && s.peerAllows(q, s.readPeer, OpWrite) {
			ops |= OpRead
		}
		if wants&OpWrite != 0 && s.writeCondition() && (fd < 0 || rev&OpWrite != 0) &&
			s.peerAllows(q, s.writePeer, OpRead) {
			ops |= OpWrite
		}
		if wants&OpExcept != 0 && rev&OpExcept != 0 {
			ops |= OpExcept
		}
	}
	if s.alarmExpired(s.now(q)) {
		s.fired = true
		ops |= OpTimeout
	}
	ops |= s.force

	s.checkShutdown()
	if s.closed {
		return 0
	}
	s.ready = ops
	return ops
}

// Callback clears a fired alarm, flushes pending output and runs the
// handler, resuming the suspended task instead when there is one.
func (s *Stream) Callback() {
	if s.closed {
		return
	}
	if s.fired {
		s.deadline = time.Time{}
		s.fired = false
	}
	s.flush()
	s.invoke()
	if s.autoFlush {
		s.flush()
	}
	s.checkShutdown()
	s.ready = 0
}

func (s *Stream) invoke() {
	if s.closed {
		return
	}
	if !s.suspendable {
		if s.handler != nil {
			s.handler(s, s.ctx)
		}
		return
	}
	s.runTask()
}

// fill reads what the transport has into the input buffer.
func (s *Stream) fill() (n int) {
	if s.t == nil || s.raw || s.closed || s.eof {
		return
	}
	for {
		m, err := s.in.FillFrom(s.t.RawRead)
		n += m
		if err == io.EOF {
			s.logger.Debugf("%s: end of stream", s.label)
			s.eof = true
			return
		}
		if err != nil {
			s.fail(err)
			return
		}
		if m == 0 || !s.in.IsFull() {
			return
		}
	}
}

func (s *Stream) flush() (n int) {
	if s.t == nil || s.raw || s.closed || s.out.IsEmpty() {
		return
	}
	n, err := s.out.DrainTo(s.t.RawWrite)
	if err != nil {
		s.fail(err)
		return
	}
	if s.stopWrite && s.out.IsEmpty() {
		s.shutdownWrite()
	}
	return
}

func (s *Stream) shutdownWrite() {
	if s.halfClosed || s.closed {
		return
	}
	s.halfClosed = true
	if hc, ok := s.t.(HalfCloser); ok {
		if err := hc.CloseWrite(); err != nil {
			s.fail(err)
		}
	}
}

// NoRead stops reading, discarding buffered input.
func (s *Stream) NoRead() {
	s.stopRead = true
	s.in.Reset()
	s.checkShutdown()
}

// NoWrite stops accepting writes, the write direction of the transport is
// shut down once pending output is flushed.
func (s *Stream) NoWrite() {
	s.stopWrite = true
	if s.out.IsEmpty() {
		s.shutdownWrite()
	}
	s.checkShutdown()
}

func (s *Stream) checkShutdown() {
	if !s.closed && s.stopRead && s.stopWrite && s.in.IsEmpty() && s.out.IsEmpty() {
		_ = s.Close()
	}
}

// Close closes the transport, unwinds a suspended task and runs the close
// callback. It is safe to call more than once.
func (s *Stream) Close() (err error) {
	if s.closed {
		return nil
	}
	s.closed = true
	s.ready = 0
	if s.t != nil {
		err = s.t.Close()
	}
	if s.task != nil && s.task.State() == TaskSuspended {
		if terr := s.task.Terminate(); err == nil {
			err = terr
		}
	}
	if fn := s.onClose; fn != nil {
		s.onClose = nil
		fn(s, s.ctx)
	}
	return
}

// Release terminates a suspended task, closes s, gives its buffers back and
// removes it from its registry.
func (s *Stream) Release() error {
	err := s.TerminateSuspension()
	if errors.Is(err, errorx.ErrLiveTask) {
		// Released from its own task, which unwinds on return.
		err = nil
	}
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	s.in.Release()
	s.out.Release()
	s.peers.Unregister(s.id)
	return err
}
