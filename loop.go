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
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/panjf2000/evstream/internal/toolkit"
	errorx "github.com/panjf2000/evstream/pkg/errors"
	"github.com/panjf2000/evstream/pkg/netpoll"
	"github.com/panjf2000/evstream/pkg/pool/goroutine"
)

// Loop drives streams: every pass prepares them, waits on one poll(2) call
// and collects what became ready, then calls the ready streams back.
// A Loop and all the streams it drives belong to a single goroutine.
type Loop struct {
	opts    *Options
	def     *Composite
	peers   *Registry
	pool    *goroutine.Pool
	ownPool bool
	ps      netpoll.PollSet
	ready   []Selectable
	passes  uint64
}

// NewLoop instantiates a loop with its own registry and default composite.
func NewLoop(opts ...Option) *Loop {
	options := loadOptions(opts...)
	l := &Loop{opts: options, peers: NewRegistry(), pool: options.TaskPool}
	if l.pool == nil && options.TaskPoolSize > 0 {
		pool, err := goroutine.New(options.TaskPoolSize, options.Logger)
		if err != nil {
			options.Logger.Warnf("cannot create a task pool of size %d, using the shared one: %v",
				options.TaskPoolSize, err)
		} else {
			l.pool, l.ownPool = pool, true
		}
	}
	l.def = l.NewComposite(WithLabel("default"))
	l.def.SetAutoPrune(options.AutoPrune)
	return l
}

// Default returns the composite serviced by every pass that uses the default.
func (l *Loop) Default() *Composite {
	return l.def
}

// Registry returns the registry resolving coupling relations between the
// streams of l.
func (l *Loop) Registry() *Registry {
	return l.peers
}

// StreamOptions returns the options tying a stream to l: its registry,
// clock, logger and task pool. Options given after them take precedence.
func (l *Loop) StreamOptions() []StreamOption {
	return []StreamOption{
		WithRegistry(l.peers),
		WithStreamClock(l.opts.Clock),
		WithStreamLogger(l.opts.Logger),
		WithStreamTaskPool(l.pool),
	}
}

func (l *Loop) streamOptions(opts []StreamOption) []StreamOption {
	return append(l.StreamOptions(), opts...)
}

// NewStream creates a stream over t registered in l.
func (l *Loop) NewStream(t Transport, opts ...StreamOption) *Stream {
	return NewStream(t, l.streamOptions(opts)...)
}

// NewComposite creates a composite registered in l.
func (l *Loop) NewComposite(opts ...StreamOption) *Composite {
	return NewComposite(l.streamOptions(opts)...)
}

// NewTicker creates a ticker registered in l.
func (l *Loop) NewTicker(interval time.Duration, opts ...StreamOption) *Ticker {
	return NewTicker(interval, l.streamOptions(opts)...)
}

// Select runs the readiness check over roots and the default composite,
// waiting at most maxWait, forever when negative. It reports whether
// anything is ready.
func (l *Loop) Select(maxWait time.Duration, roots ...Selectable) (bool, error) {
	return l.SelectQuery(Query{MaxWait: maxWait, UseDefault: true}, roots...)
}

// SelectQuery runs the readiness check described by q over roots. It fails
// with errors.ErrIdle instead of blocking forever when nothing can ever
// become ready.
func (l *Loop) SelectQuery(q Query, roots ...Selectable) (bool, error) {
	return l.selectQuery(q, roots, false)
}

func (l *Loop) selectQuery(q Query, roots []Selectable, stopIdle bool) (bool, error) {
	l.ready = l.ready[:0]
	if q.Peers == nil {
		q.Peers = l.peers
	}
	if q.Now.IsZero() {
		q.Now = l.opts.Clock()
	}
	if q.UseDefault && !l.opts.NoDefault {
		roots = append(roots[:len(roots):len(roots)], l.def)
	}

	plan := NewPlan()
	for _, r := range roots {
		if r.IsOK() {
			plan.Merge(r.Prepare(q))
		}
	}

	l.ps.Reset()
	for _, in := range plan.Interests {
		l.ps.Add(in.FD, in.Ops.ioEvent())
	}
	idle := !plan.Ready && plan.Timeout < 0 && l.ps.Len() == 0
	if idle && (stopIdle || q.MaxWait < 0) {
		return false, errorx.ErrIdle
	}

	timeout := plan.Timeout
	if q.MaxWait >= 0 {
		timeout = toolkit.MinTimeout(timeout, q.MaxWait)
	}
	if _, err := l.ps.Wait(timeout); err != nil {
		return false, err
	}

	l.passes++
	q.Now = l.opts.Clock()
	ev := &Events{ps: &l.ps}
	for _, r := range roots {
		if r.IsOK() && r.Collect(q, ev) != 0 {
			l.ready = append(l.ready, r)
		}
	}
	return len(l.ready) > 0, nil
}

// Dispatch calls back the roots found ready by the last Select, or the given
// roots that are ready.
func (l *Loop) Dispatch(roots ...Selectable) {
	if len(roots) == 0 {
		roots = l.ready
	}
	for _, r := range roots {
		if r.IsOK() && r.Ready() != 0 {
			r.Callback()
		}
	}
}

// RunOnce runs one Select and dispatches what it found ready.
func (l *Loop) RunOnce(maxWait time.Duration, roots ...Selectable) (bool, error) {
	ok, err := l.Select(maxWait, roots...)
	if ok {
		l.Dispatch()
	}
	return ok, err
}

// Run repeats passes over roots and the default composite until ctx is done
// or nothing is left that could become ready.
func (l *Loop) Run(ctx context.Context, roots ...Selectable) error {
	if l.opts.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	q := Query{MaxWait: l.opts.MaxWait, UseDefault: true}
	for {
		select {
		case <-ctx.Done():
			l.opts.Logger.Debugf("loop is exiting in terms of the demand from user, %v", ctx.Err())
			return nil
		default:
		}

		q.Now = time.Time{}
		ok, err := l.selectQuery(q, roots, true)
		if errors.Is(err, errorx.ErrIdle) {
			l.opts.Logger.Debugf("loop is exiting after %d passes, nothing left to wait for", l.passes)
			return nil
		}
		if err != nil {
			l.opts.Logger.Errorf("loop is exiting due to error: %v", err)
			return err
		}
		if ok {
			l.Dispatch()
		}
	}
}

// Passes returns the number of completed readiness checks.
func (l *Loop) Passes() uint64 {
	return l.passes
}

// Release releases the default composite with the children it owns and the
// private task pool of l.
func (l *Loop) Release() error {
	err := l.def.Release()
	if l.ownPool {
		l.pool.Release()
	}
	return err
}
