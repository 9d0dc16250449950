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

import "time"

// Ticker is a stream whose alarm re-arms itself every interval. Its handler
// runs at each tick, with OpTimeout in Ready.
type Ticker struct {
	*Stream
	interval time.Duration
	ticks    uint64
	stopped  bool
}

// NewTicker returns a ticker whose first tick comes after interval.
// A non-positive interval ticks on every pass.
func NewTicker(interval time.Duration, opts ...StreamOption) *Ticker {
	if interval < 0 {
		interval = 0
	}
	t := &Ticker{Stream: NewStream(nil, opts...), interval: interval}
	t.peers.Register(t)
	t.Alarm(interval)
	return t
}

// Interval returns the period of t.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Ticks returns how many times t went off.
func (t *Ticker) Ticks() uint64 {
	return t.ticks
}

// Stop stops t from ticking again.
func (t *Ticker) Stop() {
	t.stopped = true
	t.Alarm(-1)
}

// Reset restarts t with a new interval.
func (t *Ticker) Reset(interval time.Duration) {
	if interval < 0 {
		interval = 0
	}
	t.interval = interval
	t.stopped = false
	t.Alarm(interval)
}

// Callback counts the tick and runs the handler, then schedules the next
// tick one interval after the previous one, or after now when ticks were
// missed.
func (t *Ticker) Callback() {
	if !t.fired {
		t.Stream.Callback()
		return
	}
	t.ticks++
	prev := t.deadline
	t.Stream.Callback()
	if t.stopped || !t.IsOK() || !t.deadline.IsZero() {
		return
	}
	next, now := prev.Add(t.interval), t.clock()
	if next.Before(now) {
		next = now.Add(t.interval)
	}
	t.deadline = next
}
