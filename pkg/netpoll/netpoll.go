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

/*
Package netpoll performs the single blocking readiness check of an evstream
pass.

Unlike a persistent epoll/kqueue registration, the interest set is rebuilt on
every pass from what the streams declare in their prepare phase, so the
backend is poll(2): a PollSet collects (descriptor, events) pairs, Wait
blocks until one of them is ready or the timeout expires, and Revents
reports what happened to a descriptor:

	var ps netpoll.PollSet
	ps.Add(fd, netpoll.EventRead)
	n, err := ps.Wait(40 * time.Millisecond)
	if err != nil {
		// handle error
	}
	if n > 0 && netpoll.IsReadEvent(ps.Revents(fd)) {
		// fd is readable
	}
	ps.Reset()

A PollSet with no descriptors still honours the timeout, which is how a pass
made of timers and in-memory streams sleeps until its next deadline.
*/
package netpoll

import "time"

// IOEvent is the platform neutral set of events a descriptor is polled for.
type IOEvent uint16

const (
	// EventRead asks for (and reports) readability, including urgent data.
	EventRead IOEvent = 1 << iota
	// EventWrite asks for (and reports) writability.
	EventWrite
	// EventErr reports error, hang-up or invalid descriptor conditions. It is
	// always reported, whether asked for or not.
	EventErr
)

// IsReadEvent checks if the event is a read event.
func IsReadEvent(ev IOEvent) bool {
	return ev&EventRead != 0
}

// IsWriteEvent checks if the event is a write event.
func IsWriteEvent(ev IOEvent) bool {
	return ev&EventWrite != 0
}

// IsErrorEvent checks if the event is an error event.
func IsErrorEvent(ev IOEvent) bool {
	return ev&EventErr != 0
}

// String renders the set in a compact form for logs, e.g. "rw-".
func (ev IOEvent) String() string {
	b := []byte("---")
	if IsReadEvent(ev) {
		b[0] = 'r'
	}
	if IsWriteEvent(ev) {
		b[1] = 'w'
	}
	if IsErrorEvent(ev) {
		b[2] = 'e'
	}
	return string(b)
}

// Timeout values passed to Wait.
const (
	// Block waits until a descriptor becomes ready.
	Block time.Duration = -1
	// NoWait only checks the current state.
	NoWait time.Duration = 0
)
