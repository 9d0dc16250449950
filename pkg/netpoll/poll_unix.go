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

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package netpoll

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/panjf2000/evstream/internal/toolkit"
)

const (
	readEvents  = unix.POLLIN | unix.POLLPRI
	writeEvents = unix.POLLOUT
	errEvents   = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL
)

// PollSet is the interest set of one readiness pass. The zero value is ready
// to use and its storage is reused across Reset calls.
type PollSet struct {
	fds   []unix.PollFd
	index map[int]int
}

// Add registers interest in ev on fd, merging with earlier registrations of
// the same fd. EventErr alone still adds fd, since error conditions are
// reported without being asked for.
func (ps *PollSet) Add(fd int, ev IOEvent) {
	if fd < 0 || ev == 0 {
		return
	}
	if ps.index == nil {
		ps.index = make(map[int]int)
	}
	var events int16
	if IsReadEvent(ev) {
		events |= readEvents
	}
	if IsWriteEvent(ev) {
		events |= writeEvents
	}
	if i, ok := ps.index[fd]; ok {
		ps.fds[i].Events |= events
		return
	}
	ps.index[fd] = len(ps.fds)
	ps.fds = append(ps.fds, unix.PollFd{Fd: int32(fd), Events: events})
}

// Len returns the number of distinct descriptors in the set.
func (ps *PollSet) Len() int {
	return len(ps.fds)
}

// Wait blocks until at least one descriptor is ready or timeout elapses; a
// negative timeout blocks indefinitely. Interrupted calls are retried with
// the remaining time.
func (ps *PollSet) Wait(timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		n, err := unix.Poll(ps.fds, toolkit.Millis(timeout))
		if err == unix.EINTR {
			if timeout > 0 {
				if timeout = time.Until(deadline); timeout < 0 {
					timeout = 0
				}
			}
			continue
		}
		if err != nil {
			return n, os.NewSyscallError("poll", err)
		}
		return n, nil
	}
}

// Revents returns what happened to fd during the last Wait.
func (ps *PollSet) Revents(fd int) (ev IOEvent) {
	i, ok := ps.index[fd]
	if !ok {
		return
	}
	re := ps.fds[i].Revents
	if re&readEvents != 0 {
		ev |= EventRead
	}
	if re&writeEvents != 0 {
		ev |= EventWrite
	}
	if re&errEvents != 0 {
		ev |= EventErr
	}
	return
}

// Reset empties the set, keeping its storage.
func (ps *PollSet) Reset() {
	ps.fds = ps.fds[:0]
	for fd := range ps.index {
		delete(ps.index, fd)
	}
}
