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

//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package netpoll

import (
	"time"

	errorx "github.com/panjf2000/evstream/pkg/errors"
)

// PollSet only supports pure timeouts on this platform.
type PollSet struct {
	n int
}

// Add records the interest, Wait will then refuse to run.
func (ps *PollSet) Add(fd int, ev IOEvent) {
	if fd >= 0 && ev != 0 {
		ps.n++
	}
}

// Len returns the number of registrations.
func (ps *PollSet) Len() int {
	return ps.n
}

// Wait sleeps for timeout when no descriptor was added.
func (ps *PollSet) Wait(timeout time.Duration) (int, error) {
	if ps.n > 0 {
		return 0, errorx.ErrUnsupportedPlatform
	}
	if timeout < 0 {
		return 0, errorx.ErrIdle
	}
	time.Sleep(timeout)
	return 0, nil
}

// Revents never reports anything on this platform.
func (ps *PollSet) Revents(int) IOEvent {
	return 0
}

// Reset empties the set.
func (ps *PollSet) Reset() {
	ps.n = 0
}
