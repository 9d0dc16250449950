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

	"github.com/panjf2000/evstream/internal/toolkit"
	"github.com/panjf2000/evstream/pkg/netpoll"
	"github.com/panjf2000/evstream/pkg/pool/bytebuffer"
)

// Read moves buffered input into p after trying to read more from the
// transport. It returns 0 without consuming anything while fewer than the
// queue minimum bytes are buffered, unless the end of stream was reached.
// Once the input is drained at the end of stream, Read stops reading for good.
func (s *Stream) Read(p []byte) int {
	if s.closed || s.stopRead {
		return 0
	}
	s.fill()
	if s.in.IsEmpty() {
		if s.eof {
			s.eofSeen = true
			s.stopRead = true
			s.checkShutdown()
		}
		return 0
	}
	if !s.eof && s.in.Buffered() < s.queueMin {
		return 0
	}
	n, _ := s.in.Read(p)
	return n
}

// Write queues p for output and returns len(p), or 0 when nothing was queued
// because s is closed, shut for writing or over its output limit.
func (s *Stream) Write(p []byte) int {
	if s.closed || s.stopWrite {
		return 0
	}
	if s.outLimit > 0 && s.out.Buffered()+len(p) > s.outLimit {
		s.flush()
		if s.closed || s.out.Buffered()+len(p) > s.outLimit {
			return 0
		}
	}
	_, _ = s.out.Write(p)
	if s.autoFlush {
		s.flush()
	}
	return len(p)
}

// WriteString is Write for strings.
func (s *Stream) WriteString(str string) int {
	return s.Write(toolkit.StringToBytes(str))
}

// Flush hands as much queued output as possible to the transport and
// returns how many bytes it took.
func (s *Stream) Flush() int {
	n := s.flush()
	s.checkShutdown()
	return n
}

// GetLine returns the next record terminated by sep, without sep. A zero
// timeout only looks at what is available now and a negative one waits as
// long as it takes. Inside the handler of a suspension-enabled stream the
// wait suspends the handler, otherwise it polls the descriptor of s alone.
// It reports false on timeout and at the end of stream, where it stops
// reading like Read does; an unterminated tail stays buffered.
func (s *Stream) GetLine(timeout time.Duration, sep byte) (string, bool) {
	s.queueMin = 0
	var deadline time.Time
	if timeout > 0 {
		deadline = s.clock().Add(timeout)
	}
	for {
		if !s.stopRead {
			s.fill()
		}
		if i := s.in.IndexByte(sep); i >= 0 {
			bb := s.in.ByteBuffer(i)
			line := bb.String()
			bytebuffer.Put(bb)
			_, _ = s.in.Discard(i + 1)
			return line, true
		}
		if s.eof && !s.closed && !s.stopRead {
			// No more records can arrive: the stream stops being readable.
			s.eofSeen = true
			s.stopRead = true
			s.checkShutdown()
		}
		if s.closed || s.stopRead || timeout == 0 {
			return "", false
		}
		wait := time.Duration(-1)
		if timeout > 0 {
			if wait = deadline.Sub(s.clock()); wait <= 0 {
				return "", false
			}
		}
		if s.inTask() {
			s.awaitInput(wait)
		} else if !s.waitReadable(wait) && s.fd() < 0 {
			return "", false
		}
	}
}

// awaitInput suspends the running handler until more input than what is
// buffered now arrives, or wait elapses.
func (s *Stream) awaitInput(wait time.Duration) {
	queueMin, wants := s.queueMin, s.wants
	s.queueMin = s.in.Buffered() + 1
	s.wants |= OpRead
	s.ContinueSelect(wait)
	s.queueMin, s.wants = queueMin, wants
}

// waitReadable blocks on the descriptor of s alone. Descriptor-less
// transports cannot receive anything while the loop is blocked here, so for
// them it only reports whether input is pending.
func (s *Stream) waitReadable(wait time.Duration) bool {
	fd := s.fd()
	if fd < 0 {
		return s.readPending()
	}
	if s.ps == nil {
		s.ps = new(netpoll.PollSet)
	}
	s.ps.Reset()
	s.ps.Add(fd, netpoll.EventRead)
	n, err := s.ps.Wait(wait)
	if err != nil {
		s.fail(err)
		return false
	}
	return n > 0
}

// Peek returns a copy of the next n buffered input bytes, all of them when
// n <= 0, without consuming them.
func (s *Stream) Peek(n int) []byte {
	head, tail := s.in.Peek(n)
	if len(head) == 0 {
		return nil
	}
	p := make([]byte, 0, len(head)+len(tail))
	p = append(p, head...)
	return append(p, tail...)
}

// Unread pushes p back in front of the buffered input.
func (s *Stream) Unread(p []byte) {
	s.in.Unread(p)
}

// Discard drops the next n buffered input bytes.
func (s *Stream) Discard(n int) int {
	n, _ = s.in.Discard(n)
	return n
}

// InputLen returns the number of buffered input bytes.
func (s *Stream) InputLen() int {
	return s.in.Buffered()
}

// OutputLen returns the number of queued output bytes.
func (s *Stream) OutputLen() int {
	return s.out.Buffered()
}

// SetQueueMin sets how many bytes must be buffered before Read returns any.
func (s *Stream) SetQueueMin(n int) {
	if n < 0 {
		n = 0
	}
	s.queueMin = n
}

// SetOutputLimit sets the ceiling of queued output, 0 removes it.
func (s *Stream) SetOutputLimit(n int) {
	if n < 0 {
		n = 0
	}
	s.outLimit = n
}

// SetAutoFlush makes every Write try to flush right away.
func (s *Stream) SetAutoFlush(on bool) {
	s.autoFlush = on
}

// EOF reports whether the transport reached the end of stream. Buffered
// input may still be left to read.
func (s *Stream) EOF() bool {
	return s.eof
}
