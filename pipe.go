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
	"io"

	"github.com/panjf2000/evstream/pkg/buffer/ring"
)

type pipeQueue struct {
	buf    ring.Buffer
	cap    int  // 0 means unbounded
	eof    bool // the writing end shut down
	broken bool // the reading end is gone
}

// PipeEnd is one end of an in-memory loopback created by Pipe. It has no
// descriptor: streams over it are ready through pending data alone.
type PipeEnd struct {
	rx, tx *pipeQueue
	closed bool
}

// Pipe returns two connected ends, what is written to one is read from the
// other. Writes are always accepted in full.
func Pipe() (*PipeEnd, *PipeEnd) {
	return NewPipe(0)
}

// NewPipe is Pipe with each direction holding at most capacity bytes, so
// that writers see back pressure. A capacity <= 0 means unbounded.
func NewPipe(capacity int) (*PipeEnd, *PipeEnd) {
	if capacity < 0 {
		capacity = 0
	}
	ab := &pipeQueue{cap: capacity}
	ba := &pipeQueue{cap: capacity}
	return &PipeEnd{rx: ba, tx: ab}, &PipeEnd{rx: ab, tx: ba}
}

// RawRead implements Transport.
func (p *PipeEnd) RawRead(b []byte) (int, error) {
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.rx.buf.IsEmpty() {
		if p.rx.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n, _ := p.rx.buf.Read(b)
	if p.rx.eof && p.rx.buf.IsEmpty() {
		return n, io.EOF
	}
	return n, nil
}

// RawWrite implements Transport.
func (p *PipeEnd) RawWrite(b []byte) (int, error) {
	if p.closed || p.tx.eof || p.tx.broken {
		return 0, io.ErrClosedPipe
	}
	if q := p.tx; q.cap > 0 {
		if room := q.cap - q.buf.Buffered(); len(b) > room {
			b = b[:room]
		}
	}
	return p.tx.buf.Write(b)
}

// FD implements Transport, a pipe end has no descriptor.
func (p *PipeEnd) FD() int {
	return -1
}

// ReadPending reports whether RawRead would return data or the end of stream.
func (p *PipeEnd) ReadPending() bool {
	return !p.closed && (!p.rx.buf.IsEmpty() || p.rx.eof)
}

// CloseWrite makes the other end read io.EOF once it drained what was written.
func (p *PipeEnd) CloseWrite() error {
	p.tx.eof = true
	return nil
}

// Close shuts both directions down. The other end reads io.EOF and gets
// io.ErrClosedPipe on writes.
func (p *PipeEnd) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.tx.eof = true
	p.rx.broken = true
	p.rx.buf.Release()
	return nil
}
