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

// Package ring implements the growable circular byte queue backing the
// input and output sides of a stream.
package ring

import (
	"bytes"
	"errors"
	"io"

	"github.com/panjf2000/evstream/internal/toolkit"
	bbPool "github.com/panjf2000/evstream/pkg/pool/bytebuffer"
	bsPool "github.com/panjf2000/evstream/pkg/pool/byteslice"
)

const (
	// MinRead is the minimum room FillFrom guarantees before handing a slice to the reader.
	MinRead = 512
	// DefaultBufferSize is the first-time allocation on a ring-buffer.
	DefaultBufferSize   = 1024     // 1KB
	bufferGrowThreshold = 4 * 1024 // 4KB
)

// ErrIsEmpty will be returned when trying to read an empty ring-buffer.
var ErrIsEmpty = errors.New("ring-buffer is empty")

// Buffer is a circular byte queue. The zero value is an empty buffer that
// allocates on first write.
type Buffer struct {
	buf     []byte
	size    int
	r       int // next position to read
	w       int // next position to write
	isEmpty bool
}

// New returns a new Buffer whose backing array holds at least size bytes.
func New(size int) *Buffer {
	if size <= 0 {
		return &Buffer{isEmpty: true}
	}
	size = toolkit.CeilToPowerOfTwo(size)
	return &Buffer{buf: bsPool.Get(size), size: size, isEmpty: true}
}

// Peek returns the next n bytes without advancing the read pointer,
// it returns all bytes when n <= 0. The data may come back in two pieces
// when it wraps around the end of the backing array.
func (rb *Buffer) Peek(n int) (head []byte, tail []byte) {
	if rb.IsEmpty() {
		return
	}

	m := rb.Buffered()
	if n <= 0 || n > m {
		n = m
	}

	if rb.r+n <= rb.size {
		head = rb.buf[rb.r : rb.r+n]
		return
	}
	head = rb.buf[rb.r:]
	tail = rb.buf[:n-(rb.size-rb.r)]
	return
}

// IndexByte returns the offset from the read pointer of the first c in the
// buffered data, or -1.
func (rb *Buffer) IndexByte(c byte) int {
	head, tail := rb.Peek(0)
	if i := bytes.IndexByte(head, c); i >= 0 {
		return i
	}
	if i := bytes.IndexByte(tail, c); i >= 0 {
		return len(head) + i
	}
	return -1
}

// Discard skips the next n bytes by advancing the read pointer.
func (rb *Buffer) Discard(n int) (discarded int, err error) {
	if n <= 0 {
		return 0, nil
	}

	discarded = rb.Buffered()
	if n < discarded {
		rb.r = (rb.r + n) % rb.size
		return n, nil
	}
	rb.Reset()
	return
}

// Read reads up to len(p) bytes into p.
func (rb *Buffer) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if rb.IsEmpty() {
		return 0, ErrIsEmpty
	}

	head, tail := rb.Peek(len(p))
	n = copy(p, head)
	n += copy(p[n:], tail)
	_, _ = rb.Discard(n)
	return
}

// ReadByte reads and returns the next byte from the input or ErrIsEmpty.
func (rb *Buffer) ReadByte() (b byte, err error) {
	if rb.IsEmpty() {
		return 0, ErrIsEmpty
	}
	b = rb.buf[rb.r]
	_, _ = rb.Discard(1)
	return
}

// Write appends p, growing the backing array when needed. It never writes
// short.
func (rb *Buffer) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}

	if free := rb.Available(); n > free {
		rb.grow(rb.Buffered() + n)
	}

	c := copy(rb.buf[rb.w:], p)
	if c < n {
		copy(rb.buf, p[c:])
	}
	rb.w = (rb.w + n) % rb.size
	rb.isEmpty = false
	return
}

// WriteString appends the contents of s.
func (rb *Buffer) WriteString(s string) (int, error) {
	return rb.Write(toolkit.StringToBytes(s))
}

// Unread puts p back in front of the buffered data, so that the next read
// returns p first.
func (rb *Buffer) Unread(p []byte) {
	n := len(p)
	if n == 0 {
		return
	}
	if free := rb.Available(); n > free {
		rb.grow(rb.Buffered() + n)
	}

	rb.r = (rb.r - n + rb.size) % rb.size
	c := copy(rb.buf[rb.r:], p)
	if c < n {
		copy(rb.buf, p[c:])
	}
	rb.isEmpty = false
}

// FillFrom calls read once with the largest contiguous free region of the
// buffer, making sure at least MinRead bytes are available first.
func (rb *Buffer) FillFrom(read func([]byte) (int, error)) (n int, err error) {
	if rb.Available() < MinRead {
		rb.grow(rb.Buffered() + MinRead)
	}

	var free []byte
	if rb.w >= rb.r || rb.IsEmpty() {
		if rb.IsEmpty() {
			rb.r, rb.w = 0, 0
		}
		free = rb.buf[rb.w:]
	} else {
		free = rb.buf[rb.w:rb.r]
	}

	n, err = read(free)
	if n < 0 || n > len(free) {
		panic("ring: reader returned an invalid count")
	}
	if n > 0 {
		rb.w = (rb.w + n) % rb.size
		rb.isEmpty = false
	}
	return
}

// DrainTo hands the buffered data to write in at most two contiguous pieces,
// discarding whatever write accepts. It stops at the first short write or error.
func (rb *Buffer) DrainTo(write func([]byte) (int, error)) (n int, err error) {
	for !rb.IsEmpty() {
		head, _ := rb.Peek(0)
		var m int
		m, err = write(head)
		if m < 0 || m > len(head) {
			panic("ring: writer returned an invalid count")
		}
		_, _ = rb.Discard(m)
		n += m
		if err != nil || m < len(head) {
			return
		}
	}
	return
}

// Buffered returns the length of available bytes to read.
func (rb *Buffer) Buffered() int {
	if rb.r == rb.w {
		if rb.IsEmpty() {
			return 0
		}
		return rb.size
	}
	if rb.w > rb.r {
		return rb.w - rb.r
	}
	return rb.size - rb.r + rb.w
}

// Cap returns the size of the underlying buffer.
func (rb *Buffer) Cap() int {
	return rb.size
}

// Available returns the length of available bytes to write without growing.
func (rb *Buffer) Available() int {
	return rb.size - rb.Buffered()
}

// Bytes returns a copy of all buffered bytes without moving the read pointer.
func (rb *Buffer) Bytes() []byte {
	head, tail := rb.Peek(0)
	if len(head) == 0 {
		return nil
	}
	bb := make([]byte, 0, len(head)+len(tail))
	bb = append(bb, head...)
	return append(bb, tail...)
}

// ByteBuffer copies the next n buffered bytes, all of them when n <= 0, into a
// pooled byte buffer without moving the read pointer. The caller puts it back
// with bytebuffer.Put.
func (rb *Buffer) ByteBuffer(n int) *bbPool.ByteBuffer {
	head, tail := rb.Peek(n)
	bb := bbPool.Get()
	_, _ = bb.Write(head)
	_, _ = bb.Write(tail)
	return bb
}

// WriteTo implements io.WriterTo.
func (rb *Buffer) WriteTo(w io.Writer) (int64, error) {
	if rb.IsEmpty() {
		return 0, ErrIsEmpty
	}
	n, err := rb.DrainTo(w.Write)
	if err == nil && !rb.IsEmpty() {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// IsEmpty tells if this ring-buffer is empty.
func (rb *Buffer) IsEmpty() bool {
	return rb.isEmpty || rb.size == 0
}

// IsFull tells if this ring-buffer is full.
func (rb *Buffer) IsFull() bool {
	return rb.size > 0 && rb.r == rb.w && !rb.isEmpty
}

// Reset the read pointer and write pointer to zero.
func (rb *Buffer) Reset() {
	rb.isEmpty = true
	rb.r, rb.w = 0, 0
}

// Release returns the backing array to the pool and leaves an empty buffer.
func (rb *Buffer) Release() {
	if rb.buf != nil {
		bsPool.Put(rb.buf)
	}
	rb.buf, rb.size = nil, 0
	rb.Reset()
}

func (rb *Buffer) grow(newCap int) {
	if n := rb.size; n == 0 {
		if newCap <= DefaultBufferSize {
			newCap = DefaultBufferSize
		}
	} else {
		doubleCap := n + n
		if newCap <= doubleCap {
			if n < bufferGrowThreshold {
				newCap = doubleCap
			} else {
				// Check 0 < n to detect overflow and prevent an infinite loop.
				for 0 < n && n < newCap {
					n += n / 4
				}
				if n > 0 {
					newCap = n
				}
			}
		}
	}
	newCap = toolkit.CeilToPowerOfTwo(newCap)

	newBuf := bsPool.Get(newCap)
	oldLen := rb.Buffered()
	head, tail := rb.Peek(0)
	copy(newBuf, head)
	copy(newBuf[len(head):], tail)
	if rb.buf != nil {
		bsPool.Put(rb.buf)
	}
	rb.buf = newBuf
	rb.size = newCap
	rb.r = 0
	rb.w = oldLen % newCap
	rb.isEmpty = oldLen == 0
}
