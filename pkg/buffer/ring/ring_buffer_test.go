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

package ring

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bbPool "github.com/panjf2000/evstream/pkg/pool/bytebuffer"
)

func TestRingBuffer_ZeroValue(t *testing.T) {
	var rb Buffer
	assert.True(t, rb.IsEmpty())
	assert.EqualValues(t, 0, rb.Buffered())
	_, err := rb.ReadByte()
	assert.ErrorIs(t, err, ErrIsEmpty)

	n, _ := rb.WriteString("abc")
	assert.EqualValues(t, 3, n)
	assert.EqualValues(t, 3, rb.Buffered())
	assert.EqualValues(t, DefaultBufferSize, rb.Cap())
	assert.Equal(t, []byte("abc"), rb.Bytes())
}

func TestRingBuffer_WriteWrapAndGrow(t *testing.T) {
	rb := New(64)
	assert.EqualValues(t, 64, rb.Cap())

	data := []byte(strings.Repeat("abcd", 12))
	n, _ := rb.Write(data)
	assert.EqualValues(t, 48, n)

	buf := make([]byte, 40)
	n, _ = rb.Read(buf)
	assert.EqualValues(t, 40, n)
	assert.EqualValues(t, 8, rb.Buffered())

	// wraps around the end of the backing array.
	n, _ = rb.Write([]byte(strings.Repeat("wxyz", 10)))
	assert.EqualValues(t, 40, n)
	assert.EqualValues(t, 48, rb.Buffered())
	head, tail := rb.Peek(0)
	assert.NotEmpty(t, tail)
	assert.Equal(t, "abcdabcd"+strings.Repeat("wxyz", 10), string(head)+string(tail))

	// grows while wrapped and keeps the order.
	n, _ = rb.Write([]byte(strings.Repeat("1", 30)))
	assert.EqualValues(t, 30, n)
	assert.EqualValues(t, 128, rb.Cap())
	assert.Equal(t, "abcdabcd"+strings.Repeat("wxyz", 10)+strings.Repeat("1", 30), string(rb.Bytes()))
	rb.Release()
	assert.True(t, rb.IsEmpty())
	assert.EqualValues(t, 0, rb.Cap())
}

func TestRingBuffer_IndexByte(t *testing.T) {
	rb := New(16)
	_, _ = rb.WriteString("0123456789ab")
	_, _ = rb.Discard(10)
	_, _ = rb.WriteString("cd\nef")
	head, tail := rb.Peek(0)
	require.NotEmpty(t, tail, "data is expected to wrap")
	assert.Equal(t, "ab"+"cd\nef", string(head)+string(tail))
	assert.Equal(t, 4, rb.IndexByte('\n'))
	assert.Equal(t, -1, rb.IndexByte('z'))
	assert.Equal(t, 0, rb.IndexByte('a'))
}

func TestRingBuffer_Unread(t *testing.T) {
	rb := New(8)
	_, _ = rb.WriteString("world")
	rb.Unread([]byte("hello "))
	assert.Equal(t, "hello world", string(rb.Bytes()))

	var empty Buffer
	empty.Unread([]byte("x"))
	b, err := empty.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('x'), b)
	assert.True(t, empty.IsEmpty())
}

func TestRingBuffer_FillFromAndDrainTo(t *testing.T) {
	src := make([]byte, 5000)
	rand.Read(src)
	r := bytes.NewReader(src)

	rb := New(0)
	for {
		n, err := rb.FillFrom(r.Read)
		if errors.Is(err, io.EOF) {
			assert.Zero(t, n)
			break
		}
		require.NoError(t, err)
	}
	assert.EqualValues(t, len(src), rb.Buffered())

	var out bytes.Buffer
	limited := func(p []byte) (int, error) {
		if len(p) > 700 {
			p = p[:700]
		}
		return out.Write(p)
	}
	for !rb.IsEmpty() {
		_, err := rb.DrainTo(limited)
		require.NoError(t, err)
	}
	assert.Equal(t, src, out.Bytes())
}

func TestRingBuffer_WriteTo(t *testing.T) {
	rb := New(32)
	_, err := rb.WriteTo(io.Discard)
	assert.ErrorIs(t, err, ErrIsEmpty)

	_, _ = rb.WriteString("payload")
	var out bytes.Buffer
	n, err := rb.WriteTo(&out)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, "payload", out.String())
}

func TestRingBuffer_ByteBuffer(t *testing.T) {
	rb := New(8)
	_, _ = rb.WriteString("abcdef")
	_, _ = rb.Discard(4)
	_, _ = rb.WriteString("ghij")
	bb := rb.ByteBuffer(0)
	defer bbPool.Put(bb)
	assert.Equal(t, "efghij", bb.String())
	assert.EqualValues(t, 6, rb.Buffered())

	bb2 := rb.ByteBuffer(3)
	defer bbPool.Put(bb2)
	assert.Equal(t, "efg", bb2.String())
}
