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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorx "github.com/panjf2000/evstream/pkg/errors"
	"github.com/panjf2000/evstream/pkg/logging"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newPipeStreams(opts ...StreamOption) (*Stream, *Stream) {
	a, b := Pipe()
	opts = append([]StreamOption{WithStreamLogger(logging.NewNop())}, opts...)
	return NewStream(a, opts...), NewStream(b, WithStreamLogger(logging.NewNop()))
}

func TestStreamQueueMin(t *testing.T) {
	sa, sb := newPipeStreams(WithQueueMin(4))
	defer sa.Release()
	defer sb.Release()

	require.Equal(t, 3, sb.WriteString("abc"))
	require.Equal(t, 3, sb.Flush())

	p := make([]byte, 8)
	assert.Zero(t, sa.Read(p), "read must wait for the queue minimum")
	assert.Equal(t, 3, sa.InputLen(), "bytes below the queue minimum stay buffered")

	sb.WriteString("d")
	sb.Flush()
	n := sa.Read(p)
	require.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(p[:n]))
	assert.Zero(t, sa.InputLen())
}

func TestStreamQueueMinIgnoredAtEOF(t *testing.T) {
	sa, sb := newPipeStreams(WithQueueMin(10))
	defer sa.Release()

	sb.WriteString("tail")
	sb.NoWrite()
	sb.Flush()
	assert.Zero(t, sb.OutputLen())

	p := make([]byte, 16)
	n := sa.Read(p)
	assert.Equal(t, "tail", string(p[:n]))
	assert.True(t, sa.EOF())
	assert.Zero(t, sa.Read(p))
	assert.Zero(t, sa.Collect(Query{}, nil)&OpRead, "end of stream is reported once")
}

func TestStreamPeekUnread(t *testing.T) {
	s := NewStream(nil)
	s.Unread([]byte("world"))
	s.Unread([]byte("hello "))
	assert.Equal(t, "hello", string(s.Peek(5)))
	assert.Equal(t, "hello world", string(s.Peek(0)))
	assert.Equal(t, 6, s.Discard(6))

	p := make([]byte, 16)
	n := s.Read(p)
	assert.Equal(t, "world", string(p[:n]))
	assert.Nil(t, s.Peek(0))
}

func TestStreamOutputLimit(t *testing.T) {
	a, b := NewPipe(2)
	s := NewStream(a, WithOutputLimit(4))
	peer := NewStream(b)
	defer s.Release()
	defer peer.Release()

	assert.Equal(t, 4, s.WriteString("abcd"))
	assert.False(t, s.writeCondition(), "output at the limit is not writable")

	// The flush moves two bytes into the pipe, which makes room for one more.
	assert.Equal(t, 1, s.WriteString("e"))
	assert.Equal(t, 3, s.OutputLen())
	assert.Zero(t, s.WriteString("xyz"), "writes over the limit are refused whole")
	assert.Equal(t, 3, s.OutputLen())

	assert.Equal(t, "ab", readAll(peer))
	assert.Equal(t, 2, s.Flush())
	assert.Equal(t, "cd", readAll(peer))
	s.SetOutputLimit(0)
	assert.Equal(t, 3, s.WriteString("xyz"))
}

func readAll(s *Stream) string {
	p := make([]byte, 64)
	return string(p[:s.Read(p)])
}

func TestStreamAutoFlush(t *testing.T) {
	sa, sb := newPipeStreams(WithAutoFlush(true))
	defer sa.Release()
	defer sb.Release()

	sa.WriteString("now")
	assert.Zero(t, sa.OutputLen())
	assert.Equal(t, "now", readAll(sb))

	sa.SetAutoFlush(false)
	sa.WriteString("later")
	assert.Equal(t, 5, sa.OutputLen())
	assert.Empty(t, readAll(sb))
}

func TestStreamShutdown(t *testing.T) {
	sa, sb := newPipeStreams()
	defer sb.Release()

	var closes int
	sa.SetCloseCallback(func(*Stream, any) { closes++ })

	sa.NoRead()
	assert.True(t, sa.IsOK())
	sa.WriteString("bye")
	assert.Equal(t, 1, sa.WriteString("x"))
	sa.NoWrite()
	assert.True(t, sa.IsOK(), "pending output keeps the stream open")
	assert.Zero(t, sa.WriteString("more"), "no writes after NoWrite")

	sa.Flush()
	assert.False(t, sa.IsOK(), "both directions stopped and buffers empty")
	assert.Equal(t, 1, closes)
	assert.NoError(t, sa.Close())
	assert.Equal(t, 1, closes, "the close callback runs once")

	assert.Equal(t, "byex", readAll(sb))
	assert.Empty(t, readAll(sb))
	assert.True(t, sb.EOF())
	assert.Zero(t, sb.Collect(Query{}, nil))
}

func TestStreamClosedIsNeverReady(t *testing.T) {
	s := NewStream(nil)
	s.ForceSelect(OpRead | OpWrite)
	s.Alarm(0)
	require.NoError(t, s.Close())
	assert.False(t, s.IsOK())
	assert.False(t, s.Prepare(Query{}).Ready)
	assert.Zero(t, s.Collect(Query{}, nil))
	assert.Zero(t, s.Write([]byte("x")))
	assert.Zero(t, s.Read(make([]byte, 1)))
}

func TestStreamSetError(t *testing.T) {
	s := NewStream(nil)
	assert.NoError(t, s.Err())
	assert.Zero(t, s.ErrCode())

	s.SetError(ProtocolErrorCode, "bad frame")
	assert.False(t, s.IsOK())
	assert.Equal(t, ProtocolErrorCode, s.ErrCode())
	assert.True(t, errors.Is(s.Err(), errorx.ErrProtocol))
	assert.Contains(t, s.Err().Error(), "bad frame")

	var se *StreamError
	require.True(t, errors.As(s.Err(), &se))
	assert.Equal(t, "bad frame", se.Msg)
}

func TestStreamTransportFailure(t *testing.T) {
	sa, sb := newPipeStreams()
	defer sa.Release()

	require.NoError(t, sb.Close())
	sa.WriteString("lost")
	sa.Flush()
	assert.False(t, sa.IsOK())
	assert.Equal(t, ProtocolErrorCode, sa.ErrCode())
	assert.Error(t, sa.Err())
}

func TestStreamForceSelect(t *testing.T) {
	s := NewStream(nil)
	assert.False(t, s.Prepare(Query{}).Ready)

	s.ForceSelect(OpWrite)
	p := s.Prepare(Query{})
	assert.True(t, p.Ready)
	assert.Zero(t, p.Timeout)
	assert.Equal(t, OpWrite, s.Collect(Query{}, nil))

	s.UndoForceSelect(OpWrite)
	assert.False(t, s.Prepare(Query{}).Ready)
	assert.Zero(t, s.Collect(Query{}, nil))
}

func TestStreamWants(t *testing.T) {
	sa, sb := newPipeStreams(WithWants(OpWrite))
	defer sa.Release()
	defer sb.Release()

	assert.Equal(t, OpWrite, sa.Wants())
	assert.Equal(t, OpWrite, sa.Collect(Query{}, nil))

	sb.WriteString("x")
	sb.Flush()
	assert.Equal(t, OpRead|OpWrite, sa.Collect(Query{Wants: OpRead | OpWrite}, nil))

	sa.SetWants(OpRead | OpTimeout)
	assert.Equal(t, OpRead, sa.Wants())
}

func TestStreamCoupling(t *testing.T) {
	reg := NewRegistry()
	sink, sinkPeer := NewPipe(2)
	out := NewStream(sink, WithRegistry(reg), WithOutputLimit(2), WithWants(OpWrite))
	defer NewStream(sinkPeer).Release()

	src, srcPeer := Pipe()
	in := NewStream(src, WithRegistry(reg))
	feeder := NewStream(srcPeer)
	defer feeder.Release()
	defer in.Release()

	in.ReadRequiresWritable(out.ID())
	feeder.WriteString("data")
	feeder.Flush()

	q := Query{}
	assert.Equal(t, OpRead, in.Collect(q, nil), "peer has room")

	out.WriteString("xx")
	assert.Zero(t, in.Collect(q, nil), "peer is full")
	assert.False(t, in.Prepare(q).Ready)

	require.NoError(t, out.Release())
	_, ok := reg.Lookup(out.ID())
	assert.False(t, ok)
	assert.Equal(t, OpRead, in.Collect(q, nil), "a released peer imposes no constraint")
}

func TestStreamWriteRequiresReadable(t *testing.T) {
	reg := NewRegistry()
	a, b := Pipe()
	src := NewStream(a, WithRegistry(reg))
	srcPeer := NewStream(b, WithRegistry(reg))
	c, d := Pipe()
	dst := NewStream(c, WithRegistry(reg), WithWants(OpWrite))
	dstPeer := NewStream(d)
	defer src.Release()
	defer srcPeer.Release()
	defer dst.Release()
	defer dstPeer.Release()

	dst.WriteRequiresReadable(src.ID())
	assert.Zero(t, dst.Collect(Query{}, nil), "source has nothing to read")

	dst.ForceSelect(OpExcept)
	assert.Equal(t, OpExcept, dst.Collect(Query{}, nil), "forced conditions bypass coupling")
	dst.UndoForceSelect(OpExcept)

	srcPeer.WriteString("x")
	srcPeer.Flush()
	assert.Equal(t, OpRead, src.Collect(Query{}, nil))
	assert.Equal(t, OpWrite, dst.Collect(Query{}, nil))
}

func TestStreamCallback(t *testing.T) {
	s := NewStream(nil)
	var got []any
	s.SetCallback(func(s *Stream, ctx any) {
		got = append(got, ctx)
	}, "ctx")
	assert.Equal(t, "ctx", s.Context())

	s.ForceSelect(OpRead)
	s.Collect(Query{}, nil)
	assert.Equal(t, OpRead, s.Ready())
	s.Callback()
	assert.Equal(t, []any{"ctx"}, got)
	assert.Zero(t, s.Ready(), "ready conditions are cleared by the callback")

	require.NoError(t, s.Release())
	s.Callback()
	assert.Len(t, got, 1, "closed streams are not called back")
}

func TestStreamLabel(t *testing.T) {
	s := NewStream(nil, WithLabel("upstream"))
	assert.Equal(t, "upstream", s.Label())
	assert.Equal(t, "upstream", s.String())

	other := NewStream(nil)
	assert.NotEqual(t, s.ID(), other.ID())
	assert.Contains(t, other.Label(), "stream-")
}

func TestStreamGetLineEndsReadiness(t *testing.T) {
	l := newTestLoop()
	sa, sb := newPipeStreams(l.StreamOptions()...)
	defer sa.Release()
	defer sb.Release()

	var calls int
	sa.SetCallback(func(s *Stream, _ any) {
		calls++
		_, ok := s.GetLine(0, '\n')
		assert.False(t, ok)
	}, nil)

	sb.WriteString("partial")
	sb.NoWrite()
	sb.Flush()

	for i := 0; i < 5; i++ {
		_, err := l.RunOnce(0, sa)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls, "the end of stream is reported once")
	assert.True(t, sa.EOF())
	assert.True(t, sa.IsOK(), "the write direction is still open")
	assert.Zero(t, sa.Collect(Query{}, nil))
	assert.False(t, sa.Prepare(Query{}).Ready)
	assert.Equal(t, "partial", string(sa.Peek(0)), "the unterminated tail stays buffered")
}

func TestStreamCouplingWaitsForPeerDrain(t *testing.T) {
	reg := NewRegistry()
	sink, sinkEnd := NewPipe(4)
	out := NewStream(sink, WithRegistry(reg), WithWants(OpWrite))
	drain := NewStream(sinkEnd)
	defer out.Release()
	defer drain.Release()

	src, srcEnd := Pipe()
	in := NewStream(src, WithRegistry(reg))
	feeder := NewStream(srcEnd)
	defer in.Release()
	defer feeder.Release()

	in.ReadRequiresWritable(out.ID())
	feeder.WriteString("data")
	feeder.Flush()

	out.WriteString("more than the pipe holds")
	out.Flush()
	require.NotZero(t, out.OutputLen())
	assert.True(t, out.writeCondition(), "no output limit is set")

	q := Query{}
	assert.False(t, in.Prepare(q).Ready)
	assert.Zero(t, in.Collect(q, nil), "the peer cannot drain its output")

	var got string
	for i := 0; i < 16 && out.OutputLen() > 0; i++ {
		got += readAll(drain)
		out.Flush()
	}
	got += readAll(drain)
	require.Zero(t, out.OutputLen())
	assert.Equal(t, "more than the pipe holds", got)
	assert.Equal(t, OpRead, in.Collect(q, nil), "the peer drained everything")
}
