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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorx "github.com/panjf2000/evstream/pkg/errors"
	"github.com/panjf2000/evstream/pkg/logging"
)

func newTestLoop(opts ...Option) *Loop {
	return NewLoop(append([]Option{WithoutDefault(), WithLogger(logging.NewNop())}, opts...)...)
}

func TestSuspensionGetLine(t *testing.T) {
	l := newTestLoop()
	a, b := Pipe()
	s := l.NewStream(a, WithSuspension())
	peer := l.NewStream(b)
	defer s.Release()

	var lines []string
	var finished bool
	s.SetCallback(func(s *Stream, _ any) {
		for {
			line, ok := s.GetLine(-1, '\n')
			if !ok {
				finished = true
				return
			}
			lines = append(lines, line)
		}
	}, nil)

	peer.WriteString("hel")
	peer.Flush()
	ok, err := l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, lines)
	assert.True(t, s.Suspended(), "the handler waits for the rest of the line")

	ok, err = l.RunOnce(0, s)
	require.NoError(t, err)
	assert.False(t, ok, "a partial line does not make the stream ready again")

	peer.WriteString("lo\nwor")
	peer.Flush()
	ok, err = l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"hello"}, lines)
	assert.True(t, s.Suspended())
	assert.Equal(t, 3, s.InputLen())

	peer.NoWrite()
	ok, err = l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, finished, "the end of stream ends the wait")
	assert.False(t, s.Suspended())
	assert.Equal(t, []string{"hello"}, lines)
}

func TestGetLineWithoutSuspension(t *testing.T) {
	sa, sb := newPipeStreams()
	defer sa.Release()
	defer sb.Release()

	line, ok := sa.GetLine(0, '\n')
	assert.False(t, ok)
	assert.Empty(t, line)

	sb.WriteString("hello\nworld")
	sb.Flush()
	line, ok = sa.GetLine(0, '\n')
	assert.True(t, ok)
	assert.Equal(t, "hello", line)

	line, ok = sa.GetLine(time.Second, '\n')
	assert.False(t, ok, "nothing more can arrive on a pipe while we wait")
	assert.Empty(t, line)
	assert.Equal(t, "world", string(sa.Peek(0)))

	sb.WriteString(";")
	sb.Flush()
	line, ok = sa.GetLine(-1, ';')
	assert.True(t, ok)
	assert.Equal(t, "world", line)
}

func TestContinueSelectTimeout(t *testing.T) {
	l := newTestLoop()
	s := l.NewStream(nil, WithSuspension())
	defer s.Release()

	var results []bool
	s.SetCallback(func(s *Stream, _ any) {
		s.UndoForceSelect(OpWrite)
		results = append(results, s.ContinueSelect(10*time.Millisecond))
	}, nil)
	s.ForceSelect(OpWrite)

	_, err := l.RunOnce(-1, s)
	require.NoError(t, err)
	require.True(t, s.Suspended())

	for i := 0; i < 100 && len(results) == 0; i++ {
		_, err = l.RunOnce(-1, s)
		require.NoError(t, err)
	}
	assert.Equal(t, []bool{false}, results, "resumed by the alarm only")
	assert.True(t, s.Deadline().IsZero())
	assert.False(t, s.Suspended())
}

func TestContinueSelectReady(t *testing.T) {
	l := newTestLoop()
	a, b := Pipe()
	s := l.NewStream(a, WithSuspension())
	peer := l.NewStream(b)
	defer s.Release()
	defer peer.Release()

	var results []bool
	s.SetCallback(func(s *Stream, _ any) {
		s.UndoForceSelect(OpWrite)
		results = append(results, s.ContinueSelect(time.Hour))
	}, nil)
	s.ForceSelect(OpWrite)

	_, err := l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, s.Suspended())
	assert.False(t, s.Deadline().IsZero())

	peer.WriteString("x")
	peer.Flush()
	ok, err := l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []bool{true}, results)
	assert.True(t, s.Deadline().IsZero(), "the alarm set by ContinueSelect is cleared")
}

func TestContinueSelectOutsideTask(t *testing.T) {
	s := NewStream(nil)
	assert.PanicsWithValue(t, errorx.ErrNotSuspendable, func() { s.ContinueSelect(0) })

	s.EnableSuspension()
	assert.True(t, s.Suspendable())
	assert.PanicsWithValue(t, errorx.ErrNotSuspendable, func() { s.ContinueSelect(0) },
		"only the stream's own running handler may suspend")
}

func TestTerminateSuspension(t *testing.T) {
	l := newTestLoop()
	s := l.NewStream(nil, WithSuspension())

	var unwound bool
	s.SetCallback(func(s *Stream, _ any) {
		defer func() { unwound = true }()
		s.UndoForceSelect(OpRead)
		s.ContinueSelect(-1)
		t.Error("a terminated handler must not resume")
	}, nil)
	s.ForceSelect(OpRead)

	_, err := l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, s.Suspended())

	require.NoError(t, s.TerminateSuspension())
	assert.True(t, unwound)
	assert.False(t, s.Suspended())
	assert.True(t, s.IsOK(), "terminating the task leaves the stream open")
	require.NoError(t, s.Release())
}

func TestCloseTerminatesSuspension(t *testing.T) {
	l := newTestLoop()
	s := l.NewStream(nil, WithSuspension())

	var unwound bool
	s.SetCallback(func(s *Stream, _ any) {
		defer func() { unwound = true }()
		s.UndoForceSelect(OpRead)
		s.ContinueSelect(-1)
	}, nil)
	s.ForceSelect(OpRead)

	_, err := l.RunOnce(0, s)
	require.NoError(t, err)
	require.True(t, s.Suspended())

	require.NoError(t, s.Release())
	assert.True(t, unwound)
	assert.False(t, s.IsOK())
}

func TestSuspendedHandlerPanic(t *testing.T) {
	l := newTestLoop()
	s := l.NewStream(nil, WithSuspension())
	defer s.Release()

	s.SetCallback(func(s *Stream, _ any) {
		s.ContinueSelect(0)
		panic("handler failure")
	}, nil)
	s.ForceSelect(OpRead)

	_, err := l.RunOnce(0, s)
	require.NoError(t, err)
	assert.PanicsWithValue(t, "handler failure", func() { _, _ = l.RunOnce(0, s) },
		"a panic inside a task reaches the loop")
}

func TestContinueSelectRoundTrip(t *testing.T) {
	l := newTestLoop()
	s := l.NewStream(nil, WithSuspension())
	defer s.Release()

	var (
		counts  []int
		resumes []bool
	)
	s.SetCallback(func(s *Stream, _ any) {
		count := 0
		seen := []int{}
		for {
			count++
			seen = append(seen, count)
			counts = append([]int(nil), seen...)
			resumes = append(resumes, s.ContinueSelect(0))
		}
	}, nil)
	s.Alarm(0)

	const passes = 6
	for k := 1; k <= passes; k++ {
		ok, err := l.RunOnce(0, s)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, counts, k, "pass %d", k)
		assert.Equal(t, k, counts[k-1])
		assert.True(t, s.Suspended())
	}
	for i := 1; i <= passes; i++ {
		assert.Equal(t, i, counts[i-1], "locals survive every suspension")
	}
	assert.Len(t, resumes, passes-1)
	for _, r := range resumes {
		assert.False(t, r, "only the alarm resumed the handler")
	}
	assert.NoError(t, s.TerminateSuspension())
	assert.False(t, s.Suspended())
}
