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
)

func TestTicker(t *testing.T) {
	clk := newFakeClock()
	tk := NewTicker(time.Second, WithStreamClock(clk.Now))
	var ticks []uint64
	tk.SetCallback(func(*Stream, any) { ticks = append(ticks, tk.Ticks()) }, nil)
	assert.Equal(t, time.Second, tk.Interval())
	start := clk.Now()

	assert.Equal(t, time.Second, tk.Prepare(Query{}).Timeout)
	clk.Advance(time.Second)
	assert.Equal(t, OpTimeout, tk.Collect(Query{}, nil))
	tk.Callback()
	assert.Equal(t, []uint64{1}, ticks)
	assert.Equal(t, start.Add(2*time.Second), tk.Deadline(), "ticks keep their phase")

	clk.Advance(5 * time.Second)
	tk.Collect(Query{}, nil)
	tk.Callback()
	assert.Equal(t, []uint64{1, 2}, ticks)
	assert.Equal(t, clk.Now().Add(time.Second), tk.Deadline(), "missed ticks are not replayed")

	// Callbacks without a tick leave the schedule alone.
	tk.ForceSelect(OpRead)
	tk.Collect(Query{}, nil)
	tk.Callback()
	tk.UndoForceSelect(OpRead)
	assert.Equal(t, uint64(2), tk.Ticks())
	assert.Equal(t, clk.Now().Add(time.Second), tk.Deadline())

	tk.Stop()
	assert.True(t, tk.Deadline().IsZero())
	clk.Advance(time.Hour)
	assert.Zero(t, tk.Collect(Query{}, nil))

	tk.Reset(time.Minute)
	assert.Equal(t, clk.Now().Add(time.Minute), tk.Deadline())
}

func TestTickerHandlerRearms(t *testing.T) {
	clk := newFakeClock()
	tk := NewTicker(time.Second, WithStreamClock(clk.Now))
	tk.SetCallback(func(s *Stream, _ any) { s.Alarm(10 * time.Second) }, nil)

	clk.Advance(time.Second)
	tk.Collect(Query{}, nil)
	tk.Callback()
	assert.Equal(t, clk.Now().Add(10*time.Second), tk.Deadline(), "an alarm set by the handler wins")
}
