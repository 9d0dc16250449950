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

import "time"

// Alarm makes s ready with OpTimeout once d has elapsed. A negative d clears
// the alarm and 0 makes s ready on the next pass. Setting an alarm replaces
// the previous one.
func (s *Stream) Alarm(d time.Duration) {
	s.fired = false
	if d < 0 {
		s.deadline = time.Time{}
		return
	}
	s.deadline = s.clock().Add(d)
}

// AlarmMillis is Alarm with a delay in milliseconds.
func (s *Stream) AlarmMillis(ms int) {
	if ms < 0 {
		s.Alarm(-1)
		return
	}
	s.Alarm(time.Duration(ms) * time.Millisecond)
}

// Deadline returns when the alarm goes off, the zero time if none is set.
func (s *Stream) Deadline() time.Time {
	return s.deadline
}

// AlarmFired reports whether the alarm went off during the last pass. It
// stays true until the next Callback of s.
func (s *Stream) AlarmFired() bool {
	return s.fired
}

func (s *Stream) alarmExpired(now time.Time) bool {
	return !s.deadline.IsZero() && !now.Before(s.deadline)
}
