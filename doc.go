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

/*
Package evstream is an event-driven I/O substrate built around one idea: a
Stream is anything that can become ready (a socket, a pipe, a timer, an
in-memory loopback), and any number of streams, arranged as a tree of
Composites, can be serviced by a single readiness check.

A pass of the reactor has two phases. Prepare asks every stream what it is
waiting for: descriptor interest, a deadline, or "already ready" for purely
software conditions such as buffered input or an expired alarm. The Loop
merges the answers, performs one poll(2) bounded by the tightest deadline,
then Collect asks every stream whether it became ready, giving it the chance
to fill its input buffer and flush its output buffer on the way. Ready
streams then have their Callback invoked:

	loop := evstream.NewLoop()
	s := loop.NewStream(transport)
	s.SetCallback(func(s *evstream.Stream, _ any) {
		if line, ok := s.GetLine(0, '\n'); ok {
			s.Write([]byte(line + "\n"))
		}
	}, nil)
	loop.Default().Append(s, true, "echo")
	_ = loop.Run(ctx)

A stream created WithSuspension runs its callback inside a Task, so the
callback may call ContinueSelect (directly or through GetLine with a
timeout) to wait for more input without returning. The Loop keeps servicing
every other stream meanwhile and resumes the callback exactly where it left
off once the stream is ready again. Tasks never run in parallel with the
Loop: control is handed back and forth synchronously.

Errors on a stream are state, not return values: an I/O failure records a
code and a message, closes the stream and makes IsOK report false.
*/
package evstream
