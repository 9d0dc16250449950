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

// Transport is the unbuffered I/O underneath a Stream. Implementations must
// never block: RawRead returns (0, nil) when nothing is available yet and
// io.EOF at the end of the stream, RawWrite returns how much it could accept
// right now, possibly 0.
type Transport interface {
	RawRead(p []byte) (int, error)
	RawWrite(p []byte) (int, error)
	// FD returns the descriptor to poll, or -1 for transports that live
	// entirely in memory.
	FD() int
	Close() error
}

// HalfCloser is implemented by transports that can shut down their write
// direction alone, such as sockets.
type HalfCloser interface {
	CloseWrite() error
}

// Pender is implemented by in-memory transports to tell whether RawRead
// would return data, or end of stream, right now.
type Pender interface {
	ReadPending() bool
}

// EventSource is implemented by transports whose readiness is the raw state
// of their descriptor rather than buffered bytes, like listening sockets.
// Their streams never fill or flush and report polled events as they are.
type EventSource interface {
	RawEvents()
}
