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

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package evstream

import (
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/panjf2000/evstream/internal/socket"
	errorx "github.com/panjf2000/evstream/pkg/errors"
)

type listenSocket struct {
	fd     int
	closed bool
}

func (l *listenSocket) RawRead([]byte) (int, error)  { return 0, nil }
func (l *listenSocket) RawWrite([]byte) (int, error) { return 0, nil }
func (l *listenSocket) RawEvents()                   {}

func (l *listenSocket) FD() int {
	if l.closed {
		return -1
	}
	return l.fd
}

func (l *listenSocket) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return os.NewSyscallError("close", unix.Close(l.fd))
}

// Listener is a stream over a listening socket. It is ready for reading when
// a connection is waiting to be accepted.
type Listener struct {
	*Stream
	sock *listenSocket
	addr net.Addr
}

// Listen announces on addr, network is one of "tcp", "tcp4", "tcp6" or "unix".
func Listen(network, addr string, opts ...StreamOption) (*Listener, error) {
	fd, netAddr, err := socket.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	sock := &listenSocket{fd: fd}
	ln := &Listener{Stream: NewStream(sock, opts...), sock: sock, addr: netAddr}
	ln.peers.Register(ln)
	return ln, nil
}

// Addr returns the address the listener is bound to.
func (l *Listener) Addr() net.Addr {
	return l.addr
}

// Accept returns a stream over the next pending connection, or nil when
// there is none.
func (l *Listener) Accept(opts ...StreamOption) (*Stream, net.Addr, error) {
	if !l.IsOK() {
		return nil, nil, errorx.ErrClosed
	}
	fd, remote, err := socket.Accept(l.sock.fd)
	if err != nil || fd < 0 {
		return nil, nil, err
	}
	return NewStream(&RawFD{fd: fd}, opts...), remote, nil
}
