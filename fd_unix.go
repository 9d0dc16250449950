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
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/panjf2000/evstream/internal/socket"
)

// RawFD is a Transport over a non-blocking file descriptor: a socket, a
// pipe or a terminal.
type RawFD struct {
	fd     int
	closed bool
}

// NewFD takes ownership of fd and puts it into non-blocking mode.
func NewFD(fd int) (*RawFD, error) {
	if err := socket.SetNonblock(fd); err != nil {
		return nil, err
	}
	return &RawFD{fd: fd}, nil
}

// RawRead implements Transport.
func (f *RawFD) RawRead(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Read(f.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err != nil:
		return 0, os.NewSyscallError("read", err)
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// RawWrite implements Transport.
func (f *RawFD) RawWrite(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Write(f.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err != nil:
		return 0, os.NewSyscallError("write", err)
	}
	return n, nil
}

// FD implements Transport.
func (f *RawFD) FD() int {
	if f.closed {
		return -1
	}
	return f.fd
}

// CloseWrite shuts the write direction of a socket down. Descriptors that
// are not sockets are left open, their peer sees EOF when they are closed.
func (f *RawFD) CloseWrite() error {
	if err := unix.Shutdown(f.fd, unix.SHUT_WR); err != nil && err != unix.ENOTSOCK {
		return os.NewSyscallError("shutdown", err)
	}
	return nil
}

// Close implements Transport.
func (f *RawFD) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return os.NewSyscallError("close", unix.Close(f.fd))
}
