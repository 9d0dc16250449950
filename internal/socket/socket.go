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

// Package socket provides the descriptor level socket plumbing of evstream.
package socket

import (
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Listen opens a stream listener on addr and returns its descriptor in
// non-blocking mode. The caller owns the descriptor.
func Listen(network, addr string) (fd int, netAddr net.Addr, err error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return -1, nil, err
	}
	if ul, ok := ln.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}
	defer ln.Close()
	netAddr = ln.Addr()

	sc, ok := ln.(syscall.Conn)
	if !ok {
		return -1, nil, &net.OpError{Op: "listen", Net: network, Addr: netAddr, Err: syscall.EINVAL}
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return -1, nil, err
	}
	var dupErr error
	if err = rc.Control(func(sfd uintptr) {
		fd, dupErr = unix.Dup(int(sfd))
	}); err != nil {
		return -1, nil, err
	}
	if dupErr != nil {
		return -1, nil, os.NewSyscallError("dup", dupErr)
	}
	if err = SetNonblock(fd); err != nil {
		_ = unix.Close(fd)
		return -1, nil, err
	}
	return
}

// Accept accepts the next incoming connection along with setting
// O_NONBLOCK and O_CLOEXEC flags on it. It returns -1 and no error when
// there is no pending connection.
func Accept(fd int) (int, net.Addr, error) {
	nfd, sa, err := unix.Accept(fd)
	switch err {
	case nil:
	case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
		return -1, nil, nil
	default:
		return -1, nil, os.NewSyscallError("accept", err)
	}
	if err = SetNonblock(nfd); err != nil {
		_ = unix.Close(nfd)
		return -1, nil, err
	}
	unix.CloseOnExec(nfd)
	return nfd, SockaddrToTCPOrUnixAddr(sa), nil
}

// SetNonblock puts fd into non-blocking mode and marks it close-on-exec.
func SetNonblock(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return os.NewSyscallError("setnonblock", err)
	}
	unix.CloseOnExec(fd)
	return nil
}
