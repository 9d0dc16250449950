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

// Command evstream runs small servers on top of the evstream loop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/panjf2000/evstream"
	"github.com/panjf2000/evstream/pkg/logging"
)

type echoFlags struct {
	Addr     string
	Network  string
	Timeout  time.Duration
	LogFile  string
	LogLevel string
}

func main() {
	command := &cobra.Command{
		Use:   "evstream",
		Short: "event-driven stream toolkit",
	}
	command.AddCommand(newEchoCommand())

	if err := command.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newEchoCommand() *cobra.Command {
	f := new(echoFlags)
	command := &cobra.Command{
		Use:   "echo",
		Short: "line echo server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEcho(ctx, f)
		},
	}
	command.Flags().StringVarP(&f.Addr, "addr", "a", "127.0.0.1:7000", "Set the listening address.")
	command.Flags().StringVarP(&f.Network, "network", "n", "tcp", "Set the network: tcp, tcp4, tcp6 or unix.")
	command.Flags().DurationVarP(&f.Timeout, "timeout", "t", 30*time.Second, "Close connections idle for this long, 0 disables.")
	command.Flags().StringVar(&f.LogFile, "log-file", "", "Write logs to a rotated file instead of stdout.")
	command.Flags().StringVar(&f.LogLevel, "log-level", "info", "Set the level of the log file.")
	return command
}

func runEcho(ctx context.Context, f *echoFlags) error {
	logger := logging.GetDefaultLogger()
	if f.LogFile != "" {
		level, err := logging.ParseLevel(f.LogLevel)
		if err != nil {
			return err
		}
		var flush logging.Flusher
		if logger, flush, err = logging.CreateLoggerAsLocalFile(f.LogFile, level); err != nil {
			return err
		}
		defer flush() //nolint:errcheck
	}

	loop := evstream.NewLoop(
		evstream.WithLogger(logger),
		evstream.WithAutoPrune(true),
	)
	defer loop.Release()

	ln, err := evstream.Listen(f.Network, f.Addr, append(loop.StreamOptions(), evstream.WithLabel("listener"))...)
	if err != nil {
		return err
	}
	ln.SetCallback(func(*evstream.Stream, any) {
		for {
			conn, remote, err := ln.Accept(append(loop.StreamOptions(),
				evstream.WithSuspension(),
				evstream.WithAutoFlush(true))...)
			if err != nil {
				logger.Errorf("accept: %v", err)
				return
			}
			if conn == nil {
				return
			}
			logger.Debugf("%s: accepted %v", conn.Label(), remote)
			conn.SetCallback(echo, f)
			conn.SetCloseCallback(func(s *evstream.Stream, _ any) {
				logger.Debugf("%s: closed", s.Label())
			})
			loop.Default().Append(conn, true, "")
		}
	}, nil)
	loop.Default().Append(ln, true, "listener")

	logger.Infof("echo server listening on %s://%v", f.Network, ln.Addr())
	return loop.Run(ctx)
}

// echo serves one connection as straight-line code: every GetLine that has
// to wait suspends the handler until more input arrives.
func echo(s *evstream.Stream, ctx any) {
	f := ctx.(*echoFlags)
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = -1
	}
	for {
		line, ok := s.GetLine(timeout, '\n')
		if !ok {
			_ = s.Close()
			return
		}
		s.WriteString(line)
		s.WriteString("\n")
	}
}
