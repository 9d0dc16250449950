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


package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoCommandFlags(t *testing.T) {
	command := newEchoCommand()
	require.NoError(t, command.ParseFlags([]string{"-a", "127.0.0.1:9000", "--timeout", "5s"}))

	addr, err := command.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", addr)
	network, err := command.Flags().GetString("network")
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
	timeout, err := command.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
	level, err := command.Flags().GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "info", level)
}

func TestRunEchoRejectsBadLogLevel(t *testing.T) {
	f := &echoFlags{
		Addr:     "127.0.0.1:0",
		Network:  "tcp",
		LogFile:  filepath.Join(t.TempDir(), "echo.log"),
		LogLevel: "loud",
	}
	assert.Error(t, runEcho(context.Background(), f))
}
