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

// Package goroutine provides the worker pool that hosts suspended tasks.
// Every task occupies one worker for as long as it is alive, suspended or
// not, so the pool is sized for many concurrent suspensions and never blocks
// the reactor: a full pool makes Submit fail instead.
package goroutine

import (
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/panjf2000/evstream/pkg/logging"
)

const (
	// DefaultPoolSize is the capacity of the task pool, 256 * 1024.
	DefaultPoolSize = 1 << 18

	// ExpiryDuration is the interval time to clean up those expired workers.
	ExpiryDuration = 10 * time.Second

	// Nonblocking makes Submit return ants.ErrPoolOverload on a full pool.
	Nonblocking = true
)

// Pool is the alias of ants.Pool.
type Pool = ants.Pool

// ErrPoolOverload is returned by Submit when the pool is exhausted.
var ErrPoolOverload = ants.ErrPoolOverload

// New instantiates a non-blocking pool with the given capacity, falling back
// to DefaultPoolSize when size <= 0.
func New(size int, logger logging.Logger) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return ants.NewPool(size,
		ants.WithExpiryDuration(ExpiryDuration),
		ants.WithNonblocking(Nonblocking),
		ants.WithLogger(printfLogger{logger}))
}

// Default instantiates a pool of DefaultPoolSize that logs through the default logger.
func Default() *Pool {
	p, _ := New(DefaultPoolSize, logging.GetDefaultLogger())
	return p
}

type printfLogger struct {
	logging.Logger
}

func (l printfLogger) Printf(format string, args ...any) {
	l.Errorf(format, args...)
}
