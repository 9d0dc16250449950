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
	"time"

	"github.com/panjf2000/evstream/pkg/logging"
	"github.com/panjf2000/evstream/pkg/pool/goroutine"
)

// Clock returns the current time. Streams and loops take one so that tests
// can drive deadlines deterministically.
type Clock func() time.Time

// DefaultMaxWait bounds every pass of Loop.Run, so that a cancelled context
// is noticed even when nothing else happens.
const DefaultMaxWait = 500 * time.Millisecond

// Option is a function that will set up option.
type Option func(opts *Options)

func loadOptions(options ...Option) *Options {
	opts := &Options{MaxWait: DefaultMaxWait}
	for _, option := range options {
		option(opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefaultLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return opts
}

// Options are configurations for a Loop.
type Options struct {
	// Logger is the customized logger for logging info, if it is not set,
	// then evstream will use the default logger powered by go.uber.org/zap.
	Logger logging.Logger

	// Clock is the time source of every pass, time.Now by default.
	Clock Clock

	// TaskPool hosts the tasks of suspension-enabled streams created by the
	// loop, a private pool of TaskPoolSize workers is created when nil.
	TaskPool *goroutine.Pool

	// TaskPoolSize is the capacity of the private task pool.
	TaskPoolSize int

	// MaxWait bounds each pass of Run, negative means passes may block
	// until a stream becomes ready.
	MaxWait time.Duration

	// LockOSThread pins Run to its OS thread, useful when callbacks rely on
	// thread-local state such as cgo libraries.
	LockOSThread bool

	// AutoPrune makes the default composite drop streams that closed.
	AutoPrune bool

	// NoDefault keeps the default composite out of every pass.
	NoDefault bool
}

// WithOptions sets up all options.
func WithOptions(options Options) Option {
	return func(opts *Options) {
		*opts = options
	}
}

// WithLogger sets up a customized logger.
func WithLogger(logger logging.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock sets up the time source.
func WithClock(clock Clock) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithTaskPool sets up the pool hosting suspended tasks.
func WithTaskPool(pool *goroutine.Pool) Option {
	return func(opts *Options) {
		opts.TaskPool = pool
	}
}

// WithTaskPoolSize sets up the capacity of the private task pool.
func WithTaskPoolSize(size int) Option {
	return func(opts *Options) {
		opts.TaskPoolSize = size
	}
}

// WithMaxWait sets up the bound of each pass of Run.
func WithMaxWait(d time.Duration) Option {
	return func(opts *Options) {
		opts.MaxWait = d
	}
}

// WithLockOSThread sets up LockOSThread mode for Run.
func WithLockOSThread(lockOSThread bool) Option {
	return func(opts *Options) {
		opts.LockOSThread = lockOSThread
	}
}

// WithAutoPrune sets up pruning of closed streams on the default composite.
func WithAutoPrune(autoPrune bool) Option {
	return func(opts *Options) {
		opts.AutoPrune = autoPrune
	}
}

// WithoutDefault keeps the default composite out of every pass.
func WithoutDefault() Option {
	return func(opts *Options) {
		opts.NoDefault = true
	}
}

// StreamOption is a function that will set up a stream option.
type StreamOption func(opts *StreamOptions)

func loadStreamOptions(options ...StreamOption) *StreamOptions {
	opts := &StreamOptions{Wants: OpRead}
	for _, option := range options {
		option(opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefaultLogger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return opts
}

// StreamOptions are configurations for a Stream.
type StreamOptions struct {
	// Logger reports I/O failures and task overloads.
	Logger logging.Logger

	// Clock is the time source of the stream's alarm.
	Clock Clock

	// Registry is the side table resolving coupling relations, the stream
	// registers itself in it on creation.
	Registry *Registry

	// TaskPool hosts the stream's task, a shared default pool is used when nil.
	TaskPool *goroutine.Pool

	// Label names the stream in logs and composites.
	Label string

	// OutputLimit is the ceiling of the output buffer, 0 means unlimited.
	OutputLimit int

	// QueueMin is the number of buffered bytes Read waits for before it
	// returns anything.
	QueueMin int

	// Wants is the default set of conditions the stream is polled for.
	Wants Ops

	// AutoFlush makes every Write try to flush immediately.
	AutoFlush bool

	// Suspendable runs the callback inside a Task.
	Suspendable bool
}

// WithStreamLogger sets up the stream's logger.
func WithStreamLogger(logger logging.Logger) StreamOption {
	return func(opts *StreamOptions) {
		opts.Logger = logger
	}
}

// WithStreamClock sets up the stream's time source.
func WithStreamClock(clock Clock) StreamOption {
	return func(opts *StreamOptions) {
		opts.Clock = clock
	}
}

// WithRegistry sets up the registry resolving coupling relations.
func WithRegistry(r *Registry) StreamOption {
	return func(opts *StreamOptions) {
		opts.Registry = r
	}
}

// WithStreamTaskPool sets up the pool hosting the stream's task.
func WithStreamTaskPool(pool *goroutine.Pool) StreamOption {
	return func(opts *StreamOptions) {
		opts.TaskPool = pool
	}
}

// WithLabel sets up the debug label.
func WithLabel(label string) StreamOption {
	return func(opts *StreamOptions) {
		opts.Label = label
	}
}

// WithOutputLimit sets up the output buffer ceiling.
func WithOutputLimit(limit int) StreamOption {
	return func(opts *StreamOptions) {
		opts.OutputLimit = limit
	}
}

// WithQueueMin sets up the read threshold.
func WithQueueMin(n int) StreamOption {
	return func(opts *StreamOptions) {
		opts.QueueMin = n
	}
}

// WithWants sets up the default wanted conditions.
func WithWants(ops Ops) StreamOption {
	return func(opts *StreamOptions) {
		opts.Wants = ops
	}
}

// WithAutoFlush sets up immediate flushing on Write.
func WithAutoFlush(autoFlush bool) StreamOption {
	return func(opts *StreamOptions) {
		opts.AutoFlush = autoFlush
	}
}

// WithSuspension makes the stream run its callback inside a Task.
func WithSuspension() StreamOption {
	return func(opts *StreamOptions) {
		opts.Suspendable = true
	}
}
