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

import "sync/atomic"

// ID identifies a stream for as long as the process lives, IDs are never reused.
type ID uint64

var lastID uint64

func nextID() ID {
	return ID(atomic.AddUint64(&lastID, 1))
}

// Registry resolves stream IDs to live streams. Coupling relations are kept
// as IDs and looked up here on every pass, so that a released peer simply
// stops constraining the streams that refer to it.
type Registry struct {
	streams map[ID]Selectable
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{streams: make(map[ID]Selectable)}
}

// Register adds s, replacing whatever was registered under the same ID.
func (r *Registry) Register(s Selectable) {
	if r == nil || s == nil {
		return
	}
	if r.streams == nil {
		r.streams = make(map[ID]Selectable)
	}
	r.streams[s.ID()] = s
}

// Unregister removes id.
func (r *Registry) Unregister(id ID) {
	if r == nil {
		return
	}
	delete(r.streams, id)
}

// Lookup returns the live stream registered under id.
func (r *Registry) Lookup(id ID) (Selectable, bool) {
	if r == nil || id == 0 {
		return nil, false
	}
	s, ok := r.streams[id]
	if !ok || !s.IsOK() {
		return nil, false
	}
	return s, true
}

// Len returns the number of registered streams.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.streams)
}
