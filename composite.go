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
	"github.com/eapache/queue"
)

type compositeEntry struct {
	child   Selectable
	owns    bool
	label   string
	woken   bool
	removed bool
	pass    uint64 // last dispatch pass that called the child back
}

// Composite multiplexes child streams behind one stream. It is ready when
// its own conditions hold or any child is ready, and its Callback runs its
// own handler and then calls back every ready child in insertion order.
//
// Handlers may append or unlink children while the composite dispatches:
// iteration starts over after every change and children already called back
// in the current pass are skipped.
type Composite struct {
	*Stream
	entries   []*compositeEntry
	sure      *queue.Queue
	autoPrune bool
	gen       uint64
	pass      uint64
}

// NewComposite returns an empty composite. Its own stream has no transport.
func NewComposite(opts ...StreamOption) *Composite {
	c := &Composite{Stream: NewStream(nil, opts...), sure: queue.New()}
	c.peers.Register(c)
	return c
}

// SetAutoPrune makes the composite drop children that are no longer ok,
// releasing those it owns.
func (c *Composite) SetAutoPrune(on bool) {
	c.autoPrune = on
}

// AutoPrune reports whether closed children are dropped.
func (c *Composite) AutoPrune() bool {
	return c.autoPrune
}

// Append adds child at the end of the list. An owned child is released when
// it leaves the list or the composite is released. An empty label falls back
// to the child's own label when it has one.
func (c *Composite) Append(child Selectable, owns bool, label string) {
	if child == nil {
		return
	}
	if label == "" {
		if l, ok := child.(interface{ Label() string }); ok {
			label = l.Label()
		}
	}
	c.entries = append(c.entries, &compositeEntry{child: child, owns: owns, label: label})
	c.gen++
}

// Unlink removes child from the list, releasing it if the composite owns it.
// It reports whether child was found.
func (c *Composite) Unlink(child Selectable) bool {
	i := c.index(child)
	if i < 0 {
		return false
	}
	c.remove(i)
	return true
}

// Wake puts child on the list of children dispatched at the next pass
// whatever their readiness. It reports whether child was found.
func (c *Composite) Wake(child Selectable) bool {
	i := c.index(child)
	if i < 0 {
		return false
	}
	if e := c.entries[i]; !e.woken {
		e.woken = true
		c.sure.Add(e)
	}
	return true
}

// Len returns the number of children.
func (c *Composite) Len() int {
	return len(c.entries)
}

// Children returns the children in insertion order.
func (c *Composite) Children() []Selectable {
	children := make([]Selectable, len(c.entries))
	for i, e := range c.entries {
		children[i] = e.child
	}
	return children
}

// Lookup returns the first child appended under label.
func (c *Composite) Lookup(label string) (Selectable, bool) {
	for _, e := range c.entries {
		if e.label == label {
			return e.child, true
		}
	}
	return nil, false
}

func (c *Composite) index(child Selectable) int {
	for i, e := range c.entries {
		if e.child == child {
			return i
		}
	}
	return -1
}

func (c *Composite) remove(i int) {
	e := c.entries[i]
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	c.gen++
	e.removed = true
	if e.owns {
		if err := e.child.Release(); err != nil {
			c.logger.Warnf("%s: releasing child %s: %v", c.label, e.label, err)
		}
	}
}

func (c *Composite) prune(e *compositeEntry) {
	if i := c.index(e.child); i >= 0 {
		c.logger.Warnf("%s: pruning closed child %s", c.label, e.label)
		c.remove(i)
	}
}

func (c *Composite) needsPrune() bool {
	if !c.autoPrune {
		return false
	}
	for _, e := range c.entries {
		if !e.child.IsOK() {
			return true
		}
	}
	return false
}

// condition makes a composite a coupling peer on behalf of its children: it
// satisfies op when any open child does.
func (c *Composite) condition(op Ops) bool {
	for _, e := range c.entries {
		if p, ok := e.child.(conditioner); ok && e.child.IsOK() && p.condition(op) {
			return true
		}
	}
	return false
}

// Prepare merges the plans of the composite's own stream and of its children.
func (c *Composite) Prepare(q Query) Plan {
	p := c.Stream.Prepare(q)
	if c.closed {
		return p
	}
	if c.sure.Length() > 0 || c.needsPrune() {
		p.MarkReady()
	}
	cq := q.child(q.wants(c.wants))
	for _, e := range c.entries {
		if e.child.IsOK() {
			p.Merge(e.child.Prepare(cq))
		}
	}
	return p
}

// Collect ORs the conditions of the composite's own stream with those of its
// children. Woken children count as readable and closed children waiting to
// be pruned as exceptional.
func (c *Composite) Collect(q Query, ev *Events) Ops {
	ops := c.Stream.Collect(q, ev)
	if c.closed {
		return 0
	}
	cq := q.child(q.wants(c.wants))
	for _, e := range c.entries {
		if !e.child.IsOK() {
			if c.autoPrune {
				ops |= OpExcept
			}
			continue
		}
		ops |= e.child.Collect(cq, ev)
		if e.woken {
			ops |= OpRead
		}
	}
	c.ready = ops
	return ops
}

// Callback runs the composite's own handler, then calls back the woken
// children in the order they were woken and the ready children in
// insertion order.
func (c *Composite) Callback() {
	if c.closed {
		return
	}
	c.Stream.Callback()
	c.dispatch()
}

func (c *Composite) dispatch() {
	c.pass++
	pass := c.pass

	for c.sure.Length() > 0 && !c.closed {
		e := c.sure.Remove().(*compositeEntry)
		if e.removed || !e.woken {
			continue
		}
		e.woken = false
		if e.pass == pass || !e.child.IsOK() {
			continue
		}
		e.pass = pass
		e.child.Callback()
	}

restart:
	for !c.closed {
		gen := c.gen
		for _, e := range c.entries {
			if !e.child.IsOK() {
				if c.autoPrune {
					c.prune(e)
					continue restart
				}
				continue
			}
			if e.pass == pass || e.child.Ready() == 0 {
				continue
			}
			e.pass = pass
			e.child.Callback()
			if c.autoPrune && !e.child.IsOK() {
				c.prune(e)
			}
			if c.gen != gen {
				continue restart
			}
		}
		return
	}
}

// Release releases the owned children, then the composite's own stream.
func (c *Composite) Release() error {
	entries := c.entries
	c.entries = nil
	c.gen++
	for _, e := range entries {
		e.removed = true
		if e.owns {
			if err := e.child.Release(); err != nil {
				c.logger.Warnf("%s: releasing child %s: %v", c.label, e.label, err)
			}
		}
	}
	return c.Stream.Release()
}
