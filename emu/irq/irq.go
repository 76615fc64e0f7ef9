/*
 * XQ - Shared interrupt request line.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package irq

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Line is the interrupt request input of the CPU.
type Line interface {
	SetInt()
	ClrInt()
}

// Source is one controller able to request an interrupt. Acknowledge is
// called without the aggregator lock held.
type Source interface {
	Acknowledge() (vector int, ok bool)
}

// Signal is a Line that just records its state.
type Signal struct {
	state atomic.Bool
}

func (s *Signal) SetInt() {
	s.state.Store(true)
}

func (s *Signal) ClrInt() {
	s.state.Store(false)
}

func (s *Signal) Asserted() bool {
	return s.state.Load()
}

// Aggregator combines the requests of several controllers onto one Line.
// The count is only changed with the canonical lock held. The first
// controller uses the canonical lock as its own instance lock, and says
// so with the held argument to avoid locking it twice.
type Aggregator struct {
	mu      sync.Mutex
	pending atomic.Int32
	line    Line
	srcMu   sync.Mutex
	sources []Source
}

// Create aggregator driving line. If line is nil a Signal is used.
func New(line Line) *Aggregator {
	if line == nil {
		line = &Signal{}
	}
	return &Aggregator{line: line}
}

// Canonical lock.
func (a *Aggregator) Lock() *sync.Mutex {
	return &a.mu
}

func (a *Aggregator) Line() Line {
	return a.line
}

// Add a source to the end of the acknowledge scan order.
func (a *Aggregator) Register(src Source) {
	a.srcMu.Lock()
	defer a.srcMu.Unlock()
	a.sources = append(a.sources, src)
}

// Remove a source from the scan order.
func (a *Aggregator) Unregister(src Source) {
	a.srcMu.Lock()
	defer a.srcMu.Unlock()
	a.sources = slices.DeleteFunc(a.sources, func(s Source) bool {
		return s == src
	})
}

// Number of registered sources.
func (a *Aggregator) Sources() int {
	a.srcMu.Lock()
	defer a.srcMu.Unlock()
	return len(a.sources)
}

// One more source is requesting.
func (a *Aggregator) Raise(held bool) {
	if !held {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	if a.pending.Add(1) == 1 {
		a.line.SetInt()
	}
}

// One source stopped requesting. When others are still requesting and this
// was an acknowledge, the line is asserted again for them.
func (a *Aggregator) Clear(held bool, intack bool) {
	if !held {
		a.mu.Lock()
		defer a.mu.Unlock()
	}
	n := a.pending.Add(-1)
	switch {
	case n == 0:
		a.line.ClrInt()
	case n < 0:
		a.pending.Store(0)
		a.line.ClrInt()
	case intack:
		a.line.SetInt()
	}
}

// Number of sources requesting.
func (a *Aggregator) Pending() int {
	return int(a.pending.Load())
}

// Scan sources in order, return vector of first one requesting.
func (a *Aggregator) Vector() (int, bool) {
	a.srcMu.Lock()
	sources := append([]Source(nil), a.sources...)
	a.srcMu.Unlock()
	for _, src := range sources {
		if vec, ok := src.Acknowledge(); ok {
			return vec, true
		}
	}
	return 0, false
}
