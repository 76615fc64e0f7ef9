/*
 * XQ - Transport interface.
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

package ether

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNoTransport = errors.New("no such network transport")
	ErrClosed      = errors.New("network transport closed")
	ErrNoAsync     = errors.New("transport does not support asynchronous reads")
)

// Transport moves frames between a controller and a network segment.
// Write may return before the frame is sent, done is then called later from
// another goroutine. done may be nil. notify passed to SetAsync is called
// from the transport's goroutine whenever frames are waiting for Read, it
// must not block.
type Transport interface {
	Name() string
	Write(frame []byte, done func(err error)) error
	Read() ([]byte, bool)
	SetAsync(notify func()) error
	ClearAsync() error
	Filter(addrs []MAC, allMulticast bool, promiscuous bool) error
	FilterHash(addr MAC, promiscuous bool, hash MultiHash) error
	CheckAddressConflict(addr MAC) (int, error)
	Close() error
}

// Opener creates a transport for the part of the name after the colon.
type Opener func(name string) (Transport, error)

var (
	openMu  sync.Mutex
	openers = map[string]Opener{}
)

// Register a transport kind, called from init functions.
func Register(kind string, fn Opener) {
	openMu.Lock()
	defer openMu.Unlock()
	openers[strings.ToLower(kind)] = fn
}

// List of registered transport kinds.
func Kinds() []string {
	openMu.Lock()
	defer openMu.Unlock()
	kinds := []string{}
	for kind := range openers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Open a transport given as kind:name, for example hub:lan0 or tap:tap0.
func Open(spec string) (Transport, error) {
	kind, name, ok := strings.Cut(spec, ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, spec)
	}
	openMu.Lock()
	fn, ok := openers[strings.ToLower(kind)]
	openMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, spec)
	}
	return fn(name)
}
