/*
 * XQ - Software receive filter.
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

import "sync"

// Filter decides which received frames are passed to a controller. It holds
// either an explicit address list or a single address plus multicast hash.
type Filter struct {
	mu           sync.Mutex
	addrs        []MAC
	allMulticast bool
	promiscuous  bool
	hash         *MultiHash
}

// Load explicit address list.
func (f *Filter) Set(addrs []MAC, allMulticast bool, promiscuous bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrs = append([]MAC(nil), addrs...)
	f.allMulticast = allMulticast
	f.promiscuous = promiscuous
	f.hash = nil
}

// Load single address with hash for multicast.
func (f *Filter) SetHash(addr MAC, promiscuous bool, hash MultiHash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrs = []MAC{addr}
	f.allMulticast = false
	f.promiscuous = promiscuous
	f.hash = &hash
}

// Check if filter holds address.
func (f *Filter) Has(addr MAC) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// Check if frame should be received.
func (f *Filter) Accept(frame []byte) bool {
	if len(frame) < HeaderLen {
		return false
	}
	dst := Destination(frame)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.promiscuous {
		return true
	}
	if dst.IsMulticast() {
		if f.allMulticast {
			return true
		}
		if f.hash != nil && f.hash.Match(dst) {
			return true
		}
	}
	for _, a := range f.addrs {
		if a == dst {
			return true
		}
	}
	return false
}
