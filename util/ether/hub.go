/*
 * XQ - In-process network segment.
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
	"sync"
)

const hubQueueMax = 256 // Frames held per port before oldest is dropped.

// Hub is a simulated Ethernet segment inside the process. Every frame
// written on one port is offered to the filters of all other ports.
type Hub struct {
	mu    sync.Mutex
	name  string
	ports []*hubPort
}

type hubPort struct {
	hub    *Hub
	filter Filter
	mu     sync.Mutex
	rx     [][]byte
	notify func()
	closed bool
}

var (
	hubMu sync.Mutex
	hubs  = map[string]*Hub{}
)

func init() {
	Register("hub", openHub)
}

// Find or create hub by name.
func GetHub(name string) *Hub {
	hubMu.Lock()
	defer hubMu.Unlock()
	hub, ok := hubs[name]
	if !ok {
		hub = &Hub{name: name}
		hubs[name] = hub
	}
	return hub
}

// Number of open ports.
func (hub *Hub) Ports() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.ports)
}

// Open a new port not managed by a controller, used to inject and capture
// frames.
func (hub *Hub) Open() Transport {
	port := &hubPort{hub: hub}
	hub.mu.Lock()
	hub.ports = append(hub.ports, port)
	hub.mu.Unlock()
	return port
}

func openHub(name string) (Transport, error) {
	return GetHub(name).Open(), nil
}

func (port *hubPort) Name() string {
	return "hub:" + port.hub.name
}

func (port *hubPort) Write(frame []byte, done func(err error)) error {
	port.mu.Lock()
	closed := port.closed
	port.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data := append([]byte(nil), frame...)
	port.hub.mu.Lock()
	targets := make([]*hubPort, 0, len(port.hub.ports))
	for _, p := range port.hub.ports {
		if p != port && p.filter.Accept(data) {
			targets = append(targets, p)
		}
	}
	port.hub.mu.Unlock()

	for _, p := range targets {
		p.deliver(data)
	}
	if done != nil {
		go done(nil)
	}
	return nil
}

// Queue frame on port and wake reader.
func (port *hubPort) deliver(frame []byte) {
	port.mu.Lock()
	if port.closed {
		port.mu.Unlock()
		return
	}
	if len(port.rx) >= hubQueueMax {
		port.rx = port.rx[1:]
	}
	port.rx = append(port.rx, frame)
	notify := port.notify
	port.mu.Unlock()

	if notify != nil {
		notify()
	}
}

func (port *hubPort) Read() ([]byte, bool) {
	port.mu.Lock()
	defer port.mu.Unlock()
	if len(port.rx) == 0 {
		return nil, false
	}
	frame := port.rx[0]
	port.rx = port.rx[1:]
	return frame, true
}

func (port *hubPort) SetAsync(notify func()) error {
	port.mu.Lock()
	defer port.mu.Unlock()
	port.notify = notify
	return nil
}

func (port *hubPort) ClearAsync() error {
	port.mu.Lock()
	defer port.mu.Unlock()
	port.notify = nil
	return nil
}

func (port *hubPort) Filter(addrs []MAC, allMulticast bool, promiscuous bool) error {
	port.filter.Set(addrs, allMulticast, promiscuous)
	return nil
}

func (port *hubPort) FilterHash(addr MAC, promiscuous bool, hash MultiHash) error {
	port.filter.SetHash(addr, promiscuous, hash)
	return nil
}

// Count other ports on the segment listening on addr.
func (port *hubPort) CheckAddressConflict(addr MAC) (int, error) {
	port.hub.mu.Lock()
	defer port.hub.mu.Unlock()
	count := 0
	for _, p := range port.hub.ports {
		if p != port && p.filter.Has(addr) {
			count++
		}
	}
	return count, nil
}

func (port *hubPort) Close() error {
	port.mu.Lock()
	if port.closed {
		port.mu.Unlock()
		return ErrClosed
	}
	port.closed = true
	port.notify = nil
	port.rx = nil
	port.mu.Unlock()

	hub := port.hub
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for i, p := range hub.ports {
		if p == port {
			hub.ports = append(hub.ports[:i], hub.ports[i+1:]...)
			break
		}
	}
	return nil
}
