/*
 * XQ - Simulation core loop.
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

package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dev "github.com/rcornwell/XQ/emu/device"
	"github.com/rcornwell/XQ/emu/event"
	"github.com/rcornwell/XQ/emu/master"
	"github.com/rcornwell/XQ/emu/qbus"
)

type Core struct {
	wg      sync.WaitGroup
	done    chan struct{} // Signal to shutdown simulator.
	running bool          // Clock ticks advance the scheduler.
	Master  chan master.Packet
	events  *event.EventList
	bus     *qbus.Bus
	reboots int
}

// Create core using the default scheduler and bus.
func NewCore(master chan master.Packet) *Core {
	return &Core{
		Master:  master,
		done:    make(chan struct{}),
		running: true,
		events:  event.Default(),
		bus:     qbus.Default(),
	}
}

// Core running on a private scheduler and bus.
func NewCoreWith(master chan master.Packet, events *event.EventList, bus *qbus.Bus) *Core {
	core := NewCore(master)
	core.events = events
	core.bus = bus
	return core
}

// Run core until stopped or context canceled.
func (core *Core) Start(ctx context.Context) error {
	core.wg.Add(1)
	defer core.wg.Done()
	for {
		select {
		case <-ctx.Done():
			core.bus.ShutdownAll()
			return nil
		case <-core.done:
			// Shutdown all devices.
			core.bus.ShutdownAll()
			return nil
		case packet := <-core.Master:
			core.processPacket(packet)
		}
	}
}

// Stop a running core.
func (core *Core) Stop() {
	slog.Info("Shutting down core")
	close(core.done)
	done := make(chan struct{})
	go func() {
		core.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for core to finish.")
		return
	}
}

// Resume clock.
func (core *Core) SendStart() {
	core.Master <- master.Packet{Msg: master.Start}
}

// Stop clock.
func (core *Core) SendStop() {
	core.Master <- master.Packet{Msg: master.Stop}
}

// Bus reset.
func (core *Core) SendReset() {
	core.Master <- master.Packet{Msg: master.Reset}
}

// Number of guest reboots requested.
func (core *Core) Reboots() int {
	return core.reboots
}

// Process a packet sent to system simulation.
func (core *Core) processPacket(packet master.Packet) {
	switch packet.Msg {
	case master.TimeClock:
		if core.running {
			core.events.Advance(1)
		}
	case master.Service:
		device, err := core.bus.GetDevice(packet.Device)
		if err != nil {
			slog.Warn("Service request for unknown device " + packet.Device)
			return
		}
		if svc, ok := device.(dev.Servicer); ok {
			svc.Service()
		}
	case master.Reboot:
		slog.Warn("Guest reboot requested by " + packet.Device)
		core.reboots++
		core.bus.ResetAll()
	case master.Reset:
		core.bus.ResetAll()
	case master.Start:
		core.running = true
	case master.Stop:
		core.running = false
	}
}
