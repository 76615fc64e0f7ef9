/*
 * XQ - Q-bus I/O page.
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

package qbus

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	command "github.com/rcornwell/XQ/command/command"
	dev "github.com/rcornwell/XQ/emu/device"
	"github.com/rcornwell/XQ/emu/irq"
	"github.com/rcornwell/XQ/emu/memory"
)

const (
	IOPage   uint32 = 0o17760000 // First address of I/O page.
	AddrMask uint32 = 0o17777777 // 22 bit physical address.
	Window   uint32 = 16         // Bytes in a standard register window.
)

var ErrNoDevice = errors.New("no such device")

// Device on bus.
type unit struct {
	name   string
	base   uint32
	length uint32
	dev    dev.Device
}

type Bus struct {
	mu    sync.RWMutex
	units []*unit
	intr  *irq.Aggregator
	mem   *memory.Memory
}

var bus = New(memory.Default())

// Create a bus over guest memory.
func New(mem *memory.Memory) *Bus {
	return &Bus{intr: irq.New(nil), mem: mem}
}

// Default bus.
func Default() *Bus {
	return bus
}

// Interrupt request line of bus.
func (b *Bus) Interrupts() *irq.Aggregator {
	return b.intr
}

func (b *Bus) Memory() *memory.Memory {
	return b.mem
}

// Add a device at base covering length bytes.
func (b *Bus) AddDevice(device dev.Device, base uint32, length uint32) error {
	if base < IOPage || base+length-1 > AddrMask || (base&1) != 0 {
		return fmt.Errorf("device %s address %08o not in I/O page", device.Name(), base)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	name := strings.ToUpper(device.Name())
	for _, u := range b.units {
		if u.name == name {
			return fmt.Errorf("device %s already exists", name)
		}
		if base < u.base+u.length && u.base < base+length {
			return fmt.Errorf("device %s address %08o conflicts with %s", name, base, u.name)
		}
	}
	b.units = append(b.units, &unit{name: name, base: base, length: length, dev: device})
	return nil
}

// Remove device by name.
func (b *Bus) DelDevice(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = strings.ToUpper(name)
	b.units = slices.DeleteFunc(b.units, func(u *unit) bool {
		return u.name == name
	})
}

// Find a device by name.
func (b *Bus) GetDevice(name string) (dev.Device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	name = strings.ToUpper(name)
	for _, u := range b.units {
		if u.name == name {
			return u.dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDevice, name)
}

// Command interface to a device.
func (b *Bus) GetCommand(name string) (command.Command, error) {
	device, err := b.GetDevice(name)
	if err != nil {
		return nil, err
	}
	cmd, ok := device.(command.Command)
	if !ok {
		return nil, fmt.Errorf("device %s does not support commands", name)
	}
	return cmd, nil
}

// Names of all devices in address order.
func (b *Bus) Names() []string {
	b.mu.RLock()
	units := slices.Clone(b.units)
	b.mu.RUnlock()
	slices.SortFunc(units, func(x, y *unit) int {
		return int(x.base) - int(y.base)
	})
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.name)
	}
	return names
}

// Base address of device.
func (b *Bus) Address(name string) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	name = strings.ToUpper(name)
	for _, u := range b.units {
		if u.name == name {
			return u.base, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoDevice, name)
}

func (b *Bus) find(pa uint32) (*unit, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, u := range b.units {
		if pa >= u.base && pa < u.base+u.length {
			return u, int((pa >> 1) & 7)
		}
	}
	return nil, 0
}

// Read word at physical address.
func (b *Bus) Read(pa uint32) (uint16, error) {
	pa &= AddrMask
	if pa < IOPage {
		data, err := b.mem.GetWord(pa)
		if err {
			return 0, memory.ErrNXM
		}
		return data, nil
	}
	u, index := b.find(pa)
	if u == nil {
		return 0, memory.ErrNXM
	}
	return u.dev.ReadReg(index), nil
}

// Write word at physical address.
func (b *Bus) Write(pa uint32, data uint16) error {
	pa &= AddrMask
	if pa < IOPage {
		if b.mem.PutWord(pa, data) {
			return memory.ErrNXM
		}
		return nil
	}
	u, index := b.find(pa)
	if u == nil {
		return memory.ErrNXM
	}
	u.dev.WriteReg(index, data)
	return nil
}

// Vector of first device requesting an interrupt.
func (b *Bus) Acknowledge() (int, bool) {
	return b.intr.Vector()
}

func (b *Bus) devices() []dev.Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list := make([]dev.Device, 0, len(b.units))
	for _, u := range b.units {
		list = append(list, u.dev)
	}
	return list
}

// Bus init, reset every device.
func (b *Bus) ResetAll() {
	for _, d := range b.devices() {
		d.Reset()
	}
}

// Shutdown every device.
func (b *Bus) ShutdownAll() {
	for _, d := range b.devices() {
		d.Shutdown()
	}
}

// Default bus functions.

func AddDevice(device dev.Device, base uint32, length uint32) error {
	return bus.AddDevice(device, base, length)
}

func DelDevice(name string) {
	bus.DelDevice(name)
}

func GetDevice(name string) (dev.Device, error) {
	return bus.GetDevice(name)
}

func GetCommand(name string) (command.Command, error) {
	return bus.GetCommand(name)
}

func Names() []string {
	return bus.Names()
}

func Address(name string) (uint32, error) {
	return bus.Address(name)
}

func Read(pa uint32) (uint16, error) {
	return bus.Read(pa)
}

func Write(pa uint32, data uint16) error {
	return bus.Write(pa, data)
}

func Interrupts() *irq.Aggregator {
	return bus.intr
}

func ResetAll() {
	bus.ResetAll()
}

func ShutdownAll() {
	bus.ShutdownAll()
}
