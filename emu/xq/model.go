/*
 * XQ - Configuration of Ethernet controllers.
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

package xq

import (
	"errors"
	"fmt"
	"strings"

	config "github.com/rcornwell/XQ/config/configparser"
	D "github.com/rcornwell/XQ/emu/device"
	"github.com/rcornwell/XQ/emu/event"
	"github.com/rcornwell/XQ/emu/master"
	"github.com/rcornwell/XQ/emu/qbus"
	"github.com/rcornwell/XQ/util/ether"
)

// Default placement of each controller.
type model struct {
	name      string
	addr      uint32
	mac       ether.MAC
	canonical bool
}

var models = []model{
	{name: "XQ", addr: 0o17774440, mac: ether.MAC{0x08, 0x00, 0x2B, 0xAA, 0xBB, 0xCC}, canonical: true},
	{name: "XQB", addr: 0o17774460, mac: ether.MAC{0x08, 0x00, 0x2B, 0xBB, 0xCC, 0xDD}},
}

// register devices on initialize.
func init() {
	for _, m := range models {
		config.RegisterModel(m.name, config.TypeModel, func(devNum uint32, value string, options []config.Option) error {
			return create(m, devNum, value, options)
		})
	}
}

// Create a controller on the default bus.
func create(m model, devNum uint32, value string, options []config.Option) (err error) {
	addr := m.addr
	if devNum != D.NoDev {
		addr = devNum
	} else if value != "" {
		return fmt.Errorf("%s: invalid address %s", m.name, value)
	}

	bus := qbus.Default()
	c := New(m.name, bus.Memory(), bus.Interrupts(), event.Default(), m.canonical)
	defer func() {
		if err != nil {
			bus.Interrupts().Unregister(c)
		}
	}()
	c.mac = m.mac
	c.makeChecksum()
	c.Notify = func() {
		master.Post(master.Packet{Msg: master.Service, Device: c.name})
	}
	c.Reboot = func() {
		master.Post(master.Packet{Msg: master.Reboot, Device: c.name})
	}

	attach := ""
	for _, opt := range options {
		switch strings.ToLower(opt.Name) {
		case "attach":
			attach = opt.EqualOpt
		case "sanity":
			unset := strings.EqualFold(opt.EqualOpt, "off")
			if err := c.setOption(unset, opt.Name, ""); err != nil {
				return err
			}
		case "type", "mac", "poll":
			if err := c.setOption(false, opt.Name, opt.EqualOpt); err != nil {
				return err
			}
		default:
			return errors.New(m.name + " invalid option: " + opt.Name)
		}
	}

	c.Reset()

	if err := bus.AddDevice(c, addr, qbus.Window); err != nil {
		return err
	}
	if attach != "" {
		if err := c.AttachTransport(attach); err != nil {
			bus.DelDevice(c.name)
			return err
		}
	}
	return nil
}
