/*
 * XQ - Console commands, attach and detach.
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
	"log/slog"
	"strconv"
	"strings"

	"github.com/rcornwell/XQ/command/command"
	"github.com/rcornwell/XQ/util/ether"
)

// List of valid options.
func (c *Controller) Options(_ string) []command.Options {
	setShow := command.ValidSet | command.ValidShow
	return []command.Options{
		{Name: "file", OptionType: command.OptionFile, OptionValid: command.ValidAttach},
		{Name: "type", OptionType: command.OptionList, OptionValid: setShow,
			OptionList: []string{"deqna", "delqa", "delqa-t"}},
		{Name: "mac", OptionType: command.OptionName, OptionValid: setShow},
		{Name: "poll", OptionType: command.OptionName, OptionValid: setShow},
		{Name: "sanity", OptionType: command.OptionSwitch, OptionValid: setShow},
		{Name: "stats", OptionType: command.OptionSwitch, OptionValid: setShow},
		{Name: "filters", OptionType: command.OptionSwitch, OptionValid: command.ValidShow},
	}
}

// Attach to network transport.
func (c *Controller) Attach(options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name == "file" {
			return c.AttachTransport(opt.EqualOpt)
		}
	}
	return errors.New("attach requires a transport name")
}

// Open transport named kind:name and attach to it.
func (c *Controller) AttachTransport(spec string) error {
	eth, err := ether.Open(spec)
	if err != nil {
		return err
	}
	return c.AttachTo(eth)
}

// Attach an open transport. The transport is closed if attach fails.
func (c *Controller) AttachTo(eth ether.Transport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		_ = eth.Close()
		return ErrAttached
	}

	if c.poll == 0 {
		if err := eth.SetAsync(c.wake); err != nil {
			_ = eth.Close()
			return fmt.Errorf("%s: %w", c.name, err)
		}
		c.mustPoll = false
	} else {
		c.mustPoll = eth.ClearAsync() != nil
	}

	count, err := eth.CheckAddressConflict(c.mac)
	if err != nil || count != 0 {
		slog.Error(c.name+": MAC address conflict on LAN, change the MAC address to a unique value",
			"mac", c.mac.String(), "responses", count)
		_ = eth.Close()
		return fmt.Errorf("%s: %w for %s", c.name, ErrAddressConflict, c.mac)
	}

	c.eth = eth
	c.ethName = eth.Name()
	c.csrSetClr(CSROK, 0)
	slog.Info(c.name+": attached", "transport", c.ethName, "mac", c.mac.String())

	switch {
	case c.mode == DELQAT:
		if err := eth.FilterHash(c.init.Phys, (c.init.Mode&InitPRO) != 0, c.init.Hash); err != nil {
			slog.Warn(c.name+": unable to set filter", "error", err)
		}
	case c.setup.valid:
		c.loadFilter()
	default:
		c.reset()
	}
	c.startTimer()
	return nil
}

// Detach from transport.
func (c *Controller) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detach()
}

func (c *Controller) detach() error {
	c.csrSetClr(0, CSROK)
	if c.eth == nil {
		return ErrNotAttached
	}
	c.stopReceiver()
	c.stopTimer()
	c.abortTransmit()
	err := c.eth.Close()
	slog.Info(c.name+": detached", "transport", c.ethName)
	c.eth = nil
	c.ethName = ""
	return err
}

// Attached reports if the controller has a transport.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eth != nil
}

// Set or unset options.
func (c *Controller) Set(unset bool, options []*command.CmdOption) error {
	for _, opt := range options {
		if err := c.setOption(unset, opt.Name, opt.EqualOpt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) setOption(unset bool, name string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name = strings.ToLower(name)
	if name == "stats" {
		c.stats = Stats{}
		c.readQ.ResetStats()
		return nil
	}
	if c.eth != nil {
		return fmt.Errorf("%s: %w, can't set %s", c.name, ErrAttached, name)
	}

	switch name {
	case "type":
		if unset {
			return errors.New("type can't be unset")
		}
		ty, err := ParseType(value)
		if err != nil {
			return err
		}
		c.typ = ty
		c.mode = DELQA
		if ty == DEQNA {
			c.mode = DEQNA
		}
	case "mac":
		if unset {
			return errors.New("mac can't be unset")
		}
		mac, err := ether.ParseMAC(value)
		if err != nil {
			return err
		}
		c.mac = mac
		c.makeChecksum()
	case "poll":
		if unset {
			c.poll = 0
			return nil
		}
		poll, err := parsePoll(value)
		if err != nil {
			return err
		}
		c.poll = poll
	case "sanity":
		if unset {
			c.sanity.enabled = 0
		} else {
			c.sanity.enabled = 2
		}
	default:
		return errors.New("XQ invalid option: " + name)
	}
	return nil
}

// Poll rate, default, disabled or polls per second.
func parsePoll(value string) (int, error) {
	switch strings.ToUpper(value) {
	case "DEFAULT":
		return DefaultPoll, nil
	case "DISABLED":
		return 0, nil
	}
	poll, err := strconv.Atoi(value)
	if err != nil || (poll != 0 && (poll < 4 || poll > 2500)) {
		return 0, errors.New("invalid poll rate: " + value)
	}
	return poll, nil
}

// Show device state.
func (c *Controller) Show(options []*command.CmdOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(options) == 0 {
		str := fmt.Sprintf("%s: %s %s %s %s", c.name, c.showType(), c.showMAC(), c.showSanity(), c.showPoll())
		if c.eth != nil {
			str += " attached=" + c.ethName
		}
		return str, nil
	}

	out := []string{}
	for _, opt := range options {
		switch strings.ToLower(opt.Name) {
		case "type":
			out = append(out, c.showType())
		case "mac":
			out = append(out, c.showMAC())
		case "sanity":
			out = append(out, c.showSanity())
		case "poll":
			out = append(out, c.showPoll())
		case "filters":
			out = append(out, strings.TrimRight(c.filterString(), "\n"))
		case "stats":
			out = append(out, strings.TrimRight(c.statsString(), "\n"))
		default:
			return "", errors.New("XQ invalid show option: " + opt.Name)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (c *Controller) showType() string {
	str := "type=" + c.typ.String()
	if c.mode != c.typ {
		str += ",mode=" + c.mode.String()
	}
	return str
}

func (c *Controller) showMAC() string {
	return "MAC=" + c.mac.String()
}

func (c *Controller) showSanity() string {
	if c.sanity.enabled == 2 {
		return "sanity=ON"
	}
	return "sanity=OFF"
}

func (c *Controller) showPoll() string {
	if c.poll != 0 {
		return fmt.Sprintf("poll=%d", c.poll)
	}
	return "polling=disabled"
}

func (c *Controller) statsString() string {
	var str strings.Builder
	line := func(name string, value int) {
		fmt.Fprintf(&str, "  %-15s%d\n", name, value)
	}
	str.WriteString("XQ Ethernet statistics:\n")
	line("Recv:", c.stats.Recv)
	line("Dropped:", c.stats.Dropped+c.readQ.Loss())
	line("Xmit:", c.stats.Xmit)
	line("Xmit Fail:", c.stats.Fail)
	line("Runts:", c.stats.Runt)
	line("Oversize:", c.stats.Giant)
	line("SW Reset:", c.stats.Reset)
	line("Setup:", c.stats.Setup)
	line("Loopback:", c.stats.Loop)
	line("ReadQ count:", c.readQ.Count())
	line("ReadQ high:", c.readQ.High())
	return str.String()
}

// Copy of statistics.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
