/*
 * XQ - Setup frame and filter processing.
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
	"fmt"
	"strings"

	"github.com/rcornwell/XQ/util/debug"
	"github.com/rcornwell/XQ/util/ether"
)

// Process setup frame in write buffer. Addresses are stored in columns,
// address i byte j is at offset (i + 1) + j * 8, the second group of seven
// starts at 0101.
func (c *Controller) processSetup() {
	msg := c.writeBuf
	length := len(msg)
	at := func(off int) byte {
		if off < length {
			return msg[off]
		}
		return 0
	}

	c.setup.macs = [FilterMax]ether.MAC{}
	for i := range 7 {
		for j := range 6 {
			c.setup.macs[i][j] = at((i + 1) + j*8)
			if length > 0o160 {
				c.setup.macs[i+7][j] = at((i + 0o101) + j*8)
			}
		}
	}

	// Any setup frame turns off promiscuous mode.
	c.setup.promiscuous = false
	if length > setupLong {
		flags := uint16(length)
		c.setup.multicast = (flags & SetupMC) != 0
		c.setup.promiscuous = (flags & SetupPM) != 0
		switch (flags & SetupLD) >> 2 {
		case 1:
			c.setup.l1 = false
		case 2:
			c.setup.l2 = false
		case 3:
			c.setup.l3 = false
		}
		c.sanity.quarterSecs = sanityQuarterSecs[(flags&SetupST)>>4]
	}

	if c.sanity.enabled != 2 {
		if (c.csr & CSRSE) != 0 {
			c.sanity.enabled = 1
		} else {
			c.sanity.enabled = 0
		}
	}
	c.resetSanity()
	c.loadFilter()

	if length > 0 && msg[0] != 0 {
		c.processMOP()
	}
	c.setup.valid = true
	c.debugSetup()
}

// Give transport the non zero setup addresses.
func (c *Controller) loadFilter() {
	if c.eth == nil {
		return
	}
	addrs := c.filterAddrs()
	if err := c.eth.Filter(addrs, c.setup.multicast, c.setup.promiscuous); err != nil {
		debug.DebugDevf(c.name, c.debugMsk, debugWarn, "filter: %v", err)
	}
}

func (c *Controller) filterAddrs() []ether.MAC {
	addrs := []ether.MAC{}
	for _, mac := range c.setup.macs {
		if !mac.IsZero() {
			addrs = append(addrs, mac)
		}
	}
	return addrs
}

// Station address used for replies.
func (c *Controller) physical() ether.MAC {
	switch {
	case c.mode == DELQAT:
		return c.init.Phys
	case c.setup.valid:
		return c.setup.macs[0]
	}
	return c.mac
}

// MOP element blocks at 0200 in the setup frame. Each is type, 24 bit
// address and 16 bit size.
func (c *Controller) processMOP() {
	if c.typ == DEQNA {
		return
	}
	msg := c.writeBuf
	for off := mebStart; off+mebSize <= mebEnd && off+mebSize <= len(msg); off += mebSize {
		meb := msg[off : off+mebSize]
		if meb[0] == 0 {
			break
		}
		addr := uint32(meb[3])<<16 | uint32(meb[2])<<8 | uint32(meb[1])
		debug.DebugDevf(c.name, c.debugMsk, debugSetup, "MEB type %d addr %08o size %d",
			meb[0], addr, uint16(meb[5])<<8|uint16(meb[4]))
		switch meb[0] {
		case 1: // Read Ethernet address.
			if err := c.bus.WriteBytes(addr, c.setup.macs[0][:]); err != nil {
				c.nxmError(err)
				return
			}
		case 10: // DELQA-T ROM version.
			if c.typ == DELQAT {
				if err := c.bus.WriteWords(addr, []uint16{2, 0, 0}); err != nil {
					c.nxmError(err)
					return
				}
			}
		}
	}
}

func (c *Controller) debugSetup() {
	if (c.debugMsk & debugSetup) == 0 {
		return
	}
	if len(c.writeBuf) > 0 && c.writeBuf[0] != 0 {
		debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> MOP info present")
	}
	for i, mac := range c.setup.macs {
		debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> set addr[%d]: %s", i, mac)
	}
	if length := len(c.writeBuf); length > setupLong {
		flags := []string{}
		for _, f := range []struct {
			bit  uint16
			name string
		}{{SetupMC, "MC"}, {SetupPM, "PM"}, {SetupLD, "LD"}, {SetupST, "ST"}} {
			if (uint16(length) & f.bit) != 0 {
				flags = append(flags, f.name)
			}
		}
		debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> length %d LD:%d ST:%d info: %s",
			length, (length&int(SetupLD))>>2, (length&int(SetupST))>>4, strings.Join(flags, " "))
	}
}

func (c *Controller) debugInit() {
	if (c.debugMsk & debugSetup) == 0 {
		return
	}
	ib := c.init
	mode := []string{}
	for _, f := range []struct {
		bit  uint16
		name string
	}{{InitPRO, "PRO"}, {InitINT, "INT"}, {InitDRT, "DRT"}, {InitDTC, "DTC"}, {InitLOP, "LOP"}} {
		if (ib.Mode & f.bit) != 0 {
			mode = append(mode, f.name)
		}
	}
	debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> init block mode: %s", strings.Join(mode, " "))
	debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> physical address: %s", ib.Phys)
	debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> multicast hash: % X", ib.Hash[:])
	debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> options: %04x vector: %03o timeout: %d",
		ib.Options, ib.Vector, ib.HITimeout)
	debug.DebugDevf(c.name, c.debugMsk, debugSetup, "setup> rings: receive %08o transmit %08o",
		ib.RDRA, ib.TDRA)
}

// Describe filters for show command.
func (c *Controller) filterString() string {
	var str strings.Builder
	if c.mode == DELQAT {
		fmt.Fprintf(&str, "Physical Address=%s\n", c.init.Phys)
		fmt.Fprintf(&str, "Multicast Hash: % X\n", c.init.Hash[:])
		if (c.init.Mode & InitPRO) != 0 {
			str.WriteString("Promiscuous Receive Mode\n")
		}
		return str.String()
	}
	str.WriteString("Filters:\n")
	for i, mac := range c.setup.macs {
		fmt.Fprintf(&str, "  [%2d]: %s\n", i, mac)
	}
	if c.setup.multicast {
		str.WriteString("All Multicast Receive Mode\n")
	}
	if c.setup.promiscuous {
		str.WriteString("Promiscuous Receive Mode\n")
	}
	return str.String()
}
