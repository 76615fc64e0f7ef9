/*
 * XQ - Classic buffer descriptor list processing.
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
	"log/slog"

	"github.com/rcornwell/XQ/util/debug"
	"github.com/rcornwell/XQ/util/ether"
)

// Guest memory access failed, abort the walk.
func (c *Controller) nxmError(err error) {
	slog.Warn(c.name+": non-existent memory", "error", err)
	debug.DebugDevf(c.name, c.debugMsk, debugWarn, "NXM: %v", err)
	if c.mode == DELQAT {
		c.srr |= SRRFES | SRRNXM
		c.setInt()
		return
	}
	c.csrSetClr(CSRNI|CSRXI|CSRXL|CSRRL, 0)
}

// Claim descriptor at ba and read its flag, address and count words.
func (c *Controller) fetchDesc(ba uint32) (BufferDesc, error) {
	words := make([]uint16, 3)
	if err := c.bus.WriteWords(ba, []uint16{0xFFFF}); err != nil {
		return BufferDesc{}, err
	}
	if err := c.bus.ReadWords(ba+2, words); err != nil {
		return BufferDesc{}, err
	}
	return DecodeBufferDesc(append([]uint16{0xFFFF}, words...)), nil
}

// Write status words. Status 2 must be visible before status 1 since the
// driver trusts status 2 once status 1 shows completion.
func (c *Controller) updateStatus(ba uint32, status1, status2 uint16) error {
	if err := c.bus.WriteWords(ba+10, []uint16{status2}); err != nil {
		return err
	}
	c.bus.Barrier()
	return c.bus.WriteWords(ba+8, []uint16{status1})
}

// Start of receive list written.
func (c *Controller) dispatchRBDL() {
	debug.DebugDevf(c.name, c.debugMsk, debugTrace, "dispatch receive list")
	c.csrSetClr(0, CSRRL)
	c.rbdlBA = uint32(c.rbdl[1]&descAddrHigh)<<16 | uint32(c.rbdl[0]&^1)

	desc, err := c.fetchDesc(c.rbdlBA)
	if err != nil {
		c.nxmError(err)
		return
	}
	if !desc.Valid() {
		c.csrSetClr(CSRRL, 0)
		return
	}
	if c.readQ.Count() != 0 {
		c.processRBDL()
	}
}

// Start of transmit list written.
func (c *Controller) dispatchXBDL() {
	debug.DebugDevf(c.name, c.debugMsk, debugTrace, "dispatch transmit list")
	c.csrSetClr(0, CSRXL)
	c.abortTransmit()
	c.xbdlBA = uint32(c.xbdl[1]&descAddrHigh)<<16 | uint32(c.xbdl[0]&^1)
	c.processXBDL()
}

// Move read queue into receive buffers.
func (c *Controller) processRBDL() {
	if c.mode == DELQAT {
		c.processTurboRBDL()
		return
	}

	for range maxChain {
		desc, err := c.fetchDesc(c.rbdlBA)
		if err != nil {
			c.nxmError(err)
			return
		}
		if !desc.Valid() {
			c.csrSetClr(CSRRL, 0)
			return
		}
		if desc.Chain() {
			c.rbdlBA = desc.Address()
			continue
		}

		item := c.readQ.Head()
		if item == nil {
			return
		}

		status := make([]uint16, 2)
		if err := c.bus.ReadWords(c.rbdlBA+8, status); err != nil {
			c.nxmError(err)
			return
		}

		if item.Used == 0 {
			if item.Len < ether.MinPacket {
				c.stats.Runt++
				debug.DebugDevf(c.name, c.debugMsk, debugWarn, "runt detected, size = %d", item.Len)
				item.Pad(ether.MinPacket)
			}
			if item.Len > ether.MaxPacket {
				c.stats.Giant++
				debug.DebugDevf(c.name, c.debugMsk, debugWarn, "giant detected, size = %d", item.Len)
				item.Truncate(ether.MaxPacket)
			}
		}
		rbl := min(item.Len-item.Used, desc.Length())
		data := item.Data[item.Used : item.Used+rbl]
		item.Used += rbl

		if err := c.bus.WriteBytes(desc.Address(), data); err != nil {
			c.nxmError(err)
			return
		}

		// RBL 10:8 goes in status 1, RBL 7:0 twice in status 2.
		var status1 uint16
		switch item.Type {
		case ether.SetupPacket:
			c.stats.Setup++
			status1 = 0x2700
		case ether.LoopbackPacket:
			c.stats.Loop++
			status1 = 0x2000 | uint16(rbl)&0x0700
		default:
			rbl -= ether.MinPacket
			status1 = uint16(rbl) & 0x0700
		}
		if item.Used < item.Len {
			status1 |= 0xC000
		}
		status2 := uint16(rbl&0xFF)<<8 | uint16(rbl&0xFF)
		if loss := c.readQ.TakeLoss(); loss != 0 {
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "read queue overflow, %d lost", loss)
			status1 |= 0x0001
			c.stats.Dropped += loss
		}

		if err := c.updateStatus(c.rbdlBA, status1, status2); err != nil {
			c.nxmError(err)
			return
		}
		if item.Used >= item.Len {
			c.readQ.Remove()
		}
		c.csrSetClr(CSRRI, 0)
		c.rbdlBA += descSize
	}
	c.chainLimit("receive", c.rbdlBA)
}

// Walk ran away, most likely a chain loop.
func (c *Controller) chainLimit(list string, ba uint32) {
	slog.Warn(c.name+": "+list+" descriptor list too long", "address", ba)
	c.nxmError(ErrChainLimit)
}

// Gather transmit buffers and send at end of message.
func (c *Controller) processXBDL() {
	if c.xmitPending {
		return
	}
	c.writeBuf = c.writeBuf[:0]

	for range maxChain {
		desc, err := c.fetchDesc(c.xbdlBA)
		if err != nil {
			c.nxmError(err)
			return
		}
		if !desc.Valid() {
			c.csrSetClr(CSRXL, 0)
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "transmit list empty")
			return
		}
		length := desc.Length()
		if desc.Chain() {
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "transmit chain to %08o", desc.Address())
			c.xbdlBA = desc.Address()
			continue
		}

		length = min(length, ether.FrameSize-len(c.writeBuf))
		start := len(c.writeBuf)
		c.writeBuf = c.writeBuf[:start+length]
		if err := c.bus.ReadBytes(desc.Address(), c.writeBuf[start:]); err != nil {
			c.writeBuf = c.writeBuf[:start]
			c.nxmError(err)
			return
		}

		if !desc.EndOfMessage() {
			if err := c.updateStatus(c.xbdlBA, DescV|DescC, 1); err != nil {
				c.nxmError(err)
				return
			}
			c.xbdlBA += descSize
			continue
		}

		loop := (c.csr&CSRRE) == 0 && ((c.csr&CSRIL) == 0 || (c.csr&CSREL) != 0)
		if !loop && !desc.Setup() {
			pending, ok := c.transmit()
			if pending || !ok {
				return
			}
			c.xbdlBA += descSize
			continue
		}

		if desc.Setup() {
			c.processSetup()
			c.readQ.Insert(ether.SetupPacket, c.writeBuf)
		} else {
			c.readQ.Insert(ether.LoopbackPacket, c.writeBuf)
		}
		if err := c.updateStatus(c.xbdlBA, 0, 1); err != nil {
			c.nxmError(err)
			return
		}
		c.writeBuf = c.writeBuf[:0]
		c.resetSanity()
		c.csrSetClr(CSRXI, 0)
		if (c.csr & CSRRL) == 0 {
			c.processRBDL()
		}
		c.xbdlBA += descSize
	}
	c.chainLimit("transmit", c.xbdlBA)
}

// Hand write buffer to transport. pending is set if a completion will
// follow, otherwise the failure has been written back and ok reports if
// that worked.
func (c *Controller) transmit() (pending bool, ok bool) {
	debug.DebugDump(c.name, c.debugMsk, debugPacket|debugData, "xq-write", c.writeBuf)
	if c.eth == nil {
		return false, c.writeComplete(ErrNotAttached)
	}
	gen := c.xmitGen
	done := func(err error) {
		select {
		case c.completions <- completion{gen: gen, err: err}:
		default:
			slog.Warn(c.name + ": transmit completion dropped")
		}
		c.wake()
	}
	frame := append([]byte(nil), c.writeBuf...)
	if err := c.eth.Write(frame, done); err != nil {
		return false, c.writeComplete(err)
	}
	c.xmitPending = true
	return true, true
}

// Write status for the end of message descriptor. Returns false if the
// status could not be written.
func (c *Controller) writeComplete(err error) bool {
	tdr := uint16(100+len(c.writeBuf)*8) & TMD1TDR
	c.stats.Xmit++
	status1 := uint16(0)
	if err != nil {
		debug.DebugDevf(c.name, c.debugMsk, debugWarn, "packet write error: %v", err)
		c.stats.Fail++
		status1 = DescC
	}
	if serr := c.updateStatus(c.xbdlBA, status1, tdr); serr != nil {
		c.nxmError(serr)
		return false
	}
	c.csrSetClr(CSRXI, 0)
	c.resetSanity()
	c.writeBuf = c.writeBuf[:0]
	return true
}

// Apply transmit completions, resuming the held walk.
func (c *Controller) drainCompletions() {
	for {
		select {
		case comp := <-c.completions:
			if comp.gen != c.xmitGen || !c.xmitPending {
				continue
			}
			c.xmitPending = false
			if c.writeComplete(comp.err) {
				c.xbdlBA += descSize
				c.processXBDL()
			}
		default:
			return
		}
	}
}
