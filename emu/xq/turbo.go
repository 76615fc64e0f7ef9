/*
 * XQ - DELQA-T descriptor ring processing.
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
	"github.com/rcornwell/XQ/util/debug"
	"github.com/rcornwell/XQ/util/ether"
)

func (c *Controller) ringsStarted() bool {
	return (c.srr & SRRRESP) == SRRSTRT
}

func (c *Controller) readSlot(base uint32, index int) (RingDesc, error) {
	words := make([]uint16, ringSlotSize/2)
	err := c.bus.ReadWords(base+uint32(index*ringSlotSize), words)
	return DecodeRingDesc(words), err
}

// Check if host still owns slot, that is the ring is full.
func (c *Controller) slotHostOwned(base uint32, index int) bool {
	md3 := []uint16{0}
	if err := c.bus.ReadWords(base+uint32(index*ringSlotSize)+6, md3); err != nil {
		return true
	}
	return (md3[0] & MD3OWN) != 0
}

// Return slot to host. The status words go first and ownership last, the
// address words are left alone.
func (c *Controller) returnSlot(base uint32, index int, slot RingDesc) error {
	addr := base + uint32(index*ringSlotSize)
	words := slot.Encode()
	if err := c.bus.WriteWords(addr, words[:3]); err != nil {
		return err
	}
	c.bus.Barrier()
	return c.bus.WriteWords(addr+6, words[3:ringStatusSize/2])
}

// Fill receive ring from read queue.
func (c *Controller) processTurboRBDL() {
	if !c.ringsStarted() {
		return
	}
	base := c.init.RDRA
	consumed := 0

	for c.readQ.Count() != 0 {
		i := c.rbindx
		slot, err := c.readSlot(base, i)
		if err != nil {
			c.nxmError(err)
			return
		}
		if slot.HostOwned() {
			break
		}
		consumed++
		c.rbindx = (c.rbindx + 1) % RingReceive

		item := c.readQ.Head()
		if item.Used == 0 {
			if item.Len+ether.CRCSize < ether.MinPacket {
				c.stats.Runt++
				debug.DebugDevf(c.name, c.debugMsk, debugWarn, "runt detected, size = %d", item.Len)
				item.Pad(ether.MinPacket - ether.CRCSize)
			}
			if item.Len > ether.MaxPacket {
				c.stats.Giant++
				debug.DebugDevf(c.name, c.debugMsk, debugWarn, "giant detected, size = %d", item.Len)
				item.Truncate(ether.MaxPacket)
			}
			item.WithCRC()
		}
		total := item.Len + ether.CRCSize
		rbl := min(total-item.Used, ether.FrameSize)
		data := item.Data[item.Used : item.Used+rbl]
		item.Used += rbl

		if err := c.bus.WriteBytes(slot.Address(), data); err != nil {
			c.nxmError(err)
			return
		}

		slot.MD0 = 0
		slot.MD1 = uint16(rbl) & RMD1MCNT
		slot.MD2 = MD2RON | MD2TON
		if item.Used == rbl {
			slot.MD0 |= RMD0STP
		}
		if item.Used >= total {
			slot.MD0 |= RMD0ENP
		}
		if loss := c.readQ.TakeLoss(); loss != 0 {
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "read queue overflow, %d lost", loss)
			slot.MD2 |= MD2MIS
			c.stats.Dropped += loss
		}
		next := c.slotHostOwned(base, c.rbindx)
		if next {
			slot.MD2 |= MD2EOR
		}
		slot.MD3 |= MD3OWN
		if err := c.returnSlot(base, i, slot); err != nil {
			c.nxmError(err)
			return
		}
		if item.Used >= total {
			c.readQ.Remove()
		}
		if next {
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "receive ring full")
			break
		}
	}

	if consumed != 0 {
		c.setInt()
	}
}

// Send frames from transmit ring.
func (c *Controller) processTurboXBDL() {
	if !c.ringsStarted() {
		return
	}
	base := c.init.TDRA
	consumed := 0
	c.writeBuf = c.writeBuf[:0]

	for {
		i := c.tbindx
		slot, err := c.readSlot(base, i)
		if err != nil {
			c.nxmError(err)
			return
		}
		if slot.HostOwned() {
			break
		}
		c.tbindx = (c.tbindx + 1) % RingTransmit
		consumed++

		length := min(slot.ByteCount(), ether.FrameSize-len(c.writeBuf))
		start := len(c.writeBuf)
		c.writeBuf = c.writeBuf[:start+length]
		if err := c.bus.ReadBytes(slot.Address(), c.writeBuf[start:]); err != nil {
			c.writeBuf = c.writeBuf[:start]
			c.nxmError(err)
			return
		}

		if (slot.MD3 & MD3FOT) == 0 {
			err := c.turboSend()
			c.stats.Xmit++
			tdr := uint16(100+len(c.writeBuf)*8) & TMD1TDR
			if err != nil {
				debug.DebugDevf(c.name, c.debugMsk, debugWarn, "packet write error: %v", err)
				c.stats.Fail++
				slot.MD0 = TMD0ERR1
				slot.MD1 = tdr | TMD1LCA
			} else {
				slot.MD0 = 0
				slot.MD1 = tdr
			}
			c.writeBuf = c.writeBuf[:0]
			slot.MD2 = MD2RON | MD2TON
		}

		next := c.slotHostOwned(base, c.tbindx)
		if next {
			slot.MD2 |= MD2EOR
		}
		slot.MD3 |= MD3OWN
		if err := c.returnSlot(base, i, slot); err != nil {
			c.nxmError(err)
			return
		}
		if next {
			break
		}
	}

	if consumed == 0 {
		// Drivers that chain buffers may request transmit once per segment.
		debug.DebugDevf(c.name, c.debugMsk, debugWarn, "nothing to transmit")
		return
	}
	c.setInt()
	c.service()
}

// Send or loop back the completed turbo frame.
func (c *Controller) turboSend() error {
	debug.DebugDump(c.name, c.debugMsk, debugPacket|debugData, "xq-write", c.writeBuf)
	if (c.init.Mode & InitLOP) != 0 {
		if (c.init.Mode&InitINT) == 0 && c.eth == nil {
			return ErrNotAttached
		}
		c.readQ.Insert(ether.LoopbackPacket, c.writeBuf)
		return nil
	}
	if c.eth == nil {
		return ErrNotAttached
	}
	return c.eth.Write(append([]byte(nil), c.writeBuf...), nil)
}
