/*
 * XQ - Sanity timer and MOP system id.
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
	"sync/atomic"

	"github.com/rcornwell/XQ/util/debug"
	"github.com/rcornwell/XQ/util/ether"
)

// Receipt numbers for unsolicited system id frames, shared by all units.
var receipt atomic.Uint32

// Start quarter second timer service.
func (c *Controller) startTimer() {
	if c.timerOn {
		return
	}
	c.timerOn = true
	c.timerSeq++
	seq := c.timerSeq
	c.events.AddEvent(c, func(_ int) int { return c.timerEvent(seq) }, quarterSecond, evTimer)
}

func (c *Controller) stopTimer() {
	if !c.timerOn {
		return
	}
	c.timerOn = false
	c.timerSeq++
	c.events.CancelEvent(c, evTimer)
}

// Quarter second tick.
func (c *Controller) timerEvent(seq int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.timerOn || seq != c.timerSeq {
		return 0
	}
	c.tick()
	return quarterSecond
}

func (c *Controller) tick() {
	if c.wanted.Load() {
		c.service()
	} else {
		c.drainCompletions()
	}

	if c.sanity.enabled != 0 && !c.sanity.expired {
		c.sanity.timer--
		if c.sanity.timer <= 0 {
			c.sanity.expired = true
			c.sanityExpired()
		}
	}

	c.idtmr--
	if c.idtmr <= 0 {
		c.systemID(ether.MOPMulticast, 0)
	}
}

func (c *Controller) sanityExpired() {
	if c.mode != DELQAT {
		c.bootHost()
		return
	}
	// Host inactivity drops back out of turbo mode.
	slog.Info(c.name + ": DELQA-T host inactivity timer expired")
	debug.DebugDevf(c.name, c.debugMsk, debugSanity, "host inactivity expired")
	c.mode = DELQA
	c.iba = 0
	c.srr = 0
	c.vars = VarMS | VarOS
}

// Restart sanity countdown.
func (c *Controller) resetSanity() {
	if c.sanity.enabled == 0 {
		return
	}
	debug.DebugDevf(c.name, c.debugMsk, debugSanity, "sanity timer reset to %d quarter seconds",
		c.sanity.quarterSecs)
	c.sanity.timer = c.sanity.quarterSecs
	c.sanity.expired = false
}

// Ask host to reboot the guest.
func (c *Controller) bootHost() {
	slog.Warn(c.name + ": requesting host reboot")
	if reboot := c.Reboot; reboot != nil {
		reboot()
	}
}

// Send MOP system id frame to dst. A zero receiptID takes the next shared
// receipt number.
func (c *Controller) systemID(dst ether.MAC, receiptID uint16) {
	c.idtmr = systemIDSecs * 4
	if c.typ == DEQNA || c.eth == nil {
		return
	}

	if receiptID == 0 {
		receiptID = uint16(receipt.Add(1) - 1)
	}
	msg := ether.NewFrame(dst, c.physical(), ether.TypeMOPRC, ether.MinPacket)
	copy(msg[14:], []byte{
		0x1C, 0x00, // Character count.
		0x07, 0x00, // System id code.
		byte(receiptID), byte(receiptID >> 8),
		0x01, 0x00, 0x03, 0x03, 0x01, 0x00, // MOP version 3.1.0.
		0x02, 0x00, 0x02, 0x00, 0x00, // Functions.
		0x07, 0x00, 0x06, // Hardware address.
	})
	copy(msg[34:40], c.mac[:])
	device := byte(0x11)
	if c.typ == DELQAT {
		device = 0x4B
	}
	copy(msg[40:], []byte{37, 0x00, 0x01, device})

	debug.DebugDump(c.name, c.debugMsk, debugPacket|debugData, "xq-systemid", msg)
	if err := c.eth.Write(msg, nil); err != nil {
		debug.DebugDevf(c.name, c.debugMsk, debugWarn, "system id: %v", err)
	}
}
