/*
 * XQ - Register window.
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
)

// Register behaviour for the active mode.
type regMode interface {
	read(c *Controller, index int) uint16
	write(c *Controller, index int, data uint16)
	name(index int, write bool) string
}

type classicRegs struct{}

type turboRegs struct{}

func (c *Controller) regs() regMode {
	if c.mode == DELQAT {
		return turboRegs{}
	}
	return classicRegs{}
}

// Read register index of window.
func (c *Controller) ReadReg(index int) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	index &= 7
	regs := c.regs()
	data := regs.read(c, index)
	debug.DebugDevf(c.name, c.debugMsk, debugReg, "read %s = %06o", regs.name(index, false), data)
	return data
}

// Write register index of window.
func (c *Controller) WriteReg(index int, data uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index &= 7
	regs := c.regs()
	debug.DebugDevf(c.name, c.debugMsk, debugReg, "write %s = %06o", regs.name(index, true), data)
	regs.write(c, index, data)
}

func (classicRegs) name(index int, write bool) string {
	if write {
		return writeNames[index]
	}
	return readNames[index]
}

func (classicRegs) read(c *Controller, index int) uint16 {
	switch index {
	case regAddr0, regAddr1:
		if (c.csr & CSREL) != 0 {
			return 0xFF00 | uint16(c.checksum[index])
		}
		return 0xFF00 | uint16(c.mac[index])
	case regVar:
		debug.DebugDevf(c.name, c.debugMsk, debugVar, "var %04x vec=%03o", c.vars, c.vars&VarIV)
		return c.vars
	case regCSR:
		return c.csr
	default:
		return 0xFF00 | uint16(c.mac[index])
	}
}

func (classicRegs) write(c *Controller, index int, data uint16) {
	switch index {
	case regAddr0:
		if c.typ == DELQAT {
			c.iba = (c.iba & 0xFFFF0000) | uint32(data)
		}
	case regAddr1:
		if c.typ != DELQAT {
			return
		}
		if (c.iba&0xFFFF) == turboKeyLow && data == turboKeyHigh {
			c.enterTurbo()
		}
		c.iba = (c.iba & 0xFFFF) | uint32(data)<<16
	case regRBDLL:
		c.rbdl[0] = data
	case regRBDLH:
		c.rbdl[1] = data
		c.dispatchRBDL()
	case regXBDLL:
		c.xbdl[0] = data
	case regXBDLH:
		c.xbdl[1] = data
		c.dispatchXBDL()
	case regVar:
		c.writeVar(data)
	case regCSR:
		c.writeCSR(data)
	}
}

func (turboRegs) name(index int, write bool) string {
	if write {
		return turboWriteNames[index]
	}
	return turboReadNames[index]
}

func (turboRegs) read(c *Controller, index int) uint16 {
	if index == regVar {
		return c.srr
	}
	return classicRegs{}.read(c, index)
}

func (turboRegs) write(c *Controller, index int, data uint16) {
	switch index {
	case regAddr0:
		c.iba = (c.iba & 0xFFFF0000) | uint32(data)
	case regAddr1:
		c.iba = (c.iba & 0xFFFF) | uint32(data)<<16
	case regRBDLL:
		c.writeICR(data)
	case regXBDLL:
		c.writeSRQR(data)
	case regCSR:
		c.writeARQR(data)
	}
}

// Switch to turbo ring mode. Receive stays off until rings are started.
func (c *Controller) enterTurbo() {
	debug.DebugDevf(c.name, c.debugMsk, debugSetup, "entering DELQA-T mode")
	c.mode = DELQAT
	c.srr = SRRTRBO
	c.abortTransmit()
	c.cancelPoll()
	if c.eth != nil {
		_ = c.eth.ClearAsync()
	}
}

// Vector address register.
func (c *Controller) writeVar(data uint16) {
	saved := c.vars
	if c.typ == DEQNA {
		c.vars = data & VarIV
	} else {
		c.vars = (c.vars & varRO) | (data & varRW)
		if (c.vars & VarMS) == 0 {
			c.mode = DEQNA
			c.vars &^= VarOS | VarRS | VarST
		} else {
			c.mode = DELQA
		}

		// Self test completes at once.
		if (c.vars & VarRS) != 0 {
			c.vars &^= VarRS
			if c.eth == nil {
				c.vars |= VarS1
			} else {
				c.vars &^= VarST
			}
		}
	}
	c.vector = data & VarIV
	debug.DebugDevf(c.name, c.debugMsk, debugVar, "var %04x -> %04x vec=%03o", saved, c.vars, c.vector)
}

// Control and status register.
func (c *Controller) writeCSR(data uint16) {
	set := data & csrRW
	clear := ((data ^ csrRW) & csrRW) | (data & csrW1)
	if (data & CSRXI) != 0 {
		clear |= CSRNI
	}

	// Reset on falling edge of SR.
	if (c.csr & CSRSR &^ data) != 0 {
		c.swReset()
		return
	}

	switch {
	case (^c.csr & CSRRE & data) != 0:
		c.startReceiver()
	case (c.csr & CSRRE &^ data) != 0:
		c.stopReceiver()
	}
	c.csrSetClr(set, clear)
}

// Turbo interrupt control register.
func (c *Controller) writeICR(data uint16) {
	old := c.icr
	c.icr = data & ICREna
	if (old&ICREna) == 0 && (c.icr&ICREna) != 0 && c.held {
		c.setInt()
	}
}

// Turbo synchronous request register.
func (c *Controller) writeSRQR(data uint16) {
	c.srr = data & srqrRW
	switch data & srqrRW {
	case SRQRStrt:
		c.startRings()
	case SRQRStop:
		c.stopReceiver()
	}
	c.resetSanity()
	c.setInt()
}

// Read init block and start ring processing.
func (c *Controller) startRings() {
	c.stats.Setup++
	defer c.startReceiver()
	buf := make([]byte, initBlockSize)
	if err := c.bus.ReadBytes(c.iba, buf); err != nil {
		c.nxmError(err)
		return
	}
	ib, err := DecodeInitBlock(buf)
	if err != nil {
		c.nxmError(err)
		return
	}
	c.init = ib
	c.debugInit()

	c.vector = ib.Vector
	c.rbindx = 0
	c.tbindx = 0
	if c.sanity.enabled != 0 && (ib.Options&InitHIT) != 0 {
		c.sanity.quarterSecs = 4 * int(ib.HITimeout)
	}
	c.icr = ib.Options & InitIE
	if c.eth != nil {
		err := c.eth.FilterHash(ib.Phys, (ib.Mode&InitPRO) != 0, ib.Hash)
		if err != nil {
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "filter hash: %v", err)
		}
	}
}

// Turbo asynchronous request register.
func (c *Controller) writeARQR(data uint16) {
	if (data & ARQRTRQ) != 0 {
		c.processTurboXBDL()
	}
	if (data & ARQRRRQ) != 0 {
		c.processTurboRBDL()
	}
	if (data & ARQRSR) != 0 {
		c.swReset()
	}
	c.resetSanity()
}

// Software reset from CSR SR or ARQR.
func (c *Controller) swReset() {
	debug.DebugDevf(c.name, c.debugMsk, debugTrace, "software reset")
	c.stats.Reset++
	if c.typ == DELQAT {
		c.mode = DELQA
		c.iba = 0
		c.srr = 0
	}
	c.abortTransmit()
	c.csrSetClr(CSRXL|CSRRL, ^(CSRXL | CSRRL))
	if c.eth != nil {
		c.csrSetClr(CSROK, 0)
	}
	c.clrInt(false)
	c.held = false
	c.readQ.Clear()

	c.setup.multicast = false
	c.setup.promiscuous = false
	c.loadFilter()
	c.stopReceiver()
}
