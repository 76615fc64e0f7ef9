/*
 * XQ - Interrupt request handling.
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

// Request interrupt. In turbo mode the request is held until ICR enables it.
func (c *Controller) setInt() {
	if c.mode == DELQAT {
		if (c.icr & ICREna) == 0 {
			c.held = true
			return
		}
		c.held = false
	}
	if c.irq {
		return
	}
	debug.DebugDevf(c.name, c.debugMsk, debugTrace, "generate interrupt")
	c.irq = true
	c.intr.Raise(c.canonical)
}

// Drop interrupt request. intack is set when the request was taken by
// a vector acknowledge.
func (c *Controller) clrInt(intack bool) {
	if !c.irq {
		return
	}
	c.irq = false
	c.intr.Clear(c.canonical, intack)
}

// Vector acknowledge from bus. Returns vector if request was pending.
func (c *Controller) Acknowledge() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.irq {
		return 0, false
	}
	c.clrInt(true)
	return int(c.vector), true
}

// Interrupt request pending.
func (c *Controller) Interrupting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.irq
}

// Update CSR and derive interrupt request from IE, XI and RI edges.
func (c *Controller) csrSetClr(set, clear uint16) {
	saved := c.csr
	c.csr = (c.csr | set) &^ clear
	if saved != c.csr {
		debug.DebugDevf(c.name, c.debugMsk, debugCSR, "csr %04x -> %04x", saved, c.csr)
	}
	changed := saved ^ c.csr

	if (changed & CSRIE) != 0 {
		if (clear&CSRIE) != 0 && c.irq {
			c.clrInt(false)
		}
		if (set&CSRIE) != 0 && (c.csr&csrXIRI) != 0 && !c.irq {
			c.setInt()
		}
		return
	}

	if (c.csr & CSRIE) == 0 {
		return
	}
	switch {
	case (changed&set&csrXIRI) != 0 && !c.irq:
		c.setInt()
	case (changed&clear&csrXIRI) != 0 && (c.csr&csrXIRI) == 0 && c.irq:
		c.clrInt(false)
	}
}
