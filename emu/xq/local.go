/*
 * XQ - Frames answered by the controller itself.
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

const (
	loopForward = 2 // Loopback function, forward data.
	mopRequest  = 5 // Remote console request id.
	mopBoot     = 6 // Remote console boot.
)

// Handle loopback and remote console frames. Returns true if frame was
// consumed and should not be queued to the host.
func (c *Controller) processLocal(frame []byte) bool {
	if c.typ == DEQNA {
		return false
	}
	switch ether.FrameType(frame) {
	case ether.TypeLoopback:
		return c.processLoopback(frame)
	case ether.TypeMOPRC:
		return c.processRemoteConsole(frame)
	}
	return false
}

// Answer a loopback forward request addressed to this station.
func (c *Controller) processLoopback(frame []byte) bool {
	if len(frame) < ether.HeaderLen+2 {
		return false
	}
	offset := ether.HeaderLen + 2 + (int(frame[14]) | int(frame[15])<<8)
	if offset+8 > len(frame) {
		return false
	}
	function := int(frame[offset]) | int(frame[offset+1])<<8
	if function != loopForward {
		return false
	}

	phys := c.physical()
	dst := ether.Destination(frame)
	if !dst.IsMulticast() && dst != phys {
		return false
	}

	var next ether.MAC
	copy(next[:], frame[offset+2:offset+8])
	response := append([]byte(nil), frame...)
	ether.SetAddresses(response, next, phys)
	skip := offset + 8 - ether.HeaderLen - 2
	response[14] = byte(skip)
	response[15] = byte(skip >> 8)

	c.stats.Loop++
	debug.DebugDump(c.name, c.debugMsk, debugPacket|debugData, "xq-loopbackforward", response)
	if c.eth != nil {
		if err := c.eth.Write(response, nil); err != nil {
			debug.DebugDevf(c.name, c.debugMsk, debugWarn, "loopback forward: %v", err)
		}
	}
	return true
}

// MOP remote console request id and boot.
func (c *Controller) processRemoteConsole(frame []byte) bool {
	if len(frame) < 20 {
		return false
	}
	switch frame[16] {
	case mopRequest:
		receiptID := uint16(frame[18]) | uint16(frame[19])<<8
		c.systemID(ether.Source(frame), receiptID)
		return true
	case mopBoot:
		// Verification field is not checked.
		c.bootHost()
		return true
	}
	return false
}
