/*
 * XQ - Messages to simulation core.
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

package master

import "sync/atomic"

// Message types sent on master channel.
const (
	TimeClock = 1 + iota // Clock tick.
	Service              // Run device service routine.
	Reboot               // Host reboot requested by device.
	Start                // Start clock.
	Stop                 // Stop clock.
	Reset                // Bus reset.
)

type Packet struct {
	Msg    int    // Message type.
	Device string // Device name message is for.
	Data   []byte // Optional data.
}

var channel atomic.Pointer[chan Packet]

// Set channel that devices post requests to.
func SetChannel(ch chan Packet) {
	channel.Store(&ch)
}

// Post packet without blocking, returns false if it could not be queued.
func Post(packet Packet) bool {
	ch := channel.Load()
	if ch == nil {
		return false
	}
	select {
	case *ch <- packet:
		return true
	default:
		return false
	}
}
