/*
 * XQ - Ethernet frame helpers.
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

package ether

import (
	"github.com/google/netstack/tcpip"
	"github.com/google/netstack/tcpip/header"
)

const (
	TypeLoopback uint16 = 0x9000 // Ethernet configuration testing protocol.
	TypeMOPRC    uint16 = 0x6002 // MOP remote console.
)

// Build a frame of size bytes with header filled in. Payload is zero.
func NewFrame(dst, src MAC, ty uint16, size int) []byte {
	if size < HeaderLen {
		size = HeaderLen
	}
	frame := make([]byte, size)
	header.Ethernet(frame).Encode(&header.EthernetFields{
		SrcAddr: tcpip.LinkAddress(src[:]),
		DstAddr: tcpip.LinkAddress(dst[:]),
		Type:    tcpip.NetworkProtocolNumber(ty),
	})
	return frame
}

// Ethernet type of frame, 0 if frame is too short.
func FrameType(frame []byte) uint16 {
	if len(frame) < HeaderLen {
		return 0
	}
	return uint16(header.Ethernet(frame).Type())
}

func Destination(frame []byte) MAC {
	var mac MAC
	if len(frame) >= HeaderLen {
		copy(mac[:], header.Ethernet(frame).DestinationAddress())
	}
	return mac
}

func Source(frame []byte) MAC {
	var mac MAC
	if len(frame) >= HeaderLen {
		copy(mac[:], header.Ethernet(frame).SourceAddress())
	}
	return mac
}

// Overwrite destination and source addresses.
func SetAddresses(frame []byte, dst, src MAC) {
	if len(frame) < HeaderLen {
		return
	}
	copy(frame[0:6], dst[:])
	copy(frame[6:12], src[:])
}
