/*
 * XQ - Ethernet addresses and frame constants.
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
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

const (
	MinPacket = 60                  // Smallest frame without CRC.
	MaxPacket = 1514                // Largest frame without CRC.
	CRCSize   = 4                   // Frame check sequence.
	FrameSize = MaxPacket + CRCSize // Largest frame with CRC.
	HeaderLen = 14                  // Destination, source, type.
)

// Station or multicast address.
type MAC [6]byte

// Multicast hash filter as programmed by a turbo init block.
type MultiHash [8]byte

var (
	Broadcast    = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	MOPMulticast = MAC{0xab, 0x00, 0x00, 0x02, 0x00, 0x00}
)

var ErrBadMAC = errors.New("invalid ethernet address")

// Format as XX:XX:XX:XX:XX:XX.
func (m MAC) String() string {
	var str strings.Builder
	for i, by := range m {
		if i != 0 {
			str.WriteByte(':')
		}
		fmt.Fprintf(&str, "%02X", by)
	}
	return str.String()
}

func (m MAC) IsZero() bool {
	return m == MAC{}
}

func (m MAC) IsMulticast() bool {
	return (m[0] & 1) != 0
}

func (m MAC) IsBroadcast() bool {
	return m == Broadcast
}

// Parse a station address. Accepts ':', '-' or '.' between bytes, or twelve
// hex digits with no separator. Zero, broadcast and multicast addresses are
// rejected since a controller can't use them as its own address.
func ParseMAC(str string) (MAC, error) {
	var mac MAC
	var parts []string

	switch {
	case strings.ContainsAny(str, ":-."):
		parts = strings.FieldsFunc(str, func(r rune) bool {
			return r == ':' || r == '-' || r == '.'
		})
	case len(str) == 12:
		for i := 0; i < 12; i += 2 {
			parts = append(parts, str[i:i+2])
		}
	}

	if len(parts) != len(mac) {
		return mac, fmt.Errorf("%w: %s", ErrBadMAC, str)
	}
	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 {
			return mac, fmt.Errorf("%w: %s", ErrBadMAC, str)
		}
		by, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("%w: %s", ErrBadMAC, str)
		}
		mac[i] = byte(by)
	}

	if mac.IsZero() || mac.IsMulticast() {
		return mac, fmt.Errorf("%w: %s", ErrBadMAC, str)
	}
	return mac, nil
}

// Check address against AUTODIN II hash filter.
func (h MultiHash) Match(addr MAC) bool {
	crc := crc32.ChecksumIEEE(addr[:])
	key := byte(0x3f & (crc >> 26))
	key ^= 0x3f
	return (h[key>>3] & (1 << (key & 7))) != 0
}

// Set the bit for an address, inverse of Match.
func (h *MultiHash) Add(addr MAC) {
	crc := crc32.ChecksumIEEE(addr[:])
	key := byte(0x3f&(crc>>26)) ^ 0x3f
	h[key>>3] |= 1 << (key & 7)
}

// Frame check sequence, in wire order.
func FCS(frame []byte) [CRCSize]byte {
	crc := crc32.ChecksumIEEE(frame)
	return [CRCSize]byte{byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24)}
}
