/*
 * XQ - Descriptor and init block encoding.
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
	"encoding/binary"
	"fmt"

	"github.com/rcornwell/XQ/util/ether"
)

// Classic buffer descriptor, six words in guest memory.
type BufferDesc struct {
	Flag    uint16 // Set to 0xFFFF when controller fetches descriptor.
	Bits    uint16 // Flags and address bits 21:16.
	Addr    uint16 // Address bits 15:0.
	Count   uint16 // Two's complement word count.
	Status1 uint16
	Status2 uint16
}

// Build a descriptor for length bytes at addr. Odd byte flags in bits
// are counted as part of the word count.
func NewBufferDesc(addr uint32, length int, bits uint16) BufferDesc {
	bytes := length
	if (bits & DescH) != 0 {
		bytes++
	}
	if (bits & DescL) != 0 {
		bytes++
	}
	words := uint16((bytes + 1) / 2)
	return BufferDesc{
		Flag:  0,
		Bits:  (bits &^ descAddrHigh) | uint16(addr>>16)&descAddrHigh,
		Addr:  uint16(addr),
		Count: ^words + 1,
	}
}

func DecodeBufferDesc(words []uint16) BufferDesc {
	var d BufferDesc
	fields := []*uint16{&d.Flag, &d.Bits, &d.Addr, &d.Count, &d.Status1, &d.Status2}
	for i := range min(len(words), len(fields)) {
		*fields[i] = words[i]
	}
	return d
}

func (d BufferDesc) Encode() []uint16 {
	return []uint16{d.Flag, d.Bits, d.Addr, d.Count, d.Status1, d.Status2}
}

func (d BufferDesc) Valid() bool {
	return (d.Bits & DescV) != 0
}

func (d BufferDesc) Chain() bool {
	return (d.Bits & DescC) != 0
}

func (d BufferDesc) EndOfMessage() bool {
	return (d.Bits & DescE) != 0
}

func (d BufferDesc) Setup() bool {
	return (d.Bits & DescS) != 0
}

// 22 bit buffer address.
func (d BufferDesc) Address() uint32 {
	return uint32(d.Bits&descAddrHigh)<<16 | uint32(d.Addr)
}

// Buffer length in bytes.
func (d BufferDesc) Length() int {
	words := ^d.Count + 1
	length := int(words) * 2
	if (d.Bits & DescH) != 0 {
		length--
	}
	if (d.Bits & DescL) != 0 {
		length--
	}
	if length < 0 {
		length = 0
	}
	return length
}

func (d BufferDesc) String() string {
	return fmt.Sprintf("bits=%04x addr=%08o len=%d status=%04x,%04x",
		d.Bits&^descAddrHigh, d.Address(), d.Length(), d.Status1, d.Status2)
}

// Turbo ring slot, eight words. The first four are returned to the host.
type RingDesc struct {
	MD0  uint16
	MD1  uint16
	MD2  uint16
	MD3  uint16 // Ownership, first of two and byte count.
	LAdr uint16 // Address bits 15:0.
	HAdr uint16 // Address bits 21:16.
	Rsvd [2]uint16
}

// Build a device owned slot for length bytes at addr.
func NewRingDesc(addr uint32, length int, md3 uint16) RingDesc {
	return RingDesc{
		MD3:  (md3 &^ MD3BCT) | uint16(length)&MD3BCT,
		LAdr: uint16(addr),
		HAdr: uint16(addr>>16) & descAddrHigh,
	}
}

func DecodeRingDesc(words []uint16) RingDesc {
	var r RingDesc
	fields := []*uint16{&r.MD0, &r.MD1, &r.MD2, &r.MD3, &r.LAdr, &r.HAdr, &r.Rsvd[0], &r.Rsvd[1]}
	for i := range min(len(words), len(fields)) {
		*fields[i] = words[i]
	}
	return r
}

func (r RingDesc) Encode() []uint16 {
	return []uint16{r.MD0, r.MD1, r.MD2, r.MD3, r.LAdr, r.HAdr, r.Rsvd[0], r.Rsvd[1]}
}

// Slot belongs to the host.
func (r RingDesc) HostOwned() bool {
	return (r.MD3 & MD3OWN) != 0
}

func (r RingDesc) Address() uint32 {
	return uint32(r.HAdr&descAddrHigh)<<16 | uint32(r.LAdr)
}

func (r RingDesc) ByteCount() int {
	return int(r.MD3 & MD3BCT)
}

// Turbo initialization block.
type InitBlock struct {
	Mode         uint16
	Phys         ether.MAC
	Hash         ether.MultiHash
	RDRA         uint32 // Receive ring base.
	TDRA         uint32 // Transmit ring base.
	Options      uint16
	Vector       uint16
	HITimeout    uint16 // Host inactivity timeout in seconds.
	BootPassword [6]byte
}

// Decode init block from guest memory bytes.
func DecodeInitBlock(data []byte) (InitBlock, error) {
	var ib InitBlock
	if len(data) < initBlockSize {
		return ib, fmt.Errorf("init block too short: %d bytes", len(data))
	}
	le := binary.LittleEndian
	ib.Mode = le.Uint16(data[0:])
	copy(ib.Phys[:], data[2:8])
	copy(ib.Hash[:], data[8:16])
	ib.RDRA = uint32(le.Uint16(data[16:])) | uint32(le.Uint16(data[18:]))<<16
	ib.TDRA = uint32(le.Uint16(data[20:])) | uint32(le.Uint16(data[22:]))<<16
	ib.Options = le.Uint16(data[24:])
	ib.Vector = le.Uint16(data[26:])
	ib.HITimeout = le.Uint16(data[28:])
	copy(ib.BootPassword[:], data[30:36])
	return ib, nil
}

func (ib InitBlock) Encode() []byte {
	data := make([]byte, initBlockSize)
	le := binary.LittleEndian
	le.PutUint16(data[0:], ib.Mode)
	copy(data[2:8], ib.Phys[:])
	copy(data[8:16], ib.Hash[:])
	le.PutUint16(data[16:], uint16(ib.RDRA))
	le.PutUint16(data[18:], uint16(ib.RDRA>>16))
	le.PutUint16(data[20:], uint16(ib.TDRA))
	le.PutUint16(data[22:], uint16(ib.TDRA>>16))
	le.PutUint16(data[24:], ib.Options)
	le.PutUint16(data[26:], ib.Vector)
	le.PutUint16(data[28:], ib.HITimeout)
	copy(data[30:36], ib.BootPassword[:])
	return data
}
