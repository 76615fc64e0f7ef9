/*
 * XQ - Receive queue.
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

// Origin of a queued packet.
type PacketType int

const (
	SetupPacket    PacketType = iota // Looped back setup frame.
	LoopbackPacket                   // Looped back transmit frame.
	NormalPacket                     // Received from the network.
)

// A packet waiting to be delivered into guest buffers.
type Item struct {
	Type PacketType
	Data []byte // Frame data, CRC appended by WithCRC.
	Len  int    // Frame length not counting CRC.
	Used int    // Bytes already delivered.
	crc  bool
}

// Zero fill packet out to size bytes.
func (item *Item) Pad(size int) {
	for len(item.Data) < size {
		item.Data = append(item.Data, 0)
	}
	if !item.crc && item.Len < size {
		item.Len = size
	}
}

// Cut the frame down to size bytes, dropping any CRC.
func (item *Item) Truncate(size int) {
	if size < len(item.Data) {
		item.Data = item.Data[:size]
	}
	if item.Len > size {
		item.Len = size
	}
	item.crc = false
}

// Append frame check sequence if not already present.
func (item *Item) WithCRC() {
	if item.crc {
		return
	}
	fcs := FCS(item.Data[:item.Len])
	item.Data = append(item.Data[:item.Len], fcs[:]...)
	item.crc = true
}

// Queue is a fixed size circular buffer of packets. When full the oldest
// packet is discarded and counted as lost.
type Queue struct {
	items []Item
	head  int
	tail  int
	count int
	loss  int // Packets dropped since last TakeLoss.
	high  int // Most packets ever queued.
}

func NewQueue(size int) *Queue {
	if size < 1 {
		panic("ether: queue size must be positive")
	}
	return &Queue{items: make([]Item, size)}
}

// Add copy of frame to tail of queue.
func (q *Queue) Insert(ty PacketType, frame []byte) {
	if q.count == len(q.items) {
		q.head = (q.head + 1) % len(q.items)
		q.count--
		q.loss++
	}

	data := make([]byte, len(frame), len(frame)+MinPacket+CRCSize)
	copy(data, frame)
	q.items[q.tail] = Item{Type: ty, Data: data, Len: len(frame)}
	q.tail = (q.tail + 1) % len(q.items)
	q.count++
	if q.count > q.high {
		q.high = q.count
	}
}

// Oldest packet, nil if queue empty.
func (q *Queue) Head() *Item {
	if q.count == 0 {
		return nil
	}
	return &q.items[q.head]
}

// Drop the packet at the head.
func (q *Queue) Remove() {
	if q.count == 0 {
		return
	}
	q.items[q.head] = Item{}
	q.head = (q.head + 1) % len(q.items)
	q.count--
}

// Empty the queue. Loss and high water counts are kept.
func (q *Queue) Clear() {
	for i := range q.items {
		q.items[i] = Item{}
	}
	q.head = 0
	q.tail = 0
	q.count = 0
}

func (q *Queue) Count() int {
	return q.count
}

func (q *Queue) Loss() int {
	return q.loss
}

// Return loss count and reset it.
func (q *Queue) TakeLoss() int {
	loss := q.loss
	q.loss = 0
	return loss
}

func (q *Queue) High() int {
	return q.high
}

// Clear statistics.
func (q *Queue) ResetStats() {
	q.loss = 0
	q.high = q.count
}
