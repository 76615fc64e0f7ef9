/*
 * XQ - Classic mode tests.
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
	"fmt"
	"testing"
	"time"

	"github.com/rcornwell/XQ/emu/event"
	"github.com/rcornwell/XQ/emu/irq"
	"github.com/rcornwell/XQ/emu/memory"
	"github.com/rcornwell/XQ/util/ether"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listBase uint32 = 0o10000 // Receive descriptor list.
	xmitBase uint32 = 0o11000 // Transmit descriptor list.
	bufBase  uint32 = 0o20000 // Receive buffers.
	dataBase uint32 = 0o30000 // Transmit buffers.
)

var peerMAC = ether.MAC{0x08, 0x00, 0x2B, 0x11, 0x22, 0x33}

type testRig struct {
	mem    *memory.Memory
	line   *irq.Signal
	agg    *irq.Aggregator
	events *event.EventList
	c      *Controller
}

func newRig() *testRig {
	line := &irq.Signal{}
	rig := &testRig{
		mem:    memory.New(256),
		line:   line,
		agg:    irq.New(line),
		events: event.NewEventList(),
	}
	rig.c = New("xq", rig.mem, rig.agg, rig.events, true)
	return rig
}

// Attach controller to hub lan and return a peer port on the same hub.
func (rig *testRig) attach(t *testing.T, lan string) ether.Transport {
	t.Helper()
	require.NoError(t, rig.c.AttachTransport("hub:"+lan))
	t.Cleanup(func() { _ = rig.c.Detach() })
	peer := ether.GetHub(lan).Open()
	require.NoError(t, peer.Filter([]ether.MAC{peerMAC}, false, true))
	t.Cleanup(func() { _ = peer.Close() })
	return peer
}

// Write a descriptor list starting at base.
func (rig *testRig) writeList(t *testing.T, base uint32, descs ...BufferDesc) {
	t.Helper()
	for i, desc := range descs {
		require.NoError(t, rig.mem.WriteWords(base+uint32(i)*descSize, desc.Encode()))
	}
}

func (rig *testRig) readDesc(t *testing.T, ba uint32) BufferDesc {
	t.Helper()
	words := make([]uint16, 6)
	require.NoError(t, rig.mem.ReadWords(ba, words))
	return DecodeBufferDesc(words)
}

func (rig *testRig) startReceive(base uint32) {
	rig.c.WriteReg(regRBDLL, uint16(base))
	rig.c.WriteReg(regRBDLH, uint16(base>>16))
}

func (rig *testRig) startTransmit(base uint32) {
	rig.c.WriteReg(regXBDLL, uint16(base))
	rig.c.WriteReg(regXBDLH, uint16(base>>16))
}

// Receive buffer descriptor with status 1 marked unused.
func recvDesc(addr uint32, length int) BufferDesc {
	desc := NewBufferDesc(addr, length, DescV)
	desc.Status1 = 0x8000
	return desc
}

func testFrame(dst ether.MAC, size int) []byte {
	frame := ether.NewFrame(dst, peerMAC, 0x0800, size)
	for i := ether.HeaderLen; i < size; i++ {
		frame[i] = byte(i)
	}
	return frame
}

// Memory recording the order of writes and barriers.
type recordBus struct {
	*memory.Memory
	ops []string
}

func (b *recordBus) WriteWords(addr uint32, buf []uint16) error {
	b.ops = append(b.ops, fmt.Sprintf("W%o", addr))
	return b.Memory.WriteWords(addr, buf)
}

func (b *recordBus) Barrier() {
	b.ops = append(b.ops, "B")
	b.Memory.Barrier()
}

func TestResetState(t *testing.T) {
	rig := newRig()
	c := rig.c
	assert.Equal(t, CSRRL|CSRXL, c.ReadReg(regCSR))
	assert.Equal(t, VarMS|VarOS, c.ReadReg(regVar))
	for i := range 6 {
		assert.Equal(t, 0xFF00|uint16(c.mac[i]), c.ReadReg(i), "address byte %d", i)
	}
	assert.False(t, rig.line.Asserted())
}

// External loopback reads the address checksum.
func TestAddressChecksum(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSREL|CSRIL)
	assert.Equal(t, 0xFF00|uint16(c.checksum[0]), c.ReadReg(regAddr0))
	assert.Equal(t, 0xFF00|uint16(c.checksum[1]), c.ReadReg(regAddr1))
	assert.Equal(t, 0xFF00|uint16(c.mac[2]), c.ReadReg(2))
}

func TestVarSelectsMode(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regVar, 0o300)
	assert.Equal(t, DEQNA, c.mode)
	assert.Equal(t, uint16(0o300), c.vector)

	c.WriteReg(regVar, VarMS|VarRS|0o310)
	assert.Equal(t, DELQA, c.mode)
	// Self test fails with no transport.
	assert.Equal(t, VarS1, c.ReadReg(regVar)&VarST)
	assert.Zero(t, c.ReadReg(regVar)&VarRS)
}

// One 60 byte frame into a four entry list.
func TestReceiveClassic(t *testing.T) {
	rig := newRig()
	c := rig.c
	peer := rig.attach(t, "xq-receive")

	c.WriteReg(regVar, VarMS|0o120)
	c.WriteReg(regCSR, CSRIE|CSRIL|CSRRE)
	rig.writeList(t, listBase, recvDesc(bufBase, ether.MaxPacket),
		BufferDesc{}, BufferDesc{}, BufferDesc{})
	rig.startReceive(listBase)
	assert.Zero(t, c.ReadReg(regCSR)&CSRRL)

	frame := testFrame(c.mac, ether.MinPacket)
	require.NoError(t, peer.Write(frame, nil))
	c.Service()

	desc := rig.readDesc(t, listBase)
	assert.Equal(t, uint16(0xFFFF), desc.Flag)
	assert.Equal(t, uint16(0), desc.Status1, "status 1")
	assert.Equal(t, uint16(0), desc.Status2, "status 2")

	data := make([]byte, len(frame))
	require.NoError(t, rig.mem.ReadBytes(bufBase, data))
	assert.Equal(t, frame, data)

	csr := c.ReadReg(regCSR)
	assert.NotZero(t, csr&CSRRI)
	assert.NotZero(t, csr&CSRRL, "next descriptor invalid")
	assert.True(t, rig.line.Asserted())
	assert.Equal(t, 1, rig.agg.Pending())
	assert.Equal(t, 1, c.Stats().Recv)

	vec, ok := rig.agg.Vector()
	assert.True(t, ok)
	assert.Equal(t, 0o120, vec)
	assert.False(t, rig.line.Asserted())

	// RI is write one to clear.
	c.WriteReg(regCSR, CSRIE|CSRIL|CSRRE|CSRRI)
	assert.Zero(t, c.ReadReg(regCSR)&CSRRI)
}

// Frames lost to a full read queue are flagged on the next receive.
func TestReceiveQueueOverflow(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL|CSRRE)
	rig.writeList(t, listBase, recvDesc(bufBase, ether.MaxPacket),
		recvDesc(bufBase+0o4000, ether.MaxPacket), BufferDesc{})

	c.mu.Lock()
	for range QueueMax + 100 {
		c.readQ.Insert(ether.NormalPacket, testFrame(c.mac, ether.MinPacket))
	}
	c.mu.Unlock()
	rig.startReceive(listBase)

	first := rig.readDesc(t, listBase)
	assert.Equal(t, uint16(0x0001), first.Status1, "status 1")
	second := rig.readDesc(t, listBase+descSize)
	assert.Equal(t, uint16(0), second.Status1, "loss reported once")
	assert.Equal(t, 100, c.Stats().Dropped)
	assert.Equal(t, QueueMax-2, c.readQ.Count())
}

func TestReceiveDisabledDrops(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL)
	c.mu.Lock()
	c.readFrame(testFrame(c.mac, ether.MinPacket))
	c.mu.Unlock()
	assert.Equal(t, 0, c.readQ.Count())
	assert.Equal(t, 1, c.Stats().Dropped)
	assert.Equal(t, 1, c.Stats().Recv)
}

func TestReceiveRuntAndGiant(t *testing.T) {
	rig := newRig()
	c := rig.c
	peer := rig.attach(t, "xq-sizes")

	c.WriteReg(regCSR, CSRIL|CSRRE)
	rig.writeList(t, listBase, recvDesc(bufBase, ether.MaxPacket),
		recvDesc(bufBase+0o4000, ether.MaxPacket), BufferDesc{})
	rig.startReceive(listBase)

	require.NoError(t, peer.Write(testFrame(c.mac, 20), nil))
	require.NoError(t, peer.Write(testFrame(c.mac, 1600), nil))
	c.Service()

	runt := rig.readDesc(t, listBase)
	assert.Equal(t, uint16(0), runt.Status1)
	assert.Equal(t, uint16(0), runt.Status2)

	// 1514 bytes reports 1454 after the 60 byte bias.
	giant := rig.readDesc(t, listBase+descSize)
	assert.Equal(t, uint16(0x0500), giant.Status1)
	assert.Equal(t, uint16(0xAEAE), giant.Status2)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Runt)
	assert.Equal(t, 1, stats.Giant)
	assert.Equal(t, 2, stats.Recv)
}

func TestReceiveSplit(t *testing.T) {
	rig := newRig()
	c := rig.c
	peer := rig.attach(t, "xq-split")

	c.WriteReg(regCSR, CSRIL|CSRRE)
	rig.writeList(t, listBase, recvDesc(bufBase, 40),
		recvDesc(bufBase+0o100, ether.MaxPacket), BufferDesc{})
	rig.startReceive(listBase)

	frame := testFrame(c.mac, 100)
	require.NoError(t, peer.Write(frame, nil))
	c.Service()

	first := rig.readDesc(t, listBase)
	second := rig.readDesc(t, listBase+descSize)
	assert.Equal(t, uint16(0xC000), first.Status1&0xC000, "more to come")
	assert.Equal(t, uint16(0), second.Status1&0xC000)

	data := make([]byte, 40)
	require.NoError(t, rig.mem.ReadBytes(bufBase, data))
	assert.Equal(t, frame[:40], data)
	data = make([]byte, 60)
	require.NoError(t, rig.mem.ReadBytes(bufBase+0o100, data))
	assert.Equal(t, frame[40:], data)
	assert.Equal(t, 0, c.readQ.Count())
}

func TestReceiveChainedList(t *testing.T) {
	rig := newRig()
	c := rig.c
	peer := rig.attach(t, "xq-chain")

	c.WriteReg(regCSR, CSRIL|CSRRE)
	rig.writeList(t, listBase, NewBufferDesc(listBase+0o400, 0, DescV|DescC))
	rig.writeList(t, listBase+0o400, recvDesc(bufBase, ether.MaxPacket), BufferDesc{})
	rig.startReceive(listBase)

	require.NoError(t, peer.Write(testFrame(c.mac, ether.MinPacket), nil))
	c.Service()
	assert.Equal(t, uint16(0), rig.readDesc(t, listBase+0o400).Status1)
}

func TestStatusOrder(t *testing.T) {
	bus := &recordBus{Memory: memory.New(64)}
	c := New("xq", bus, irq.New(nil), event.NewEventList(), false)

	bus.ops = nil
	c.mu.Lock()
	require.NoError(t, c.updateStatus(listBase, 1, 2))
	c.mu.Unlock()
	assert.Equal(t, []string{fmt.Sprintf("W%o", listBase+10), "B", fmt.Sprintf("W%o", listBase+8)}, bus.ops)

	bus.ops = nil
	c.mu.Lock()
	require.NoError(t, c.returnSlot(listBase, 1, RingDesc{MD3: MD3OWN}))
	c.mu.Unlock()
	slot := listBase + ringSlotSize
	assert.Equal(t, []string{fmt.Sprintf("W%o", slot), "B", fmt.Sprintf("W%o", slot+6)}, bus.ops)
}

func TestNonExistentMemory(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL)
	c.WriteReg(regRBDLL, 0)
	c.WriteReg(regRBDLH, 0o77)
	csr := c.ReadReg(regCSR)
	assert.NotZero(t, csr&CSRNI)
	assert.NotZero(t, csr&CSRRL)
	assert.NotZero(t, csr&CSRXI)
}

// A list chaining to itself stops at the walk limit.
func TestChainLimit(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL)
	rig.writeList(t, xmitBase, NewBufferDesc(xmitBase, 0, DescV|DescC))
	rig.startTransmit(xmitBase)
	assert.NotZero(t, c.ReadReg(regCSR)&CSRNI)
}

func TestInternalLoopback(t *testing.T) {
	rig := newRig()
	c := rig.c

	// IL clear selects internal loopback.
	c.WriteReg(regCSR, CSRIE)
	rig.writeList(t, listBase, recvDesc(bufBase, ether.MaxPacket), BufferDesc{})
	rig.startReceive(listBase)

	frame := testFrame(c.mac, ether.MinPacket)
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	xmit := NewBufferDesc(dataBase, len(frame), DescV|DescE)
	xmit.Status1 = 0x8000
	rig.writeList(t, xmitBase, xmit, BufferDesc{})
	rig.startTransmit(xmitBase)

	sent := rig.readDesc(t, xmitBase)
	assert.Equal(t, uint16(0), sent.Status1)
	assert.Equal(t, uint16(1), sent.Status2)

	recv := rig.readDesc(t, listBase)
	assert.Equal(t, uint16(0x2000), recv.Status1)
	assert.Equal(t, uint16(0x3C3C), recv.Status2)
	data := make([]byte, len(frame))
	require.NoError(t, rig.mem.ReadBytes(bufBase, data))
	assert.Equal(t, frame, data)

	csr := c.ReadReg(regCSR)
	assert.NotZero(t, csr&CSRXI)
	assert.NotZero(t, csr&CSRRI)
	assert.NotZero(t, csr&CSRXL)
	assert.Equal(t, 1, c.Stats().Loop)
	assert.True(t, rig.line.Asserted())
}

func TestTransmitNotAttached(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL|CSRRE)

	frame := testFrame(peerMAC, ether.MinPacket)
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	rig.writeList(t, xmitBase, NewBufferDesc(dataBase, len(frame), DescV|DescE), BufferDesc{})
	rig.startTransmit(xmitBase)

	sent := rig.readDesc(t, xmitBase)
	assert.Equal(t, DescC, sent.Status1)
	stats := c.Stats()
	assert.Equal(t, 1, stats.Xmit)
	assert.Equal(t, 1, stats.Fail)
}

// Service requests coalesce, and the timer tick recovers one the host lost.
func TestNotifyCoalesced(t *testing.T) {
	rig := newRig()
	c := rig.c
	posts := 0
	c.Notify = func() { posts++ }
	c.poll = 0
	peer := rig.attach(t, "xq-notify")
	c.WriteReg(regCSR, CSRIL|CSRRE)
	rig.writeList(t, listBase, recvDesc(bufBase, ether.MaxPacket),
		recvDesc(bufBase+0o4000, ether.MaxPacket), recvDesc(bufBase+0o10000, ether.MaxPacket),
		BufferDesc{})
	rig.startReceive(listBase)

	require.NoError(t, peer.Write(testFrame(c.mac, ether.MinPacket), nil))
	require.NoError(t, peer.Write(testFrame(c.mac, ether.MinPacket), nil))
	assert.Equal(t, 1, posts)
	assert.Equal(t, uint16(0x8000), rig.readDesc(t, listBase).Status1, "not yet serviced")

	rig.events.Advance(quarterSecond)
	assert.Equal(t, uint16(0), rig.readDesc(t, listBase).Status1)
	assert.Equal(t, uint16(0), rig.readDesc(t, listBase+descSize).Status1)
	assert.Equal(t, 2, c.Stats().Recv)

	require.NoError(t, peer.Write(testFrame(c.mac, ether.MinPacket), nil))
	assert.Equal(t, 2, posts)
}

// Transmit is held until the transport reports completion.
func TestTransmitAsync(t *testing.T) {
	rig := newRig()
	c := rig.c
	woken := make(chan struct{}, 4)
	c.Notify = func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}
	peer := rig.attach(t, "xq-transmit")
	c.WriteReg(regCSR, CSRIE|CSRIL|CSRRE)

	frame := testFrame(peerMAC, ether.MinPacket)
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	first := NewBufferDesc(dataBase, 20, DescV)
	first.Status1 = 0x8000
	last := NewBufferDesc(dataBase+20, len(frame)-20, DescV|DescE)
	last.Status1 = 0x8000
	rig.writeList(t, xmitBase, first, last, BufferDesc{})
	rig.startTransmit(xmitBase)

	got, ok := peer.Read()
	require.True(t, ok)
	assert.Equal(t, frame, got)

	assert.Equal(t, DescV|DescC, rig.readDesc(t, xmitBase).Status1, "segment not end of message")
	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("transmit completion not signaled")
	}

	c.Service()
	sent := rig.readDesc(t, xmitBase+descSize)
	assert.Equal(t, uint16(0), sent.Status1)
	assert.Equal(t, uint16((100+len(frame)*8)&0x3FF), sent.Status2)

	csr := c.ReadReg(regCSR)
	assert.NotZero(t, csr&CSRXI)
	assert.NotZero(t, csr&CSRXL)
	assert.Equal(t, 1, c.Stats().Xmit)
	assert.Zero(t, c.Stats().Fail)
	assert.True(t, rig.line.Asserted())
}

// Completion of a write aborted by reset is ignored.
func TestTransmitAbortedByReset(t *testing.T) {
	rig := newRig()
	c := rig.c
	rig.attach(t, "xq-abort")
	c.WriteReg(regCSR, CSRIL|CSRRE)

	frame := testFrame(peerMAC, ether.MinPacket)
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	last := NewBufferDesc(dataBase, len(frame), DescV|DescE)
	last.Status1 = 0x8000
	rig.writeList(t, xmitBase, last, BufferDesc{})
	rig.startTransmit(xmitBase)

	c.WriteReg(regCSR, CSRIL|CSRSR)
	c.WriteReg(regCSR, CSRIL)

	require.Eventually(t, func() bool { return len(c.completions) != 0 }, time.Second, time.Millisecond)
	c.Service()
	assert.Equal(t, uint16(0x8000), rig.readDesc(t, xmitBase).Status1)
	assert.Equal(t, 1, c.Stats().Reset)
	assert.Zero(t, c.Stats().Xmit)
}

// Build a setup frame holding addrs in column order.
func setupFrame(length int, addrs ...ether.MAC) []byte {
	frame := make([]byte, length)
	for i, mac := range addrs {
		base := i + 1
		if i >= 7 {
			base = i - 7 + 0o101
		}
		for j := range 6 {
			frame[base+j*8] = mac[j]
		}
	}
	return frame
}

func TestSetupFrame(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL)
	rig.writeList(t, listBase, recvDesc(bufBase, ether.MaxPacket), BufferDesc{})
	rig.startReceive(listBase)

	station := ether.MAC{0x08, 0x00, 0x2B, 0x01, 0x02, 0x03}
	frame := setupFrame(128, station, ether.Broadcast)
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	rig.writeList(t, xmitBase, NewBufferDesc(dataBase, len(frame), DescV|DescE|DescS), BufferDesc{})
	rig.startTransmit(xmitBase)

	assert.True(t, c.setup.valid)
	assert.Equal(t, station, c.setup.macs[0])
	assert.Equal(t, ether.Broadcast, c.setup.macs[1])
	assert.Equal(t, station, c.physical())
	assert.False(t, c.setup.promiscuous)
	assert.Len(t, c.filterAddrs(), 2)

	recv := rig.readDesc(t, listBase)
	assert.Equal(t, uint16(0x2700), recv.Status1)
	assert.Equal(t, uint16(0x8080), recv.Status2)
	assert.Equal(t, 1, c.Stats().Setup)
}

func TestSetupLongForm(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL|CSRSE)

	addrs := make([]ether.MAC, FilterMax)
	for i := range addrs {
		addrs[i] = ether.MAC{0x09, 0x00, 0x2B, 0x00, 0x00, byte(i + 1)}
	}
	// Length 0203: promiscuous, all multicast, shortest sanity timeout.
	frame := setupFrame(0o203, addrs...)
	frame[0] = 1
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	rig.writeList(t, xmitBase, NewBufferDesc(dataBase, len(frame), DescV|DescE|DescS|DescL), BufferDesc{})
	rig.startTransmit(xmitBase)

	for i, mac := range addrs {
		assert.Equal(t, mac, c.setup.macs[i], "address %d", i)
	}
	assert.True(t, c.setup.promiscuous)
	assert.True(t, c.setup.multicast)
	assert.Equal(t, 1, c.sanity.enabled)
	assert.Equal(t, 1, c.sanity.quarterSecs)
	assert.Contains(t, c.filterString(), "Promiscuous Receive Mode")
}

// MOP element block asks for the station address.
func TestSetupMOP(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL)

	station := ether.MAC{0x08, 0x00, 0x2B, 0x04, 0x05, 0x06}
	frame := setupFrame(0o200+2*mebSize, station)
	frame[0] = 1
	meb := frame[0o200:]
	meb[0] = 1
	mebAddr := dataBase + 0o1000
	meb[1] = byte(mebAddr)
	meb[2] = byte(mebAddr >> 8)
	meb[4] = 6
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	rig.writeList(t, xmitBase, NewBufferDesc(dataBase, len(frame), DescV|DescE|DescS), BufferDesc{})
	rig.startTransmit(xmitBase)

	got := make([]byte, 6)
	require.NoError(t, rig.mem.ReadBytes(dataBase+0o1000, got))
	assert.Equal(t, station[:], got)
}

func TestSoftwareReset(t *testing.T) {
	rig := newRig()
	c := rig.c
	c.WriteReg(regCSR, CSRIL|CSRIE|CSRSR)
	c.WriteReg(regCSR, CSRIL)
	assert.Equal(t, CSRRL|CSRXL, c.ReadReg(regCSR))
	assert.Equal(t, 1, c.Stats().Reset)
	assert.False(t, rig.line.Asserted())
}

// Two controllers share one request line.
func TestInterruptAggregate(t *testing.T) {
	rig := newRig()
	other := New("xqb", rig.mem, rig.agg, rig.events, false)
	raise := func(c *Controller) {
		c.mu.Lock()
		c.csrSetClr(CSRXI, 0)
		c.mu.Unlock()
	}

	rig.c.WriteReg(regVar, VarMS|0o120)
	other.WriteReg(regVar, VarMS|0o130)
	rig.c.WriteReg(regCSR, CSRIE|CSRIL)
	other.WriteReg(regCSR, CSRIE|CSRIL)

	raise(rig.c)
	raise(other)
	assert.Equal(t, 2, rig.agg.Pending())
	assert.True(t, rig.line.Asserted())

	vec, ok := rig.agg.Vector()
	assert.True(t, ok)
	assert.Equal(t, 0o120, vec)
	assert.True(t, rig.line.Asserted(), "still requested by second unit")

	vec, ok = rig.agg.Vector()
	assert.True(t, ok)
	assert.Equal(t, 0o130, vec)
	assert.False(t, rig.line.Asserted())
	_, ok = rig.agg.Vector()
	assert.False(t, ok)

	// Clearing XI drops the request.
	other.WriteReg(regCSR, CSRIE|CSRIL|CSRXI)
	raise(other)
	assert.True(t, rig.line.Asserted())
	other.WriteReg(regCSR, CSRIE|CSRIL|CSRXI)
	assert.False(t, rig.line.Asserted())
	assert.Equal(t, 0, rig.agg.Pending())

	// Dropping IE drops the request.
	rig.c.WriteReg(regCSR, CSRIE|CSRIL|CSRXI)
	raise(rig.c)
	assert.True(t, rig.line.Asserted())
	rig.c.WriteReg(regCSR, CSRIL)
	assert.False(t, rig.line.Asserted())
	assert.NotZero(t, rig.c.ReadReg(regCSR)&CSRXI)
}

// Sanity timer of a quarter second fires once.
func TestSanityReboot(t *testing.T) {
	rig := newRig()
	c := rig.c
	reboots := 0
	c.Reboot = func() { reboots++ }
	rig.attach(t, "xq-sanity")

	c.WriteReg(regCSR, CSRIL|CSRSE)
	frame := setupFrame(0o600)
	require.NoError(t, rig.mem.WriteBytes(dataBase, frame))
	rig.writeList(t, xmitBase, NewBufferDesc(dataBase, len(frame), DescV|DescE|DescS), BufferDesc{})
	rig.startTransmit(xmitBase)
	assert.Equal(t, 1, c.sanity.quarterSecs)

	for range 5 {
		rig.events.Advance(quarterSecond)
	}
	assert.Equal(t, 1, reboots)

	// Rearmed by host activity.
	c.mu.Lock()
	c.resetSanity()
	c.mu.Unlock()
	rig.events.Advance(quarterSecond)
	assert.Equal(t, 2, reboots)
}

func TestLoopbackForward(t *testing.T) {
	rig := newRig()
	c := rig.c
	peer := rig.attach(t, "xq-loopfwd")
	c.WriteReg(regCSR, CSRIL|CSRRE)

	frame := ether.NewFrame(c.mac, peerMAC, ether.TypeLoopback, ether.MinPacket)
	frame[16] = loopForward
	copy(frame[18:24], peerMAC[:])
	frame[24] = 1
	require.NoError(t, peer.Write(frame, nil))
	c.Service()

	reply, ok := peer.Read()
	require.True(t, ok)
	assert.Equal(t, peerMAC, ether.Destination(reply))
	assert.Equal(t, c.mac, ether.Source(reply))
	assert.Equal(t, byte(8), reply[14])
	assert.Equal(t, byte(1), reply[24])
	assert.Equal(t, 0, c.readQ.Count())
	assert.Equal(t, 1, c.Stats().Loop)
}

func TestRemoteConsoleRequestID(t *testing.T) {
	rig := newRig()
	c := rig.c
	peer := rig.attach(t, "xq-reqid")
	c.WriteReg(regCSR, CSRIL|CSRRE)

	frame := ether.NewFrame(c.mac, peerMAC, ether.TypeMOPRC, ether.MinPacket)
	frame[16] = mopRequest
	frame[18] = 0x34
	frame[19] = 0x12
	require.NoError(t, peer.Write(frame, nil))
	c.Service()

	reply, ok := peer.Read()
	require.True(t, ok)
	assert.Len(t, reply, ether.MinPacket)
	assert.Equal(t, peerMAC, ether.Destination(reply))
	assert.Equal(t, ether.TypeMOPRC, ether.FrameType(reply))
	assert.Equal(t, byte(7), reply[16])
	assert.Equal(t, []byte{0x34, 0x12}, reply[18:20])
	assert.Equal(t, c.mac[:], reply[34:40])
	assert.Equal(t, byte(0x4B), reply[43])
}

func TestRemoteConsoleBoot(t *testing.T) {
	rig := newRig()
	c := rig.c
	reboots := 0
	c.Reboot = func() { reboots++ }
	peer := rig.attach(t, "xq-boot")
	c.WriteReg(regCSR, CSRIL|CSRRE)

	frame := ether.NewFrame(c.mac, peerMAC, ether.TypeMOPRC, ether.MinPacket)
	frame[16] = mopBoot
	require.NoError(t, peer.Write(frame, nil))
	c.Service()
	assert.Equal(t, 1, reboots)
}
