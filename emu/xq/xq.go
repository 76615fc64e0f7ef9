/*
 * XQ - DEQNA/DELQA/DELQA-T Q-bus Ethernet controller.
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

/*
   The controller is programmed through an eight word register window and
   buffer descriptors in guest memory. The DEQNA and DELQA walk linked
   lists of six word descriptors, the DELQA-T may switch to fixed rings of
   eight word slots after a handshake on the address registers.

   All state is guarded by the instance lock. The first controller uses
   the interrupt aggregator lock as its instance lock. Transports never
   call into the controller, they queue completions and request service.
*/

package xq

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rcornwell/XQ/emu/event"
	"github.com/rcornwell/XQ/emu/irq"
	"github.com/rcornwell/XQ/emu/timer"
	"github.com/rcornwell/XQ/util/debug"
	"github.com/rcornwell/XQ/util/ether"
)

// Bus gives access to guest memory.
type Bus interface {
	ReadWords(addr uint32, buf []uint16) error
	WriteWords(addr uint32, buf []uint16) error
	ReadBytes(addr uint32, buf []byte) error
	WriteBytes(addr uint32, buf []byte) error
	Barrier()
}

// Event arguments.
const (
	evPoll = iota
	evTimer
)

const quarterSecond = timer.TicksPerSecond / 4

// Sanity timer state.
type sanity struct {
	enabled     int  // 0 off, 1 enabled by CSR SE, 2 forced on.
	quarterSecs int  // Timeout in quarter seconds.
	timer       int  // Quarter seconds left.
	expired     bool // Fired, waiting for next reset.
}

// Setup frame state.
type setup struct {
	valid       bool
	promiscuous bool
	multicast   bool
	l1, l2, l3  bool // LEDs.
	macs        [FilterMax]ether.MAC
}

// Result of an asynchronous transmit.
type completion struct {
	gen uint64
	err error
}

type Controller struct {
	name      string
	mu        *sync.Mutex
	canonical bool // mu is the aggregator lock.
	intr      *irq.Aggregator
	bus       Bus
	events    *event.EventList

	eth      ether.Transport
	ethName  string
	typ      Type
	mode     Type
	mac      ether.MAC
	checksum [2]byte

	csr    uint16
	vars   uint16
	srr    uint16
	icr    uint16
	iba    uint32
	vector uint16
	irq    bool // Interrupt requested.
	held   bool // Turbo interrupt waiting for ICR enable.

	rbdl   [2]uint16
	xbdl   [2]uint16
	rbdlBA uint32
	xbdlBA uint32

	writeBuf    []byte
	xmitPending bool   // Walk held at end of message.
	xmitGen     uint64 // Bumped to orphan outstanding writes.
	completions chan completion

	setup  setup
	init   InitBlock
	rbindx int
	tbindx int

	sanity sanity
	idtmr  int // Quarter seconds to next system id.

	readQ    *ether.Queue
	stats    Stats
	poll     int  // Receive polls per second, 0 for async.
	mustPoll bool // Transport can't do async.
	polling  bool
	pollSeq  int // Orphans a poll task already fired.
	timerOn  bool
	timerSeq int

	Reboot func()      // Ask host to reboot guest, must not block.
	Notify func()      // Ask host to call Service, must not block.
	wanted atomic.Bool // Service requested and not yet run.

	debugMsk int
}

// Create controller. The canonical controller shares the aggregator lock.
func New(name string, bus Bus, intr *irq.Aggregator, events *event.EventList, canonical bool) *Controller {
	c := &Controller{
		name:        strings.ToUpper(name),
		canonical:   canonical,
		intr:        intr,
		bus:         bus,
		events:      events,
		typ:         DELQAT,
		mode:        DELQA,
		mac:         ether.MAC{0x08, 0x00, 0x2B, 0xAA, 0xBB, 0xCC},
		writeBuf:    make([]byte, 0, ether.FrameSize),
		completions: make(chan completion, 8),
		readQ:       ether.NewQueue(QueueMax),
		poll:        DefaultPoll,
	}
	if canonical {
		c.mu = intr.Lock()
	} else {
		c.mu = &sync.Mutex{}
	}
	intr.Register(c)
	c.Reset()
	return c
}

func (c *Controller) Name() string {
	return c.name
}

// Enable debug option.
func (c *Controller) Debug(opt string) error {
	flag, ok := debugOption[strings.ToUpper(opt)]
	if !ok {
		return errors.New("XQ debug option invalid: " + opt)
	}
	c.mu.Lock()
	c.debugMsk |= flag
	c.mu.Unlock()
	return nil
}

// Bus reset.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Controller) reset() {
	debug.DebugDevf(c.name, c.debugMsk, debugTrace, "reset")
	c.makeChecksum()

	if c.typ == DEQNA {
		c.vars = 0
		c.mode = DEQNA
	} else {
		c.vars = VarMS | VarOS
		c.mode = DELQA
	}
	c.vector = 0
	c.srr = 0
	c.icr = 0
	c.iba = 0
	c.held = false
	c.abortTransmit()

	c.csrSetClr(CSRRL|CSRXL, ^(CSRRL | CSRXL))
	c.clrInt(false)
	c.readQ.Clear()

	if c.eth != nil {
		if err := c.eth.Filter([]ether.MAC{c.mac}, false, false); err != nil {
			slog.Warn(c.name+": unable to set filter", "error", err)
		}
		c.csrSetClr(CSROK, 0)
		c.startTimer()
		_ = c.eth.ClearAsync()
	}
	c.cancelPoll()

	if c.sanity.enabled != 0 {
		c.sanity.quarterSecs = hwSanitySecs * 4
	}
}

// Stop timers and close transport.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.detach()
}

// Drop any write in progress, completions still in flight are ignored.
func (c *Controller) abortTransmit() {
	c.xmitPending = false
	c.xmitGen++
	c.writeBuf = c.writeBuf[:0]
}

// Compute address checksum returned in external loopback.
func (c *Controller) makeChecksum() {
	const wmask = 0xFFFF
	var sum uint32
	for i := 0; i < len(c.mac); i += 2 {
		sum <<= 1
		if sum > wmask {
			sum -= wmask
		}
		sum += uint32(c.mac[i])<<8 | uint32(c.mac[i+1])
		if sum > wmask {
			sum -= wmask
		}
	}
	if sum == wmask {
		sum = 0
	}
	c.checksum[0] = byte(sum)
	c.checksum[1] = byte(sum >> 8)
}

// Service receive, called from host loop after Notify or a poll.
func (c *Controller) Service() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.service()
}

func (c *Controller) service() {
	c.wanted.Store(false)
	c.drainCompletions()
	if c.mode != DELQAT && (c.csr&CSRRE) == 0 {
		return
	}
	c.pumpReceive()
	if c.eth != nil {
		for {
			frame, ok := c.eth.Read()
			if !ok {
				break
			}
			c.readFrame(frame)
		}
	}
	c.pumpReceive()
}

// Move queued frames into guest buffers if there is a list.
func (c *Controller) pumpReceive() {
	if c.readQ.Count() == 0 {
		return
	}
	if c.mode == DELQAT || (c.csr&CSRRL) == 0 {
		c.processRBDL()
	}
}

// Frame from transport.
func (c *Controller) readFrame(frame []byte) {
	c.stats.Recv++
	debug.DebugDump(c.name, c.debugMsk, debugPacket|debugData, "xq-recvd", frame)
	if (c.csr&CSRRE) == 0 && c.mode != DELQAT {
		c.stats.Dropped++
		debug.DebugDevf(c.name, c.debugMsk, debugWarn, "packet received with receiver disabled")
		return
	}
	if c.processLocal(frame) {
		return
	}
	c.readQ.Insert(ether.NormalPacket, frame)
}

// Start receiving from transport.
func (c *Controller) startReceiver() {
	if c.eth == nil {
		return
	}
	if c.mustPoll || (c.poll != 0 && c.mode != DELQAT) {
		c.activatePoll()
		return
	}
	if err := c.eth.SetAsync(c.wake); err != nil {
		c.mustPoll = true
		c.activatePoll()
	}
}

func (c *Controller) stopReceiver() {
	c.cancelPoll()
	if c.eth != nil {
		_ = c.eth.ClearAsync()
	}
}

// Called by transport when frames are waiting. Requests coalesce until
// Service runs. A request the host dropped is picked up by the next tick.
func (c *Controller) wake() {
	notify := c.Notify
	if notify == nil {
		return
	}
	if c.wanted.CompareAndSwap(false, true) {
		notify()
	}
}

func (c *Controller) pollTicks() int {
	poll := c.poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	return max(timer.TicksPerSecond/poll, 1)
}

func (c *Controller) activatePoll() {
	if c.polling {
		return
	}
	c.polling = true
	c.pollSeq++
	seq := c.pollSeq
	c.events.AddEvent(c, func(_ int) int { return c.pollEvent(seq) }, c.pollTicks(), evPoll)
}

func (c *Controller) cancelPoll() {
	if !c.polling {
		return
	}
	c.polling = false
	c.pollSeq++
	c.events.CancelEvent(c, evPoll)
}

// Receive poll task.
func (c *Controller) pollEvent(seq int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.polling || seq != c.pollSeq {
		return 0
	}
	c.service()
	if !c.polling || seq != c.pollSeq {
		return 0
	}
	if !(c.mustPoll || (c.poll != 0 && c.mode != DELQAT)) {
		c.polling = false
		return 0
	}
	return c.pollTicks()
}
