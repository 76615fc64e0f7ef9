/*
 * XQ - DEQNA/DELQA/DELQA-T register and descriptor definitions.
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
	"errors"
	"fmt"
	"strings"
)

// Controller variant, also used for the active mode.
type Type int

const (
	DEQNA  Type = iota // Legacy controller.
	DELQA              // Compatible controller.
	DELQAT             // DELQA-T, turbo ring capable.
)

func (t Type) String() string {
	switch t {
	case DEQNA:
		return "DEQNA"
	case DELQA:
		return "DELQA"
	case DELQAT:
		return "DELQA-T"
	}
	return fmt.Sprintf("type%d", int(t))
}

// Parse controller type name.
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(name) {
	case "DEQNA":
		return DEQNA, nil
	case "DELQA":
		return DELQA, nil
	case "DELQA-T", "DELQAT":
		return DELQAT, nil
	}
	return DEQNA, fmt.Errorf("invalid XQ type: %s", name)
}

// Register window word index.
const (
	regAddr0 = iota // Station address, IBAL in turbo mode.
	regAddr1        // Station address, IBAH in turbo mode.
	regRBDLL        // Receive list low, ICR in turbo mode.
	regRBDLH        // Receive list high.
	regXBDLL        // Transmit list low, SRQR in turbo mode.
	regXBDLH        // Transmit list high.
	regVar          // Vector address register, SRR in turbo mode.
	regCSR          // Control and status, ARQR in turbo mode.
)

var (
	readNames       = [8]string{"MAC0", "MAC1", "MAC2", "MAC3", "MAC4", "MAC5", "VAR", "CSR"}
	writeNames      = [8]string{"XCR0", "XCR1", "RBDL-Lo", "RBDL-Hi", "XBDL-Lo", "XBDL-Hi", "VAR", "CSR"}
	turboReadNames  = [8]string{"MAC0", "MAC1", "MAC2", "MAC3", "MAC4", "MAC5", "SRR", "CSR"}
	turboWriteNames = [8]string{"IBAL", "IBAH", "ICR", "", "SRQR", "", "", "ARQR"}
)

// Control and status register.
const (
	CSRRI uint16 = 0x8000 // Receive interrupt request.
	CSRPE uint16 = 0x4000 // Parity error.
	CSRCA uint16 = 0x2000 // Carrier from receiver enabled.
	CSROK uint16 = 0x1000 // Transceiver power ok.
	CSRRR uint16 = 0x0800 // Reserved.
	CSRSE uint16 = 0x0400 // Sanity timer enable.
	CSREL uint16 = 0x0200 // External loopback.
	CSRIL uint16 = 0x0100 // Internal loopback, active low.
	CSRXI uint16 = 0x0080 // Transmit interrupt request.
	CSRIE uint16 = 0x0040 // Interrupt enable.
	CSRRL uint16 = 0x0020 // Receive list invalid.
	CSRXL uint16 = 0x0010 // Transmit list invalid.
	CSRBD uint16 = 0x0008 // Boot/diagnostic ROM load.
	CSRNI uint16 = 0x0004 // Nonexistent memory timeout.
	CSRSR uint16 = 0x0002 // Software reset.
	CSRRE uint16 = 0x0001 // Receiver enable.

	csrRO   = CSRCA | CSROK | CSRRR | CSRRL | CSRXL | CSRNI
	csrRW   = CSRSE | CSREL | CSRIL | CSRIE | CSRBD | CSRSR | CSRRE
	csrW1   = CSRRI | CSRXI
	csrXIRI = CSRXI | CSRRI
)

// Vector address register.
const (
	VarMS uint16 = 0x8000 // Mode select, set for DELQA.
	VarOS uint16 = 0x4000 // Option switch.
	VarRS uint16 = 0x2000 // Request self test.
	VarS3 uint16 = 0x1000 // Self test status.
	VarS2 uint16 = 0x0800
	VarS1 uint16 = 0x0400
	VarST uint16 = VarS3 | VarS2 | VarS1
	VarIV uint16 = 0x03FC // Interrupt vector.
	VarRR uint16 = 0x0002 // Reserved.
	VarID uint16 = 0x0001 // Identity test bit.

	varRO = VarOS | VarS3 | VarS2 | VarS1 | VarRR
	varRW = VarMS | VarRS | VarIV | VarID
)

// Classic buffer descriptor bits, word 1.
const (
	DescV uint16 = 0x8000 // Valid.
	DescC uint16 = 0x4000 // Chain to new list.
	DescE uint16 = 0x2000 // End of message.
	DescS uint16 = 0x1000 // Setup frame.
	DescL uint16 = 0x0080 // Buffer ends on odd byte.
	DescH uint16 = 0x0040 // Buffer begins on odd byte.

	descAddrHigh = 0x003F
)

// Setup frame length flags, valid when length is over 128.
const (
	SetupMC uint16 = 0x0001 // Receive all multicast.
	SetupPM uint16 = 0x0002 // Promiscuous.
	SetupLD uint16 = 0x000C // LED select.
	SetupST uint16 = 0x0070 // Sanity timeout select.
)

// Turbo status and response register.
const (
	SRRFES  uint16 = 0x8000 // Fatal error summary.
	SRRCHN  uint16 = 0x4000 // Chaining error.
	SRRNXM  uint16 = 0x1000 // Nonexistent memory.
	SRRPAR  uint16 = 0x0800 // Parity error.
	SRRIME  uint16 = 0x0400 // Internal memory error.
	SRRTBL  uint16 = 0x0200 // Transmit buffer too long.
	SRRRESP uint16 = 0x0003 // Synchronous response.
	SRRTRBO uint16 = 0x0001 // Turbo mode selected.
	SRRSTRT uint16 = 0x0002 // Ring processing started.

	srrRW = SRRFES | SRRCHN | SRRNXM | SRRPAR | SRRIME | SRRTBL | SRRRESP
)

// Turbo synchronous request register.
const (
	SRQRStrt uint16 = 0x0002
	SRQRStop uint16 = 0x0001
	srqrRW          = SRQRStrt | SRQRStop
)

// Turbo asynchronous request register.
const (
	ARQRTRQ uint16 = 0x8000 // Transmit request.
	ARQRRRQ uint16 = 0x0080 // Receive request.
	ARQRSR  uint16 = 0x0002 // Software reset.
)

// Turbo interrupt control register.
const ICREna uint16 = 0x0001

// Turbo init block mode and option bits.
const (
	InitPRO uint16 = 0x8000 // Promiscuous.
	InitINT uint16 = 0x0040 // Internal loopback.
	InitDRT uint16 = 0x0020 // Disable retry.
	InitDTC uint16 = 0x0008 // Disable transmit CRC.
	InitLOP uint16 = 0x0004 // Loopback.

	InitHIT uint16 = 0x0002 // Host inactivity timer enable.
	InitIE  uint16 = 0x0001 // Interrupt enable.
)

// Turbo ring descriptor words.
const (
	TMD0ERR1 uint16 = 0x4000 // Transmit error.
	TMD1LCO  uint16 = 0x1000 // Late collision.
	TMD1LCA  uint16 = 0x0800 // Loss of carrier.
	TMD1RTR  uint16 = 0x0400 // Retry error.
	TMD1TDR  uint16 = 0x03FF // Time domain reflectometry.

	MD2ERR2 uint16 = 0x8000
	MD2MIS  uint16 = 0x1000 // Missed packets.
	MD2EOR  uint16 = 0x0800 // End of ring.
	MD2RON  uint16 = 0x0020 // Receiver on.
	MD2TON  uint16 = 0x0010 // Transmitter on.

	MD3OWN uint16 = 0x8000 // Host owns slot.
	MD3FOT uint16 = 0x4000 // First of two, more segments follow.
	MD3BCT uint16 = 0x0FFF // Byte count.

	RMD0ERR3 uint16 = 0x4000
	RMD0FRA  uint16 = 0x2000 // Framing error.
	RMD0OFL  uint16 = 0x1000 // Overflow.
	RMD0CRC  uint16 = 0x0800
	RMD0BUF  uint16 = 0x0400
	RMD0STP  uint16 = 0x0200 // Start of packet.
	RMD0ENP  uint16 = 0x0100 // End of packet.

	RMD1MCNT uint16 = 0x0FFF // Message byte count.
)

const (
	QueueMax       = 500  // Read queue depth.
	FilterMax      = 14   // Addresses in a setup frame.
	RingReceive    = 32   // Turbo receive ring slots.
	RingTransmit   = 12   // Turbo transmit ring slots.
	DefaultPoll    = 100  // Receive polls per second.
	systemIDSecs   = 540  // Seconds between system id frames.
	hwSanitySecs   = 240  // Sanity timeout after reset.
	descSize       = 12   // Classic descriptor in bytes.
	ringSlotSize   = 16   // Turbo descriptor in bytes.
	ringStatusSize = 8    // Turbo descriptor bytes written back.
	initBlockSize  = 36   // Turbo init block in bytes.
	maxChain       = 8192 // Descriptors visited in one walk.
	turboKeyLow    = 0x0BAF
	turboKeyHigh   = 0xFF00
	setupLong      = 128 // Setup frames longer than this carry flags.
	mebStart       = 0o200
	mebEnd         = 0o400
	mebSize        = 6
)

// Sanity timeout in quarter seconds by setup ST field.
var sanityQuarterSecs = [8]int{1, 4, 16, 64, 240, 960, 3840, 15360}

// Debug options.
const (
	debugTrace = 1 << iota
	debugCSR
	debugVar
	debugWarn
	debugSetup
	debugSanity
	debugReg
	debugPacket
	debugData
	debugEth
)

var debugOption = map[string]int{
	"TRACE":  debugTrace,
	"CSR":    debugCSR,
	"VAR":    debugVar,
	"WARN":   debugWarn,
	"SETUP":  debugSetup,
	"SANITY": debugSanity,
	"REG":    debugReg,
	"PACKET": debugPacket,
	"DATA":   debugData,
	"ETH":    debugEth,
}

var (
	ErrAddressConflict = errors.New("MAC address conflict on LAN")
	ErrNotAttached     = errors.New("device not attached")
	ErrAttached        = errors.New("device already attached")
	ErrChainLimit      = errors.New("descriptor chain too long")
)

// Statistics counters.
type Stats struct {
	Recv    int // Frames read from transport.
	Dropped int // Frames dropped, receiver off or queue overflow.
	Xmit    int // Frames sent.
	Fail    int // Failed sends.
	Runt    int // Short frames padded.
	Giant   int // Long frames truncated.
	Reset   int // Software resets.
	Setup   int // Setup frames and init blocks.
	Loop    int // Loopback frames.
}
