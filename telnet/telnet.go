/*
 * XQ - Remote console telnet session.
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

package telnet

import (
	"bytes"
	"io"
	"log/slog"
	"net"

	"github.com/rcornwell/XQ/command/parser"
	"github.com/rcornwell/XQ/emu/core"
)

const (
	tnIAC  byte = 255 // protocol delim
	tnDONT byte = 254 // dont
	tnDO   byte = 253 // do
	tnWONT byte = 252 // wont
	tnWILL byte = 251 // will
	tnSB   byte = 250 // Sub negotiations begin
	tnSE   byte = 240 // Sub negotiations end

	// Telnet line states.
	tnStateData int = 1 + iota // normal
	tnStateIAC                 // IAC seen
	tnStateWILL                // WILL seen
	tnStateDO                  // DO seen
	tnStateDONT                // DONT seen
	tnStateWONT                // WONT seen
	tnStateSB                  // Inside sub negotiation
	tnStateSBIAC               // IAC inside sub negotiation

	// Telnet options.
	tnOptionEcho byte = 1 // Echo
	tnOptionSGA  byte = 3 // Send Go Ahead

	// Telnet flags.
	tnFlagDo   uint8 = 0x01 // Do received
	tnFlagDont uint8 = 0x02 // Don't received
	tnFlagWill uint8 = 0x04 // Will received
	tnFlagWont uint8 = 0x08 // Wont received
)

const prompt = "XQ> "

// Client stays in line mode with local echo.
var initString = []byte{
	tnIAC, tnWONT, tnOptionEcho,
	tnIAC, tnWILL, tnOptionSGA,
}

type tnState struct {
	optionState [256]uint8 // Current state of telnet session
	state       int        // Current line State
	line        []byte     // Command being collected.
	cr          bool       // Last character was CR.
	out         io.Writer  // Client connection.
}

// Send a response to client.
func (state *tnState) sendOption(setState, option byte) {
	_, _ = state.out.Write([]byte{tnIAC, setState, option})
	switch setState {
	case tnWILL:
		state.optionState[option] |= tnFlagWill
	case tnWONT:
		state.optionState[option] |= tnFlagWont
	case tnDO:
		state.optionState[option] |= tnFlagDo
	case tnDONT:
		state.optionState[option] |= tnFlagDont
	}
}

// Handle DO request, only SGA is offered.
func (state *tnState) handleDO(input byte) {
	if input == tnOptionSGA {
		if (state.optionState[input] & tnFlagWill) == 0 {
			state.sendOption(tnWILL, input)
		}
		return
	}
	if (state.optionState[input] & tnFlagWont) == 0 {
		state.sendOption(tnWONT, input)
	}
}

// Handle WILL offer, client options are refused except SGA.
func (state *tnState) handleWILL(input byte) {
	if input == tnOptionSGA {
		if (state.optionState[input] & tnFlagDo) == 0 {
			state.sendOption(tnDO, input)
		}
		return
	}
	if (state.optionState[input] & tnFlagDont) == 0 {
		state.sendOption(tnDONT, input)
	}
}

// Process input, returning complete command lines.
func (state *tnState) input(data []byte) []string {
	lines := []string{}
	for _, by := range data {
		if state.state == tnStateData && by != '\n' {
			state.cr = false
		}
		switch state.state {
		case tnStateData:
			switch by {
			case tnIAC:
				state.state = tnStateIAC
			case '\r', '\n':
				// LF after CR ends the same line.
				if by == '\n' && state.cr {
					state.cr = false
					continue
				}
				state.cr = by == '\r'
				lines = append(lines, string(state.line))
				state.line = state.line[:0]
			case 0:
			case 8, 127:
				if len(state.line) > 0 {
					state.line = state.line[:len(state.line)-1]
				}
			default:
				state.line = append(state.line, by)
			}
		case tnStateIAC:
			state.state = tnStateData
			switch by {
			case tnIAC:
				state.line = append(state.line, by)
			case tnWILL:
				state.state = tnStateWILL
			case tnWONT:
				state.state = tnStateWONT
			case tnDO:
				state.state = tnStateDO
			case tnDONT:
				state.state = tnStateDONT
			case tnSB:
				state.state = tnStateSB
			}
		case tnStateWILL:
			state.handleWILL(by)
			state.state = tnStateData
		case tnStateDO:
			state.handleDO(by)
			state.state = tnStateData
		case tnStateWONT, tnStateDONT:
			state.state = tnStateData
		case tnStateSB:
			if by == tnIAC {
				state.state = tnStateSBIAC
			}
		case tnStateSBIAC:
			state.state = tnStateSB
			if by == tnSE {
				state.state = tnStateData
			}
		}
	}
	return lines
}

// Converts newlines to telnet line ends.
type lineWriter struct {
	out io.Writer
}

func (w lineWriter) Write(data []byte) (int, error) {
	_, err := w.out.Write(bytes.ReplaceAll(data, []byte{'\n'}, []byte{'\r', '\n'}))
	return len(data), err
}

// Handle client connection.
func handleClient(conn net.Conn, core *core.Core) {
	defer conn.Close()

	state := tnState{out: conn, state: tnStateData}
	out := lineWriter{out: conn}
	buffer := make([]byte, 1024)

	_, _ = conn.Write(initString)
	_, _ = io.WriteString(conn, prompt)
	for {
		num, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF {
				slog.Debug("Console read: " + err.Error())
			}
			return
		}
		for _, line := range state.input(buffer[:num]) {
			quit, err := parser.ProcessCommand(line, out, core)
			if err != nil {
				_, _ = io.WriteString(out, "Error: "+err.Error()+"\n")
			}
			if quit {
				slog.Info("Console session closed " + conn.RemoteAddr().String())
				return
			}
			_, _ = io.WriteString(conn, prompt)
		}
	}
}
