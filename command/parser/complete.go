/*
 * XQ - Command line completion.
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

package parser

import (
	"slices"
	"strings"
	"unicode"

	command "github.com/rcornwell/XQ/command/command"
	"github.com/rcornwell/XQ/emu/qbus"
)

// Called to complete a command line, during line editing.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)

	// We have a command, let it try and complete it.
	if !line.isEOL() && unicode.IsSpace(rune(line.line[line.pos])) {
		match := matchList(name)
		if len(match) != 1 {
			return nil
		}

		if match[0].Complete != nil {
			return match[0].Complete(&line)
		}
		return nil
	}

	// Try and match one command.
	var matches []string
	for _, m := range cmdList {
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Name+" ")
		}
	}
	slices.Sort(matches)
	return matches
}

// Scan up to next separator.
func (line *cmdLine) scanToken() string {
	start := line.pos
	for !line.isSep() {
		line.pos++
	}
	return line.line[start:line.pos]
}

// Match device names. If all is false only devices that have options
// for cmdType are returned.
func (line *cmdLine) matchDevice(cmdType int, all bool) []string {
	line.skipSpace()
	leading := line.line[:line.pos]
	prefix := strings.ToLower(line.scanToken())

	devices := []string{}
	for _, name := range qbus.Names() {
		name = strings.ToLower(name)
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		if !all {
			cmd, err := qbus.GetCommand(name)
			if err != nil {
				continue
			}
			valid := slices.ContainsFunc(cmd.Options(""), func(opt command.Options) bool {
				return (opt.OptionValid & cmdType) != 0
			})
			if !valid {
				continue
			}
		}
		devices = append(devices, leading+name+" ")
	}
	return devices
}

// Option names starting with prefix.
func optionNames(leading string, prefix string, opts []command.Options, cmdType int) []string {
	matches := []string{}
	for _, opt := range opts {
		if (opt.OptionValid&cmdType) == 0 || !strings.HasPrefix(opt.Name, prefix) {
			continue
		}
		suffix := "="
		if opt.OptionType == command.OptionSwitch || cmdType == command.ValidShow {
			suffix = " "
		}
		matches = append(matches, leading+opt.Name+suffix)
	}
	slices.Sort(matches)
	return matches
}

// Values of a list option starting with prefix.
func optionValues(leading string, name string, prefix string, opts []command.Options, cmdType int) []string {
	opt := matchOption(name, opts, cmdType)
	if opt.OptionType != command.OptionList {
		return nil
	}

	prefix = strings.ToLower(prefix)
	matches := []string{}
	for _, value := range opt.OptionList {
		value = strings.ToLower(value)
		if strings.HasPrefix(value, prefix) {
			matches = append(matches, leading+value+" ")
		}
	}
	return matches
}

// Complete the last option on the line.
func (line *cmdLine) scanOptions(device command.Command, cmdType int) []string {
	opts := device.Options("")
	for {
		line.skipSpace()
		start := line.pos
		word := line.scanToken()
		if !line.isEOL() {
			continue
		}

		leading := line.line[:start]
		name, value, equal := strings.Cut(word, "=")
		name = strings.ToLower(name)
		if !equal {
			return optionNames(leading, name, opts, cmdType)
		}
		return optionValues(leading+name+"=", name, value, opts, cmdType)
	}
}

// Complete device name then its options.
func (line *cmdLine) scanDevice(cmdType int) []string {
	pos := line.pos
	devices := line.matchDevice(cmdType, false)
	if line.isEOL() {
		return devices
	}

	line.pos = pos
	device, err := line.getDevice()
	if err != nil {
		return nil
	}

	return line.scanOptions(device, cmdType)
}

func attachComplete(line *cmdLine) []string {
	return line.scanDevice(command.ValidAttach)
}

func detachComplete(line *cmdLine) []string {
	return line.matchDevice(command.ValidAttach, false)
}

func setComplete(line *cmdLine) []string {
	return line.scanDevice(command.ValidSet)
}

func showComplete(line *cmdLine) []string {
	return line.scanDevice(command.ValidShow)
}

// Complete commands that only need device name.
func DeviceComplete(line *cmdLine) []string {
	return line.matchDevice(0, true)
}
