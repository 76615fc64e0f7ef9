/*
 * XQ - Command line parser.
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
	"errors"
	"io"
	"strings"
	"unicode"

	command "github.com/rcornwell/XQ/command/command"
	core "github.com/rcornwell/XQ/emu/core"
	"github.com/rcornwell/XQ/emu/qbus"
)

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Process  func(*cmdLine, *core.Core) (bool, error)
	Complete func(*cmdLine) []string
}

type cmdLine struct {
	line string    // Current command.
	pos  int       // Position in line.
	out  io.Writer // Where results are printed.
}

// Execute the command line given, results are written to out.
// Returns true when the session should end.
func ProcessCommand(commandLine string, out io.Writer, core *core.Core) (bool, error) {
	line := cmdLine{line: commandLine, out: out}
	command := line.getWord(false)
	if command == "" {
		if !line.isEOL() {
			return false, errors.New("invalid command: " + strings.TrimSpace(commandLine))
		}
		return false, nil
	}

	match := matchList(command)
	if len(match) == 0 {
		return false, errors.New("command not found: " + command)
	}

	if len(match) > 1 {
		return false, errors.New("unique command not found: " + command)
	}

	return match[0].Process(&line, core)
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, command) && len(command) >= match.Min
}

// Check if command matches one of the commands.
func matchList(command string) []cmd {
	if command == "" {
		return []cmd{}
	}

	var match []cmd
	for _, m := range cmdList {
		if m.Name == command {
			return []cmd{m}
		}
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

// Match list of options.
func matchOption(option string, optList []command.Options, cmdType int) command.Options {
	for _, opt := range optList {
		if (opt.OptionValid & cmdType) == 0 {
			continue
		}
		if opt.Name == option {
			return opt
		}
	}
	return command.Options{OptionType: -1}
}

// Skip forward over line until none whitespace character found.
func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *cmdLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// Check if at a separator.
func (line *cmdLine) isSep() bool {
	return line.isEOL() || unicode.IsSpace(rune(line.line[line.pos]))
}

// Return next character in line, 0 at end of line.
func (line *cmdLine) getNext() byte {
	line.pos++
	if line.isEOL() {
		return 0
	}
	return line.line[line.pos]
}

// Return current character and advance to next.
func (line *cmdLine) getCurrent() byte {
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	line.pos++
	return by
}

// Parse string that is "string" or just string.
func (line *cmdLine) parseQuoteString() (string, bool) {
	inQuote := false
	value := ""

	by := line.getCurrent()
	if by == 0 {
		return "", false
	}

	if by == '"' {
		inQuote = true
		by = line.getCurrent()
	}

	for by != 0 {
		// Inside quotes "" is a single quote.
		if by == '"' && inQuote {
			by = line.getCurrent()
			if by != '"' {
				return value, true
			}
		}

		if !inQuote && unicode.IsSpace(rune(by)) {
			return value, true
		}

		value += string(by)
		by = line.getCurrent()
	}
	return value, !inQuote
}

// Parse an octal number.
func (line *cmdLine) getOctal() (uint32, error) {
	line.skipSpace()
	if line.isEOL() {
		return 0, errors.New("not a number")
	}

	pos := line.pos
	value := uint32(0)
	for !line.isSep() {
		by := line.getCurrent()
		if by < '0' || by > '7' {
			line.pos = pos
			return 0, errors.New("not an octal number")
		}
		value = (value << 3) + uint32(by-'0')
	}
	return value, nil
}

// Parse a decimal number.
func (line *cmdLine) getNumber() (uint32, error) {
	line.skipSpace()
	if line.isEOL() {
		return 0, errors.New("not a number")
	}

	value := uint32(0)
	for !line.isSep() {
		by := line.getCurrent()
		if !unicode.IsDigit(rune(by)) {
			return 0, errors.New("not a number")
		}
		value = (value * 10) + uint32(by-'0')
	}
	return value, nil
}

// Parse option name. Names start with a letter and may contain digits.
// If equal is set the name also ends at =.
func (line *cmdLine) getWord(equal bool) string {
	line.skipSpace()

	value := ""
	pos := line.pos
	for !line.isSep() {
		by := line.line[line.pos]
		if by == '=' && equal && value != "" {
			break
		}
		if !unicode.IsLetter(rune(by)) && (value == "" || !unicode.IsDigit(rune(by))) {
			line.pos = pos
			return ""
		}
		value += string([]byte{by})
		line.pos++
	}
	return strings.ToLower(value)
}

// Get value up to next separator.
func (line *cmdLine) getValue() string {
	value := ""
	for !line.isSep() {
		value += string([]byte{line.getCurrent()})
	}
	return value
}

// Get an option.
func (line *cmdLine) getOption(opts []command.Options, cmdType int) (*command.CmdOption, error) {
	// Get a word, stoping at equal or space.
	name := line.getWord(true)

	opt := command.CmdOption{Name: name}

	if name == "" {
		if !line.isEOL() && cmdType == command.ValidAttach {
			// A bare value on attach is the transport name.
			file, ok := line.parseQuoteString()
			if !ok {
				return nil, errors.New("invalid option")
			}
			opt.Name = "file"
			opt.EqualOpt = file
			return &opt, nil
		}
		if !line.isEOL() {
			return nil, errors.New("invalid option: " + line.line[line.pos:])
		}
		return &opt, nil
	}

	match := matchOption(name, opts, cmdType)
	switch match.OptionType {
	case -1:
		return nil, errors.New("unknown option: " + name)
	case command.OptionSwitch:
		if !line.isSep() {
			return nil, errors.New("switch option can't have arguments: " + name)
		}
	case command.OptionFile, command.OptionName:
		if line.getCurrent() != '=' {
			return nil, errors.New("option must be followed by =: " + name)
		}
		value, ok := line.parseQuoteString()
		if !ok || value == "" {
			return nil, errors.New("option value not valid: " + name)
		}
		opt.EqualOpt = value
	case command.OptionNumber:
		if line.getCurrent() != '=' {
			return nil, errors.New("number options must be followed by number: " + name)
		}
		num, err := line.getNumber()
		if err != nil {
			return nil, errors.New("number options must be followed by number: " + name)
		}
		opt.Value = num
	case command.OptionOctal:
		if line.getCurrent() != '=' {
			return nil, errors.New("octal options must be followed by octal number: " + name)
		}
		num, err := line.getOctal()
		if err != nil {
			return nil, errors.New("octal options must be followed by octal number: " + name)
		}
		opt.Value = num
	case command.OptionList:
		if line.getCurrent() != '=' {
			return nil, errors.New("list options must be followed by name: " + name)
		}
		listStr := strings.ToLower(line.getValue())
		opt.EqualOpt = listStr
		for _, mod := range match.OptionList {
			if strings.ToLower(mod) == listStr {
				return &opt, nil
			}
		}
		return nil, errors.New("option not valid for type: " + name)
	default:
		return nil, errors.New("invalid option type: " + name)
	}
	return &opt, nil
}

// Get options for show commands.
func (line *cmdLine) getShowOptions(device command.Command) ([]*command.CmdOption, error) {
	optlist := []*command.CmdOption{}
	opts := device.Options("")
	for {
		name := line.getWord(false)
		if name == "" {
			if !line.isEOL() {
				return nil, errors.New("show options must be names")
			}
			break
		}
		match := matchOption(name, opts, command.ValidShow)
		if match.OptionType == -1 {
			return nil, errors.New("invalid option: " + name)
		}
		optlist = append(optlist, &command.CmdOption{Name: name})
	}
	return optlist, nil
}

// Scan options and return a list of options.
func (line *cmdLine) getOptions(device command.Command, cmdType int) ([]*command.CmdOption, error) {
	optlist := []*command.CmdOption{}
	opts := device.Options("")
	for {
		opt, err := line.getOption(opts, cmdType)
		if err != nil {
			return optlist, err
		}
		if opt.Name == "" {
			break
		}
		optlist = append(optlist, opt)
	}
	return optlist, nil
}

// Return command interface of device named next on line.
func (line *cmdLine) getDevice() (command.Command, error) {
	name := line.getWord(false)
	if name == "" {
		return nil, errors.New("device name required")
	}
	return qbus.GetCommand(name)
}
