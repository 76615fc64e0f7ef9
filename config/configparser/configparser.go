/*
 * XQ - Configuration file parser
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
package configparser

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode"

	D "github.com/rcornwell/XQ/emu/device"
)

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line>    ::= <model> <first> *(<option>)
 * <model>   ::= <letter> *(<letter> | <digit>)
 * <first>   ::= <octal address> | <value>
 * <option>  ::= <name> ['=' <value>] *(',' <name>)
 * <name>    ::= <letter> *<vchar>
 * <value>   ::= *<vchar> | '"' *<any> '"'
 * <vchar>   ::= <letter> | <digit> | ':' | '-' | '.' | '/' | '_'
 *
 * A doubled quote inside a quoted value stands for one quote.
 */

// List of options to pass to create routine.
type Option struct {
	Name     string   // Name of option.
	EqualOpt string   // Value of string after =.
	Value    []string // Names following a comma.
}

const (
	TypeModel   = 1 + iota // Device at a bus address.
	TypeOption             // Takes a single value.
	TypeOptions            // Takes a value and a list of options.
)

// Model creation list.
type modelDef struct {
	create func(uint32, string, []Option) error
	ty     int
}

var models = map[string]modelDef{}

// Register should be called from init functions.
func RegisterModel(mod string, ty int, fn func(uint32, string, []Option) error) {
	mod = strings.ToUpper(mod)
	slog.Debug("Registering device: " + mod)
	models[mod] = modelDef{create: fn, ty: ty}
}

// Register should be called from init functions.
func RegisterOption(mod string, fn func(uint32, string, []Option) error) {
	RegisterModel(mod, TypeOption, fn)
}

// Load in a configuration file.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file)
}

// Process configuration lines from a reader.
func LoadConfig(in io.Reader) error {
	scan := bufio.NewScanner(in)
	number := 0
	for scan.Scan() {
		number++
		line := optionLine{line: scan.Text(), number: number}
		if err := line.parseLine(); err != nil {
			return err
		}
	}
	return scan.Err()
}

// Current option line being parsed.
type optionLine struct {
	line   string // Current option line.
	pos    int    // Current position in line.
	number int    // Line number for errors.
}

// First value after model name.
type firstOption struct {
	devNum uint32 // Bus address, D.NoDev if value is not octal.
	value  string // Value as given.
}

func (line *optionLine) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", line.number, fmt.Sprintf(format, args...))
}

// Parse one line and create what it names.
func (line *optionLine) parseLine() error {
	line.skipSpace()
	if line.isEOL() {
		return nil
	}

	name := strings.ToUpper(line.getWord(func(by byte) bool {
		return unicode.IsLetter(rune(by)) || unicode.IsDigit(rune(by))
	}))
	model, ok := models[name]
	if !ok {
		return line.errorf("no type %s registered", name)
	}

	first, err := line.parseFirst()
	if err != nil {
		return err
	}
	if first == nil {
		return line.errorf("%s requires a value", name)
	}

	var options []Option
	switch model.ty {
	case TypeModel:
		if first.devNum == D.NoDev {
			return line.errorf("device %s requires an octal address, got %s", name, first.value)
		}
		options, err = line.parseOptions()
	case TypeOption:
		line.skipSpace()
		if !line.isEOL() {
			return line.errorf("option %s takes only one value", name)
		}
	case TypeOptions:
		options, err = line.parseOptions()
	}
	if err != nil {
		return err
	}
	return model.create(first.devNum, first.value, options)
}

// Skip forward over line until none whitespace character found.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *optionLine) isEOL() bool {
	return line.pos >= len(line.line) || line.line[line.pos] == '#'
}

// Current character, 0 at end of line.
func (line *optionLine) peek() byte {
	if line.isEOL() {
		return 0
	}
	return line.line[line.pos]
}

// Characters allowed in an unquoted value.
func isValueChar(by byte) bool {
	if unicode.IsLetter(rune(by)) || unicode.IsDigit(rune(by)) {
		return true
	}
	switch by {
	case ':', '-', '.', '/', '_':
		return true
	}
	return false
}

// Collect characters while valid.
func (line *optionLine) getWord(valid func(byte) bool) string {
	start := line.pos
	for !line.isEOL() && valid(line.line[line.pos]) {
		line.pos++
	}
	return line.line[start:line.pos]
}

// Parse a quoted or bare value.
func (line *optionLine) getValue() (string, error) {
	if line.peek() != '"' {
		return line.getWord(isValueChar), nil
	}

	var value strings.Builder
	line.pos++
	for line.pos < len(line.line) {
		by := line.line[line.pos]
		line.pos++
		if by != '"' {
			value.WriteByte(by)
			continue
		}
		if line.pos < len(line.line) && line.line[line.pos] == '"' {
			value.WriteByte('"')
			line.pos++
			continue
		}
		return value.String(), nil
	}
	return "", line.errorf("unterminated quoted string")
}

// Parse first value, nil if none.
func (line *optionLine) parseFirst() (*firstOption, error) {
	line.skipSpace()
	if line.isEOL() {
		return nil, nil
	}

	quoted := line.peek() == '"'
	value, err := line.getValue()
	if err != nil {
		return nil, err
	}
	if value == "" && !quoted {
		return nil, line.errorf("invalid value at column %d", line.pos+1)
	}

	first := firstOption{devNum: D.NoDev, value: value}
	if quoted {
		return &first, nil
	}
	// Bus addresses are given in octal.
	if addr, err := strconv.ParseUint(value, 8, 22); err == nil {
		first.devNum = uint32(addr)
	}
	return &first, nil
}

// Parse one option, nil at end of line.
func (line *optionLine) parseOption() (*Option, error) {
	line.skipSpace()
	if line.isEOL() {
		return nil, nil
	}
	if !unicode.IsLetter(rune(line.peek())) {
		return nil, line.errorf("invalid option at column %d", line.pos+1)
	}

	option := Option{Name: line.getWord(isValueChar)}
	if line.peek() == '=' {
		line.pos++
		value, err := line.getValue()
		if err != nil {
			return nil, err
		}
		option.EqualOpt = value
	}

	line.skipSpace()
	for line.peek() == ',' {
		line.pos++
		line.skipSpace()
		if name := line.getWord(isValueChar); name != "" {
			option.Value = append(option.Value, name)
		}
		line.skipSpace()
	}
	if by := line.peek(); by != 0 && !unicode.IsLetter(rune(by)) {
		return nil, line.errorf("invalid character '%c' at column %d", by, line.pos+1)
	}
	return &option, nil
}

// Collect all options for line.
func (line *optionLine) parseOptions() ([]Option, error) {
	var options []Option
	for {
		option, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		if option == nil {
			return options, nil
		}
		options = append(options, *option)
	}
}
