/*
 * XQ - Console commands.
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
	"fmt"
	"log/slog"
	"strings"

	command "github.com/rcornwell/XQ/command/command"
	core "github.com/rcornwell/XQ/emu/core"
	"github.com/rcornwell/XQ/emu/qbus"
	"github.com/rcornwell/XQ/util/hex"
)

var cmdList = []cmd{
	{Name: "attach", Min: 2, Process: attach, Complete: attachComplete},
	{Name: "detach", Min: 2, Process: detach, Complete: detachComplete},
	{Name: "set", Min: 3, Process: set, Complete: setComplete},
	{Name: "unset", Min: 4, Process: unset, Complete: setComplete},
	{Name: "quit", Min: 4, Process: quit},
	{Name: "stop", Min: 3, Process: stop},
	{Name: "continue", Min: 1, Process: cont},
	{Name: "start", Min: 3, Process: start},
	{Name: "show", Min: 2, Process: show, Complete: showComplete},
	{Name: "examine", Min: 1, Process: examine},
	{Name: "deposit", Min: 1, Process: deposit},
	{Name: "reset", Min: 5, Process: reset, Complete: DeviceComplete},
}

// Attach a device to a transport.
func attach(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Attach")
	device, err := line.getDevice()
	if err != nil {
		return false, err
	}

	options, err := line.getOptions(device, command.ValidAttach)
	if err != nil {
		return false, err
	}
	if len(options) == 0 {
		return false, errors.New("attach requires a transport name")
	}

	return false, device.Attach(options)
}

// Detach a device.
func detach(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Detach")
	device, err := line.getDevice()
	if err != nil {
		return false, err
	}
	if !line.isEOL() {
		return false, errors.New("detach takes no options")
	}
	return false, device.Detach()
}

// Set options on a device.
func set(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Set")
	return false, setOptions(line, false)
}

// Clear options on a device.
func unset(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Unset")
	return false, setOptions(line, true)
}

func setOptions(line *cmdLine, unset bool) error {
	device, err := line.getDevice()
	if err != nil {
		return err
	}

	options, err := line.getOptions(device, command.ValidSet)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		return errors.New("no options given")
	}
	return device.Set(unset, options)
}

// Exit simulator.
func quit(_ *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Quit")
	return true, nil
}

// Stop the clock.
func stop(_ *cmdLine, core *core.Core) (bool, error) {
	slog.Debug("Command Stop")
	core.SendStop()
	return false, nil
}

// Resume the clock.
func cont(_ *cmdLine, core *core.Core) (bool, error) {
	slog.Debug("Command Continue")
	core.SendStart()
	return false, nil
}

// Reset all devices and run the clock.
func start(_ *cmdLine, core *core.Core) (bool, error) {
	slog.Debug("Command Start")
	core.SendReset()
	core.SendStart()
	return false, nil
}

// Show device settings.
func show(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Show")
	name := line.getWord(false)
	if name == "" || name == "all" {
		if !line.isEOL() {
			return false, errors.New("show all takes no options")
		}
		for _, devName := range qbus.Names() {
			device, err := qbus.GetCommand(devName)
			if err != nil {
				continue
			}
			str, err := device.Show(nil)
			if err != nil {
				return false, err
			}
			fmt.Fprintln(line.out, str)
		}
		return false, nil
	}

	device, err := qbus.GetCommand(name)
	if err != nil {
		return false, err
	}

	options, err := line.getShowOptions(device)
	if err != nil {
		return false, err
	}

	str, err := device.Show(options)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(line.out, str)
	return false, nil
}

// Examine bus locations: examine addr [count].
func examine(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Examine")
	addr, err := line.getOctal()
	if err != nil {
		return false, err
	}
	count := uint32(1)
	line.skipSpace()
	if !line.isEOL() {
		count, err = line.getNumber()
		if err != nil {
			return false, err
		}
	}
	if !line.isEOL() {
		return false, errors.New("extra characters after count")
	}

	var str strings.Builder
	for range count {
		data, err := qbus.Read(addr)
		if err != nil {
			return false, err
		}
		hex.FormatOctalAddr(&str, addr)
		str.WriteString(": ")
		hex.FormatOctal(&str, data)
		str.WriteByte('\n')
		addr += 2
	}
	fmt.Fprint(line.out, str.String())
	return false, nil
}

// Deposit value at bus location: deposit addr value.
func deposit(line *cmdLine, _ *core.Core) (bool, error) {
	slog.Debug("Command Deposit")
	addr, err := line.getOctal()
	if err != nil {
		return false, err
	}
	data, err := line.getOctal()
	if err != nil {
		return false, err
	}
	if data > 0o177777 {
		return false, fmt.Errorf("value %o larger than a word", data)
	}
	line.skipSpace()
	if !line.isEOL() {
		return false, errors.New("extra characters after value")
	}
	return false, qbus.Write(addr, uint16(data))
}

// Reset a device, or the whole bus.
func reset(line *cmdLine, core *core.Core) (bool, error) {
	slog.Debug("Command Reset")
	name := line.getWord(false)
	if name == "" || name == "all" {
		if !line.isEOL() {
			return false, errors.New("reset all takes no options")
		}
		core.SendReset()
		return false, nil
	}

	device, err := qbus.GetDevice(name)
	if err != nil {
		return false, err
	}
	device.Reset()
	return false, nil
}
