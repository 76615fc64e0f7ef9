/*
 * XQ - Debug configuration options.
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

package debugconfig

import (
	"errors"
	"fmt"
	"strings"

	config "github.com/rcornwell/XQ/config/configparser"
	dev "github.com/rcornwell/XQ/emu/device"
	"github.com/rcornwell/XQ/emu/qbus"
)

// register a device on initialize.
func init() {
	config.RegisterModel("DEBUG", config.TypeOptions, setDebug)
}

// Enable debug options on a device given by name or octal bus address.
func setDebug(devNum uint32, device string, options []config.Option) error {
	name := device
	if devNum != dev.NoDev {
		var err error
		name, err = deviceAt(devNum)
		if err != nil {
			return err
		}
	}

	target, err := qbus.GetDevice(name)
	if err != nil {
		return fmt.Errorf("debug option invalid: %w", err)
	}

	if len(options) == 0 {
		return errors.New("debug " + name + " requires options")
	}
	for _, opt := range options {
		if opt.EqualOpt != "" {
			return errors.New("debug option can't have value: " + opt.Name)
		}
		if err := target.Debug(strings.ToUpper(opt.Name)); err != nil {
			return err
		}
		for _, value := range opt.Value {
			if err := target.Debug(strings.ToUpper(value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find device whose register window starts at addr.
func deviceAt(addr uint32) (string, error) {
	for _, name := range qbus.Names() {
		base, err := qbus.Address(name)
		if err == nil && base == addr {
			return name, nil
		}
	}
	return "", fmt.Errorf("no device at %08o", addr)
}
