/*
 * XQ - Memory configuration.
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

package memory

import (
	"fmt"
	"strconv"
	"strings"

	config "github.com/rcornwell/XQ/config/configparser"
)

// register memory size option on initialize.
func init() {
	config.RegisterOption("MEMORY", setMemory)
}

// Set memory size, value is in K bytes or ends in K or M.
func setMemory(_ uint32, value string, _ []config.Option) error {
	mult := 1
	str := strings.ToUpper(value)
	switch {
	case strings.HasSuffix(str, "M"):
		mult = 1024
		str = strings.TrimSuffix(str, "M")
	case strings.HasSuffix(str, "K"):
		str = strings.TrimSuffix(str, "K")
	}

	k, err := strconv.ParseUint(str, 10, 16)
	if err != nil || k == 0 {
		return fmt.Errorf("invalid memory size: %s", value)
	}
	size := int(k) * mult
	if size > MaxSize {
		return fmt.Errorf("memory size %s larger than %dK", value, MaxSize)
	}
	SetSize(size)
	return nil
}
