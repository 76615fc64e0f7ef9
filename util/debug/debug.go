/*
 * XQ - Debug trace output.
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

package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	config "github.com/rcornwell/XQ/config/configparser"
	"github.com/rcornwell/XQ/util/hex"
)

var (
	mu      sync.Mutex
	logFile io.Writer
)

func output(prefix string, format string, a ...interface{}) {
	msg := fmt.Sprintf(prefix+": "+format, a...)
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		slog.Debug(msg)
		return
	}
	fmt.Fprintln(logFile, msg)
}

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		output(module, format, a...)
	}
}

// Device debug message.
func DebugDevf(device string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		output(device, format, a...)
	}
}

// Dump a packet to debug output.
func DebugDump(device string, mask int, level int, title string, data []byte) {
	if (mask & level) == 0 {
		return
	}
	var str strings.Builder
	str.WriteString(title)
	str.WriteByte('\n')
	str.WriteString(hex.Dump(data))
	output(device, "%s", strings.TrimRight(str.String(), "\n"))
}

// Direct debug output to writer, nil returns to the logger.
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logFile = out
}

// register a device on initialize.
func init() {
	config.RegisterOption("DEBUGFILE", create)
}

// Create debug output file.
func create(_ uint32, fileName string, _ []config.Option) error {
	mu.Lock()
	defer mu.Unlock()
	if file, ok := logFile.(*os.File); ok {
		return fmt.Errorf("Can't have more then one debug file, previous: %s", file.Name())
	}

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s", fileName)
	}

	logFile = file
	return nil
}
