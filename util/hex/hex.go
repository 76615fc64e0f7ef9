/*
 * XQ - Hex and octal formatting.
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

package hex

import "strings"

var hexMap = "0123456789ABCDEF"

// Bytes per line of a dump.
const dumpWidth = 16

// Format words as 4 hex digits.
func FormatHalf(str *strings.Builder, space bool, half []uint16) {
	for _, word := range half {
		shift := 12
		for range 4 {
			str.WriteByte(hexMap[(word>>shift)&0xf])
			shift -= 4
		}
		if space {
			str.WriteByte(' ')
		}
	}
	if !space {
		str.WriteByte(' ')
	}
}

func FormatBytes(str *strings.Builder, space bool, data []uint8) {
	for _, by := range data {
		str.WriteByte(hexMap[(by>>4)&0xf])
		str.WriteByte(hexMap[by&0xf])
		if space {
			str.WriteByte(' ')
		}
	}
}

// Format word as 6 octal digits.
func FormatOctal(str *strings.Builder, word uint16) {
	shift := 15
	for range 6 {
		str.WriteByte(hexMap[(word>>shift)&0x7])
		shift -= 3
	}
}

// Format an address as 8 octal digits.
func FormatOctalAddr(str *strings.Builder, addr uint32) {
	shift := 21
	for range 8 {
		str.WriteByte(hexMap[(addr>>shift)&0x7])
		shift -= 3
	}
}

// Multi line dump of a packet, offset followed by 16 bytes per line.
func Dump(data []byte) string {
	var str strings.Builder
	for off := 0; off < len(data); off += dumpWidth {
		end := min(off+dumpWidth, len(data))
		FormatHalf(&str, false, []uint16{uint16(off)})
		str.WriteByte(' ')
		FormatBytes(&str, true, data[off:end])
		str.WriteByte('\n')
	}
	return str.String()
}
