/*
 * XQ - Hex and octal formatting test cases.
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

import (
	"strings"
	"testing"
)

func TestFormatHalf(t *testing.T) {
	var str strings.Builder
	FormatHalf(&str, true, []uint16{0x1234, 0xABCD})
	if str.String() != "1234 ABCD " {
		t.Errorf("Format half got: '%s' expected: '%s'", str.String(), "1234 ABCD ")
	}
	str.Reset()
	FormatHalf(&str, false, []uint16{0x0001, 0xff00})
	if str.String() != "0001FF00 " {
		t.Errorf("Format half got: '%s' expected: '%s'", str.String(), "0001FF00 ")
	}
}

func TestFormatOctal(t *testing.T) {
	var str strings.Builder
	FormatOctal(&str, 0o177777)
	if str.String() != "177777" {
		t.Errorf("Format octal got: '%s' expected: '%s'", str.String(), "177777")
	}
	str.Reset()
	FormatOctal(&str, 0o000120)
	if str.String() != "000120" {
		t.Errorf("Format octal got: '%s' expected: '%s'", str.String(), "000120")
	}
	str.Reset()
	FormatOctalAddr(&str, 0o17774440)
	if str.String() != "17774440" {
		t.Errorf("Format address got: '%s' expected: '%s'", str.String(), "17774440")
	}
}

func TestDump(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}
	expect := "0000  00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F \n" +
		"0010  10 11 \n"
	result := Dump(data)
	if result != expect {
		t.Errorf("Dump got: '%s' expected: '%s'", result, expect)
	}
	if Dump(nil) != "" {
		t.Errorf("Dump of empty packet not empty")
	}
}
