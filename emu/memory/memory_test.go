/*
 * XQ - Q-bus main memory tests.
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
	"errors"
	"testing"
)

// Set size in K.
func TestSetSize(t *testing.T) {
	m := New(0)
	for _, k := range []int{0, 1, 64, 4096, 8192} {
		m.SetSize(k)
		expect := uint32(k * 1024)
		if k > MaxSize {
			expect = MaxSize * 1024
		}
		r := m.GetSize()
		if r != expect {
			t.Errorf("GetSize size not correct got: %d expected: %d", r, expect)
		}
	}
}

// Check word access and range check.
func TestGetPutWord(t *testing.T) {
	m := New(1)
	for i := range uint32(512) {
		if m.PutWord(i*2, uint16(i)) {
			t.Errorf("PutWord failed at: %o", i*2)
		}
	}
	for i := range uint32(512) {
		v, err := m.GetWord(i * 2)
		if err {
			t.Errorf("GetWord failed at: %o", i*2)
		}
		if v != uint16(i) {
			t.Errorf("GetWord not correct got: %d expected: %d", v, i)
		}
	}
	if !m.PutWord(1024, 1) {
		t.Errorf("PutWord past end of memory succeeded")
	}
	if _, err := m.GetWord(1024); !err {
		t.Errorf("GetWord past end of memory succeeded")
	}
	if !m.CheckAddr(1023) || m.CheckAddr(1024) {
		t.Errorf("CheckAddr did not match memory size")
	}
}

// Bytes are stored low byte first.
func TestBytes(t *testing.T) {
	m := New(1)
	err := m.WriteBytes(1, []byte{0x11, 0x22, 0x33})
	if err != nil {
		t.Errorf("WriteBytes failed: %v", err)
	}
	v, _ := m.GetWord(0)
	if v != 0x1100 {
		t.Errorf("Word 0 not correct got: %04x expected: %04x", v, 0x1100)
	}
	v, _ = m.GetWord(2)
	if v != 0x3322 {
		t.Errorf("Word 2 not correct got: %04x expected: %04x", v, 0x3322)
	}

	buf := make([]byte, 4)
	err = m.ReadBytes(0, buf)
	if err != nil {
		t.Errorf("ReadBytes failed: %v", err)
	}
	for i, e := range []byte{0x00, 0x11, 0x22, 0x33} {
		if buf[i] != e {
			t.Errorf("ReadBytes byte %d got: %02x expected: %02x", i, buf[i], e)
		}
	}

	err = m.WriteBytes(1022, []byte{1, 2, 3})
	if !errors.Is(err, ErrNXM) {
		t.Errorf("WriteBytes across end of memory did not return NXM")
	}
	err = m.ReadBytes(1023, buf[:2])
	if !errors.Is(err, ErrNXM) {
		t.Errorf("ReadBytes across end of memory did not return NXM")
	}
}

// Word block transfers.
func TestWords(t *testing.T) {
	m := New(1)
	err := m.WriteWords(0101, []uint16{1, 2, 3})
	if err != nil {
		t.Errorf("WriteWords failed: %v", err)
	}
	buf := make([]uint16, 3)
	err = m.ReadWords(0100, buf)
	if err != nil {
		t.Errorf("ReadWords failed: %v", err)
	}
	for i, e := range []uint16{1, 2, 3} {
		if buf[i] != e {
			t.Errorf("ReadWords word %d got: %d expected: %d", i, buf[i], e)
		}
	}
	if !errors.Is(m.ReadWords(1020, buf), ErrNXM) {
		t.Errorf("ReadWords across end of memory did not return NXM")
	}
	if !errors.Is(m.WriteWords(2048, buf), ErrNXM) {
		t.Errorf("WriteWords past end of memory did not return NXM")
	}
	m.Barrier()
}

// Memory size option.
func TestSetMemory(t *testing.T) {
	for _, tc := range []struct {
		value string
		size  uint32
		fail  bool
	}{
		{"64", 64 * 1024, false},
		{"128K", 128 * 1024, false},
		{"4M", 4096 * 1024, false},
		{"8M", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
	} {
		err := setMemory(0, tc.value, nil)
		if tc.fail {
			if err == nil {
				t.Errorf("Memory size %s accepted", tc.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("Memory size %s rejected: %v", tc.value, err)
		}
		if GetSize() != tc.size {
			t.Errorf("Memory size %s got: %d expected: %d", tc.value, GetSize(), tc.size)
		}
	}
}
