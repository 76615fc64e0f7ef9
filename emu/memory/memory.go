/*
 * XQ - Q-bus main memory.
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
	"fmt"
	"sync"
)

const (
	AMASK   uint32 = 0x003fffff // 22 bit Q-bus address.
	MaxSize        = 4096       // Largest memory in K bytes.
)

var ErrNXM = errors.New("non-existent memory")

// Memory is byte addressed guest memory stored as 16 bit little endian
// words. All accesses are serialized, Barrier orders them against other
// goroutines touching the same memory.
type Memory struct {
	mu   sync.RWMutex
	mem  []uint16
	size uint32
}

// Create memory of k K bytes.
func New(k int) *Memory {
	m := &Memory{mem: make([]uint16, MaxSize*1024/2)}
	m.SetSize(k)
	return m
}

// Set size in K.
func (m *Memory) SetSize(k int) {
	if k > MaxSize {
		k = MaxSize
	}
	if k < 0 {
		k = 0
	}
	m.mu.Lock()
	m.size = uint32(k * 1024)
	m.mu.Unlock()
}

// Return size of memory in bytes.
func (m *Memory) GetSize() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Check if address is inside memory.
func (m *Memory) CheckAddr(addr uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return (addr & AMASK) < m.size
}

// Get a word from memory, address is rounded down to even.
func (m *Memory) GetWord(addr uint32) (value uint16, error bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr &= AMASK
	if addr >= m.size {
		return 0, true
	}
	return m.mem[addr>>1], false
}

// Put a word to memory.
func (m *Memory) PutWord(addr uint32, data uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr &= AMASK
	if addr >= m.size {
		return true
	}
	m.mem[addr>>1] = data
	return false
}

// Check range, must be called with lock held.
func (m *Memory) check(addr uint32, length int) error {
	end := uint64(addr&AMASK) + uint64(length)
	if end > uint64(m.size) {
		return fmt.Errorf("%w: %08o", ErrNXM, addr&AMASK)
	}
	return nil
}

// Read words starting at even address.
func (m *Memory) ReadWords(addr uint32, buf []uint16) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr &= AMASK &^ 1
	if err := m.check(addr, len(buf)*2); err != nil {
		return err
	}
	copy(buf, m.mem[addr>>1:])
	return nil
}

// Write words starting at even address.
func (m *Memory) WriteWords(addr uint32, buf []uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr &= AMASK &^ 1
	if err := m.check(addr, len(buf)*2); err != nil {
		return err
	}
	copy(m.mem[addr>>1:], buf)
	return nil
}

// Read bytes at any address.
func (m *Memory) ReadBytes(addr uint32, buf []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	addr &= AMASK
	if err := m.check(addr, len(buf)); err != nil {
		return err
	}
	for i := range buf {
		a := addr + uint32(i)
		buf[i] = byte(m.mem[a>>1] >> ((a & 1) * 8))
	}
	return nil
}

// Write bytes at any address.
func (m *Memory) WriteBytes(addr uint32, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr &= AMASK
	if err := m.check(addr, len(buf)); err != nil {
		return err
	}
	for i, by := range buf {
		a := addr + uint32(i)
		shift := (a & 1) * 8
		m.mem[a>>1] = (m.mem[a>>1] &^ (0xff << shift)) | (uint16(by) << shift)
	}
	return nil
}

// Full memory barrier: every access issued before it is visible to any
// access issued after it.
func (m *Memory) Barrier() {
	m.mu.Lock()
	m.mu.Unlock() //nolint:staticcheck
}

// Memory shared by all devices configured from the config file.
var memory = New(0)

// Default memory instance.
func Default() *Memory {
	return memory
}

// Set size of default memory in K.
func SetSize(k int) {
	memory.SetSize(k)
}

// Return size of default memory in bytes.
func GetSize() uint32 {
	return memory.GetSize()
}
