/*
 * XQ - Linux TAP transport.
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

//go:build linux

package ether

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	tapPollMsec  = 100 // Reader wakes this often to check for close.
	tapWriteMax  = 64  // Writes queued before Write reports busy.
	tapQueueMax  = 256 // Received frames held before oldest is dropped.
	tapDevice    = "/dev/net/tun"
	tapWriteBusy = "tap write queue full"
)

type tapWrite struct {
	frame []byte
	done  func(err error)
}

type tapPort struct {
	name   string
	fd     int
	filter Filter
	mu     sync.Mutex
	rx     [][]byte
	notify func()
	send   func(frame []byte) error
	writes chan tapWrite
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

func init() {
	Register("tap", openTap)
}

func openTap(name string) (Transport, error) {
	fd, err := unix.Open(tapDevice, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", tapDevice, err)
	}

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("tap device %s: %w", name, err)
	}
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err = unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("tap device %s: %w", name, err)
	}

	port := newTapPort(name, fd, func(frame []byte) error {
		_, err := unix.Write(fd, frame)
		return err
	})
	port.wg.Add(1)
	go port.reader()
	slog.Info("Opened tap device " + name)
	return port, nil
}

// Create port and start its writer.
func newTapPort(name string, fd int, send func(frame []byte) error) *tapPort {
	port := &tapPort{
		name:   name,
		fd:     fd,
		send:   send,
		writes: make(chan tapWrite, tapWriteMax),
		done:   make(chan struct{}),
	}
	port.wg.Add(1)
	go port.writer()
	return port
}

func (port *tapPort) Name() string {
	return "tap:" + port.name
}

// Receive frames until closed.
func (port *tapPort) reader() {
	defer port.wg.Done()
	buf := make([]byte, FrameSize)
	fds := []unix.PollFd{{Fd: int32(port.fd), Events: unix.POLLIN}}
	for {
		select {
		case <-port.done:
			return
		default:
		}

		n, err := unix.Poll(fds, tapPollMsec)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			slog.Error("tap poll: " + err.Error())
			return
		}
		if n == 0 || (fds[0].Revents&unix.POLLIN) == 0 {
			continue
		}

		n, err = unix.Read(port.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			slog.Error("tap read: " + err.Error())
			return
		}
		if n < HeaderLen || !port.filter.Accept(buf[:n]) {
			continue
		}
		port.deliver(append([]byte(nil), buf[:n]...))
	}
}

func (w tapWrite) finish(err error) {
	if w.done != nil {
		w.done(err)
	}
}

// Send queued frames in order. Writes still queued at close fail.
func (port *tapPort) writer() {
	defer port.wg.Done()
	for {
		select {
		case <-port.done:
			for {
				select {
				case w := <-port.writes:
					w.finish(ErrClosed)
				default:
					return
				}
			}
		case w := <-port.writes:
			select {
			case <-port.done:
				w.finish(ErrClosed)
			default:
				w.finish(port.send(w.frame))
			}
		}
	}
}

func (port *tapPort) deliver(frame []byte) {
	port.mu.Lock()
	if len(port.rx) >= tapQueueMax {
		port.rx = port.rx[1:]
	}
	port.rx = append(port.rx, frame)
	notify := port.notify
	port.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Queue under the lock so Close cannot slip between the check and the send.
func (port *tapPort) Write(frame []byte, done func(err error)) error {
	port.mu.Lock()
	defer port.mu.Unlock()
	if port.closed {
		return ErrClosed
	}
	select {
	case port.writes <- tapWrite{frame: append([]byte(nil), frame...), done: done}:
		return nil
	default:
		return errors.New(tapWriteBusy)
	}
}

func (port *tapPort) Read() ([]byte, bool) {
	port.mu.Lock()
	defer port.mu.Unlock()
	if len(port.rx) == 0 {
		return nil, false
	}
	frame := port.rx[0]
	port.rx = port.rx[1:]
	return frame, true
}

func (port *tapPort) SetAsync(notify func()) error {
	port.mu.Lock()
	defer port.mu.Unlock()
	port.notify = notify
	return nil
}

func (port *tapPort) ClearAsync() error {
	port.mu.Lock()
	defer port.mu.Unlock()
	port.notify = nil
	return nil
}

func (port *tapPort) Filter(addrs []MAC, allMulticast bool, promiscuous bool) error {
	port.filter.Set(addrs, allMulticast, promiscuous)
	return nil
}

func (port *tapPort) FilterHash(addr MAC, promiscuous bool, hash MultiHash) error {
	port.filter.SetHash(addr, promiscuous, hash)
	return nil
}

// The host side of a tap device is private to this process, so no other
// station can already own the address.
func (port *tapPort) CheckAddressConflict(_ MAC) (int, error) {
	return 0, nil
}

func (port *tapPort) Close() error {
	if err := port.stop(); err != nil {
		return err
	}
	return unix.Close(port.fd)
}

// Stop reader and writer, failing any queued writes.
func (port *tapPort) stop() error {
	port.mu.Lock()
	if port.closed {
		port.mu.Unlock()
		return ErrClosed
	}
	port.closed = true
	port.notify = nil
	port.mu.Unlock()

	close(port.done)
	port.wg.Wait()
	return nil
}
