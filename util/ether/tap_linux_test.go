/*
 * XQ - TAP transport tests.
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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every queued write gets its completion, even when the port closes first.
func TestTapCloseFailsQueuedWrites(t *testing.T) {
	sending := make(chan struct{}, 1)
	release := make(chan struct{})
	port := newTapPort("tap0", -1, func(_ []byte) error {
		sending <- struct{}{}
		<-release
		return nil
	})

	results := make(chan error, 3)
	done := func(err error) { results <- err }
	frame := make([]byte, MinPacket)
	for range 3 {
		require.NoError(t, port.Write(frame, done))
	}
	<-sending

	stopped := make(chan struct{})
	go func() {
		assert.NoError(t, port.stop())
		close(stopped)
	}()
	assert.Eventually(t, func() bool {
		return port.Write(frame, nil) == ErrClosed
	}, time.Second, time.Millisecond)
	close(release)
	<-stopped

	var got []error
	for range 3 {
		select {
		case err := <-results:
			got = append(got, err)
		case <-time.After(time.Second):
			t.Fatal("write completion not called")
		}
	}
	assert.Equal(t, []error{nil, ErrClosed, ErrClosed}, got)
	assert.ErrorIs(t, port.stop(), ErrClosed)
}
