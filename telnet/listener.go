/*
 * XQ - Remote console listener.
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

package telnet

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	config "github.com/rcornwell/XQ/config/configparser"
	"github.com/rcornwell/XQ/emu/core"
)

type Server struct {
	wg         sync.WaitGroup
	mu         sync.Mutex
	listener   net.Listener
	shutdown   chan struct{}
	connection chan net.Conn
	sessions   map[net.Conn]struct{}
	core       *core.Core
}

// Address from CONSOLE config line, empty when no remote console.
var consoleAddr string

func init() {
	config.RegisterOption("CONSOLE", setPort)
}

// CONSOLE <port> or CONSOLE <host:port>.
func setPort(_ uint32, value string, _ []config.Option) error {
	if value == "" {
		return errors.New("console requires a port")
	}
	if _, err := strconv.ParseUint(value, 10, 16); err == nil {
		consoleAddr = ":" + value
		return nil
	}
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("console port not valid: %w", err)
	}
	consoleAddr = value
	return nil
}

// Configured console address.
func Address() string {
	return consoleAddr
}

// Open new listener.
func newServer(address string, core *core.Core) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on address %s: %w", address, err)
	}

	return &Server{
		listener:   listener,
		shutdown:   make(chan struct{}),
		connection: make(chan net.Conn),
		sessions:   map[net.Conn]struct{}{},
		core:       core,
	}, nil
}

// Accept a connection.
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		select {
		case s.connection <- conn:
		case <-s.shutdown:
			conn.Close()
			return
		}
	}
}

// Start processing for a new connection.
func (s *Server) handleConnections() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			slog.Info("Console connection from " + conn.RemoteAddr().String())
			s.mu.Lock()
			s.sessions[conn] = struct{}{}
			s.mu.Unlock()
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				handleClient(conn, s.core)
				s.mu.Lock()
				delete(s.sessions, conn)
				s.mu.Unlock()
			}()
		}
	}
}

// Start a new console server.
func Start(address string, core *core.Core) (*Server, error) {
	s, err := newServer(address, core)
	if err != nil {
		return nil, err
	}
	slog.Info("Console server started on " + s.Addr())

	s.wg.Add(2)
	go s.acceptConnections()
	go s.handleConnections()
	return s, nil
}

// Address server is listening on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop server and drop all sessions.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()
	s.mu.Lock()
	for conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for console sessions to finish.")
	}
}
