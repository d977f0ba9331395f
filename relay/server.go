// The MIT License (MIT)
//
// # Copyright (c) 2025 vkuzn
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package relay

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/vkuzn/chatrelay/sched"
)

// Server owns the listening socket, the registries and the scheduler. All
// state is in memory and disappears on restart.
type Server struct {
	listenFD int
	addr     string
	clients  *ClientRegistry
	chats    *ChatRegistry
	sched    *sched.Scheduler
	log      *logrus.Entry
}

// NewServer binds the listening socket immediately so the caller sees
// address errors before Run.
func NewServer(addr string, backlog int, logger *logrus.Logger) (*Server, error) {
	fd, err := listenSocket(addr, backlog)
	if err != nil {
		return nil, err
	}
	bound, err := localAddr(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Server{
		listenFD: fd,
		addr:     bound,
		clients:  NewClientRegistry(),
		chats:    NewChatRegistry(),
		sched:    sched.New(logger),
		log:      logger.WithField("component", "relay"),
	}, nil
}

// Addr returns the effective listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Run blocks for the lifetime of the server: it spawns the accept task and
// drives the scheduler until no task remains.
func (s *Server) Run() error {
	s.log.WithField("addr", s.addr).Info("running server")
	s.sched.Spawn(s.acceptLoop)
	return s.sched.Run()
}

// Close shuts the listening socket; the accept task terminates on its next
// resumption.
func (s *Server) Close() error {
	return unix.Close(s.listenFD)
}
