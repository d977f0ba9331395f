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
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/vkuzn/chatrelay/sched"
)

// Each connection drives one task at a time: the accept task greets and
// hands off to a registration task, which hands off to the message loop.

// acceptLoop owns the listening socket for the lifetime of the server.
func (s *Server) acceptLoop(y *sched.Yielder) {
	for {
		if !y.Wait(s.listenFD, sched.Read) {
			return
		}
		fd, addr, err := acceptSocket(s.listenFD)
		if err != nil {
			if transientAcceptError(err) {
				s.log.WithError(err).Warn("transient accept failure")
				continue
			}
			s.log.WithError(err).Error("accept failed, stopping listener")
			return
		}

		client := s.clients.Add(fd, addr)
		s.log.WithFields(logrus.Fields{"client": client.ID, "remote_addr": addr}).Info("client connected")

		if !s.send(y, client, "Hi! Write your username.") {
			continue
		}
		s.sched.Spawn(func(y *sched.Yielder) { s.registerLoop(y, client) })
	}
}

// registerLoop reads proposed names until one passes the uniqueness check,
// then sends the help text and hands the connection to the message loop.
func (s *Server) registerLoop(y *sched.Yielder, c *Client) {
	for {
		payload, ok := s.recv(y, c)
		if !ok {
			return
		}
		name := strings.TrimSpace(payload)

		if !validName(name) || s.clients.NameTaken(name) {
			s.log.WithFields(logrus.Fields{"client": c.ID, "input_username": name}).Info("username rejected")
			if !s.send(y, c, "Username is already in use, try another one:") {
				return
			}
			continue
		}

		c.Name = name
		s.log.WithFields(logrus.Fields{"client": c.ID, "name": name}).Info("registered new client")
		if !s.send(y, c, helpText()) {
			return
		}
		s.sched.Spawn(func(y *sched.Yielder) { s.messageLoop(y, c) })
		return
	}
}

// validName rejects empty names and names with embedded whitespace or
// control characters. Applied before the uniqueness scan so both run on the
// same trimmed form.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// messageLoop handles one registered client until disconnect: each payload
// is either a command or chat text for the active peer.
func (s *Server) messageLoop(y *sched.Yielder, c *Client) {
	for {
		payload, ok := s.recv(y, c)
		if !ok {
			return
		}
		s.log.WithFields(logrus.Fields{"client": c.Name, "message": strings.TrimSpace(payload)}).Debug("received message")

		if isCommand(payload) {
			name, args := parseCommand(payload)
			s.dispatch(y, c, name, args)
			continue
		}

		if s.chats.ActiveChatOf(c) != nil {
			s.forwardChat(y, c, payload)
		} else {
			s.send(y, c, "You are not consistent with any chat.")
		}
	}
}

// forwardChat relays chat text to the peer of the sender's active chat.
func (s *Server) forwardChat(y *sched.Yielder, c *Client, payload string) {
	chat := s.chats.ActiveChatOf(c)
	if chat == nil {
		return
	}
	s.send(y, chat.Peer(c), c.Name+": "+strings.TrimSpace(payload))
}

// dispatch validates the command name and arity, then routes to the
// handler. Error replies leave all registries untouched.
func (s *Server) dispatch(y *sched.Yielder, c *Client, name string, args []string) {
	cmd, ok := lookupCommand(name)
	if !ok {
		s.log.WithFields(logrus.Fields{"client": c.Name, "raw_command": name}).Debug("unknown command")
		s.send(y, c, "Unknown command: "+name+".")
		return
	}
	if len(args) != len(cmd.args) {
		s.log.WithFields(logrus.Fields{"client": c.Name, "command": name, "args": args}).Debug("invalid command args")
		s.send(y, c, "Invalid command args.")
		return
	}

	switch cmd.name {
	case "clients":
		s.cmdClients(y, c)
	case "connect":
		s.cmdConnect(y, c, args[0])
	case "disconnect":
		s.cmdDisconnect(y, c)
	case "dialog":
		s.cmdDialog(y, c)
	case "approve":
		s.cmdApprove(y, c, args[0])
	case "decline":
		s.cmdDecline(y, c, args[0])
	case "requests":
		s.cmdRequests(y, c)
	case "help":
		s.send(y, c, helpText())
	}
}

func (s *Server) cmdClients(y *sched.Yielder, c *Client) {
	var names []string
	for _, other := range s.clients.Registered() {
		if other.Name != c.Name {
			names = append(names, other.Name)
		}
	}
	reply := strings.Join(names, "\n")
	if reply == "" {
		reply = "No available clients."
	}
	s.send(y, c, reply)
}

func (s *Server) cmdConnect(y *sched.Yielder, c *Client, targetName string) {
	if c.Name == targetName {
		s.send(y, c, "Client is trying to connect to itself.")
		return
	}
	if active := s.chats.ActiveChatOf(c); active != nil {
		s.send(y, c, "You already in chat with "+active.Peer(c).Name+".")
		return
	}
	target := s.clients.ByName(targetName)
	if target == nil {
		s.send(y, c, "Client may be disconnected.")
		return
	}

	// At most one pending chat per ordered pair; a repeated /connect just
	// re-notifies the target.
	if s.chats.Pending(c, target) == nil {
		chat := s.chats.Add(c, target)
		s.log.WithFields(logrus.Fields{"chat": chat.ID, "initiator": c.Name, "target": targetName}).Info("chat requested")
	}
	s.send(y, target, c.Name+" wants to start a chat with you.")
}

func (s *Server) cmdDisconnect(y *sched.Yielder, c *Client) {
	chat := s.chats.ActiveChatOf(c)
	if chat == nil {
		s.send(y, c, "You have no active chat now.")
		return
	}
	s.chats.Remove(chat)
	s.log.WithFields(logrus.Fields{"chat": chat.ID}).Info("chat ended")
	s.send(y, chat.Initiator, "Chat with "+chat.Target.Name+" ended.")
	s.send(y, chat.Target, "Chat with "+chat.Initiator.Name+" ended.")
}

func (s *Server) cmdDialog(y *sched.Yielder, c *Client) {
	chat := s.chats.ActiveChatOf(c)
	if chat == nil {
		s.send(y, c, "You do not have active chats.")
		return
	}
	s.send(y, c, "You have active chat with "+chat.Peer(c).Name+".")
}

func (s *Server) cmdApprove(y *sched.Yielder, c *Client, initiatorName string) {
	if c.Name == initiatorName {
		s.send(y, c, "You are trying to approve a chat with yourself.")
		return
	}
	if active := s.chats.ActiveChatOf(c); active != nil {
		s.send(y, c, "You already has an active chat with "+active.Peer(c).Name+".")
		return
	}
	initiator := s.clients.ByName(initiatorName)
	if initiator == nil {
		s.send(y, c, "Chat initiator may be disconnected.")
		return
	}
	if s.chats.ActiveChatOf(initiator) != nil {
		// The pending request is kept, so approve can be retried once the
		// initiator leaves their current chat.
		s.send(y, c, initiatorName+" already has an active chat.")
		return
	}

	pending := s.chats.Pending(initiator, c)
	if pending == nil {
		s.send(y, c, "You have no chat request from "+initiatorName+".")
		return
	}
	pending.Approved = true
	s.log.WithFields(logrus.Fields{"chat": pending.ID, "initiator": initiatorName, "target": c.Name}).Info("chat approved")
	s.send(y, pending.Initiator, "You started a chat with "+pending.Target.Name+".")
	s.send(y, pending.Target, "You started a chat with "+pending.Initiator.Name+".")
}

func (s *Server) cmdDecline(y *sched.Yielder, c *Client, initiatorName string) {
	if c.Name == initiatorName {
		s.send(y, c, "You are trying to decline a chat with yourself.")
		return
	}
	initiator := s.clients.ByName(initiatorName)
	if initiator == nil {
		s.send(y, c, "Chat initiator may be disconnected.")
		return
	}
	pending := s.chats.Pending(initiator, c)
	if pending == nil {
		s.send(y, c, "You have no chat request from "+initiatorName+".")
		return
	}
	s.chats.Remove(pending)
	s.log.WithFields(logrus.Fields{"chat": pending.ID, "initiator": initiatorName, "target": c.Name}).Info("chat declined")
	s.send(y, pending.Target, "You declined a chat request from "+pending.Initiator.Name+".")
	s.send(y, pending.Initiator, pending.Target.Name+" declined your chat request.")
}

func (s *Server) cmdRequests(y *sched.Yielder, c *Client) {
	pendings := s.chats.PendingTargeting(c)
	if len(pendings) == 0 {
		s.send(y, c, "You not have chat requests")
		return
	}
	lines := make([]string, 0, len(pendings)+1)
	lines = append(lines, "Chat requests from:")
	for i, ch := range pendings {
		lines = append(lines, strconv.Itoa(i+1)+". "+ch.Initiator.Name)
	}
	s.send(y, c, strings.Join(lines, "\n"))
}

// recv reads one payload from the client, suspending until the socket is
// readable. ok is false when the client disconnected; the teardown cascade
// has already run by then.
func (s *Server) recv(y *sched.Yielder, c *Client) (string, bool) {
	buf := make([]byte, readBufSize)
	for {
		if !y.Wait(c.FD, sched.Read) {
			// Scrubbed by the teardown cascade while parked.
			return "", false
		}
		if s.clients.BySocket(c.FD) != c {
			// Torn down while this task sat on the ready queue.
			return "", false
		}
		n, err := unix.Read(c.FD, buf)
		if err != nil {
			if retriable(err) {
				continue
			}
			s.log.WithFields(logrus.Fields{"client": c.ID, "name": c.Name}).WithError(err).Debug("recv failed")
			s.disconnect(c)
			return "", false
		}
		if n == 0 {
			s.log.WithFields(logrus.Fields{"client": c.ID, "name": c.Name}).Debug("client closed connection")
			s.disconnect(c)
			return "", false
		}
		return string(buf[:n]), true
	}
}

// send writes one framed message, suspending until the socket is writable.
// Returns false when the recipient disconnected mid-send.
func (s *Server) send(y *sched.Yielder, c *Client, message string) bool {
	payload := frame(message)
	for len(payload) > 0 {
		if !y.Wait(c.FD, sched.Write) {
			// The recipient was torn down while this write was parked. The
			// sender's own session stays alive.
			return false
		}
		if s.clients.BySocket(c.FD) != c {
			return false
		}
		n, err := unix.Write(c.FD, payload)
		if err != nil {
			if retriable(err) {
				continue
			}
			if !disconnectError(err) {
				s.log.WithFields(logrus.Fields{"client": c.ID, "name": c.Name}).WithError(err).Warn("send failed")
			}
			s.disconnect(c)
			return false
		}
		payload = payload[n:]
	}
	s.log.WithFields(logrus.Fields{"client": c.Name, "message": message}).Debug("message sent")
	return true
}

// disconnect tears the client down completely: its chats, its registry
// entry, its scheduler waiters, its socket. Idempotent; re-entering for an
// already-removed client is a no-op.
func (s *Server) disconnect(c *Client) {
	if s.clients.BySocket(c.FD) != c {
		return
	}
	s.log.WithFields(logrus.Fields{"client": c.ID, "name": c.Name, "remote_addr": c.Addr}).Info("disconnecting client")
	s.chats.RemoveOf(c)
	s.clients.Remove(c)
	s.sched.CancelFD(c.FD)
	unix.Close(c.FD)
}
