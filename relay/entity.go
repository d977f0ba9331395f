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

// Package relay implements a one-to-one TCP chat relay: clients register a
// unique display name, request dialogs with each other and exchange text
// once both sides approved. All sessions are multiplexed on a single thread
// by the sched package.
package relay

import (
	"github.com/google/uuid"
)

// Client is a connected peer. Identity is the connection itself: a fresh
// opaque ID plus the owning socket. Name stays empty until registration
// completes.
type Client struct {
	ID   uuid.UUID
	FD   int
	Addr string
	Name string
}

func newClient(fd int, addr string) *Client {
	return &Client{ID: uuid.New(), FD: fd, Addr: addr}
}

// Registered reports whether the client has claimed a display name.
func (c *Client) Registered() bool {
	return c.Name != ""
}

// Chat is a directed dialog from Initiator to Target. Approved false means
// the request is still pending the target's decision.
type Chat struct {
	ID        uuid.UUID
	Initiator *Client
	Target    *Client
	Approved  bool
}

func newChat(initiator, target *Client) *Chat {
	return &Chat{ID: uuid.New(), Initiator: initiator, Target: target}
}

// Peer returns the other member of the chat.
func (ch *Chat) Peer(c *Client) *Client {
	if c == ch.Initiator {
		return ch.Target
	}
	return ch.Initiator
}

// Has reports whether c is a member of the chat.
func (ch *Chat) Has(c *Client) bool {
	return c == ch.Initiator || c == ch.Target
}
