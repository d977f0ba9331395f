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

// Registries are mutated only between scheduler suspension points, so no
// locking is needed. Lookups are linear scans over current populations,
// which is fine at the expected scale of hundreds of clients.

// ClientRegistry holds every live connection, keyed by its socket.
type ClientRegistry struct {
	bySocket map[int]*Client
	order    []*Client
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{bySocket: make(map[int]*Client)}
}

// Add creates an unregistered client for a freshly accepted socket.
func (r *ClientRegistry) Add(fd int, addr string) *Client {
	c := newClient(fd, addr)
	r.bySocket[fd] = c
	r.order = append(r.order, c)
	return c
}

// BySocket returns the client owning fd, or nil.
func (r *ClientRegistry) BySocket(fd int) *Client {
	return r.bySocket[fd]
}

// ByName returns the registered client with the given display name, or nil.
func (r *ClientRegistry) ByName(name string) *Client {
	for _, c := range r.order {
		if c.Registered() && c.Name == name {
			return c
		}
	}
	return nil
}

// NameTaken checks name against the full snapshot of currently known names,
// registered or not.
func (r *ClientRegistry) NameTaken(name string) bool {
	for _, c := range r.order {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Registered returns all registered clients in connection order.
func (r *ClientRegistry) Registered() []*Client {
	var out []*Client
	for _, c := range r.order {
		if c.Registered() {
			out = append(out, c)
		}
	}
	return out
}

// Remove drops the client. Chats are cleaned up separately by the chat
// registry as part of the disconnect cascade.
func (r *ClientRegistry) Remove(c *Client) {
	if r.bySocket[c.FD] != c {
		return
	}
	delete(r.bySocket, c.FD)
	for i, cur := range r.order {
		if cur == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of live clients.
func (r *ClientRegistry) Len() int {
	return len(r.order)
}

// ChatRegistry holds every chat, pending and active, in creation order.
type ChatRegistry struct {
	chats []*Chat
}

func NewChatRegistry() *ChatRegistry {
	return &ChatRegistry{}
}

// Add creates a pending chat from initiator to target.
func (r *ChatRegistry) Add(initiator, target *Client) *Chat {
	ch := newChat(initiator, target)
	r.chats = append(r.chats, ch)
	return ch
}

// ActiveChatOf returns the active chat the client is a member of, or nil.
func (r *ChatRegistry) ActiveChatOf(c *Client) *Chat {
	for _, ch := range r.chats {
		if ch.Approved && ch.Has(c) {
			return ch
		}
	}
	return nil
}

// Pending returns the pending chat for the ordered (initiator, target)
// pair, or nil.
func (r *ChatRegistry) Pending(initiator, target *Client) *Chat {
	for _, ch := range r.chats {
		if !ch.Approved && ch.Initiator == initiator && ch.Target == target {
			return ch
		}
	}
	return nil
}

// PendingTargeting returns the pending chats targeting the client, in the
// order they were created.
func (r *ChatRegistry) PendingTargeting(c *Client) []*Chat {
	var out []*Chat
	for _, ch := range r.chats {
		if !ch.Approved && ch.Target == c {
			out = append(out, ch)
		}
	}
	return out
}

// Remove drops one chat.
func (r *ChatRegistry) Remove(chat *Chat) {
	for i, ch := range r.chats {
		if ch == chat {
			r.chats = append(r.chats[:i], r.chats[i+1:]...)
			return
		}
	}
}

// RemoveOf drops every chat, pending or active, the client is a member of.
func (r *ChatRegistry) RemoveOf(c *Client) {
	kept := r.chats[:0]
	for _, ch := range r.chats {
		if !ch.Has(c) {
			kept = append(kept, ch)
		}
	}
	r.chats = kept
}

// Len returns the number of live chats.
func (r *ChatRegistry) Len() int {
	return len(r.chats)
}
