package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientRegistryLookups(t *testing.T) {
	r := NewClientRegistry()

	alice := r.Add(10, "127.0.0.1:1111")
	bob := r.Add(11, "127.0.0.1:2222")
	require.NotEqual(t, alice.ID, bob.ID)
	require.False(t, alice.Registered())

	alice.Name = "alice"

	require.Same(t, alice, r.BySocket(10))
	require.Same(t, bob, r.BySocket(11))
	require.Nil(t, r.BySocket(12))

	require.Same(t, alice, r.ByName("alice"))
	require.Nil(t, r.ByName("bob"), "unregistered clients are invisible to name lookup")

	require.True(t, r.NameTaken("alice"))
	require.False(t, r.NameTaken("bob"))

	registered := r.Registered()
	require.Len(t, registered, 1)
	require.Same(t, alice, registered[0])
}

func TestClientRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewClientRegistry()
	alice := r.Add(10, "127.0.0.1:1111")
	alice.Name = "alice"

	r.Remove(alice)
	require.Nil(t, r.BySocket(10))
	require.False(t, r.NameTaken("alice"))
	require.Equal(t, 0, r.Len())

	// A second removal, or one racing an fd reuse, must be a no-op.
	r.Remove(alice)
	reused := r.Add(10, "127.0.0.1:3333")
	r.Remove(alice)
	require.Same(t, reused, r.BySocket(10))
}

func TestChatRegistryActiveAndPending(t *testing.T) {
	clients := NewClientRegistry()
	alice := clients.Add(10, "")
	bob := clients.Add(11, "")
	alice.Name, bob.Name = "alice", "bob"

	chats := NewChatRegistry()
	chat := chats.Add(alice, bob)

	require.False(t, chat.Approved)
	require.Nil(t, chats.ActiveChatOf(alice), "pending chat is not active")
	require.Same(t, chat, chats.Pending(alice, bob))
	require.Nil(t, chats.Pending(bob, alice), "pending lookup is ordered")

	chat.Approved = true
	require.Same(t, chat, chats.ActiveChatOf(alice))
	require.Same(t, chat, chats.ActiveChatOf(bob))
	require.Same(t, bob, chat.Peer(alice))
	require.Same(t, alice, chat.Peer(bob))
	require.Nil(t, chats.Pending(alice, bob))
}

func TestChatRegistryPendingTargetingOrder(t *testing.T) {
	clients := NewClientRegistry()
	target := clients.Add(10, "")
	a := clients.Add(11, "")
	b := clients.Add(12, "")
	c := clients.Add(13, "")
	target.Name, a.Name, b.Name, c.Name = "t", "a", "b", "c"

	chats := NewChatRegistry()
	first := chats.Add(a, target)
	second := chats.Add(b, target)
	third := chats.Add(c, target)

	// An approved chat no longer counts as a request.
	second.Approved = true

	pendings := chats.PendingTargeting(target)
	require.Equal(t, []*Chat{first, third}, pendings)
}

func TestChatRegistryRemoveOfCascades(t *testing.T) {
	clients := NewClientRegistry()
	alice := clients.Add(10, "")
	bob := clients.Add(11, "")
	carol := clients.Add(12, "")
	alice.Name, bob.Name, carol.Name = "alice", "bob", "carol"

	chats := NewChatRegistry()
	active := chats.Add(alice, bob)
	active.Approved = true
	chats.Add(carol, alice)
	unrelated := chats.Add(carol, bob)

	chats.RemoveOf(alice)

	require.Nil(t, chats.ActiveChatOf(alice))
	require.Nil(t, chats.ActiveChatOf(bob))
	require.Empty(t, chats.PendingTargeting(alice))
	require.Equal(t, []*Chat{unrelated}, chats.PendingTargeting(bob))
	require.Equal(t, 1, chats.Len())
}

func TestChatRegistryRemoveSingle(t *testing.T) {
	clients := NewClientRegistry()
	alice := clients.Add(10, "")
	bob := clients.Add(11, "")

	chats := NewChatRegistry()
	chat := chats.Add(alice, bob)
	chats.Remove(chat)
	require.Equal(t, 0, chats.Len())

	// Removing an already-removed chat is a no-op.
	chats.Remove(chat)
	require.Equal(t, 0, chats.Len())
}
