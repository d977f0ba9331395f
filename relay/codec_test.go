package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCommandVersusChat(t *testing.T) {
	require.True(t, isCommand("/help"))
	require.True(t, isCommand("//help"))
	require.True(t, isCommand("/connect bob\n"))
	require.False(t, isCommand("hello there"))
	require.False(t, isCommand(" /help"), "prefix must be the first byte")
	require.False(t, isCommand(""))
}

func TestParseCommand(t *testing.T) {
	name, args := parseCommand("/help\n")
	require.Equal(t, "help", name)
	require.Empty(t, args)

	name, args = parseCommand("/connect bob\n")
	require.Equal(t, "connect", name)
	require.Equal(t, []string{"bob"}, args)

	name, args = parseCommand("//approve   alice  extra\n")
	require.Equal(t, "approve", name)
	require.Equal(t, []string{"alice", "extra"}, args)

	name, args = parseCommand("/\n")
	require.Equal(t, "", name)
	require.Nil(t, args)
}

func TestFrameAppendsExactlyOneNewline(t *testing.T) {
	require.Equal(t, []byte("hi\n"), frame("hi"))
	require.Equal(t, []byte("\n"), frame(""))
	require.Equal(t, []byte("a\nb\n"), frame("a\nb"), "embedded newlines are preserved")
}
