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
	"strings"
)

// command is one entry of the wire command table. Arity is exact: the
// number of whitespace-separated arguments must equal len(args).
type command struct {
	name        string
	args        []string
	description string
}

// display renders the help line: /name <arg> - description.
func (c command) display() string {
	s := commandPrefix + c.name
	if len(c.args) > 0 {
		wrapped := make([]string, len(c.args))
		for i, a := range c.args {
			wrapped[i] = "<" + a + ">"
		}
		s += " " + strings.Join(wrapped, ", ")
	}
	return s + " - " + c.description
}

var commandTable = []command{
	{name: "clients", description: "Get client list for connection"},
	{name: "connect", args: []string{"username"}, description: "Connect to another client"},
	{name: "disconnect", description: "Disconnect from current dialog"},
	{name: "dialog", description: "Show username of current dialogue partner"},
	{name: "approve", args: []string{"username"}, description: "Start chat with <username>"},
	{name: "decline", args: []string{"username"}, description: "Decline chat with <username>"},
	{name: "requests", description: "Get all chat requests"},
	{name: "help", description: "Commands list."},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commandTable {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// helpText renders the reply sent after registration and on /help.
func helpText() string {
	lines := make([]string, 0, len(commandTable)+1)
	lines = append(lines, "Available commands:")
	for _, c := range commandTable {
		lines = append(lines, c.display())
	}
	return strings.Join(lines, "\n")
}
