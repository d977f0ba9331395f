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

// The wire is newline-terminated UTF-8 text. One readiness event yields one
// buffer read of up to readBufSize bytes, treated as one logical message.
const (
	readBufSize   = 4096
	commandPrefix = "/"
)

// isCommand classifies a received payload: command lines carry the prefix,
// everything else is chat text.
func isCommand(payload string) bool {
	return strings.HasPrefix(payload, commandPrefix)
}

// parseCommand strips all leading slashes and tokenizes on whitespace. The
// first token is the command name, the rest are its arguments.
func parseCommand(payload string) (name string, args []string) {
	fields := strings.Fields(strings.TrimLeft(payload, commandPrefix))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// frame appends the single terminating newline every outbound message
// carries. Back-to-back messages may coalesce on the wire; each still
// carries exactly one newline.
func frame(message string) []byte {
	return append([]byte(message), '\n')
}
