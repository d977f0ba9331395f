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

package sched

import (
	"golang.org/x/sys/unix"
)

// pollErrMask marks a socket ready regardless of direction: the waiting task
// must resume so it can observe the error on its next read or write.
const pollErrMask = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL

// pollWait blocks in poll(2) on the union of waited sockets and returns the
// fds that became ready in each direction.
func pollWait(readers, writers map[int]*task) (readyRead, readyWrite []int, err error) {
	pfds := make([]unix.PollFd, 0, len(readers)+len(writers))
	index := make(map[int]int, len(readers)+len(writers))

	for fd := range readers {
		index[fd] = len(pfds)
		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	for fd := range writers {
		if i, ok := index[fd]; ok {
			pfds[i].Events |= unix.POLLOUT
			continue
		}
		index[fd] = len(pfds)
		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLOUT})
	}

	for {
		n, err := unix.Poll(pfds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if n > 0 {
			break
		}
	}

	for _, p := range pfds {
		if p.Revents == 0 {
			continue
		}
		fd := int(p.Fd)
		if _, ok := readers[fd]; ok && p.Revents&(unix.POLLIN|pollErrMask) != 0 {
			readyRead = append(readyRead, fd)
		}
		if _, ok := writers[fd]; ok && p.Revents&(unix.POLLOUT|pollErrMask) != 0 {
			readyWrite = append(readyWrite, fd)
		}
	}
	return readyRead, readyWrite, nil
}
