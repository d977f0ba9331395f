package relay

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// listenSocket opens a nonblocking TCP listener. SO_REUSEADDR is set before
// bind so restarts do not trip over TIME_WAIT.
func listenSocket(addr string, backlog int) (int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return -1, errors.Wrapf(err, "resolve %q", addr)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, errors.Wrap(err, "socket")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "setsockopt SO_REUSEADDR")
	}

	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	copy(sa.Addr[:], tcpAddr.IP.To4())
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, errors.Wrapf(err, "bind %q", addr)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "listen")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "set nonblock")
	}
	return fd, nil
}

// acceptSocket accepts one pending connection and returns the new
// nonblocking fd plus the remote address.
func acceptSocket(listenFD int) (int, string, error) {
	fd, sa, err := unix.Accept(listenFD)
	if err != nil {
		return -1, "", err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, "", errors.Wrap(err, "set nonblock")
	}
	return fd, sockaddrString(sa), nil
}

// localAddr reports the bound address of the listener, resolving port 0.
func localAddr(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", errors.Wrap(err, "getsockname")
	}
	return sockaddrString(sa), nil
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	}
	return "unknown"
}

// retriable reports errors that mean "try the same syscall again after the
// next readiness event".
func retriable(err error) bool {
	return err == unix.EAGAIN || err == unix.EINTR
}

// transientAcceptError reports accept failures worth retrying, like hitting
// the process fd limit.
func transientAcceptError(err error) bool {
	switch errors.Cause(err) {
	case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED, unix.EMFILE, unix.ENFILE:
		return true
	}
	return false
}

// disconnectError reports whether a read or write failure means the peer is
// gone and the client must be fully torn down.
func disconnectError(err error) bool {
	switch errors.Cause(err) {
	case unix.ECONNRESET, unix.EPIPE, unix.EBADF, unix.ENOTCONN, unix.ETIMEDOUT:
		return true
	}
	return false
}
