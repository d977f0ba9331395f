package sched

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// socketpair returns a connected, nonblocking AF_UNIX stream pair.
func socketpair(t *testing.T) [2]int {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("set nonblock: %v", err)
		}
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds
}

func TestSpawnOrderIsFIFO(t *testing.T) {
	s := New(testLogger())

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.Spawn(func(*Yielder) { order = append(order, i) })
	}

	require.NoError(t, s.Run())
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWriteThenReadAcrossTasks(t *testing.T) {
	fds := socketpair(t)
	s := New(testLogger())

	var got string
	s.Spawn(func(y *Yielder) {
		y.Wait(fds[0], Write)
		if _, err := unix.Write(fds[0], []byte("hello")); err != nil {
			t.Errorf("write: %v", err)
		}
	})
	s.Spawn(func(y *Yielder) {
		y.Wait(fds[1], Read)
		buf := make([]byte, 16)
		n, err := unix.Read(fds[1], buf)
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		got = string(buf[:n])
	})

	require.NoError(t, s.Run())
	require.Equal(t, "hello", got)
}

func TestTaskResumesAcrossManyYields(t *testing.T) {
	fds := socketpair(t)
	s := New(testLogger())

	var collected []byte
	s.Spawn(func(y *Yielder) {
		for _, b := range []byte("abc") {
			y.Wait(fds[0], Write)
			unix.Write(fds[0], []byte{b})
		}
	})
	s.Spawn(func(y *Yielder) {
		buf := make([]byte, 1)
		for len(collected) < 3 {
			y.Wait(fds[1], Read)
			n, err := unix.Read(fds[1], buf)
			if err == unix.EAGAIN {
				continue
			}
			if err != nil {
				t.Errorf("read: %v", err)
				return
			}
			collected = append(collected, buf[:n]...)
		}
	})

	require.NoError(t, s.Run())
	require.Equal(t, "abc", string(collected))
}

func TestCancelFDFailsParkedWait(t *testing.T) {
	fds := socketpair(t)
	s := New(testLogger())

	waitOK := true
	s.Spawn(func(y *Yielder) {
		// fds[0] never becomes readable; the task stays parked until the
		// second task scrubs it.
		waitOK = y.Wait(fds[0], Read)
	})
	s.Spawn(func(y *Yielder) {
		y.Wait(fds[1], Write)
		s.CancelFD(fds[0])
	})

	require.NoError(t, s.Run())
	require.False(t, waitOK, "scrubbed wait must fail")
	require.False(t, s.WaitingOn(fds[0]))
	require.False(t, s.WaitingOn(fds[1]))
}

func TestCancelFDConsumedByOneWait(t *testing.T) {
	fds := socketpair(t)
	s := New(testLogger())

	var results []bool
	s.Spawn(func(y *Yielder) {
		results = append(results, y.Wait(fds[0], Read))
		// The next wait is on a live socket and must succeed.
		results = append(results, y.Wait(fds[1], Write))
	})
	s.Spawn(func(y *Yielder) {
		y.Wait(fds[1], Write)
		s.CancelFD(fds[0])
	})

	require.NoError(t, s.Run())
	require.Equal(t, []bool{false, true}, results)
}

func TestParkReplacesWaiterForSameKey(t *testing.T) {
	fds := socketpair(t)
	s := New(testLogger())

	firstOK := true
	secondOK := false
	s.Spawn(func(y *Yielder) {
		firstOK = y.Wait(fds[0], Write)
	})
	s.Spawn(func(y *Yielder) {
		secondOK = y.Wait(fds[0], Write)
	})

	require.NoError(t, s.Run())
	require.False(t, firstOK, "displaced waiter resumes with a failed wait")
	require.True(t, secondOK)
}

func TestTaskTerminatingWithoutYield(t *testing.T) {
	s := New(testLogger())
	ran := false
	s.Spawn(func(*Yielder) { ran = true })
	require.NoError(t, s.Run())
	require.True(t, ran)
}

func TestRunReturnsWhenNoTasksRemain(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Run())
}
