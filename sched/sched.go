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

// Package sched implements cooperative multitasking over non-blocking
// sockets. Tasks run in lockstep with a single scheduler loop and suspend
// only by yielding a wait descriptor: the socket and readiness direction
// they need before their next resumption.
package sched

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Direction selects which readiness a task waits for.
type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "invalid"
}

// Event is a wait descriptor yielded by a suspending task.
type Event struct {
	FD  int
	Dir Direction
}

// Handler is the body of a task. It may suspend only through the Yielder it
// receives.
type Handler func(*Yielder)

type task struct {
	handler Handler
	events  chan Event
	resume  chan struct{}
	started bool
	// canceled is set when the task's waiter entry was scrubbed before the
	// readiness it asked for arrived. Consumed by the next Wait return.
	canceled bool
}

// Yielder carries a task's suspension point.
type Yielder struct {
	t *task
}

// Wait parks the task until fd becomes ready in the given direction. This is
// the only legal suspension point; everything between two Wait calls runs
// without interruption.
//
// A false return means the wait was scrubbed by CancelFD instead of
// satisfied: the socket is gone and the pending I/O must not be attempted.
func (y *Yielder) Wait(fd int, dir Direction) bool {
	y.t.events <- Event{FD: fd, Dir: dir}
	<-y.t.resume
	if y.t.canceled {
		y.t.canceled = false
		return false
	}
	return true
}

// Scheduler multiplexes tasks over socket readiness. It owns a FIFO queue of
// tasks ready to run and one waiter table per direction, keyed by socket.
// Exactly one task executes between suspension points, so state shared
// between tasks needs no locking.
type Scheduler struct {
	ready        []*task
	waitingRead  map[int]*task
	waitingWrite map[int]*task
	log          *logrus.Entry
}

func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		waitingRead:  make(map[int]*task),
		waitingWrite: make(map[int]*task),
		log:          log.WithField("component", "sched"),
	}
}

// Spawn queues a new task at the tail of the ready queue. The handler does
// not run until the scheduler resumes it for the first time, and spawning
// never suspends the caller.
func (s *Scheduler) Spawn(h Handler) {
	t := &task{
		handler: h,
		events:  make(chan Event),
		resume:  make(chan struct{}, 1),
	}
	s.ready = append(s.ready, t)
}

// Run drives tasks until none remain, blocking in the readiness poll
// whenever every live task is parked.
func (s *Scheduler) Run() error {
	for len(s.ready) > 0 || len(s.waitingRead) > 0 || len(s.waitingWrite) > 0 {
		if len(s.ready) == 0 {
			if err := s.pollOnce(); err != nil {
				return err
			}
		}
		t := s.ready[0]
		s.ready = s.ready[1:]
		s.resumeTask(t)
	}
	return nil
}

// CancelFD scrubs the waiter entries for fd. The scrubbed tasks are
// re-queued so their pending Wait returns false on the next resumption.
// Best effort: a task of the same connection already on the ready queue
// must observe the dead socket itself.
func (s *Scheduler) CancelFD(fd int) {
	if t, ok := s.waitingRead[fd]; ok {
		delete(s.waitingRead, fd)
		t.canceled = true
		s.ready = append(s.ready, t)
	}
	if t, ok := s.waitingWrite[fd]; ok {
		delete(s.waitingWrite, fd)
		t.canceled = true
		s.ready = append(s.ready, t)
	}
}

// WaitingOn reports whether any parked task still references fd.
func (s *Scheduler) WaitingOn(fd int) bool {
	_, r := s.waitingRead[fd]
	_, w := s.waitingWrite[fd]
	return r || w
}

func (s *Scheduler) pollOnce() error {
	readyRead, readyWrite, err := pollWait(s.waitingRead, s.waitingWrite)
	if err != nil {
		return errors.Wrap(err, "sched: poll")
	}
	for _, fd := range readyRead {
		t, ok := s.waitingRead[fd]
		if !ok {
			panic(errors.Errorf("sched: read readiness on fd %d with no waiter", fd))
		}
		delete(s.waitingRead, fd)
		s.ready = append(s.ready, t)
	}
	for _, fd := range readyWrite {
		t, ok := s.waitingWrite[fd]
		if !ok {
			panic(errors.Errorf("sched: write readiness on fd %d with no waiter", fd))
		}
		delete(s.waitingWrite, fd)
		s.ready = append(s.ready, t)
	}
	return nil
}

// resumeTask resumes t exactly once and blocks until t either yields its
// next wait descriptor or terminates.
func (s *Scheduler) resumeTask(t *task) {
	if !t.started {
		t.started = true
		go func() {
			t.handler(&Yielder{t: t})
			close(t.events)
		}()
	} else {
		t.resume <- struct{}{}
	}
	ev, ok := <-t.events
	if !ok {
		return
	}
	s.park(t, ev)
}

func (s *Scheduler) park(t *task, ev Event) {
	var table map[int]*task
	switch ev.Dir {
	case Read:
		table = s.waitingRead
	case Write:
		table = s.waitingWrite
	default:
		panic(errors.Errorf("sched: task yielded unknown wait direction %d", ev.Dir))
	}
	if prev, ok := table[ev.FD]; ok && prev != t {
		// Last waiter wins per (socket, direction) key; the displaced task
		// is resumed with a failed wait.
		s.log.WithFields(logrus.Fields{"fd": ev.FD, "dir": ev.Dir.String()}).Warn("replacing parked waiter")
		prev.canceled = true
		s.ready = append(s.ready, prev)
	}
	table[ev.FD] = t
}
