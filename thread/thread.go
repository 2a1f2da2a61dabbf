// Package thread provides the scheduling primitives the timer utilities
// block on: a per-thread mailbox, thread flags, sleep/wakeup and mutexes
// whose pending lock can be canceled from a timer callback.
//
// A Thread is an explicit handle. Whoever starts a goroutine that wants to
// receive messages or flags creates its Thread and passes it to anything
// that needs to post to it.
package thread

import "sync"

// Flags is a set of thread flag bits
type Flags uint16

// FlagTimeout is set by timeout timers armed with SetTimeoutFlag
const FlagTimeout Flags = 1 << 14

// Msg is a small message delivered to a Thread mailbox
type Msg struct {
	Type   uint16
	Sender *Thread
	Value  uint32
	Ptr    any
}

// Thread is a handle for one receiving goroutine
type Thread struct {
	name string
	mbox chan Msg

	mu     sync.Mutex
	flags  Flags
	flagCh chan struct{}

	wake chan struct{}
}

// New creates a Thread whose mailbox holds up to queueSize messages.
// A queueSize below 1 is raised to 1.
func New(name string, queueSize int) *Thread {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Thread{
		name:   name,
		mbox:   make(chan Msg, queueSize),
		flagCh: make(chan struct{}, 1),
		wake:   make(chan struct{}, 1),
	}
}

// Name returns the name given to New
func (t *Thread) Name() string {
	return t.name
}

// Send queues m without blocking. It reports false if the mailbox is full,
// which makes it safe to call from a timer callback.
func (t *Thread) Send(m Msg) bool {
	select {
	case t.mbox <- m:
		return true
	default:
		return false
	}
}

// Receive blocks until a message arrives
func (t *Thread) Receive() Msg {
	return <-t.mbox
}

// TryReceive returns a queued message if there is one
func (t *Thread) TryReceive() (Msg, bool) {
	select {
	case m := <-t.mbox:
		return m, true
	default:
		return Msg{}, false
	}
}

// Queued returns the number of messages waiting in the mailbox
func (t *Thread) Queued() int {
	return len(t.mbox)
}

// SetFlags sets mask in the thread's flags and wakes a pending WaitAny
func (t *Thread) SetFlags(mask Flags) {
	t.mu.Lock()
	t.flags |= mask
	t.mu.Unlock()

	select {
	case t.flagCh <- struct{}{}:
	default:
	}
}

// ClearFlags clears mask and returns the bits that were set
func (t *Thread) ClearFlags(mask Flags) Flags {
	t.mu.Lock()
	defer t.mu.Unlock()

	got := t.flags & mask
	t.flags &^= got
	return got
}

// Flags returns the currently set flags without clearing them
func (t *Thread) Flags() Flags {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

// WaitAny blocks until any bit in mask is set, clears those bits and
// returns them
func (t *Thread) WaitAny(mask Flags) Flags {
	for {
		if got := t.ClearFlags(mask); got != 0 {
			return got
		}
		<-t.flagCh
	}
}

// Sleep blocks until Wakeup is called. A Wakeup issued before Sleep is
// remembered, so a wakeup racing the call to Sleep is not lost.
func (t *Thread) Sleep() {
	<-t.wake
}

// Wakeup releases a sleeping thread. It reports false if a wakeup was
// already pending.
func (t *Thread) Wakeup() bool {
	select {
	case t.wake <- struct{}{}:
		return true
	default:
		return false
	}
}
