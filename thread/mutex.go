package thread

import (
	"errors"
	"sync"

	"ztimer/ptrtag"
)

// ErrCanceled is returned by a cancelable lock whose wait was canceled
var ErrCanceled = errors.New("thread: lock canceled")

// Waiter states carried in the tag of MutexCancel.w
const (
	stateIdle     = 0
	stateWaiting  = 1
	stateCanceled = 2
	stateAcquired = 3
)

type waiter struct {
	ready chan struct{}
	mc    *MutexCancel
}

// Mutex is a FIFO mutex. Unlike sync.Mutex it may be unlocked from any
// goroutine, which is what a timer callback does to wake a sleeper, and a
// pending lock can be canceled through a MutexCancel.
//
// The zero value is an unlocked mutex.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*waiter
}

// NewLocked returns a mutex that starts out locked
func NewLocked() *Mutex {
	return &Mutex{locked: true}
}

// Lock blocks until the mutex is acquired
func (m *Mutex) Lock() {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return
	}
	w := &waiter{ready: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	<-w.ready
}

// TryLock acquires the mutex if it is free
func (m *Mutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		return false
	}
	m.locked = true
	return true
}

// Locked reports whether the mutex is held
func (m *Mutex) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// Unlock releases the mutex. If goroutines are waiting, ownership passes
// directly to the oldest one.
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		panic("thread: unlock of unlocked mutex")
	}
	if len(m.waiters) == 0 {
		m.locked = false
		return
	}

	w := m.waiters[0]
	m.waiters[0] = nil
	m.waiters = m.waiters[1:]
	if w.mc != nil {
		w.mc.w = w.mc.w.WithTag(stateAcquired)
	}
	close(w.ready)
}

func (m *Mutex) dequeue(w *waiter) bool {
	for i, cur := range m.waiters {
		if cur == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// MutexCancel is a handle for one cancelable lock attempt
type MutexCancel struct {
	m *Mutex
	w ptrtag.Ptr[waiter]
}

// NewMutexCancel prepares a cancelable lock attempt on m
func NewMutexCancel(m *Mutex) *MutexCancel {
	return &MutexCancel{m: m}
}

// Lock blocks until the mutex is acquired or Cancel is called. It returns
// ErrCanceled if the attempt was canceled, including when Cancel ran before
// Lock. Hand-off and cancellation are decided under the mutex's lock, so
// exactly one of them wins.
func (mc *MutexCancel) Lock() error {
	m := mc.m
	m.mu.Lock()
	switch mc.w.Tag() {
	case stateCanceled:
		m.mu.Unlock()
		return ErrCanceled
	case stateWaiting, stateAcquired:
		m.mu.Unlock()
		panic("thread: MutexCancel reused")
	}
	if !m.locked {
		m.locked = true
		mc.w = ptrtag.Pack[waiter](nil, stateAcquired)
		m.mu.Unlock()
		return nil
	}
	w := &waiter{ready: make(chan struct{}), mc: mc}
	mc.w = ptrtag.Pack(w, stateWaiting)
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	<-w.ready

	m.mu.Lock()
	state := mc.w.Tag()
	m.mu.Unlock()
	if state == stateCanceled {
		return ErrCanceled
	}
	return nil
}

// Cancel aborts a pending or future Lock. It has no effect once the lock
// has been acquired. Safe to call from a timer callback.
func (mc *MutexCancel) Cancel() {
	m := mc.m
	m.mu.Lock()
	defer m.mu.Unlock()

	switch mc.w.Tag() {
	case stateIdle:
		mc.w = mc.w.WithTag(stateCanceled)
	case stateWaiting:
		w := mc.w.Ptr()
		if m.dequeue(w) {
			mc.w = mc.w.WithTag(stateCanceled)
			close(w.ready)
		}
	}
}
