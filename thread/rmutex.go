package thread

import "sync/atomic"

// RMutex is a recursive mutex owned by a Thread
type RMutex struct {
	mutex    Mutex
	owner    atomic.Pointer[Thread]
	refcount uint16
}

// Lock acquires r for self, recursively if self already owns it
func (r *RMutex) Lock(self *Thread) {
	if r.owner.Load() == self {
		r.refcount++
		return
	}
	r.mutex.Lock()
	r.acquired(self)
}

// TryLock acquires r for self if it is free or already owned by self
func (r *RMutex) TryLock(self *Thread) bool {
	if r.owner.Load() == self {
		r.refcount++
		return true
	}
	if !r.mutex.TryLock() {
		return false
	}
	r.acquired(self)
	return true
}

// NewCancel prepares a cancelable lock attempt on r
func (r *RMutex) NewCancel() *MutexCancel {
	return NewMutexCancel(&r.mutex)
}

// LockCancelable acquires r for self unless mc is canceled first. mc must
// come from r.NewCancel.
func (r *RMutex) LockCancelable(self *Thread, mc *MutexCancel) error {
	if mc.m != &r.mutex {
		panic("thread: MutexCancel belongs to another mutex")
	}
	if r.owner.Load() == self {
		r.refcount++
		return nil
	}
	if err := mc.Lock(); err != nil {
		return err
	}
	r.acquired(self)
	return nil
}

// Unlock drops one level of ownership and releases r at the last one
func (r *RMutex) Unlock() {
	if r.refcount == 0 {
		panic("thread: unlock of unlocked rmutex")
	}
	r.refcount--
	if r.refcount == 0 {
		r.owner.Store(nil)
		r.mutex.Unlock()
	}
}

// Owner returns the owning thread, or nil
func (r *RMutex) Owner() *Thread {
	return r.owner.Load()
}

func (r *RMutex) acquired(self *Thread) {
	r.owner.Store(self)
	r.refcount = 1
}
