package core

// Timer is one entry of a Clock. The caller owns the memory and must keep it
// alive until it fires or is removed; the Clock owns the linkage while the
// entry is armed.
type Timer struct {
	Callback func(arg any)
	Arg      any

	next   *Timer
	offset uint32 // ticks after the previous entry (head: after lastUpdate)
}

// The list is a delta list: every offset is relative to the entry before
// it, so ordering never depends on comparing absolute tick values and stays
// correct across wraparound of the 32-bit time base.

// updateHeadOffset consumes the time elapsed since lastUpdate from the
// front of the list. Entries that became due are left with offset 0.
func (c *Clock) updateHeadOffset() uint32 {
	now := c.nowLocked()
	diff := now - c.lastUpdate
	for t := c.head; t != nil && diff > 0; t = t.next {
		if diff <= t.offset {
			t.offset -= diff
			break
		}
		diff -= t.offset
		t.offset = 0
	}
	c.lastUpdate = now
	return now
}

// addEntry inserts t, whose offset is relative to lastUpdate. Entries with
// equal expiry keep insertion order.
func (c *Clock) addEntry(t *Timer) {
	pos := &c.head
	for *pos != nil && (*pos).offset <= t.offset {
		t.offset -= (*pos).offset
		pos = &(*pos).next
	}
	t.next = *pos
	if t.next != nil {
		t.next.offset -= t.offset
	} else {
		c.last = t
	}
	*pos = t
}

// delEntry unlinks t, handing its offset to its successor. It reports
// whether t was in the list.
func (c *Clock) delEntry(t *Timer) bool {
	var prev *Timer
	for cur := c.head; cur != nil; prev, cur = cur, cur.next {
		if cur != t {
			continue
		}
		if prev == nil {
			c.head = t.next
		} else {
			prev.next = t.next
		}
		if t.next != nil {
			t.next.offset += t.offset
		} else {
			c.last = prev
		}
		t.next = nil
		return true
	}
	return false
}

// popDue removes the head if it is due
func (c *Clock) popDue() *Timer {
	t := c.head
	if t == nil || t.offset != 0 {
		return nil
	}
	c.head = t.next
	if c.head == nil {
		c.last = nil
	}
	t.next = nil
	return t
}

func (c *Clock) isSetLocked(t *Timer) bool {
	return c.head == t || t.next != nil || c.last == t
}
