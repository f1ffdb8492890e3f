// Package table provides a handle table with slot reuse and lifecycle
// observers.
//
// Handles are small non-zero integers; Handle 0 is reserved and always
// invalid. Freed slots are reused LIFO, so a handle value can come back for
// a different entry after Remove.
package table

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("handle table closed")

// Handle is an opaque index into a Table.
type Handle uint32

// EventType identifies a table lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event describes an entry entering or leaving a table.
type Event[T any] struct {
	Value  T
	Handle Handle
	Type   EventType
}

// Observer receives lifecycle notifications. Notifications are delivered
// outside the table lock, so observers may call back into the table.
type Observer[T any] interface {
	OnTableEvent(Event[T])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[T any] func(Event[T])

func (f ObserverFunc[T]) OnTableEvent(e Event[T]) { f(e) }

// Dropper is implemented by values that need cleanup when removed.
type Dropper interface {
	Drop()
}

type entry[T any] struct {
	value T
	valid bool
}

// Table stores values behind handles. It is safe for concurrent use.
type Table[T any] struct {
	entries   []entry[T]
	freeList  []Handle
	observers []Observer[T]
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// New creates an empty table.
func New[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	var h Handle
	if n := len(t.freeList); n > 0 {
		h = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h-1] = entry[T]{value: v, valid: true}
	} else {
		t.entries = append(t.entries, entry[T]{value: v, valid: true})
		h = Handle(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event[T]{Type: EventCreated, Handle: h, Value: v})
	return h, nil
}

// Get retrieves the value stored under h.
func (t *Table[T]) Get(h Handle) (T, bool) {
	var zero T
	if h == 0 {
		return zero, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return zero, false
	}
	return t.entries[idx].value, true
}

// Replace overwrites the value stored under a live handle.
func (t *Table[T]) Replace(h Handle, v T) bool {
	if h == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return false
	}
	t.entries[idx].value = v
	return true
}

// Remove drops the entry under h and returns its value. Values implementing
// Dropper are dropped before observers are notified.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	return t.RemoveIf(h, func(T) bool { return true })
}

// RemoveIf removes the entry under h only if match reports true for its
// value. The check and the removal happen under one lock.
func (t *Table[T]) RemoveIf(h Handle, match func(T) bool) (T, bool) {
	var zero T
	if h == 0 {
		return zero, false
	}

	t.mu.Lock()
	idx := int(h) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid || !match(t.entries[idx].value) {
		t.mu.Unlock()
		return zero, false
	}
	v := t.entries[idx].value
	t.entries[idx] = entry[T]{}
	t.freeList = append(t.freeList, h)
	t.mu.Unlock()

	t.drop(h, v)
	return v, true
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// Each calls fn for every live entry in handle order until fn returns false.
// fn runs on a snapshot and may modify the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	handles := make([]Handle, 0, len(t.entries))
	values := make([]T, 0, len(t.entries))
	for i, e := range t.entries {
		if e.valid {
			handles = append(handles, Handle(i+1))
			values = append(values, e.value)
		}
	}
	t.mu.RUnlock()

	for i, h := range handles {
		if !fn(h, values[i]) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. o must be comparable (a pointer, not an
// ObserverFunc).
func (t *Table[T]) Unsubscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			next := make([]Observer[T], 0, len(t.observers)-1)
			next = append(next, t.observers[:i]...)
			t.observers = append(next, t.observers[i+1:]...)
			return
		}
	}
}

// Close drops every remaining entry and rejects further inserts. Closing
// twice is a no-op.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	type live struct {
		v T
		h Handle
	}
	var remaining []live
	for i, e := range t.entries {
		if e.valid {
			remaining = append(remaining, live{h: Handle(i + 1), v: e.value})
		}
	}
	t.entries = nil
	t.freeList = nil
	t.mu.Unlock()

	for _, r := range remaining {
		t.drop(r.h, r.v)
	}
	return nil
}

func (t *Table[T]) drop(h Handle, v T) {
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
	t.notify(Event[T]{Type: EventDropped, Handle: h, Value: v})
}

func (t *Table[T]) notify(e Event[T]) {
	t.obsMu.RLock()
	observers := t.observers
	t.obsMu.RUnlock()
	for _, o := range observers {
		o.OnTableEvent(e)
	}
}
