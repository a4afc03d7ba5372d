// File: internal/concurrency/slot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single pending waker holder shared between a suspended owner and
// whichever goroutine delivers the wake.

package concurrency

import (
	"sync"

	"github.com/momentics/hioload-page/api"
)

// Slot holds at most one pending waker. Store overwrites, Wake consumes.
// The zero value is an empty slot.
type Slot struct {
	mu sync.Mutex
	w  api.Waker
}

// Store arms the slot with w, replacing any previous waker.
func (s *Slot) Store(w api.Waker) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// Take clears the slot and returns what it held.
func (s *Slot) Take() api.Waker {
	s.mu.Lock()
	w := s.w
	s.w = nil
	s.mu.Unlock()
	return w
}

// Wake consumes the slot and invokes the waker outside the lock.
// It reports whether a waker was present.
func (s *Slot) Wake() bool {
	w := s.Take()
	if w == nil {
		return false
	}
	w()
	return true
}

// Populated reports whether a waker is pending.
func (s *Slot) Populated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w != nil
}

// Signal returns a one-slot wake channel and a waker that fills it without
// blocking. Repeated wakes before the receive coalesce into one.
func Signal() (<-chan struct{}, api.Waker) {
	ch := make(chan struct{}, 1)
	return ch, func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
