// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the readiness binding every suspending endpoint operation relies on.

package api

// Waker resumes a suspended operation. It must not block.
type Waker func()

// Reactor turns OS-handle readiness into one-shot wake callbacks.
//
// Each registered handle owns a single waker slot. Register overwrites the
// slot; readiness consumes it and calls the waker exactly once. The caller
// must register again after every wake (edge-triggered). Registering a nil
// waker attaches the handle without arming it.
type Reactor interface {
	// Register attaches fd on first use and arms its slot with w.
	Register(fd uintptr, w Waker) error

	// Deregister detaches fd and drops any pending waker without calling it.
	Deregister(fd uintptr) error
}
