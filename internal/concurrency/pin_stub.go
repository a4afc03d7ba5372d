//go:build !linux

// File: internal/concurrency/pin_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without thread affinity support.

package concurrency

// platformPinCurrentThread is a no-op; the thread lock alone still applies.
func platformPinCurrentThread(index int) (func(), error) {
	return func() {}, nil
}
