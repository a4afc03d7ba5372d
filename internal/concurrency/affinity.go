// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU accounting and thread pinning used by the task runner.

package concurrency

import (
	"runtime"
)

// NumCPUs returns the number of logical CPUs usable by this process.
func NumCPUs() int {
	return runtime.NumCPU()
}

// UnusedCores returns how many more dedicated threads fit on cores
// before the count is exceeded. Never negative.
func UnusedCores(cores, used int) int {
	if used >= cores {
		return 0
	}
	return cores - used
}

// PinCurrentThread locks the calling goroutine to its OS thread and, when
// index >= 0, restricts that thread to the index-th CPU of its current
// affinity set (wrapping). The returned release restores the previous
// affinity and unlocks the thread; it is valid even when err != nil.
func PinCurrentThread(index int) (release func(), err error) {
	runtime.LockOSThread()
	if index < 0 {
		return runtime.UnlockOSThread, nil
	}
	restore, err := platformPinCurrentThread(index)
	return func() {
		restore()
		runtime.UnlockOSThread()
	}, err
}
