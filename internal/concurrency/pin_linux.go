//go:build linux

// File: internal/concurrency/pin_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux thread affinity through sched_setaffinity(2).

package concurrency

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// cpuSetSize mirrors CPU_SETSIZE.
const cpuSetSize = 1024

// platformPinCurrentThread binds the calling thread to one CPU picked from
// its allowed set. restore reapplies the original set.
func platformPinCurrentThread(index int) (restore func(), err error) {
	var orig unix.CPUSet
	if err := unix.SchedGetaffinity(0, &orig); err != nil {
		return func() {}, fmt.Errorf("sched_getaffinity: %w", err)
	}
	allowed := make([]int, 0, orig.Count())
	for cpu := 0; cpu < cpuSetSize; cpu++ {
		if orig.IsSet(cpu) {
			allowed = append(allowed, cpu)
		}
	}
	if len(allowed) == 0 {
		return func() {}, nil
	}
	cpu := allowed[index%len(allowed)]

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return func() {}, fmt.Errorf("sched_setaffinity cpu %d: %w", cpu, err)
	}
	return func() { _ = unix.SchedSetaffinity(0, &orig) }, nil
}
