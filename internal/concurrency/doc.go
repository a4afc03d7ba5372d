// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-page: the single pending waker Slot
// shared by the reactor and the task runner, one-slot wake signals, CPU
// accounting and OS-thread pinning for dedicated task threads.
package concurrency
