// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Pooling contracts for scratch memory reused across endpoint operations.

package api

// ObjectPool provides generic pooling of Go objects allocated transiently.
type ObjectPool[T any] interface {
	// Get returns an available instance from pool
	Get() T

	// Put returns an instance for reuse
	Put(obj T)
}

// ChunkPool hands out fixed-size read chunks. Size is also the receive
// granularity: a read shorter than Size ends a receive call.
type ChunkPool interface {
	Size() int
	GetBuffer() *[]byte
	PutBuffer(buf *[]byte)
}
