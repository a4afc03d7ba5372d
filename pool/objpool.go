// File: pool/objpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-page/api"
)

var _ api.ObjectPool[*[]byte] = (*SyncPool[*[]byte])(nil)

// SyncPool is a typed sync.Pool that counts how many objects it had to create.
type SyncPool[T any] struct {
	pool    sync.Pool
	created atomic.Uint64
}

// NewSyncPool creates a pool that builds missing objects with creator.
func NewSyncPool[T any](creator func() T) *SyncPool[T] {
	sp := &SyncPool[T]{}
	sp.pool.New = func() any {
		sp.created.Add(1)
		return creator()
	}
	return sp
}

// Get returns a pooled object or a new one.
func (sp *SyncPool[T]) Get() T {
	return sp.pool.Get().(T)
}

// Put makes obj available for reuse.
func (sp *SyncPool[T]) Put(obj T) {
	sp.pool.Put(obj)
}

// Created returns how many objects the creator has built.
func (sp *SyncPool[T]) Created() uint64 {
	return sp.created.Load()
}
