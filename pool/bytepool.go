// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "github.com/momentics/hioload-page/api"

var _ api.ChunkPool = (*BytePool)(nil)

// DefaultChunkSize is the read granularity used by receive loops.
const DefaultChunkSize = 8 * 1024

// BytePool hands out fixed-size scratch chunks.
type BytePool struct {
	pool *SyncPool[*[]byte]
	size int
}

// NewBytePool returns a pool of size-byte chunks. size <= 0 selects DefaultChunkSize.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &BytePool{
		pool: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}),
		size: size,
	}
}

// Size returns the chunk length.
func (b *BytePool) Size() int {
	return b.size
}

// GetBuffer returns a chunk of exactly Size bytes.
func (b *BytePool) GetBuffer() *[]byte {
	return b.pool.Get()
}

// Allocated returns how many chunks have been created rather than reused.
func (b *BytePool) Allocated() uint64 {
	return b.pool.Created()
}

// PutBuffer returns a chunk. Foreign-sized slices are dropped.
func (b *BytePool) PutBuffer(buf *[]byte) {
	if buf == nil || cap(*buf) != b.size {
		return
	}
	*buf = (*buf)[:b.size]
	b.pool.Put(buf)
}

var chunks = NewBytePool(DefaultChunkSize)

// Chunks returns the shared DefaultChunkSize pool.
func Chunks() *BytePool {
	return chunks
}
