// Package pools reuses encode buffers across requests to keep rendering
// from churning the heap.
package pools

import (
	"bytes"
	"sync"
)

// MaxPooled is the largest buffer capacity kept for reuse. A full-size PNG
// fits comfortably; anything larger goes back to the GC.
const MaxPooled = 4 << 20

// BufferPool is a pool of bytes.Buffers.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. Oversized buffers are dropped.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPooled {
		return
	}
	p.pool.Put(buf)
}

var defaultBufferPool = NewBufferPool()

// GetBuffer returns an empty buffer from the default pool.
func GetBuffer() *bytes.Buffer {
	return defaultBufferPool.Get()
}

// PutBuffer returns a buffer to the default pool.
func PutBuffer(buf *bytes.Buffer) {
	defaultBufferPool.Put(buf)
}
