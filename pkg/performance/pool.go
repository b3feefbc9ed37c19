package performance

import (
	"bytes"
	"sync"
)

// maxPooledBuffer keeps one oversized page from pinning memory in the pool.
const maxPooledBuffer = 1 << 20

// BufferPool reuses byte buffers for rendered responses
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a pool whose buffers start at size bytes
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, size))
			},
		},
	}
}

// Get returns an empty buffer
func (bp *BufferPool) Get() *bytes.Buffer {
	return bp.pool.Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the pool
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bp.pool.Put(buf)
}
