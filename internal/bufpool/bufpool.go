// Package bufpool provides reusable, fixed-size byte buffers for the
// transient read/copy operations scattered across the transfer core, so
// those hot paths don't allocate fresh scratch space on every call.
// Adapted from the teacher's p2p/buffer_pool.go; buffers returned by Get
// must never be retained past the Put call, since the pool may hand the
// same backing array to another caller afterward.
package bufpool

import "sync"

// Pool is a sync.Pool of same-sized byte slices.
type Pool struct {
	size int
	pool sync.Pool
}

// New creates a Pool whose buffers are always bufSize bytes long.
func New(bufSize int) *Pool {
	return &Pool{
		size: bufSize,
		pool: sync.Pool{
			New: func() any {
				return make([]byte, bufSize)
			},
		},
	}
}

// Get returns a buffer of this pool's configured size.
func (p *Pool) Get() []byte {
	return p.pool.Get().([]byte)
}

// Put returns a buffer to the pool. Buffers whose capacity no longer
// matches this pool's size (shouldn't happen in practice, since callers
// never reslice past what Get handed them) are dropped instead of pooled.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	p.pool.Put(buf[:p.size])
}

// HashScratchPool backs the 64 KiB read buffer used when hashing a file's
// full contents.
var HashScratchPool = New(64 * 1024)

// HeaderPool backs the 4-byte length-prefix header read on every framed
// message.
var HeaderPool = New(4)
