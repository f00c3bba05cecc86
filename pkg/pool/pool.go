// Object pools for the per-line hot paths
//
// Provides reusable objects for:
// - Argument maps (one per tokenized G-code line)
// - Byte buffers (for serializing documents before an atomic write)
//
// Usage:
//
//	args := pool.GetArgsMap()
//	defer pool.PutArgsMap(args)
//	// use args...
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"bytes"
	"sync"
)

var argsMapPool = sync.Pool{
	New: func() any {
		return make(map[byte]string, 8)
	},
}

// GetArgsMap gets an axis-letter → raw value map from the pool
func GetArgsMap() map[byte]string {
	return argsMapPool.Get().(map[byte]string)
}

// PutArgsMap clears the map and returns it to the pool
func PutArgsMap(m map[byte]string) {
	if m == nil {
		return
	}
	clear(m)
	argsMapPool.Put(m)
}

// maxPooledBuffer keeps whole-document buffers from pinning memory.
const maxPooledBuffer = 4 << 20

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer gets an empty buffer from the pool
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer resets the buffer and returns it to the pool. Buffers that grew
// past maxPooledBuffer are dropped.
func PutBuffer(b *bytes.Buffer) {
	if b == nil || b.Cap() > maxPooledBuffer {
		return
	}
	b.Reset()
	bufferPool.Put(b)
}
