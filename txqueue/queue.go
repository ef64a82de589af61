// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package txqueue implements the bounded outbound-frame FIFO. The
// reference used a linear array with an O(n) shift on every head-remove;
// this is a fixed-capacity ring buffer instead, which the specification
// explicitly permits as long as head-oldest ordering is preserved.
package txqueue

import (
	"github.com/pkg/errors"

	"github.com/leafmac/dutymac/frame"
	"github.com/leafmac/dutymac/logger"
)

// ErrFull is returned by Enqueue when the queue is at capacity.
var ErrFull = errors.New("txqueue: full")

// Entry owns one outbound frame plus the bookkeeping the original
// msg_t carried alongside it.
type Entry struct {
	SenderID uint32
	KindTag  uint8
	Frame    *frame.Frame
}

// Queue is a fixed-capacity ring buffer of Entry, with pool-backed release
// on PopHead. It allocates its backing array once, at New, and never again
// — no heap allocation happens on the enqueue/dequeue hot path.
type Queue struct {
	pool     frame.Pool
	buf      []Entry
	head     int
	len      int
	capacity int
}

// New returns an empty Queue with the given capacity, backed by pool for
// buffer release on PopHead.
func New(capacity int, pool frame.Pool) *Queue {
	logger.AssertTrue(capacity > 0, "txqueue: capacity must be positive")
	return &Queue{
		pool:     pool,
		buf:      make([]Entry, capacity),
		capacity: capacity,
	}
}

// Len returns the current number of queued frames.
func (q *Queue) Len() int {
	return q.len
}

// Capacity returns the queue's fixed capacity.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Empty reports whether the queue currently holds no frames.
func (q *Queue) Empty() bool {
	return q.len == 0
}

// Full reports whether the queue is at capacity.
func (q *Queue) Full() bool {
	return q.len == q.capacity
}

// Enqueue appends entry at the tail. Returns ErrFull, leaving the queue
// unchanged, if the queue is already at capacity — the new frame is
// dropped and the caller must surface that as an observable send failure.
func (q *Queue) Enqueue(entry Entry) error {
	if q.Full() {
		return ErrFull
	}
	idx := (q.head + q.len) % q.capacity
	q.buf[idx] = entry
	q.len++
	return nil
}

// Head returns the oldest queued entry without removing it. The second
// return value is false if the queue is empty.
func (q *Queue) Head() (Entry, bool) {
	if q.Empty() {
		return Entry{}, false
	}
	return q.buf[q.head], true
}

// PopHead removes the oldest entry, releasing its frame buffer back to the
// pool. It is the only way a frame leaves the queue during normal
// operation — dropping never happens silently for a frame that has ever
// reached the head.
func (q *Queue) PopHead() {
	logger.AssertTrue(!q.Empty(), "txqueue: PopHead on empty queue")
	e := q.buf[q.head]
	q.buf[q.head] = Entry{}
	q.head = (q.head + 1) % q.capacity
	q.len--
	if q.pool != nil && e.Frame != nil {
		q.pool.Release(e.Frame)
	}
}
