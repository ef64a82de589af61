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

package txqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leafmac/dutymac/radiosim"
)

func TestQueue_EnqueueHeadPopHead(t *testing.T) {
	pool := radiosim.NewPool(8)
	q := New(4, pool)
	assert.True(t, q.Empty())
	assert.Equal(t, 4, q.Capacity())

	f1 := pool.Acquire(1, 0, []byte("a"))
	f2 := pool.Acquire(2, 0, []byte("b"))
	assert.NoError(t, q.Enqueue(Entry{SenderID: 1, Frame: f1}))
	assert.NoError(t, q.Enqueue(Entry{SenderID: 2, Frame: f2}))
	assert.Equal(t, 2, q.Len())

	head, ok := q.Head()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), head.SenderID)

	q.PopHead()
	assert.Equal(t, 1, q.Len())
	head, ok = q.Head()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), head.SenderID)
	assert.Equal(t, 1, pool.Outstanding())

	q.PopHead()
	assert.True(t, q.Empty())
	assert.Equal(t, 0, pool.Outstanding())
	assert.Equal(t, 2, pool.Released())
}

func TestQueue_OverflowDropsAndReportsFull(t *testing.T) {
	pool := radiosim.NewPool(8)
	q := New(2, pool)
	assert.NoError(t, q.Enqueue(Entry{Frame: pool.Acquire(1, 0, nil)}))
	assert.NoError(t, q.Enqueue(Entry{Frame: pool.Acquire(2, 0, nil)}))
	assert.True(t, q.Full())

	err := q.Enqueue(Entry{Frame: pool.Acquire(3, 0, nil)})
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, q.Len(), "overflowing enqueue must not change queue state")
}

func TestQueue_HeadRemoveOrderingPreservedAcrossWrap(t *testing.T) {
	pool := radiosim.NewPool(8)
	q := New(3, pool)
	assert.NoError(t, q.Enqueue(Entry{SenderID: 1, Frame: pool.Acquire(1, 0, nil)}))
	assert.NoError(t, q.Enqueue(Entry{SenderID: 2, Frame: pool.Acquire(2, 0, nil)}))
	q.PopHead()
	assert.NoError(t, q.Enqueue(Entry{SenderID: 3, Frame: pool.Acquire(3, 0, nil)}))
	assert.NoError(t, q.Enqueue(Entry{SenderID: 4, Frame: pool.Acquire(4, 0, nil)}))

	var order []uint32
	for !q.Empty() {
		head, _ := q.Head()
		order = append(order, head.SenderID)
		q.PopHead()
	}
	assert.Equal(t, []uint32{2, 3, 4}, order)
}

func TestQueue_HeadOnEmptyReturnsFalse(t *testing.T) {
	q := New(1, radiosim.NewPool(1))
	_, ok := q.Head()
	assert.False(t, ok)
}
