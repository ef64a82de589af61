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

package radiosim

import (
	"sync"

	"github.com/leafmac/dutymac/frame"
)

// Pool is a fixed-arena frame.Pool: it hands out *frame.Frame values up to
// capacity and counts outstanding acquisitions, so tests can assert every
// frame handed to the core is eventually released exactly once (spec.md
// §3's "buffer is released back to its allocator" guarantee).
type Pool struct {
	mu          sync.Mutex
	capacity    int
	outstanding int
	released    int
}

// NewPool returns a Pool that refuses Acquire once outstanding reaches
// capacity.
func NewPool(capacity int) *Pool {
	return &Pool{capacity: capacity}
}

// Acquire implements frame.Pool.
func (p *Pool) Acquire(senderID uint32, kindTag uint8, payload []byte) *frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outstanding >= p.capacity {
		return nil
	}
	p.outstanding++
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return &frame.Frame{SenderID: senderID, KindTag: kindTag, Payload: cp}
}

// Release implements frame.Pool.
func (p *Pool) Release(f *frame.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding--
	p.released++
}

// Outstanding returns the number of frames acquired but not yet released.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Released returns the total number of frames released so far.
func (p *Pool) Released() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
