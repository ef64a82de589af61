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

// Package frame models an outbound 802.15.4-class frame as a move-only
// handle over a buffer owned by an external pool, the way the original
// gnrc_pktsnip_t handles were owned by gnrc's packet-buffer allocator.
package frame

// Frame is a reference to one outbound frame's payload. It is never copied
// after creation; ownership moves from the caller of Pool.Acquire to the
// transmit queue, and from the queue's head to Pool.Release.
type Frame struct {
	// SenderID identifies the upper-layer entity that queued this frame,
	// mirroring the original's msg_t.sender_pid.
	SenderID uint32
	// KindTag distinguishes frame classes the way the original's msg_t.type
	// did (e.g. a plain SND vs. a self-requeued retransmit).
	KindTag uint8
	// Payload is the wire-ready frame bytes. Owned by Pool until Release.
	Payload []byte
}

// Pool models the external packet-buffer allocator. The core never
// allocates frame storage itself; Acquire/Release are the only boundary
// where frame memory is created or freed.
type Pool interface {
	// Acquire returns a Frame carrying senderID, kindTag and the given
	// payload bytes, or nil if the pool is exhausted.
	Acquire(senderID uint32, kindTag uint8, payload []byte) *Frame
	// Release returns a Frame's buffer to the pool. Called exactly once
	// per Frame; txqueue.Queue.PopHead calls it for every frame it removes.
	Release(f *Frame)
}
