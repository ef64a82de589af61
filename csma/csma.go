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

// Package csma models the link layer's retry/CSMA helper as two orthogonal,
// opaque layers. The core never looks inside either layer; it only reads
// the retry-or-not edge each layer reports.
package csma

// Layer is one retry-accounting layer (CSMA backoff, or frame retry
// counting). Each layer tracks its own attempt budget independently.
type Layer interface {
	// SendSucceeded records a successful send and resets this layer's
	// attempt counter.
	SendSucceeded()
	// SendFailed records a failed attempt and reports whether this layer
	// wants to retry. A false return means this layer's budget is
	// exhausted.
	SendFailed() (retry bool)
}

// counterLayer is a minimal grounded implementation of Layer: a bounded
// attempt counter that resets on success. Both the CSMA layer and the
// frame-retry layer of the default Helper are built from it; only their
// attempt budgets differ.
type counterLayer struct {
	maxAttempts int
	attempts    int
}

// NewCounterLayer returns a Layer that permits up to maxAttempts
// consecutive failures before refusing further retries.
func NewCounterLayer(maxAttempts int) Layer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &counterLayer{maxAttempts: maxAttempts}
}

func (c *counterLayer) SendSucceeded() {
	c.attempts = 0
}

func (c *counterLayer) SendFailed() bool {
	c.attempts++
	return c.attempts < c.maxAttempts
}

// Helper bundles the CSMA layer and the frame-retry layer the core
// consults on transmit failure, matching the two-layer interaction
// described for TX_MEDIUM_BUSY (CSMA only) and TX_NOACK (CSMA confirmed
// succeeded, then frame retry is asked).
type Helper struct {
	CSMA  Layer
	Retry Layer
}

// NewDefault returns a Helper with bounded counter layers, grounded
// directly on the reference csma_init()/retry_init() pairing: a CSMA
// layer bounding channel-busy retries, and a frame-retry layer bounding
// no-ack retries.
func NewDefault(maxCSMARetries, maxFrameRetries int) *Helper {
	return &Helper{
		CSMA:  NewCounterLayer(maxCSMARetries),
		Retry: NewCounterLayer(maxFrameRetries),
	}
}

// OnMediumBusy reports whether a retry should follow a TX_MEDIUM_BUSY
// event: only the CSMA layer is consulted.
func (h *Helper) OnMediumBusy() (retry bool) {
	return h.CSMA.SendFailed()
}

// OnNoAck reports whether a retry should follow a TX_NOACK event: the
// CSMA layer is told the channel access itself succeeded, then the frame
// retry layer is asked for a verdict.
func (h *Helper) OnNoAck() (retry bool) {
	h.CSMA.SendSucceeded()
	return h.Retry.SendFailed()
}

// OnSuccess resets both layers after a TX_COMPLETE/TX_COMPLETE_PENDING.
func (h *Helper) OnSuccess() {
	h.CSMA.SendSucceeded()
	h.Retry.SendSucceeded()
}
