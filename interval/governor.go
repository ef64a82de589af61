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

// Package interval implements the sleep-interval governor: exponential
// back-off on unproductive wake cycles, reset to the minimum on productive
// ones. The original kept this as a file-scope uint8 mutated under
// irq_disable(); here a sync.Mutex stands in for that brief
// interrupt-disable window, since the timer callback (its own goroutine)
// and the worker goroutine both touch it.
package interval

import (
	"sync"
	"time"

	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/prng"
)

// Governor computes the next sleep duration for a leaf node. The effective
// interval is Min<<shift, clamped at Max.
type Governor struct {
	mu    sync.Mutex
	min   time.Duration
	max   time.Duration
	shift uint8
}

// New returns a Governor with shift=0. min and max must satisfy
// min<<k == max for some k <= 31, validated by config.Config.Validate
// before the governor is ever constructed.
func New(min, max time.Duration) *Governor {
	logger.AssertTrue(min > 0 && max >= min, "interval: min/max out of range")
	return &Governor{min: min, max: max}
}

// Reset sets shift back to zero, called after any productive cycle.
func (g *Governor) Reset() {
	g.mu.Lock()
	g.shift = 0
	g.mu.Unlock()
}

// Backoff advances shift by one step, unless doing so would overflow or
// the current interval has already reached Max.
func (g *Governor) Backoff() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.clamped(g.shift)
	if cur < g.max {
		next := g.shift + 1
		if g.min<<next >= g.min {
			g.shift = next
		}
	}
}

// Current returns the clamped current interval.
func (g *Governor) Current() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clamped(g.shift)
}

// Shift returns the current shift amount, for tests/introspection.
func (g *Governor) Shift() uint8 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shift
}

func (g *Governor) clamped(shift uint8) time.Duration {
	interval := g.min << shift
	if interval > g.max || interval < g.min {
		// the shift left more than 63 bits, or exceeded Max: clamp down.
		interval = g.max
	}
	return interval
}

// RandomFirstSleep draws a uniform random duration in [0, Max), used once
// at enable() to stagger the first wake-up across leaf nodes.
func (g *Governor) RandomFirstSleep() time.Duration {
	g.mu.Lock()
	max := g.max
	g.mu.Unlock()
	if max <= 0 {
		return 0
	}
	return time.Duration(prng.NewUnitRandom() * float64(max))
}
