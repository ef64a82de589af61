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

package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGovernor_BackoffDoublesUntilClamp(t *testing.T) {
	g := New(100*time.Millisecond, 800*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, g.Current())

	g.Backoff()
	assert.Equal(t, 200*time.Millisecond, g.Current())
	g.Backoff()
	assert.Equal(t, 400*time.Millisecond, g.Current())
	g.Backoff()
	assert.Equal(t, 800*time.Millisecond, g.Current())

	// at Max, further backoffs must not overshoot.
	g.Backoff()
	assert.Equal(t, 800*time.Millisecond, g.Current())
	g.Backoff()
	assert.Equal(t, 800*time.Millisecond, g.Current())
}

func TestGovernor_ResetReturnsToMin(t *testing.T) {
	g := New(100*time.Millisecond, 800*time.Millisecond)
	g.Backoff()
	g.Backoff()
	assert.Equal(t, uint8(2), g.Shift())

	g.Reset()
	assert.Equal(t, uint8(0), g.Shift())
	assert.Equal(t, 100*time.Millisecond, g.Current())
}

func TestGovernor_ConsecutiveBackoffsNonDecreasing(t *testing.T) {
	g := New(50*time.Millisecond, 3200*time.Millisecond)
	prev := g.Current()
	for i := 0; i < 10; i++ {
		g.Backoff()
		cur := g.Current()
		assert.True(t, cur >= prev, "interval must be non-decreasing across backoffs")
		assert.True(t, cur <= 3200*time.Millisecond)
		prev = cur
	}
}

func TestGovernor_RandomFirstSleepBounded(t *testing.T) {
	g := New(10*time.Millisecond, 640*time.Millisecond)
	for i := 0; i < 50; i++ {
		d := g.RandomFirstSleep()
		assert.True(t, d >= 0)
		assert.True(t, d < 640*time.Millisecond)
	}
}
