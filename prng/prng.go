// Copyright (c) 2024, The OTNS Authors.
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

// Package prng seeds the one random draw the duty-cycling core needs:
// interval.Governor.RandomFirstSleep's staggering of a leaf node's first
// wake-up. The original package kept several independent generators seeded
// off a root seed, one per simulation concern (node IDs, radio models,
// failure injection, unit randoms); a single leaf node only ever needs a
// unit random, so this keeps the root-seed discipline and drops the rest.
package prng

import (
	"math/rand"
	"sync"
	"time"
)

var (
	mu                sync.Mutex
	unitRandGenerator *rand.Rand
)

func init() {
	Init(0)
}

// Init (re)seeds the package-level generator, either with a fixed seed
// (rootSeed != 0, for reproducing a jitter sequence in a test) or a
// time-based one (rootSeed == 0, for normal operation).
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	mu.Lock()
	unitRandGenerator = rand.New(rand.NewSource(rootSeed))
	mu.Unlock()
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used
// as a random probability or a fraction of a duration.
func NewUnitRandom() float64 {
	mu.Lock()
	defer mu.Unlock()
	return unitRandGenerator.Float64()
}
