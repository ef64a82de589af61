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

package csma

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterLayer_RetriesUntilBudgetExhausted(t *testing.T) {
	l := NewCounterLayer(3)
	assert.True(t, l.SendFailed())
	assert.True(t, l.SendFailed())
	assert.False(t, l.SendFailed(), "third consecutive failure exceeds the budget of 3")
}

func TestCounterLayer_SuccessResetsBudget(t *testing.T) {
	l := NewCounterLayer(2)
	assert.True(t, l.SendFailed())
	l.SendSucceeded()
	assert.True(t, l.SendFailed())
	assert.True(t, l.SendFailed())
}

func TestHelper_OnMediumBusyOnlyConsultsCSMA(t *testing.T) {
	h := NewDefault(2, 5)
	assert.True(t, h.OnMediumBusy())
	assert.False(t, h.OnMediumBusy(), "csma budget of 2 exhausted after two failures")
}

func TestHelper_OnNoAckConfirmsCSMAThenAsksRetry(t *testing.T) {
	h := NewDefault(4, 1)
	assert.False(t, h.OnNoAck(), "retry budget of 1 exhausted on the first no-ack")
}

func TestHelper_OnSuccessResetsBothLayers(t *testing.T) {
	h := NewDefault(2, 2)
	assert.True(t, h.OnMediumBusy())
	assert.False(t, h.OnMediumBusy())
	h.OnSuccess()
	assert.True(t, h.OnMediumBusy(), "budget must be restored after a success")
}
