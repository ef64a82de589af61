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

// Package radiosim provides a software stand-in for the 802.15.4-class
// radio driver spec.md §4.A treats as an opaque collaborator: a
// deterministic fake implementing radio.Driver, plus a fixed-arena
// frame.Pool. It exists for the test suite and for cmd/dutymac-demo, which
// has no real radio peripheral to drive. The completion model is grounded
// on the teacher's event-driven radio simulation
// (radiomodel.RadioModelIdeal.HandleEvent): a transmit's outcome is decided
// up front and fed back through the same radio.EventCallback ABI a real
// driver would use, just without the over-the-air channel model.
package radiosim

import (
	"sync"

	"github.com/leafmac/dutymac/frame"
	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/radio"
)

// Outcome scripts one Send/Resend/SendBeacon call: Status is what the call
// returns synchronously (negative folds into radio.EventTXMediumBusy by
// the core itself, per spec.md §7, so Event is ignored when Status < 0);
// Event is what gets reported through the callback when Status >= 0.
type Outcome struct {
	Status int32
	Event  radio.Event
}

// Driver is a deterministic fake radio.Driver. Every exported method is
// safe to call concurrently; completion callbacks are invoked synchronously
// within the call that triggered them (Send/Resend/SendBeacon/InjectISR/
// InjectRXPending/InjectRXComplete), which only ever results in a mailbox post — never a direct
// call back into dutymac.Core — so this stays safe to drive from tests
// running the core's worker goroutine via Core.Run.
type Driver struct {
	mu sync.Mutex

	initStatus int32
	state      radio.State
	options    map[radio.Option][]byte

	cb radio.EventCallback

	// outcomes is consumed FIFO by Send/Resend/SendBeacon; defaultOutcome
	// is used once outcomes is empty, so a test can script a handful of
	// calls and let the rest succeed.
	outcomes       []Outcome
	defaultOutcome Outcome

	pendingRx *frame.Frame

	sendCount   int
	resendCount int
	beaconCount int
	isrCount    int
}

// New returns a Driver whose unscripted sends succeed with
// radio.EventTXComplete, starting in radio.StateSleep.
func New() *Driver {
	return &Driver{
		state:          radio.StateSleep,
		options:        map[radio.Option][]byte{},
		defaultOutcome: Outcome{Status: 0, Event: radio.EventTXComplete},
	}
}

// SetInitStatus configures what Init() returns; used to exercise
// spec.md §7's "configuration error at init" path.
func (d *Driver) SetInitStatus(status int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initStatus = status
}

// SetDefaultOutcome overrides what an unscripted Send/Resend/SendBeacon
// reports.
func (d *Driver) SetDefaultOutcome(o Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.defaultOutcome = o
}

// QueueOutcome appends one scripted outcome for the next
// Send/Resend/SendBeacon call.
func (d *Driver) QueueOutcome(o Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outcomes = append(d.outcomes, o)
}

// QueueOutcomes appends several scripted outcomes in call order.
func (d *Driver) QueueOutcomes(os ...Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outcomes = append(d.outcomes, os...)
}

// SetPendingRX stages the frame RecvFrame will hand back on the next call,
// without reporting any event. InjectRXComplete stages its own frame and
// overwrites whatever was set here.
func (d *Driver) SetPendingRX(f *frame.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingRx = f
}

// InjectISR simulates the driver raising an interrupt: it invokes the
// callback with radio.EventISR, the same way real interrupt context would.
// The ISR count moves when the core drains it through ISR, not here.
func (d *Driver) InjectISR() {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb != nil {
		cb(radio.EventISR)
	}
}

// InjectRXPending simulates observing a frame-pending bit during a
// reception, without a full RX completion.
func (d *Driver) InjectRXPending() {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb != nil {
		cb(radio.EventRXPending)
	}
}

// InjectRXComplete simulates a completed reception, making f available
// from the next RecvFrame call.
func (d *Driver) InjectRXComplete(f *frame.Frame) {
	d.mu.Lock()
	d.pendingRx = f
	cb := d.cb
	d.mu.Unlock()
	if cb != nil {
		cb(radio.EventRXComplete)
	}
}

// Init implements radio.Driver.
func (d *Driver) Init() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initStatus
}

// SetState implements radio.Driver.
func (d *Driver) SetState(state radio.State) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
	return 0
}

// GetState implements radio.Driver.
func (d *Driver) GetState() (radio.State, int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, 0
}

// SetOption implements radio.Driver.
func (d *Driver) SetOption(opt radio.Option, value []byte) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	d.options[opt] = cp
	return 0
}

// GetOption implements radio.Driver.
func (d *Driver) GetOption(opt radio.Option, buf []byte) (int, int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.options[opt]
	if !ok {
		return 0, -1
	}
	return copy(buf, v), 0
}

// ISR implements radio.Driver: draining the ISR is a no-op for the fake,
// it only counts for test assertions.
func (d *Driver) ISR() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isrCount++
}

// Send implements radio.Driver.
func (d *Driver) Send(f *frame.Frame, release bool) int32 {
	logger.AssertFalse(release, "radiosim: core must always pass release=false")
	d.mu.Lock()
	d.sendCount++
	outcome := d.nextOutcome()
	cb := d.cb
	d.mu.Unlock()
	return d.complete(outcome, cb)
}

// Resend implements radio.Driver.
func (d *Driver) Resend(f *frame.Frame) int32 {
	d.mu.Lock()
	d.resendCount++
	outcome := d.nextOutcome()
	cb := d.cb
	d.mu.Unlock()
	return d.complete(outcome, cb)
}

// SendBeacon implements radio.Driver.
func (d *Driver) SendBeacon() int32 {
	d.mu.Lock()
	d.beaconCount++
	outcome := d.nextOutcome()
	cb := d.cb
	d.mu.Unlock()
	return d.complete(outcome, cb)
}

// SetEventCallback implements radio.Driver.
func (d *Driver) SetEventCallback(cb radio.EventCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

// RecvFrame implements radio.Driver.
func (d *Driver) RecvFrame() *frame.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.pendingRx
	d.pendingRx = nil
	return f
}

func (d *Driver) nextOutcome() Outcome {
	if len(d.outcomes) == 0 {
		return d.defaultOutcome
	}
	o := d.outcomes[0]
	d.outcomes = d.outcomes[1:]
	return o
}

func (d *Driver) complete(o Outcome, cb radio.EventCallback) int32 {
	if o.Status < 0 {
		return o.Status
	}
	if cb != nil {
		cb(o.Event)
	}
	return o.Status
}

// Counts returns the call counters, for test assertions.
func (d *Driver) Counts() (sends, resends, beacons, isrs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendCount, d.resendCount, d.beaconCount, d.isrCount
}
