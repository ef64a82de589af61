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

// Package radio defines the driver ABI the duty-cycling core consumes. The
// driver itself (framing, CCA, over-the-air timing) is out of scope; this
// package only pins down the trait-like interface the core calls through.
package radio

import "github.com/leafmac/dutymac/frame"

// State is the power state of the radio, set via Driver.SetState.
type State uint8

const (
	StateSleep State = iota
	StateIdle
	StateRx
)

func (s State) String() string {
	switch s {
	case StateSleep:
		return "sleep"
	case StateIdle:
		return "idle"
	case StateRx:
		return "rx"
	default:
		return "invalid"
	}
}

// Event is one of the completion/notification kinds the driver reports
// through EventCallback, per the downward ABI in the specification.
type Event uint8

const (
	// EventISR signals that the driver raised an interrupt that must be
	// drained by calling Driver.ISR from the worker goroutine.
	EventISR Event = iota
	// EventRXPending indicates a peer has more frames queued (frame-pending
	// bit observed during the last reception).
	EventRXPending
	EventRXComplete
	EventTXComplete
	// EventTXCompletePending is TXComplete where the peer's ack indicated
	// more data is queued for us (response to a data-request/beacon).
	EventTXCompletePending
	EventTXMediumBusy
	EventTXNoAck
)

func (e Event) String() string {
	switch e {
	case EventISR:
		return "ISR"
	case EventRXPending:
		return "RX_PENDING"
	case EventRXComplete:
		return "RX_COMPLETE"
	case EventTXComplete:
		return "TX_COMPLETE"
	case EventTXCompletePending:
		return "TX_COMPLETE_PENDING"
	case EventTXMediumBusy:
		return "TX_MEDIUM_BUSY"
	case EventTXNoAck:
		return "TX_NOACK"
	default:
		return "invalid"
	}
}

// Option identifies a configuration knob exposed by Set/Get, matching the
// NETOPT_* surface the original glued into netapi SET/GET messages.
type Option uint16

const (
	OptState Option = iota
	OptDutyCycling
	OptSourceAddressLength
	// OptPassthroughBase and above are forwarded to the driver verbatim;
	// the core does not interpret them.
	OptPassthroughBase Option = 0x1000
)

// EventCallback is invoked by the driver to report ISR and completion
// events. From true interrupt context, only EventISR and EventRXPending
// are expected; the rest may arrive from the driver's soft-IRQ context.
// The callback must not block: its only job is to hand the event to the
// core's mailbox.
type EventCallback func(evt Event)

// Driver is the trait-like handle the core holds onto one radio. Every
// call returns synchronously with a status; completion is reported later
// through EventCallback.
type Driver interface {
	// Init prepares the driver for use. Returns a negative status on
	// failure (e.g. the underlying peripheral could not be brought up).
	Init() int32

	// SetState requests a power-state transition (SLEEP, IDLE, RX).
	SetState(state State) int32
	// GetState reads back the driver's current power state, used by the
	// safe-transmit policy's "radio_state != RX" check.
	GetState() (State, int32)

	// SetOption/GetOption implement the generic NETOPT-style passthrough
	// surface, including OptSourceAddressLength.
	SetOption(opt Option, value []byte) int32
	GetOption(opt Option, buf []byte) (int, int32)

	// ISR runs the driver's interrupt-service-routine body from worker
	// context; it is what actually clears whatever raised EventISR.
	ISR()

	// Send transmits a first-attempt frame. release indicates whether the
	// driver should release the frame's buffer itself on completion (the
	// core always passes false and releases via the transmit queue).
	Send(f *frame.Frame, release bool) int32
	// Resend retransmits a frame previously passed to Send.
	Resend(f *frame.Frame) int32
	// SendBeacon transmits a beacon frame; nil payload is synthesized by
	// the driver.
	SendBeacon() int32

	// SetEventCallback registers the callback the driver uses to report
	// ISR and completion events. Called once at core construction.
	SetEventCallback(cb EventCallback)

	// RecvFrame returns the frame buffered by the driver for the RX that
	// just completed. Called synchronously from the worker goroutine while
	// handling EventRXComplete, never from interrupt context. Returns nil
	// if nothing is buffered (should not happen on a well-formed
	// EventRXComplete, but the core tolerates it rather than asserting).
	RecvFrame() *frame.Frame
}
