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

// Package mailbox implements the bounded single-consumer message queue
// that serializes timer callbacks, radio events, send requests, and
// configuration calls into one total order at the worker goroutine.
package mailbox

import (
	"sync/atomic"

	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/radio"
	"github.com/leafmac/dutymac/txqueue"
)

// Kind identifies the message kinds the worker dispatches, named after the
// message types the upper/lower layers exchange with the core.
type Kind uint8

const (
	// KindRadioISR carries a radio.Event: either a bare ISR notification
	// (radio.EventISR) that must be drained by calling Driver.ISR, or a
	// completion/notification event (RX_PENDING, RX_COMPLETE, TX_COMPLETE,
	// TX_COMPLETE_PENDING, TX_MEDIUM_BUSY, TX_NOACK) posted from the
	// driver's soft-IRQ context. Both originate below the core, so both
	// travel as the same mailbox kind with the event as payload.
	KindRadioISR Kind = iota
	// KindTimerFired carries a timer-generation stamp from the duty-cycle
	// timer's own goroutine. It exists because the reference implementation
	// let its timer ISR read and mutate the duty-cycle state directly;
	// under the single-owner rule that logic has to run on the worker
	// instead, so the timer callback's only job is to hand off "I fired"
	// and let the worker do the state-dependent switch itself.
	KindTimerFired
	// KindDutyEvent is the internal "EVENT" trigger driving state-machine
	// progression (the second-stage action after a state transition has
	// already been decided).
	KindDutyEvent
	// KindCheckQueue re-evaluates whether a queued frame can be sent now.
	KindCheckQueue
	// KindRemoveQueue pops the transmitted queue head and evaluates what
	// comes next.
	KindRemoveQueue
	// KindLinkRetransmit asks the core to (re)issue a specific frame, or
	// reposts itself if the radio is momentarily unavailable.
	KindLinkRetransmit
	// KindNetSend is the upward SND API call.
	KindNetSend
	// KindNetSet is the upward SET API call; reply carries the driver's
	// status.
	KindNetSet
	// KindNetGet is the upward GET API call; reply carries the driver's
	// status.
	KindNetGet
)

func (k Kind) String() string {
	switch k {
	case KindRadioISR:
		return "RADIO_ISR"
	case KindTimerFired:
		return "TIMER_FIRED"
	case KindDutyEvent:
		return "DUTY_EVENT"
	case KindCheckQueue:
		return "CHECK_QUEUE"
	case KindRemoveQueue:
		return "REMOVE_QUEUE"
	case KindLinkRetransmit:
		return "LINK_RETRANSMIT"
	case KindNetSend:
		return "NET_SEND"
	case KindNetSet:
		return "NET_SET"
	case KindNetGet:
		return "NET_GET"
	default:
		return "UNKNOWN"
	}
}

// SetRequest is the payload of a KindNetSet message.
type SetRequest struct {
	Opt   radio.Option
	Value []byte
	Reply chan int32
}

// GetRequest is the payload of a KindNetGet message.
type GetRequest struct {
	Opt   radio.Option
	Buf   []byte
	Reply chan GetReply
}

// GetReply is the driver's response to a KindNetGet message.
type GetReply struct {
	N      int
	Status int32
}

// RetransmitRequest is the payload of a KindLinkRetransmit message.
type RetransmitRequest struct {
	Entry      txqueue.Entry
	IsBeacon   bool
	IsRexmit   bool
	DeferCount int
}

// SendRequest is the payload of a KindNetSend message. Reply carries
// ErrFull (via the error interface, nil on success) so the upward Send
// call can report a dropped frame to its caller instead of losing it
// silently.
type SendRequest struct {
	Entry txqueue.Entry
	Reply chan error
}

// Message is one unit dispatched atomically by the worker goroutine.
type Message struct {
	Kind       Kind
	RadioEvent radio.Event
	TimerGen   uint64
	SendReq    *SendRequest
	SetReq     *SetRequest
	GetReq     *GetRequest
	Retransmit *RetransmitRequest
}

// Mailbox is the bounded, single-consumer channel producers post into.
// Producers are the duty timer's goroutine, the radio driver's callback
// goroutine(s), the upward API callers, and the worker's own self-posts;
// the consumer is the one worker goroutine running Core.Run.
type Mailbox struct {
	ch      chan Message
	depth   int
	dropped atomic.Int64
}

// New returns a Mailbox with the given buffer depth.
func New(depth int) *Mailbox {
	logger.AssertTrue(depth > 0, "mailbox: depth must be positive")
	return &Mailbox{ch: make(chan Message, depth), depth: depth}
}

// Post blocks until the message is accepted. Used by the upward API calls
// (Core.Send/Set/Get) on their callers' goroutines, and by the worker
// itself for self-posts (e.g. KindCheckQueue after draining an ISR).
func (m *Mailbox) Post(msg Message) {
	m.ch <- msg
}

// TryPost attempts a non-blocking send, for producers that must never
// block (ISR/timer context). Returns false if the mailbox is full; the
// caller is responsible for counting/handling the drop.
func (m *Mailbox) TryPost(msg Message) bool {
	select {
	case m.ch <- msg:
		return true
	default:
		m.dropped.Add(1)
		logger.Warnf("mailbox: dropped %v message, mailbox full", msg.Kind)
		return false
	}
}

// Dropped returns the number of messages lost to a full mailbox so far.
func (m *Mailbox) Dropped() uint64 {
	return uint64(m.dropped.Load())
}

// Chan exposes the receive side for the worker's select loop.
func (m *Mailbox) Chan() <-chan Message {
	return m.ch
}
