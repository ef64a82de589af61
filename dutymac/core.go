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

// Package dutymac implements the duty-cycling MAC adaptation layer for a
// battery-powered leaf node: the state machine, its transmit queue, its
// sleep-interval governor, and the single-consumer event loop that
// serializes everything driving it. One Core owns all of this state; there
// are no package-level globals, unlike the reference implementation this
// module is derived from.
package dutymac

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/leafmac/dutymac/config"
	"github.com/leafmac/dutymac/csma"
	"github.com/leafmac/dutymac/frame"
	"github.com/leafmac/dutymac/interval"
	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/mailbox"
	"github.com/leafmac/dutymac/metrics"
	"github.com/leafmac/dutymac/radio"
	"github.com/leafmac/dutymac/txqueue"
)

// State is the duty-cycle state, exactly the six-way enum the specification
// names. INIT is the initial value; there is no terminal state.
type State uint8

const (
	StateInit State = iota
	StateSleep
	StateTXBeacon
	StateTXData
	StateTXDataBeforeBeacon
	StateListen
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSleep:
		return "SLEEP"
	case StateTXBeacon:
		return "TX_BEACON"
	case StateTXData:
		return "TX_DATA"
	case StateTXDataBeforeBeacon:
		return "TX_DATA_BEFORE_BEACON"
	case StateListen:
		return "LISTEN"
	default:
		return "INVALID"
	}
}

// UpperLayer receives frames the core pulls off the radio on RX_COMPLETE.
type UpperLayer interface {
	Deliver(f *frame.Frame)
}

// Core is the single owner of all duty-cycling state: the state machine,
// the transmit queue, the sleep governor, and the flags the safe-transmit
// policy depends on. Every field below except the governor's internal
// shift (guarded by its own mutex, see package interval) and irqPending
// (an atomic, see below) is touched only from the worker goroutine running
// Run — producers otherwise communicate purely by posting into mbox.
type Core struct {
	cfg      config.Config
	driver   radio.Driver
	csma     *csma.Helper
	queue    *txqueue.Queue
	governor *interval.Governor
	mbox     *mailbox.Mailbox
	upper    UpperLayer

	state       State
	dutyEnabled bool
	radioBusy   bool
	// irqPending is the one flag set from the driver callback goroutine
	// (onRadioEvent) as well as cleared from the worker goroutine
	// (handleRadioEvent), so it needs real synchronization — the Go
	// equivalent of the brief irq_disable() the reference uses around
	// sleep_interval_shift (see package interval). Every other flag below,
	// including additionalWakeup, is touched only from the worker: even
	// though radio.EventRXPending originates in driver-callback context,
	// onRadioEvent only ever posts it through mbox and never writes
	// additionalWakeup itself, so the mailbox is the sole handoff point.
	irqPending       atomic.Bool
	beaconPending    bool
	additionalWakeup bool
	sendingBeacon    bool
	retryRexmit      bool

	timer    *time.Timer
	timerGen uint64 // incremented on every cancel/rearm, to ignore stale fires

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Core. It validates cfg and requires a non-nil driver —
// matching the specification's "configuration error at init" policy, no
// Core is returned on failure and the module does not run.
func New(cfg config.Config, driver radio.Driver, csmaHelper *csma.Helper, pool frame.Pool, upper UpperLayer) (*Core, error) {
	if driver == nil {
		return nil, errors.New("dutymac: driver must not be nil")
	}
	if upper == nil {
		return nil, errors.New("dutymac: upper layer must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "dutymac: invalid config")
	}
	if csmaHelper == nil {
		csmaHelper = csma.NewDefault(cfg.MaxCSMARetries, cfg.MaxFrameRetries)
	}

	c := &Core{
		cfg:      cfg,
		driver:   driver,
		csma:     csmaHelper,
		queue:    txqueue.New(cfg.QueueCapacity, pool),
		governor: interval.New(cfg.IntervalMin, cfg.IntervalMax),
		mbox:     mailbox.New(cfg.MailboxDepth),
		upper:    upper,
		state:    StateInit,
		stopCh:   make(chan struct{}),
	}

	driver.SetEventCallback(c.onRadioEvent)

	if status := driver.Init(); status < 0 {
		return nil, errors.Errorf("dutymac: driver init failed with status %d", status)
	}

	return c, nil
}

// onRadioEvent is the downward ABI callback. It runs on whatever goroutine
// the driver invokes it from (interrupt-adjacent for EventISR/EventRXPending,
// soft-IRQ-like for the rest) and must never block or touch Core state
// directly — its only job is handing the event to the mailbox.
func (c *Core) onRadioEvent(evt radio.Event) {
	if evt == radio.EventISR {
		// irq_pending is read by the safe-transmit policy from the worker
		// goroutine too; setting it true here, before the message is even
		// posted, closes the window where a concurrently-running transmit
		// decision could miss a just-raised interrupt.
		c.irqPending.Store(true)
	}
	if !c.mbox.TryPost(mailbox.Message{Kind: mailbox.KindRadioISR, RadioEvent: evt}) {
		metrics.MailboxDropped.Inc()
	}
}

// Run drains the mailbox until ctx is canceled or Stop is called. It is the
// single worker goroutine; every mailbox message is handled to completion
// before the next is read, so no two messages are ever processed
// concurrently.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case msg := <-c.mbox.Chan():
			c.dispatch(msg)
		}
	}
}

// Stop ends Run's loop. Safe to call more than once.
func (c *Core) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Core) dispatch(msg mailbox.Message) {
	switch msg.Kind {
	case mailbox.KindRadioISR:
		c.handleRadioEvent(msg.RadioEvent)
	case mailbox.KindTimerFired:
		c.handleTimerFired(msg.TimerGen)
	case mailbox.KindDutyEvent:
		c.handleDutyEvent()
	case mailbox.KindCheckQueue:
		c.handleCheckQueue()
	case mailbox.KindRemoveQueue:
		c.handleRemoveQueue()
	case mailbox.KindLinkRetransmit:
		c.handleLinkRetransmit(msg.Retransmit)
	case mailbox.KindNetSend:
		c.handleNetSend(msg.SendReq)
	case mailbox.KindNetSet:
		c.handleNetSet(msg.SetReq)
	case mailbox.KindNetGet:
		c.handleNetGet(msg.GetReq)
	default:
		logger.Warnf("dutymac: unknown message kind %v", msg.Kind)
	}
}

// isSafeToTransmit implements the safe-transmit policy from spec.md §4.E:
// a transmit or beacon may launch only when the radio is not already busy,
// no ISR is pending drain, and the radio is not mid-reception.
func (c *Core) isSafeToTransmit() bool {
	if c.radioBusy || c.irqPending.Load() {
		return false
	}
	state, status := c.driver.GetState()
	if status < 0 {
		logger.Warnf("dutymac: GetState failed with status %d, treating as unsafe", status)
		return false
	}
	return state != radio.StateRx
}

// armTimer (re)arms the duty-cycle timer to fire after d, canceling any
// previous timer. Idempotent, as spec.md §5 requires.
func (c *Core) armTimer(d time.Duration) {
	c.timerGen++
	gen := c.timerGen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, func() {
		c.postTimerFired(gen)
	})
}

// cancelTimer stops the duty-cycle timer without rearming it.
func (c *Core) cancelTimer() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
	}
}

// postTimerFired runs on the timer's own goroutine. Per spec.md §5 it is
// restricted to posting a message and reading the governor; it must not
// touch any state the worker owns.
func (c *Core) postTimerFired(gen uint64) {
	if !c.mbox.TryPost(mailbox.Message{Kind: mailbox.KindTimerFired, TimerGen: gen}) {
		metrics.MailboxDropped.Inc()
	}
}
