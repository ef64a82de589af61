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

package dutymac

import (
	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/mailbox"
	"github.com/leafmac/dutymac/metrics"
	"github.com/leafmac/dutymac/radio"
)

// maxLinkRetransmitDefers bounds how many times handleLinkRetransmit may
// repost itself while the radio is momentarily unavailable, per the
// Design Notes' "bound this with a small deferred-retry counter" guidance.
const maxLinkRetransmitDefers = 8

// handleTimerFired implements the "timer" row of the transition table. A
// stale fire (superseded by a later cancel/rearm) carries an outdated
// generation stamp and is silently dropped.
func (c *Core) handleTimerFired(gen uint64) {
	if gen != c.timerGen {
		return
	}
	switch c.state {
	case StateSleep:
		if c.queue.Empty() {
			c.state = StateTXBeacon
		} else {
			c.state = StateTXDataBeforeBeacon
		}
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
	case StateListen:
		if c.queue.Empty() {
			c.state = StateSleep
			c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
		} else {
			c.state = StateTXData
			c.armTimer(c.governor.Current())
			c.mbox.Post(mailbox.Message{Kind: mailbox.KindCheckQueue})
		}
	case StateTXData:
		// Sleep interval elapsed mid-drain: a pure state change, no I/O,
		// per spec.md §9's note on this path.
		c.state = StateTXDataBeforeBeacon
	default:
		// INIT, TX_BEACON, TX_DATA_BEFORE_BEACON have no timer action of
		// their own; a fire here is a stale generation that slipped past
		// the check above only if two timers were armed in the same
		// instant, which armTimer's generation bump already prevents.
	}
}

// handleDutyEvent implements the "EVENT" row of the transition table: the
// second-stage action after a transition has already been decided.
func (c *Core) handleDutyEvent() {
	switch c.state {
	case StateTXBeacon:
		if c.isSafeToTransmit() {
			c.transmitBeacon()
		} else {
			c.beaconPending = true
			metrics.BeaconsDeferred.Inc()
		}
	case StateTXDataBeforeBeacon:
		if !c.queue.Empty() && c.isSafeToTransmit() {
			c.transmitHead()
		}
	case StateListen:
		c.driver.SetState(radio.StateIdle)
		c.armTimer(c.cfg.WakeupInterval)
	case StateSleep:
		c.driver.SetState(radio.StateSleep)
		c.armTimer(c.governor.Current())
	default:
		logger.Warnf("dutymac: DUTY_EVENT in unexpected state %v", c.state)
	}
}

// handleCheckQueue re-evaluates whether the queue head can be sent now.
// A CHECK_QUEUE on an empty queue, or while LISTEN is already handling its
// own RX-driven drain, is a no-op, per spec.md §8.
func (c *Core) handleCheckQueue() {
	if c.state == StateListen || c.queue.Empty() || !c.isSafeToTransmit() {
		return
	}
	if c.state == StateSleep {
		c.state = StateTXData
	}
	c.transmitHead()
}

// handleRemoveQueue pops the frame that was just transmitted (successfully
// or past retry exhaustion) and decides what follows, per the REMOVE_QUEUE
// row of the transition table.
func (c *Core) handleRemoveQueue() {
	if !c.queue.Empty() {
		c.queue.PopHead()
		metrics.QueueDepth.Set(float64(c.queue.Len()))
	}

	if !c.queue.Empty() {
		if c.isSafeToTransmit() {
			c.transmitHead()
		}
		return
	}

	switch c.state {
	case StateTXDataBeforeBeacon:
		c.state = StateTXBeacon
		if c.isSafeToTransmit() {
			c.transmitBeacon()
		} else {
			c.beaconPending = true
			metrics.BeaconsDeferred.Inc()
		}
	case StateTXData:
		c.state = StateSleep
		c.driver.SetState(radio.StateSleep)
		c.armTimer(c.governor.Current())
	default:
		// REMOVE_QUEUE reaching INIT (spec.md §9's flagged ambiguity) or
		// TX_BEACON with an already-empty queue is treated as a no-op
		// re-evaluation, not an error: see DESIGN.md.
	}
}

// handleLinkRetransmit reissues a frame a retry layer asked for, or
// reposts itself (bounded) if the radio is momentarily unavailable.
func (c *Core) handleLinkRetransmit(req *mailbox.RetransmitRequest) {
	if req == nil {
		return
	}
	if !c.isSafeToTransmit() {
		if req.DeferCount >= maxLinkRetransmitDefers {
			logger.Warnf("dutymac: link retransmit deferred %d times, giving up", req.DeferCount)
			c.giveUpRetry(req.IsBeacon)
			return
		}
		req.DeferCount++
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindLinkRetransmit, Retransmit: req})
		return
	}

	c.radioBusy = true
	c.retryRexmit = true
	var status int32
	if req.IsBeacon {
		c.sendingBeacon = true
		status = c.driver.SendBeacon()
	} else {
		c.sendingBeacon = false
		status = c.driver.Resend(req.Entry.Frame)
	}
	if status < 0 {
		c.handleRadioEvent(radio.EventTXMediumBusy)
	}
}

// giveUpRetry unwinds radioBusy/sendingBeacon and posts whatever follow-up
// message applies when a deferred retransmit is abandoned outright.
func (c *Core) giveUpRetry(wasBeacon bool) {
	c.radioBusy = false
	c.retryRexmit = false
	metrics.RetryExhausted.Inc()
	if wasBeacon {
		c.sendingBeacon = false
		c.cancelTimer()
		c.state = StateSleep
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
		return
	}
	c.mbox.Post(mailbox.Message{Kind: mailbox.KindRemoveQueue})
}

// transmitBeacon launches a beacon transmit. Callers must have already
// confirmed isSafeToTransmit().
func (c *Core) transmitBeacon() {
	c.radioBusy = true
	c.sendingBeacon = true
	c.retryRexmit = false
	status := c.driver.SendBeacon()
	if status < 0 {
		// Driver negative return folds into the normal retry path, per
		// spec.md §7.
		c.handleRadioEvent(radio.EventTXMediumBusy)
	}
}

// transmitHead launches a transmit of the queue head. Callers must have
// already confirmed isSafeToTransmit() and a non-empty queue.
func (c *Core) transmitHead() {
	entry, ok := c.queue.Head()
	if !ok {
		return
	}
	c.radioBusy = true
	c.sendingBeacon = false
	var status int32
	if c.retryRexmit {
		status = c.driver.Resend(entry.Frame)
	} else {
		status = c.driver.Send(entry.Frame, false)
	}
	if status < 0 {
		c.handleRadioEvent(radio.EventTXMediumBusy)
	}
}

// handleRadioEvent dispatches a completion/notification event reported
// through the downward ABI, including EventRXPending, which travels through
// the mailbox like every other event but only ever sets additionalWakeup —
// no transition of its own, per spec.md §4.E.
func (c *Core) handleRadioEvent(evt radio.Event) {
	switch evt {
	case radio.EventRXPending:
		c.additionalWakeup = true
	case radio.EventISR:
		c.driver.ISR()
		c.irqPending.Store(false)
		if c.beaconPending && c.isSafeToTransmit() {
			c.beaconPending = false
			c.transmitBeacon()
		}
		// Every ISR drain is followed by an opportunistic queue check, per
		// spec.md §9's supplemented post-ISR drain behavior.
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindCheckQueue})
	case radio.EventRXComplete:
		c.onRXComplete()
	case radio.EventTXComplete:
		c.onTXComplete(false)
	case radio.EventTXCompletePending:
		c.onTXComplete(true)
	case radio.EventTXMediumBusy:
		c.onTXFailure(true)
	case radio.EventTXNoAck:
		c.onTXFailure(false)
	default:
		logger.Warnf("dutymac: unexpected radio event %v", evt)
	}
}

// onRXComplete handles a completed reception: cancel the duty timer,
// deliver the frame upward, then pick LISTEN/SLEEP/TX_DATA per the
// RX_COMPLETE row of the transition table.
func (c *Core) onRXComplete() {
	c.cancelTimer()
	if f := c.driver.RecvFrame(); f != nil {
		c.upper.Deliver(f)
		metrics.WakeCycles.WithLabelValues("true").Inc()
	}

	if c.additionalWakeup {
		c.additionalWakeup = false
		c.state = StateListen
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
		return
	}
	if c.queue.Empty() {
		c.state = StateSleep
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
		return
	}
	c.state = StateTXData
	c.armTimer(c.governor.Current())
	c.mbox.Post(mailbox.Message{Kind: mailbox.KindCheckQueue})
}

// onTXComplete handles TX_COMPLETE (pending=false) and
// TX_COMPLETE_PENDING (pending=true).
func (c *Core) onTXComplete(pending bool) {
	c.radioBusy = false
	c.retryRexmit = false
	c.csma.OnSuccess()

	if c.sendingBeacon {
		c.sendingBeacon = false
		c.cancelTimer()
		if pending {
			c.governor.Reset()
			c.state = StateListen
			metrics.WakeCycles.WithLabelValues("true").Inc()
		} else {
			c.governor.Backoff()
			c.state = StateSleep
			metrics.WakeCycles.WithLabelValues("false").Inc()
		}
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
		return
	}

	switch c.state {
	case StateTXData, StateTXDataBeforeBeacon:
		logger.AssertTrue(!c.queue.Empty(), "dutymac: TX_COMPLETE in %v with empty queue", c.state)
		c.governor.Reset()
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindRemoveQueue})
	case StateInit:
		// Governor untouched: a frame sent immediately out of INIT is not
		// part of the wake-cycle accounting the governor exists for.
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindRemoveQueue})
	default:
		// Flagged ambiguity, spec.md §9: TX_COMPLETE with a state guard
		// that doesn't match the state the transmit was launched from.
		// Decision, recorded in DESIGN.md: treat as a no-op rather than
		// an invariant violation, since it can only arise if duty_cycling
		// was enabled while a data frame was in flight (disabling lands in
		// INIT, which the case above handles).
		logger.Warnf("dutymac: TX_COMPLETE in unexpected state %v, ignoring", c.state)
	}
}

// onTXFailure handles TX_MEDIUM_BUSY (busy=true) and TX_NOACK (busy=false):
// consult the csma/retry helper, and either await the next completion (it
// wants a retry) or treat the head/beacon as lost.
func (c *Core) onTXFailure(busy bool) {
	var retry bool
	if busy {
		retry = c.csma.OnMediumBusy()
	} else {
		retry = c.csma.OnNoAck()
	}

	if retry {
		c.radioBusy = false
		c.retryRexmit = true
		if c.sendingBeacon {
			c.mbox.Post(mailbox.Message{Kind: mailbox.KindLinkRetransmit, Retransmit: &mailbox.RetransmitRequest{IsBeacon: true, IsRexmit: true}})
			return
		}
		entry, ok := c.queue.Head()
		if !ok {
			return
		}
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindLinkRetransmit, Retransmit: &mailbox.RetransmitRequest{Entry: entry, IsRexmit: true}})
		return
	}

	// Retry budget exhausted.
	c.radioBusy = false
	c.retryRexmit = false
	if c.sendingBeacon {
		c.sendingBeacon = false
		c.cancelTimer()
		c.state = StateSleep
		c.mbox.Post(mailbox.Message{Kind: mailbox.KindDutyEvent})
		return
	}
	metrics.RetryExhausted.Inc()
	c.mbox.Post(mailbox.Message{Kind: mailbox.KindRemoveQueue})
}
