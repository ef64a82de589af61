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

// This file implements the upward message API (SND/SET/GET) spec.md §6
// names, plus the configuration surface of spec.md §4.G. Each public
// method posts a mailbox message and blocks on a reply channel, so the
// caller's goroutine never touches Core state directly — only the worker
// goroutine running Run does.
package dutymac

import (
	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/mailbox"
	"github.com/leafmac/dutymac/metrics"
	"github.com/leafmac/dutymac/radio"
	"github.com/leafmac/dutymac/txqueue"
)

// Send is the upward SND API: it enqueues entry and blocks until the
// worker has accepted or dropped it. Returns txqueue.ErrFull if the queue
// was already at capacity; the caller must treat this as an observable
// frame drop, not a retryable error.
func (c *Core) Send(entry txqueue.Entry) error {
	reply := make(chan error, 1)
	c.mbox.Post(mailbox.Message{Kind: mailbox.KindNetSend, SendReq: &mailbox.SendRequest{Entry: entry, Reply: reply}})
	return <-reply
}

// Set is the upward SET API: it forwards opt/value to the worker, which
// either special-cases it (OptDutyCycling) or passes it through to the
// driver, and returns the driver's status.
func (c *Core) Set(opt radio.Option, value []byte) int32 {
	reply := make(chan int32, 1)
	c.mbox.Post(mailbox.Message{Kind: mailbox.KindNetSet, SetReq: &mailbox.SetRequest{Opt: opt, Value: value, Reply: reply}})
	return <-reply
}

// Get is the upward GET API, mirroring Set.
func (c *Core) Get(opt radio.Option, buf []byte) (int, int32) {
	reply := make(chan mailbox.GetReply, 1)
	c.mbox.Post(mailbox.Message{Kind: mailbox.KindNetGet, GetReq: &mailbox.GetRequest{Opt: opt, Buf: buf, Reply: reply}})
	r := <-reply
	return r.N, r.Status
}

// handleNetSend implements the "SND" row of the transition table.
func (c *Core) handleNetSend(req *mailbox.SendRequest) {
	if err := c.queue.Enqueue(req.Entry); err != nil {
		metrics.QueueDropped.Inc()
		req.Reply <- err
		return
	}
	metrics.QueueDepth.Set(float64(c.queue.Len()))
	req.Reply <- nil

	switch c.state {
	case StateInit:
		if c.isSafeToTransmit() {
			c.transmitHead()
		}
	case StateSleep:
		if c.isSafeToTransmit() {
			c.cancelTimer()
			c.state = StateTXData
			c.armTimer(c.governor.Current())
			c.transmitHead()
		}
	default:
		// "SND | any other | (no transition) | enqueue only": the frame
		// waits for the state machine to reach it via CHECK_QUEUE/EVENT.
	}
}

// handleNetSet implements the "SET" half of spec.md §4.G.
func (c *Core) handleNetSet(req *mailbox.SetRequest) {
	if req.Opt == radio.OptDutyCycling {
		enable := len(req.Value) > 0 && req.Value[0] != 0
		c.setDutyCycling(enable)
		req.Reply <- 0
		return
	}
	req.Reply <- c.driver.SetOption(req.Opt, req.Value)
}

// handleNetGet implements the "GET" half of spec.md §4.G.
func (c *Core) handleNetGet(req *mailbox.GetRequest) {
	if req.Opt == radio.OptDutyCycling {
		v := byte(0)
		if c.dutyEnabled {
			v = 1
		}
		n := copy(req.Buf, []byte{v})
		req.Reply <- mailbox.GetReply{N: n, Status: 0}
		return
	}
	n, status := c.driver.GetOption(req.Opt, req.Buf)
	req.Reply <- mailbox.GetReply{N: n, Status: status}
}

// setDutyCycling implements the two rows of spec.md §4.G's configuration
// surface: enabling transitions INIT→SLEEP with a randomized first sleep
// and forces short-address mode; disabling returns to INIT, sets the
// radio to SLEEP, and makes the core inert past that point. Short-address
// mode is reapplied on every enable (not just the first one), per the
// original's behavior documented in SPEC_FULL.md; disabling leaves the
// source address length as it is.
func (c *Core) setDutyCycling(enable bool) {
	c.dutyEnabled = enable

	if !enable {
		c.cancelTimer()
		c.driver.SetState(radio.StateSleep)
		c.state = StateInit
		c.radioBusy = false
		c.irqPending.Store(false)
		c.beaconPending = false
		c.additionalWakeup = false
		c.sendingBeacon = false
		c.retryRexmit = false
		logger.Debugf("dutymac: duty cycling disabled, core inert")
		return
	}

	addrLen := byte(c.cfg.ShortAddressLength)
	if status := c.driver.SetOption(radio.OptSourceAddressLength, []byte{addrLen}); status < 0 {
		logger.Warnf("dutymac: SetOption(source_address_length) failed with status %d", status)
	}
	c.driver.SetState(radio.StateSleep)
	c.governor.Reset()
	c.state = StateSleep
	c.radioBusy = false
	c.irqPending.Store(false)
	c.beaconPending = false
	c.additionalWakeup = false
	c.sendingBeacon = false
	c.retryRexmit = false
	c.armTimer(c.governor.RandomFirstSleep())
	logger.Debugf("dutymac: duty cycling enabled, armed first sleep")
}
