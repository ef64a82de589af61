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

// Package metrics exposes the duty-cycling core's behavior as Prometheus
// counters and gauges, for the rare deployment that runs the core inside a
// process with a metrics endpoint (the demo CLI wires this in; an
// embedding application is free to ignore it).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WakeCycles counts duty-cycle outcomes: productive="true" for each
	// beacon answered with pending data and each received frame,
	// productive="false" for each beacon that went unanswered. Data
	// transmits are not counted here.
	WakeCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dutymac_wake_cycles_total",
		Help: "Number of duty-cycle wake-ups, by productivity outcome.",
	}, []string{"productive"})

	// QueueDepth reports the transmit queue's current occupancy.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dutymac_queue_depth",
		Help: "Current number of frames waiting in the transmit queue.",
	})

	// QueueDropped counts frames dropped on enqueue due to a full queue.
	QueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutymac_queue_dropped_total",
		Help: "Number of frames dropped because the transmit queue was full.",
	})

	// RetryExhausted counts frames dropped after the csma/retry helper
	// gave up on them (TX_NOACK or TX_MEDIUM_BUSY past budget).
	RetryExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutymac_retry_exhausted_total",
		Help: "Number of frames dropped after the retry budget was exhausted.",
	})

	// BeaconsDeferred counts beacons that had to wait for beacon_pending
	// because the radio was momentarily unavailable.
	BeaconsDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutymac_beacons_deferred_total",
		Help: "Number of beacons deferred via beacon_pending before eventually sending.",
	})

	// MailboxDropped mirrors mailbox.Mailbox.Dropped for scraping.
	MailboxDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutymac_mailbox_dropped_total",
		Help: "Number of messages lost because the mailbox was full.",
	})

	// AssertionFailures counts blown invariants the logger package turns
	// into a Panicf. On battery hardware a crash loses the radio's power
	// state, so an operator scraping this endpoint wants to know that
	// happened even though the process is gone by the time they look.
	AssertionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dutymac_assertion_failures_total",
		Help: "Number of invariant violations that triggered a fatal assertion.",
	})
)
