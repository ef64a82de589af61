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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafmac/dutymac/config"
	"github.com/leafmac/dutymac/frame"
	"github.com/leafmac/dutymac/mailbox"
	"github.com/leafmac/dutymac/radio"
	"github.com/leafmac/dutymac/radiosim"
	"github.com/leafmac/dutymac/txqueue"
)

// recordingUpper is a stand-in UpperLayer that remembers every delivered
// frame in arrival order.
type recordingUpper struct {
	received []*frame.Frame
}

func (u *recordingUpper) Deliver(f *frame.Frame) {
	u.received = append(u.received, f)
}

func testConfig() config.Config {
	return config.Config{
		IntervalMin:        100 * time.Millisecond,
		IntervalMax:        1600 * time.Millisecond,
		WakeupInterval:     200 * time.Millisecond,
		QueueCapacity:      4,
		MailboxDepth:       64,
		MaxCSMARetries:     2,
		MaxFrameRetries:    2,
		ShortAddressLength: 2,
	}
}

func newTestCore(t *testing.T) (*Core, *radiosim.Driver, *radiosim.Pool, *recordingUpper) {
	driver := radiosim.New()
	pool := radiosim.NewPool(32)
	upper := &recordingUpper{}
	c, err := New(testConfig(), driver, nil, pool, upper)
	require.NoError(t, err)
	return c, driver, pool, upper
}

// drain dispatches every message currently sitting in the mailbox, including
// ones a handler posts while being dispatched, the same total order Run
// would give them — but on the calling goroutine, so scenario tests stay
// deterministic and never depend on a real timer actually firing.
func drain(c *Core) {
	for {
		select {
		case msg := <-c.mbox.Chan():
			c.dispatch(msg)
		default:
			return
		}
	}
}

func enableDutyCycling(c *Core) {
	req := &mailbox.SetRequest{Opt: radio.OptDutyCycling, Value: []byte{1}, Reply: make(chan int32, 1)}
	c.handleNetSet(req)
	<-req.Reply
	drain(c)
}

func disableDutyCycling(c *Core) {
	req := &mailbox.SetRequest{Opt: radio.OptDutyCycling, Value: []byte{0}, Reply: make(chan int32, 1)}
	c.handleNetSet(req)
	<-req.Reply
	drain(c)
}

func testSend(c *Core, entry txqueue.Entry) error {
	req := &mailbox.SendRequest{Entry: entry, Reply: make(chan error, 1)}
	c.handleNetSend(req)
	err := <-req.Reply
	drain(c)
	return err
}

// fireTimer simulates the duty-cycle timer firing for the generation armed
// right now, the same way postTimerFired would from the real timer's
// goroutine, then drains every follow-on message it triggers.
func fireTimer(c *Core) {
	c.handleTimerFired(c.timerGen)
	drain(c)
}

func TestScenario_ColdStartIdleBeaconCycle(t *testing.T) {
	c, driver, _, _ := newTestCore(t)
	enableDutyCycling(c)
	assert.Equal(t, StateSleep, c.state)
	assert.Equal(t, uint8(0), c.governor.Shift())

	fireTimer(c)

	assert.Equal(t, StateSleep, c.state, "an unanswered beacon returns straight to sleep")
	assert.Equal(t, uint8(1), c.governor.Shift(), "backoff doubles the sleep interval after an idle beacon")
	_, _, beacons, _ := driver.Counts()
	assert.Equal(t, 1, beacons)
	st, _ := driver.GetState()
	assert.Equal(t, radio.StateSleep, st)
}

func TestScenario_FrameQueuedBeforeFirstWake(t *testing.T) {
	c, driver, pool, _ := newTestCore(t)
	assert.Equal(t, StateInit, c.state)

	f := pool.Acquire(42, 0, []byte("hello"))
	require.NotNil(t, f)
	assert.NoError(t, testSend(c, txqueue.Entry{SenderID: 42, Frame: f}))

	assert.True(t, c.queue.Empty(), "the lone frame transmits immediately out of INIT")
	assert.Equal(t, uint8(0), c.governor.Shift(), "a send out of INIT never touches the governor")
	sends, _, _, _ := driver.Counts()
	assert.Equal(t, 1, sends)
	assert.Equal(t, 1, pool.Released())
}

func TestScenario_BeaconWithPendingDataResponse(t *testing.T) {
	c, driver, _, _ := newTestCore(t)
	enableDutyCycling(c)
	driver.QueueOutcome(radiosim.Outcome{Status: 0, Event: radio.EventTXCompletePending})

	fireTimer(c)

	assert.Equal(t, StateListen, c.state)
	assert.Equal(t, uint8(0), c.governor.Shift(), "a positive response resets the backoff instead of growing it")
	st, _ := driver.GetState()
	assert.Equal(t, radio.StateIdle, st)
}

func TestScenario_RXDuringListenWithFurtherPending(t *testing.T) {
	c, driver, pool, upper := newTestCore(t)
	enableDutyCycling(c)
	driver.QueueOutcome(radiosim.Outcome{Status: 0, Event: radio.EventTXCompletePending})
	fireTimer(c)
	require.Equal(t, StateListen, c.state)

	driver.InjectRXPending()
	drain(c)
	assert.True(t, c.additionalWakeup)

	f := pool.Acquire(7, 1, []byte("data"))
	require.NotNil(t, f)
	driver.InjectRXComplete(f)
	drain(c)

	assert.Equal(t, StateListen, c.state, "the further-pending bit keeps the node listening")
	assert.False(t, c.additionalWakeup, "the flag is consumed by the transition it causes")
	require.Len(t, upper.received, 1)
	assert.Equal(t, uint32(7), upper.received[0].SenderID)
	st, _ := driver.GetState()
	assert.Equal(t, radio.StateIdle, st, "the listen window is re-extended, not torn down")
}

func TestScenario_TransmitStormQueueOverflow(t *testing.T) {
	c, driver, pool, _ := newTestCore(t)
	enableDutyCycling(c)
	driver.QueueOutcome(radiosim.Outcome{Status: 0, Event: radio.EventTXCompletePending})
	fireTimer(c)
	require.Equal(t, StateListen, c.state)

	for i := 0; i < 4; i++ {
		f := pool.Acquire(uint32(i+1), 0, []byte{byte(i)})
		require.NotNil(t, f)
		assert.NoError(t, testSend(c, txqueue.Entry{SenderID: uint32(i + 1), Frame: f}))
	}

	fifth := pool.Acquire(5, 0, []byte("overflow"))
	require.NotNil(t, fifth)
	err := testSend(c, txqueue.Entry{SenderID: 5, Frame: fifth})
	assert.ErrorIs(t, err, txqueue.ErrFull, "a queue at capacity 4 must drop the 5th frame")
	pool.Release(fifth) // the rejected frame was never handed to the queue, so it is ours to give back.

	fireTimer(c)

	assert.Equal(t, StateSleep, c.state, "TX_DATA draining to empty returns to SLEEP")
	assert.True(t, c.queue.Empty())
	assert.Equal(t, uint8(0), c.governor.Shift(), "every successful transmit resets the governor")
	sends, _, _, _ := driver.Counts()
	assert.Equal(t, 4, sends, "exactly the four accepted frames were transmitted, in order")
	assert.Equal(t, 5, pool.Released())
}

func TestScenario_RetryExhaustionMidDrain(t *testing.T) {
	c, driver, pool, _ := newTestCore(t)
	c.state = StateTXData
	c.governor.Backoff() // shift=1, so we can observe it is left untouched below.

	f := pool.Acquire(9, 0, []byte("payload"))
	require.NotNil(t, f)
	require.NoError(t, c.queue.Enqueue(txqueue.Entry{SenderID: 9, Frame: f}))

	driver.QueueOutcome(radiosim.Outcome{Status: 0, Event: radio.EventTXNoAck})
	driver.QueueOutcome(radiosim.Outcome{Status: 0, Event: radio.EventTXNoAck})

	c.transmitHead()
	drain(c)

	assert.Equal(t, StateSleep, c.state, "TX_DATA draining to empty after exhaustion still returns to SLEEP")
	assert.True(t, c.queue.Empty())
	assert.Equal(t, uint8(1), c.governor.Shift(), "a frame lost to retry exhaustion must not reset the governor")
	assert.Equal(t, 1, pool.Released())
}

func TestIsSafeToTransmit(t *testing.T) {
	c, driver, _, _ := newTestCore(t)
	assert.True(t, c.isSafeToTransmit())

	c.radioBusy = true
	assert.False(t, c.isSafeToTransmit())
	c.radioBusy = false

	c.irqPending.Store(true)
	assert.False(t, c.isSafeToTransmit())
	c.irqPending.Store(false)

	driver.SetState(radio.StateRx)
	assert.False(t, c.isSafeToTransmit(), "a radio mid-reception is never safe to transmit into")
	driver.SetState(radio.StateSleep)
	assert.True(t, c.isSafeToTransmit())
}

func TestBeaconDeferredWhileRadioBusyThenSentOnISR(t *testing.T) {
	c, driver, _, _ := newTestCore(t)
	c.state = StateTXBeacon
	c.radioBusy = true

	c.handleDutyEvent()
	assert.True(t, c.beaconPending, "a beacon due while the radio is busy must wait, not transmit")
	_, _, beacons, _ := driver.Counts()
	assert.Equal(t, 0, beacons)

	c.radioBusy = false
	driver.InjectISR()
	drain(c)

	assert.False(t, c.beaconPending)
	_, _, beacons, isrs := driver.Counts()
	assert.Equal(t, 1, beacons, "the deferred beacon fires once the ISR drains")
	assert.Equal(t, 1, isrs)
}

func TestDutyCyclingToggleRoundTrip(t *testing.T) {
	c, _, _, _ := newTestCore(t)
	enableDutyCycling(c)
	c.governor.Backoff()
	c.governor.Backoff()
	require.Equal(t, uint8(2), c.governor.Shift())

	disableDutyCycling(c)
	assert.Equal(t, StateInit, c.state)
	assert.False(t, c.dutyEnabled)

	enableDutyCycling(c)
	assert.Equal(t, StateSleep, c.state)
	assert.Equal(t, uint8(0), c.governor.Shift(), "re-enabling must start the backoff over from the minimum interval")
}

func TestCheckQueueOnEmptyQueueIsANoOp(t *testing.T) {
	c, driver, _, _ := newTestCore(t)
	c.state = StateTXData
	assert.True(t, c.queue.Empty())

	c.handleCheckQueue()
	c.handleCheckQueue()

	sends, resends, beacons, _ := driver.Counts()
	assert.Equal(t, 0, sends)
	assert.Equal(t, 0, resends)
	assert.Equal(t, 0, beacons)
	assert.Equal(t, StateTXData, c.state, "CHECK_QUEUE on an empty queue never transitions state")
}
