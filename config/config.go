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

// Package config holds the build-time knobs of the duty-cycling core:
// sleep-interval bounds, the listen window, and the two fixed-capacity
// buffer sizes (transmit queue, mailbox). None of this is persisted at
// runtime; it is read once at startup, from Default or a YAML file via
// cmd/dutymac-demo's --config flag, or supplied directly by an embedding
// application.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the set of build-time knobs named in the specification.
type Config struct {
	IntervalMin    time.Duration `yaml:"interval_min"`
	IntervalMax    time.Duration `yaml:"interval_max"`
	WakeupInterval time.Duration `yaml:"wakeup_interval"`
	QueueCapacity  int           `yaml:"queue_capacity"`
	MailboxDepth   int           `yaml:"mailbox_depth"`

	MaxCSMARetries  int `yaml:"max_csma_retries"`
	MaxFrameRetries int `yaml:"max_frame_retries"`

	ShortAddressLength int `yaml:"short_address_length"`
}

// Default returns the reference design-default configuration: a queue
// capacity of 128 and the other knobs set to values satisfying Validate.
func Default() Config {
	return Config{
		IntervalMin:        125 * time.Millisecond,
		IntervalMax:        8 * time.Second,
		WakeupInterval:     250 * time.Millisecond,
		QueueCapacity:      128,
		MailboxDepth:       64,
		MaxCSMARetries:     4,
		MaxFrameRetries:    3,
		ShortAddressLength: 2,
	}
}

// Validate enforces the specification's constraint that IntervalMax is
// reachable from IntervalMin by left-shifting some k <= 31 times, and
// that the buffer sizes are usable.
func (c Config) Validate() error {
	if c.IntervalMin <= 0 {
		return errors.New("config: interval_min must be positive")
	}
	if c.IntervalMax < c.IntervalMin {
		return errors.New("config: interval_max must be >= interval_min")
	}
	ok := false
	v := c.IntervalMin
	for k := 0; k <= 31; k++ {
		if v == c.IntervalMax {
			ok = true
			break
		}
		next := v << 1
		if next < v {
			break // overflow
		}
		v = next
	}
	if !ok {
		return errors.Errorf("config: interval_max %v is not interval_min %v left-shifted by some k<=31", c.IntervalMax, c.IntervalMin)
	}
	if c.WakeupInterval <= 0 {
		return errors.New("config: wakeup_interval must be positive")
	}
	if c.QueueCapacity <= 0 {
		return errors.New("config: queue_capacity must be positive")
	}
	if c.MailboxDepth <= 0 {
		return errors.New("config: mailbox_depth must be positive")
	}
	if c.MaxCSMARetries < 1 || c.MaxFrameRetries < 1 {
		return errors.New("config: retry budgets must be at least 1")
	}
	if c.ShortAddressLength <= 0 {
		return errors.New("config: short_address_length must be positive")
	}
	return nil
}

// LoadFile reads a YAML config file, starting from Default() so omitted
// fields keep their defaults, then validates the result.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: reading %s", path)
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "config: parsing %s", path)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
