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

package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leafmac/dutymac/config"
	"github.com/leafmac/dutymac/dutymac"
	"github.com/leafmac/dutymac/frame"
	"github.com/leafmac/dutymac/logger"
	"github.com/leafmac/dutymac/progctx"
	"github.com/leafmac/dutymac/radio"
	"github.com/leafmac/dutymac/radiosim"
	"github.com/leafmac/dutymac/txqueue"
)

// loggingUpper is the demo's UpperLayer: it has nowhere real to deliver an
// inbound frame to, so it logs it.
type loggingUpper struct{}

func (loggingUpper) Deliver(f *frame.Frame) {
	logger.Infof("dutymac-demo: delivered frame from sender %d, %d bytes", f.SenderID, len(f.Payload))
}

func run(cmd *cobra.Command, args []string) error {
	logger.SetLevel(logger.Level(viper.GetInt("log_level")))

	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	driver := radiosim.New()
	pool := radiosim.NewPool(cfg.QueueCapacity * 2)
	core, err := dutymac.New(cfg, driver, nil, pool, loggingUpper{})
	if err != nil {
		return err
	}

	ctx := progctx.New(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		ctx.Cancel(errors.Errorf("received signal %v", sig))
	}()

	metricsBind := viper.GetString("metrics_bind")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	ctx.RunServer("metrics", &http.Server{Addr: metricsBind, Handler: mux})

	ctx.RunCore(core)

	if status := core.Set(radio.OptDutyCycling, []byte{1}); status < 0 {
		logger.Fatalf("dutymac-demo: enabling duty cycling failed with status %d", status)
	}
	logger.Infof("dutymac-demo: duty cycling enabled, metrics on http://%s/metrics", metricsBind)

	sendInterval := viper.GetDuration("send_interval")
	ticker := time.NewTicker(sendInterval)
	defer ticker.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			ctx.Wait()
			return nil
		case <-ticker.C:
			seq++
			f := pool.Acquire(seq, 0, []byte("dutymac-demo synthetic payload"))
			if f == nil {
				logger.Warnf("dutymac-demo: frame pool exhausted, skipping send")
				continue
			}
			if err := core.Send(txqueue.Entry{SenderID: seq, Frame: f}); err != nil {
				logger.Warnf("dutymac-demo: send %d dropped: %v", seq, err)
				pool.Release(f)
			}
		}
	}
}
