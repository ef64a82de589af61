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

// Package cmd implements the dutymac-demo CLI: it wires a dutymac.Core to
// the radiosim software radio and drives it long enough to observe the
// duty cycle, grounded on chirpstack-network-server's cobra/viper root
// command.
package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leafmac/dutymac/logger"
)

var (
	cfgFile string
	bindCmd string
)

var rootCmd = &cobra.Command{
	Use:   "dutymac-demo",
	Short: "Runs the duty-cycling MAC core against a simulated radio",
	RunE:  run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file (optional, see config.Config)")
	rootCmd.PersistentFlags().Int("log-level", int(logger.InfoLevel), "trace=6 .. off=-2, see logger.Level")
	rootCmd.PersistentFlags().Duration("send-interval", 3*time.Second, "how often the demo enqueues a synthetic frame")
	rootCmd.PersistentFlags().StringVar(&bindCmd, "metrics-bind", "127.0.0.1:9464", "address the Prometheus /metrics endpoint listens on")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("send_interval", rootCmd.PersistentFlags().Lookup("send-interval"))
	_ = viper.BindPFlag("metrics_bind", rootCmd.PersistentFlags().Lookup("metrics-bind"))
}

func initConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatalf("dutymac-demo: reading config %s: %v", cfgFile, err)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("dutymac-demo: %v", err)
	}
}
