/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	shadowpay "github.com/Radrdotfun/radr-http-434-private-payment-proof"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
)

// ShadowPay is the CLI application around the root Cobra command.
type ShadowPay struct {
	cmd *cobra.Command
}

// shadowpayInstance holds what commands need at runtime. The gate itself is
// built lazily since migrate and config never need one.
type shadowpayInstance struct {
	configFile string
	cnf        *config.Configuration
	sp         *shadowpay.ShadowPay
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration before any command runs.
func preRun(app *shadowpayInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(app.configFile); err != nil {
			log.Fatal("error loading config ", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

// gate builds the ShadowPay instance on first use.
func (app *shadowpayInstance) gate() (*shadowpay.ShadowPay, error) {
	if app.sp != nil {
		return app.sp, nil
	}
	sp, err := shadowpay.NewShadowPay(app.cnf)
	if err != nil {
		return nil, fmt.Errorf("error creating shadowpay: %w", err)
	}
	app.sp = sp
	return sp, nil
}

func NewCLI() *ShadowPay {
	app := &shadowpayInstance{}

	var rootCmd = &cobra.Command{
		Use:   "shadowpay",
		Short: "HTTP 434 private payment proof gate",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "./shadowpay.json", "Configuration file for the gate")
	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &ShadowPay{cmd: rootCmd}
}

func (s ShadowPay) executeCLI() {
	if err := s.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
