// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ttbt-io/jihao-smoke/smoke"
)

var (
	baseURL            = flag.String("base-url", smoke.DefaultBaseURL, "Origin of the game under test")
	outputDir          = flag.String("output-dir", smoke.DefaultOutputDir, "Directory to save screenshots")
	driver             = flag.String("driver", smoke.DriverChromedp, "Browser driver: chromedp or playwright")
	chromeURL          = flag.String("chrome-url", "", "The url of the remote debugging port. Empty launches a local browser")
	headless           = flag.Bool("headless", true, "Run the local browser headless")
	maxRounds          = flag.Int("max-rounds", smoke.DefaultMaxRounds, "Maximum play loop rounds")
	contractFile       = flag.String("contract", "", "YAML file overriding UI selectors and labels")
	noAnimations       = flag.Bool("no-animations", false, "Disable CSS transitions and animations on every page")
	failOnConsoleError = flag.Bool("fail-on-console-error", false, "Fail when the page logs JS errors")
	debugMode          = flag.Bool("debug", false, "Dump page HTML and a screenshot when a phase fails")
)

// main runs the smoke phases once and exits non-zero on the first failure.
func main() {
	flag.Parse()

	opts := smoke.DefaultOptions()
	opts.BaseURL = *baseURL
	opts.OutputDir = *outputDir
	opts.Driver = *driver
	opts.ChromeURL = *chromeURL
	opts.Headless = *headless
	opts.MaxRounds = *maxRounds
	opts.DisableAnimations = *noAnimations
	opts.FailOnConsoleError = *failOnConsoleError
	opts.Debug = *debugMode
	if *contractFile != "" {
		c, err := smoke.LoadContract(*contractFile)
		if err != nil {
			log.Fatalf("Failed to load contract: %v", err)
		}
		opts.Contract = c
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	report, err := run(ctx, opts)
	stop()
	if err != nil {
		log.Fatalf("Smoke run failed: %v", err)
	}

	banner := strings.Repeat("=", 50)
	fmt.Println()
	fmt.Println(banner)
	fmt.Printf("✅ All E2E tests completed successfully! (%d choices, %d screenshots)\n", report.Choices, len(report.Screenshots))
	fmt.Println(banner)
}

// run owns the browser so that it is closed on every path out of the run.
func run(ctx context.Context, opts smoke.Options) (*smoke.Report, error) {
	b, err := smoke.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Printf("Closing browser: %v", err)
		}
	}()
	return smoke.Run(ctx, b, opts)
}
