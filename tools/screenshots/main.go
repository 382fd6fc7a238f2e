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

// screenshots runs the smoke phases against a few variants of the game
// fixture and keeps one directory of screenshots per variant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ttbt-io/jihao-smoke/gamefixture"
	"github.com/ttbt-io/jihao-smoke/smoke"
)

var (
	chromeURL  = flag.String("chrome-url", "", "The url of the remote debugging port")
	outputDir  = flag.String("output-dir", "/screenshots", "Directory to save screenshots")
	driver     = flag.String("driver", smoke.DriverChromedp, "Browser driver: chromedp or playwright")
	serverHost = flag.String("server-host", "localhost", "Host name under which the browser reaches the fixture")
)

type variant struct {
	name      string
	cfg       func(*gamefixture.Config)
	maxRounds int
}

var variants = []variant{
	{name: "ending", cfg: func(*gamefixture.Config) {}},
	{name: "no-ending", cfg: func(c *gamefixture.Config) { c.ChoicesToEnding = 0 }, maxRounds: 5},
	{name: "plain-buttons", cfg: func(c *gamefixture.Config) { c.PlainButtons = true }},
	{name: "tragic", cfg: func(c *gamefixture.Config) {
		c.Ending = "💀 悲剧结局：挂科"
		c.EndingKind = "negative"
		c.MinigameAfter = 0
	}},
}

func main() {
	flag.Parse()

	if *driver == smoke.DriverChromedp && *chromeURL == "" {
		log.Fatal("--chrome-url must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute) // very generous timeout
	defer cancel()

	// Ensure output dir exists
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	log.Println("Starting screenshot generation...")
	failed := 0
	for _, v := range variants {
		if err := capture(ctx, v); err != nil {
			log.Printf("Variant %s failed: %v", v.name, err)
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d variants failed", failed, len(variants))
	}
	log.Println("Screenshots generated successfully.")
}

func capture(ctx context.Context, v variant) error {
	cfg := gamefixture.DefaultConfig()
	v.cfg(&cfg)
	baseURL, stop, err := startServer(cfg)
	if err != nil {
		return err
	}
	defer stop()
	log.Printf("Variant %s served at %s", v.name, baseURL)

	opts := smoke.DefaultOptions()
	opts.BaseURL = baseURL
	opts.Driver = *driver
	opts.ChromeURL = *chromeURL
	opts.OutputDir = filepath.Join(*outputDir, v.name)
	opts.DisableAnimations = true
	opts.Debug = true
	if v.maxRounds > 0 {
		opts.MaxRounds = v.maxRounds
	}

	b, err := smoke.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer b.Close()

	report, err := smoke.Run(ctx, b, opts)
	if err != nil {
		return err
	}
	log.Printf("Variant %s: %d choices, ending %q, %d screenshots", v.name, report.Choices, report.EndingTitle, len(report.Screenshots))
	return nil
}

// startServer serves the fixture on a fresh port. Every variant gets its
// own origin and therefore its own localStorage.
func startServer(cfg gamefixture.Config) (string, func(), error) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen: %w", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())

	server := &http.Server{
		Handler:           gamefixture.Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	}()
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
	return fmt.Sprintf("http://%s:%s", *serverHost, port), stop, nil
}
