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

// fakegame serves the game fixture so the smoke runner can be tried without
// the real game.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttbt-io/jihao-smoke/gamefixture"
)

var (
	addr            = flag.String("addr", ":3000", "The TCP address to listen to")
	choicesToEnding = flag.Int("choices-to-ending", 5, "Choices before the ending modal opens; 0 never ends")
	minigameAfter   = flag.Int("minigame-after", 2, "Choices before the minigame opens; 0 disables it")
	plainButtons    = flag.Bool("plain-buttons", false, "Render choices as plain buttons")
)

func main() {
	flag.Parse()

	cfg := gamefixture.DefaultConfig()
	cfg.ChoicesToEnding = *choicesToEnding
	cfg.MinigameAfter = *minigameAfter
	cfg.PlainButtons = *plainButtons

	server := &http.Server{
		Addr:              *addr,
		Handler:           gamefixture.Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Serving game fixture on %s", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	} else {
		log.Println("Gracefully stopped.")
	}
}
