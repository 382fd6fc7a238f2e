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

package smoke

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "http://localhost:3000"
	DefaultOutputDir = "test_screenshots"

	DefaultNavigationTimeout = 60 * time.Second
	DefaultIdleTimeout       = 30 * time.Second
	DefaultActionTimeout     = 30 * time.Second

	DefaultMaxRounds      = 20
	DefaultMinigameClicks = 10

	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Viewport is the size of a browser tab in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

var (
	DesktopViewport = Viewport{Width: 1280, Height: 800}
	MobileViewport  = Viewport{Width: 375, Height: 667}
)

// Options controls a smoke run. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	BaseURL   string
	OutputDir string
	Driver    string

	// ChromeURL is the remote debugging URL of an already running browser.
	// When empty, a local browser is launched.
	ChromeURL string
	Headless  bool

	NavigationTimeout time.Duration
	IdleTimeout       time.Duration
	ActionTimeout     time.Duration // one click, query or screenshot

	MaxRounds      int
	MinigameClicks int
	RoundPause     time.Duration
	MinigamePause  time.Duration
	StartPause     time.Duration
	SettlePause    time.Duration
	CollectionWait time.Duration

	Contract Contract

	// DisableAnimations injects a stylesheet that zeroes CSS transitions
	// after every page load.
	DisableAnimations  bool
	FailOnConsoleError bool
	Debug              bool
}

// DefaultOptions returns the options of a no-argument invocation.
func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		OutputDir:         DefaultOutputDir,
		Driver:            DriverChromedp,
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ActionTimeout:     DefaultActionTimeout,
		MaxRounds:         DefaultMaxRounds,
		MinigameClicks:    DefaultMinigameClicks,
		RoundPause:        500 * time.Millisecond,
		MinigamePause:     300 * time.Millisecond,
		StartPause:        2 * time.Second,
		SettlePause:       time.Second,
		CollectionWait:    500 * time.Millisecond,
		Contract:          DefaultContract(),
	}
}

// Validate reports the first problem with o.
func (o Options) Validate() error {
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", o.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid base url %q: want http(s)://host[:port]", o.BaseURL)
	}
	if o.OutputDir == "" {
		return fmt.Errorf("output dir must be set")
	}
	switch o.Driver {
	case DriverChromedp, DriverPlaywright:
	default:
		return fmt.Errorf("unknown driver %q", o.Driver)
	}
	if o.MaxRounds <= 0 {
		return fmt.Errorf("max rounds must be positive, got %d", o.MaxRounds)
	}
	if o.MinigameClicks <= 0 {
		return fmt.Errorf("minigame clicks must be positive, got %d", o.MinigameClicks)
	}
	if o.NavigationTimeout <= 0 || o.IdleTimeout <= 0 || o.ActionTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return o.Contract.Validate()
}

// HomeURL returns the homepage URL without a trailing slash.
func (o Options) HomeURL() string {
	return strings.TrimRight(o.BaseURL, "/")
}

// onGamePage reports whether the path of the page URL raw is the game route
// under the base URL's path, or below it. The host is never considered.
func (o Options) onGamePage(raw string) (bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("invalid page url %q: %w", raw, err)
	}
	base, err := url.Parse(o.BaseURL)
	if err != nil {
		return false, fmt.Errorf("invalid base url %q: %w", o.BaseURL, err)
	}
	game := strings.TrimRight(base.Path, "/") + strings.TrimRight(o.Contract.GamePath, "/")
	return u.Path == game || strings.HasPrefix(u.Path, game+"/"), nil
}
