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
	"context"
	"fmt"
	"time"
)

// Browser opens tabs. Close releases the browser process or connection and
// every tab still open.
type Browser interface {
	NewPage(ctx context.Context, vp Viewport) (Page, error)
	Close() error
}

// Page is a single browser tab.
//
// Count, Visible, Text, Texts, Click and ClickNth evaluate the locator
// against the current document. Visible reports whether any match is
// rendered. Text returns the text content of the first match, or "" when
// nothing matches. Texts returns the text content of every match in document
// order, and ClickNth clicks the i-th of those matches.
type Page interface {
	Goto(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context) error
	URL(ctx context.Context) (string, error)

	Count(ctx context.Context, l Locator) (int, error)
	Visible(ctx context.Context, l Locator) (bool, error)
	// WaitVisible waits at most timeout for a match to be rendered and
	// reports whether one was.
	WaitVisible(ctx context.Context, l Locator, timeout time.Duration) (bool, error)
	Text(ctx context.Context, l Locator) (string, error)
	Texts(ctx context.Context, l Locator) ([]string, error)
	Click(ctx context.Context, l Locator) error
	ClickNth(ctx context.Context, l Locator, i int) error

	// Screenshot writes a full-page PNG to path.
	Screenshot(ctx context.Context, path string) error
	HTML(ctx context.Context) (string, error)
	// ConsoleErrors returns and clears the JS errors seen since the last call.
	ConsoleErrors() []string
	Close() error
}

// Open starts the browser selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Browser, error) {
	switch opts.Driver {
	case DriverChromedp:
		return newChromedpBrowser(ctx, opts)
	case DriverPlaywright:
		return newPlaywrightBrowser(ctx, opts)
	}
	return nil, fmt.Errorf("unknown driver %q", opts.Driver)
}

// pause waits for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
