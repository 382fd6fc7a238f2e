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
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/jihao-smoke/tools/e2ehelpers"
)

// networkQuiet is how long a page must fetch nothing to count as idle.
const networkQuiet = 500 * time.Millisecond

type chromedpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
}

func newChromedpBrowser(ctx context.Context, opts Options) (*chromedpBrowser, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.ChromeURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.ChromeURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}
	bctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(log.Printf),
		chromedp.WithLogf(log.Printf),
	)
	// The first Run starts the browser.
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return &chromedpBrowser{ctx: bctx, cancel: cancel, allocCancel: allocCancel, opts: opts}, nil
}

func (b *chromedpBrowser) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tctx, cancel := chromedp.NewContext(b.ctx)
	p := &chromedpPage{ctx: tctx, cancel: cancel, opts: b.opts}
	chromedp.ListenTarget(tctx, p.onEvent)
	if err := chromedp.Run(tctx, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height))); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return p, nil
}

func (b *chromedpBrowser) Close() error {
	b.cancel()
	b.allocCancel()
	return nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	mu     sync.Mutex
	errors []string
}

func (p *chromedpPage) onEvent(ev any) {
	var msg string
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeError {
			return
		}
		args := make([]string, len(ev.Args))
		for i, arg := range ev.Args {
			if len(arg.Value) > 0 {
				args[i] = string(arg.Value)
			} else {
				args[i] = arg.Description
			}
		}
		msg = strings.Join(args, " ")
	case *runtime.EventExceptionThrown:
		msg = ev.ExceptionDetails.Text
		if ex := ev.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
			msg += " " + ex.Description
		}
	default:
		return
	}
	p.mu.Lock()
	p.errors = append(p.errors, msg)
	p.mu.Unlock()
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var (
		rctx   context.Context
		cancel context.CancelFunc
	)
	if d, ok := ctx.Deadline(); ok {
		rctx, cancel = context.WithDeadline(p.ctx, d)
	} else {
		rctx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

func (p *chromedpPage) Goto(ctx context.Context, url string) error {
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if p.opts.DisableAnimations {
		actions = append(actions, e2ehelpers.DisableCSSAnimations())
	}
	return p.run(ctx, actions...)
}

func (p *chromedpPage) WaitNetworkIdle(ctx context.Context) error {
	if err := p.run(ctx, e2ehelpers.WaitNetworkIdle(networkQuiet)); err != nil {
		return err
	}
	if p.opts.DisableAnimations {
		return p.run(ctx, e2ehelpers.DisableCSSAnimations())
	}
	return nil
}

func (p *chromedpPage) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, chromedp.Location(&u))
	return u, err
}

func (p *chromedpPage) Count(ctx context.Context, l Locator) (int, error) {
	var n int
	err := p.run(ctx, e2ehelpers.CountMatches(l.CSS, l.Text, l.Visible, &n))
	return n, err
}

func (p *chromedpPage) Visible(ctx context.Context, l Locator) (bool, error) {
	var ok bool
	err := p.run(ctx, e2ehelpers.AnyVisible(l.CSS, l.Text, l.Visible, &ok))
	return ok, err
}

func (p *chromedpPage) WaitVisible(ctx context.Context, l Locator, timeout time.Duration) (bool, error) {
	var ok bool
	err := p.run(ctx, e2ehelpers.WaitVisible(l.CSS, l.Text, timeout, &ok))
	return ok, err
}

func (p *chromedpPage) Text(ctx context.Context, l Locator) (string, error) {
	var s string
	err := p.run(ctx, e2ehelpers.FirstText(l.CSS, l.Text, l.Visible, &s))
	return s, err
}

func (p *chromedpPage) Texts(ctx context.Context, l Locator) ([]string, error) {
	var texts []string
	err := p.run(ctx, e2ehelpers.AllTexts(l.CSS, l.Text, l.Visible, &texts))
	return texts, err
}

func (p *chromedpPage) Click(ctx context.Context, l Locator) error {
	return p.ClickNth(ctx, l, 0)
}

func (p *chromedpPage) ClickNth(ctx context.Context, l Locator, i int) error {
	return p.run(ctx, e2ehelpers.ClickMatch(l.CSS, l.Text, l.Visible, i))
}

func (p *chromedpPage) Screenshot(ctx context.Context, path string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return e2ehelpers.CaptureScreenshot(ctx, path)
	}))
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	var s string
	err := p.run(ctx, chromedp.OuterHTML("html", &s, chromedp.ByQuery))
	return s, err
}

func (p *chromedpPage) ConsoleErrors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.errors
	p.errors = nil
	return errs
}

// Close closes the tab.
func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}
