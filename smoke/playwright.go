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
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/ttbt-io/jihao-smoke/tools/e2ehelpers"
)

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

func newPlaywrightBrowser(ctx context.Context, opts Options) (*playwrightBrowser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var browser playwright.Browser
	if opts.ChromeURL != "" {
		browser, err = pw.Chromium.ConnectOverCDP(opts.ChromeURL)
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
	}
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{pw: pw, browser: browser, opts: opts}, nil
}

func (b *playwrightBrowser) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := b.browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: vp.Width, Height: vp.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	p := &playwrightPage{page: page, opts: b.opts}
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		if msg.Type() == "error" {
			p.addError(msg.Text())
		}
	})
	page.OnPageError(func(err error) {
		p.addError(err.Error())
	})
	return p, nil
}

func (b *playwrightBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type playwrightPage struct {
	page playwright.Page
	opts Options

	mu     sync.Mutex
	errors []string
}

func (p *playwrightPage) addError(msg string) {
	p.mu.Lock()
	p.errors = append(p.errors, msg)
	p.mu.Unlock()
}

// timeout converts ctx's deadline to Playwright milliseconds. It fails when
// ctx is already done, since Playwright calls cannot be interrupted.
func timeout(ctx context.Context) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, ok := ctx.Deadline()
	if !ok {
		return nil, nil
	}
	ms := float64(time.Until(d).Milliseconds())
	if ms < 1 {
		return nil, context.DeadlineExceeded
	}
	return playwright.Float(ms), nil
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	t, err := timeout(ctx)
	if err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{Timeout: t}); err != nil {
		return err
	}
	return p.disableAnimations()
}

func (p *playwrightPage) WaitNetworkIdle(ctx context.Context) error {
	t, err := timeout(ctx)
	if err != nil {
		return err
	}
	if err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: t,
	}); err != nil {
		return err
	}
	return p.disableAnimations()
}

func (p *playwrightPage) disableAnimations() error {
	if !p.opts.DisableAnimations {
		return nil
	}
	_, err := p.page.AddStyleTag(playwright.PageAddStyleTagOptions{
		Content: playwright.String(e2ehelpers.AnimationsOffCSS),
	})
	return err
}

func (p *playwrightPage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.URL(), nil
}

func (p *playwrightPage) Count(ctx context.Context, l Locator) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.page.Locator(l.String()).Count()
}

func (p *playwrightPage) Visible(ctx context.Context, l Locator) (bool, error) {
	l.Visible = true
	n, err := p.Count(ctx, l)
	return n > 0, err
}

func (p *playwrightPage) WaitVisible(ctx context.Context, l Locator, wait time.Duration) (bool, error) {
	t, err := timeout(ctx)
	if err != nil {
		return false, err
	}
	if t == nil || *t > float64(wait.Milliseconds()) {
		t = playwright.Float(float64(wait.Milliseconds()))
	}
	err = p.page.Locator(l.String()).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: t,
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return false, ctx.Err()
	}
	return err == nil, err
}

func (p *playwrightPage) Text(ctx context.Context, l Locator) (string, error) {
	n, err := p.Count(ctx, l)
	if err != nil || n == 0 {
		return "", err
	}
	t, err := timeout(ctx)
	if err != nil {
		return "", err
	}
	return p.page.Locator(l.String()).First().TextContent(playwright.LocatorTextContentOptions{Timeout: t})
}

func (p *playwrightPage) Texts(ctx context.Context, l Locator) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Locator(l.String()).AllTextContents()
}

func (p *playwrightPage) Click(ctx context.Context, l Locator) error {
	return p.ClickNth(ctx, l, 0)
}

func (p *playwrightPage) ClickNth(ctx context.Context, l Locator, i int) error {
	t, err := timeout(ctx)
	if err != nil {
		return err
	}
	return p.page.Locator(l.String()).Nth(i).Click(playwright.LocatorClickOptions{Timeout: t})
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string) error {
	t, err := timeout(ctx)
	if err != nil {
		return err
	}
	_, err = p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
		Timeout:  t,
	})
	return err
}

func (p *playwrightPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) ConsoleErrors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.errors
	p.errors = nil
	return errs
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
