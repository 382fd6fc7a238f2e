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
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	shotHomepage    = "01_homepage_desktop.png"
	shotGameScene   = "02_game_scene.png"
	shotEndingModal = "03_ending_modal.png"
	shotGameState   = "03_game_state.png"
	shotCollection  = "04_collection.png"
	shotMobileHome  = "05_mobile_homepage.png"
	shotMobileGame  = "06_mobile_game.png"
)

type runner struct {
	opts   Options
	report *Report
}

// Run executes the smoke phases against the game at opts.BaseURL. Phases 1
// to 5 share one desktop tab, phase 6 uses its own mobile tab. Every tab is
// closed before Run returns; closing b is up to the caller.
//
// The returned report is never nil.
func Run(ctx context.Context, b Browser, opts Options) (*Report, error) {
	run := &runner{opts: opts, report: newReport()}
	if err := opts.Validate(); err != nil {
		return run.report, err
	}
	log.Printf("Smoke run %s against %s", run.report.RunID, opts.HomeURL())

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return run.report, fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := run.desktop(ctx, b); err != nil {
		return run.report, err
	}
	if err := run.mobile(ctx, b); err != nil {
		return run.report, err
	}
	return run.report, nil
}

func (run *runner) desktop(ctx context.Context, b Browser) error {
	p, err := b.NewPage(ctx, DesktopViewport)
	if err != nil {
		return fmt.Errorf("failed to open desktop page: %w", err)
	}
	defer closePage(p)

	phases := []struct {
		name string
		fn   func(context.Context, Page) error
	}{
		{"Desktop Homepage", run.homepage},
		{"Game Flow", run.gameFlow},
		{"Game Choices", run.choices},
		{"Ending Modal", run.endingModal},
		{"Ending Collection", run.collection},
	}
	for i, ph := range phases {
		if err := run.phase(ctx, p, i+1, ph.name, ph.fn); err != nil {
			return err
		}
	}
	return nil
}

func (run *runner) mobile(ctx context.Context, b Browser) error {
	p, err := b.NewPage(ctx, MobileViewport)
	if err != nil {
		return fmt.Errorf("failed to open mobile page: %w", err)
	}
	defer closePage(p)
	return run.phase(ctx, p, 6, "Mobile Responsive", run.mobileHome)
}

func closePage(p Page) {
	if err := p.Close(); err != nil {
		log.Printf("Closing page: %v", err)
	}
}

// phase runs fn as phase n, collects the console errors it produced and, in
// debug mode, dumps the page when it fails.
func (run *runner) phase(ctx context.Context, p Page, n int, name string, fn func(context.Context, Page) error) error {
	run.report.phase(n, name)
	err := fn(ctx, p)
	if cerr := run.consoleErrors(name, p); err == nil {
		err = cerr
	}
	if err != nil && run.opts.Debug {
		run.debugFailure(ctx, p, fmt.Sprintf("phase-%d", n))
	}
	var ae *AssertionError
	if err != nil && !errors.As(err, &ae) {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return err
}

func (run *runner) consoleErrors(phase string, p Page) error {
	errs := p.ConsoleErrors()
	for _, e := range errs {
		run.report.warn("JS console error: %s", e)
	}
	run.report.ConsoleErrors = append(run.report.ConsoleErrors, errs...)
	if run.opts.FailOnConsoleError && len(errs) > 0 {
		return assertf(phase, "%d JS console error(s), first: %s", len(errs), errs[0])
	}
	return nil
}

// Phase 1.
func (run *runner) homepage(ctx context.Context, p Page) error {
	const phase = "Desktop Homepage"
	c := run.opts.Contract
	r := run.report

	if err := run.load(ctx, p, run.opts.HomeURL()); err != nil {
		return err
	}

	title, err := run.text(ctx, p, c.Title)
	if err != nil {
		return err
	}
	if !strings.Contains(title, c.ProductName) {
		return assertf(phase, "Homepage title not found, got: %s", title)
	}
	r.pass("Homepage title displayed")

	if err := run.requireVisible(ctx, p, phase, c.StartButton, "Start button not visible"); err != nil {
		return err
	}
	r.pass("Start game button visible")

	if err := run.requireVisible(ctx, p, phase, c.StatsPreview, "Stats preview not visible"); err != nil {
		return err
	}
	r.pass("Stats preview displayed")

	ok, err := run.visible(ctx, p, c.UnlockStats)
	if err != nil {
		return err
	}
	if ok {
		r.pass("Unlock stats displayed")
	}

	if err := run.screenshot(ctx, p, shotHomepage); err != nil {
		return err
	}
	r.pass("Desktop homepage screenshot saved")
	return nil
}

// Phase 2.
func (run *runner) gameFlow(ctx context.Context, p Page) error {
	const phase = "Game Flow"
	c := run.opts.Contract
	r := run.report

	if err := run.startGame(ctx, p); err != nil {
		return err
	}

	u, err := p.URL(ctx)
	if err != nil {
		return err
	}
	if ok, err := run.opts.onGamePage(u); err != nil {
		return err
	} else if !ok {
		return assertf(phase, "Did not navigate to game, url: %s", u)
	}
	r.pass("Navigated to game page")

	shown := false
	for _, label := range c.StatLabels {
		ok, err := run.visible(ctx, p, Locator{Text: label})
		if err != nil {
			return err
		}
		if ok {
			shown = true
			break
		}
	}
	if !shown {
		return assertf(phase, "Stats bar not visible on game page")
	}
	r.pass("Stats bar displayed")

	if err := run.screenshot(ctx, p, shotGameScene); err != nil {
		return err
	}
	r.pass("Game scene screenshot saved")
	return nil
}

// Phase 3.
func (run *runner) choices(ctx context.Context, p Page) error {
	if err := run.playLoop(ctx, p); err != nil {
		return err
	}
	run.report.pass("Made %d choices during gameplay", run.report.Choices)
	return nil
}

// Phase 4.
func (run *runner) endingModal(ctx context.Context, p Page) error {
	const phase = "Ending Modal"
	c := run.opts.Contract
	r := run.report

	if err := pause(ctx, run.opts.SettlePause); err != nil {
		return err
	}
	n, err := run.count(ctx, p, c.EndingModal)
	if err != nil {
		return err
	}
	if n == 0 {
		r.warn("No ending modal found, taking screenshot of current state")
		return run.screenshot(ctx, p, shotGameState)
	}
	r.EndingReached = true
	r.pass("Ending modal displayed")

	if n, err := run.count(ctx, p, c.EndingTitle); err != nil {
		return err
	} else if n > 0 {
		title, err := run.text(ctx, p, c.EndingTitle)
		if err != nil {
			return err
		}
		r.EndingTitle = strings.TrimSpace(title)
		r.detail("Ending: %s", r.EndingTitle)
	}

	if err := run.requireVisible(ctx, p, phase, c.ReturnButton, "Return button not visible"); err != nil {
		return err
	}
	r.pass("Return to home button visible")

	if err := run.requireVisible(ctx, p, phase, c.RestartButton, "Restart button not visible"); err != nil {
		return err
	}
	r.pass("Restart button visible")

	if err := run.screenshot(ctx, p, shotEndingModal); err != nil {
		return err
	}
	r.pass("Ending modal screenshot saved")

	if err := run.click(ctx, p, c.ReturnButton); err != nil {
		return fmt.Errorf("click return button: %w", err)
	}
	if err := run.waitIdle(ctx, p); err != nil {
		return err
	}
	if err := pause(ctx, run.opts.SettlePause); err != nil {
		return err
	}
	u, err := p.URL(ctx)
	if err != nil {
		return err
	}
	if ok, err := run.opts.onGamePage(u); err != nil {
		return err
	} else if ok {
		return assertf(phase, "Did not return home, url: %s", u)
	}
	r.Returned = true
	r.pass("Return to home button works")
	return nil
}

// Phase 5. Nothing here fails the run: a fresh browser profile has no
// unlocked endings and therefore no collection button.
func (run *runner) collection(ctx context.Context, p Page) error {
	c := run.opts.Contract
	r := run.report

	if err := run.load(ctx, p, run.opts.HomeURL()); err != nil {
		return err
	}
	if err := pause(ctx, run.opts.SettlePause); err != nil {
		return err
	}

	ok, err := run.visible(ctx, p, c.CollectionButton)
	if err != nil {
		return err
	}
	if !ok {
		stats, err := run.visible(ctx, p, c.UnlockStats)
		if err != nil {
			return err
		}
		if stats {
			r.pass("Unlock stats displayed on homepage")
		} else {
			r.detail("No endings unlocked yet (expected for fresh state)")
		}
		return nil
	}

	r.pass("Collection button visible")
	if err := run.click(ctx, p, c.CollectionButton); err != nil {
		return fmt.Errorf("click collection button: %w", err)
	}
	if err := pause(ctx, run.opts.CollectionWait); err != nil {
		return err
	}
	if err := run.screenshot(ctx, p, shotCollection); err != nil {
		return err
	}
	r.pass("Collection screenshot saved")

	for _, cat := range c.CollectionCategories {
		ok, err := run.visible(ctx, p, cat)
		if err != nil {
			return err
		}
		if ok {
			r.Collection = true
			r.pass("Collection categories displayed")
			return nil
		}
	}
	r.warn("No collection category labels found")
	return nil
}

// Phase 6.
func (run *runner) mobileHome(ctx context.Context, p Page) error {
	const phase = "Mobile Responsive"
	c := run.opts.Contract
	r := run.report

	if err := run.load(ctx, p, run.opts.HomeURL()); err != nil {
		return err
	}
	if err := run.waitVisible(ctx, p, phase, c.Title, "Title not visible on mobile"); err != nil {
		return err
	}
	r.pass("Mobile homepage renders correctly")

	if err := run.waitVisible(ctx, p, phase, c.StartButton, "Start button not visible on mobile"); err != nil {
		return err
	}
	r.pass("Start button visible on mobile")

	if err := run.screenshot(ctx, p, shotMobileHome); err != nil {
		return err
	}
	r.pass("Mobile homepage screenshot saved")

	if err := run.startGame(ctx, p); err != nil {
		return err
	}
	u, err := p.URL(ctx)
	if err != nil {
		return err
	}
	if ok, err := run.opts.onGamePage(u); err != nil {
		return err
	} else if !ok {
		return assertf(phase, "Did not navigate to game on mobile, url: %s", u)
	}
	if err := run.screenshot(ctx, p, shotMobileGame); err != nil {
		return err
	}
	r.pass("Mobile game screenshot saved")
	return nil
}

// startGame clicks the start control, waits for the game page to settle and
// declines a saved game if the page offers one.
func (run *runner) startGame(ctx context.Context, p Page) error {
	c := run.opts.Contract
	if err := run.click(ctx, p, c.StartButton); err != nil {
		return fmt.Errorf("click start button: %w", err)
	}
	if err := run.waitIdle(ctx, p); err != nil {
		return err
	}
	if err := pause(ctx, run.opts.StartPause); err != nil {
		return err
	}

	ok, err := run.visible(ctx, p, c.SavePrompt)
	if err != nil || !ok {
		return err
	}
	run.report.detail("Saved game found, starting a new one")
	if err := run.click(ctx, p, c.NewGameButton); err != nil {
		return fmt.Errorf("click new game button: %w", err)
	}
	return pause(ctx, run.opts.SettlePause)
}

// --- Page helpers with per-call timeouts ---

func (run *runner) load(ctx context.Context, p Page, url string) error {
	nctx, cancel := context.WithTimeout(ctx, run.opts.NavigationTimeout)
	defer cancel()
	if err := p.Goto(nctx, url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return run.waitIdle(ctx, p)
}

func (run *runner) waitIdle(ctx context.Context, p Page) error {
	ictx, cancel := context.WithTimeout(ctx, run.opts.IdleTimeout)
	defer cancel()
	if err := p.WaitNetworkIdle(ictx); err != nil {
		return fmt.Errorf("waiting for network idle: %w", err)
	}
	return nil
}

func (run *runner) count(ctx context.Context, p Page, l Locator) (int, error) {
	actx, cancel := context.WithTimeout(ctx, run.opts.ActionTimeout)
	defer cancel()
	n, err := p.Count(actx, l)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", l, err)
	}
	return n, nil
}

func (run *runner) visible(ctx context.Context, p Page, l Locator) (bool, error) {
	actx, cancel := context.WithTimeout(ctx, run.opts.ActionTimeout)
	defer cancel()
	ok, err := p.Visible(actx, l)
	if err != nil {
		return false, fmt.Errorf("check visibility of %s: %w", l, err)
	}
	return ok, nil
}

func (run *runner) requireVisible(ctx context.Context, p Page, phase string, l Locator, msg string) error {
	ok, err := run.visible(ctx, p, l)
	if err != nil {
		return err
	}
	if !ok {
		return assertf(phase, "%s", msg)
	}
	return nil
}

// waitVisible gives l up to ActionTimeout to appear, for layouts that render
// late.
func (run *runner) waitVisible(ctx context.Context, p Page, phase string, l Locator, msg string) error {
	ok, err := p.WaitVisible(ctx, l, run.opts.ActionTimeout)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", l, err)
	}
	if !ok {
		return assertf(phase, "%s", msg)
	}
	return nil
}

func (run *runner) text(ctx context.Context, p Page, l Locator) (string, error) {
	actx, cancel := context.WithTimeout(ctx, run.opts.ActionTimeout)
	defer cancel()
	s, err := p.Text(actx, l)
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", l, err)
	}
	return s, nil
}

func (run *runner) click(ctx context.Context, p Page, l Locator) error {
	actx, cancel := context.WithTimeout(ctx, run.opts.ActionTimeout)
	defer cancel()
	return p.Click(actx, l)
}

func (run *runner) screenshot(ctx context.Context, p Page, name string) error {
	actx, cancel := context.WithTimeout(ctx, run.opts.ActionTimeout)
	defer cancel()
	path := filepath.Join(run.opts.OutputDir, name)
	if err := p.Screenshot(actx, path); err != nil {
		return fmt.Errorf("failed to capture %s: %w", name, err)
	}
	run.report.Screenshots = append(run.report.Screenshots, path)
	log.Printf("Saved screenshot to %s", path)
	return nil
}

// debugFailure saves the page HTML and a screenshot next to the regular
// screenshots. It still runs when ctx has already expired.
func (run *runner) debugFailure(ctx context.Context, p Page, name string) {
	log.Printf("DEBUG: capturing failure info for %s", name)
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if html, err := p.HTML(dctx); err != nil {
		log.Printf("DEBUG: Failed to capture HTML: %v", err)
	} else {
		file := filepath.Join(run.opts.OutputDir, "debug-"+name+".html")
		if err := os.WriteFile(file, []byte(html), 0644); err != nil {
			log.Printf("DEBUG: Failed to write %s: %v", file, err)
		}
	}
	file := filepath.Join(run.opts.OutputDir, "debug-"+name+".png")
	if err := p.Screenshot(dctx, file); err != nil {
		log.Printf("DEBUG: Failed to capture screenshot: %v", err)
		return
	}
	log.Printf("DEBUG: Saved screenshot to %s", file)
}
