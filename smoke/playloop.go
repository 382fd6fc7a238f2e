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
	"strings"
)

// playLoop advances the game towards an ending without knowing its content.
//
// Each round it looks, in order, for an ending modal (done), a minigame
// (click through it), a choice card (pick the first) and finally any visible
// button that does not lead home. Running out of rounds is not an error; the
// ending checks that follow decide what to assert.
func (run *runner) playLoop(ctx context.Context, p Page) error {
	c := run.opts.Contract
	r := run.report

	for i := 0; i < run.opts.MaxRounds; i++ {
		r.Rounds = i + 1
		if err := pause(ctx, run.opts.RoundPause); err != nil {
			return err
		}

		n, err := run.count(ctx, p, c.EndingModal)
		if err != nil {
			return err
		}
		if n > 0 {
			r.EndingReached = true
			r.pass("Reached ending after %d choices", r.Choices)
			return nil
		}

		n, err = run.count(ctx, p, c.Minigame)
		if err != nil {
			return err
		}
		if n > 0 {
			r.detail("Minigame detected, clicking buttons...")
			if err := run.playMinigame(ctx, p); err != nil {
				return err
			}
			continue
		}

		n, err = run.count(ctx, p, c.Choice)
		if err != nil {
			return err
		}
		if n > 0 {
			if err := run.click(ctx, p, c.Choice); err != nil {
				return fmt.Errorf("click choice: %w", err)
			}
			r.Choices++
			r.detail("Made choice %d", r.Choices)
			continue
		}

		if err := run.clickFallback(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (run *runner) playMinigame(ctx context.Context, p Page) error {
	c := run.opts.Contract
	for i := 0; i < run.opts.MinigameClicks; i++ {
		n, err := run.count(ctx, p, c.MinigameButton)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := run.click(ctx, p, c.MinigameButton); err != nil {
			return fmt.Errorf("click minigame button: %w", err)
		}
		if err := pause(ctx, run.opts.MinigamePause); err != nil {
			return err
		}
	}
	return nil
}

// clickFallback clicks the first visible button with a label that is not a
// way back to the homepage. Doing nothing is fine.
func (run *runner) clickFallback(ctx context.Context, p Page) error {
	c := run.opts.Contract
	actx, cancel := context.WithTimeout(ctx, run.opts.ActionTimeout)
	defer cancel()
	labels, err := p.Texts(actx, c.AnyButton)
	if err != nil {
		return fmt.Errorf("list buttons: %w", err)
	}
	for i, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || c.isNonProgress(label) {
			continue
		}
		if err := p.ClickNth(actx, c.AnyButton, i); err != nil {
			return fmt.Errorf("click button %q: %w", label, err)
		}
		run.report.Choices++
		run.report.detail("Clicked button: %s", truncate(label, 20))
		return nil
	}
	return nil
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
