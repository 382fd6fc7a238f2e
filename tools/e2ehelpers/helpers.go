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

package e2ehelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// AnimationsOffCSS zeroes every transition and animation duration.
const AnimationsOffCSS = `*{-webkit-transition-duration:0s!important;transition-duration:0s!important;-webkit-animation-duration:0s!important;animation-duration:0s!important;}`

// TargetAttr is set on an element right before it is clicked.
const TargetAttr = "data-smoke-target"

// CaptureScreenshot captures a full-page screenshot and saves it to the
// specified filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	return nil
}

// DisableCSSAnimations appends AnimationsOffCSS to the current document.
func DisableCSSAnimations() chromedp.ActionFunc {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(fmt.Sprintf(`
                        (() => {
                                const style = document.createElement('style');
                                style.innerHTML = %s;
                                document.head.appendChild(style);
                        })()
                `, jsString(AnimationsOffCSS)), nil).Do(ctx)
	})
}

// --- Element queries ---
//
// css is a selector list, text an optional substring of the element's text
// content and visible restricts matches to rendered elements. With an empty
// css the innermost elements containing text match, scripts and styles
// excluded.

const findJS = `(function(css, text, visibleOnly) {
	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
	};
	const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'TITLE']);
	const textOf = (el) => {
		if (skip.has(el.tagName)) return '';
		let s = '';
		for (const n of el.childNodes) {
			if (n.nodeType === Node.TEXT_NODE) s += n.data;
			else if (n.nodeType === Node.ELEMENT_NODE) s += textOf(n);
		}
		return s;
	};
	const has = (el) => textOf(el).includes(text);
	let els;
	if (css) {
		els = Array.from(document.querySelectorAll(css));
		if (text) els = els.filter(has);
	} else {
		els = Array.from(document.querySelectorAll('body, body *'))
			.filter(has)
			.filter((el) => !Array.from(el.children).some(has));
	}
	if (visibleOnly) els = els.filter(isVisible);
	return els;
})`

// findExpr returns a JS expression applying body to the matched elements,
// which body sees as els.
func findExpr(css, text string, visible bool, body string) string {
	return fmt.Sprintf(`((els) => %s)(%s(%s, %s, %t))`, body, findJS, jsString(css), jsString(text), visible)
}

// CountMatches stores the number of matching elements in n.
func CountMatches(css, text string, visible bool, n *int) chromedp.Action {
	return chromedp.Evaluate(findExpr(css, text, visible, `els.length`), n)
}

// AnyVisible reports whether any matching element is rendered.
func AnyVisible(css, text string, visible bool, ok *bool) chromedp.Action {
	return chromedp.Evaluate(findExpr(css, text, visible, `els.some((el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
	})`), ok)
}

// WaitVisible polls until a match is rendered, for at most timeout. ok
// reports whether one appeared; running out of time is not an error, an
// expired ctx is.
func WaitVisible(css, text string, timeout time.Duration, ok *bool) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		expr := findExpr(css, text, true, `els.length > 0`)
		for {
			*ok = false
			if err := chromedp.Evaluate(expr, ok).Do(timeoutCtx); err == nil && *ok {
				return nil
			}
			select {
			case <-ticker.C:
			case <-timeoutCtx.Done():
				*ok = false
				return ctx.Err()
			}
		}
	})
}

// FirstText stores the text content of the first match, or "".
func FirstText(css, text string, visible bool, s *string) chromedp.Action {
	return chromedp.Evaluate(findExpr(css, text, visible, `els.length ? (els[0].textContent || '') : ''`), s)
}

// AllTexts stores the text content of every match.
func AllTexts(css, text string, visible bool, texts *[]string) chromedp.Action {
	return chromedp.Evaluate(findExpr(css, text, visible, `els.map((el) => el.textContent || '')`), texts)
}

// ClickMatch clicks the i-th match with a real mouse event. The element is
// tagged with a fresh TargetAttr value so the click lands on that exact node.
func ClickMatch(css, text string, visible bool, i int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		token := uuid.NewString()
		var found bool
		body := fmt.Sprintf(`(() => {
			if (els.length <= %d) return false;
			els[%d].setAttribute(%s, %s);
			return true;
		})()`, i, i, jsString(TargetAttr), jsString(token))
		if err := chromedp.Evaluate(findExpr(css, text, visible, body), &found).Do(ctx); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no match #%d for css=%q text=%q", i, css, text)
		}
		return chromedp.Click(fmt.Sprintf(`[%s=%q]`, TargetAttr, token), chromedp.ByQuery).Do(ctx)
	})
}

// --- Network idle ---

// IdleTracker decides when a document has gone quiet: it is fully loaded and
// its resource count has not changed for the quiet period.
type IdleTracker struct {
	quiet     time.Duration
	seen      bool
	resources int
	since     time.Time
}

func NewIdleTracker(quiet time.Duration) *IdleTracker {
	return &IdleTracker{quiet: quiet}
}

// Observe records one sample and reports whether the page is idle.
func (t *IdleTracker) Observe(now time.Time, complete bool, resources int) bool {
	if !complete {
		t.seen = false
		return false
	}
	if !t.seen || resources != t.resources {
		t.seen = true
		t.resources = resources
		t.since = now
		return false
	}
	return now.Sub(t.since) >= t.quiet
}

type loadState struct {
	Complete  bool `json:"complete"`
	Resources int  `json:"resources"`
}

const loadStateJS = `(() => {
	if (!window.__smokeResourceBuffer) {
		performance.setResourceTimingBufferSize(10000);
		window.__smokeResourceBuffer = true;
	}
	return {
		complete: document.readyState === 'complete',
		resources: performance.getEntriesByType('resource').length,
	};
})()`

// WaitNetworkIdle waits until the page has loaded and fetched no new
// resources for quiet. Evaluation errors, as seen while a navigation swaps
// documents, count as not idle.
func WaitNetworkIdle(quiet time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tracker := NewIdleTracker(quiet)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var st loadState
			if err := chromedp.Evaluate(loadStateJS, &st).Do(ctx); err != nil {
				log.Printf("WaitNetworkIdle: %v", err)
				st = loadState{}
			}
			if tracker.Observe(time.Now(), st.Complete, st.Resources) {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return fmt.Errorf("timeout waiting for network idle: %w", ctx.Err())
			}
		}
	})
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
