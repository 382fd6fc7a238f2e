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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shots(dir string, names ...string) []string {
	var out []string
	for _, n := range names {
		out = append(out, filepath.Join(dir, n))
	}
	return out
}

func TestRunReachesEnding(t *testing.T) {
	opts := fastOptions(t)
	b := &fakeBrowser{game: newFakeGame()}

	r, err := Run(context.Background(), b, opts)
	require.NoError(t, err)

	assert.NotEmpty(t, r.RunID)
	assert.True(t, r.EndingReached)
	assert.Equal(t, 5, r.Choices)
	assert.Equal(t, 7, r.Rounds)
	assert.Equal(t, "🌟 正面结局", r.EndingTitle)
	assert.True(t, r.Returned)
	assert.True(t, r.Collection)
	assert.Empty(t, r.ConsoleErrors)
	assert.Equal(t, shots(opts.OutputDir,
		shotHomepage, shotGameScene, shotEndingModal, shotCollection, shotMobileHome, shotMobileGame,
	), r.Screenshots)
	for _, s := range r.Screenshots {
		assert.FileExists(t, s)
	}

	assert.Equal(t, []Viewport{DesktopViewport, MobileViewport}, b.viewports)
	require.Len(t, b.pages, 2)
	for _, p := range b.pages {
		assert.True(t, p.closed)
	}
	assert.False(t, b.closed, "the caller owns the browser")
	assert.Equal(t, 3, b.pages[0].count("击球"))

	for _, want := range []string{
		"=== Test 1: Desktop Homepage ===",
		"✓ Homepage title displayed",
		"✓ Unlock stats displayed",
		"=== Test 2: Game Flow ===",
		"✓ Stats bar displayed",
		"  - Minigame detected, clicking buttons...",
		"  - Made choice 5",
		"✓ Reached ending after 5 choices",
		"✓ Made 5 choices during gameplay",
		"  - Ending: 🌟 正面结局",
		"✓ Return to home button works",
		"✓ Collection categories displayed",
		"=== Test 6: Mobile Responsive ===",
		"✓ Mobile game screenshot saved",
	} {
		assert.Contains(t, r.Lines, want)
	}
}

func TestRunWithoutEnding(t *testing.T) {
	opts := fastOptions(t)
	opts.MaxRounds = 4
	game := newFakeGame()
	game.endingAt = 0
	game.minigameAfter = 0
	b := &fakeBrowser{game: game}

	r, err := Run(context.Background(), b, opts)
	require.NoError(t, err)

	assert.False(t, r.EndingReached)
	assert.False(t, r.Returned)
	assert.False(t, r.Collection)
	assert.Equal(t, 4, r.Rounds)
	assert.Equal(t, 4, r.Choices)
	assert.Equal(t, shots(opts.OutputDir,
		shotHomepage, shotGameScene, shotGameState, shotMobileHome, shotMobileGame,
	), r.Screenshots)
	assert.Contains(t, r.Lines, "⚠ No ending modal found, taking screenshot of current state")
	assert.Contains(t, r.Lines, "✓ Unlock stats displayed on homepage")
	// The desktop run left a save behind.
	assert.Contains(t, r.Lines, "  - Saved game found, starting a new one")
	assert.Equal(t, 1, b.pages[1].count("开始新游戏"))
}

func TestRunHomepageTitleMismatch(t *testing.T) {
	opts := fastOptions(t)
	game := newFakeGame()
	game.title = "别的游戏"
	b := &fakeBrowser{game: game}

	r, err := Run(context.Background(), b, opts)
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Desktop Homepage", ae.Phase)
	assert.Equal(t, "Homepage title not found, got: 别的游戏", ae.Message)
	require.NotNil(t, r)
	assert.Empty(t, r.Screenshots)

	require.Len(t, b.pages, 1, "mobile phase must not run")
	assert.True(t, b.pages[0].closed)
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "debug-phase-1.html"))
}

func TestRunReturnButtonBroken(t *testing.T) {
	opts := fastOptions(t)
	game := newFakeGame()
	game.brokenReturn = true
	b := &fakeBrowser{game: game}

	r, err := Run(context.Background(), b, opts)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Ending Modal", ae.Phase)
	assert.Equal(t, "Did not return home, url: http://game.test/game", ae.Message)
	assert.True(t, r.EndingReached)
	assert.False(t, r.Returned)
	assert.True(t, b.pages[0].closed)
}

// The game route is matched on the path alone, so hosts that contain the
// route's name do not count as being in the game.
func TestRunGameLikeHosts(t *testing.T) {
	for _, origin := range []string{"http://game.example.com:8080", "https://mygame.local"} {
		t.Run(origin, func(t *testing.T) {
			opts := fastOptions(t)
			opts.BaseURL = origin + "/"
			game := newFakeGame()
			game.origin = origin
			b := &fakeBrowser{game: game}

			r, err := Run(context.Background(), b, opts)
			require.NoError(t, err)
			assert.True(t, r.EndingReached)
			assert.True(t, r.Returned)
			assert.Contains(t, r.Lines, "✓ Return to home button works")
		})
	}
}

func TestRunDriverErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	opts := fastOptions(t)
	game := newFakeGame()
	game.gotoErr = boom
	b := &fakeBrowser{game: game}

	_, err := Run(context.Background(), b, opts)
	require.ErrorIs(t, err, boom)
	var ae *AssertionError
	assert.False(t, errors.As(err, &ae))
	assert.Equal(t, "Desktop Homepage: failed to navigate to http://game.test: boom", err.Error())
}

func TestRunConsoleErrors(t *testing.T) {
	t.Run("reported", func(t *testing.T) {
		opts := fastOptions(t)
		game := newFakeGame()
		game.consoleErrors = []string{"Uncaught TypeError: x is undefined"}
		b := &fakeBrowser{game: game}

		r, err := Run(context.Background(), b, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"Uncaught TypeError: x is undefined"}, r.ConsoleErrors)
		assert.Contains(t, r.Lines, "⚠ JS console error: Uncaught TypeError: x is undefined")
	})

	t.Run("failed phase", func(t *testing.T) {
		opts := fastOptions(t)
		game := newFakeGame()
		game.title = "别的游戏"
		game.consoleErrors = []string{"Uncaught ReferenceError: store is not defined"}
		b := &fakeBrowser{game: game}

		r, err := Run(context.Background(), b, opts)
		var ae *AssertionError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "Homepage title not found, got: 别的游戏", ae.Message)
		assert.Equal(t, []string{"Uncaught ReferenceError: store is not defined"}, r.ConsoleErrors)
		assert.Contains(t, r.Lines, "⚠ JS console error: Uncaught ReferenceError: store is not defined")
	})

	t.Run("fatal", func(t *testing.T) {
		opts := fastOptions(t)
		opts.FailOnConsoleError = true
		game := newFakeGame()
		game.consoleErrors = []string{"Uncaught TypeError: x is undefined"}
		b := &fakeBrowser{game: game}

		_, err := Run(context.Background(), b, opts)
		var ae *AssertionError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "Desktop Homepage", ae.Phase)
		assert.Contains(t, ae.Message, "1 JS console error(s)")
	})
}

func TestRunMobileStartHidden(t *testing.T) {
	opts := fastOptions(t)
	game := newFakeGame()
	game.mobileStartHidden = true
	b := &fakeBrowser{game: game}

	r, err := Run(context.Background(), b, opts)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Mobile Responsive", ae.Phase)
	assert.Equal(t, "Start button not visible on mobile", ae.Message)
	assert.True(t, r.EndingReached, "desktop phases are unaffected")
	assert.Contains(t, r.Lines, "✓ Mobile homepage renders correctly")
	require.Len(t, b.pages, 2)
	assert.True(t, b.pages[1].closed)
}

func TestRunDebugDumpsFailedPage(t *testing.T) {
	opts := fastOptions(t)
	opts.Debug = true
	game := newFakeGame()
	game.title = "别的游戏"
	b := &fakeBrowser{game: game}

	_, err := Run(context.Background(), b, opts)
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(opts.OutputDir, "debug-phase-1.html"))
	assert.FileExists(t, filepath.Join(opts.OutputDir, "debug-phase-1.png"))
}

func TestRunInvalidOptions(t *testing.T) {
	opts := fastOptions(t)
	opts.MaxRounds = 0
	b := &fakeBrowser{game: newFakeGame()}

	r, err := Run(context.Background(), b, opts)
	require.ErrorContains(t, err, "max rounds must be positive")
	require.NotNil(t, r)
	assert.Empty(t, b.pages)
}

func TestRunCanceled(t *testing.T) {
	opts := fastOptions(t)
	opts.RoundPause = DefaultNavigationTimeout
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &fakeBrowser{game: newFakeGame()}

	_, err := Run(ctx, b, opts)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, b.pages[0].closed)
}
