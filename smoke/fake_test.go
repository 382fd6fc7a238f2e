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
	"os"
	"strings"
	"testing"
	"time"
)

const fakeOrigin = "http://game.test"

var sceneOptions = []string{"去上课", "去打台球", "去诺坎普"}

// fakeGame is an in-memory model of the game UI, shared by every tab of a
// fakeBrowser the way localStorage is.
type fakeGame struct {
	origin         string
	title          string
	endingAt       int
	minigameAfter  int
	minigameClicks int
	plainButtons   bool
	brokenReturn   bool
	consoleErrors  []string
	gotoErr        error

	// mobileStartHidden keeps the start button off a mobile-sized layout.
	mobileStartHidden bool

	unlocked int
	hasSave  bool
}

func newFakeGame() *fakeGame {
	return &fakeGame{
		origin:         fakeOrigin,
		title:          "章吉豪模拟器",
		endingAt:       5,
		minigameAfter:  2,
		minigameClicks: 3,
	}
}

type fakeBrowser struct {
	game      *fakeGame
	pages     []*fakePage
	viewports []Viewport
	closed    bool
}

func (b *fakeBrowser) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	p := &fakePage{game: b.game, vp: vp, path: "about:blank"}
	b.pages = append(b.pages, p)
	b.viewports = append(b.viewports, vp)
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakePage struct {
	game *fakeGame
	vp   Viewport
	path string

	savePrompt     bool
	choices        int
	minigameLeft   int
	minigameDone   bool
	collectionOpen bool
	recorded       bool

	clicked []string
	closed  bool
}

func (p *fakePage) onHome() bool { return p.path == "/" }
func (p *fakePage) onGame() bool { return p.path == "/game" }

func (p *fakePage) ended() bool {
	return p.onGame() && p.game.endingAt > 0 && p.choices >= p.game.endingAt
}

func (p *fakePage) minigame() bool {
	return p.onGame() && !p.savePrompt && !p.ended() &&
		p.game.minigameAfter > 0 && p.choices >= p.game.minigameAfter && !p.minigameDone
}

func (p *fakePage) scene() bool {
	return p.onGame() && !p.savePrompt && !p.ended() && !p.minigame()
}

func (p *fakePage) buttons() []string {
	switch {
	case p.onHome():
		b := []string{"开始游戏"}
		if p.game.unlocked > 0 {
			b = append(b, fmt.Sprintf("查看已解锁结局 (%d)", p.game.unlocked))
		}
		return b
	case p.savePrompt:
		return []string{"继续游戏", "开始新游戏"}
	case p.ended():
		return []string{"返回首页", "再来一次", "返回主界面"}
	case p.minigame():
		return []string{"返回首页", "击球"}
	case p.scene() && p.game.plainButtons:
		return append([]string{"返回首页"}, sceneOptions...)
	case p.scene():
		return []string{"返回首页"}
	}
	return nil
}

// matches returns the text of every element l selects.
func (p *fakePage) matches(l Locator) []string {
	c := DefaultContract()
	when := func(ok bool, texts ...string) []string {
		if ok {
			return texts
		}
		return nil
	}
	switch {
	case l == c.Title:
		return when(p.onHome(), p.game.title)
	case l == c.StartButton:
		return when(p.onHome() && !(p.game.mobileStartHidden && p.vp == MobileViewport), "开始游戏")
	case l == c.UnlockStats:
		return when(p.onHome(), "已解锁")
	case l == c.CollectionButton:
		return when(p.onHome() && p.game.unlocked > 0, fmt.Sprintf("查看已解锁结局 (%d)", p.game.unlocked))
	case l == c.SavePrompt:
		return when(p.savePrompt, "发现存档")
	case l == c.NewGameButton:
		return when(p.savePrompt, "开始新游戏")
	case l == c.EndingModal:
		return when(p.ended(), "结局")
	case l == c.EndingTitle:
		return when(p.ended(), " 🌟 正面结局 ")
	case l == c.Minigame:
		return when(p.minigame(), "小游戏")
	case l == c.MinigameButton:
		return when(p.minigame(), "击球")
	case l == c.Choice:
		return when(p.scene() && !p.game.plainButtons, sceneOptions...)
	case l == c.AnyButton:
		return p.buttons()
	case l == c.ReturnButton:
		return when(p.ended(), "返回主界面")
	case l == c.RestartButton:
		return when(p.ended(), "再来一次")
	}
	for _, cat := range c.CollectionCategories {
		if l == cat {
			return when(p.onHome() && p.collectionOpen, cat.Text+" 1")
		}
	}
	for _, label := range c.StatLabels {
		if l == (Locator{Text: label}) {
			return when(p.onHome() && label == "学业" || p.scene() || p.minigame(), label)
		}
	}
	return nil
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	if p.game.gotoErr != nil {
		return p.game.gotoErr
	}
	p.navigate(strings.TrimPrefix(url, p.game.origin))
	return nil
}

func (p *fakePage) navigate(path string) {
	if path == "" {
		path = "/"
	}
	p.path = path
	p.collectionOpen = false
	p.savePrompt = false
	if p.onGame() {
		p.choices = 0
		p.minigameDone = false
		p.recorded = false
		p.savePrompt = p.game.hasSave
	}
}

func (p *fakePage) WaitNetworkIdle(ctx context.Context) error { return nil }

func (p *fakePage) URL(ctx context.Context) (string, error) {
	return p.game.origin + p.path, nil
}

func (p *fakePage) Count(ctx context.Context, l Locator) (int, error) {
	return len(p.matches(l)), nil
}

func (p *fakePage) Visible(ctx context.Context, l Locator) (bool, error) {
	return len(p.matches(l)) > 0, nil
}

func (p *fakePage) WaitVisible(ctx context.Context, l Locator, timeout time.Duration) (bool, error) {
	return p.Visible(ctx, l)
}

func (p *fakePage) Text(ctx context.Context, l Locator) (string, error) {
	m := p.matches(l)
	if len(m) == 0 {
		return "", nil
	}
	return m[0], nil
}

func (p *fakePage) Texts(ctx context.Context, l Locator) ([]string, error) {
	return p.matches(l), nil
}

func (p *fakePage) Click(ctx context.Context, l Locator) error {
	return p.ClickNth(ctx, l, 0)
}

func (p *fakePage) ClickNth(ctx context.Context, l Locator, i int) error {
	m := p.matches(l)
	if i >= len(m) {
		return fmt.Errorf("no match #%d for %s", i, l)
	}
	label := m[i]
	p.clicked = append(p.clicked, label)
	c := DefaultContract()

	switch {
	case l == c.StartButton:
		p.navigate("/game")
	case l == c.NewGameButton:
		p.game.hasSave = false
		p.navigate("/game")
	case l == c.CollectionButton:
		p.collectionOpen = true
	case l == c.ReturnButton:
		if !p.game.brokenReturn {
			p.navigate("/")
		}
	case l == c.MinigameButton:
		p.minigameLeft++
		if p.minigameLeft >= p.game.minigameClicks {
			p.minigameDone = true
		}
	case l == c.Choice:
		p.choose()
	case l == c.AnyButton:
		switch {
		case label == "返回首页" || label == "返回主界面":
			p.navigate("/")
		case label == "再来一次":
			p.navigate("/game")
		case p.scene():
			p.choose()
		}
	}
	return nil
}

func (p *fakePage) choose() {
	p.choices++
	p.game.hasSave = true
	if p.ended() && !p.recorded {
		p.recorded = true
		p.game.unlocked++
		p.game.hasSave = false
	}
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return "<html><body>" + p.path + "</body></html>", nil
}

func (p *fakePage) ConsoleErrors() []string {
	errs := p.game.consoleErrors
	p.game.consoleErrors = nil
	return errs
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

func (p *fakePage) count(label string) int {
	n := 0
	for _, c := range p.clicked {
		if c == label {
			n++
		}
	}
	return n
}

// fastOptions returns options against the fake game with every pause
// removed.
func fastOptions(t *testing.T) Options {
	t.Helper()
	o := DefaultOptions()
	o.BaseURL = fakeOrigin
	o.OutputDir = t.TempDir()
	o.RoundPause = 0
	o.MinigamePause = 0
	o.StartPause = 0
	o.SettlePause = 0
	o.CollectionWait = 0
	return o
}
