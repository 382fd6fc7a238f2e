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
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Locator selects elements on a page.
//
// CSS is a selector list. Text, when set, keeps only elements whose text
// content contains it; with an empty CSS the innermost such element matches.
// Visible keeps only rendered elements.
type Locator struct {
	CSS     string `yaml:"css,omitempty"`
	Text    string `yaml:"text,omitempty"`
	Visible bool   `yaml:"visible,omitempty"`
}

// UnmarshalYAML replaces l with the decoded mapping, so that a contract file
// setting only css drops the default text filter.
func (l *Locator) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: locator must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		switch k := value.Content[i]; k.Value {
		case "css", "text", "visible":
		default:
			return fmt.Errorf("line %d: unknown locator field %q", k.Line, k.Value)
		}
	}
	type plain Locator
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*l = Locator(p)
	return nil
}

// String returns the locator in Playwright selector syntax.
func (l Locator) String() string {
	if l.CSS == "" {
		s := "text=" + l.Text
		if l.Visible {
			s += " >> visible=true"
		}
		return s
	}
	css := l.CSS
	if (l.Text != "" || l.Visible) && strings.Contains(css, ",") {
		css = ":is(" + css + ")"
	}
	if l.Text != "" {
		css += ":has-text(" + strconv.Quote(l.Text) + ")"
	}
	if l.Visible {
		css += ":visible"
	}
	return css
}

// Contract is every selector and visible string the runner relies on.
type Contract struct {
	GamePath    string `yaml:"game_path"`
	ProductName string `yaml:"product_name"`

	Title        Locator `yaml:"title"`
	StartButton  Locator `yaml:"start_button"`
	StatsPreview Locator `yaml:"stats_preview"`
	UnlockStats  Locator `yaml:"unlock_stats"`

	SavePrompt    Locator  `yaml:"save_prompt"`
	NewGameButton Locator  `yaml:"new_game_button"`
	StatLabels    []string `yaml:"stat_labels"`

	EndingModal       Locator  `yaml:"ending_modal"`
	EndingTitle       Locator  `yaml:"ending_title"`
	Minigame          Locator  `yaml:"minigame"`
	MinigameButton    Locator  `yaml:"minigame_button"`
	Choice            Locator  `yaml:"choice"`
	AnyButton         Locator  `yaml:"any_button"`
	NonProgressLabels []string `yaml:"non_progress_labels"`

	ReturnButton  Locator `yaml:"return_button"`
	RestartButton Locator `yaml:"restart_button"`

	CollectionButton     Locator   `yaml:"collection_button"`
	CollectionCategories []Locator `yaml:"collection_categories"`
}

// DefaultContract returns the contract of the current game UI.
func DefaultContract() Contract {
	return Contract{
		GamePath:    "/game",
		ProductName: "章吉豪模拟器",

		Title:        Locator{CSS: "h1"},
		StartButton:  Locator{Text: "开始游戏"},
		StatsPreview: Locator{Text: "学业"},
		UnlockStats:  Locator{Text: "已解锁"},

		SavePrompt:    Locator{Text: "发现存档"},
		NewGameButton: Locator{CSS: "button", Text: "开始新游戏"},
		StatLabels:    []string{"学业", "安全", "财富", "台球", "精神"},

		EndingModal:       Locator{CSS: ".ending-modal"},
		EndingTitle:       Locator{CSS: ".ending-modal h2"},
		Minigame:          Locator{CSS: ".minigame-container"},
		MinigameButton:    Locator{CSS: ".minigame-container button", Visible: true},
		Choice:            Locator{CSS: `.group.cursor-pointer, [class*="choice"]`},
		AnyButton:         Locator{CSS: "button", Visible: true},
		NonProgressLabels: []string{"返回", "主界面"},

		ReturnButton:  Locator{CSS: "button", Text: "返回主界面"},
		RestartButton: Locator{CSS: "button", Text: "再来一次"},

		CollectionButton: Locator{CSS: "button", Text: "查看已解锁结局"},
		CollectionCategories: []Locator{
			{Text: "正面"},
			{Text: "悲剧"},
			{Text: "隐藏"},
		},
	}
}

// LoadContract reads a YAML document from path and applies the keys it sets
// on top of DefaultContract. Unknown keys are an error.
func LoadContract(path string) (Contract, error) {
	c := DefaultContract()
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("open contract: %w", err)
	}
	defer f.Close()
	return decodeContract(f, c)
}

func decodeContract(r io.Reader, c Contract) (Contract, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("decode contract: %w", err)
	}
	return c, c.Validate()
}

// Validate checks that every locator selects something and that no label is
// blank.
func (c Contract) Validate() error {
	if !strings.HasPrefix(c.GamePath, "/") {
		return fmt.Errorf("contract: game_path %q must start with /", c.GamePath)
	}
	if c.ProductName == "" {
		return fmt.Errorf("contract: product_name is empty")
	}
	locators := map[string]Locator{
		"title":             c.Title,
		"start_button":      c.StartButton,
		"stats_preview":     c.StatsPreview,
		"unlock_stats":      c.UnlockStats,
		"save_prompt":       c.SavePrompt,
		"new_game_button":   c.NewGameButton,
		"ending_modal":      c.EndingModal,
		"ending_title":      c.EndingTitle,
		"minigame":          c.Minigame,
		"minigame_button":   c.MinigameButton,
		"choice":            c.Choice,
		"any_button":        c.AnyButton,
		"return_button":     c.ReturnButton,
		"restart_button":    c.RestartButton,
		"collection_button": c.CollectionButton,
	}
	for i, l := range c.CollectionCategories {
		locators[fmt.Sprintf("collection_categories[%d]", i)] = l
	}
	for name, l := range locators {
		if l.CSS == "" && l.Text == "" {
			return fmt.Errorf("contract: %s has neither css nor text", name)
		}
	}
	if len(c.StatLabels) == 0 {
		return fmt.Errorf("contract: stat_labels is empty")
	}
	for _, list := range []struct {
		name   string
		labels []string
	}{
		{"stat_labels", c.StatLabels},
		{"non_progress_labels", c.NonProgressLabels},
	} {
		for i, label := range list.labels {
			if strings.TrimSpace(label) == "" {
				return fmt.Errorf("contract: %s[%d] is empty", list.name, i)
			}
		}
	}
	return nil
}

// isNonProgress reports whether a button label leads away from the game.
func (c Contract) isNonProgress(label string) bool {
	for _, l := range c.NonProgressLabels {
		if strings.Contains(label, l) {
			return true
		}
	}
	return false
}
