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

// Package gamefixture serves a minimal stand-in for the game: a homepage and
// a game route with the same visible strings and class names as the real UI,
// progress kept in localStorage.
package gamefixture

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Config shapes the game.
type Config struct {
	Title      string
	StatLabels []string

	// ChoicesToEnding is the number of choices after which the ending modal
	// opens. Zero means the game never ends.
	ChoicesToEnding int
	// MinigameAfter opens a minigame once that many choices were made. Zero
	// disables it.
	MinigameAfter  int
	MinigameClicks int
	// PlainButtons renders choices as bare buttons instead of choice cards.
	PlainButtons bool

	Ending     string
	EndingKind string // positive, negative or rare
}

// DefaultConfig returns a game that ends after five choices with a minigame
// after the second.
func DefaultConfig() Config {
	return Config{
		Title:           "章吉豪模拟器",
		StatLabels:      []string{"学业", "安全", "财富", "台球", "精神"},
		ChoicesToEnding: 5,
		MinigameAfter:   2,
		MinigameClicks:  3,
		Ending:          "🌟 正面结局：诺坎普常客",
		EndingKind:      "positive",
	}
}

// Handler returns the HTTP handler of the game.
func Handler(cfg Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", page("home.html", cfg))
	mux.HandleFunc("GET /game", page("game.html", cfg))
	return mux
}

func page(name string, cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, name, cfg); err != nil {
			log.Printf("gamefixture: %s: %v", name, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(buf.Bytes())
	}
}
