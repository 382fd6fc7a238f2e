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
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Report is what a run observed. It is returned even when the run fails.
type Report struct {
	RunID string
	// Lines is the transcript, one entry per logged line.
	Lines []string

	Rounds        int
	Choices       int
	EndingReached bool
	EndingTitle   string
	Returned      bool
	Collection    bool

	Screenshots   []string
	ConsoleErrors []string
}

func newReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

func (r *Report) add(line string) {
	r.Lines = append(r.Lines, line)
	log.Print(line)
}

func (r *Report) phase(n int, name string) {
	r.add(fmt.Sprintf("=== Test %d: %s ===", n, name))
}

func (r *Report) pass(format string, args ...any) {
	r.add("✓ " + fmt.Sprintf(format, args...))
}

func (r *Report) warn(format string, args ...any) {
	r.add("⚠ " + fmt.Sprintf(format, args...))
}

func (r *Report) detail(format string, args ...any) {
	r.add("  - " + fmt.Sprintf(format, args...))
}
