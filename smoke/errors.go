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

import "fmt"

// AssertionError is returned when the page does not look the way the game
// contract says it should.
type AssertionError struct {
	Phase   string
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Message)
}

func assertf(phase, format string, args ...any) error {
	return &AssertionError{Phase: phase, Message: fmt.Sprintf(format, args...)}
}
