// SPDX-License-Identifier: AGPL-3.0-or-later

// Package exam holds the protocol types shared by the examiner, the decision
// engine and the transcript: exams, answers, scores and the sanitized context
// an exam is generated from.
package exam

import (
	"fmt"
	"strings"
)

// ProtocolVersion is the baseline exam protocol understood by this build.
const ProtocolVersion = "gitexam/0.1"

// Categories covered by the default generator. Backends may use free-form
// category strings, but the required-category policy check matches against
// these by convention.
var Categories = []string{
	"summary", "intent", "invariants", "risk",
	"testing", "rollback", "alternatives", "security",
}

// Question is one exam item. A non-nil Choices slice (2-6 options) marks the
// question as multiple-choice.
type Question struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices,omitempty"`
}

// Exam is a protocol-versioned ordered sequence of questions.
type Exam struct {
	ProtocolVersion string     `json:"protocol_version"`
	Questions       []Question `json:"questions"`
}

// Validate enforces the structural invariants every exam must satisfy,
// wherever it came from: non-empty unique question ids. A violation is a hard
// generation failure, not a warning.
func (e *Exam) Validate() error {
	seen := make(map[string]struct{}, len(e.Questions))
	for _, q := range e.Questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return fmt.Errorf("exam question id is empty (category %q)", q.Category)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("exam contains duplicate question id: %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// QuestionIDs returns the ids in exam order.
func (e *Exam) QuestionIDs() []string {
	ids := make([]string, len(e.Questions))
	for i, q := range e.Questions {
		ids[i] = q.ID
	}
	return ids
}
