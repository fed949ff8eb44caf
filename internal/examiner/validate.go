// SPDX-License-Identifier: AGPL-3.0-or-later

package examiner

import (
	"fmt"
	"strings"

	"github.com/bartekus/gitexam/internal/exam"
)

// validateGeneratedExam applies the defensive checks every delegating
// backend's exam must pass before use. Only an empty protocol version is
// repaired (defaulted to the baseline); anything else is fatal.
func validateGeneratedExam(e *exam.Exam) error {
	if strings.TrimSpace(e.ProtocolVersion) == "" {
		e.ProtocolVersion = exam.ProtocolVersion
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return nil
}

// validateGradedScore re-validates a backend-produced score against the exam
// it claims to grade: the per-question id set must match the exam's exactly,
// every numeric field is clamped into [0,1] (NaN -> 0), and our own
// conservative hallucination scan is unioned into the backend's flags.
func validateGradedScore(ec *exam.Context, e *exam.Exam, a *exam.Answers, s *exam.Score) error {
	expected := make(map[string]struct{}, len(e.Questions))
	for _, q := range e.Questions {
		expected[q.ID] = struct{}{}
	}
	got := make(map[string]struct{}, len(s.PerQuestion))
	for _, q := range s.PerQuestion {
		got[q.ID] = struct{}{}
	}
	if len(got) != len(expected) {
		return idSetMismatch(e, s)
	}
	for id := range expected {
		if _, ok := got[id]; !ok {
			return idSetMismatch(e, s)
		}
	}

	s.Clamp()
	for _, q := range e.Questions {
		answer := a.Get(q.ID)
		if answer == "" {
			continue
		}
		for _, token := range fileLikeTokens(answer) {
			if !ec.HasChangedFile(token) {
				s.HallucinationFlags = append(s.HallucinationFlags,
					fmt.Sprintf("%s: mentions file not in diff: %s", q.ID, token))
			}
		}
	}
	s.NormalizeFlags()
	return nil
}

func idSetMismatch(e *exam.Exam, s *exam.Score) error {
	scored := make([]string, len(s.PerQuestion))
	for i, q := range s.PerQuestion {
		scored[i] = q.ID
	}
	return fmt.Errorf("%w: graded question ids %v do not match exam ids %v",
		ErrBackend, scored, e.QuestionIDs())
}
