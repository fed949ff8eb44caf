// SPDX-License-Identifier: AGPL-3.0-or-later

// Package decision evaluates a graded exam against policy thresholds.
package decision

import (
	"fmt"

	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/policy"
)

// Decision is the two-valued gate outcome.
type Decision string

const (
	Pass Decision = "pass"
	Fail Decision = "fail"
)

// Decide applies the three independent threshold checks. They are evaluated
// in a fixed order so the first reported reason is stable, but any single
// failure is enough.
func Decide(th policy.Thresholds, e *exam.Exam, a *exam.Answers, s *exam.Score) Decision {
	d, _ := DecideWithReason(th, e, a, s)
	return d
}

// DecideWithReason additionally returns a human-readable failure reason,
// empty on pass.
func DecideWithReason(th policy.Thresholds, e *exam.Exam, a *exam.Answers, s *exam.Score) (Decision, string) {
	if s.TotalScore < th.MinTotalScore {
		return Fail, fmt.Sprintf("total score %.2f below minimum %.2f", s.TotalScore, th.MinTotalScore)
	}
	if len(s.HallucinationFlags) > th.MaxHallucinationFlags {
		return Fail, fmt.Sprintf("%d hallucination flags exceed maximum %d",
			len(s.HallucinationFlags), th.MaxHallucinationFlags)
	}
	for _, cat := range th.RequiredCategories {
		for _, q := range e.Questions {
			if q.Category != cat {
				continue
			}
			if a.Get(q.ID) == "" {
				return Fail, fmt.Sprintf("required category %q has unanswered question %s", cat, q.ID)
			}
		}
	}
	return Pass, ""
}
