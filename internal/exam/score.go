// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"math"
	"sort"
)

// QuestionScore is the per-question grading breakdown. All numeric fields are
// kept in [0,1].
type QuestionScore struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Score        float64  `json:"score"`
	Completeness float64  `json:"completeness"`
	Specificity  float64  `json:"specificity"`
	Notes        []string `json:"notes"`
}

// Score is the outcome of one grading pass.
type Score struct {
	TotalScore         float64         `json:"total_score"`
	PerQuestion        []QuestionScore `json:"per_question"`
	HallucinationFlags []string        `json:"hallucination_flags"`
}

// Clamp forces every numeric field into [0,1], mapping NaN to 0. Applied to
// any score that crossed a trust boundary.
func (s *Score) Clamp() {
	s.TotalScore = clamp01(s.TotalScore)
	for i := range s.PerQuestion {
		s.PerQuestion[i].Score = clamp01(s.PerQuestion[i].Score)
		s.PerQuestion[i].Completeness = clamp01(s.PerQuestion[i].Completeness)
		s.PerQuestion[i].Specificity = clamp01(s.PerQuestion[i].Specificity)
	}
}

// NormalizeFlags deduplicates and sorts the hallucination flags.
func (s *Score) NormalizeFlags() {
	if len(s.HallucinationFlags) == 0 {
		return
	}
	sort.Strings(s.HallucinationFlags)
	out := s.HallucinationFlags[:1]
	for _, f := range s.HallucinationFlags[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	s.HallucinationFlags = out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
