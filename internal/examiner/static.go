// SPDX-License-Identifier: AGPL-3.0-or-later

package examiner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bartekus/gitexam/internal/exam"
)

const staticPromptVersion = "static/0.1"

// Category keyword tables used by the deterministic grader's bonus signal.
var (
	keywordsRisk     = []string{"risk", "break", "fail", "regress", "error", "panic"}
	keywordsTesting  = []string{"test", "unit", "integration", "ci", "coverage"}
	keywordsRollback = []string{"revert", "rollback", "backout", "feature flag", "mitigate"}
	keywordsSecurity = []string{"auth", "authz", "pii", "secret", "token", "key", "encrypt"}
	keywordsDefault  = []string{"file", "module", "function", "line"}
)

// Static is the deterministic examiner: a fixed exam template and a
// reproducible rubric. It doubles as the zero-dependency fallback and as the
// oracle for tests.
type Static struct{}

// GenerateExam returns the fixed 8-question template spanning all default
// categories.
func (Static) GenerateExam(_ context.Context, _ *exam.Context) (*exam.Exam, error) {
	e := &exam.Exam{
		ProtocolVersion: exam.ProtocolVersion,
		Questions: []exam.Question{
			{
				ID:       "change_summary",
				Category: "summary",
				Prompt:   "Summarize what changed (concrete files/modules) and why.",
			},
			{
				ID:       "intent",
				Category: "intent",
				Prompt:   "What user/business requirement does this satisfy?",
			},
			{
				ID:       "invariants",
				Category: "invariants",
				Prompt:   "What assumptions does this change rely on? What invariants must remain true?",
			},
			{
				ID:       "risk",
				Category: "risk",
				Prompt:   "What could break, and where would issues surface first (blast radius)?",
			},
			{
				ID:       "testing",
				Category: "testing",
				Prompt:   "What tests were run? Which should exist? What coverage is missing?",
			},
			{
				ID:       "rollback",
				Category: "rollback",
				Prompt:   "How would you rollback/revert/mitigate if this change causes problems?",
			},
			{
				ID:       "alternatives",
				Category: "alternatives",
				Prompt:   "What alternative approach was considered, and why was it rejected?",
			},
			{
				ID:       "security_privacy",
				Category: "security",
				Prompt:   "Any security/privacy concerns (auth/authz, PII, secrets, data access)? If not relevant, explain why.",
			},
		},
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// GradeExam applies the deterministic rubric. Per question:
// score = 0.4*completeness + 0.4*specificity + 0.2*keywordBonus.
// The total is the unweighted mean of per-question scores.
func (Static) GradeExam(_ context.Context, ec *exam.Context, e *exam.Exam, a *exam.Answers) (*exam.Score, error) {
	score := &exam.Score{PerQuestion: make([]exam.QuestionScore, 0, len(e.Questions))}

	for _, q := range e.Questions {
		answer := a.Get(q.ID)
		var notes []string

		completeness := 1.0
		if answer == "" {
			completeness = 0
			notes = append(notes, "empty answer")
		}

		mentionsFile := ec.MentionsChangedFile(answer)
		if completeness > 0 && !mentionsFile && len(ec.ChangedFiles) > 0 {
			notes = append(notes, "does not mention any changed file path")
		}

		wordCount := len(strings.Fields(answer))
		if completeness > 0 && wordCount < 20 {
			notes = append(notes, fmt.Sprintf("answer is short (%d words)", wordCount))
		}

		specificity := 0.0
		switch {
		case answer == "":
		case mentionsFile:
			specificity = 1.0
		case wordCount >= 20:
			specificity = 0.6
		default:
			specificity = 0.3
		}

		keywords := categoryKeywords(q.Category)
		bonus := keywordBonus(answer, keywords)
		if completeness > 0 && bonus <= 0.2 {
			notes = append(notes, "missing category signals (look for: "+strings.Join(keywords, ", ")+")")
		}

		if completeness > 0 {
			for _, token := range fileLikeTokens(answer) {
				if !ec.HasChangedFile(token) {
					score.HallucinationFlags = append(score.HallucinationFlags,
						fmt.Sprintf("%s: mentions file not in diff: %s", q.ID, token))
				}
			}
		}

		score.PerQuestion = append(score.PerQuestion, exam.QuestionScore{
			ID:           q.ID,
			Category:     q.Category,
			Score:        0.4*completeness + 0.4*specificity + 0.2*bonus,
			Completeness: completeness,
			Specificity:  specificity,
			Notes:        notes,
		})
	}

	if n := len(score.PerQuestion); n > 0 {
		sum := 0.0
		for _, q := range score.PerQuestion {
			sum += q.Score
		}
		score.TotalScore = sum / float64(n)
	}
	score.NormalizeFlags()
	return score, nil
}

func categoryKeywords(category string) []string {
	switch category {
	case "risk":
		return keywordsRisk
	case "testing":
		return keywordsTesting
	case "rollback":
		return keywordsRollback
	case "security":
		return keywordsSecurity
	default:
		return keywordsDefault
	}
}

func keywordBonus(answer string, keywords []string) float64 {
	if strings.TrimSpace(answer) == "" {
		return 0
	}
	lower := strings.ToLower(answer)
	hits := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			hits++
		}
	}
	switch {
	case hits >= 2:
		return 1.0
	case hits == 1:
		return 0.6
	default:
		return 0.2
	}
}

// fileLikeTokens extracts path-shaped tokens: contains both '/' and '.',
// at most 120 chars after trimming surrounding punctuation. Sorted, deduped.
func fileLikeTokens(answer string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, token := range strings.Fields(answer) {
		token = strings.Trim(token, `,.;)("'`+"`")
		if len(token) == 0 || len(token) > 120 {
			continue
		}
		if !strings.Contains(token, "/") || !strings.Contains(token, ".") {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
