// SPDX-License-Identifier: AGPL-3.0-or-later

// Package examiner implements the exam generation and grading capability.
//
// Two kinds of backends exist: a deterministic local grader that makes no
// external calls, and delegating backends that forward the sanitized context
// to an external model under a fixed JSON contract. Delegating output is
// never trusted as-is; it is re-validated and clamped before anything
// downstream sees it.
package examiner

import (
	"context"
	"errors"

	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/policy"
)

// ErrBackend marks failures of an external generation/grading backend:
// spawn errors, timeouts, schema violations, id mismatches. Never silently
// downgraded to a default score.
var ErrBackend = errors.New("exam backend")

// Examiner produces an exam from context and a score from an exam plus
// answers. Implementations must not mutate caller state beyond their return
// values.
type Examiner interface {
	GenerateExam(ctx context.Context, ec *exam.Context) (*exam.Exam, error)
	GradeExam(ctx context.Context, ec *exam.Context, e *exam.Exam, a *exam.Answers) (*exam.Score, error)
}

// Metadata describes the backend for transcript provenance.
type Metadata struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`
}

// New selects the examiner variant from policy configuration. The choice is
// made once at construction; callers stay backend-agnostic.
func New(p policy.Policy) (Examiner, Metadata, error) {
	switch p.Provider {
	case "codex-cli":
		ex := NewCodexCLI(p)
		return ex, Metadata{Provider: "codex-cli", Model: ex.model, PromptVersion: promptVersion}, nil
	case "openai":
		ex, err := NewOpenAI(p)
		if err != nil {
			return nil, Metadata{}, err
		}
		return ex, Metadata{Provider: "openai", Model: ex.model, PromptVersion: promptVersion}, nil
	case "local":
		return Static{}, Metadata{Provider: "local", Model: "static", PromptVersion: staticPromptVersion}, nil
	default:
		// policy.Validate rejects unknown providers before we get here
		return nil, Metadata{}, errors.New("unknown provider " + p.Provider)
	}
}
