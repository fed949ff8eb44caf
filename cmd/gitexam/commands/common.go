// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/bartekus/gitexam/cmd/gitexam/internal/clierr"
	"github.com/bartekus/gitexam/internal/decision"
	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/examiner"
	"github.com/bartekus/gitexam/internal/fingerprint"
	"github.com/bartekus/gitexam/internal/gitrepo"
	"github.com/bartekus/gitexam/internal/policy"
	"github.com/bartekus/gitexam/internal/redact"
)

// openRepo discovers the enclosing repository and loads its policy. Both
// failures are configuration-level and exit 1.
func openRepo(ctx context.Context) (*gitrepo.Repo, policy.Policy, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, policy.Policy{}, clierr.Wrap(clierr.CodeError, "resolving working directory", err)
	}
	repo, err := gitrepo.Discover(ctx, cwd)
	if err != nil {
		return nil, policy.Policy{}, clierr.Wrap(clierr.CodeError, "gitexam must run inside a git repository", err)
	}
	p, err := policy.Load(repo.Workdir)
	if err != nil {
		return nil, policy.Policy{}, clierr.Wrap(clierr.CodeError, "loading policy", err)
	}
	return repo, p, nil
}

// buildContext sanitizes the diff and computes its fingerprint. An empty
// diff is reported as such so commands can tell the user there is nothing
// to examine.
func buildContext(ctx context.Context, repo *gitrepo.Repo, p policy.Policy, diff string, files []string) (*exam.Context, error) {
	redacted, hits, err := redact.Diff(p, diff)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "applying redactions", err)
	}
	patchID, err := fingerprint.PatchID(redacted)
	if errors.Is(err, fingerprint.ErrEmptyDiff) {
		return nil, clierr.New(clierr.CodeError, "nothing to examine: the diff is empty")
	}
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "fingerprinting diff", err)
	}
	for _, h := range hits {
		slog.Debug("redaction applied", "pattern", h.Pattern, "count", h.Count)
	}
	return exam.NewContext(p, repo.RemoteID(ctx), repo.Workdir, patchID, redacted, files, hits), nil
}

// session holds the outcome of one generate/answer/grade/decide cycle.
type session struct {
	Ctx      *exam.Context
	Exam     *exam.Exam
	Answers  *exam.Answers
	Score    *exam.Score
	Decision decision.Decision
	Reason   string
	Meta     examiner.Metadata
}

// runSession drives the pipeline from a built context and a source of
// answers to a decision. The answers function runs after generation so
// interactive prompting sees the real exam.
func runSession(ctx context.Context, p policy.Policy, ec *exam.Context, answersFor func(*exam.Exam) (*exam.Answers, error)) (*session, error) {
	ex, meta, err := examiner.New(p)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "configuring examiner", err)
	}
	slog.Debug("examiner selected", "provider", meta.Provider, "model", meta.Model)

	e, err := ex.GenerateExam(ctx, ec)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "generating exam", err)
	}
	a, err := answersFor(e)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "collecting answers", err)
	}
	s, err := ex.GradeExam(ctx, ec, e, a)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "grading exam", err)
	}
	d, reason := decision.DecideWithReason(p.Thresholds(), e, a, s)
	return &session{
		Ctx:      ec,
		Exam:     e,
		Answers:  a,
		Score:    s,
		Decision: d,
		Reason:   reason,
		Meta:     meta,
	}, nil
}
