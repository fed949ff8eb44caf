// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript assembles, serializes and re-verifies the record of an
// exam session. A transcript freezes everything needed to audit the decision
// later: the exam, the answers, the score, the thresholds in force and the
// fingerprint of the change it covers.
package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bartekus/gitexam/internal/decision"
	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/examiner"
	"github.com/bartekus/gitexam/internal/policy"
	"github.com/bartekus/gitexam/internal/redact"
)

// SchemaVersion identifies the transcript wire format. Readers reject
// versions they do not know.
const SchemaVersion = "gitexam-transcript/0.1"

// DiffFingerprint binds the transcript to the exact change it covers.
type DiffFingerprint struct {
	PatchID string `json:"patch_id"`
}

// Transcript is the durable record of one exam session. Commit stays null
// while the exam ran against a staged diff that has not been committed yet.
type Transcript struct {
	ID              string            `json:"id"`
	SchemaVersion   string            `json:"schema_version"`
	Commit          *string           `json:"commit"`
	Timestamp       time.Time         `json:"timestamp"`
	RepoID          string            `json:"repo_id"`
	RepoFingerprint string            `json:"repo_fingerprint"`
	DiffFingerprint DiffFingerprint   `json:"diff_fingerprint"`
	ChangedFiles    []string          `json:"changed_files"`
	Exam            exam.Exam         `json:"exam"`
	Answers         exam.Answers      `json:"answers"`
	Score           exam.Score        `json:"score"`
	Decision        decision.Decision `json:"decision"`
	Thresholds      policy.Thresholds `json:"thresholds"`
	Provider        examiner.Metadata `json:"provider"`
	Redactions      []redact.Hit      `json:"redactions"`
}

// Assemble builds a transcript from the parts of a completed session. The
// thresholds are copied from the policy in force so the transcript stays
// auditable after the policy changes.
func Assemble(p policy.Policy, ectx *exam.Context, e *exam.Exam, a *exam.Answers, s *exam.Score, d decision.Decision, meta examiner.Metadata) *Transcript {
	return &Transcript{
		ID:              uuid.NewString(),
		SchemaVersion:   SchemaVersion,
		Timestamp:       time.Now().UTC(),
		RepoID:          ectx.RepoID,
		RepoFingerprint: FingerprintRepoID(ectx.RepoID),
		DiffFingerprint: DiffFingerprint{PatchID: ectx.PatchID},
		ChangedFiles:    ectx.ChangedFiles,
		Exam:            *e,
		Answers:         *a,
		Score:           *s,
		Decision:        d,
		Thresholds:      p.Thresholds(),
		Provider:        meta,
		Redactions:      ectx.Redactions,
	}
}

// FingerprintRepoID hashes the repository identity so transcripts can be
// matched to a repo even when it moves between URLs or checkouts.
func FingerprintRepoID(repoID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(repoID)))
	return hex.EncodeToString(sum[:])
}

// PatchID is the diff fingerprint the transcript covers.
func (t *Transcript) PatchID() string {
	return t.DiffFingerprint.PatchID
}

// CommitSHA returns the bound commit, empty while unbound.
func (t *Transcript) CommitSHA() string {
	if t.Commit == nil {
		return ""
	}
	return *t.Commit
}

// BindCommit records the commit this transcript gates. Binding twice to a
// different commit is a programming error.
func (t *Transcript) BindCommit(sha string) error {
	if t.Commit != nil && *t.Commit != sha {
		return fmt.Errorf("transcript already bound to %s", *t.Commit)
	}
	t.Commit = &sha
	return nil
}

// Encode renders the transcript as indented JSON.
func (t *Transcript) Encode() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Decode parses a stored transcript, rejecting unknown schema versions
// rather than guessing at their layout.
func Decode(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}
	if t.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported transcript schema %q (want %q)", t.SchemaVersion, SchemaVersion)
	}
	return &t, nil
}

// VerifyAgainstPolicy checks that the recorded session would still pass
// under the current policy. It never regrades: the stored score is taken as
// is and only the decision predicate is re-run.
func (t *Transcript) VerifyAgainstPolicy(current policy.Policy) error {
	if t.Decision != decision.Pass {
		return fmt.Errorf("recorded decision is %q", t.Decision)
	}
	d, reason := decision.DecideWithReason(current.Thresholds(), &t.Exam, &t.Answers, &t.Score)
	if d != decision.Pass {
		return fmt.Errorf("fails under current policy: %s", reason)
	}
	return nil
}

// Summary renders a short human-readable account of the session.
func (t *Transcript) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "transcript %s (%s)\n", t.ID, t.Timestamp.Format(time.RFC3339))
	if t.Commit != nil {
		fmt.Fprintf(&b, "  commit:   %s\n", *t.Commit)
	}
	fmt.Fprintf(&b, "  patch-id: %s\n", t.DiffFingerprint.PatchID)
	fmt.Fprintf(&b, "  provider: %s", t.Provider.Provider)
	if t.Provider.Model != "" {
		fmt.Fprintf(&b, " (%s)", t.Provider.Model)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  decision: %s (score %.2f, min %.2f, flags %d/%d)\n",
		t.Decision, t.Score.TotalScore, t.Thresholds.MinTotalScore,
		len(t.Score.HallucinationFlags), t.Thresholds.MaxHallucinationFlags)
	for _, q := range t.Score.PerQuestion {
		fmt.Fprintf(&b, "    %-20s %.2f  %s\n", q.ID, q.Score, strings.Join(q.Notes, "; "))
	}
	return b.String()
}
