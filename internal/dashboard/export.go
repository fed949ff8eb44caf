// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard turns stored transcripts into a reviewable export and
// serves it over HTTP for local inspection.
package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bartekus/gitexam/internal/gitrepo"
	"github.com/bartekus/gitexam/internal/transcript"
)

// ExportSchemaVersion identifies the export wire format.
const ExportSchemaVersion = "gitexam-dashboard/0.1"

// Options controls what the export includes.
type Options struct {
	// IncludeAnswers keeps the author's free-text answers in the export.
	// They are stripped by default since exports tend to travel further
	// than the repository does.
	IncludeAnswers bool
	// Limit caps the number of entries, zero means no cap.
	Limit int
}

// Entry pairs a transcript with the commit it gates.
type Entry struct {
	Commit     gitrepo.CommitMeta     `json:"commit"`
	Transcript *transcript.Transcript `json:"transcript"`
}

// Export is the document the dashboard renders.
type Export struct {
	SchemaVersion   string    `json:"schema_version"`
	GeneratedAt     time.Time `json:"generated_at"`
	RepoFingerprint string    `json:"repo_fingerprint"`
	Entries         []Entry   `json:"entries"`
}

// Build assembles the export from stored transcripts. Transcripts whose
// commit no longer resolves are kept with empty commit metadata rather than
// dropped, so the audit trail stays complete.
func Build(ctx context.Context, repo *gitrepo.Repo, store transcript.Store, opts Options) (*Export, error) {
	commits, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := &Export{
		SchemaVersion:   ExportSchemaVersion,
		GeneratedAt:     time.Now().UTC(),
		RepoFingerprint: transcript.FingerprintRepoID(repo.RemoteID(ctx)),
		Entries:         []Entry{},
	}
	for _, sha := range commits {
		if opts.Limit > 0 && len(out.Entries) >= opts.Limit {
			break
		}
		tr, err := store.Get(ctx, sha)
		if err != nil {
			return nil, err
		}
		if !opts.IncludeAnswers {
			tr.Answers.Answers = nil
		}
		meta, err := repo.CommitMeta(ctx, sha)
		if err != nil {
			meta = gitrepo.CommitMeta{SHA: sha}
		}
		out.Entries = append(out.Entries, Entry{Commit: meta, Transcript: tr})
	}
	return out, nil
}

// Encode renders the export as indented JSON.
func (e *Export) Encode() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}
