// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"context"
	"fmt"

	"github.com/bartekus/gitexam/internal/gitrepo"
	"github.com/bartekus/gitexam/internal/policy"
)

// Store persists transcripts keyed by the commit they gate.
type Store interface {
	Put(ctx context.Context, commit string, t *Transcript) error
	Get(ctx context.Context, commit string) (*Transcript, error)
	// List returns the commits that have a transcript, newest layout order
	// is not guaranteed.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open selects the store backend named by the policy.
func Open(p policy.Policy, repo *gitrepo.Repo) (Store, error) {
	switch p.Store {
	case "git-notes":
		return &notesStore{repo: repo}, nil
	case "sqlite":
		return openSQLite(defaultSQLitePath(repo))
	default:
		return nil, fmt.Errorf("unknown store %q", p.Store)
	}
}

// notesStore keeps transcripts in a git notes ref so they travel with the
// repository and survive clones that fetch the ref.
type notesStore struct {
	repo *gitrepo.Repo
}

func (s *notesStore) Put(ctx context.Context, commit string, t *Transcript) error {
	data, err := t.Encode()
	if err != nil {
		return err
	}
	return s.repo.NoteWrite(ctx, commit, string(data))
}

func (s *notesStore) Get(ctx context.Context, commit string) (*Transcript, error) {
	raw, err := s.repo.NoteRead(ctx, commit)
	if err != nil {
		return nil, err
	}
	return Decode([]byte(raw))
}

func (s *notesStore) List(ctx context.Context) ([]string, error) {
	return s.repo.NoteList(ctx)
}

func (s *notesStore) Close() error { return nil }
