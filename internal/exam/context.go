// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"strings"

	"github.com/bartekus/gitexam/internal/policy"
	"github.com/bartekus/gitexam/internal/redact"
)

// TruncationMarker is appended when the redacted diff exceeds the policy's
// context budget.
const TruncationMarker = "\n\n[gitexam: diff truncated]\n"

// Context is the sanitized input bundle for one exam/commit cycle. Built once
// and never mutated afterwards; the only transformation is the bounded
// truncation applied at construction time.
type Context struct {
	RepoID       string
	Workdir      string
	PatchID      string
	Diff         string
	ChangedFiles []string
	Redactions   []redact.Hit
}

// NewContext builds the exam context, capping the redacted diff at the
// policy's character budget. The truncation is by raw character count from a
// fixed tokens-to-chars estimate; deliberately crude but deterministic.
func NewContext(p policy.Policy, repoID, workdir, patchID, redactedDiff string, changedFiles []string, hits []redact.Hit) *Context {
	diffText := redactedDiff
	if max := p.MaxContextChars(); max > 0 && len(diffText) > max {
		diffText = diffText[:max] + TruncationMarker
	}
	return &Context{
		RepoID:       repoID,
		Workdir:      workdir,
		PatchID:      patchID,
		Diff:         diffText,
		ChangedFiles: changedFiles,
		Redactions:   hits,
	}
}

// MentionsChangedFile reports whether the text contains any changed-file
// path literally.
func (c *Context) MentionsChangedFile(text string) bool {
	for _, f := range c.ChangedFiles {
		if f != "" && strings.Contains(text, f) {
			return true
		}
	}
	return false
}

// HasChangedFile reports whether path is exactly one of the changed files.
func (c *Context) HasChangedFile(path string) bool {
	for _, f := range c.ChangedFiles {
		if f == path {
			return true
		}
	}
	return false
}
