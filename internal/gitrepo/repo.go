// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gitrepo wraps the git subprocess surface the exam pipeline needs:
// diff retrieval, commit plumbing, notes storage and hook installation.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// AllowCommitEnv lets the installed pre-commit hook distinguish commits made
// through gitexam from raw `git commit` invocations.
const AllowCommitEnv = "GITEXAM_ALLOW_COMMIT"

// NotesRef is the notes side-channel transcripts are stored under.
const NotesRef = "gitexam"

// Repo is a discovered git repository.
type Repo struct {
	Workdir string
	GitDir  string
}

// Discover locates the repository enclosing dir by asking git.
func Discover(ctx context.Context, dir string) (*Repo, error) {
	workdir, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	workdir = strings.TrimSpace(workdir)

	gitDir, err := gitOutput(ctx, workdir, "rev-parse", "--git-dir")
	if err != nil {
		return nil, fmt.Errorf("resolving git dir: %w", err)
	}
	gitDir = strings.TrimSpace(gitDir)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(workdir, gitDir)
	}
	return &Repo{Workdir: workdir, GitDir: gitDir}, nil
}

// DiffStaged returns the staged diff and the changed file list.
func (r *Repo) DiffStaged(ctx context.Context) (string, []string, error) {
	return r.diffWith(ctx, "diff", "--staged")
}

// DiffRange returns the diff and changed files for a range like HEAD~1..HEAD.
func (r *Repo) DiffRange(ctx context.Context, rangeSpec string) (string, []string, error) {
	return r.diffWith(ctx, "diff", rangeSpec)
}

func (r *Repo) diffWith(ctx context.Context, args ...string) (string, []string, error) {
	diffArgs := append(append([]string{}, args...), "--unified=0")
	diff, err := r.git(ctx, diffArgs...)
	if err != nil {
		return "", nil, err
	}
	nameArgs := append(append([]string{}, args...), "--name-only")
	namesRaw, err := r.git(ctx, nameArgs...)
	if err != nil {
		return "", nil, err
	}
	var files []string
	for _, line := range strings.Split(namesRaw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return diff, files, nil
}

// CommitDiff returns the diff text of an existing commit.
func (r *Repo) CommitDiff(ctx context.Context, commit string) (string, error) {
	return r.git(ctx, "show", "--pretty=format:", "--unified=0", commit)
}

// Head resolves the current HEAD commit hash.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ResolveCommitish resolves any commit-ish expression to a full hash.
func (r *Repo) ResolveCommitish(ctx context.Context, commitish string) (string, error) {
	out, err := r.git(ctx, "rev-parse", commitish)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RemoteID returns the origin URL when one exists, used as a stable
// repository identity that survives checkout moves. Falls back to the
// workdir path.
func (r *Repo) RemoteID(ctx context.Context) string {
	out, err := r.git(ctx, "remote", "get-url", "origin")
	if err != nil {
		return r.Workdir
	}
	if url := strings.TrimSpace(out); url != "" {
		return url
	}
	return r.Workdir
}

// Commit runs `git commit` in the workdir with the allow-commit environment
// set so the installed hook lets it through.
func (r *Repo) Commit(ctx context.Context, message string, extraArgs []string) error {
	args := []string{"commit"}
	if message != "" {
		args = append(args, "-m", message)
	}
	args = append(args, extraArgs...)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Workdir
	cmd.Env = append(os.Environ(), AllowCommitEnv+"=1")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git commit failed: %w", err)
	}
	return nil
}

// NoteWrite stores a blob under the gitexam notes ref for a commit,
// overwriting any previous note.
func (r *Repo) NoteWrite(ctx context.Context, commit, content string) error {
	_, err := r.git(ctx, "notes", "--ref="+NotesRef, "add", "-f", "-m", content, commit)
	if err != nil {
		return fmt.Errorf("git notes add: %w", err)
	}
	return nil
}

// NoteRead loads the blob stored for a commit. Missing notes surface as an
// error from git.
func (r *Repo) NoteRead(ctx context.Context, commit string) (string, error) {
	out, err := r.git(ctx, "notes", "--ref="+NotesRef, "show", commit)
	if err != nil {
		return "", fmt.Errorf("no transcript note for %s: %w", commit, err)
	}
	return out, nil
}

// NoteList returns the commits that carry a gitexam note.
func (r *Repo) NoteList(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "notes", "--ref="+NotesRef, "list")
	if err != nil {
		// An absent ref means nothing was stored yet.
		return nil, nil
	}
	var commits []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			commits = append(commits, fields[1])
		}
	}
	return commits, nil
}

// CommitMeta returns author and subject metadata for one commit.
func (r *Repo) CommitMeta(ctx context.Context, commit string) (CommitMeta, error) {
	out, err := r.git(ctx, "show", "-s", "--format=%H%x00%an%x00%ae%x00%aI%x00%s", commit)
	if err != nil {
		return CommitMeta{}, err
	}
	fields := strings.Split(strings.TrimRight(out, "\n"), "\x00")
	if len(fields) != 5 {
		return CommitMeta{}, fmt.Errorf("unexpected git show output for %s", commit)
	}
	return CommitMeta{
		SHA:         fields[0],
		AuthorName:  fields[1],
		AuthorEmail: fields[2],
		AuthorDate:  fields[3],
		Subject:     fields[4],
	}, nil
}

// CommitMeta is the commit metadata exported to the dashboard.
type CommitMeta struct {
	SHA         string `json:"sha"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	AuthorDate  string `json:"author_date_iso"`
	Subject     string `json:"subject"`
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	return gitOutput(ctx, r.Workdir, args...)
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s failed: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("running git %s: %w", args[0], err)
	}
	return string(out), nil
}
