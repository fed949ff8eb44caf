// SPDX-License-Identifier: AGPL-3.0-or-later

package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, out)
	}
}

func createFile(t *testing.T, dir, path, content string) {
	t.Helper()
	fullPath := filepath.Join(dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0644))
}

func TestDiscover(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)

	sub := filepath.Join(dir, "pkg", "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))

	repo, err := Discover(ctx, sub)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, repo.Workdir)
	assert.DirExists(t, repo.GitDir)
}

func TestDiscoverOutsideRepo(t *testing.T) {
	_, err := Discover(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
}

func TestDiffStaged(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)

	createFile(t, dir, "main.go", "package main\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial")

	createFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	createFile(t, dir, "util.go", "package main\n")
	runGit(t, dir, "add", ".")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)

	diff, files, err := repo.DiffStaged(ctx)
	require.NoError(t, err)
	assert.Contains(t, diff, "func main() {}")
	assert.Equal(t, []string{"main.go", "util.go"}, files)
}

func TestDiffStagedEmpty(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	createFile(t, dir, "main.go", "package main\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)

	diff, files, err := repo.DiffStaged(ctx)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(diff))
	assert.Empty(t, files)
}

func TestDiffRangeAndCommitDiff(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	createFile(t, dir, "a.txt", "one\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "first")
	createFile(t, dir, "a.txt", "two\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "second")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)

	diff, files, err := repo.DiffRange(ctx, "HEAD~1..HEAD")
	require.NoError(t, err)
	assert.Contains(t, diff, "+two")
	assert.Equal(t, []string{"a.txt"}, files)

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	commitDiff, err := repo.CommitDiff(ctx, head)
	require.NoError(t, err)
	assert.Contains(t, commitDiff, "+two")
	assert.Contains(t, commitDiff, "-one")
}

func TestResolveCommitish(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	createFile(t, dir, "a.txt", "one\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "first")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	resolved, err := repo.ResolveCommitish(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, head, resolved)

	_, err = repo.ResolveCommitish(ctx, "no-such-ref")
	require.Error(t, err)
}

func TestRemoteID(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	repo, err := Discover(ctx, dir)
	require.NoError(t, err)

	// No remote configured: identity falls back to the workdir.
	assert.Equal(t, repo.Workdir, repo.RemoteID(ctx))

	runGit(t, dir, "remote", "add", "origin", "https://example.com/team/repo.git")
	assert.Equal(t, "https://example.com/team/repo.git", repo.RemoteID(ctx))
}

func TestNotesRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	createFile(t, dir, "a.txt", "one\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "first")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)
	head, err := repo.Head(ctx)
	require.NoError(t, err)

	commits, err := repo.NoteList(ctx)
	require.NoError(t, err)
	assert.Empty(t, commits)

	require.NoError(t, repo.NoteWrite(ctx, head, `{"ok":true}`))
	got, err := repo.NoteRead(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, strings.TrimSpace(got))

	// Overwrite is allowed.
	require.NoError(t, repo.NoteWrite(ctx, head, `{"ok":false}`))
	got, err = repo.NoteRead(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":false}`, strings.TrimSpace(got))

	commits, err = repo.NoteList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{head}, commits)
}

func TestNoteReadMissing(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	createFile(t, dir, "a.txt", "one\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "first")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)
	head, err := repo.Head(ctx)
	require.NoError(t, err)

	_, err = repo.NoteRead(ctx, head)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript note")
}

func TestCommitMeta(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	createFile(t, dir, "a.txt", "one\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "add a.txt")

	repo, err := Discover(ctx, dir)
	require.NoError(t, err)
	head, err := repo.Head(ctx)
	require.NoError(t, err)

	meta, err := repo.CommitMeta(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, head, meta.SHA)
	assert.Equal(t, "Test User", meta.AuthorName)
	assert.Equal(t, "test@example.com", meta.AuthorEmail)
	assert.Equal(t, "add a.txt", meta.Subject)
	assert.NotEmpty(t, meta.AuthorDate)
}

func TestCommitWithAllowEnv(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	repo, err := Discover(ctx, dir)
	require.NoError(t, err)

	_, err = repo.InstallPreCommitHook(false)
	require.NoError(t, err)

	createFile(t, dir, "a.txt", "one\n")
	runGit(t, dir, "add", ".")

	// Raw git commit is blocked by the hook.
	cmd := exec.Command("git", "commit", "-m", "raw")
	cmd.Dir = dir
	out, rawErr := cmd.CombinedOutput()
	require.Error(t, rawErr, "hook should block raw commit, got: %s", out)
	assert.Contains(t, string(out), "gitexam commit")

	// Commit through the repo wrapper sets the allow env.
	require.NoError(t, repo.Commit(ctx, "through gitexam", nil))
	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, head)
}

func TestInstallPreCommitHook(t *testing.T) {
	dir := initRepo(t)
	repo, err := Discover(context.Background(), dir)
	require.NoError(t, err)

	path, err := repo.InstallPreCommitHook(false)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	// Second install without force fails.
	_, err = repo.InstallPreCommitHook(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = repo.InstallPreCommitHook(true)
	require.NoError(t, err)
}

func TestUninstallPreCommitHook(t *testing.T) {
	dir := initRepo(t)
	repo, err := Discover(context.Background(), dir)
	require.NoError(t, err)

	// Removing an absent hook is fine.
	require.NoError(t, repo.UninstallPreCommitHook())

	path, err := repo.InstallPreCommitHook(false)
	require.NoError(t, err)
	require.NoError(t, repo.UninstallPreCommitHook())
	assert.NoFileExists(t, path)

	// A foreign hook is left alone.
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	err = repo.UninstallPreCommitHook()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed by gitexam")
}
