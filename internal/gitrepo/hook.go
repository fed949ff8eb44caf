// SPDX-License-Identifier: AGPL-3.0-or-later

package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
)

const hookScript = `#!/bin/sh
# Installed by gitexam. Blocks raw commits so changes go through the exam.
if [ "$` + AllowCommitEnv + `" = "1" ]; then
  exit 0
fi
echo "commit blocked: run 'gitexam commit' instead of 'git commit'" >&2
echo "(set ` + AllowCommitEnv + `=1 to bypass in an emergency)" >&2
exit 1
`

// InstallPreCommitHook writes the guard hook into .git/hooks. An existing
// hook is only overwritten when force is set.
func (r *Repo) InstallPreCommitHook(force bool) (string, error) {
	hooksDir := filepath.Join(r.GitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", fmt.Errorf("creating hooks dir: %w", err)
	}
	path := filepath.Join(hooksDir, "pre-commit")
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("pre-commit hook already exists at %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(hookScript), 0o755); err != nil {
		return "", fmt.Errorf("writing hook: %w", err)
	}
	return path, nil
}

// UninstallPreCommitHook removes the hook only if it is ours.
func (r *Repo) UninstallPreCommitHook() error {
	path := filepath.Join(r.GitDir, "hooks", "pre-commit")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading hook: %w", err)
	}
	if string(data) != hookScript {
		return fmt.Errorf("pre-commit hook at %s was not installed by gitexam, not removing", path)
	}
	return os.Remove(path)
}
