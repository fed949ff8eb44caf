// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fingerprint derives a stable "patch id" from unified diff text.
//
// The id must stay identical across whitespace noise, line-ending changes,
// hunk-position shifts and file reordering, so a transcript can later be
// checked against the commit it was issued for without byte-exact diffs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ErrEmptyDiff is returned when the input contains no file changes.
var ErrEmptyDiff = errors.New("empty diff")

// PatchID computes the normalized fingerprint of a unified diff.
//
// Normalization: only added/removed lines contribute, with trailing
// whitespace and carriage returns stripped; context lines, hunk headers and
// positions are ignored; per-file digests are sorted before the final hash so
// file order does not matter.
func PatchID(diffText string) (string, error) {
	fds, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return "", fmt.Errorf("parsing diff: %w", err)
	}
	if len(fds) == 0 {
		return "", ErrEmptyDiff
	}

	fileDigests := make([]string, 0, len(fds))
	for _, fd := range fds {
		h := sha256.New()
		fmt.Fprintf(h, "%s\x00%s\x00", stripPrefix(fd.OrigName), stripPrefix(fd.NewName))
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if len(line) == 0 {
					continue
				}
				sign := line[0]
				if sign != '+' && sign != '-' {
					continue
				}
				content := strings.TrimRight(line[1:], " \t\r")
				fmt.Fprintf(h, "%c%s\x00", sign, content)
			}
		}
		fileDigests = append(fileDigests, hex.EncodeToString(h.Sum(nil)))
	}

	sort.Strings(fileDigests)
	h := sha256.New()
	for _, d := range fileDigests {
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChangedFiles extracts the changed file paths from diff text, new name
// preferred, deletions reported under their old name.
func ChangedFiles(diffText string) ([]string, error) {
	fds, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	files := make([]string, 0, len(fds))
	for _, fd := range fds {
		name := stripPrefix(fd.NewName)
		if name == "" || name == "/dev/null" {
			name = stripPrefix(fd.OrigName)
		}
		if name != "" && name != "/dev/null" {
			files = append(files, name)
		}
	}
	return files, nil
}

func stripPrefix(name string) string {
	if after, ok := strings.CutPrefix(name, "a/"); ok {
		return after
	}
	if after, ok := strings.CutPrefix(name, "b/"); ok {
		return after
	}
	return name
}
