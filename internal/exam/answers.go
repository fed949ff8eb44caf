// SPDX-License-Identifier: AGPL-3.0-or-later

package exam

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Answers maps question id to free-text answer. Unanswered questions are
// absent or empty; the grader treats both the same. The content is opaque
// input supplied interactively or as a structured payload.
type Answers struct {
	Answers map[string]string `json:"answers"`
}

// Get returns the trimmed answer for a question id, empty if unanswered.
func (a *Answers) Get(id string) string {
	if a == nil || a.Answers == nil {
		return ""
	}
	return strings.TrimSpace(a.Answers[id])
}

// LoadAnswers reads an answers JSON payload from a file path, or stdin when
// path is "-".
func LoadAnswers(path string) (*Answers, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path) //nolint:gosec // G304: answers path is user-supplied by design
	}
	if err != nil {
		return nil, fmt.Errorf("reading answers: %w", err)
	}
	var a Answers
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parsing answers JSON: %w", err)
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	return &a, nil
}

// PromptAnswers collects one multiline answer per question from in,
// terminated by a lone "." line. It works over plain pipes so the exam can
// run inside hook environments without a TTY.
func PromptAnswers(e *Exam, in io.Reader, out io.Writer) (*Answers, error) {
	reader := bufio.NewScanner(in)
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	answers := make(map[string]string, len(e.Questions))
	fmt.Fprintf(out, "gitexam: answer the following %d questions.\n\n", len(e.Questions))
	for _, q := range e.Questions {
		fmt.Fprintf(out, "--- [%s] %s ---\n", q.Category, q.Prompt)
		for i, choice := range q.Choices {
			fmt.Fprintf(out, "  %c) %s\n", 'A'+i, choice)
		}
		fmt.Fprintf(out, "(end your answer with a single '.' on its own line)\n\n")

		var b strings.Builder
		for reader.Scan() {
			line := reader.Text()
			if strings.TrimSpace(line) == "." {
				break
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if err := reader.Err(); err != nil {
			return nil, fmt.Errorf("reading answer for %s: %w", q.ID, err)
		}
		answers[q.ID] = strings.TrimRight(b.String(), "\n")
		fmt.Fprintln(out)
	}
	return &Answers{Answers: answers}, nil
}
