// SPDX-License-Identifier: AGPL-3.0-or-later

package examiner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/policy"
)

const (
	defaultBackendTimeout = 120 * time.Second
	defaultSandbox        = "read-only"

	// Suggested when the CLI binary is missing.
	npxCodexDownload = "npx -y @openai/codex@0.93.0"
)

// CodexCLI delegates exam generation and grading to a Codex-style CLI run as
// a bounded subprocess: prompt on stdin, schema-constrained JSON written to a
// caller-specified output path.
type CodexCLI struct {
	baseCommand string
	profile     string
	model       string
	sandbox     string
	timeout     time.Duration
}

// NewCodexCLI builds the subprocess examiner from policy.
func NewCodexCLI(p policy.Policy) *CodexCLI {
	cfg := p.CodexCLI
	base := cfg.Command
	if base == "" {
		base = "codex"
	}
	sandbox := cfg.Sandbox
	if sandbox == "" {
		sandbox = defaultSandbox
	}
	timeout := defaultBackendTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	model := cfg.Model
	if model == "" && p.Model != "static" {
		model = p.Model
	}
	return &CodexCLI{
		baseCommand: base,
		profile:     cfg.Profile,
		model:       model,
		sandbox:     sandbox,
		timeout:     timeout,
	}
}

// GenerateExam asks the backend for a diff-aware exam and re-validates it.
func (c *CodexCLI) GenerateExam(ctx context.Context, ec *exam.Context) (*exam.Exam, error) {
	raw, err := c.runJSON(ctx, ec.Workdir, buildGeneratePrompt(ec), examSchema())
	if err != nil {
		return nil, err
	}
	var e exam.Exam
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: parsing generated exam: %w", ErrBackend, err)
	}
	if err := validateGeneratedExam(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GradeExam forwards context, exam and answers to the backend, then applies
// the defensive score validation.
func (c *CodexCLI) GradeExam(ctx context.Context, ec *exam.Context, e *exam.Exam, a *exam.Answers) (*exam.Score, error) {
	raw, err := c.runJSON(ctx, ec.Workdir, buildJudgePrompt(ec, e, a), scoreSchema())
	if err != nil {
		return nil, err
	}
	var s exam.Score
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: parsing graded score: %w", ErrBackend, err)
	}
	if err := validateGradedScore(ec, e, a, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// runJSON spawns one bounded backend invocation. The process is killed and
// its pipes reclaimed if the timeout expires.
func (c *CodexCLI) runJSON(ctx context.Context, workdir, prompt string, schema map[string]any) ([]byte, error) {
	tmp, err := os.MkdirTemp("", "gitexam-backend-*")
	if err != nil {
		return nil, fmt.Errorf("creating backend temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	schemaPath := filepath.Join(tmp, "output.schema.json")
	outputPath := filepath.Join(tmp, "output.json")

	schemaRaw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	if err := os.WriteFile(schemaPath, schemaRaw, 0o600); err != nil {
		return nil, fmt.Errorf("writing %s: %w", schemaPath, err)
	}

	program, args, err := splitCommandLine(c.baseCommand)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	// When the configured base command already names the subcommand, do not
	// append it again.
	if !containsArg(args, "exec") {
		args = append(args, "exec")
	}
	if c.profile != "" {
		args = append(args, "--profile", c.profile)
	}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	args = append(args,
		"--color", "never",
		"--sandbox", c.sandbox,
		"--output-schema", schemaPath,
		"--output-last-message", outputPath,
		"-",
	)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, program, args...)
	cmd.Dir = workdir
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	// Reap a process that ignores the kill signal instead of hanging on its pipes.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out after %s", ErrBackend, program, c.timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited with %d\nstdout:\n%s\nstderr:\n%s",
				ErrBackend, program, exitErr.ExitCode(),
				truncateForError(stdout.String()), truncateForError(stderr.String()))
		}
		return nil, fmt.Errorf("%w: spawning %s: %w (hint: set codex_cli.command in %s, e.g. %q)",
			ErrBackend, program, err, policy.FileName, npxCodexDownload)
	}

	raw, err := os.ReadFile(outputPath) //nolint:gosec // G304: path inside our own temp dir
	if err != nil {
		return nil, fmt.Errorf("%w: backend did not write %s: %w", ErrBackend, outputPath, err)
	}
	return raw, nil
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func truncateForError(s string) string {
	const max = 8000
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[gitexam: output truncated]\n"
}

// splitCommandLine splits a configured base command into program and
// arguments, honoring single and double quotes.
func splitCommandLine(input string) (string, []string, error) {
	var parts []string
	var cur strings.Builder
	inQuote := byte(0)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case inQuote != 0:
			if ch == inQuote {
				inQuote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
		case ch == ' ' || ch == '\t':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote != 0 {
		return "", nil, fmt.Errorf("unbalanced quote in command %q", input)
	}
	flush()
	if len(parts) == 0 {
		return "", nil, errors.New("base command is empty")
	}
	return parts[0], parts[1:], nil
}
