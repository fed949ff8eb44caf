package examiner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/policy"
)

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input   string
		program string
		args    []string
		wantErr bool
	}{
		{input: "codex", program: "codex"},
		{input: "npx -y @openai/codex@0.93.0", program: "npx", args: []string{"-y", "@openai/codex@0.93.0"}},
		{input: `sh "/path with space/run.sh"`, program: "sh", args: []string{"/path with space/run.sh"}},
		{input: "  ", wantErr: true},
		{input: `broken "quote`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, args, err := splitCommandLine(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.program, program)
			assert.Equal(t, tt.args, args)
		})
	}
}

// fakeBackend writes a script that emulates the backend CLI contract: read
// the prompt from stdin, write the canned JSON to the --output-last-message
// path, exit with the given code.
func fakeBackend(t *testing.T, response string, exitCode, sleepSecs int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake backend script requires a POSIX shell")
	}

	dir := t.TempDir()
	respPath := filepath.Join(dir, "response.json")
	require.NoError(t, os.WriteFile(respPath, []byte(response), 0o600))

	script := `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "--output-last-message" ]; then out="$a"; fi
  prev="$a"
done
cat > /dev/null
sleep ` + strconv.Itoa(sleepSecs) + `
cp "` + respPath + `" "$out"
exit ` + strconv.Itoa(exitCode) + `
`
	path := filepath.Join(dir, "backend.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))
	return "sh " + path
}

func backendPolicy(command string, timeoutSecs int) policy.Policy {
	p := policy.Default()
	p.Provider = "codex-cli"
	p.CodexCLI.Command = command
	p.CodexCLI.TimeoutSecs = timeoutSecs
	return p
}

func TestCodexCLIGenerateExam(t *testing.T) {
	response := `{
  "protocol_version": "",
  "questions": [
    {"id": "q1", "category": "summary", "prompt": "What changed?", "choices": null},
    {"id": "q2", "category": "risk", "prompt": "Pick the risk", "choices": ["a", "b", "c", "d"]},
    {"id": "q3", "category": "testing", "prompt": "Tests?", "choices": null},
    {"id": "q4", "category": "rollback", "prompt": "Rollback?", "choices": null}
  ]
}`
	ex := NewCodexCLI(backendPolicy(fakeBackend(t, response, 0, 0), 30))

	e, err := ex.GenerateExam(context.Background(), testContext("src/a.go"))
	require.NoError(t, err)
	assert.Equal(t, exam.ProtocolVersion, e.ProtocolVersion)
	require.Len(t, e.Questions, 4)
	assert.Equal(t, []string{"a", "b", "c", "d"}, e.Questions[1].Choices)
}

func TestCodexCLIGenerateExamRejectsDuplicateIDs(t *testing.T) {
	response := `{"protocol_version": "x", "questions": [
    {"id": "dup", "category": "summary", "prompt": "p", "choices": null},
    {"id": "dup", "category": "risk", "prompt": "p", "choices": null}
  ]}`
	ex := NewCodexCLI(backendPolicy(fakeBackend(t, response, 0, 0), 30))

	_, err := ex.GenerateExam(context.Background(), testContext())
	assert.ErrorIs(t, err, ErrBackend)
}

func TestCodexCLIGradeExam(t *testing.T) {
	e := &exam.Exam{
		ProtocolVersion: exam.ProtocolVersion,
		Questions:       []exam.Question{{ID: "q1", Category: "risk", Prompt: "p"}},
	}
	a := &exam.Answers{Answers: map[string]string{"q1": "the risk is low"}}

	score := exam.Score{
		TotalScore: 0.9,
		PerQuestion: []exam.QuestionScore{
			{ID: "q1", Category: "risk", Score: 0.9, Completeness: 1, Specificity: 0.8, Notes: []string{}},
		},
		HallucinationFlags: []string{},
	}
	raw, err := json.Marshal(score)
	require.NoError(t, err)

	ex := NewCodexCLI(backendPolicy(fakeBackend(t, string(raw), 0, 0), 30))
	got, err := ex.GradeExam(context.Background(), testContext("src/a.go"), e, a)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.TotalScore)
}

func TestCodexCLIGradeExamIDMismatchProducesNoScore(t *testing.T) {
	e := &exam.Exam{Questions: []exam.Question{{ID: "q1"}, {ID: "q2"}}}
	response := `{"total_score": 1, "per_question": [
    {"id": "q1", "category": "risk", "score": 1, "completeness": 1, "specificity": 1, "notes": []}
  ], "hallucination_flags": []}`

	ex := NewCodexCLI(backendPolicy(fakeBackend(t, response, 0, 0), 30))
	got, err := ex.GradeExam(context.Background(), testContext(), e, &exam.Answers{})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrBackend)
}

func TestCodexCLINonZeroExitIsFatal(t *testing.T) {
	ex := NewCodexCLI(backendPolicy(fakeBackend(t, "{}", 3, 0), 30))
	_, err := ex.GenerateExam(context.Background(), testContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "exited with 3")
}

func TestCodexCLITimeoutKillsBackend(t *testing.T) {
	ex := NewCodexCLI(backendPolicy(fakeBackend(t, "{}", 0, 5), 1))

	start := time.Now()
	_, err := ex.GenerateExam(context.Background(), testContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCodexCLISpawnFailure(t *testing.T) {
	ex := NewCodexCLI(backendPolicy("/nonexistent/gitexam-backend-binary", 5))
	_, err := ex.GenerateExam(context.Background(), testContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
}
