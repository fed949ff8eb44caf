package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	p, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0.75, p.MinTotalScore)
	assert.Equal(t, []string{"risk", "rollback", "testing"}, p.RequiredCategories)
	assert.Equal(t, 0, p.MaxHallucinationFlags)
	assert.Equal(t, "local", p.Provider)
	assert.Equal(t, "git-notes", p.Store)
	assert.Equal(t, 4096*4, p.MaxContextChars())
}

func TestLoadPartialFileKeepsDefaultsForAbsentFields(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "min_total_score: 0.9\nprovider: codex-cli\n")

	p, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.9, p.MinTotalScore)
	assert.Equal(t, "codex-cli", p.Provider)
	assert.Equal(t, []string{"risk", "rollback", "testing"}, p.RequiredCategories)
	assert.Equal(t, "tui", p.ExamMode)
	assert.Equal(t, 4096, p.MaxTokensContext)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "min_total_score: [not a number\n")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidRedactionPattern(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "redactions:\n  - '[unterminated'\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redaction pattern")
}

func TestLoadRejectsUnknownProviderAndStore(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "provider: carrier-pigeon\n")
	_, err := Load(dir)
	assert.ErrorContains(t, err, "unknown provider")

	writePolicy(t, dir, "store: s3\n")
	_, err = Load(dir)
	assert.ErrorContains(t, err, "unknown store")
}

func TestSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(t *testing.T, p Policy)
	}{
		{key: "min_total_score", value: "0.5", check: func(t *testing.T, p Policy) {
			assert.Equal(t, 0.5, p.MinTotalScore)
		}},
		{key: "min_total_score", value: "high", wantErr: true},
		{key: "min_total_score", value: "1.5", wantErr: true},
		{key: "max_hallucination_flags", value: "3", check: func(t *testing.T, p Policy) {
			assert.Equal(t, 3, p.MaxHallucinationFlags)
		}},
		{key: "provider", value: "openai", check: func(t *testing.T, p Policy) {
			assert.Equal(t, "openai", p.Provider)
		}},
		{key: "store", value: "sqlite", check: func(t *testing.T, p Policy) {
			assert.Equal(t, "sqlite", p.Store)
		}},
		{key: "required_categories", value: "risk, testing", check: func(t *testing.T, p Policy) {
			assert.Equal(t, []string{"risk", "testing"}, p.RequiredCategories)
		}},
		{key: "favorite_color", value: "blue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			p := Default()
			err := p.Set(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := Default()
	p.MinTotalScore = 0.8
	p.Provider = "codex-cli"
	p.CodexCLI.TimeoutSecs = 60

	path, err := p.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.MinTotalScore)
	assert.Equal(t, "codex-cli", got.Provider)
	assert.Equal(t, 60, got.CodexCLI.TimeoutSecs)
}

func TestThresholdsIsACopy(t *testing.T) {
	p := Default()
	th := p.Thresholds()
	th.RequiredCategories[0] = "mutated"
	assert.Equal(t, "risk", p.RequiredCategories[0])
}

func writePolicy(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}
