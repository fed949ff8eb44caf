// SPDX-License-Identifier: AGPL-3.0-or-later

package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the policy file looked up at the repository root.
const FileName = ".gitexam.yaml"

// charsPerToken is the deterministic token->chars estimate used to cap the
// diff context. Thresholds were calibrated against this heuristic; do not
// replace it with real tokenization.
const charsPerToken = 4

// Thresholds is the subset of the policy that the decision engine evaluates.
// A transcript freezes a copy of these at grading time.
type Thresholds struct {
	MinTotalScore         float64  `yaml:"min_total_score" json:"min_total_score"`
	RequiredCategories    []string `yaml:"required_categories" json:"required_categories"`
	MaxHallucinationFlags int      `yaml:"max_hallucination_flags" json:"max_hallucination_flags"`
}

// CodexCLI configures the delegating subprocess examiner.
type CodexCLI struct {
	// Command is the base invocation without subcommand, e.g. "codex" or
	// "npx -y @openai/codex@0.93.0".
	Command string `yaml:"command" json:"command,omitempty"`
	Profile string `yaml:"profile" json:"profile,omitempty"`
	Model   string `yaml:"model" json:"model,omitempty"`
	Sandbox string `yaml:"sandbox" json:"sandbox,omitempty"`
	// TimeoutSecs bounds one backend call; the process is killed on expiry.
	TimeoutSecs int `yaml:"timeout_secs" json:"timeout_secs,omitempty"`
}

// OpenAI configures the delegating API examiner.
type OpenAI struct {
	// APIKeyEnv names the environment variable holding the key. Keys never
	// live in the policy file itself.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url" json:"base_url,omitempty"`
	// TimeoutSecs bounds one API call.
	TimeoutSecs int `yaml:"timeout_secs" json:"timeout_secs,omitempty"`
}

// Hooks controls hook behavior.
type Hooks struct {
	Enforce *bool `yaml:"enforce" json:"enforce,omitempty"`
}

// Policy is the immutable per-invocation configuration. It is loaded once and
// threaded explicitly into every component that needs it.
type Policy struct {
	MinTotalScore         float64  `yaml:"min_total_score"`
	RequiredCategories    []string `yaml:"required_categories"`
	MaxHallucinationFlags int      `yaml:"max_hallucination_flags"`

	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	ExamMode string `yaml:"exam_mode"`
	Store    string `yaml:"store"`

	Redactions       []string `yaml:"redactions"`
	MaxTokensContext int      `yaml:"max_tokens_context"`

	Hooks    Hooks    `yaml:"hooks"`
	CodexCLI CodexCLI `yaml:"codex_cli"`
	OpenAI   OpenAI   `yaml:"openai"`
}

// Default returns the policy used when no file is present.
func Default() Policy {
	return Policy{
		MinTotalScore:         0.75,
		RequiredCategories:    []string{"risk", "rollback", "testing"},
		MaxHallucinationFlags: 0,
		Provider:              "local",
		Model:                 "static",
		ExamMode:              "tui",
		Store:                 "git-notes",
		MaxTokensContext:      4096,
	}
}

// Load reads the policy file from the repository workdir. A missing file
// yields the defaults; a malformed file or an invalid redaction pattern is a
// configuration error surfaced before any exam work begins.
func Load(workdir string) (Policy, error) {
	path := filepath.Join(workdir, FileName)
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path rooted at the repo workdir
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p *Policy) applyDefaults() {
	d := Default()
	if p.MinTotalScore == 0 {
		p.MinTotalScore = d.MinTotalScore
	}
	if len(p.RequiredCategories) == 0 {
		p.RequiredCategories = d.RequiredCategories
	}
	if p.Provider == "" {
		p.Provider = d.Provider
	}
	if p.Model == "" {
		p.Model = d.Model
	}
	if p.ExamMode == "" {
		p.ExamMode = d.ExamMode
	}
	if p.Store == "" {
		p.Store = d.Store
	}
	if p.MaxTokensContext == 0 {
		p.MaxTokensContext = d.MaxTokensContext
	}
}

// Validate checks fields that would otherwise fail deep inside the pipeline.
func (p Policy) Validate() error {
	if p.MinTotalScore < 0 || p.MinTotalScore > 1 {
		return fmt.Errorf("min_total_score must be in [0,1], got %v", p.MinTotalScore)
	}
	if p.MaxHallucinationFlags < 0 {
		return fmt.Errorf("max_hallucination_flags must be >= 0, got %d", p.MaxHallucinationFlags)
	}
	if p.MaxTokensContext < 0 {
		return fmt.Errorf("max_tokens_context must be >= 0, got %d", p.MaxTokensContext)
	}
	switch p.Provider {
	case "local", "codex-cli", "openai":
	default:
		return fmt.Errorf("unknown provider %q (expected local, codex-cli or openai)", p.Provider)
	}
	switch p.Store {
	case "git-notes", "sqlite":
	default:
		return fmt.Errorf("unknown store %q (expected git-notes or sqlite)", p.Store)
	}
	for i, pat := range p.Redactions {
		if _, err := regexp.Compile(pat); err != nil {
			return fmt.Errorf("invalid redaction pattern %d (%q): %w", i, pat, err)
		}
	}
	return nil
}

// Thresholds returns the decision thresholds currently in force.
func (p Policy) Thresholds() Thresholds {
	cats := make([]string, len(p.RequiredCategories))
	copy(cats, p.RequiredCategories)
	return Thresholds{
		MinTotalScore:         p.MinTotalScore,
		RequiredCategories:    cats,
		MaxHallucinationFlags: p.MaxHallucinationFlags,
	}
}

// MaxContextChars converts the token budget into the character cap applied to
// the redacted diff.
func (p Policy) MaxContextChars() int {
	return p.MaxTokensContext * charsPerToken
}

// Set updates a single scalar key, used by `gitexam config set`.
func (p *Policy) Set(key, value string) error {
	switch key {
	case "min_total_score":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("min_total_score must be a number, got %q", value)
		}
		p.MinTotalScore = v
	case "max_hallucination_flags":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_hallucination_flags must be an integer, got %q", value)
		}
		p.MaxHallucinationFlags = v
	case "max_tokens_context":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_tokens_context must be an integer, got %q", value)
		}
		p.MaxTokensContext = v
	case "provider":
		p.Provider = value
	case "model":
		p.Model = value
	case "exam_mode":
		p.ExamMode = value
	case "store":
		p.Store = value
	case "required_categories":
		cats := strings.Split(value, ",")
		out := cats[:0]
		for _, c := range cats {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
		p.RequiredCategories = out
	default:
		return fmt.Errorf("unsupported key: %s", key)
	}
	return p.Validate()
}

// Save writes the policy file to the repository workdir.
func (p Policy) Save(workdir string) (string, error) {
	path := filepath.Join(workdir, FileName)
	raw, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding policy: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil { //nolint:gosec // policy file is not secret
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
