// SPDX-License-Identifier: AGPL-3.0-or-later

package examiner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bartekus/gitexam/internal/exam"
	"github.com/bartekus/gitexam/internal/policy"
)

const defaultOpenAIKeyEnv = "OPENAI_API_KEY"

// OpenAI delegates exam generation and grading to the OpenAI chat
// completions API under the same JSON contract as the subprocess backend.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI builds the API examiner from policy. The key is read from the
// configured environment variable; a missing key is a configuration error
// surfaced before any exam work begins.
func NewOpenAI(p policy.Policy) (*OpenAI, error) {
	keyEnv := p.OpenAI.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultOpenAIKeyEnv
	}
	apiKey := strings.TrimSpace(os.Getenv(keyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("provider openai requires %s to be set", keyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if p.OpenAI.BaseURL != "" {
		cfg.BaseURL = p.OpenAI.BaseURL
	}

	model := p.Model
	if model == "" || model == "static" {
		model = openai.GPT4oMini
	}
	timeout := defaultBackendTimeout
	if p.OpenAI.TimeoutSecs > 0 {
		timeout = time.Duration(p.OpenAI.TimeoutSecs) * time.Second
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}, nil
}

func (o *OpenAI) GenerateExam(ctx context.Context, ec *exam.Context) (*exam.Exam, error) {
	raw, err := o.completeJSON(ctx, buildGeneratePrompt(ec), examSchema())
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

func (o *OpenAI) GradeExam(ctx context.Context, ec *exam.Context, e *exam.Exam, a *exam.Answers) (*exam.Score, error) {
	raw, err := o.completeJSON(ctx, buildJudgePrompt(ec, e, a), scoreSchema())
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

func (o *OpenAI) completeJSON(ctx context.Context, prompt string, schema map[string]any) ([]byte, error) {
	schemaRaw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	slog.Debug("calling openai backend", "model", o.model)
	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Respond with a single JSON object conforming to this JSON Schema, nothing else:\n" +
					string(schemaRaw),
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai call failed: %w", ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", ErrBackend)
	}
	return []byte(resp.Choices[0].Message.Content), nil
}
