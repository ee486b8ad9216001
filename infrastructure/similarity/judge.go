package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-verity/internal/ports"
)

var _ ports.SimilarityProvider = (*Judge)(nil)

// validate is the package validator for provider configs.
var validate = validator.New()

// Judge defaults.
const (
	DefaultJudgeMaxTokens   = 64
	DefaultJudgeTemperature = 0.0
)

const judgeSystemPrompt = "You grade whether two texts mean the same thing. " +
	"Reply with JSON only."

// DefaultJudgePrompt asks for a single equivalence score.
const DefaultJudgePrompt = `Rate how closely these two texts match in meaning.
Ignore wording, tone and formatting. 1 means they say the same thing, 0 means they are unrelated.

Text A:
{{.A}}

Text B:
{{.B}}

Respond with JSON in exactly this format: {"score": <number between 0 and 1>}`

// JudgeConfig configures a Judge.
type JudgeConfig struct {
	// Temperature for the completion. Zero keeps grading repeatable.
	Temperature float64 `validate:"min=0,max=1"`
	// MaxTokens bounds the reply; the expected output is tiny.
	MaxTokens int `validate:"min=1,max=4096"`
	// Prompt is a text/template with fields A and B.
	Prompt string `validate:"required"`
}

// DefaultJudgeConfig returns the zero-temperature default configuration.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Temperature: DefaultJudgeTemperature,
		MaxTokens:   DefaultJudgeMaxTokens,
		Prompt:      DefaultJudgePrompt,
	}
}

// Judge asks an LLM to rate semantic equivalence. Inputs are put in a
// canonical order before prompting so Similarity(a,b) and Similarity(b,a)
// send the same request.
type Judge struct {
	client ports.LLMClient
	config JudgeConfig
	prompt *template.Template
}

type judgeResponse struct {
	Score *float64 `json:"score"`
}

// NewJudge builds a Judge over client.
func NewJudge(client ports.LLMClient, config JudgeConfig) (*Judge, error) {
	if client == nil {
		return nil, errors.New("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("judge configuration validation failed: %w", err)
	}

	tmpl, err := template.New("judge").Option("missingkey=error").Parse(config.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse judge prompt: %w", err)
	}

	return &Judge{client: client, config: config, prompt: tmpl}, nil
}

// Name implements ports.SimilarityProvider.
func (j *Judge) Name() string { return "judge" }

// Similarity implements ports.SimilarityProvider.
func (j *Judge) Similarity(ctx context.Context, a, b string) (float64, error) {
	if a == b {
		return 1.0, nil
	}
	if a == "" || b == "" {
		return 0, nil
	}
	if b < a {
		a, b = b, a
	}

	var buf bytes.Buffer
	if err := j.prompt.Execute(&buf, struct{ A, B string }{A: a, B: b}); err != nil {
		return 0, fmt.Errorf("failed to execute judge prompt: %w", err)
	}

	response, err := j.client.Complete(ctx, buf.String(), map[string]any{
		"temperature": j.config.Temperature,
		"max_tokens":  j.config.MaxTokens,
		"system":      judgeSystemPrompt,
	})
	if err != nil {
		return 0, fmt.Errorf("judge completion (model %s): %w", j.client.GetModel(), err)
	}

	return parseJudgeScore(response)
}

func parseJudgeScore(response string) (float64, error) {
	raw := extractJSON(response)
	if raw == "" {
		return 0, fmt.Errorf("%w: no JSON object in judge reply (%d chars)",
			ports.ErrInvalidResponse, len(response))
	}

	var resp judgeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ports.ErrInvalidResponse, err)
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("%w: judge reply has no score", ports.ErrInvalidResponse)
	}

	score := *resp.Score
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: judge score %v outside [0,1]", ports.ErrInvalidResponse, score)
	}
	return score, nil
}

// extractJSON returns the first balanced JSON object in response, looking
// inside markdown code fences first.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```"); start != -1 {
		body := response[start+3:]
		if nl := strings.Index(body, "\n"); nl != -1 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			if candidate := strings.TrimSpace(body[:end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
