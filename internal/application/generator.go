package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

const (
	summarizePrompt    = "Summarize the following text into a clear and concise context:\n\n%s"
	inContextPrompt    = "Generate %d questions based on the following context in %s. Write one question per line.\n\n%s"
	outOfContextPrompt = "Generate question %d in %s without specific context:\n\n%s"
)

var (
	// listMarker matches "1.", "2)", "-", "*" or "•" bullets.
	listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
	// questionLabel matches "Question 3:" and "Q:" prefixes.
	questionLabel = regexp.MustCompile(`(?i)^\s*(?:question\s*\d*|q\d*)\s*[:.)-]\s*`)
)

// GeneratorConfig controls a QuestionGenerator.
type GeneratorConfig struct {
	Mode      GenerationMode `validate:"required,oneof=in_context out_of_context"`
	Count     int            `validate:"min=1"`
	Language  string         `validate:"required"`
	Context   string
	ChunkSize int `validate:"min=1"`
}

// GeneratorConfigFrom extracts the generator settings from cfg.
func GeneratorConfigFrom(cfg GenerationConfig) GeneratorConfig {
	return GeneratorConfig{
		Mode:      cfg.Mode,
		Count:     cfg.Count,
		Language:  cfg.Language,
		Context:   cfg.Context,
		ChunkSize: cfg.ChunkSize,
	}
}

// QuestionGenerator produces test questions for the agent under test.
// In-context questions come from a summary of the reference bank;
// out-of-context questions come from one completion call each.
// Any completion failure fails the whole generation.
type QuestionGenerator struct {
	client  ports.LLMClient
	config  GeneratorConfig
	metrics ports.MetricsCollector
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewQuestionGenerator validates cfg and returns a generator over client.
func NewQuestionGenerator(client ports.LLMClient, cfg GeneratorConfig, opts ...Option) (*QuestionGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: completion client is required", domain.ErrInvalidConfiguration)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: generator config: %v", domain.ErrInvalidConfiguration, err)
	}

	o := collectOptions(opts)
	return &QuestionGenerator{
		client:  client,
		config:  cfg,
		metrics: o.metrics,
		logger:  o.logger,
		tracer:  otel.Tracer("verity-generator"),
	}, nil
}

// Generate produces the configured number of questions. references is only
// read in the in-context mode.
func (g *QuestionGenerator) Generate(ctx context.Context, references []domain.ReferenceExchange) ([]domain.GeneratedQuestion, error) {
	ctx, span := g.tracer.Start(ctx, "QuestionGenerator.Generate",
		trace.WithAttributes(
			attribute.String("mode", string(g.config.Mode)),
			attribute.Int("count", g.config.Count),
			attribute.String("model", g.client.GetModel()),
		),
	)
	defer span.End()

	var (
		questions []domain.GeneratedQuestion
		err       error
	)
	switch g.config.Mode {
	case GenerateOutOfContext:
		questions, err = g.outOfContext(ctx)
	default:
		var summary string
		if summary, err = g.Summarize(ctx, references); err == nil {
			questions, err = g.InContext(ctx, summary)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "question generation failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("generated", len(questions)))
	g.metrics.RecordCounter("questions_generated_total", float64(len(questions)),
		map[string]string{"mode": string(g.config.Mode)})
	g.logger.InfoContext(ctx, "questions generated",
		"mode", g.config.Mode,
		"requested", g.config.Count,
		"generated", len(questions))
	return questions, nil
}

// Summarize condenses the reference bank into one context text. The bank is
// summarized chunk by chunk, and the chunk summaries are summarized again
// when there is more than one.
func (g *QuestionGenerator) Summarize(ctx context.Context, references []domain.ReferenceExchange) (string, error) {
	chunks := chunkWords(referenceText(references), g.config.ChunkSize)
	if len(chunks) == 0 {
		return "", fmt.Errorf("%w: references contain no question and answer text", domain.ErrMalformedInput)
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		g.logger.DebugContext(ctx, "summarizing chunk", "chunk", i+1, "chunks", len(chunks))
		summary, err := g.complete(ctx, fmt.Sprintf(summarizePrompt, chunk))
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		parts[i] = summary
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	summary, err := g.complete(ctx, fmt.Sprintf(summarizePrompt, strings.Join(parts, " ")))
	if err != nil {
		return "", fmt.Errorf("summarize combined context: %w", err)
	}
	return summary, nil
}

// InContext asks for questions answerable from summary and keeps up to
// Count lines of the reply. Blank lines and headings ending in a colon are
// skipped.
func (g *QuestionGenerator) InContext(ctx context.Context, summary string) ([]domain.GeneratedQuestion, error) {
	reply, err := g.complete(ctx, fmt.Sprintf(inContextPrompt, g.config.Count, g.config.Language, summary))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := make([]domain.GeneratedQuestion, 0, g.config.Count)
	for _, line := range strings.Split(reply, "\n") {
		if len(questions) == g.config.Count {
			break
		}
		q := cleanQuestion(listMarker.ReplaceAllString(line, ""))
		if q == "" || strings.HasSuffix(q, ":") {
			continue
		}
		questions = append(questions, domain.GeneratedQuestion{ID: len(questions) + 1, Question: q})
	}
	return questions, nil
}

func (g *QuestionGenerator) outOfContext(ctx context.Context) ([]domain.GeneratedQuestion, error) {
	questions := make([]domain.GeneratedQuestion, 0, g.config.Count)
	for n := 1; n <= g.config.Count; n++ {
		reply, err := g.complete(ctx, fmt.Sprintf(outOfContextPrompt, n, g.config.Language, g.config.Context))
		if err != nil {
			return nil, fmt.Errorf("generate question %d: %w", n, err)
		}
		q := cleanQuestion(reply)
		if q == "" {
			g.logger.WarnContext(ctx, "empty question dropped", "question", n)
			continue
		}
		questions = append(questions, domain.GeneratedQuestion{ID: len(questions) + 1, Question: q})
	}
	return questions, nil
}

func (g *QuestionGenerator) complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.client.Complete(ctx, prompt, nil)
}

// referenceText joins the entries that have both a question and an answer.
func referenceText(references []domain.ReferenceExchange) string {
	parts := make([]string, 0, len(references))
	for _, r := range references {
		q, a := strings.TrimSpace(r.Question), strings.TrimSpace(r.ExpectedAnswer)
		if q == "" || a == "" {
			continue
		}
		parts = append(parts, q+" "+a)
	}
	return strings.Join(parts, " ")
}

// chunkWords packs whitespace-separated words into chunks of at most size
// characters. A single word longer than size gets a chunk of its own.
func chunkWords(text string, size int) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && cur.Len()+1+len(word) > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// cleanQuestion drops a leading question label, joins lines and strips
// surrounding quotes.
func cleanQuestion(raw string) string {
	q := questionLabel.ReplaceAllString(strings.TrimSpace(raw), "")
	q = strings.Join(strings.Fields(q), " ")
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		q = strings.TrimSpace(q[1 : len(q)-1])
	}
	return q
}
