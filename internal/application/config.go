package application

import (
	"time"
)

// SelectionPolicy decides which reference entry an observation is paired
// with when more than one question crosses the threshold.
type SelectionPolicy string

// Supported selection policies.
const (
	// SelectFirst takes the first reference, in reference order, whose
	// question similarity exceeds the threshold. This is the default and
	// makes results depend on reference ordering.
	SelectFirst SelectionPolicy = "first"

	// SelectBest scans every reference and takes the highest scoring one
	// above the threshold. Ties go to the earliest reference.
	SelectBest SelectionPolicy = "best"
)

// GenerationMode selects how test questions are produced.
type GenerationMode string

// Supported generation modes.
const (
	// GenerateInContext summarizes the reference bank and asks for
	// questions the bank can answer.
	GenerateInContext GenerationMode = "in_context"

	// GenerateOutOfContext asks for questions unrelated to the bank, one
	// call per question, to exercise the no-match path.
	GenerateOutOfContext GenerationMode = "out_of_context"
)

// Default thresholds and limits.
const (
	DefaultQuestionThreshold = 0.75
	DefaultAnswerThreshold   = 0.75
	DefaultSuccessThreshold  = 90.0
	DefaultRiskyThreshold    = 80.0
	DefaultWorkers           = 1
	DefaultCallTimeout       = 30 * time.Second
	MaxWorkers               = 64
	DefaultQuestionCount     = 10
	DefaultChunkSize         = 2000
)

// EngineConfig is the complete configuration of a verification run and the
// document a YAML config file decodes into.
type EngineConfig struct {
	// Matching controls how observations are paired with references.
	Matching MatchingConfig `yaml:"matching"`
	// Classification controls the final three-way disposition.
	Classification ClassificationConfig `yaml:"classification"`
	// Provider selects and configures the similarity provider.
	Provider ProviderConfig `yaml:"provider"`
	// Inputs names the observation and reference files.
	Inputs InputsConfig `yaml:"inputs"`
	// Output names the files results are written to.
	Output OutputConfig `yaml:"output"`
	// Generation configures test question generation.
	Generation GenerationConfig `yaml:"generation"`
}

// MatchingConfig holds the matcher's thresholds and execution limits.
// These thresholds are fractions in [0,1] and are compared strictly.
type MatchingConfig struct {
	// QuestionThreshold is the similarity a reference question must exceed
	// to be selected.
	QuestionThreshold float64 `yaml:"question_threshold" validate:"min=0,max=1"`
	// AnswerThreshold is the similarity the answer must exceed for the
	// match to be labelled a semantic match rather than an answer mismatch.
	AnswerThreshold float64 `yaml:"answer_threshold" validate:"min=0,max=1"`
	// Selection is the reference selection policy.
	Selection SelectionPolicy `yaml:"selection" validate:"required,oneof=first best"`
	// Workers bounds how many observations are matched concurrently.
	Workers int `yaml:"workers" validate:"min=1,max=64"`
	// CallTimeout bounds every similarity call. Zero disables the bound.
	CallTimeout time.Duration `yaml:"call_timeout" validate:"min=0s"`
}

// ClassificationConfig holds the report-stage thresholds. These are
// percentages in [0,100] and are compared inclusively.
type ClassificationConfig struct {
	// SuccessThreshold is the minimum answer similarity for Successful.
	SuccessThreshold float64 `yaml:"success_threshold" validate:"min=0,max=100"`
	// RiskyThreshold is the minimum answer similarity for Risky.
	RiskyThreshold float64 `yaml:"risky_threshold" validate:"min=0,max=100,ltefield=SuccessThreshold"`
}

// ProviderConfig selects the similarity provider and its backing model.
type ProviderConfig struct {
	// Type is the provider kind: openai, google and ollama embed text and
	// compare vectors, lexical compares edit distance offline, and judge
	// asks an LLM to score the pair.
	Type string `yaml:"type" validate:"required,oneof=openai google ollama lexical judge"`
	// Model overrides the provider's default model.
	Model string `yaml:"model" validate:"max=200"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" validate:"omitempty,max=200,envname"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// Timeout bounds each request at the transport level.
	Timeout time.Duration `yaml:"timeout" validate:"min=0s"`
	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
	// Burst is the token bucket size used with RateLimit.
	Burst int `yaml:"burst" validate:"min=0,max=1000"`
	// Cache memoizes embeddings per normalized text for the run.
	Cache bool `yaml:"cache"`
	// JudgeBackend is the completion provider behind the judge type.
	JudgeBackend string `yaml:"judge_backend" validate:"omitempty,oneof=anthropic openai"`
}

// InputsConfig names the files a run reads.
type InputsConfig struct {
	// Observations is a JSON array of {question, answer} objects.
	Observations string `yaml:"observations"`
	// References is a JSON array of {"Question", "Expected Answer"}
	// objects, or a CSV file with those headers.
	References string `yaml:"references"`
}

// OutputConfig names the files a run writes.
type OutputConfig struct {
	// Results receives the per-record wire format.
	Results string `yaml:"results"`
	// Report receives the run metadata, summary and records.
	Report string `yaml:"report"`
}

// GenerationConfig drives the question generator and its completion model.
type GenerationConfig struct {
	Mode GenerationMode `yaml:"mode" validate:"required,oneof=in_context out_of_context"`
	// Count is the number of questions to produce.
	Count int `yaml:"count" validate:"min=1,max=500"`
	// Language is named in the prompt, e.g. English or Danish.
	Language string `yaml:"language" validate:"required,max=50"`
	// Context is optional seed text for out_of_context generation.
	Context string `yaml:"context" validate:"max=20000"`
	// ChunkSize caps the characters of reference text per summary call.
	ChunkSize int `yaml:"chunk_size" validate:"min=200,max=100000"`
	// Backend is the completion provider.
	Backend   string        `yaml:"backend" validate:"required,oneof=anthropic openai"`
	Model     string        `yaml:"model" validate:"max=200"`
	APIKeyEnv string        `yaml:"api_key_env" validate:"omitempty,max=200,envname"`
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"min=0s"`
	// Output receives the generated questions as a JSON array.
	Output string `yaml:"output" validate:"required"`
}

// DefaultEngineConfig returns an EngineConfig with every default applied.
// The default provider is the offline lexical one so that a bare config is
// runnable without credentials.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Matching: MatchingConfig{
			QuestionThreshold: DefaultQuestionThreshold,
			AnswerThreshold:   DefaultAnswerThreshold,
			Selection:         SelectFirst,
			Workers:           DefaultWorkers,
			CallTimeout:       DefaultCallTimeout,
		},
		Classification: ClassificationConfig{
			SuccessThreshold: DefaultSuccessThreshold,
			RiskyThreshold:   DefaultRiskyThreshold,
		},
		Provider: ProviderConfig{
			Type:  "lexical",
			Cache: true,
		},
		Output: OutputConfig{
			Results: "generated_similarity/generated_similarity.json",
			Report:  "generated_reports/semantic_similarity_report.json",
		},
		Generation: GenerationConfig{
			Mode:      GenerateInContext,
			Count:     DefaultQuestionCount,
			Language:  "English",
			ChunkSize: DefaultChunkSize,
			Backend:   "anthropic",
			Output:    "generated_questions/questions.json",
		},
	}
}
