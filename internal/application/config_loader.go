package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-verity/internal/domain"
)

var envNamePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// ConfigLoader parses and validates engine configuration files.
// Values missing from a file keep their DefaultEngineConfig value, so a
// file only needs to state what it changes.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader creates a loader with the custom validators registered.
// It returns an error if validator registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()

	// Report fields by their YAML names so errors read like the config file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("envname", validateEnvName); err != nil {
		return nil, fmt.Errorf("failed to register envname validator: %w", err)
	}

	return &ConfigLoader{validator: v}, nil
}

// LoadFromFile reads, decodes and validates the configuration at path.
func (cl *ConfigLoader) LoadFromFile(path string) (EngineConfig, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return cl.Parse(data)
}

// LoadFromReader reads all of r and parses it as a configuration document.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (EngineConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	return cl.Parse(data)
}

// Parse decodes data over the defaults and validates the result.
// Decoding is strict: unknown keys are rejected so that a typo in a
// threshold name cannot silently fall back to the default.
// An empty document yields the defaults.
func (cl *ConfigLoader) Parse(data []byte) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return EngineConfig{}, fmt.Errorf("%w: YAML decode failed: %v", domain.ErrInvalidConfiguration, err)
	}

	if err := cl.Validate(cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
// The returned error is a *domain.ValidationError listing every failure.
func (cl *ConfigLoader) Validate(cfg EngineConfig) error {
	verr := domain.NewValidationError("engine config")

	if err := cl.validator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("struct validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.AddError(describeFieldError(fe))
		}
	}

	validateSemantics(cfg, verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// validateSemantics adds the provider rules that depend on the provider type.
func validateSemantics(cfg EngineConfig, verr *domain.ValidationError) {
	p := cfg.Provider
	switch {
	case p.Type == "judge" && p.JudgeBackend == "":
		verr.AddError("provider.judge_backend is required when provider.type is judge")
	case p.Type != "judge" && p.JudgeBackend != "":
		verr.AddError("provider.judge_backend is only valid when provider.type is judge")
	}

	if p.Burst > 0 && p.RateLimit == 0 {
		verr.AddError("provider.burst requires provider.rate_limit")
	}
}

// describeFieldError renders a validator failure with the YAML path of the
// offending key, dropping the root struct name.
func describeFieldError(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", path, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", path, boundWord(fe.Tag()), fe.Param(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", path, toSnake(fe.Param()))
	case "envname":
		return fmt.Sprintf("%s must be an environment variable name, got %q", path, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

func boundWord(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}

// toSnake maps a Go field name referenced by a cross-field tag to its YAML
// spelling, e.g. SuccessThreshold to success_threshold.
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validateEnvName is a validator.Func accepting POSIX-style upper-case
// environment variable names.
func validateEnvName(fl validator.FieldLevel) bool {
	return envNamePattern.MatchString(fl.Field().String())
}
