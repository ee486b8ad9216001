package recordio

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

// Field names of the input files.
const (
	FieldQuestion       = "question"
	FieldAnswer         = "answer"
	FieldRefQuestion    = "Question"
	FieldExpectedAnswer = "Expected Answer"
)

const utf8BOM = "\ufeff"

var _ ports.ExchangeSource = (*FileSource)(nil)

// FileSource loads observations and references from files on disk.
type FileSource struct {
	observationsPath string
	referencesPath   string
	logger           *slog.Logger
}

// NewFileSource returns a source reading the two given files. A nil logger
// uses slog.Default().
func NewFileSource(observationsPath, referencesPath string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		observationsPath: observationsPath,
		referencesPath:   referencesPath,
		logger:           logger,
	}
}

// LoadObservations implements ports.ExchangeSource.
func (s *FileSource) LoadObservations(ctx context.Context) ([]domain.ObservedExchange, error) {
	return LoadObservations(ctx, s.observationsPath, s.logger)
}

// LoadReferences implements ports.ExchangeSource.
func (s *FileSource) LoadReferences(ctx context.Context) ([]domain.ReferenceExchange, error) {
	return LoadReferences(ctx, s.referencesPath, s.logger)
}

// LoadObservations reads a JSON array of {"question","answer"} objects.
// Malformed entries are skipped and logged; file-level problems are
// returned as errors.
func LoadObservations(ctx context.Context, path string, logger *slog.Logger) ([]domain.ObservedExchange, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	out, skipped, err := decodeObservations(path, data)
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, logger, skipped)
	return out, nil
}

// LoadReferences reads reference rows from JSON, or from CSV when path has
// a .csv extension. CSV files must carry "Question" and "Expected Answer"
// header columns.
func LoadReferences(ctx context.Context, path string, logger *slog.Logger) ([]domain.ReferenceExchange, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	var (
		out     []domain.ReferenceExchange
		skipped []*domain.MalformedRecordError
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		out, skipped, err = decodeReferencesCSV(path, bytes.NewReader(data))
	} else {
		out, skipped, err = decodeReferencesJSON(path, data)
	}
	if err != nil {
		return nil, err
	}
	logSkipped(ctx, logger, skipped)
	return out, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func logSkipped(ctx context.Context, logger *slog.Logger, skipped []*domain.MalformedRecordError) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, m := range skipped {
		logger.WarnContext(ctx, "skipping malformed record",
			"source", m.Source,
			"record_index", m.Index,
			"field", m.Field,
			"reason", m.Reason)
	}
}

func decodeObservations(source string, data []byte) ([]domain.ObservedExchange, []*domain.MalformedRecordError, error) {
	objects, err := decodeObjectArray(source, data)
	if err != nil {
		return nil, nil, err
	}

	out := make([]domain.ObservedExchange, 0, len(objects))
	var skipped []*domain.MalformedRecordError
	for i, obj := range objects {
		if obj.err != nil {
			skipped = append(skipped, obj.err)
			continue
		}
		q, m := stringField(source, i, obj.fields, FieldQuestion)
		if m != nil {
			skipped = append(skipped, m)
			continue
		}
		a, m := stringField(source, i, obj.fields, FieldAnswer)
		if m != nil {
			skipped = append(skipped, m)
			continue
		}
		out = append(out, domain.ObservedExchange{Question: q, Answer: a})
	}
	return out, skipped, nil
}

func decodeReferencesJSON(source string, data []byte) ([]domain.ReferenceExchange, []*domain.MalformedRecordError, error) {
	objects, err := decodeObjectArray(source, data)
	if err != nil {
		return nil, nil, err
	}

	out := make([]domain.ReferenceExchange, 0, len(objects))
	var skipped []*domain.MalformedRecordError
	for i, obj := range objects {
		if obj.err != nil {
			skipped = append(skipped, obj.err)
			continue
		}
		q, m := stringField(source, i, obj.fields, FieldRefQuestion)
		if m != nil {
			skipped = append(skipped, m)
			continue
		}
		a, m := stringField(source, i, obj.fields, FieldExpectedAnswer)
		if m != nil {
			skipped = append(skipped, m)
			continue
		}
		out = append(out, domain.ReferenceExchange{Question: q, ExpectedAnswer: a})
	}
	return out, skipped, nil
}

func decodeReferencesCSV(source string, r io.Reader) ([]domain.ReferenceExchange, []*domain.MalformedRecordError, error) {
	reader := csv.NewReader(r)
	// Ragged rows are reported per record rather than failing the file.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %s: empty CSV file", domain.ErrMalformedInput, source)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedInput, source, err)
	}

	qCol, aCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)) {
		case FieldRefQuestion:
			qCol = i
		case FieldExpectedAnswer:
			aCol = i
		}
	}
	var missing []string
	if qCol < 0 {
		missing = append(missing, FieldRefQuestion)
	}
	if aCol < 0 {
		missing = append(missing, FieldExpectedAnswer)
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s: missing CSV header column(s) %q",
			domain.ErrMalformedInput, source, missing)
	}

	var (
		out     []domain.ReferenceExchange
		skipped []*domain.MalformedRecordError
	)
	for i := 0; ; i++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedInput, source, err)
		}
		if len(row) <= qCol {
			skipped = append(skipped, malformed(source, i, FieldRefQuestion, "column is missing"))
			continue
		}
		if len(row) <= aCol {
			skipped = append(skipped, malformed(source, i, FieldExpectedAnswer, "column is missing"))
			continue
		}
		out = append(out, domain.ReferenceExchange{Question: row[qCol], ExpectedAnswer: row[aCol]})
	}
	return out, skipped, nil
}

type rawObject struct {
	fields map[string]json.RawMessage
	err    *domain.MalformedRecordError
}

// decodeObjectArray parses data as a JSON array. Elements that are not
// objects are returned with err set so the caller can skip them.
func decodeObjectArray(source string, data []byte) ([]rawObject, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %s: expected a JSON array: %v", domain.ErrMalformedInput, source, err)
	}

	objects := make([]rawObject, len(elems))
	for i, e := range elems {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(e, &fields); err != nil || fields == nil {
			objects[i].err = malformed(source, i, "", "record is not a JSON object")
			continue
		}
		objects[i].fields = fields
	}
	return objects, nil
}

// stringField extracts a required string. Missing keys, null and non-string
// values are reported instead of being coerced to "".
func stringField(source string, index int, fields map[string]json.RawMessage, key string) (string, *domain.MalformedRecordError) {
	raw, ok := fields[key]
	if !ok {
		return "", malformed(source, index, key, "is missing")
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", malformed(source, index, key, "is null")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(source, index, key, "must be a string")
	}
	return s, nil
}

func malformed(source string, index int, field, reason string) *domain.MalformedRecordError {
	return &domain.MalformedRecordError{Source: source, Index: index, Field: field, Reason: reason}
}
