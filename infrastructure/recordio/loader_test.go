package recordio

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verity/internal/domain"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadObservations(t *testing.T) {
	path := writeTestFile(t, "obs.json", `[
		{"question": "How do I report sick leave?", "answer": "Call HR."},
		{"question": "Where is the office?"},
		{"question": 42, "answer": "x"},
		{"question": "q", "answer": null},
		"not an object",
		{"question": "", "answer": "empty question is still text", "extra": true}
	]`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	got, err := LoadObservations(context.Background(), path, logger)
	require.NoError(t, err)
	assert.Equal(t, []domain.ObservedExchange{
		{Question: "How do I report sick leave?", Answer: "Call HR."},
		{Question: "", Answer: "empty question is still text"},
	}, got)

	out := logs.String()
	assert.Equal(t, 4, strings.Count(out, "skipping malformed record"))
	assert.Contains(t, out, "record_index=1 field=answer reason=\"is missing\"")
	assert.Contains(t, out, "record_index=2 field=question reason=\"must be a string\"")
	assert.Contains(t, out, "record_index=3 field=answer reason=\"is null\"")
	assert.Contains(t, out, "record_index=4")
}

func TestDecodeReferencesJSON(t *testing.T) {
	got, skipped, err := decodeReferencesJSON("refs.json", []byte(`[
		{"Question": "How do I report absence?", "Expected Answer": "Contact HR immediately."},
		{"Question": "Missing answer"},
		{"question": "wrong case", "Expected Answer": "x"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []domain.ReferenceExchange{
		{Question: "How do I report absence?", ExpectedAnswer: "Contact HR immediately."},
	}, got)

	require.Len(t, skipped, 2)
	assert.Equal(t, &domain.MalformedRecordError{Source: "refs.json", Index: 1, Field: "Expected Answer", Reason: "is missing"}, skipped[0])
	assert.Equal(t, "Question", skipped[1].Field)
	assert.ErrorIs(t, skipped[0], domain.ErrMalformedInput)
}

func TestDecodeReferencesCSV(t *testing.T) {
	csvData := "\ufeffID,Question,Expected Answer\n" +
		"1,How do I report absence?,Contact HR immediately.\n" +
		"2,\"Quoted, with comma\",\"Multi\nline\"\n" +
		"3,Only question\n"

	got, skipped, err := decodeReferencesCSV("refs.csv", strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, []domain.ReferenceExchange{
		{Question: "How do I report absence?", ExpectedAnswer: "Contact HR immediately."},
		{Question: "Quoted, with comma", ExpectedAnswer: "Multi\nline"},
	}, got)

	require.Len(t, skipped, 1)
	assert.Equal(t, 2, skipped[0].Index)
	assert.Equal(t, FieldExpectedAnswer, skipped[0].Field)
}

func TestLoadReferences_FileErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		file      string
		content   string
		malformed bool
	}{
		{name: "invalid json", file: "refs.json", content: `{"Question": "not an array"}`, malformed: true},
		{name: "truncated json", file: "refs.json", content: `[{"Question": "q"`, malformed: true},
		{name: "csv missing header", file: "refs.csv", content: "Question,Answer\nq,a\n", malformed: true},
		{name: "empty csv", file: "refs.csv", content: "", malformed: true},
		{name: "csv bare quote", file: "refs.csv", content: "Question,Expected Answer\n\"q,a\n", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, tt.file, tt.content)
			_, err := LoadReferences(ctx, path, nil)
			require.Error(t, err)
			if tt.malformed {
				assert.ErrorIs(t, err, domain.ErrMalformedInput)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadReferences(ctx, filepath.Join(t.TempDir(), "absent.json"), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestFileSource(t *testing.T) {
	obs := writeTestFile(t, "obs.json", `[{"question": "q", "answer": "a"}]`)
	refs := writeTestFile(t, "refs.CSV", "Question,Expected Answer\nrq,ra\n")
	source := NewFileSource(obs, refs, nil)

	gotObs, err := source.LoadObservations(context.Background())
	require.NoError(t, err)
	assert.Len(t, gotObs, 1)

	gotRefs, err := source.LoadReferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ReferenceExchange{{Question: "rq", ExpectedAnswer: "ra"}}, gotRefs,
		"extension match is case-insensitive")
}
