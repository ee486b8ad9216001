package recordio

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verity/internal/domain"
)

func testReport() *domain.Report {
	records := []domain.ComparisonRecord{
		sickLeaveRecord(),
		domain.NewUnmatchedRecord(domain.ObservedExchange{Question: "Où est le bureau?", Answer: "<b>Oslo</b>"}),
	}
	return &domain.Report{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  2 * time.Second,
		Records:   records,
		Summary: domain.BatchSummary{
			Total: 2, Unsuccessful: 2, NoMatch: 1, AverageSimilarity: 32.5,
		},
	}
}

func TestWriteResults_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated_similarity", "nested", "results.json")
	report := testReport()

	require.NoError(t, WriteResults(path, report.Records))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "    {\n", "four-space indentation")
	assert.Contains(t, string(data), "Où est le bureau?", "non-ASCII is not escaped")
	assert.Contains(t, string(data), "<b>Oslo</b>", "HTML is not escaped")

	got, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.StatusAnswerMismatch, got[0].Status)
	assert.False(t, got[1].Matched())

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files are cleaned up")
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(path, testReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &got))
	assert.ElementsMatch(t, []string{"run_id", "started_at", "summary", "results"}, keys(got))

	var summary map[string]any
	require.NoError(t, json.Unmarshal(got["summary"], &summary))
	assert.Equal(t, 2.0, summary["total"])
	assert.Equal(t, 1.0, summary["no_match"])
	assert.Equal(t, 32.5, summary["average_similarity"])
}

func TestFileSink_WriteReport(t *testing.T) {
	dir := t.TempDir()
	results := filepath.Join(dir, "out", "results.json")
	reportPath := filepath.Join(dir, "reports", "report.json")

	sink := NewFileSink(results, reportPath)
	require.NoError(t, sink.WriteReport(context.Background(), testReport()))

	assert.FileExists(t, results)
	assert.FileExists(t, reportPath)

	t.Run("overwrites atomically", func(t *testing.T) {
		report := testReport()
		report.Records = report.Records[:1]
		require.NoError(t, sink.WriteReport(context.Background(), report))

		got, err := ReadResults(results)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("empty paths are skipped", func(t *testing.T) {
		require.NoError(t, NewFileSink("", "").WriteReport(context.Background(), testReport()))
	})

	t.Run("report failure leaves no results file", func(t *testing.T) {
		dir := t.TempDir()
		results := filepath.Join(dir, "results.json")
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		sink := NewFileSink(results, filepath.Join(blocker, "report.json"))
		err := sink.WriteReport(context.Background(), testReport())
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to create directory")
		assert.NoFileExists(t, results)

		matches, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
		require.NoError(t, err)
		assert.Empty(t, matches, "staged files are removed")
	})

	t.Run("nil report", func(t *testing.T) {
		assert.Error(t, sink.WriteReport(context.Background(), nil))
	})
}

func TestWriteQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated_questions", "questions.json")

	require.NoError(t, WriteQuestions(path, []domain.GeneratedQuestion{
		{ID: 1, Question: "Hvordan melder jeg fravær?"},
		{ID: 2, Question: "Who approves leave?"},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fravær", "non-ASCII is not escaped")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"id": 1.0, "question": "Hvordan melder jeg fravær?"}, got[0])

	require.NoError(t, WriteQuestions(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
