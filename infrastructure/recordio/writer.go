package recordio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ahrav/go-verity/internal/domain"
	"github.com/ahrav/go-verity/internal/ports"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var _ ports.ResultSink = (*FileSink)(nil)

// wireReport is the on-disk form of a domain.Report.
type wireReport struct {
	RunID     string              `json:"run_id"`
	StartedAt time.Time           `json:"started_at"`
	Summary   domain.BatchSummary `json:"summary"`
	Results   []WireRecord        `json:"results"`
}

// FileSink writes per-record results and the run report as JSON files.
// Either path may be empty to skip that output.
type FileSink struct {
	resultsPath string
	reportPath  string
}

// NewFileSink returns a sink writing to the given paths.
func NewFileSink(resultsPath, reportPath string) *FileSink {
	return &FileSink{resultsPath: resultsPath, reportPath: reportPath}
}

// WriteReport implements ports.ResultSink. Both files are staged before
// either is renamed into place, so a failed write leaves neither behind.
func (s *FileSink) WriteReport(ctx context.Context, report *domain.Report) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var staged []stagedFile
	defer func() {
		for _, f := range staged {
			f.discard()
		}
	}()

	if s.resultsPath != "" {
		f, err := stageJSON(s.resultsPath, encodeRecords(report.Records))
		if err != nil {
			return err
		}
		staged = append(staged, f)
	}
	if s.reportPath != "" {
		f, err := stageJSON(s.reportPath, newWireReport(report))
		if err != nil {
			return err
		}
		staged = append(staged, f)
	}

	for i, f := range staged {
		if err := f.commit(); err != nil {
			for _, done := range staged[:i] {
				_ = os.Remove(done.path)
			}
			return err
		}
	}
	return nil
}

// WriteResults writes records as a JSON array of wire records.
func WriteResults(path string, records []domain.ComparisonRecord) error {
	return writeJSONAtomic(path, encodeRecords(records))
}

// WriteReport writes the run id, start time, summary and results.
func WriteReport(path string, report *domain.Report) error {
	return writeJSONAtomic(path, newWireReport(report))
}

// WriteQuestions writes generated questions as a JSON array of
// {"id", "question"} objects.
func WriteQuestions(path string, questions []domain.GeneratedQuestion) error {
	if questions == nil {
		questions = []domain.GeneratedQuestion{}
	}
	return writeJSONAtomic(path, questions)
}

func newWireReport(report *domain.Report) wireReport {
	return wireReport{
		RunID:     report.RunID,
		StartedAt: report.StartedAt,
		Summary:   report.Summary,
		Results:   encodeRecords(report.Records),
	}
}

// ReadResults reads a file written by WriteResults.
func ReadResults(path string) ([]domain.ComparisonRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var wire []WireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedInput, path, err)
	}
	records := make([]domain.ComparisonRecord, len(wire))
	for i, w := range wire {
		r, err := DecodeRecord(w)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = r
	}
	return records, nil
}

func encodeRecords(records []domain.ComparisonRecord) []WireRecord {
	out := make([]WireRecord, len(records))
	for i, r := range records {
		out[i] = EncodeRecord(r)
	}
	return out
}

func writeJSONAtomic(path string, v any) error {
	f, err := stageJSON(path, v)
	if err != nil {
		return err
	}
	defer f.discard()
	return f.commit()
}

// stagedFile is a fully written temp file waiting to be renamed to path.
type stagedFile struct {
	tmp  string
	path string
}

func (f stagedFile) commit() error {
	if err := os.Rename(f.tmp, f.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

// discard removes the temp file; after a commit there is nothing to remove.
func (f stagedFile) discard() { _ = os.Remove(f.tmp) }

// stageJSON encodes v into a temp file in the directory of path, so the
// later rename never crosses filesystems and readers never see a partial
// file.
func stageJSON(path string, v any) (stagedFile, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return stagedFile{}, fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return stagedFile{}, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := writeTemp(filepath.Dir(path), buf.Bytes(), filePerm)
	if err != nil {
		return stagedFile{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return stagedFile{tmp: tmp, path: path}, nil
}

func writeTemp(dir string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
