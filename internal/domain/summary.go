package domain

import (
	"math"
	"time"
)

// BatchSummary aggregates the classified records of one run. Rates and the
// average similarity are percentages rounded to two decimals.
type BatchSummary struct {
	// Total is the number of records in the batch.
	Total int `json:"total"`

	// Successful counts records classified as DispositionSuccessful.
	Successful int `json:"successful"`

	// Risky counts records classified as DispositionRisky.
	Risky int `json:"risky"`

	// Unsuccessful counts every record that is neither successful nor risky,
	// including unmatched ones.
	Unsuccessful int `json:"unmatched"`

	// NoMatch counts the subset of Unsuccessful records with no reference match.
	NoMatch int `json:"no_match"`

	// AverageSimilarity is the mean answer similarity in percent, with
	// unmatched records contributing zero.
	AverageSimilarity float64 `json:"average_similarity"`

	// SuccessRate is Successful / Total in percent.
	SuccessRate float64 `json:"success_rate"`
}

// Report is the full output of one engine run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// StartedAt records when matching began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// Records holds one classified record per observation, in observation order.
	Records []ComparisonRecord `json:"records"`

	// Summary is derived from Records.
	Summary BatchSummary `json:"summary"`
}

// Round2 rounds v to two decimal places, resolving exact halves to even.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// Percent converts a similarity in [0,1] to a percentage rounded to two
// decimals. Thresholding and reporting both work on this value so that a
// score formatted as "90.00%" is never classified below 90.
func Percent(similarity float64) float64 {
	return Round2(similarity * 100)
}
