package application

import (
	"fmt"

	"github.com/ahrav/go-verity/internal/domain"
)

// Classifier assigns report-stage dispositions from answer similarity.
// Thresholds are percentages and comparisons are inclusive, so a record at
// exactly the success threshold is Successful.
type Classifier struct {
	successThreshold float64
	riskyThreshold   float64
}

// NewClassifier creates a Classifier.
// It returns an error unless 0 <= risky <= success <= 100.
func NewClassifier(success, risky float64) (*Classifier, error) {
	if success < 0 || success > 100 {
		return nil, fmt.Errorf("%w: success threshold %v outside [0,100]", domain.ErrInvalidConfiguration, success)
	}
	if risky < 0 || risky > success {
		return nil, fmt.Errorf("%w: risky threshold %v outside [0,%v]", domain.ErrInvalidConfiguration, risky, success)
	}
	return &Classifier{successThreshold: success, riskyThreshold: risky}, nil
}

// DefaultClassifier returns the 90/80 classifier.
func DefaultClassifier() *Classifier {
	return &Classifier{
		successThreshold: DefaultSuccessThreshold,
		riskyThreshold:   DefaultRiskyThreshold,
	}
}

// Classify returns the disposition for r. Unmatched records are always
// DispositionNoMatch. The decision uses the two-decimal percentage that the
// report prints, not the raw score.
func (c *Classifier) Classify(r domain.ComparisonRecord) domain.Disposition {
	if !r.Matched() {
		return domain.DispositionNoMatch
	}

	pct := domain.Percent(r.AnswerSimilarity)
	switch {
	case pct >= c.successThreshold:
		return domain.DispositionSuccessful
	case pct >= c.riskyThreshold:
		return domain.DispositionRisky
	default:
		return domain.DispositionUnsuccessful
	}
}

// ClassifyAll returns classified copies of records in the same order.
func (c *Classifier) ClassifyAll(records []domain.ComparisonRecord) []domain.ComparisonRecord {
	out := make([]domain.ComparisonRecord, len(records))
	for i, r := range records {
		out[i] = r.WithDisposition(c.Classify(r))
	}
	return out
}

// Aggregate summarizes classified records. Records that are neither
// Successful nor Risky count as Unsuccessful, unmatched ones included, and
// unmatched records contribute zero to the average similarity.
// An empty batch yields a zero summary.
func Aggregate(records []domain.ComparisonRecord) domain.BatchSummary {
	summary := domain.BatchSummary{Total: len(records)}
	if len(records) == 0 {
		return summary
	}

	var sum float64
	for _, r := range records {
		switch r.Disposition {
		case domain.DispositionSuccessful:
			summary.Successful++
		case domain.DispositionRisky:
			summary.Risky++
		case domain.DispositionNoMatch:
			summary.Unsuccessful++
			summary.NoMatch++
		default:
			summary.Unsuccessful++
		}
		if r.Matched() {
			sum += domain.Percent(r.AnswerSimilarity)
		}
	}

	n := float64(len(records))
	summary.AverageSimilarity = domain.Round2(sum / n)
	summary.SuccessRate = domain.Round2(float64(summary.Successful) / n * 100)
	return summary
}
