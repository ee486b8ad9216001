// Package domain holds the core types of the answer verification engine:
// the observed and reference exchanges that flow in, the comparison records
// and batch summary that flow out, and the text normalization both sides of
// a comparison go through.
package domain

// ObservedExchange is one transcript turn produced by the agent under test.
type ObservedExchange struct {
	// Question is the prompt the agent received.
	Question string `json:"question"`

	// Answer is the agent's response to Question.
	Answer string `json:"answer"`
}

// ReferenceExchange is one row of ground truth from the reference bank.
// The reference set may contain duplicate or near-duplicate questions.
type ReferenceExchange struct {
	// Question is the expected question text.
	Question string `json:"Question"`

	// ExpectedAnswer is the answer the agent should give to Question.
	ExpectedAnswer string `json:"Expected Answer"`
}

// MatchStatus is the label the matcher assigns while pairing an observation
// with a reference entry.
type MatchStatus string

// Match-stage labels.
const (
	// StatusSemanticMatch means a reference question matched and the answer
	// similarity exceeded the matcher's answer threshold.
	StatusSemanticMatch MatchStatus = "Semantic Match"

	// StatusAnswerMismatch means a reference question matched but the answer
	// similarity did not exceed the matcher's answer threshold.
	StatusAnswerMismatch MatchStatus = "Answer Mismatch"

	// StatusNoMatch means no reference question exceeded the question threshold.
	StatusNoMatch MatchStatus = "No Match"
)

// Disposition is the final report-stage classification of a record.
type Disposition string

// Report-stage dispositions.
const (
	DispositionSuccessful   Disposition = "Successful"
	DispositionRisky        Disposition = "Risky"
	DispositionUnsuccessful Disposition = "Unsuccessful"
	DispositionNoMatch      Disposition = "No Match"
)

// IsValid reports whether d is one of the known dispositions.
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionSuccessful, DispositionRisky, DispositionUnsuccessful, DispositionNoMatch:
		return true
	default:
		return false
	}
}

// NoReferenceIndex marks a ComparisonRecord that matched no reference entry.
const NoReferenceIndex = -1

// ComparisonRecord is the result of matching one ObservedExchange against the
// reference set. Records are values; use WithDisposition to derive a
// classified copy rather than mutating one in place.
type ComparisonRecord struct {
	// ObservedQuestion is the agent question, as loaded.
	ObservedQuestion string `json:"observed_question"`

	// ObservedAnswer is the agent answer, as loaded.
	ObservedAnswer string `json:"observed_answer"`

	// MatchedReferenceQuestion is nil iff no reference question exceeded the
	// question threshold.
	MatchedReferenceQuestion *string `json:"matched_reference_question"`

	// MatchedExpectedAnswer is the expected answer of the matched reference.
	// It is nil exactly when MatchedReferenceQuestion is nil.
	MatchedExpectedAnswer *string `json:"matched_expected_answer"`

	// QuestionSimilarity is the similarity of the observed and matched
	// questions in [0,1]. Zero for unmatched records.
	QuestionSimilarity float64 `json:"question_similarity"`

	// AnswerSimilarity is the similarity of the observed and expected
	// answers in [0,1]. Zero for unmatched records.
	AnswerSimilarity float64 `json:"answer_similarity"`

	// Status is the match-stage label.
	Status MatchStatus `json:"status"`

	// Disposition is the report-stage classification. Matched records carry
	// an empty disposition until they are classified.
	Disposition Disposition `json:"disposition,omitempty"`

	// ReferenceIndex is the position of the matched entry in the reference
	// sequence, or NoReferenceIndex.
	ReferenceIndex int `json:"reference_index"`
}

// NewUnmatchedRecord builds the record emitted when no reference question
// crosses the question threshold.
func NewUnmatchedRecord(observed ObservedExchange) ComparisonRecord {
	return ComparisonRecord{
		ObservedQuestion: observed.Question,
		ObservedAnswer:   observed.Answer,
		Status:           StatusNoMatch,
		Disposition:      DispositionNoMatch,
		ReferenceIndex:   NoReferenceIndex,
	}
}

// NewMatchedRecord builds the record for an observation paired with the
// reference at index. The disposition is left empty for the classifier.
func NewMatchedRecord(
	observed ObservedExchange,
	reference ReferenceExchange,
	index int,
	questionSimilarity, answerSimilarity float64,
	status MatchStatus,
) ComparisonRecord {
	question := reference.Question
	answer := reference.ExpectedAnswer
	return ComparisonRecord{
		ObservedQuestion:         observed.Question,
		ObservedAnswer:           observed.Answer,
		MatchedReferenceQuestion: &question,
		MatchedExpectedAnswer:    &answer,
		QuestionSimilarity:       questionSimilarity,
		AnswerSimilarity:         answerSimilarity,
		Status:                   status,
		ReferenceIndex:           index,
	}
}

// Matched reports whether the record has a reference match.
func (r ComparisonRecord) Matched() bool { return r.MatchedReferenceQuestion != nil }

// WithDisposition returns a copy of r carrying disposition d.
func (r ComparisonRecord) WithDisposition(d Disposition) ComparisonRecord {
	r.Disposition = d
	return r
}

// GeneratedQuestion is a test question produced for the agent under test.
// IDs start at 1 and follow generation order.
type GeneratedQuestion struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
}
