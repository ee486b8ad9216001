// Package recordio reads validation inputs from disk and writes results in
// the wire format downstream reporting expects.
package recordio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ahrav/go-verity/internal/domain"
)

// Sentinels written in place of the matched text for unmatched records.
const (
	NoQuestionSentinel = "No corresponding question"
	NoAnswerSentinel   = "No corresponding answer"
)

// WireRecord is the on-disk form of a domain.ComparisonRecord.
// Similarities are percentage strings with two decimals, e.g. "87.43%".
type WireRecord struct {
	QuestionPostman    string `json:"question_postman"`
	AnswerChatbot      string `json:"answer_chatbot"`
	QuestionExcel      string `json:"question_excel"`
	ExpectedAnswer     string `json:"expected_answer"`
	QuestionSimilarity string `json:"question_similarity"`
	AnswerSimilarity   string `json:"answer_similarity"`
	Matching           string `json:"matching"`
	Success            string `json:"success,omitempty"`
	ReferenceIndex     int    `json:"reference_index"`
}

// EncodeRecord converts r to its wire form.
func EncodeRecord(r domain.ComparisonRecord) WireRecord {
	w := WireRecord{
		QuestionPostman:    r.ObservedQuestion,
		AnswerChatbot:      r.ObservedAnswer,
		QuestionExcel:      NoQuestionSentinel,
		ExpectedAnswer:     NoAnswerSentinel,
		QuestionSimilarity: FormatPercent(r.QuestionSimilarity),
		AnswerSimilarity:   FormatPercent(r.AnswerSimilarity),
		Matching:           string(r.Status),
		Success:            string(r.Disposition),
		ReferenceIndex:     r.ReferenceIndex,
	}
	if r.Matched() {
		w.QuestionExcel = *r.MatchedReferenceQuestion
		if r.MatchedExpectedAnswer != nil {
			w.ExpectedAnswer = *r.MatchedExpectedAnswer
		}
	}
	return w
}

// DecodeRecord parses a wire record back into a domain record. The match
// fields are taken from the matching status, not from the sentinel text,
// so a reference whose question happens to equal a sentinel survives.
func DecodeRecord(w WireRecord) (domain.ComparisonRecord, error) {
	status := domain.MatchStatus(w.Matching)
	switch status {
	case domain.StatusSemanticMatch, domain.StatusAnswerMismatch, domain.StatusNoMatch:
	default:
		return domain.ComparisonRecord{}, fmt.Errorf("%w: unknown matching status %q", domain.ErrMalformedInput, w.Matching)
	}

	disposition := domain.Disposition(w.Success)
	if disposition != "" && !disposition.IsValid() {
		return domain.ComparisonRecord{}, fmt.Errorf("%w: unknown disposition %q", domain.ErrMalformedInput, w.Success)
	}

	qs, err := ParsePercent(w.QuestionSimilarity)
	if err != nil {
		return domain.ComparisonRecord{}, fmt.Errorf("question_similarity: %w", err)
	}
	as, err := ParsePercent(w.AnswerSimilarity)
	if err != nil {
		return domain.ComparisonRecord{}, fmt.Errorf("answer_similarity: %w", err)
	}

	observed := domain.ObservedExchange{Question: w.QuestionPostman, Answer: w.AnswerChatbot}
	if status == domain.StatusNoMatch {
		r := domain.NewUnmatchedRecord(observed)
		if disposition != "" {
			r.Disposition = disposition
		}
		return r, nil
	}

	ref := domain.ReferenceExchange{Question: w.QuestionExcel, ExpectedAnswer: w.ExpectedAnswer}
	r := domain.NewMatchedRecord(observed, ref, w.ReferenceIndex, qs, as, status)
	return r.WithDisposition(disposition), nil
}

// FormatPercent renders a [0,1] similarity as a two-decimal percentage.
func FormatPercent(similarity float64) string {
	return strconv.FormatFloat(domain.Percent(similarity), 'f', 2, 64) + "%"
}

// ParsePercent parses "87.43%" into 0.8743. The legacy "0%" form is
// accepted.
func ParsePercent(s string) (float64, error) {
	trimmed, ok := strings.CutSuffix(strings.TrimSpace(s), "%")
	if !ok {
		return 0, fmt.Errorf("%w: percentage %q has no %% suffix", domain.ErrMalformedInput, s)
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: percentage %q: %v", domain.ErrMalformedInput, s, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: percentage %q outside [0,100]", domain.ErrMalformedInput, s)
	}
	return v / 100, nil
}
