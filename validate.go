package reranker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError reports a request rejected before reaching a backend:
// empty, whitespace-only, or oversized text, or an out-of-bounds batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validateText(field, text string, maxLen int) error {
	if text == "" || strings.TrimSpace(text) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty or whitespace-only"}
	}
	// Length limits count characters, not bytes, so multibyte text is
	// bounded the same as ASCII.
	if utf8.RuneCountInString(text) > maxLen {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxLen)}
	}
	return nil
}

func validatePassages(passages []string) error {
	if len(passages) == 0 || len(passages) > MaxBatchSize {
		return &ValidationError{Field: "passages", Reason: fmt.Sprintf("must contain 1 to %d entries", MaxBatchSize)}
	}
	for i, p := range passages {
		if err := validateText(fmt.Sprintf("passages[%d]", i), p, MaxPassageLength); err != nil {
			return err
		}
	}
	return nil
}
