package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// nameChars is the allowed character set for participant names beyond letters.
const nameChars = " -'."

// ValidateRegistration checks a Registration for constraint violations.
// Identity normalization happens before this; Email is assumed canonical.
func ValidateRegistration(r *Registration) error {
	var ve ValidationError

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "is required"})
	case len([]rune(name)) < 2:
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must be at least 2 characters"})
	case len([]rune(name)) > 100:
		ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must be 100 characters or fewer"})
	default:
		hasLetter := false
		for _, c := range name {
			if unicode.IsLetter(c) {
				hasLetter = true
			} else if !strings.ContainsRune(nameChars, c) {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   "name",
					Message: fmt.Sprintf("contains disallowed character %q", c),
				})
				break
			}
		}
		if !hasLetter {
			ve.Errors = append(ve.Errors, FieldError{Field: "name", Message: "must contain at least one letter"})
		}
	}

	if r.Email == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "email", Message: "is required"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// validScore reports whether a rating value is on the 1-5 scale.
func validScore(n int) bool {
	return n >= 1 && n <= 5
}

// validLabel reports whether the response label is one of the anonymous IDs.
func validLabel(label string) bool {
	for _, l := range ResponseLabels {
		if label == l {
			return true
		}
	}
	return false
}

// ValidateQuestionRating checks a QuestionRating for constraint violations.
func ValidateQuestionRating(q *QuestionRating) error {
	var ve ValidationError

	if q.Email == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "email", Message: "is required"})
	}
	if strings.TrimSpace(q.QuestionKey) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "question_key", Message: "is required"})
	}
	if len(q.Ratings) == 0 {
		ve.Errors = append(ve.Errors, FieldError{Field: "ratings", Message: "at least one response rating is required"})
	}

	for label, r := range q.Ratings {
		if !validLabel(label) {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "ratings",
				Message: fmt.Sprintf("unknown response label %q", label),
			})
			continue
		}
		for field, score := range map[string]int{
			"quality":    r.Quality,
			"relevance":  r.Relevance,
			"accuracy":   r.Accuracy,
			"uniformity": r.Uniformity,
		} {
			if !validScore(score) {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   "ratings." + label + "." + field,
					Message: fmt.Sprintf("must be between 1 and 5, got %d", score),
				})
			}
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateFinalAssessment checks a FinalAssessment for constraint violations.
func ValidateFinalAssessment(f *FinalAssessment) error {
	var ve ValidationError

	if f.Email == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "email", Message: "is required"})
	}
	for field, score := range map[string]int{
		"overall_quality":    f.OverallRatings.Quality,
		"overall_relevance":  f.OverallRatings.Relevance,
		"overall_accuracy":   f.OverallRatings.Accuracy,
		"overall_usefulness": f.OverallRatings.Usefulness,
	} {
		if !validScore(score) {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "overall_ratings." + field,
				Message: fmt.Sprintf("must be between 1 and 5, got %d", score),
			})
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateTechnicalMetric checks a TechnicalMetric for constraint violations.
func ValidateTechnicalMetric(m *TechnicalMetric) error {
	var ve ValidationError

	if len(m.Payload) > 0 && !json.Valid(m.Payload) {
		ve.Errors = append(ve.Errors, FieldError{Field: "payload", Message: "contains invalid JSON"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
