package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validRegistration() *Registration {
	now := time.Now().UTC()
	return &Registration{
		ID:           "ev-reg1",
		Email:        "alice@example.com",
		Name:         "Alice Smith",
		ConsentGiven: true,
		ConsentAt:    now,
		RegisteredAt: now,
	}
}

func TestValidateRegistration_Valid(t *testing.T) {
	if err := ValidateRegistration(validRegistration()); err != nil {
		t.Errorf("valid registration rejected: %v", err)
	}
}

func TestValidateRegistration_Names(t *testing.T) {
	for _, tc := range []struct {
		name  string
		valid bool
	}{
		{"Alice Smith", true},
		{"Anne-Marie O'Neil", true},
		{"J. Doe", true},
		{"", false},
		{"A", false},
		{strings.Repeat("a", 101), false},
		{"---", false},
		{"Alice<script>", false},
	} {
		r := validRegistration()
		r.Name = tc.name
		err := ValidateRegistration(r)
		if tc.valid && err != nil {
			t.Errorf("name %q rejected: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("name %q accepted, want error", tc.name)
		}
	}
}

func TestValidateRegistration_FieldErrors(t *testing.T) {
	r := &Registration{}
	err := ValidateRegistration(r)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) < 2 {
		t.Errorf("expected errors for name and email, got %v", ve.Errors)
	}
}

func validQuestionRating() *QuestionRating {
	return &QuestionRating{
		ID:          "ev-qr1",
		Email:       "alice@example.com",
		QuestionKey: "retail:Which product category generates the highest total revenue?",
		Industry:    "retail",
		Ratings: map[string]ResponseRating{
			"A": {Quality: 4, Relevance: 5, Accuracy: 3, Uniformity: 4, Model: "provider_1"},
			"B": {Quality: 2, Relevance: 3, Accuracy: 2, Uniformity: 3, Model: "provider_2"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestValidateQuestionRating(t *testing.T) {
	if err := ValidateQuestionRating(validQuestionRating()); err != nil {
		t.Errorf("valid rating rejected: %v", err)
	}

	q := validQuestionRating()
	q.Ratings["A"] = ResponseRating{Quality: 6, Relevance: 1, Accuracy: 1, Uniformity: 1}
	if err := ValidateQuestionRating(q); err == nil {
		t.Error("out-of-range score accepted")
	}

	q = validQuestionRating()
	q.Ratings["E"] = ResponseRating{Quality: 3, Relevance: 3, Accuracy: 3, Uniformity: 3}
	if err := ValidateQuestionRating(q); err == nil {
		t.Error("unknown response label accepted")
	}

	q = validQuestionRating()
	q.Ratings = nil
	if err := ValidateQuestionRating(q); err == nil {
		t.Error("empty ratings accepted")
	}

	q = validQuestionRating()
	q.QuestionKey = "  "
	if err := ValidateQuestionRating(q); err == nil {
		t.Error("blank question key accepted")
	}
}

func TestValidateFinalAssessment(t *testing.T) {
	f := &FinalAssessment{
		ID:             "ev-fin1",
		Email:          "alice@example.com",
		OverallRatings: OverallRatings{Quality: 4, Relevance: 4, Accuracy: 3, Usefulness: 5},
	}
	if err := ValidateFinalAssessment(f); err != nil {
		t.Errorf("valid final assessment rejected: %v", err)
	}

	f.OverallRatings.Usefulness = 0
	if err := ValidateFinalAssessment(f); err == nil {
		t.Error("zero overall rating accepted")
	}
}

func TestValidateTechnicalMetric(t *testing.T) {
	m := &TechnicalMetric{ID: "ev-tm1", Payload: json.RawMessage(`{"latency_ms": 412}`)}
	if err := ValidateTechnicalMetric(m); err != nil {
		t.Errorf("valid metric rejected: %v", err)
	}
	m.Payload = json.RawMessage(`{"latency_ms":`)
	if err := ValidateTechnicalMetric(m); err == nil {
		t.Error("invalid payload JSON accepted")
	}
}

func TestKindIsValid(t *testing.T) {
	for _, k := range []Kind{KindRegistration, KindQuestionRating, KindFinalAssessment, KindTechnicalMetric} {
		if !k.IsValid() {
			t.Errorf("Kind %q should be valid", k)
		}
	}
	if Kind("bogus").IsValid() {
		t.Error(`Kind "bogus" should be invalid`)
	}
}

func TestIdentityKey(t *testing.T) {
	if got := IdentityKey(validRegistration()); got != "alice@example.com" {
		t.Errorf("IdentityKey(registration) = %q", got)
	}
	if got := IdentityKey(&TechnicalMetric{ID: "ev-tm1"}); got != "" {
		t.Errorf("IdentityKey(metric) = %q, want empty", got)
	}
}
