package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/evalvault/internal/model"
)

func sampleRecords() []model.Record {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []model.Record{
		&model.Registration{
			ID:           "ev-reg1",
			Email:        "alice@example.com",
			Name:         "Alice Smith",
			ConsentGiven: true,
			ConsentAt:    now,
			RegisteredAt: now,
		},
		&model.QuestionRating{
			ID:          "ev-qr1",
			Email:       "alice@example.com",
			QuestionKey: "retail:Which product category generates the highest total revenue?",
			Industry:    "retail",
			Ratings: map[string]model.ResponseRating{
				"A": {Quality: 4, Relevance: 5, Accuracy: 3, Uniformity: 4},
			},
			CreatedAt: now,
		},
		&model.FinalAssessment{
			ID:             "ev-fin1",
			Email:          "alice@example.com",
			OverallRatings: model.OverallRatings{Quality: 4, Relevance: 4, Accuracy: 3, Usefulness: 5},
			CreatedAt:      now,
		},
	}
}

func TestEncodeDecode_MixedCollection(t *testing.T) {
	blob, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// 1 header + 3 records.
	if lines := bytes.Count(blob, []byte("\n")); lines != 4 {
		t.Errorf("expected 4 lines, got %d", lines)
	}

	records, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Order and kinds preserved.
	wantKinds := []model.Kind{model.KindRegistration, model.KindQuestionRating, model.KindFinalAssessment}
	for i, rec := range records {
		if rec.RecordKind() != wantKinds[i] {
			t.Errorf("record %d kind = %q, want %q", i, rec.RecordKind(), wantKinds[i])
		}
	}

	reg, ok := records[0].(*model.Registration)
	if !ok {
		t.Fatalf("record 0 is %T, want *model.Registration", records[0])
	}
	if reg.Email != "alice@example.com" || !reg.ConsentGiven {
		t.Errorf("registration round-trip mismatch: %+v", reg)
	}

	qr, ok := records[1].(*model.QuestionRating)
	if !ok {
		t.Fatalf("record 1 is %T, want *model.QuestionRating", records[1])
	}
	if qr.Ratings["A"].Relevance != 5 {
		t.Errorf("rating round-trip mismatch: %+v", qr.Ratings)
	}
}

func TestEncode_EmptyCollection(t *testing.T) {
	blob, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil): %v", err)
	}
	records, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestDecode_TruncatedBlob(t *testing.T) {
	blob, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Cut the blob mid-record; decode must fail, never return a subset.
	for _, cut := range []int{len(blob) - 1, len(blob) / 2, 10} {
		records, err := Decode(blob[:cut])
		if !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("Decode(blob[:%d]) = %v, want ErrCorruptRecord", cut, err)
		}
		if records != nil {
			t.Errorf("Decode(blob[:%d]) returned %d records alongside the error", cut, len(records))
		}
	}
}

func TestDecode_EmptyBlob(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(nil) = %v, want ErrCorruptRecord", err)
	}
	if _, err := Decode([]byte{}); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(empty) = %v, want ErrCorruptRecord", err)
	}
}

func TestDecode_CountMismatch(t *testing.T) {
	blob, err := Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Drop the last record line but keep the header's count.
	s := string(blob)
	lines := strings.SplitAfter(s, "\n")
	tampered := strings.Join(lines[:len(lines)-2], "")
	if _, err := Decode([]byte(tampered)); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(missing line) = %v, want ErrCorruptRecord", err)
	}
}

func TestDecode_UnknownKind(t *testing.T) {
	blob := []byte(`{"version":"1","type":"header","timestamp":"2025-06-01T12:00:00Z","record_count":1}
{"type":"mystery","data":{"id":"ev-x"}}
`)
	if _, err := Decode(blob); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(unknown kind) = %v, want ErrCorruptRecord", err)
	}
}

func TestDecode_MalformedLine(t *testing.T) {
	blob := []byte(`{"version":"1","type":"header","timestamp":"2025-06-01T12:00:00Z","record_count":1}
{"type":"registration","data":{"id":
`)
	if _, err := Decode(blob); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(malformed line) = %v, want ErrCorruptRecord", err)
	}
}

func TestDecode_MissingID(t *testing.T) {
	blob := []byte(`{"version":"1","type":"header","timestamp":"2025-06-01T12:00:00Z","record_count":1}
{"type":"registration","data":{"email":"a@b.co"}}
`)
	if _, err := Decode(blob); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(record without id) = %v, want ErrCorruptRecord", err)
	}
}

func TestDecode_WrongHeader(t *testing.T) {
	blob := []byte(`{"version":"99","type":"header","timestamp":"2025-06-01T12:00:00Z","record_count":0}
`)
	if _, err := Decode(blob); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Decode(wrong version) = %v, want ErrCorruptRecord", err)
	}
}
