// Package codec serializes collections of records to and from the JSONL blob
// format used by the backend adapters.
//
// A blob is a header line followed by one line per record:
//
//	{"version":"1","type":"header","timestamp":...,"record_count":2}
//	{"type":"registration","data":{...}}
//	{"type":"question_rating","data":{...}}
//
// The type discriminator on every line makes a mixed collection decodable
// without external hints. Decoding is strict: a truncated or malformed blob
// fails with ErrCorruptRecord and never yields a partial or empty sequence.
// Treating a failed decode as "no records" is how the predecessor system lost
// an entire dataset, so that behavior is structurally impossible here.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/evalvault/internal/model"
)

// ErrCorruptRecord is returned when a blob or one of its records cannot be
// decoded. Callers must propagate it; it is never a legitimate empty state.
var ErrCorruptRecord = errors.New("corrupt record")

// Version is the current blob format version.
const Version = "1"

// header is the first JSONL line of every encoded collection.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	RecordCount int       `json:"record_count"`
}

// envelope wraps a single JSONL line with a kind discriminator.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes records into a collection blob. Order is preserved.
func Encode(records []model.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     Version,
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		RecordCount: len(records),
	}); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.RecordID(), err)
		}
		if err := enc.Encode(envelope{Type: r.RecordKind().String(), Data: data}); err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.RecordID(), err)
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a collection blob back into its records. Any malformed line,
// unknown kind, count mismatch, or missing trailing newline aborts the whole
// decode with ErrCorruptRecord.
func Decode(blob []byte) ([]model.Record, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrCorruptRecord)
	}
	if blob[len(blob)-1] != '\n' {
		return nil, fmt.Errorf("%w: blob is truncated (no trailing newline)", ErrCorruptRecord)
	}

	lines := strings.Split(strings.TrimRight(string(blob), "\n"), "\n")

	var hdr header
	if err := json.Unmarshal([]byte(lines[0]), &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorruptRecord, err)
	}
	if hdr.Type != "header" || hdr.Version != Version {
		return nil, fmt.Errorf("%w: unexpected header %q version %q", ErrCorruptRecord, hdr.Type, hdr.Version)
	}
	if hdr.RecordCount != len(lines)-1 {
		return nil, fmt.Errorf("%w: header declares %d records, blob has %d",
			ErrCorruptRecord, hdr.RecordCount, len(lines)-1)
	}

	records := make([]model.Record, 0, hdr.RecordCount)
	for i, line := range lines[1:] {
		rec, err := decodeLine([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRecord, i+2, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func decodeLine(line []byte) (model.Record, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}

	var rec model.Record
	switch model.Kind(env.Type) {
	case model.KindRegistration:
		rec = &model.Registration{}
	case model.KindQuestionRating:
		rec = &model.QuestionRating{}
	case model.KindFinalAssessment:
		rec = &model.FinalAssessment{}
	case model.KindTechnicalMetric:
		rec = &model.TechnicalMetric{}
	default:
		return nil, fmt.Errorf("unknown record kind %q", env.Type)
	}

	if err := json.Unmarshal(env.Data, rec); err != nil {
		return nil, err
	}
	if rec.RecordID() == "" {
		return nil, errors.New("record has no id")
	}
	return rec, nil
}
