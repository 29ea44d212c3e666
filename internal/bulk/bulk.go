// Package bulk parses the newline-delimited JSON import format. Parsing is
// strict and happens entirely before any insert: the first invalid line
// fails the whole payload with its 1-based line number and, where known,
// the offending field.
package bulk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"jot/internal/database/models"
)

// Limits bound the payload before any line is parsed. Zero disables the
// corresponding check.
type Limits struct {
	MaxBytes int
	MaxLines int
}

// LineError reports the first rejected line of an import payload.
type LineError struct {
	Line   int // 1-based
	Field  string
	Reason string
}

func (e *LineError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: field %q: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// record uses pointers so an absent field is distinguishable from an
// empty one, and so a wrong-typed value surfaces as a type error naming
// the field.
type record struct {
	Title     *string  `json:"title"`
	Content   *string  `json:"content"`
	Tags      []string `json:"tags"`
	CreatedAt *string  `json:"created_at"`
	UpdatedAt *string  `json:"updated_at"`
}

// Parse validates and decodes an import payload. Blank lines and lines
// starting with '#' are skipped. now supplies the default created_at for
// records that omit it; an omitted updated_at defaults to the resolved
// created_at.
func Parse(data []byte, limits Limits, now time.Time) ([]models.Note, error) {
	if limits.MaxBytes > 0 && len(data) > limits.MaxBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", limits.MaxBytes)
	}
	lines := bytes.Split(data, []byte("\n"))
	if limits.MaxLines > 0 && len(lines) > limits.MaxLines {
		return nil, fmt.Errorf("payload exceeds %d lines", limits.MaxLines)
	}

	notes := make([]models.Note, 0, len(lines))
	for i, raw := range lines {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		note, err := parseLine(line, now)
		if err != nil {
			err.Line = i + 1
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func parseLine(line []byte, now time.Time) (models.Note, *LineError) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.Note{}, &LineError{Field: typeErr.Field, Reason: "wrong type"}
		}
		return models.Note{}, &LineError{Reason: "malformed JSON"}
	}

	if rec.Title == nil {
		return models.Note{}, &LineError{Field: "title", Reason: "required"}
	}
	if n := utf8.RuneCountInString(*rec.Title); n < 1 || n > 100 {
		return models.Note{}, &LineError{Field: "title", Reason: "must be between 1 and 100 characters"}
	}

	note := models.Note{Title: *rec.Title, Tags: []string{}}
	if rec.Content != nil {
		note.Content = *rec.Content
	}
	if rec.Tags != nil {
		note.Tags = rec.Tags
	}

	note.CreatedAt = now
	if rec.CreatedAt != nil {
		t, err := ParseTimestamp(*rec.CreatedAt)
		if err != nil {
			return models.Note{}, &LineError{Field: "created_at", Reason: err.Error()}
		}
		note.CreatedAt = t
	}
	note.UpdatedAt = note.CreatedAt
	if rec.UpdatedAt != nil {
		t, err := ParseTimestamp(*rec.UpdatedAt)
		if err != nil {
			return models.Note{}, &LineError{Field: "updated_at", Reason: err.Error()}
		}
		note.UpdatedAt = t
	}
	return note, nil
}

// timestampLayouts cover ISO-8601 with and without an offset; the .999...
// fraction matches zero or more fractional digits.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts ISO-8601 timestamps. A trailing Z is normalized
// to an explicit UTC offset before parsing; an offset-less value is read
// as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
