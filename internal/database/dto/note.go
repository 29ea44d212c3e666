package dto

import (
	"errors"
	"unicode/utf8"

	"jot/internal/database/models"
)

const (
	TitleMinLength = 1
	TitleMaxLength = 100
)

var errTitleLength = errors.New("title must be between 1 and 100 characters")

type CreateNoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (r *CreateNoteRequest) Validate() error {
	if n := utf8.RuneCountInString(r.Title); n < TitleMinLength || n > TitleMaxLength {
		return errTitleLength
	}
	return nil
}

// UpdateNoteRequest is a partial update. Nil means the field was absent
// and must be left unchanged; tags replace the whole list when present.
type UpdateNoteRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

func (r *UpdateNoteRequest) Validate() error {
	if r.Title != nil {
		if n := utf8.RuneCountInString(*r.Title); n < TitleMinLength || n > TitleMaxLength {
			return errTitleLength
		}
	}
	return nil
}

type ListNotesResponse struct {
	Items []models.Note `json:"items"`
}

type ImportResult struct {
	Inserted int `json:"inserted"`
}

type ReadyResponse struct {
	Ready bool `json:"ready"`
}

// ErrorResponse is the body of every non-2xx response: a human message
// plus a stable machine code.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}
