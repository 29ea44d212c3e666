package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"jot/internal/bulk"
	"jot/internal/database/dto"
	"jot/internal/database/models"
	"jot/internal/database/repositories"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Get("/health", s.healthHandler)
	s.App.Get("/ping", s.pingHandler)
	s.App.Get("/ready", s.readyHandler)

	s.App.Post("/notes", s.createNote)
	s.App.Get("/notes", s.getAllNotes)
	// static segments before the :id wildcard
	s.App.Get("/notes/export", s.exportNotes)
	s.App.Post("/notes/import", s.importNotes)
	s.App.Get("/notes/:id", s.getSingleNote)
	s.App.Patch("/notes/:id", s.updateNote)
	s.App.Delete("/notes/:id", s.deleteNote)
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *FiberServer) pingHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func (s *FiberServer) readyHandler(c *fiber.Ctx) error {
	if !s.db.Ready(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ReadyResponse{Ready: false})
	}
	return c.JSON(dto.ReadyResponse{Ready: true})
}

// parseNoteID treats a non-numeric id the same as a missing one: the
// resource cannot exist.
func parseNoteID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, notFoundErr()
	}
	return id, nil
}

func (s *FiberServer) createNote(c *fiber.Ctx) error {
	req := dto.CreateNoteRequest{}
	if err := c.BodyParser(&req); err != nil {
		return validationErr("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return validationErr(err.Error())
	}
	note := models.Note{Title: req.Title, Content: req.Content, Tags: req.Tags}
	if err := s.notes.Create(c.Context(), &note); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (s *FiberServer) getAllNotes(c *fiber.Ctx) error {
	notes, err := s.notes.GetAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(dto.ListNotesResponse{Items: notes})
}

func (s *FiberServer) getSingleNote(c *fiber.Ctx) error {
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}
	note, err := s.notes.GetByID(c.Context(), id)
	if errors.Is(err, repositories.ErrNoteNotFound) {
		return notFoundErr()
	}
	if err != nil {
		return err
	}
	return c.JSON(note)
}

func (s *FiberServer) updateNote(c *fiber.Ctx) error {
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}
	req := dto.UpdateNoteRequest{}
	if err := c.BodyParser(&req); err != nil {
		return validationErr("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return validationErr(err.Error())
	}
	patch := repositories.NotePatch{Title: req.Title, Content: req.Content, Tags: req.Tags}
	note, err := s.notes.Update(c.Context(), id, patch)
	if errors.Is(err, repositories.ErrNoteNotFound) {
		return notFoundErr()
	}
	if err != nil {
		return err
	}
	return c.JSON(note)
}

// deleteNote is idempotent: a missing or even unparseable id still
// answers 204.
func (s *FiberServer) deleteNote(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.notes.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *FiberServer) importNotes(c *fiber.Ctx) error {
	limits := bulk.Limits{MaxBytes: s.cfg.ImportMaxBytes, MaxLines: s.cfg.ImportMaxLines}
	notes, err := bulk.Parse(c.Body(), limits, time.Now().UTC())
	if err != nil {
		return badRequestErr(err.Error())
	}
	inserted, err := s.notes.CreateBatch(c.Context(), notes)
	if err != nil {
		return err
	}
	return c.JSON(dto.ImportResult{Inserted: inserted})
}

// exportNotes streams notes newest first, one JSON object per line. The
// body writer runs after this handler returns, so it cannot use the
// request context; a failed write (client gone) aborts the traversal and
// releases the rows.
func (s *FiberServer) exportNotes(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		err := s.notes.StreamAll(context.Background(), func(note models.Note) error {
			if err := enc.Encode(note); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			s.log.Error().Err(err).Msg("export stream aborted")
		}
	})
	return nil
}
