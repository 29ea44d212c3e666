package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jot/internal/database/models"
)

// ErrNoteNotFound signals a missing id. Absence is a business result, not
// an infrastructure failure, so callers can map it without string matching.
var ErrNoteNotFound = errors.New("note not found")

// NotePatch carries a partial update. Nil fields are left unchanged;
// a non-nil Tags replaces the stored list wholesale.
type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id int64) (*models.Note, error)
	GetAll(ctx context.Context) ([]models.Note, error)
	Update(ctx context.Context, id int64, patch NotePatch) (*models.Note, error)
	Delete(ctx context.Context, id int64) error
	CreateBatch(ctx context.Context, notes []models.Note) (int, error)
	StreamAll(ctx context.Context, fn func(models.Note) error) error
}

type noteRepository struct {
	db *pgxpool.Pool
}

func NewNoteRepository(db *pgxpool.Pool) NoteRepository {
	return &noteRepository{db: db}
}

const noteColumns = "id, title, content, tags, created_at, updated_at"

func (r *noteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.Tags == nil {
		note.Tags = []string{}
	}
	// now() is the statement timestamp, so both columns come back equal.
	query := `
		INSERT INTO notes (title, content, tags, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, note.Title, note.Content, note.Tags).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating note: %v", err)
	}
	return nil
}

func (r *noteRepository) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	note := models.Note{}
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&note.ID, &note.Title, &note.Content, &note.Tags, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting note: %v", err)
	}
	normalizeTags(&note)
	return &note, nil
}

// GetAll returns every note newest first. The id tie-break keeps the order
// deterministic when several notes share a creation timestamp.
func (r *noteRepository) GetAll(ctx context.Context) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying notes: %v", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var note models.Note
		err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.Tags, &note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning note: %v", err)
		}
		normalizeTags(&note)
		notes = append(notes, note)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %v", err)
	}
	return notes, nil
}

// Update applies only the fields present in the patch. updated_at is
// refreshed on every successful update, even a no-op one.
func (r *noteRepository) Update(ctx context.Context, id int64, patch NotePatch) (*models.Note, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Content != nil {
		args = append(args, *patch.Content)
		sets = append(sets, fmt.Sprintf("content = $%d", len(args)))
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		args = append(args, tags)
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE notes SET %s WHERE id = $%d RETURNING `+noteColumns,
		strings.Join(sets, ", "), len(args))

	note := models.Note{}
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&note.ID, &note.Title, &note.Content, &note.Tags, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating note: %v", err)
	}
	normalizeTags(&note)
	return &note, nil
}

// Delete is idempotent: deleting a missing id is a success, so rows
// affected is deliberately not checked.
func (r *noteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting note: %v", err)
	}
	return nil
}

// CreateBatch inserts all notes in a single transaction. Either every row
// is persisted or none are.
func (r *noteRepository) CreateBatch(ctx context.Context, notes []models.Note) (int, error) {
	if len(notes) == 0 {
		return 0, nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error starting import transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range notes {
		if notes[i].Tags == nil {
			notes[i].Tags = []string{}
		}
		batch.Queue(`
			INSERT INTO notes (title, content, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
			notes[i].Title, notes[i].Content, notes[i].Tags, notes[i].CreatedAt, notes[i].UpdatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	for range notes {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("error inserting imported note: %v", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("error closing import batch: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing import: %v", err)
	}
	return len(notes), nil
}

// StreamAll walks the notes in the same order as GetAll, one row at a time,
// without materializing the full set. Returning an error from fn stops the
// traversal and releases the rows.
func (r *noteRepository) StreamAll(ctx context.Context, fn func(models.Note) error) error {
	query := `SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("error querying notes: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var note models.Note
		err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.Tags, &note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error scanning note: %v", err)
		}
		normalizeTags(&note)
		if err := fn(note); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating notes: %v", err)
	}
	return nil
}

// normalizeTags keeps the JSON form of an empty tag list as [] rather
// than null.
func normalizeTags(note *models.Note) {
	if note.Tags == nil {
		note.Tags = []string{}
	}
}
