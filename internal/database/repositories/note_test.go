package repositories_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"jot/internal/database"
	"jot/internal/database/models"
	"jot/internal/database/repositories"
)

var (
	testDB   database.Service
	testRepo repositories.NoteRepository
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("jot_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start postgres container: %v\n", err)
		os.Exit(1)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		testDB, err = database.New(ctx, connStr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to test database: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	testRepo = repositories.NewNoteRepository(testDB.DB())

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// resetNotes clears the table between tests without resetting the id
// sequence, so ids stay fresh across the whole run.
func resetNotes(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	_, err := testDB.DB().Exec(context.Background(), "TRUNCATE notes")
	require.NoError(t, err)
}

func TestCreateAssignsFreshIDsAndEqualTimestamps(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	first := models.Note{Title: "first"}
	require.NoError(t, testRepo.Create(ctx, &first))
	second := models.Note{Title: "second", Content: "body", Tags: []string{"a", "b"}}
	require.NoError(t, testRepo.Create(ctx, &second))

	assert.Greater(t, first.ID, int64(0))
	assert.Greater(t, second.ID, first.ID)
	assert.True(t, first.CreatedAt.Equal(first.UpdatedAt))
	assert.True(t, second.CreatedAt.Equal(second.UpdatedAt))
}

func TestGetByID(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	note := models.Note{Title: "t", Content: "c", Tags: []string{"x"}}
	require.NoError(t, testRepo.Create(ctx, &note))

	got, err := testRepo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.Title, got.Title)
	assert.Equal(t, note.Content, got.Content)
	assert.Equal(t, []string{"x"}, got.Tags)

	_, err = testRepo.GetByID(ctx, 99999999)
	assert.ErrorIs(t, err, repositories.ErrNoteNotFound)
}

func TestGetAllOrdersNewestFirstWithIDTieBreak(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	batch := []models.Note{
		{Title: "tie-a", CreatedAt: newer, UpdatedAt: newer},
		{Title: "tie-b", CreatedAt: newer, UpdatedAt: newer},
		{Title: "old", CreatedAt: older, UpdatedAt: older},
	}
	_, err := testRepo.CreateBatch(ctx, batch)
	require.NoError(t, err)

	notes, err := testRepo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 3)

	// equal timestamps resolve by descending id
	assert.Equal(t, "tie-b", notes[0].Title)
	assert.Equal(t, "tie-a", notes[1].Title)
	assert.Equal(t, "old", notes[2].Title)
	assert.Greater(t, notes[0].ID, notes[1].ID)
}

func TestUpdatePartial(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	note := models.Note{Title: "keep", Content: "old", Tags: []string{"a", "b"}}
	require.NoError(t, testRepo.Create(ctx, &note))

	content := "new"
	updated, err := testRepo.Update(ctx, note.ID, repositories.NotePatch{Content: &content})
	require.NoError(t, err)

	assert.Equal(t, "keep", updated.Title)
	assert.Equal(t, "new", updated.Content)
	assert.Equal(t, []string{"a", "b"}, updated.Tags)
	assert.True(t, updated.CreatedAt.Equal(note.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(note.UpdatedAt))
}

func TestUpdateReplacesTagsWholesale(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	note := models.Note{Title: "t", Tags: []string{"a", "b"}}
	require.NoError(t, testRepo.Create(ctx, &note))

	tags := []string{"c"}
	updated, err := testRepo.Update(ctx, note.ID, repositories.NotePatch{Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, updated.Tags)
}

func TestUpdateMissing(t *testing.T) {
	resetNotes(t)

	title := "x"
	_, err := testRepo.Update(context.Background(), 99999999, repositories.NotePatch{Title: &title})
	assert.ErrorIs(t, err, repositories.ErrNoteNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	note := models.Note{Title: "t"}
	require.NoError(t, testRepo.Create(ctx, &note))

	require.NoError(t, testRepo.Delete(ctx, note.ID))
	require.NoError(t, testRepo.Delete(ctx, note.ID))

	_, err := testRepo.GetByID(ctx, note.ID)
	assert.ErrorIs(t, err, repositories.ErrNoteNotFound)
}

func TestCreateBatchAllOrNothing(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	now := time.Now().UTC()
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	batch := []models.Note{
		{Title: "ok-1", CreatedAt: now, UpdatedAt: now},
		{Title: string(long), CreatedAt: now, UpdatedAt: now}, // violates the title check
		{Title: "ok-2", CreatedAt: now, UpdatedAt: now},
	}
	_, err := testRepo.CreateBatch(ctx, batch)
	require.Error(t, err)

	notes, err := testRepo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes, "a failed batch must persist nothing")
}

func TestStreamAllMatchesGetAll(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		note := models.Note{Title: title}
		require.NoError(t, testRepo.Create(ctx, &note))
	}

	listed, err := testRepo.GetAll(ctx)
	require.NoError(t, err)

	var streamed []models.Note
	err = testRepo.StreamAll(ctx, func(n models.Note) error {
		streamed = append(streamed, n)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, listed, streamed)
}

func TestStreamAllStopsOnCallbackError(t *testing.T) {
	resetNotes(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		note := models.Note{Title: title}
		require.NoError(t, testRepo.Create(ctx, &note))
	}

	stop := errors.New("stop")
	seen := 0
	err := testRepo.StreamAll(ctx, func(models.Note) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestReadyProbe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	assert.True(t, testDB.Ready(context.Background()))
}
