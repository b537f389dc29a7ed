package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/cache"
	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/service"
	"github.com/questlogger/questlogger/internal/store"
)

var noteColumns = []string{
	"id", "owner_id", "title", "content", "raw_transcript", "audio_url",
	"audio_duration", "language", "note_style", "is_public",
	"public_share_id", "tags", "folder", "quest_id", "ai_processed",
	"ai_summary", "extracted_action_items", "minutes_tracked",
	"minutes_refunded", "processing_status", "processing_error",
	"created_at", "updated_at",
}

func newNotesHandler(t *testing.T) (*NotesHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewNoteService(
		store.NewNoteRepository(db),
		store.NewSubscriptionRepository(db),
		store.NewUserRepository(db),
		nil,
		nil,
		cache.New("", ""),
		&config.Config{FrontendURL: "http://localhost:3000"},
		logger.Nop(),
	)
	return NewNotesHandler(svc), mock
}

func authedRequest(method, target string, userID int) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestListNotesPagination(t *testing.T) {
	expectPage := func(mock sqlmock.Sqlmock, limitOffset string, total int) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notes`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(total))
		mock.ExpectQuery("SELECT .+ FROM notes .+ " + limitOffset).
			WillReturnRows(sqlmock.NewRows(noteColumns))
	}

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) models.NoteList {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var list models.NoteList
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		return list
	}

	t.Run("skip and limit", func(t *testing.T) {
		h, mock := newNotesHandler(t)
		expectPage(mock, "LIMIT 5 OFFSET 20", 12)

		rec := httptest.NewRecorder()
		h.List(rec, authedRequest("GET", "/api/v1/notes?skip=20&limit=5", 1))

		list := decode(t, rec)
		assert.Equal(t, 12, list.Total)
		assert.Equal(t, 5, list.Page)
		assert.Equal(t, 5, list.Size)
		assert.Equal(t, 3, list.Pages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skip without limit uses default size", func(t *testing.T) {
		h, mock := newNotesHandler(t)
		expectPage(mock, "LIMIT 10 OFFSET 20", 25)

		rec := httptest.NewRecorder()
		h.List(rec, authedRequest("GET", "/api/v1/notes?skip=20", 1))

		list := decode(t, rec)
		assert.Equal(t, 3, list.Page)
		assert.Equal(t, 10, list.Size)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("page and size", func(t *testing.T) {
		h, mock := newNotesHandler(t)
		expectPage(mock, "LIMIT 5 OFFSET 5", 12)

		rec := httptest.NewRecorder()
		h.List(rec, authedRequest("GET", "/api/v1/notes?page=2&size=5", 1))

		list := decode(t, rec)
		assert.Equal(t, 2, list.Page)
		assert.Equal(t, 5, list.Size)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no params defaults to first page", func(t *testing.T) {
		h, mock := newNotesHandler(t)
		expectPage(mock, "LIMIT 10 OFFSET 0", 3)

		rec := httptest.NewRecorder()
		h.List(rec, authedRequest("GET", "/api/v1/notes", 1))

		list := decode(t, rec)
		assert.Equal(t, 1, list.Page)
		assert.Equal(t, 10, list.Size)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
