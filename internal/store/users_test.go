package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateReturnsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("hero@example.com", "hero", "hashed-password", 0, 1).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := repo.Create(context.Background(), "hero@example.com", "hero", "hashed-password")
	require.NoError(t, err)
	assert.Equal(t, 12, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "email", "username", "password", "experience", "level", "created_at"}).
		AddRow(12, "hero@example.com", "hero", "hashed", 150, 2, now)
	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("hero@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "hero@example.com")
	require.NoError(t, err)
	assert.Equal(t, 12, user.ID)
	assert.Equal(t, 150, user.Experience)
	assert.Equal(t, 2, user.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSaveProgress(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET experience = ").
		WithArgs(220, 3, 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveProgress(context.Background(), 12, 220, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
