package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/questlogger/questlogger/internal/models"
)

// UserRepository persists accounts and gamification progress.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with a bcrypt password hash. The caller is
// responsible for hashing.
func (r *UserRepository) Create(ctx context.Context, email, username, passwordHash string) (int, error) {
	query, args, err := builder.
		Insert("users").
		Columns("email", "username", "password", "experience", "level").
		Values(email, nullStr(username), passwordHash, 0, 1).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}

	return int(id), nil
}

func (r *UserRepository) scanUser(row rowScanner) (models.User, error) {
	var (
		u        models.User
		username sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &username, &u.Password, &u.Experience, &u.Level, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Username = username.String
	return u, nil
}

// GetByEmail returns the user with the given email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	query, args, err := builder.
		Select("id", "email", "username", "password", "experience", "level", "created_at").
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("build select: %w", err)
	}

	return r.scanUser(r.db.QueryRowContext(ctx, query, args...))
}

// GetByID returns the user with the given ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (models.User, error) {
	query, args, err := builder.
		Select("id", "email", "username", "password", "experience", "level", "created_at").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("build select: %w", err)
	}

	return r.scanUser(r.db.QueryRowContext(ctx, query, args...))
}

// SaveProgress writes back experience and level after an XP award.
func (r *UserRepository) SaveProgress(ctx context.Context, userID, experience, level int) error {
	query, args, err := builder.
		Update("users").
		Set("experience", experience).
		Set("level", level).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	return nil
}
