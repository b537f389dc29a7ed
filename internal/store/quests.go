package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/questlogger/questlogger/internal/models"
)

// QuestRepository persists quests.
type QuestRepository struct {
	db *sql.DB
}

func NewQuestRepository(db *sql.DB) *QuestRepository {
	return &QuestRepository{db: db}
}

var questColumns = []string{
	"id", "owner_id", "title", "description", "quest_type", "rarity",
	"priority", "exp_reward", "is_completed", "completed_at",
	"created_at", "updated_at",
}

func scanQuest(row rowScanner) (models.Quest, error) {
	var (
		q           models.Quest
		description sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(&q.ID, &q.OwnerID, &q.Title, &description, &q.Type,
		&q.Rarity, &q.Priority, &q.ExpReward, &q.IsCompleted, &completedAt,
		&q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Quest{}, ErrNotFound
	}
	if err != nil {
		return models.Quest{}, fmt.Errorf("scan quest: %w", err)
	}

	q.Description = description.String
	if completedAt.Valid {
		q.CompletedAt = &completedAt.Time
	}

	return q, nil
}

// Create inserts the quest and fills in its ID.
func (r *QuestRepository) Create(ctx context.Context, q *models.Quest) error {
	query, args, err := builder.
		Insert("quests").
		Columns("owner_id", "title", "description", "quest_type", "rarity",
			"priority", "exp_reward").
		Values(q.OwnerID, q.Title, nullStr(q.Description), q.Type, q.Rarity,
			q.Priority, q.ExpReward).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert quest: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("quest insert id: %w", err)
	}
	q.ID = int(id)

	return nil
}

// Get returns the quest only when it belongs to ownerID.
func (r *QuestRepository) Get(ctx context.Context, ownerID, questID int) (models.Quest, error) {
	query, args, err := builder.
		Select(questColumns...).
		From("quests").
		Where(sq.Eq{"id": questID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return models.Quest{}, fmt.Errorf("build select: %w", err)
	}

	return scanQuest(r.db.QueryRowContext(ctx, query, args...))
}

// List returns the user's quests, open ones first.
func (r *QuestRepository) List(ctx context.Context, ownerID int) ([]models.Quest, error) {
	query, args, err := builder.
		Select(questColumns...).
		From("quests").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("is_completed ASC", "priority DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	quests := []models.Quest{}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}

	return quests, rows.Err()
}

// Complete marks the quest done. Returns ErrNotFound when the quest
// does not exist or is already completed, so XP cannot be farmed by
// re-completing.
func (r *QuestRepository) Complete(ctx context.Context, ownerID, questID int, at time.Time) error {
	query, args, err := builder.
		Update("quests").
		Set("is_completed", true).
		Set("completed_at", at).
		Where(sq.Eq{"id": questID, "owner_id": ownerID, "is_completed": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete quest: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the user's quest.
func (r *QuestRepository) Delete(ctx context.Context, ownerID, questID int) error {
	query, args, err := builder.
		Delete("quests").
		Where(sq.Eq{"id": questID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	return nil
}
