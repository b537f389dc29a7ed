package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/questlogger/questlogger/internal/models"
)

// NoteRepository persists notes.
type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

var noteColumns = []string{
	"id", "owner_id", "title", "content", "raw_transcript", "audio_url",
	"audio_duration", "language", "note_style", "is_public",
	"public_share_id", "tags", "folder", "quest_id", "ai_processed",
	"ai_summary", "extracted_action_items", "minutes_tracked",
	"minutes_refunded", "processing_status", "processing_error",
	"created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (models.Note, error) {
	var (
		n             models.Note
		content       sql.NullString
		rawTranscript sql.NullString
		audioURL      sql.NullString
		audioDuration sql.NullFloat64
		language      sql.NullString
		shareID       sql.NullString
		tags          sql.NullString
		folder        sql.NullString
		questID       sql.NullInt64
		aiSummary     sql.NullString
		actionItems   sql.NullString
		minutes       sql.NullFloat64
		procErr       sql.NullString
	)

	err := row.Scan(
		&n.ID, &n.OwnerID, &n.Title, &content, &rawTranscript, &audioURL,
		&audioDuration, &language, &n.Style, &n.IsPublic, &shareID, &tags,
		&folder, &questID, &n.AIProcessed, &aiSummary, &actionItems,
		&minutes, &n.MinutesRefunded, &n.ProcessingStatus, &procErr,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return models.Note{}, err
	}

	n.Content = content.String
	n.RawTranscript = rawTranscript.String
	n.AudioURL = audioURL.String
	n.AudioDuration = audioDuration.Float64
	n.Language = language.String
	n.PublicShareID = shareID.String
	n.Tags = tags.String
	n.Folder = folder.String
	n.QuestID = int(questID.Int64)
	n.AISummary = aiSummary.String
	n.ExtractedActionItems = actionItems.String
	n.MinutesTracked = minutes.Float64
	n.ProcessingError = procErr.String

	return n, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}

// Create inserts the note and fills in its generated ID.
func (r *NoteRepository) Create(ctx context.Context, n *models.Note) error {
	query, args, err := builder.
		Insert("notes").
		Columns("owner_id", "title", "content", "raw_transcript",
			"audio_duration", "language", "note_style", "tags", "folder",
			"quest_id", "ai_processed", "ai_summary",
			"extracted_action_items", "minutes_tracked",
			"processing_status").
		Values(n.OwnerID, n.Title, n.Content, nullStr(n.RawTranscript),
			n.AudioDuration, nullStr(n.Language), n.Style, nullStr(n.Tags),
			nullStr(n.Folder), nullInt(n.QuestID), n.AIProcessed,
			nullStr(n.AISummary), nullStr(n.ExtractedActionItems),
			n.MinutesTracked, n.ProcessingStatus).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("note insert id: %w", err)
	}
	n.ID = int(id)

	return nil
}

// Get returns the note only when it belongs to ownerID.
func (r *NoteRepository) Get(ctx context.Context, ownerID, noteID int) (models.Note, error) {
	query, args, err := builder.
		Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"id": noteID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return models.Note{}, fmt.Errorf("build select: %w", err)
	}

	n, err := scanNote(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return models.Note{}, ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("get note: %w", err)
	}

	return n, nil
}

// GetByShareID returns a publicly shared note.
func (r *NoteRepository) GetByShareID(ctx context.Context, shareID string) (models.Note, error) {
	query, args, err := builder.
		Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"public_share_id": shareID, "is_public": true}).
		ToSql()
	if err != nil {
		return models.Note{}, fmt.Errorf("build select: %w", err)
	}

	n, err := scanNote(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return models.Note{}, ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("get shared note: %w", err)
	}

	return n, nil
}

// ListFilter narrows and orders the note listing.
type ListFilter struct {
	Page      int
	Size      int
	Folder    string
	Tag       string
	Search    string
	SortBy    string // created_at, updated_at, title
	SortOrder string // asc, desc
}

func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 10
	}
	switch f.SortBy {
	case "created_at", "updated_at", "title":
	default:
		f.SortBy = "updated_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

// List returns a page of the user's notes plus the total count for the
// same filter.
func (r *NoteRepository) List(ctx context.Context, ownerID int, f ListFilter) (models.NoteList, error) {
	f.normalize()

	where := sq.And{sq.Eq{"owner_id": ownerID}}
	if f.Folder != "" {
		where = append(where, sq.Eq{"folder": f.Folder})
	}
	if f.Tag != "" {
		// Tags are stored comma-separated.
		where = append(where, sq.Like{"tags": "%" + f.Tag + "%"})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		where = append(where, sq.Or{
			sq.Like{"title": pattern},
			sq.Like{"content": pattern},
		})
	}

	countQuery, countArgs, err := builder.
		Select("COUNT(*)").
		From("notes").
		Where(where).
		ToSql()
	if err != nil {
		return models.NoteList{}, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return models.NoteList{}, fmt.Errorf("count notes: %w", err)
	}

	query, args, err := builder.
		Select(noteColumns...).
		From("notes").
		Where(where).
		OrderBy(f.SortBy + " " + strings.ToUpper(f.SortOrder)).
		Limit(uint64(f.Size)).
		Offset(uint64((f.Page - 1) * f.Size)).
		ToSql()
	if err != nil {
		return models.NoteList{}, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.NoteList{}, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return models.NoteList{}, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return models.NoteList{}, fmt.Errorf("list notes: %w", err)
	}

	pages := (total + f.Size - 1) / f.Size

	return models.NoteList{
		Items: items,
		Total: total,
		Page:  f.Page,
		Size:  f.Size,
		Pages: pages,
	}, nil
}

// Update rewrites the mutable fields of the note.
func (r *NoteRepository) Update(ctx context.Context, n *models.Note) error {
	query, args, err := builder.
		Update("notes").
		Set("title", n.Title).
		Set("content", n.Content).
		Set("tags", nullStr(n.Tags)).
		Set("folder", nullStr(n.Folder)).
		Set("note_style", n.Style).
		Set("is_public", n.IsPublic).
		Set("quest_id", nullInt(n.QuestID)).
		Set("ai_processed", n.AIProcessed).
		Set("ai_summary", nullStr(n.AISummary)).
		Set("extracted_action_items", nullStr(n.ExtractedActionItems)).
		Where(sq.Eq{"id": n.ID, "owner_id": n.OwnerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		// MySQL reports 0 for no-op updates too; treat it as success
		// only when the row exists.
		if _, err := r.Get(ctx, n.OwnerID, n.ID); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes the user's note.
func (r *NoteRepository) Delete(ctx context.Context, ownerID, noteID int) error {
	query, args, err := builder.
		Delete("notes").
		Where(sq.Eq{"id": noteID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetShare marks the note public under shareID, or clears sharing when
// shareID is empty.
func (r *NoteRepository) SetShare(ctx context.Context, ownerID, noteID int, shareID string) error {
	update := builder.Update("notes").
		Where(sq.Eq{"id": noteID, "owner_id": ownerID})
	if shareID == "" {
		update = update.Set("is_public", false).Set("public_share_id", nil)
	} else {
		update = update.Set("is_public", true).Set("public_share_id", shareID)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build share update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update share: %w", err)
	}

	return nil
}

// Folders returns the distinct non-empty folders used by the user.
func (r *NoteRepository) Folders(ctx context.Context, ownerID int) ([]string, error) {
	query, args, err := builder.
		Select("DISTINCT folder").
		From("notes").
		Where(sq.And{
			sq.Eq{"owner_id": ownerID},
			sq.NotEq{"folder": nil},
			sq.NotEq{"folder": ""},
		}).
		OrderBy("folder ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build folders query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}

	return folders, rows.Err()
}

// Tags returns the distinct tags used by the user. Tags are stored as
// comma-separated text per note, so splitting happens here.
func (r *NoteRepository) Tags(ctx context.Context, ownerID int) ([]string, error) {
	query, args, err := builder.
		Select("tags").
		From("notes").
		Where(sq.And{
			sq.Eq{"owner_id": ownerID},
			sq.NotEq{"tags": nil},
			sq.NotEq{"tags": ""},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tags query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				seen[t] = true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return tags, nil
}

// SetProcessingResult stores the outcome of async audio processing,
// including the measured duration and billed minutes the pending insert
// left at zero.
func (r *NoteRepository) SetProcessingResult(ctx context.Context, noteID int, transcript, content, language, summary, actionItems string, duration, minutes float64) error {
	query, args, err := builder.
		Update("notes").
		Set("raw_transcript", transcript).
		Set("content", content).
		Set("language", nullStr(language)).
		Set("ai_summary", nullStr(summary)).
		Set("extracted_action_items", nullStr(actionItems)).
		Set("ai_processed", summary != "" || actionItems != "").
		Set("audio_duration", duration).
		Set("minutes_tracked", minutes).
		Set("processing_status", "completed").
		Set("processing_error", nil).
		Where(sq.Eq{"id": noteID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build processing update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store processing result: %w", err)
	}

	return nil
}

// SetProcessingFailed marks the note's processing as failed and records
// whether the tracked minutes were refunded.
func (r *NoteRepository) SetProcessingFailed(ctx context.Context, noteID int, reason string, refunded bool) error {
	query, args, err := builder.
		Update("notes").
		Set("processing_status", "error").
		Set("processing_error", reason).
		Set("minutes_refunded", refunded).
		Where(sq.Eq{"id": noteID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build processing update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store processing failure: %w", err)
	}

	return nil
}

// SetStatus updates only the processing status column.
func (r *NoteRepository) SetStatus(ctx context.Context, noteID int, status string) error {
	query, args, err := builder.
		Update("notes").
		Set("processing_status", status).
		Where(sq.Eq{"id": noteID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update processing status: %w", err)
	}

	return nil
}
