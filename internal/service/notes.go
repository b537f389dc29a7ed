package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/questlogger/questlogger/internal/cache"
	"github.com/questlogger/questlogger/internal/config"
	"github.com/questlogger/questlogger/internal/export"
	"github.com/questlogger/questlogger/internal/gamification"
	"github.com/questlogger/questlogger/internal/logger"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/speech"
	"github.com/questlogger/questlogger/internal/store"
)

// LLM is the subset of the OpenRouter client the note pipeline uses.
type LLM interface {
	ProcessStyle(ctx context.Context, content string, style models.NoteStyle) (string, error)
	Summarize(ctx context.Context, content string) (string, error)
	ExtractActionItems(ctx context.Context, content string) (string, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// needsActionItems mirrors llm.NeedsActionItems without importing the
// package, keeping the LLM dependency behind the interface.
func needsActionItems(style models.NoteStyle) bool {
	switch style {
	case models.StyleActionItems, models.StyleTaskList, models.StyleMeetingNotes:
		return true
	}
	return false
}

// Audio uploads at or below this size are transcribed synchronously;
// roughly one minute of compressed speech.
const syncAudioLimit = 1 << 20

// asyncProcessingTimeout bounds background transcription plus LLM work.
const asyncProcessingTimeout = 10 * time.Minute

// NoteService owns the note lifecycle: CRUD, sharing, export, and the
// voice/AI processing pipeline.
type NoteService struct {
	notes *store.NoteRepository
	subs  *store.SubscriptionRepository
	users *store.UserRepository

	llm   LLM
	stt   speech.Transcriber
	cache *cache.SharedNotes

	cfg *config.Config
	log *logger.Logger
}

func NewNoteService(
	notes *store.NoteRepository,
	subs *store.SubscriptionRepository,
	users *store.UserRepository,
	llmClient LLM,
	stt speech.Transcriber,
	sharedCache *cache.SharedNotes,
	cfg *config.Config,
	log *logger.Logger,
) *NoteService {
	return &NoteService{
		notes: notes,
		subs:  subs,
		users: users,
		llm:   llmClient,
		stt:   stt,
		cache: sharedCache,
		cfg:   cfg,
		log:   log,
	}
}

// CreateNoteInput is the POST /notes payload.
type CreateNoteInput struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Tags      string           `json:"tags"`
	Folder    string           `json:"folder"`
	NoteStyle models.NoteStyle `json:"note_style"`
	QuestID   int              `json:"quest_id"`
	AIProcess bool             `json:"ai_process"`
}

// aiResult is what the LLM pipeline produced for a piece of content.
type aiResult struct {
	content     string
	summary     string
	actionItems string
	processed   bool
}

// hasAdvancedAI reports whether the user's plan currently includes AI
// processing.
func (s *NoteService) hasAdvancedAI(ctx context.Context, userID int) bool {
	if !s.cfg.EnableLLMFeatures || s.llm == nil {
		return false
	}

	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		return false
	}
	if sub.Status != models.StatusActive && sub.Status != models.StatusTrialing {
		return false
	}

	return sub.AdvancedAIFeatures
}

// runAI pushes content through the style rewrite, summary and action
// item extraction. Errors are logged and swallowed; the note always
// survives with whatever the pipeline managed to produce.
func (s *NoteService) runAI(ctx context.Context, content string, style models.NoteStyle) aiResult {
	result := aiResult{content: content}

	processed, err := s.llm.ProcessStyle(ctx, content, style)
	if err != nil {
		s.log.Error().Err(err).Msg("style processing failed")
		return result
	}
	if processed != "" {
		result.content = processed
		result.processed = true
	}

	// A summary of a summary adds nothing.
	if style != models.StyleSummary {
		summary, err := s.llm.Summarize(ctx, result.content)
		if err != nil {
			s.log.Error().Err(err).Msg("summarization failed")
		} else {
			result.summary = summary
		}
	}

	if needsActionItems(style) {
		items, err := s.llm.ExtractActionItems(ctx, result.content)
		if err != nil {
			s.log.Error().Err(err).Msg("action item extraction failed")
		} else {
			result.actionItems = items
		}
	}

	return result
}

// maybeTranslate returns the transcript translated to English when
// translation is enabled and the recording was in another language.
// The original transcript is kept as the raw transcript either way.
func (s *NoteService) maybeTranslate(ctx context.Context, text, language string) string {
	if !s.cfg.EnableTranslation || s.llm == nil {
		return text
	}
	if language == "" || language == "en" {
		return text
	}

	translated, err := s.llm.Translate(ctx, text, "English")
	if err != nil {
		s.log.Error().Err(err).Str("language", language).Msg("translation failed")
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}

// awardNoteXP grants the small XP bonus for creating a note. Failures
// only get logged; gamification never blocks note creation.
func (s *NoteService) awardNoteXP(ctx context.Context, userID int) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Int("user_id", userID).Msg("load user for xp award")
		return
	}

	gamification.ApplyXP(&user, gamification.NoteCreationXP)
	if err := s.users.SaveProgress(ctx, user.ID, user.Experience, user.Level); err != nil {
		s.log.Error().Err(err).Int("user_id", userID).Msg("save xp award")
	}
}

// Create stores a new text note, optionally processed by the LLM.
func (s *NoteService) Create(ctx context.Context, userID int, in CreateNoteInput) (models.Note, error) {
	note := models.Note{
		OwnerID:          userID,
		Title:            in.Title,
		Content:          in.Content,
		Tags:             in.Tags,
		Folder:           in.Folder,
		Style:            in.NoteStyle,
		QuestID:          in.QuestID,
		ProcessingStatus: models.ProcessingCompleted,
	}
	if note.Style == "" {
		note.Style = models.StyleStandard
	}

	if in.AIProcess && in.Content != "" && s.hasAdvancedAI(ctx, userID) {
		res := s.runAI(ctx, in.Content, note.Style)
		note.Content = res.content
		note.AISummary = res.summary
		note.ExtractedActionItems = res.actionItems
		note.AIProcessed = res.processed
	}

	if err := s.notes.Create(ctx, &note); err != nil {
		return models.Note{}, err
	}

	s.awardNoteXP(ctx, userID)

	created, err := s.notes.Get(ctx, userID, note.ID)
	if err != nil {
		// The insert succeeded; fall back to what we have.
		return note, nil
	}
	return created, nil
}

// Get returns the user's note.
func (s *NoteService) Get(ctx context.Context, userID, noteID int) (models.Note, error) {
	return s.notes.Get(ctx, userID, noteID)
}

// GetShared returns a publicly shared note, consulting the cache first.
func (s *NoteService) GetShared(ctx context.Context, shareID string) (models.Note, error) {
	if note, ok := s.cache.Get(ctx, shareID); ok {
		return note, nil
	}

	note, err := s.notes.GetByShareID(ctx, shareID)
	if err != nil {
		return models.Note{}, err
	}

	s.cache.Set(ctx, shareID, note)
	return note, nil
}

// List returns a filtered page of the user's notes.
func (s *NoteService) List(ctx context.Context, userID int, f store.ListFilter) (models.NoteList, error) {
	return s.notes.List(ctx, userID, f)
}

// UpdateNoteInput carries the optional fields of PUT /notes/{id}.
type UpdateNoteInput struct {
	Title     *string           `json:"title"`
	Content   *string           `json:"content"`
	Tags      *string           `json:"tags"`
	Folder    *string           `json:"folder"`
	NoteStyle *models.NoteStyle `json:"note_style"`
	IsPublic  *bool             `json:"is_public"`
	QuestID   *int              `json:"quest_id"`
}

// Update applies the provided fields, re-running the LLM pipeline when
// content or style changed on a plan that includes it.
func (s *NoteService) Update(ctx context.Context, userID, noteID int, in UpdateNoteInput) (models.Note, error) {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return models.Note{}, err
	}

	styleChanged := in.NoteStyle != nil && *in.NoteStyle != note.Style
	contentChanged := in.Content != nil && *in.Content != note.Content

	if in.Title != nil {
		note.Title = *in.Title
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	if in.Tags != nil {
		note.Tags = *in.Tags
	}
	if in.Folder != nil {
		note.Folder = *in.Folder
	}
	if in.NoteStyle != nil {
		note.Style = *in.NoteStyle
	}
	if in.IsPublic != nil {
		note.IsPublic = *in.IsPublic
	}
	if in.QuestID != nil {
		note.QuestID = *in.QuestID
	}

	if (styleChanged || contentChanged) && note.Content != "" && s.hasAdvancedAI(ctx, userID) {
		res := s.runAI(ctx, note.Content, note.Style)
		note.Content = res.content
		if res.summary != "" {
			note.AISummary = res.summary
		}
		if res.actionItems != "" {
			note.ExtractedActionItems = res.actionItems
		}
		if res.processed {
			note.AIProcessed = true
		}
	}

	if err := s.notes.Update(ctx, &note); err != nil {
		return models.Note{}, err
	}

	if note.PublicShareID != "" {
		s.cache.Invalidate(ctx, note.PublicShareID)
	}

	return s.notes.Get(ctx, userID, noteID)
}

// Delete removes the note and drops any cached shared copy.
func (s *NoteService) Delete(ctx context.Context, userID, noteID int) error {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return err
	}

	if err := s.notes.Delete(ctx, userID, noteID); err != nil {
		return err
	}

	if note.PublicShareID != "" {
		s.cache.Invalidate(ctx, note.PublicShareID)
	}

	return nil
}

// Folders lists the user's distinct folders.
func (s *NoteService) Folders(ctx context.Context, userID int) ([]string, error) {
	return s.notes.Folders(ctx, userID)
}

// Tags lists the user's distinct tags.
func (s *NoteService) Tags(ctx context.Context, userID int) ([]string, error) {
	return s.notes.Tags(ctx, userID)
}

// ShareLink is the POST /notes/{id}/share response.
type ShareLink struct {
	ShareID       string `json:"share_id"`
	ShareURL      string `json:"share_url"`
	AlreadyShared bool   `json:"already_shared"`
}

func (s *NoteService) shareURL(shareID string) string {
	return fmt.Sprintf("%s/notes/shared/%s", s.cfg.FrontendURL, shareID)
}

// Share makes the note public. Sharing an already shared note returns
// the existing link.
func (s *NoteService) Share(ctx context.Context, userID, noteID int) (ShareLink, error) {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return ShareLink{}, err
	}

	if note.PublicShareID != "" {
		return ShareLink{
			ShareID:       note.PublicShareID,
			ShareURL:      s.shareURL(note.PublicShareID),
			AlreadyShared: true,
		}, nil
	}

	shareID := uuid.NewString()
	if err := s.notes.SetShare(ctx, userID, noteID, shareID); err != nil {
		return ShareLink{}, err
	}

	return ShareLink{
		ShareID:  shareID,
		ShareURL: s.shareURL(shareID),
	}, nil
}

// UnshareResult is the DELETE /notes/{id}/share response.
type UnshareResult struct {
	Success         bool `json:"success"`
	AlreadyUnshared bool `json:"already_unshared"`
}

// Unshare disables public access to the note.
func (s *NoteService) Unshare(ctx context.Context, userID, noteID int) (UnshareResult, error) {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return UnshareResult{}, err
	}

	if note.PublicShareID == "" {
		return UnshareResult{Success: true, AlreadyUnshared: true}, nil
	}

	if err := s.notes.SetShare(ctx, userID, noteID, ""); err != nil {
		return UnshareResult{}, err
	}

	s.cache.Invalidate(ctx, note.PublicShareID)

	return UnshareResult{Success: true}, nil
}

// Export renders the note in the requested download format.
func (s *NoteService) Export(ctx context.Context, userID, noteID int, format models.ExportFormat) (export.Document, error) {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return export.Document{}, err
	}

	return export.Render(note, format)
}

// VoiceNoteInput carries the multipart form fields of POST /notes/voice.
type VoiceNoteInput struct {
	Title     string
	Folder    string
	Tags      string
	NoteStyle models.NoteStyle
	QuestID   int
}

// CreateVoiceNote transcribes an uploaded recording into a note. Small
// uploads are handled in-request; anything larger is accepted as
// pending and processed in the background.
func (s *NoteService) CreateVoiceNote(ctx context.Context, userID int, audio []byte, mimeType string, in VoiceNoteInput) (models.Note, error) {
	if !s.cfg.EnableVoice || s.stt == nil {
		return models.Note{}, ErrFeatureDisabled
	}

	sub, err := s.subs.GetByUserID(ctx, userID)
	if err == nil && sub.MinutesUsed >= sub.MinutesLimit {
		return models.Note{}, ErrQuotaExceeded
	}

	note := models.Note{
		OwnerID: userID,
		Title:   in.Title,
		Folder:  in.Folder,
		Tags:    in.Tags,
		Style:   in.NoteStyle,
		QuestID: in.QuestID,
	}
	if note.Style == "" {
		note.Style = models.StyleStandard
	}

	if len(audio) <= syncAudioLimit {
		return s.processVoiceSync(ctx, userID, audio, mimeType, note)
	}

	note.ProcessingStatus = models.ProcessingPending
	if err := s.notes.Create(ctx, &note); err != nil {
		return models.Note{}, err
	}

	go s.processVoiceAsync(userID, note.ID, audio, mimeType, note.Style)

	s.awardNoteXP(ctx, userID)

	return note, nil
}

func (s *NoteService) processVoiceSync(ctx context.Context, userID int, audio []byte, mimeType string, note models.Note) (models.Note, error) {
	result, err := s.stt.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return models.Note{}, fmt.Errorf("transcribe audio: %w", err)
	}
	if result.Text == "" {
		return models.Note{}, errors.New("failed to transcribe audio (empty transcript)")
	}

	minutes := result.Duration / 60
	if err := s.subs.TrackUsage(ctx, userID, minutes); err != nil {
		s.log.Error().Err(err).Int("user_id", userID).Msg("track recording usage")
	}

	content := s.maybeTranslate(ctx, result.Text, result.Language)

	note.RawTranscript = result.Text
	note.Content = content
	note.Language = result.Language
	note.AudioDuration = result.Duration
	note.MinutesTracked = minutes
	note.ProcessingStatus = models.ProcessingCompleted

	if s.hasAdvancedAI(ctx, userID) {
		res := s.runAI(ctx, content, note.Style)
		note.Content = res.content
		note.AISummary = res.summary
		note.ExtractedActionItems = res.actionItems
		note.AIProcessed = res.processed
	}

	if err := s.notes.Create(ctx, &note); err != nil {
		return models.Note{}, err
	}

	s.awardNoteXP(ctx, userID)

	return note, nil
}

// processVoiceAsync runs in its own goroutine with a fresh context; the
// request that spawned it has already returned 202-style pending data.
func (s *NoteService) processVoiceAsync(userID, noteID int, audio []byte, mimeType string, style models.NoteStyle) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncProcessingTimeout)
	defer cancel()

	log := s.log.With().Int("user_id", userID).Int("note_id", noteID).Logger()

	if err := s.notes.SetStatus(ctx, noteID, models.ProcessingRunning); err != nil {
		log.Error().Err(err).Msg("mark note processing")
	}

	result, err := s.stt.Transcribe(ctx, audio, mimeType)
	if err != nil || result.Text == "" {
		if err == nil {
			err = errors.New("empty transcript")
		}
		log.Error().Err(err).Msg("async transcription failed")
		if ferr := s.notes.SetProcessingFailed(ctx, noteID, "transcription failed", false); ferr != nil {
			log.Error().Err(ferr).Msg("mark note failed")
		}
		return
	}

	// Track usage now that we know the real duration. On later failure
	// the minutes are refunded.
	minutes := result.Duration / 60
	tracked := s.subs.TrackUsage(ctx, userID, minutes) == nil

	content := s.maybeTranslate(ctx, result.Text, result.Language)
	summary, actionItems := "", ""
	if s.hasAdvancedAI(ctx, userID) {
		res := s.runAI(ctx, content, style)
		content = res.content
		summary = res.summary
		actionItems = res.actionItems
	}

	err = s.notes.SetProcessingResult(ctx, noteID, result.Text, content, result.Language, summary, actionItems, result.Duration, minutes)
	if err != nil {
		log.Error().Err(err).Msg("store async processing result")
		refunded := false
		if tracked {
			refunded = s.subs.TrackUsage(ctx, userID, -minutes) == nil
		}
		if ferr := s.notes.SetProcessingFailed(ctx, noteID, "failed to store processing result", refunded); ferr != nil {
			log.Error().Err(ferr).Msg("mark note failed")
		}
		return
	}

	log.Info().Float64("minutes", minutes).Msg("voice note processed")
}

// ProcessResult is the POST /notes/{id}/process response.
type ProcessResult struct {
	NoteID      int    `json:"note_id"`
	Content     string `json:"content"`
	AISummary   string `json:"ai_summary,omitempty"`
	ActionItems string `json:"extracted_action_items,omitempty"`
	AIProcessed bool   `json:"ai_processed"`
}

// ProcessExisting re-runs the LLM pipeline over an existing note's
// transcript (or content, for text notes).
func (s *NoteService) ProcessExisting(ctx context.Context, userID, noteID int) (ProcessResult, error) {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return ProcessResult{}, err
	}

	source := note.RawTranscript
	if source == "" {
		source = note.Content
	}
	if source == "" {
		return ProcessResult{}, errors.New("note has no content to process")
	}

	if !s.hasAdvancedAI(ctx, userID) {
		return ProcessResult{}, ErrFeatureDisabled
	}

	res := s.runAI(ctx, source, note.Style)

	note.Content = res.content
	if res.summary != "" {
		note.AISummary = res.summary
	}
	if res.actionItems != "" {
		note.ExtractedActionItems = res.actionItems
	}
	note.AIProcessed = note.AIProcessed || res.processed

	if err := s.notes.Update(ctx, &note); err != nil {
		return ProcessResult{}, err
	}

	return ProcessResult{
		NoteID:      note.ID,
		Content:     note.Content,
		AISummary:   note.AISummary,
		ActionItems: note.ExtractedActionItems,
		AIProcessed: note.AIProcessed,
	}, nil
}
