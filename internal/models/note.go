package models

import "time"

// NoteStyle selects the LLM rewrite applied to note content.
type NoteStyle string

const (
	StyleStandard        NoteStyle = "standard"
	StyleBulletPoints    NoteStyle = "bullet_points"
	StyleSummary         NoteStyle = "summary"
	StyleActionItems     NoteStyle = "action_items"
	StyleCustom          NoteStyle = "custom"
	StyleBlogPost        NoteStyle = "blog_post"
	StyleVideoScript     NoteStyle = "video_script"
	StyleSocialMediaPost NoteStyle = "social_media_post"
	StyleTaskList        NoteStyle = "task_list"
	StyleMeetingNotes    NoteStyle = "meeting_notes"
	StyleEmailDraft      NoteStyle = "email_draft"
	StyleCreativeWriting NoteStyle = "creative_writing"
	StyleCodeDocs        NoteStyle = "code_documentation"
	StyleNewsletter      NoteStyle = "newsletter"
	StyleAcademicPaper   NoteStyle = "academic_paper"
)

// ParseNoteStyle returns the style matching s, falling back to
// StyleStandard for anything unknown.
func ParseNoteStyle(s string) NoteStyle {
	switch NoteStyle(s) {
	case StyleStandard, StyleBulletPoints, StyleSummary, StyleActionItems,
		StyleCustom, StyleBlogPost, StyleVideoScript, StyleSocialMediaPost,
		StyleTaskList, StyleMeetingNotes, StyleEmailDraft,
		StyleCreativeWriting, StyleCodeDocs, StyleNewsletter,
		StyleAcademicPaper:
		return NoteStyle(s)
	}
	return StyleStandard
}

// ExportFormat is the download format for GET /notes/{id}/export.
type ExportFormat string

const (
	ExportText     ExportFormat = "text"
	ExportMarkdown ExportFormat = "markdown"
	ExportPDF      ExportFormat = "pdf"
)

// ParseExportFormat falls back to ExportText for unknown values.
func ParseExportFormat(s string) ExportFormat {
	switch ExportFormat(s) {
	case ExportText, ExportMarkdown, ExportPDF:
		return ExportFormat(s)
	}
	return ExportText
}

// Processing status values for voice notes.
const (
	ProcessingPending   = "pending"
	ProcessingRunning   = "processing"
	ProcessingCompleted = "completed"
	ProcessingError     = "error"
)

type Note struct {
	ID            int       `json:"id"`
	OwnerID       int       `json:"owner_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	RawTranscript string    `json:"raw_transcript,omitempty"`
	AudioURL      string    `json:"audio_url,omitempty"`
	AudioDuration float64   `json:"audio_duration,omitempty"`
	Language      string    `json:"language,omitempty"`
	Style         NoteStyle `json:"note_style"`

	IsPublic      bool   `json:"is_public"`
	PublicShareID string `json:"public_share_id,omitempty"`
	Tags          string `json:"tags,omitempty"`   // comma-separated
	Folder        string `json:"folder,omitempty"`
	QuestID       int    `json:"quest_id,omitempty"`

	AIProcessed          bool   `json:"ai_processed"`
	AISummary            string `json:"ai_summary,omitempty"`
	ExtractedActionItems string `json:"extracted_action_items,omitempty"`

	MinutesTracked   float64 `json:"-"`
	MinutesRefunded  bool    `json:"-"`
	ProcessingStatus string  `json:"processing_status"`
	ProcessingError  string  `json:"processing_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteList is the paginated list payload.
type NoteList struct {
	Items []Note `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Pages int    `json:"pages"`
}
