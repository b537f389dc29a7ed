package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/models"
	"github.com/questlogger/questlogger/internal/service"
	"github.com/questlogger/questlogger/internal/store"
)

// maxAudioUpload caps voice uploads at 50 MB.
const maxAudioUpload = 50 << 20

// NotesHandler serves the /notes routes.
type NotesHandler struct {
	svc *service.NoteService
}

func NewNotesHandler(svc *service.NoteService) *NotesHandler {
	return &NotesHandler{svc: svc}
}

func noteID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var in service.CreateNoteInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	in.NoteStyle = models.ParseNoteStyle(string(in.NoteStyle))

	note, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusCreated, note)
}

func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	// Offset-style skip/limit params map onto the same paging.
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		size = limit
	}
	if skip, err := strconv.Atoi(q.Get("skip")); err == nil && skip > 0 {
		if size < 1 {
			size = 10
		}
		page = skip/size + 1
	}
	filter := store.ListFilter{
		Page:      page,
		Size:      size,
		Folder:    q.Get("folder"),
		Tag:       q.Get("tag"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}

	list, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	note, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, note)
}

func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	var in service.UpdateNoteInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.NoteStyle != nil {
		style := models.ParseNoteStyle(string(*in.NoteStyle))
		in.NoteStyle = &style
	}

	note, err := h.svc.Update(r.Context(), userID, id, in)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, note)
}

func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *NotesHandler) Folders(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	folders, err := h.svc.Folders(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "")
		return
	}

	respondJSON(w, http.StatusOK, map[string][]string{"folders": folders})
}

func (h *NotesHandler) Tags(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	tags, err := h.svc.Tags(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "")
		return
	}

	respondJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}

func (h *NotesHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	link, err := h.svc.Share(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, link)
}

func (h *NotesHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	result, err := h.svc.Unshare(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Shared serves a publicly shared note. The route is unauthenticated.
func (h *NotesHandler) Shared(w http.ResponseWriter, r *http.Request) {
	shareID := mux.Vars(r)["share_id"]

	note, err := h.svc.GetShared(r.Context(), shareID)
	if err != nil {
		serviceError(w, r, err, "Shared note not found")
		return
	}

	respondJSON(w, http.StatusOK, note)
}

func (h *NotesHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	format := models.ParseExportFormat(r.URL.Query().Get("format"))

	doc, err := h.svc.Export(r.Context(), userID, id, format)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Content)
}

// CreateVoice accepts a multipart audio upload and turns it into a
// note. Small recordings are transcribed before responding; large ones
// come back with processing_status pending.
func (h *NotesHandler) CreateVoice(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid or oversized upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("audio_file")
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}
	if len(audio) == 0 {
		respondError(w, http.StatusBadRequest, "Audio file is empty")
		return
	}

	questID, _ := strconv.Atoi(r.FormValue("quest_id"))
	in := service.VoiceNoteInput{
		Title:     r.FormValue("title"),
		Folder:    r.FormValue("folder"),
		Tags:      r.FormValue("tags"),
		NoteStyle: models.ParseNoteStyle(r.FormValue("note_style")),
		QuestID:   questID,
	}
	if in.Title == "" {
		in.Title = "Voice Note"
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	note, err := h.svc.CreateVoiceNote(r.Context(), userID, audio, mimeType, in)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	status := http.StatusCreated
	if note.ProcessingStatus == models.ProcessingPending {
		status = http.StatusAccepted
	}
	respondJSON(w, status, note)
}

// Process re-runs AI processing over an existing note.
func (h *NotesHandler) Process(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := noteID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	result, err := h.svc.ProcessExisting(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "Note not found")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
