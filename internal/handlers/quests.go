package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/questlogger/questlogger/internal/auth"
	"github.com/questlogger/questlogger/internal/service"
)

// QuestsHandler serves the /quests routes.
type QuestsHandler struct {
	svc *service.QuestService
}

func NewQuestsHandler(svc *service.QuestService) *QuestsHandler {
	return &QuestsHandler{svc: svc}
}

func questID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

func (h *QuestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	var in service.CreateQuestInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	quest, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		serviceError(w, r, err, "Quest not found")
		return
	}

	respondJSON(w, http.StatusCreated, quest)
}

func (h *QuestsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())

	quests, err := h.svc.List(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err, "Quest not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"quests": quests})
}

func (h *QuestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := questID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	quest, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "Quest not found")
		return
	}

	respondJSON(w, http.StatusOK, quest)
}

// Complete marks the quest done and reports the XP payout. Completing
// a quest twice returns 404, matching the single-payout rule.
func (h *QuestsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := questID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	result, err := h.svc.Complete(r.Context(), userID, id)
	if err != nil {
		serviceError(w, r, err, "Quest not found or already completed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *QuestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserIDFromContext(r.Context())
	id, err := questID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid quest ID")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		serviceError(w, r, err, "Quest not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
