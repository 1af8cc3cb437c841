package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"devmeet/internal/auth"
	"devmeet/internal/notify"
)

type NotificationHandler struct {
	Repo *notify.Repo
}

type notificationDTO struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MeetingID   string    `json:"meetingId"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	rows, err := h.Repo.ListByUser(r.Context(), uid, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	out := make([]notificationDTO, 0, len(rows))
	for _, n := range rows {
		out = append(out, notificationDTO{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			MeetingID:   n.MeetingID,
			Read:        n.Read,
			CreatedAt:   n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	err = h.Repo.MarkRead(r.Context(), uid, id)
	switch {
	case errors.Is(err, notify.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	n, err := h.Repo.MarkAllRead(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}
