package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"devmeet/internal/auth"
	"devmeet/internal/booking"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	Svc *booking.Service
}

type createBookingReq struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Date           string   `json:"date"` // 2006-01-02
	From           string   `json:"from"` // 15:04
	To             string   `json:"to"`
	AttendeeEmails []string `json:"attendeeEmails"`
}

type attendeeDTO struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

type bookingDTO struct {
	ID          uint64        `json:"id"`
	MeetingID   string        `json:"meetingId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        string        `json:"date"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Attendees   []attendeeDTO `json:"attendees"`
}

func toBookingDTO(b booking.Booking) bookingDTO {
	dto := bookingDTO{
		ID:          b.ID,
		MeetingID:   b.MeetingID,
		Title:       b.Title,
		Description: b.Description,
		Date:        b.Date.Format(dateLayout),
		From:        b.From,
		To:          b.To,
		Attendees:   make([]attendeeDTO, 0, len(b.Attendees)),
	}
	for _, a := range b.Attendees {
		dto.Attendees = append(dto.Attendees, attendeeDTO{ID: a.ID, Email: a.Email})
	}
	return dto
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	date, err := time.ParseInLocation(dateLayout, req.Date, h.Svc.Loc)
	if err != nil {
		http.Error(w, "invalid date (2006-01-02)", http.StatusBadRequest)
		return
	}

	b, err := h.Svc.Create(r.Context(), uid, booking.CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Date:           date,
		From:           req.From,
		To:             req.To,
		AttendeeEmails: req.AttendeeEmails,
	})
	switch {
	case errors.Is(err, booking.ErrInvalid):
		http.Error(w, "missing or invalid fields", http.StatusBadRequest)
	case errors.Is(err, booking.ErrDuplicate):
		http.Error(w, "booking already exists", http.StatusConflict)
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"booking": toBookingDTO(*b)})
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var f booking.ListFilter
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, h.Svc.Loc)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		f.Date = &d
	}
	if s, e := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"); s != "" && e != "" {
		sd, err1 := time.ParseInLocation(dateLayout, s, h.Svc.Loc)
		ed, err2 := time.ParseInLocation(dateLayout, e, h.Svc.Loc)
		if err1 != nil || err2 != nil {
			http.Error(w, "invalid date range", http.StatusBadRequest)
			return
		}
		f.StartDate, f.EndDate = &sd, &ed
	}

	rows, err := h.Svc.List(r.Context(), uid, f)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	out := make([]bookingDTO, 0, len(rows))
	for _, b := range rows {
		out = append(out, toBookingDTO(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": out})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	err = h.Svc.Delete(r.Context(), uid, id)
	switch {
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case err != nil:
		http.Error(w, "server error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "booking deleted"})
	}
}
