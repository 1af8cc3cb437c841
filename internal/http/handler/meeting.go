package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"devmeet/internal/admission"
	"devmeet/internal/auth"
	"devmeet/internal/booking"
	"devmeet/internal/presence"
	"devmeet/internal/realtime"
)

type MeetingHandler struct {
	Verifier *admission.Verifier
	Tracker  *presence.Tracker
	Bookings *booking.Service
}

type verifyPinReq struct {
	MeetingID string `json:"meetingId"`
	Pin       string `json:"pin"`
}

type verifyPinResp struct {
	Status    admission.Status `json:"status"`
	StartTime string           `json:"startTime,omitempty"`
	Email     string           `json:"email,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// VerifyPin maps admission results onto HTTP. The body always carries the
// status code so the client state machine can transition on it.
func (h *MeetingHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	var req verifyPinReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.MeetingID == "" || req.Pin == "" {
		http.Error(w, "meetingId and pin are required", http.StatusBadRequest)
		return
	}
	if !admission.ValidPinFormat(req.Pin) {
		writeJSON(w, http.StatusBadRequest, verifyPinResp{
			Status:  admission.StatusInvalidPin,
			Message: "PIN must be six digits",
		})
		return
	}

	res := h.Verifier.Verify(r.Context(), req.MeetingID, req.Pin)
	resp := verifyPinResp{Status: res.Status, Email: res.Email}
	if !res.StartTime.IsZero() {
		resp.StartTime = res.StartTime.Format(time.RFC3339)
	}

	switch res.Status {
	case admission.StatusInvalidMeeting:
		resp.Message = "Meeting not found"
		writeJSON(w, http.StatusNotFound, resp)
	case admission.StatusInvalidPin:
		resp.Message = "Invalid PIN"
		writeJSON(w, http.StatusUnauthorized, resp)
	case admission.StatusTooEarly:
		resp.Message = "Meeting has not started yet. You can join 30 minutes early."
		writeJSON(w, http.StatusForbidden, resp)
	case admission.StatusTooLate:
		resp.Message = "Meeting has ended. You can no longer join."
		writeJSON(w, http.StatusForbidden, resp)
	case admission.StatusWaitingForHost, admission.StatusValid:
		writeJSON(w, http.StatusOK, resp)
	default:
		resp.Message = "Internal server error"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

type meetingEventReq struct {
	MeetingID string `json:"meetingId"`
	Event     string `json:"event"`
}

// Event is the host lifecycle endpoint: only the organizer may flip the
// host-active flag for their meeting.
func (h *MeetingHandler) Event(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req meetingEventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.MeetingID == "" || req.Event == "" {
		http.Error(w, "meetingId and event are required", http.StatusBadRequest)
		return
	}

	b, err := h.Bookings.GetByMeetingID(r.Context(), req.MeetingID)
	if errors.Is(err, booking.ErrNotFound) {
		http.Error(w, "meeting not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if b.OrganizerID != uid {
		http.Error(w, "only the host can manage the meeting", http.StatusForbidden)
		return
	}

	switch req.Event {
	case realtime.EventHostJoined:
		err = h.Tracker.MarkHostActive(r.Context(), req.MeetingID)
	case realtime.EventHostLeft:
		err = h.Tracker.ClearHostActive(r.Context(), req.MeetingID)
	default:
		http.Error(w, "invalid event type", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
