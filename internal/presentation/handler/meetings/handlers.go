package meetings

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meshconf/meshconf/internal/auth"
	"github.com/meshconf/meshconf/internal/infrastructure/json"
	"github.com/meshconf/meshconf/internal/infrastructure/logging"
	meetingdir "github.com/meshconf/meshconf/internal/meetings"
	"github.com/meshconf/meshconf/internal/signaling"
	"github.com/meshconf/meshconf/internal/transcripts"
)

type Handler struct {
	directory       meetingdir.Directory
	registry        *signaling.Registry
	mailbox         *transcripts.Mailbox
	verifier        auth.Verifier
	logger          logging.Logger
	longPollTimeout time.Duration
}

func NewHandler(
	directory meetingdir.Directory,
	registry *signaling.Registry,
	mailbox *transcripts.Mailbox,
	verifier auth.Verifier,
	logger logging.Logger,
	longPollTimeout time.Duration,
) *Handler {
	return &Handler{
		directory:       directory,
		registry:        registry,
		mailbox:         mailbox,
		verifier:        verifier,
		logger:          logger,
		longPollTimeout: longPollTimeout,
	}
}

func (h *Handler) CreateMeetingHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.VerifyRequest(r)
	if err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	var req createMeetingRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteBadRequestError(w, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		json.WriteBadRequestError(w, "title is required")
		return
	}

	meeting, err := h.directory.Create(req.Title, int64(identity.UserID), req.Password)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	h.logger.Info(logging.General, logging.ExternalService, "meeting created", map[logging.ExtraKey]any{
		logging.RoomID: meeting.Code,
		logging.UserID: int64(identity.UserID),
	})

	json.Write(w, http.StatusCreated, h.toResponse(meeting, false))
}

func (h *Handler) GetMeetingHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.verifier.VerifyRequest(r); err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	meeting, err := h.directory.Get(chi.URLParam(r, "code"))
	if err != nil {
		json.WriteNotFoundError(w, "meeting not found")
		return
	}

	json.Write(w, http.StatusOK, h.toResponse(meeting, false))
}

// JoinMeetingHandler checks the password gate and hands back the websocket
// endpoints. Actually entering the room happens on the signaling socket.
func (h *Handler) JoinMeetingHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.verifier.VerifyRequest(r); err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	var req joinMeetingRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteBadRequestError(w, "invalid request body")
		return
	}

	meeting, err := h.directory.Authorize(chi.URLParam(r, "code"), req.Password)
	switch {
	case errors.Is(err, meetingdir.ErrMeetingNotFound):
		json.WriteNotFoundError(w, "meeting not found")
		return
	case errors.Is(err, meetingdir.ErrWrongPassword):
		json.WriteForbiddenError(w, "wrong password")
		return
	case err != nil:
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, h.toResponse(meeting, true))
}

// LeaveMeetingHandler removes the caller from the room's membership without
// waiting for the socket to die. Idempotent; leaving a room you are not in
// is a no-op. The websocket, if still open, stops receiving room traffic.
func (h *Handler) LeaveMeetingHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.VerifyRequest(r)
	if err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	h.registry.Leave(chi.URLParam(r, "code"), identity.UserID)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteMeetingHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.VerifyRequest(r)
	if err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	code := chi.URLParam(r, "code")
	meeting, err := h.directory.Get(code)
	if err != nil {
		json.WriteNotFoundError(w, "meeting not found")
		return
	}
	if meeting.HostID != int64(identity.UserID) {
		json.WriteForbiddenError(w, "only the host can delete a meeting")
		return
	}

	if err := h.directory.Delete(code); err != nil {
		json.WriteInternalError(w, err)
		return
	}
	h.mailbox.Clear(code)

	w.WriteHeader(http.StatusNoContent)
}

// GetSummaryHandler long polls for the meeting's transcription summary,
// answering 204 when nothing arrives within the window. Clients repeat the
// call instead of tight polling.
func (h *Handler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.verifier.VerifyRequest(r); err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	code := chi.URLParam(r, "code")

	ctx, cancel := context.WithTimeout(r.Context(), h.longPollTimeout)
	defer cancel()

	summary, ok := h.mailbox.Wait(ctx, code)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	json.Write(w, http.StatusOK, summaryResponse{
		RoomID:    summary.RoomID,
		Text:      summary.Text,
		CreatedAt: summary.CreatedAt,
	})
}

// PutSummaryHandler is called by the transcription worker when a summary is
// ready.
func (h *Handler) PutSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.verifier.VerifyRequest(r); err != nil {
		json.WriteUnauthorizedError(w)
		return
	}

	var req putSummaryRequest
	if err := json.Read(r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		json.WriteBadRequestError(w, "summary text is required")
		return
	}

	code := chi.URLParam(r, "code")
	h.mailbox.Put(transcripts.Summary{
		RoomID:    code,
		Text:      req.Text,
		CreatedAt: time.Now(),
	})

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) toResponse(meeting meetingdir.Meeting, withEndpoints bool) meetingResponse {
	resp := meetingResponse{
		Code:        meeting.Code,
		Title:       meeting.Title,
		HostID:      meeting.HostID,
		HasPassword: meeting.HasPassword(),
		CreatedAt:   meeting.CreatedAt,
	}
	if room, ok := h.registry.Lookup(meeting.Code); ok {
		resp.MemberCount = len(room.Members())
	}
	if withEndpoints {
		resp.SignalingURL = "/ws/meetings/" + meeting.Code + "/signal"
		resp.AudioURL = "/ws/meetings/" + meeting.Code + "/audio"
	}
	return resp
}
