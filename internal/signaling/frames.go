package signaling

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meshconf/meshconf/internal/domain"
)

// Frame types accepted from clients.
const (
	FrameOffer        = "offer"
	FrameAnswer       = "answer"
	FrameICECandidate = "ice_candidate"
)

// Frame types emitted by the server.
const (
	FrameExistingUsers = "existing_users"
	FrameUserJoined    = "user_joined"
	FrameUserLeft      = "user_left"
	FrameError         = "error"
)

// Error codes carried on error frames.
const (
	CodeUnknownRoom   = "unknown_room"
	CodeUnknownTarget = "unknown_target"
	CodeMalformed     = "malformed_message"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame is the wire format for every signaling message in both directions.
// Negotiation payloads (offer, answer, candidate) stay opaque blobs; the
// relay never inspects them.
//
// UserID is overloaded by direction: inbound it names the target
// participant, outbound on relayed frames it is rewritten to the sender so
// the recipient knows whom to reply to.
type Frame struct {
	Type      string          `json:"type"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	UserID domain.ParticipantID `json:"user_id,omitempty"`
	// UserIDs is a pointer so an empty membership snapshot still serializes
	// as [] instead of being omitted.
	UserIDs *[]domain.ParticipantID `json:"user_ids,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ParseFrame decodes and validates an inbound negotiation frame. Only the
// three negotiation types are accepted from clients; presence frames are
// outbound-only and arriving ones are malformed by definition.
func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch f.Type {
	case FrameOffer:
		if len(f.Offer) == 0 {
			return nil, fmt.Errorf("%w: offer frame without offer", ErrMalformedFrame)
		}
	case FrameAnswer:
		if len(f.Answer) == 0 {
			return nil, fmt.Errorf("%w: answer frame without answer", ErrMalformedFrame)
		}
	case FrameICECandidate:
		if len(f.Candidate) == 0 {
			return nil, fmt.Errorf("%w: ice_candidate frame without candidate", ErrMalformedFrame)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %q", ErrMalformedFrame, f.Type)
	}

	if f.UserID <= 0 {
		return nil, fmt.Errorf("%w: %s frame without target user_id", ErrMalformedFrame, f.Type)
	}

	return &f, nil
}

func NewExistingUsers(userIDs []domain.ParticipantID) *Frame {
	if userIDs == nil {
		userIDs = []domain.ParticipantID{} // joiners expect an array, not null
	}
	return &Frame{
		Type:    FrameExistingUsers,
		UserIDs: &userIDs,
	}
}

func NewUserJoined(userID domain.ParticipantID) *Frame {
	return &Frame{
		Type:   FrameUserJoined,
		UserID: userID,
	}
}

func NewUserLeft(userID domain.ParticipantID) *Frame {
	return &Frame{
		Type:   FrameUserLeft,
		UserID: userID,
	}
}

func NewErrorFrame(code, message string) *Frame {
	return &Frame{
		Type:    FrameError,
		Code:    code,
		Message: message,
	}
}
