package signaling

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid offer", `{"type":"offer","offer":{"sdp":"v=0"},"user_id":2}`, false},
		{"valid answer", `{"type":"answer","answer":{"sdp":"v=0"},"user_id":1}`, false},
		{"valid candidate", `{"type":"ice_candidate","candidate":{"candidate":"foo"},"user_id":3}`, false},
		{"offer without payload", `{"type":"offer","user_id":2}`, true},
		{"answer without payload", `{"type":"answer","user_id":2}`, true},
		{"candidate without payload", `{"type":"ice_candidate","user_id":2}`, true},
		{"missing target", `{"type":"offer","offer":{}}`, true},
		{"negative target", `{"type":"offer","offer":{},"user_id":-1}`, true},
		{"unknown type", `{"type":"chat","user_id":2}`, true},
		{"presence type from client", `{"type":"user_joined","user_id":2}`, true},
		{"not json", `offer please`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Fatalf("expected ErrMalformedFrame, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFrame: %v", err)
			}
			if f.UserID <= 0 {
				t.Fatalf("parsed frame lost its target: %+v", f)
			}
		})
	}
}

func TestParseFramePreservesPayload(t *testing.T) {
	raw := `{"type":"offer","offer":{"sdp":"v=0\r\no=alice","type":"offer"},"user_id":7}`
	f, err := ParseFrame([]byte(raw))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}

	var echo struct {
		SDP string `json:"sdp"`
	}
	if err := json.Unmarshal(f.Offer, &echo); err != nil {
		t.Fatalf("payload not preserved verbatim: %v", err)
	}
	if echo.SDP != "v=0\r\no=alice" {
		t.Fatalf("payload mangled: %q", echo.SDP)
	}
}

func TestExistingUsersSerializesEmptyList(t *testing.T) {
	raw, err := json.Marshal(NewExistingUsers(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"existing_users","user_ids":[]}`
	if string(raw) != want {
		t.Fatalf("got %s, want %s", raw, want)
	}
}

func TestErrorFrameShape(t *testing.T) {
	raw, err := json.Marshal(NewErrorFrame(CodeUnknownTarget, "participant 9 is not in the room"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"error","code":"unknown_target","message":"participant 9 is not in the room"}`
	if string(raw) != want {
		t.Fatalf("got %s, want %s", raw, want)
	}
}
