package meetings

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrWrongPassword   = errors.New("wrong meeting password")
	ErrCodeExhausted   = errors.New("could not allocate a meeting code")
)

// codeAlphabet deliberately excludes lowercase so codes survive being read
// aloud or typed from a calendar invite.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	maxCodeAttempts = 16
)

// Meeting is a scheduled room: a shareable code plus an optional password
// gate. Meetings exist before anyone connects; the signaling room with the
// same ID is created lazily by the first participant.
type Meeting struct {
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	HostID    int64     `json:"hostId"`
	CreatedAt time.Time `json:"createdAt"`

	passwordDigest string
}

// HasPassword reports whether joining requires a password.
func (m Meeting) HasPassword() bool {
	return m.passwordDigest != ""
}

// Directory tracks scheduled meetings by code.
type Directory interface {
	Create(title string, hostID int64, password string) (Meeting, error)
	Get(code string) (Meeting, error)
	// Authorize checks the password gate for a join attempt.
	Authorize(code, password string) (Meeting, error)
	Delete(code string) error
}

type directory struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

func NewDirectory() Directory {
	return &directory{
		meetings: make(map[string]Meeting),
	}
}

func (d *directory) Create(title string, hostID int64, password string) (Meeting, error) {
	meeting := Meeting{
		Title:     title,
		HostID:    hostID,
		CreatedAt: time.Now(),
	}
	if password != "" {
		meeting.passwordDigest = digest(password)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newCode()
		if err != nil {
			return Meeting{}, err
		}
		if _, taken := d.meetings[code]; taken {
			continue
		}
		meeting.Code = code
		d.meetings[code] = meeting
		return meeting, nil
	}

	return Meeting{}, ErrCodeExhausted
}

func (d *directory) Get(code string) (Meeting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	meeting, ok := d.meetings[code]
	if !ok {
		return Meeting{}, ErrMeetingNotFound
	}
	return meeting, nil
}

func (d *directory) Authorize(code, password string) (Meeting, error) {
	meeting, err := d.Get(code)
	if err != nil {
		return Meeting{}, err
	}

	if meeting.passwordDigest == "" {
		return meeting, nil
	}
	if subtle.ConstantTimeCompare([]byte(digest(password)), []byte(meeting.passwordDigest)) != 1 {
		return Meeting{}, ErrWrongPassword
	}

	return meeting, nil
}

func (d *directory) Delete(code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.meetings[code]; !ok {
		return ErrMeetingNotFound
	}
	delete(d.meetings, code)
	return nil
}

func newCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

func digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
