package meetings

import (
	"errors"
	"testing"
)

func TestDirectoryCreateAndGet(t *testing.T) {
	d := NewDirectory()

	m, err := d.Create("standup", 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(m.Code) != codeLength {
		t.Fatalf("code %q has wrong length", m.Code)
	}
	for _, c := range m.Code {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			t.Fatalf("code %q contains invalid character %q", m.Code, c)
		}
	}
	if m.HasPassword() {
		t.Fatal("meeting without password reports HasPassword")
	}

	got, err := d.Get(m.Code)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "standup" || got.HostID != 1 {
		t.Fatalf("unexpected meeting: %+v", got)
	}

	if _, err := d.Get("NOPE42"); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestDirectoryAuthorize(t *testing.T) {
	d := NewDirectory()

	open, err := d.Create("open", 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	gated, err := d.Create("gated", 2, "hunter2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !gated.HasPassword() {
		t.Fatal("gated meeting does not report HasPassword")
	}

	if _, err := d.Authorize(open.Code, ""); err != nil {
		t.Fatalf("open meeting should authorize without password: %v", err)
	}
	if _, err := d.Authorize(open.Code, "anything"); err != nil {
		t.Fatalf("open meeting should ignore a supplied password: %v", err)
	}

	if _, err := d.Authorize(gated.Code, "hunter2"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if _, err := d.Authorize(gated.Code, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if _, err := d.Authorize(gated.Code, ""); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword for empty password, got %v", err)
	}
}

func TestDirectoryDelete(t *testing.T) {
	d := NewDirectory()

	m, err := d.Create("ephemeral", 1, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Delete(m.Code); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.Get(m.Code); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("deleted meeting still resolvable: %v", err)
	}
	if err := d.Delete(m.Code); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("double delete should report ErrMeetingNotFound, got %v", err)
	}
}

func TestDirectoryCodesAreUnique(t *testing.T) {
	d := NewDirectory()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		m, err := d.Create("m", int64(i), "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[m.Code] {
			t.Fatalf("duplicate code %q", m.Code)
		}
		seen[m.Code] = true
	}
}
