package transcripts

import (
	"context"
	"testing"
	"time"
)

func TestMailboxPutThenGet(t *testing.T) {
	m := NewMailbox()

	if _, ok := m.Get("room1"); ok {
		t.Fatal("empty mailbox returned a summary")
	}

	m.Put(Summary{RoomID: "room1", Text: "hello", CreatedAt: time.Now()})

	got, ok := m.Get("room1")
	if !ok {
		t.Fatal("summary not found after Put")
	}
	if got.Text != "hello" {
		t.Fatalf("unexpected summary text %q", got.Text)
	}

	m.Put(Summary{RoomID: "room1", Text: "revised"})
	got, _ = m.Get("room1")
	if got.Text != "revised" {
		t.Fatalf("later Put did not replace summary, got %q", got.Text)
	}
}

func TestMailboxWaitReleasedByPut(t *testing.T) {
	m := NewMailbox()

	done := make(chan Summary, 1)
	go func() {
		summary, ok := m.Wait(context.Background(), "room1")
		if !ok {
			t.Error("Wait returned without a summary")
		}
		done <- summary
	}()

	// Give the waiter time to park.
	time.Sleep(20 * time.Millisecond)
	m.Put(Summary{RoomID: "room1", Text: "minutes"})

	select {
	case got := <-done:
		if got.Text != "minutes" {
			t.Fatalf("unexpected summary %q", got.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released by Put")
	}
}

func TestMailboxWaitReturnsExistingImmediately(t *testing.T) {
	m := NewMailbox()
	m.Put(Summary{RoomID: "room1", Text: "already here"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	summary, ok := m.Wait(ctx, "room1")
	if !ok {
		t.Fatal("Wait missed an already stored summary")
	}
	if summary.Text != "already here" {
		t.Fatalf("unexpected summary %q", summary.Text)
	}
}

func TestMailboxWaitTimeout(t *testing.T) {
	m := NewMailbox()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, ok := m.Wait(ctx, "room1"); ok {
		t.Fatal("Wait returned a summary for an empty room")
	}

	// The timed out waiter must not leak.
	m.mu.Lock()
	waiters := len(m.waiters["room1"])
	m.mu.Unlock()
	if waiters != 0 {
		t.Fatalf("expected no waiters after timeout, found %d", waiters)
	}
}

func TestMailboxClear(t *testing.T) {
	m := NewMailbox()
	m.Put(Summary{RoomID: "room1", Text: "stale"})
	m.Clear("room1")

	if _, ok := m.Get("room1"); ok {
		t.Fatal("summary survived Clear")
	}
}
