package town

import (
	"testing"
	"time"
)

func newTestTown(t *testing.T) *Town {
	t.Helper()

	tn, err := New(Options{
		ID:           "test-town",
		FriendlyName: "Test Town",
		IsPublic:     true,
		Layout:       DefaultLayout(),
	})
	if err != nil {
		t.Fatalf("new town: %v", err)
	}
	return tn
}

func mustJoin(t *testing.T, tn *Town, username string) *Client {
	t.Helper()

	c, _, err := tn.AddPlayer(username)
	if err != nil {
		t.Fatalf("add player %q: %v", username, err)
	}
	return c
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			return
		}
	}
}

func drainEvents(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
