package report

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestSentry_Disabled(t *testing.T) {
	s, err := NewSentry(sentry.ClientOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Enabled() {
		t.Error("expected disabled reporter")
	}

	s.Capture(errors.New("ignored"), nil)
	s.Flush()
}

func TestSentry_Capture(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)

	s, err := NewSentry(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Enabled() {
		t.Fatal("expected enabled reporter")
	}

	s.Capture(errors.New("send failed"), map[string]string{"event_id": "ev-1"})
	s.Capture(nil, nil)

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Tags["event_id"] != "ev-1" {
		t.Errorf("unexpected tags %v", events[0].Tags)
	}
}

func TestNewSentry_BadDSN(t *testing.T) {
	if _, err := NewSentry(sentry.ClientOptions{Dsn: "not a dsn"}); err == nil {
		t.Error("expected error for malformed dsn")
	}
}
