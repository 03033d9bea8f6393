package http

import (
	"context"
	"testing"

	"live-quiz-service/internal/app"
)

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("s1")
	other, cancelOther := hub.Subscribe("s2")
	defer cancelOther()

	for i := 0; i < subscriberBuffer+3; i++ {
		typ := app.EventAnswerSubmitted
		if i == subscriberBuffer+2 {
			typ = app.EventStageAdvanced
		}
		if err := hub.Notify(context.Background(), app.Event{Type: typ, SessionID: "s1"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected full buffer, got %d", len(ch))
	}
	if len(other) != 0 {
		t.Fatalf("events leaked to another session")
	}

	var last app.Event
	for i := 0; i < subscriberBuffer; i++ {
		last = <-ch
	}
	if last.Type != app.EventStageAdvanced {
		t.Fatalf("expected newest event to survive, got %s", last.Type)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if hub.Subscribers("s1") != 0 {
		t.Fatalf("expected no subscribers left")
	}
}
