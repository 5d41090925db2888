package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestWatermillEventPublisher_InMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pubsub := NewInMemoryPubSub(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubsub.Subscribe(ctx, "question-service.generation")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publisher := NewWatermillEventPublisher(pubsub, "question-service.generation", logger)
	defer publisher.Close()

	event := NewEvent(TypeQuestionsGenerated, QuestionsProducedEvent{
		MaterialID:  7,
		Mode:        "ai",
		QuestionIDs: []uint{1, 2},
	})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("expected message id %s, got %s", event.ID, msg.UUID)
		}
		if got := msg.Metadata.Get("event_type"); got != TypeQuestionsGenerated {
			t.Errorf("expected event_type metadata, got %q", got)
		}

		var decoded struct {
			Type string                 `json:"type"`
			Data QuestionsProducedEvent `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if decoded.Data.MaterialID != 7 || len(decoded.Data.QuestionIDs) != 2 {
			t.Errorf("unexpected payload %+v", decoded)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestNewEventStructure(t *testing.T) {
	event := NewEvent(TypeGenerationFailed, GenerationFailedEvent{MaterialID: 1})

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Source != EventSource {
		t.Errorf("Expected source %q, got %q", EventSource, event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("Expected version '1.0', got '%s'", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("Event timestamp should not be zero")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))

	_ = mock.Publish(context.Background(), NewEvent(TypeQuestionsImported, nil))
	if got := len(mock.GetPublishedEvents()); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}

	mock.ClearEvents()
	mock.FailWith(errors.New("broker down"))
	if err := mock.Publish(context.Background(), NewEvent(TypeQuestionsImported, nil)); err == nil {
		t.Error("expected publish failure")
	}
	if got := len(mock.GetPublishedEvents()); got != 0 {
		t.Errorf("expected no events after failure, got %d", got)
	}
}
