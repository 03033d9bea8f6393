package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func newTestSession(id, code string) domain.Session {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Session{
		ID:     id,
		Code:   code,
		QuizID: "quiz-1",
		Participants: []domain.Participant{
			{ID: "host", Nickname: "Host", Role: domain.RoleHost, JoinedAt: now},
		},
		CurrentStage: domain.LobbyStage(now),
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSessionRepositoryCodeUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	if err := repo.Insert(ctx, newTestSession("s1", "123456")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Insert(ctx, newTestSession("s2", "123456")); !errors.Is(err, domain.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}

	got, err := repo.GetByCode(ctx, "123456")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if got.ID != "s1" {
		t.Fatalf("expected s1, got %s", got.ID)
	}
}

func TestSessionRepositoryReleasesCodeWhenFinished(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	s := newTestSession("s1", "123456")
	if err := repo.Insert(ctx, s); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s.Status = domain.StatusCompleted
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.GetByCode(ctx, "123456"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("finished session should not resolve by code, got %v", err)
	}
	if err := repo.Insert(ctx, newTestSession("s2", "123456")); err != nil {
		t.Fatalf("code should be reusable: %v", err)
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "s2" {
		t.Fatalf("expected only s2 active, got %+v", active)
	}
	if old, err := repo.Get(ctx, "s1"); err != nil || old.Status != domain.StatusCompleted {
		t.Fatalf("finished session should still load by id: %v %v", old.Status, err)
	}
}

func TestSessionRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	if err := repo.Insert(ctx, newTestSession("s1", "000001")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, _ := repo.Get(ctx, "s1")
	got.Participants[0].Nickname = "changed"

	again, _ := repo.Get(ctx, "s1")
	if again.Participants[0].Nickname != "Host" {
		t.Fatalf("stored session was mutated through a returned copy")
	}
	if err := repo.Save(ctx, newTestSession("missing", "000002")); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound saving unknown session, got %v", err)
	}
}
