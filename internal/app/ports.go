package app

import (
	"context"
	"errors"
	"time"

	"live-quiz-service/internal/domain"
)

// SessionRepository persists session documents (in-memory, Redis, etc).
// Implementations return copies: callers may mutate what they get back.
type SessionRepository interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	// GetByCode resolves only active sessions.
	GetByCode(ctx context.Context, code string) (domain.Session, error)
	// Insert stores a new session, failing with domain.ErrCodeTaken if an active session holds its code.
	// The uniqueness check must be atomic with the write.
	Insert(ctx context.Context, s domain.Session) error
	// Save overwrites an existing session; leaving the active status frees the join code.
	Save(ctx context.Context, s domain.Session) error
	ListActive(ctx context.Context) ([]domain.Session, error)
}

// Locker grants exclusive access to a key. Lock returns domain.ErrLockTimeout when the key
// cannot be acquired within timeout; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string, timeout time.Duration) (unlock func(), err error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultArchiver persists the summary of a completed session.
type ResultArchiver interface {
	Archive(ctx context.Context, summary domain.Summary) error
}

// Notifier delivers state changes to connected clients. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// EventType names what happened to a session.
type EventType string

const (
	EventSessionCreated    EventType = "session.created"
	EventParticipantJoined EventType = "participant.joined"
	EventParticipantLeft   EventType = "participant.left"
	EventStageAdvanced     EventType = "stage.advanced"
	EventStageActivated    EventType = "stage.activated"
	EventAnswerSubmitted   EventType = "answer.submitted"
	EventResultsUpdated    EventType = "results.updated"
	EventSessionEnded      EventType = "session.ended"
	EventSessionSwept      EventType = "session.swept"
)

// Event is the payload pushed after every successful mutation. Stage is the public view.
type Event struct {
	Type        EventType            `json:"type"`
	SessionID   string               `json:"sessionId"`
	Code        string               `json:"code"`
	Status      domain.SessionStatus `json:"status"`
	Stage       domain.Stage         `json:"stage"`
	Leaderboard domain.Leaderboard   `json:"leaderboard"`
	At          time.Time            `json:"at"`
}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
