package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
	"live-quiz-service/internal/logger"
	"live-quiz-service/internal/metrics"
)

const (
	// DefaultLockTimeout bounds how long Mutate waits for the session lock.
	DefaultLockTimeout = 5 * time.Second
	maxCodeAttempts    = 32
	codeSpace          = 1_000_000
)

var errNotStale = errors.New("session no longer stale")

// SessionStore owns the canonical session records. Every change goes through Mutate.
type SessionStore struct {
	repo        SessionRepository
	locker      Locker
	lockTimeout time.Duration
	budget      time.Duration
	now         func() time.Time
	newID       func() string
	newCode     func() string
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
}

// StoreOption customises a SessionStore.
type StoreOption func(*SessionStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) { s.now = now }
}

// WithCodeGenerator replaces the random join-code generator.
func WithCodeGenerator(gen func() string) StoreOption {
	return func(s *SessionStore) { s.newCode = gen }
}

func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithMutateBudget bounds the work Mutate does while holding the lock. Locks that expire on
// their own must be given a budget shorter than their lease; zero means unbounded.
func WithMutateBudget(d time.Duration) StoreOption {
	return func(s *SessionStore) { s.budget = d }
}

func WithStoreMetrics(m *metrics.Metrics) StoreOption {
	return func(s *SessionStore) { s.metrics = m }
}

func WithStoreLogger(log logrus.FieldLogger) StoreOption {
	return func(s *SessionStore) { s.log = log }
}

// NewSessionStore wires a store over a repository and a locker.
func NewSessionStore(repo SessionRepository, locker Locker, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		repo:        repo,
		locker:      locker,
		lockTimeout: DefaultLockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		newCode:     randomCode,
		metrics:     metrics.Noop(),
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomCode() string {
	return fmt.Sprintf("%06d", rand.IntN(codeSpace))
}

// Now is the store's clock.
func (s *SessionStore) Now() time.Time { return s.now() }

// Get loads a session without locking. With activeOnly, non-active sessions are reported missing.
func (s *SessionStore) Get(ctx context.Context, id string, activeOnly bool) (domain.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if activeOnly && sess.Status != domain.StatusActive {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

// GetByCode resolves an active session from its join code.
func (s *SessionStore) GetByCode(ctx context.Context, code string) (domain.Session, error) {
	return s.repo.GetByCode(ctx, code)
}

// Create allocates a join code and stores a new session in the lobby.
func (s *SessionStore) Create(ctx context.Context, quizID string, host domain.Participant) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:             s.newID(),
		QuizID:         quizID,
		Participants:   []domain.Participant{host},
		CurrentStage:   domain.LobbyStage(now),
		PreviousStages: []domain.Stage{},
		Status:         domain.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		sess.Code = s.newCode()
		err := s.repo.Insert(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return domain.Session{}, err
		}
		s.log.WithField("code", sess.Code).Debug("join code taken, retrying")
	}
	return domain.Session{}, domain.ErrCodeExhausted
}

// Mutate runs fn on a private copy of the session under its lock and saves the result.
// If fn fails nothing is written.
func (s *SessionStore) Mutate(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	started := time.Now()
	unlock, err := s.locker.Lock(ctx, sessionLockKey(id), s.lockTimeout)
	s.metrics.LockWait.Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			s.metrics.LockTimeouts.Inc()
		}
		return domain.Session{}, err
	}
	defer unlock()

	if s.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.budget)
		defer cancel()
	}

	// The repository hands out copies, so a failed fn leaves nothing behind.
	working, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := fn(&working); err != nil {
		return domain.Session{}, err
	}
	if s.budget > 0 && ctx.Err() != nil {
		s.metrics.LockTimeouts.Inc()
		return domain.Session{}, fmt.Errorf("session %s held past its lock budget: %w", id, domain.ErrLockTimeout)
	}
	working.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, working); err != nil {
		return domain.Session{}, fmt.Errorf("save session %s: %w", id, err)
	}
	return working, nil
}

// SweepStaleActive force-terminates active sessions untouched for longer than timeout.
// Sessions sitting on the podium complete; anything else expires.
func (s *SessionStore) SweepStaleActive(ctx context.Context, timeout time.Duration) ([]domain.Session, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	var swept []domain.Session
	for _, candidate := range active {
		if !isStale(candidate, s.now(), timeout) {
			continue
		}
		updated, err := s.Mutate(ctx, candidate.ID, func(sess *domain.Session) error {
			now := s.now()
			if !isStale(*sess, now, timeout) {
				return errNotStale
			}
			switch sess.CurrentStage.Kind {
			case domain.StagePodium:
				game.Terminate(sess, domain.StatusCompleted, now)
			case domain.StageQuit:
				return errNotStale
			default:
				game.Terminate(sess, domain.StatusExpired, now)
			}
			return nil
		})
		if errors.Is(err, errNotStale) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return swept, ctx.Err()
			}
			s.log.WithFields(logrus.Fields{"session_id": candidate.ID, "error": err}).Warn("sweep session failed")
			continue
		}
		s.metrics.Sweeps.WithLabelValues(string(updated.Status)).Inc()
		swept = append(swept, updated)
	}
	return swept, nil
}

func isStale(s domain.Session, now time.Time, timeout time.Duration) bool {
	return s.Status == domain.StatusActive && now.Sub(s.UpdatedAt) > timeout
}

func sessionLockKey(id string) string {
	return "session:" + id
}
