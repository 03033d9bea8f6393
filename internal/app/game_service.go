package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
	"live-quiz-service/internal/logger"
	"live-quiz-service/internal/metrics"
)

// DefaultStaleTimeout is how long an active session may go untouched before the sweeper closes it.
const DefaultStaleTimeout = time.Hour

// GameService coordinates session lifecycle operations on top of the store, quiz repository and engine.
type GameService struct {
	store        *SessionStore
	quizzes      QuizRepository
	engine       *game.Engine
	notifier     Notifier
	archiver     ResultArchiver
	staleTimeout time.Duration
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
}

// ServiceOption customises a GameService.
type ServiceOption func(*GameService)

func WithNotifier(n Notifier) ServiceOption {
	return func(g *GameService) { g.notifier = n }
}

func WithArchiver(a ResultArchiver) ServiceOption {
	return func(g *GameService) { g.archiver = a }
}

func WithStaleTimeout(d time.Duration) ServiceOption {
	return func(g *GameService) {
		if d > 0 {
			g.staleTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(g *GameService) { g.metrics = m }
}

func WithLogger(log logrus.FieldLogger) ServiceOption {
	return func(g *GameService) { g.log = log }
}

// NewGameService wires the facade. Notifier and archiver are optional.
func NewGameService(store *SessionStore, quizzes QuizRepository, engine *game.Engine, opts ...ServiceOption) *GameService {
	g := &GameService{
		store:        store,
		quizzes:      quizzes,
		engine:       engine,
		staleTimeout: DefaultStaleTimeout,
		metrics:      metrics.Noop(),
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateSession opens a new session in the lobby with hostID as its host.
func (g *GameService) CreateSession(ctx context.Context, quizID, hostID, nickname string) (domain.Session, error) {
	if _, err := g.quizzes.GetQuiz(ctx, quizID); err != nil {
		g.record("create", err)
		return domain.Session{}, err
	}
	host, err := game.NewHost(hostID, nickname, g.store.Now())
	if err != nil {
		g.record("create", err)
		return domain.Session{}, err
	}
	sess, err := g.store.Create(ctx, quizID, host)
	g.record("create", err)
	if err != nil {
		return domain.Session{}, err
	}
	g.log.WithFields(logrus.Fields{"session_id": sess.ID, "code": sess.Code, "quiz_id": quizID}).Info("session created")
	g.notify(ctx, EventSessionCreated, sess)
	return sess, nil
}

// Join adds playerID to the session.
func (g *GameService) Join(ctx context.Context, sessionID, playerID, nickname string) (domain.Session, error) {
	return g.mutate(ctx, "join", sessionID, EventParticipantJoined, func(s *domain.Session, _ domain.Quiz, now time.Time) error {
		_, err := g.engine.Join(s, playerID, nickname, now)
		return err
	})
}

// JoinByCode resolves an active session by join code and joins it.
func (g *GameService) JoinByCode(ctx context.Context, code, playerID, nickname string) (domain.Session, error) {
	sess, err := g.store.GetByCode(ctx, code)
	if err != nil {
		g.record("join", err)
		return domain.Session{}, err
	}
	return g.Join(ctx, sess.ID, playerID, nickname)
}

// Leave removes a player at their own request.
func (g *GameService) Leave(ctx context.Context, sessionID, playerID string) (domain.Session, error) {
	return g.Remove(ctx, sessionID, playerID, playerID)
}

// Remove marks targetID as having left. Only the host or the player themself may do this.
func (g *GameService) Remove(ctx context.Context, sessionID, actorID, targetID string) (domain.Session, error) {
	return g.mutate(ctx, "remove", sessionID, EventParticipantLeft, func(s *domain.Session, _ domain.Quiz, now time.Time) error {
		return g.engine.Remove(s, actorID, targetID, now)
	})
}

// Advance moves the session to its next stage.
func (g *GameService) Advance(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	return g.mutate(ctx, "advance", sessionID, EventStageAdvanced, func(s *domain.Session, quiz domain.Quiz, now time.Time) error {
		return g.engine.Advance(s, quiz, actorID, now)
	})
}

// Activate opens the pending question for answers.
func (g *GameService) Activate(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	return g.mutate(ctx, "activate", sessionID, EventStageActivated, func(s *domain.Session, _ domain.Quiz, now time.Time) error {
		return g.engine.Activate(s, actorID, now)
	})
}

// End closes the session early.
func (g *GameService) End(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	return g.mutate(ctx, "end", sessionID, EventSessionEnded, func(s *domain.Session, _ domain.Quiz, now time.Time) error {
		return g.engine.End(s, actorID, now)
	})
}

// SubmitAnswer records a player's answer to the active question.
func (g *GameService) SubmitAnswer(ctx context.Context, sessionID, participantID string, kind domain.QuestionKind, value domain.AnswerValue) (domain.Answer, domain.Session, error) {
	var answer domain.Answer
	sess, err := g.mutate(ctx, "answer", sessionID, EventAnswerSubmitted, func(s *domain.Session, quiz domain.Quiz, now time.Time) error {
		a, err := g.engine.SubmitAnswer(s, quiz, participantID, kind, value, now)
		answer = a
		return err
	})
	if err != nil {
		return domain.Answer{}, domain.Session{}, err
	}
	g.metrics.Answers.WithLabelValues(answerOutcome(answer)).Inc()
	return answer, sess, nil
}

// AddCorrectAnswer accepts value as correct for the question under review.
func (g *GameService) AddCorrectAnswer(ctx context.Context, sessionID, actorID string, value domain.AnswerValue) (domain.Session, error) {
	return g.mutate(ctx, "add_correct", sessionID, EventResultsUpdated, func(s *domain.Session, quiz domain.Quiz, now time.Time) error {
		return g.engine.AddCorrectAnswer(s, quiz, actorID, value, now)
	})
}

// RemoveCorrectAnswer stops accepting value for the question under review.
func (g *GameService) RemoveCorrectAnswer(ctx context.Context, sessionID, actorID string, value domain.AnswerValue) (domain.Session, error) {
	return g.mutate(ctx, "remove_correct", sessionID, EventResultsUpdated, func(s *domain.Session, quiz domain.Quiz, now time.Time) error {
		return g.engine.RemoveCorrectAnswer(s, quiz, actorID, value, now)
	})
}

// Session returns the current state of a session, whatever its status.
func (g *GameService) Session(ctx context.Context, sessionID string) (domain.Session, error) {
	return g.store.Get(ctx, sessionID, false)
}

// SessionByCode resolves an active session by join code.
func (g *GameService) SessionByCode(ctx context.Context, code string) (domain.Session, error) {
	return g.store.GetByCode(ctx, code)
}

// Leaderboard ranks the session's players.
func (g *GameService) Leaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	sess, err := g.store.Get(ctx, sessionID, false)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return game.Leaderboard(sess), nil
}

// Sweep closes stale sessions and returns how many were closed.
func (g *GameService) Sweep(ctx context.Context) (int, error) {
	swept, err := g.store.SweepStaleActive(ctx, g.staleTimeout)
	for _, sess := range swept {
		g.log.WithFields(logrus.Fields{"session_id": sess.ID, "code": sess.Code, "status": sess.Status}).Info("stale session swept")
		g.notify(ctx, EventSessionSwept, sess)
		if sess.Status == domain.StatusCompleted {
			g.archive(ctx, sess)
		}
	}
	return len(swept), err
}

type mutation func(s *domain.Session, quiz domain.Quiz, now time.Time) error

func (g *GameService) mutate(ctx context.Context, op, sessionID string, event EventType, fn mutation) (domain.Session, error) {
	current, err := g.store.Get(ctx, sessionID, false)
	if err != nil {
		g.record(op, err)
		return domain.Session{}, err
	}
	quiz, err := g.quizzes.GetQuiz(ctx, current.QuizID)
	if err != nil {
		g.record(op, err)
		return domain.Session{}, fmt.Errorf("load quiz %s: %w", current.QuizID, err)
	}

	var before domain.SessionStatus
	updated, err := g.store.Mutate(ctx, sessionID, func(s *domain.Session) error {
		before = s.Status
		return fn(s, quiz, g.store.Now())
	})
	g.record(op, err)
	if err != nil {
		g.log.WithFields(logrus.Fields{"session_id": sessionID, "op": op, "error": err}).Debug("mutation rejected")
		return domain.Session{}, err
	}

	g.notify(ctx, event, updated)
	if before == domain.StatusActive && updated.Status == domain.StatusCompleted {
		g.archive(ctx, updated)
	}
	return updated, nil
}

func (g *GameService) notify(ctx context.Context, typ EventType, sess domain.Session) {
	if g.notifier == nil {
		return
	}
	err := g.notifier.Notify(ctx, Event{
		Type:        typ,
		SessionID:   sess.ID,
		Code:        sess.Code,
		Status:      sess.Status,
		Stage:       game.PublicStage(sess.CurrentStage),
		Leaderboard: game.Leaderboard(sess),
		At:          sess.UpdatedAt,
	})
	if err != nil {
		g.metrics.Notify.WithLabelValues("error").Inc()
		g.log.WithFields(logrus.Fields{"session_id": sess.ID, "event": typ, "error": err}).Warn("notify failed")
		return
	}
	g.metrics.Notify.WithLabelValues("ok").Inc()
}

func (g *GameService) archive(ctx context.Context, sess domain.Session) {
	if g.archiver == nil {
		return
	}
	if err := g.archiver.Archive(ctx, game.Summarize(sess)); err != nil {
		g.log.WithFields(logrus.Fields{"session_id": sess.ID, "error": err}).Error("archive results failed")
	}
}

func (g *GameService) record(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
		if errors.Is(err, context.Canceled) {
			result = "canceled"
		}
	}
	g.metrics.Mutations.WithLabelValues(op, result).Inc()
}

func answerOutcome(a domain.Answer) string {
	switch {
	case !a.Graded:
		return "pending"
	case a.Correct:
		return "correct"
	default:
		return "incorrect"
	}
}
