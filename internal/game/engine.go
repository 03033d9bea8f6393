// Package game implements the session state machine: stage transitions, answer intake,
// correct-answer editing and the participant registry. Every function mutates the session it
// is given in place and must run inside the session store's Mutate callback; on error the
// session must be discarded.
package game

import (
	"time"

	"live-quiz-service/internal/domain"
)

// DefaultMaxPlayers caps players per session when no limit is configured.
const DefaultMaxPlayers = 20

// Engine applies game rules to sessions.
type Engine struct {
	maxPlayers int
}

func NewEngine(maxPlayers int) *Engine {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Engine{maxPlayers: maxPlayers}
}

// MaxPlayers returns the configured player cap.
func (e *Engine) MaxPlayers() int { return e.maxPlayers }

// Advance completes the current stage and installs the next one.
func (e *Engine) Advance(s *domain.Session, quiz domain.Quiz, actorID string, now time.Time) error {
	if err := requireHost(s, actorID); err != nil {
		return err
	}
	cur := s.CurrentStage
	if s.Status != domain.StatusActive || !cur.IsActive() {
		return domain.ErrInvalidStageTransition
	}

	switch cur.Kind {
	case domain.StageLobby:
		replaceStage(s, nextAfter(s, quiz, -1, now), now)
	case domain.StageQuestion:
		next, err := closeQuestion(s, quiz, now)
		if err != nil {
			return err
		}
		replaceStage(s, next, now)
	case domain.StageQuestionResult:
		replaceStage(s, nextAfter(s, quiz, cur.Result.Index, now), now)
	case domain.StagePodium:
		finish(s, now)
	case domain.StageQuit:
		return domain.ErrInvalidStageTransition
	default:
		return domain.ErrInvalidStageTransition
	}
	return nil
}

// Activate opens a pending stage for input and starts its response clock.
func (e *Engine) Activate(s *domain.Session, actorID string, now time.Time) error {
	if err := requireHost(s, actorID); err != nil {
		return err
	}
	if s.Status != domain.StatusActive || s.CurrentStage.Status != domain.StagePending {
		return domain.ErrInvalidStageTransition
	}
	s.CurrentStage.Status = domain.StageActive
	s.CurrentStage.ActivatedAt = now
	return nil
}

// End lets the host close the session early from any stage but quit.
func (e *Engine) End(s *domain.Session, actorID string, now time.Time) error {
	if err := requireHost(s, actorID); err != nil {
		return err
	}
	if s.Status != domain.StatusActive || s.CurrentStage.Kind == domain.StageQuit {
		return domain.ErrInvalidStageTransition
	}
	finish(s, now)
	return nil
}

// Terminate forces the session into quit with the given final status.
func Terminate(s *domain.Session, status domain.SessionStatus, now time.Time) {
	replaceStage(s, domain.QuitStage(now), now)
	s.Status = status
}

// nextAfter returns the question following index, or the podium after the last one.
func nextAfter(s *domain.Session, quiz domain.Quiz, index int, now time.Time) domain.Stage {
	next := index + 1
	if next >= len(quiz.Questions) {
		return domain.PodiumStage(now)
	}
	return openQuestion(s, quiz.Questions[next], next, now)
}

func openQuestion(s *domain.Session, q domain.Question, index int, now time.Time) domain.Stage {
	baseline := make(map[string]domain.Standing)
	for _, p := range s.Participants {
		if p.Role == domain.RolePlayer {
			baseline[p.ID] = p.Standing()
		}
	}
	return domain.Stage{
		Kind:      domain.StageQuestion,
		Status:    domain.StagePending,
		StartedAt: now,
		Question: &domain.QuestionStage{
			Index:      index,
			QuestionID: q.ID,
			Kind:       q.Kind,
			DurationMs: q.DurationMs(),
			Points:     q.PointBudget(),
			HostGraded: q.IsHostGraded(),
			Answers:    []domain.Answer{},
			Baseline:   baseline,
		},
	}
}

func closeQuestion(s *domain.Session, quiz domain.Quiz, now time.Time) (domain.Stage, error) {
	qs := s.CurrentStage.Question
	q, err := questionAt(quiz, qs.Index, qs.QuestionID)
	if err != nil {
		return domain.Stage{}, err
	}
	set := q.CorrectValues()
	results := deriveResults(s, q, qs, set)
	applyResults(s, results, now)
	return domain.Stage{
		Kind:        domain.StageQuestionResult,
		Status:      domain.StageActive,
		StartedAt:   now,
		ActivatedAt: now,
		Result: &domain.ResultStage{
			Index:          qs.Index,
			QuestionID:     qs.QuestionID,
			CorrectAnswers: set,
			Results:        results,
		},
	}, nil
}

// finish moves to quit; the session completes only if some player actually answered.
func finish(s *domain.Session, now time.Time) {
	status := domain.StatusExpired
	for _, p := range s.Participants {
		if p.Role == domain.RolePlayer && p.ResponseCount > 0 {
			status = domain.StatusCompleted
			break
		}
	}
	Terminate(s, status, now)
}

func replaceStage(s *domain.Session, next domain.Stage, now time.Time) {
	prev := s.CurrentStage
	prev.Status = domain.StageCompleted
	s.PreviousStages = append(s.PreviousStages, prev)
	s.CurrentStage = next
	s.UpdatedAt = now
}

func questionAt(quiz domain.Quiz, index int, id string) (domain.Question, error) {
	if index < 0 || index >= len(quiz.Questions) || quiz.Questions[index].ID != id {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return quiz.Questions[index], nil
}

func requireHost(s *domain.Session, actorID string) error {
	i := s.Participant(actorID)
	if i < 0 || s.Participants[i].Role != domain.RoleHost {
		return domain.ErrNotHost
	}
	return nil
}
