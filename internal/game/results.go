package game

import (
	"sort"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

// AddCorrectAnswer adds value to the active result stage's correct set and re-derives all results.
func (e *Engine) AddCorrectAnswer(s *domain.Session, quiz domain.Quiz, actorID string, value domain.AnswerValue, now time.Time) error {
	return e.editCorrectSet(s, quiz, actorID, value, now, domain.AddValue)
}

// RemoveCorrectAnswer removes value from the active result stage's correct set and re-derives all results.
func (e *Engine) RemoveCorrectAnswer(s *domain.Session, quiz domain.Quiz, actorID string, value domain.AnswerValue, now time.Time) error {
	return e.editCorrectSet(s, quiz, actorID, value, now, domain.RemoveValue)
}

type setEdit func(q domain.Question, set []domain.AnswerValue, v domain.AnswerValue) []domain.AnswerValue

func (e *Engine) editCorrectSet(s *domain.Session, quiz domain.Quiz, actorID string, value domain.AnswerValue, now time.Time, edit setEdit) error {
	if err := requireHost(s, actorID); err != nil {
		return err
	}
	stage := s.CurrentStage
	if s.Status != domain.StatusActive || stage.Kind != domain.StageQuestionResult || !stage.IsActive() {
		return domain.ErrInvalidResultStageState
	}
	rs := stage.Result
	q, err := questionAt(quiz, rs.Index, rs.QuestionID)
	if err != nil {
		return err
	}
	if err := domain.ValidateValue(q, value); err != nil {
		return err
	}
	qs := questionStage(s, rs.Index)
	if qs == nil {
		return domain.ErrInvalidResultStageState
	}

	rs.CorrectAnswers = edit(q, rs.CorrectAnswers, value)
	rs.Results = deriveResults(s, q, qs, rs.CorrectAnswers)
	applyResults(s, rs.Results, now)
	return nil
}

// questionStage finds the completed question stage a result stage was built from.
func questionStage(s *domain.Session, index int) *domain.QuestionStage {
	for i := len(s.PreviousStages) - 1; i >= 0; i-- {
		st := s.PreviousStages[i]
		if st.Kind == domain.StageQuestion && st.Question != nil && st.Question.Index == index {
			return st.Question
		}
	}
	return nil
}

// deriveResults recomputes every player's result from the question's baseline, its answers and set.
func deriveResults(s *domain.Session, q domain.Question, qs *domain.QuestionStage, set []domain.AnswerValue) []domain.ResultItem {
	answers := make(map[string]domain.Answer, len(qs.Answers))
	for _, a := range qs.Answers {
		answers[a.ParticipantID] = a
	}

	items := make([]domain.ResultItem, 0, len(s.Participants))
	ranked := make([]scoring.Ranked, 0, len(s.Participants))
	for order, p := range s.Participants {
		if p.Role != domain.RolePlayer {
			continue
		}
		a, answered := answers[p.ID]
		outcome := scoring.Outcome{
			Answered:   answered,
			Correct:    answered && domain.MatchesAny(q, set, a.Value),
			ResponseMs: a.ResponseMs,
		}
		standing, delta := scoring.Apply(qs.Baseline[p.ID], outcome, qs.Points, qs.DurationMs)
		items = append(items, domain.ResultItem{
			ParticipantID:        p.ID,
			Nickname:             p.Nickname,
			Answered:             answered,
			Correct:              outcome.Correct,
			ScoreDelta:           delta,
			Score:                standing.Score,
			ResponseMs:           a.ResponseMs,
			CumulativeResponseMs: standing.CumulativeResponseMs,
			ResponseCount:        standing.ResponseCount,
			Streak:               standing.Streak,
		})
		ranked = append(ranked, scoring.Ranked{
			ID:                   p.ID,
			Score:                standing.Score,
			CumulativeResponseMs: standing.CumulativeResponseMs,
			ResponseCount:        standing.ResponseCount,
			JoinOrder:            order,
		})
	}

	positions := scoring.Rank(ranked)
	for i := range items {
		items[i].Position = positions[items[i].ParticipantID]
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items
}

func applyResults(s *domain.Session, items []domain.ResultItem, now time.Time) {
	for _, item := range items {
		if i := s.Participant(item.ParticipantID); i >= 0 {
			s.Participants[i].Apply(item.Standing(), now)
		}
	}
}

// Leaderboard ranks the session's players by their current standing.
func Leaderboard(s domain.Session) domain.Leaderboard {
	ranked := make([]scoring.Ranked, 0, len(s.Participants))
	for order, p := range s.Participants {
		if p.Role != domain.RolePlayer {
			continue
		}
		ranked = append(ranked, scoring.Ranked{
			ID:                   p.ID,
			Score:                p.Score,
			CumulativeResponseMs: p.CumulativeResponseMs,
			ResponseCount:        p.ResponseCount,
			JoinOrder:            order,
		})
	}
	positions := scoring.Rank(ranked)

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for _, p := range s.Participants {
		if p.Role != domain.RolePlayer {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			Position:      positions[p.ID],
			UserID:        p.ID,
			DisplayName:   p.Nickname,
			Score:         p.Score,
			Streak:        p.Streak,
			ResponseCount: p.ResponseCount,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return domain.Leaderboard{
		SessionID: s.ID,
		Entries:   entries,
		UpdatedAt: s.UpdatedAt,
	}
}

// Summarize builds the archive record for a session.
func Summarize(s domain.Session) domain.Summary {
	questions := 0
	for _, st := range s.PreviousStages {
		if st.Kind == domain.StageQuestionResult {
			questions++
		}
	}
	return domain.Summary{
		SessionID:   s.ID,
		Code:        s.Code,
		QuizID:      s.QuizID,
		Status:      s.Status,
		PlayerCount: s.PlayerCount(),
		Questions:   questions,
		Leaderboard: Leaderboard(s),
		StartedAt:   s.CreatedAt,
		FinishedAt:  s.UpdatedAt,
	}
}
