package game

import (
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

// SubmitAnswer records a participant's answer on the active question stage.
// Auto-graded answers are judged and scored immediately.
func (e *Engine) SubmitAnswer(s *domain.Session, quiz domain.Quiz, participantID string, kind domain.QuestionKind, value domain.AnswerValue, now time.Time) (domain.Answer, error) {
	pi := s.Participant(participantID)
	if pi < 0 || s.Participants[pi].Left {
		return domain.Answer{}, domain.ErrParticipantNotFound
	}
	if s.Participants[pi].Role != domain.RolePlayer {
		return domain.Answer{}, domain.ErrHostCannotAnswer
	}

	stage := &s.CurrentStage
	if s.Status != domain.StatusActive || stage.Kind != domain.StageQuestion || !stage.IsActive() {
		return domain.Answer{}, domain.ErrStageNotAcceptingAnswers
	}
	qs := stage.Question
	if kind != qs.Kind {
		return domain.Answer{}, domain.ErrAnswerKindMismatch
	}
	for _, a := range qs.Answers {
		if a.ParticipantID == participantID {
			return domain.Answer{}, domain.ErrAnswerAlreadySubmitted
		}
	}
	q, err := questionAt(quiz, qs.Index, qs.QuestionID)
	if err != nil {
		return domain.Answer{}, err
	}
	if err := domain.ValidateValue(q, value); err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{
		ParticipantID: participantID,
		Kind:          kind,
		Value:         value,
		ResponseMs:    max(now.Sub(stage.ActivatedAt).Milliseconds(), 0),
		SubmittedAt:   now,
	}
	if !qs.HostGraded {
		answer.Graded = true
		answer.Correct = domain.MatchesAny(q, q.CorrectValues(), value)
		standing, delta := scoring.Apply(qs.Baseline[participantID], scoring.Outcome{
			Answered:   true,
			Correct:    answer.Correct,
			ResponseMs: answer.ResponseMs,
		}, qs.Points, qs.DurationMs)
		answer.ScoreDelta = delta
		s.Participants[pi].Apply(standing, now)
	}
	qs.Answers = append(qs.Answers, answer)
	return answer, nil
}
