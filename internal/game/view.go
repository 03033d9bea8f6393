package game

import "live-quiz-service/internal/domain"

// PublicStage is the stage as broadcast to every participant. While a question is pending or
// active its answers and baseline are withheld and only the number of answers is kept.
func PublicStage(st domain.Stage) domain.Stage {
	out := st.Clone()
	if out.Kind != domain.StageQuestion || out.Question == nil || out.Status == domain.StageCompleted {
		return out
	}
	out.Question.AnswerCount = len(out.Question.Answers)
	out.Question.Answers = nil
	out.Question.Baseline = nil
	return out
}

// PublicSession is the session with its current stage replaced by PublicStage.
func PublicSession(s domain.Session) domain.Session {
	s.CurrentStage = PublicStage(s.CurrentStage)
	return s
}
