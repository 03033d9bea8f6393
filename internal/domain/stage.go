package domain

import (
	"slices"
	"time"
)

// StageKind discriminates the Stage variants.
type StageKind string

const (
	StageLobby          StageKind = "lobby"
	StageQuestion       StageKind = "question"
	StageQuestionResult StageKind = "question_result"
	StagePodium         StageKind = "podium"
	StageQuit           StageKind = "quit"
)

// StageStatus is the sub-status of a stage. Only active stages accept mutating actions.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
)

// Stage is a closed tagged union: Kind selects which payload pointer is populated.
// Question is set for StageQuestion, Result for StageQuestionResult, neither otherwise.
type Stage struct {
	Kind        StageKind      `json:"kind"`
	Status      StageStatus    `json:"status"`
	StartedAt   time.Time      `json:"startedAt"`
	ActivatedAt time.Time      `json:"activatedAt,omitempty"`
	Question    *QuestionStage `json:"question,omitempty"`
	Result      *ResultStage   `json:"result,omitempty"`
}

// QuestionStage is the payload of an open question.
type QuestionStage struct {
	Index      int          `json:"index"`
	QuestionID string       `json:"questionId"`
	Kind       QuestionKind `json:"kind"`
	DurationMs int64        `json:"durationMs"`
	Points     int          `json:"points"`
	HostGraded bool         `json:"hostGraded,omitempty"`
	Answers    []Answer     `json:"answers"`
	// AnswerCount is only filled in by public views, which withhold Answers while the question is open.
	AnswerCount int `json:"answerCount,omitempty"`
	// Baseline is every player's standing when the question opened; results are derived from it.
	Baseline map[string]Standing `json:"baseline"`
}

// ResultStage is the payload of a question result.
type ResultStage struct {
	Index          int           `json:"index"`
	QuestionID     string        `json:"questionId"`
	CorrectAnswers []AnswerValue `json:"correctAnswers"`
	Results        []ResultItem  `json:"results"`
}

// ResultItem is one participant's outcome for a question.
type ResultItem struct {
	ParticipantID        string `json:"participantId"`
	Nickname             string `json:"nickname"`
	Answered             bool   `json:"answered"`
	Correct              bool   `json:"correct"`
	ScoreDelta           int    `json:"scoreDelta"`
	Score                int    `json:"score"`
	Position             int    `json:"position"`
	ResponseMs           int64  `json:"responseMs"`
	CumulativeResponseMs int64  `json:"cumulativeResponseMs"`
	ResponseCount        int    `json:"responseCount"`
	Streak               int    `json:"streak"`
}

// Standing returns the standing recorded by the result item.
func (r ResultItem) Standing() Standing {
	return Standing{
		Score:                r.Score,
		Streak:               r.Streak,
		CumulativeResponseMs: r.CumulativeResponseMs,
		ResponseCount:        r.ResponseCount,
	}
}

func LobbyStage(now time.Time) Stage {
	return Stage{Kind: StageLobby, Status: StageActive, StartedAt: now, ActivatedAt: now}
}

func PodiumStage(now time.Time) Stage {
	return Stage{Kind: StagePodium, Status: StageActive, StartedAt: now, ActivatedAt: now}
}

func QuitStage(now time.Time) Stage {
	return Stage{Kind: StageQuit, Status: StageCompleted, StartedAt: now}
}

// IsActive reports whether the stage admits input.
func (s Stage) IsActive() bool { return s.Status == StageActive }

// Clone returns a deep copy of the stage.
func (s Stage) Clone() Stage {
	out := s
	if s.Question != nil {
		q := *s.Question
		if s.Question.Answers != nil {
			q.Answers = make([]Answer, len(s.Question.Answers))
			for i, a := range s.Question.Answers {
				a.Value = cloneValue(a.Value)
				q.Answers[i] = a
			}
		}
		if s.Question.Baseline != nil {
			q.Baseline = make(map[string]Standing, len(s.Question.Baseline))
			for k, v := range s.Question.Baseline {
				q.Baseline[k] = v
			}
		}
		out.Question = &q
	}
	if s.Result != nil {
		r := *s.Result
		if s.Result.CorrectAnswers != nil {
			r.CorrectAnswers = make([]AnswerValue, len(s.Result.CorrectAnswers))
			for i, v := range s.Result.CorrectAnswers {
				r.CorrectAnswers[i] = cloneValue(v)
			}
		}
		r.Results = slices.Clone(s.Result.Results)
		out.Result = &r
	}
	return out
}
