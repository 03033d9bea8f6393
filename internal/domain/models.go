package domain

import (
	"fmt"
	"slices"
	"time"
)

// DefaultPoints is used when a question does not set its own point budget.
const DefaultPoints = 1000

// Role distinguishes the controlling host from answering players.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// SessionStatus is the overall lifecycle state of a session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusExpired   SessionStatus = "expired"
)

// Participant represents a session member and their accumulated standing.
type Participant struct {
	ID                   string    `json:"id"`
	Nickname             string    `json:"nickname"`
	Role                 Role      `json:"role"`
	Score                int       `json:"score"`
	Streak               int       `json:"streak"`
	CumulativeResponseMs int64     `json:"cumulativeResponseMs"`
	ResponseCount        int       `json:"responseCount"`
	Left                 bool      `json:"left,omitempty"`
	JoinedAt             time.Time `json:"joinedAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Standing is the score-relevant part of a participant at a point in time.
type Standing struct {
	Score                int   `json:"score"`
	Streak               int   `json:"streak"`
	CumulativeResponseMs int64 `json:"cumulativeResponseMs"`
	ResponseCount        int   `json:"responseCount"`
}

// Standing returns the participant's current standing.
func (p Participant) Standing() Standing {
	return Standing{
		Score:                p.Score,
		Streak:               p.Streak,
		CumulativeResponseMs: p.CumulativeResponseMs,
		ResponseCount:        p.ResponseCount,
	}
}

// Apply overwrites the participant's standing fields.
func (p *Participant) Apply(s Standing, now time.Time) {
	p.Score = s.Score
	p.Streak = s.Streak
	p.CumulativeResponseMs = s.CumulativeResponseMs
	p.ResponseCount = s.ResponseCount
	p.UpdatedAt = now
}

// Session is the root aggregate of a running quiz.
type Session struct {
	ID             string        `json:"id"`
	Code           string        `json:"code"`
	QuizID         string        `json:"quizId"`
	Participants   []Participant `json:"participants"`
	CurrentStage   Stage         `json:"currentStage"`
	PreviousStages []Stage       `json:"previousStages"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Participant returns the index of the participant with the given id, or -1.
func (s *Session) Participant(id string) int {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return i
		}
	}
	return -1
}

// Host returns the session's host participant.
func (s *Session) Host() (Participant, bool) {
	for _, p := range s.Participants {
		if p.Role == RoleHost {
			return p, true
		}
	}
	return Participant{}, false
}

// PlayerCount counts players, including those who left.
func (s *Session) PlayerCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.Role == RolePlayer {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to mutate independently.
func (s Session) Clone() Session {
	out := s
	out.Participants = slices.Clone(s.Participants)
	out.CurrentStage = s.CurrentStage.Clone()
	if s.PreviousStages != nil {
		out.PreviousStages = make([]Stage, len(s.PreviousStages))
		for i := range s.PreviousStages {
			out.PreviousStages[i] = s.PreviousStages[i].Clone()
		}
	}
	return out
}

// LeaderboardEntry is a snapshot-friendly view of a ranked player.
type LeaderboardEntry struct {
	Position      int    `json:"position"`
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
	ResponseCount int    `json:"responseCount"`
}

// Leaderboard captures the ordered scoreboard for a session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Option represents a possible answer for a choice question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models one quiz question and the data needed to grade it.
type Question struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Kind    QuestionKind `json:"kind"`
	Options []Option     `json:"options,omitempty"`
	// Correct lists accepted values for kinds that are not expressed through Options.
	Correct []AnswerValue `json:"correct,omitempty"`
	// Tolerance is the accepted absolute distance for range answers and the radius for pins.
	Tolerance    float64 `json:"tolerance,omitempty"`
	TimeLimitSec int     `json:"timeLimitSec"`
	Points       int     `json:"points"` // defaults to DefaultPoints if zero
	HostGraded   bool    `json:"hostGraded,omitempty"`
}

// IsHostGraded reports whether correctness waits for the host's correct-answer set.
func (q Question) IsHostGraded() bool {
	return q.HostGraded || q.Kind == KindText
}

// PointBudget returns the question's points with the default applied.
func (q Question) PointBudget() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// DurationMs returns the time limit in milliseconds (zero means untimed).
func (q Question) DurationMs() int64 {
	return int64(q.TimeLimitSec) * 1000
}

// CorrectValues returns the stored correct-answer set for auto-graded questions.
func (q Question) CorrectValues() []AnswerValue {
	if q.IsHostGraded() {
		return nil
	}
	var out []AnswerValue
	if q.Kind == KindChoice {
		for i, opt := range q.Options {
			if opt.Correct {
				out = append(out, ChoiceValue(i))
			}
		}
	}
	for _, v := range q.Correct {
		out = AddValue(q, out, v)
	}
	return out
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// Summary is the archived record of a finished session.
type Summary struct {
	SessionID   string        `json:"sessionId"`
	Code        string        `json:"code"`
	QuizID      string        `json:"quizId"`
	Status      SessionStatus `json:"status"`
	PlayerCount int           `json:"playerCount"`
	Questions   int           `json:"questions"`
	Leaderboard Leaderboard   `json:"leaderboard"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
}

// Validate checks that every question can be played: known kind, unique id,
// and options for the kinds that index into them.
func (q Quiz) Validate() error {
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" || !question.Kind.Valid() {
			return fmt.Errorf("question %d: %w", i, ErrInvalidQuiz)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("duplicate question id %q: %w", question.ID, ErrInvalidQuiz)
		}
		seen[question.ID] = struct{}{}
		if (question.Kind == KindChoice || question.Kind == KindPuzzle) && len(question.Options) == 0 {
			return fmt.Errorf("question %q has no options: %w", question.ID, ErrInvalidQuiz)
		}
	}
	return nil
}
