package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Kind:   domain.KindChoice,
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5"},
				},
				TimeLimitSec: 30,
				Points:       1000,
			},
			{
				ID:           "q2",
				Prompt:       "Name a primary colour",
				Kind:         domain.KindText,
				TimeLimitSec: 20,
				Points:       500,
			},
		},
	}
}

func newSession(t *testing.T) *domain.Session {
	t.Helper()
	host, err := NewHost("host", "Quizmaster", t0)
	require.NoError(t, err)
	return &domain.Session{
		ID:           "s1",
		Code:         "123456",
		QuizID:       "quiz-1",
		Participants: []domain.Participant{host},
		CurrentStage: domain.LobbyStage(t0),
		Status:       domain.StatusActive,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
}

func joinPlayers(t *testing.T, e *Engine, s *domain.Session, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := e.Join(s, id, "nick-"+id, t0)
		require.NoError(t, err)
	}
}

// openFirstQuestion moves lobby -> question(0) and activates it at t0.
func openFirstQuestion(t *testing.T, e *Engine, s *domain.Session) {
	t.Helper()
	require.NoError(t, e.Advance(s, sampleQuiz(), "host", t0))
	require.Equal(t, domain.StagePending, s.CurrentStage.Status)
	require.NoError(t, e.Activate(s, "host", t0))
}

func TestStageSequence(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a")

	want := []domain.StageKind{
		domain.StageQuestion,
		domain.StageQuestionResult,
		domain.StageQuestion,
		domain.StageQuestionResult,
		domain.StagePodium,
	}
	for i, kind := range want {
		require.NoError(t, e.Advance(s, quiz, "host", t0), "step %d", i)
		require.Equal(t, kind, s.CurrentStage.Kind, "step %d", i)
		if kind == domain.StageQuestion {
			require.NoError(t, e.Activate(s, "host", t0))
			if s.CurrentStage.Question.Index == 0 {
				_, err := e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0.Add(time.Second))
				require.NoError(t, err)
			}
		}
	}

	require.NoError(t, e.Advance(s, quiz, "host", t0))
	assert.Equal(t, domain.StageQuit, s.CurrentStage.Kind)
	assert.Equal(t, domain.StatusCompleted, s.Status)
	require.Len(t, s.PreviousStages, 6)
	for _, st := range s.PreviousStages {
		assert.Equal(t, domain.StageCompleted, st.Status)
	}

	assert.ErrorIs(t, e.Advance(s, quiz, "host", t0), domain.ErrInvalidStageTransition)
}

func TestAdvanceRequiresActiveStageAndHost(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a")

	assert.ErrorIs(t, e.Advance(s, quiz, "a", t0), domain.ErrNotHost)

	require.NoError(t, e.Advance(s, quiz, "host", t0))
	assert.ErrorIs(t, e.Advance(s, quiz, "host", t0), domain.ErrInvalidStageTransition, "pending question cannot be advanced")

	require.NoError(t, e.Activate(s, "host", t0))
	assert.ErrorIs(t, e.Activate(s, "host", t0), domain.ErrInvalidStageTransition, "already active")
}

func TestPodiumWithoutAnswersExpires(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := domain.Quiz{ID: "empty"}

	require.NoError(t, e.Advance(s, quiz, "host", t0))
	require.Equal(t, domain.StagePodium, s.CurrentStage.Kind)
	require.NoError(t, e.Advance(s, quiz, "host", t0))

	assert.Equal(t, domain.StageQuit, s.CurrentStage.Kind)
	assert.Equal(t, domain.StatusExpired, s.Status)
}

func TestEndFromQuestion(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	joinPlayers(t, e, s, "a")
	openFirstQuestion(t, e, s)
	_, err := e.SubmitAnswer(s, sampleQuiz(), "a", domain.KindChoice, domain.ChoiceValue(0), t0)
	require.NoError(t, err)

	require.NoError(t, e.End(s, "host", t0))
	assert.Equal(t, domain.StatusCompleted, s.Status)
	assert.Equal(t, domain.StageQuestion, s.PreviousStages[len(s.PreviousStages)-1].Kind)
	assert.ErrorIs(t, e.End(s, "host", t0), domain.ErrInvalidStageTransition)
}

func TestSubmitAnswerRules(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a", "b")

	_, err := e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0)
	assert.ErrorIs(t, err, domain.ErrStageNotAcceptingAnswers, "lobby")

	require.NoError(t, e.Advance(s, quiz, "host", t0))
	_, err = e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0)
	assert.ErrorIs(t, err, domain.ErrStageNotAcceptingAnswers, "pending question")
	require.NoError(t, e.Activate(s, "host", t0))

	_, err = e.SubmitAnswer(s, quiz, "a", domain.KindBoolean, domain.BoolValue(true), t0)
	assert.ErrorIs(t, err, domain.ErrAnswerKindMismatch)
	_, err = e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(7), t0)
	assert.ErrorIs(t, err, domain.ErrInvalidAnswer)
	_, err = e.SubmitAnswer(s, quiz, "host", domain.KindChoice, domain.ChoiceValue(1), t0)
	assert.ErrorIs(t, err, domain.ErrHostCannotAnswer)
	_, err = e.SubmitAnswer(s, quiz, "ghost", domain.KindChoice, domain.ChoiceValue(1), t0)
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)

	first, err := e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.True(t, first.Correct)
	assert.Equal(t, int64(3000), first.ResponseMs)
	assert.Equal(t, 950, first.ScoreDelta)

	before := s.Clone()
	_, err = e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(0), t0.Add(4*time.Second))
	assert.ErrorIs(t, err, domain.ErrAnswerAlreadySubmitted)
	_, err = e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(7), t0.Add(4*time.Second))
	assert.ErrorIs(t, err, domain.ErrAnswerAlreadySubmitted, "duplicate wins over a malformed value")
	assert.Equal(t, before, *s, "rejected duplicate must not change the session")

	_, err = e.SubmitAnswer(s, quiz, "b", domain.KindChoice, domain.ChoiceValue(0), t0.Add(2*time.Second))
	require.NoError(t, err)

	require.NoError(t, e.Advance(s, quiz, "host", t0.Add(10*time.Second)))
	results := s.CurrentStage.Result.Results
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ParticipantID)
	assert.Equal(t, 950, results[0].Score)
	assert.Equal(t, 1, results[0].Streak)
	assert.False(t, results[1].Correct)
	assert.Equal(t, 0, results[1].Streak)
}

func TestFasterCorrectAnswerRanksFirst(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a", "b")
	// b carries a streak from an earlier question
	s.Participants[2].Streak = 4
	openFirstQuestion(t, e, s)

	a, err := e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0.Add(3*time.Second))
	require.NoError(t, err)
	b, err := e.SubmitAnswer(s, quiz, "b", domain.KindChoice, domain.ChoiceValue(1), t0.Add(4*time.Second))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a.ScoreDelta, b.ScoreDelta)

	require.NoError(t, e.Advance(s, quiz, "host", t0.Add(30*time.Second)))
	results := s.CurrentStage.Result.Results
	require.Equal(t, "a", results[0].ParticipantID)
	assert.Equal(t, 1, results[0].Position)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, 5, results[1].Streak)

	lb := Leaderboard(*s)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "a", lb.Entries[0].UserID)
}

func TestCorrectAnswerSetRoundTrip(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a", "b")
	openFirstQuestion(t, e, s)

	_, err := e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0.Add(time.Second))
	require.NoError(t, err)
	_, err = e.SubmitAnswer(s, quiz, "b", domain.KindChoice, domain.ChoiceValue(2), t0.Add(2*time.Second))
	require.NoError(t, err)

	assert.ErrorIs(t, e.AddCorrectAnswer(s, quiz, "host", domain.ChoiceValue(2), t0), domain.ErrInvalidResultStageState)
	require.NoError(t, e.Advance(s, quiz, "host", t0.Add(5*time.Second)))

	before := s.CurrentStage.Result.Results
	beforeParticipants := append([]domain.Participant(nil), s.Participants...)

	assert.ErrorIs(t, e.AddCorrectAnswer(s, quiz, "a", domain.ChoiceValue(2), t0), domain.ErrNotHost)

	require.NoError(t, e.AddCorrectAnswer(s, quiz, "host", domain.ChoiceValue(2), t0))
	after := s.CurrentStage.Result.Results
	for _, item := range after {
		assert.True(t, item.Correct, "%s should be correct once option 2 is accepted", item.ParticipantID)
	}

	// adding again is a no-op
	require.NoError(t, e.AddCorrectAnswer(s, quiz, "host", domain.ChoiceValue(2), t0))
	assert.Equal(t, after, s.CurrentStage.Result.Results)

	require.NoError(t, e.RemoveCorrectAnswer(s, quiz, "host", domain.ChoiceValue(2), t0))
	assert.Equal(t, before, s.CurrentStage.Result.Results)
	for i := range beforeParticipants {
		assert.Equal(t, beforeParticipants[i].Standing(), s.Participants[i].Standing())
	}
}

func TestRemovingPreAcceptedValueUnscoresIt(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a")
	openFirstQuestion(t, e, s)
	_, err := e.SubmitAnswer(s, quiz, "a", domain.KindChoice, domain.ChoiceValue(1), t0.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, e.Advance(s, quiz, "host", t0.Add(5*time.Second)))

	initial := s.CurrentStage.Result.Results[0]
	require.True(t, initial.Correct)
	require.Positive(t, initial.Score)

	// option 1 is already accepted, so adding it changes nothing
	require.NoError(t, e.AddCorrectAnswer(s, quiz, "host", domain.ChoiceValue(1), t0))
	assert.Equal(t, initial, s.CurrentStage.Result.Results[0])

	// the set holds each value once, so the removal takes the original entry out
	require.NoError(t, e.RemoveCorrectAnswer(s, quiz, "host", domain.ChoiceValue(1), t0))
	assert.Empty(t, s.CurrentStage.Result.CorrectAnswers)
	got := s.CurrentStage.Result.Results[0]
	assert.False(t, got.Correct)
	assert.Zero(t, got.Score)
	assert.Zero(t, s.Participants[1].Score)
}

func TestHostGradedQuestion(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	quiz := sampleQuiz()
	joinPlayers(t, e, s, "a", "b")
	openFirstQuestion(t, e, s)
	require.NoError(t, e.Advance(s, quiz, "host", t0))
	require.NoError(t, e.Advance(s, quiz, "host", t0))
	require.Equal(t, 1, s.CurrentStage.Question.Index)
	require.NoError(t, e.Activate(s, "host", t0))

	ans, err := e.SubmitAnswer(s, quiz, "a", domain.KindText, domain.TextValue(" Red "), t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, ans.Graded)
	assert.Zero(t, s.Participants[1].Score, "host-graded answers wait for the result stage")
	_, err = e.SubmitAnswer(s, quiz, "b", domain.KindText, domain.TextValue("purple"), t0.Add(time.Second))
	require.NoError(t, err)

	require.NoError(t, e.Advance(s, quiz, "host", t0.Add(20*time.Second)))
	assert.Empty(t, s.CurrentStage.Result.CorrectAnswers)
	for _, item := range s.CurrentStage.Result.Results {
		assert.False(t, item.Correct)
	}

	require.NoError(t, e.AddCorrectAnswer(s, quiz, "host", domain.TextValue("red"), t0))
	results := s.CurrentStage.Result.Results
	assert.Equal(t, "a", results[0].ParticipantID)
	assert.True(t, results[0].Correct)
	assert.Equal(t, 475, results[0].ScoreDelta)
	assert.Equal(t, 475, s.Participants[1].Score)
}

func TestJoinRules(t *testing.T) {
	e := NewEngine(2)
	s := newSession(t)

	_, err := e.Join(s, "a", "Alice", t0)
	require.NoError(t, err)
	_, err = e.Join(s, "a", "Alice2", t0)
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined)
	_, err = e.Join(s, "b", "Alice", t0)
	assert.ErrorIs(t, err, domain.ErrNicknameTaken)
	_, err = e.Join(s, "b", "alice", t0)
	require.NoError(t, err, "nicknames are case-sensitive")
	_, err = e.Join(s, "c", "Carol", t0)
	assert.ErrorIs(t, err, domain.ErrSessionFull)
	_, err = e.Join(s, "d", "   ", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidNickname)
	assert.LessOrEqual(t, s.PlayerCount(), e.MaxPlayers())

	require.NoError(t, e.Remove(s, "a", "a", t0))
	_, err = e.Join(s, "a", "Alice", t0)
	require.NoError(t, err, "a player who left may rejoin")
	assert.Equal(t, 2, s.PlayerCount())
}

func TestRemoveRules(t *testing.T) {
	e := NewEngine(0)
	s := newSession(t)
	joinPlayers(t, e, s, "a", "b")

	assert.ErrorIs(t, e.Remove(s, "host", "ghost", t0), domain.ErrParticipantNotFound)
	assert.ErrorIs(t, e.Remove(s, "host", "host", t0), domain.ErrForbiddenRemoval)
	assert.ErrorIs(t, e.Remove(s, "a", "b", t0), domain.ErrForbiddenRemoval)
	assert.ErrorIs(t, e.Remove(s, "a", "host", t0), domain.ErrForbiddenRemoval)

	require.NoError(t, e.Remove(s, "host", "b", t0))
	assert.True(t, s.Participants[2].Left)
	assert.ErrorIs(t, e.Remove(s, "host", "b", t0), domain.ErrParticipantNotFound)
	require.NoError(t, e.Remove(s, "a", "a", t0))
	assert.Len(t, s.Participants, 3, "participants are never deleted")
}
