package domain

import "errors"

// Kind classifies an error for callers that need to react to it (transport status, retries).
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindInvalid      Kind = "invalid"
	KindLockTimeout  Kind = "lock_timeout"
)

// Error is a sentinel error tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	// ErrSessionNotFound is returned when a quiz session does not exist (or is no longer active when filtering).
	ErrSessionNotFound = newError(KindNotFound, "quiz session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining, or after leaving.
	ErrParticipantNotFound = newError(KindNotFound, "participant not found in session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = newError(KindNotFound, "quiz not found")
	// ErrQuestionNotFound indicates the stage points at a question the quiz does not have.
	ErrQuestionNotFound = newError(KindNotFound, "question not found")

	ErrAlreadyJoined          = newError(KindConflict, "participant already joined")
	ErrNicknameTaken          = newError(KindConflict, "nickname already taken")
	ErrAnswerAlreadySubmitted = newError(KindConflict, "answer already provided")
	ErrSessionFull            = newError(KindConflict, "session is full")
	ErrCodeTaken              = newError(KindConflict, "join code already in use")
	ErrCodeExhausted          = newError(KindConflict, "could not allocate a free join code")

	ErrForbiddenRemoval = newError(KindForbidden, "participant cannot be removed by this actor")
	ErrNotHost          = newError(KindForbidden, "only the host can do this")
	ErrHostCannotAnswer = newError(KindForbidden, "host cannot submit answers")

	ErrInvalidStageTransition   = newError(KindInvalidState, "stage cannot be advanced in its current state")
	ErrStageNotAcceptingAnswers = newError(KindInvalidState, "stage is not accepting answers")
	ErrAnswerKindMismatch       = newError(KindInvalidState, "answer kind does not match the question")
	ErrInvalidResultStageState  = newError(KindInvalidState, "correct answers can only be edited on an active result stage")
	ErrSessionClosed            = newError(KindInvalidState, "session is no longer open for joining")

	ErrInvalidNickname = newError(KindInvalid, "nickname must not be empty")
	ErrInvalidAnswer   = newError(KindInvalid, "answer value is not valid for the question")
	ErrInvalidQuiz     = newError(KindInvalid, "quiz definition is malformed")

	// ErrLockTimeout means exclusive access to the session could not be acquired in time; retry.
	ErrLockTimeout = newError(KindLockTimeout, "timed out waiting for session lock")
)

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the caller may retry the same request unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindLockTimeout
}
