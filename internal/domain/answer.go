package domain

import (
	"math"
	"slices"
	"strings"
	"time"
)

// QuestionKind is the answer modality of a question.
type QuestionKind string

const (
	KindChoice  QuestionKind = "choice"
	KindRange   QuestionKind = "range"
	KindBoolean QuestionKind = "boolean"
	KindText    QuestionKind = "text"
	KindPin     QuestionKind = "pin"
	KindPuzzle  QuestionKind = "puzzle"
)

// Valid reports whether k is a known kind.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindChoice, KindRange, KindBoolean, KindText, KindPin, KindPuzzle:
		return true
	}
	return false
}

// Point is a normalized position on a pin image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnswerValue holds a submitted or accepted value; only the field matching the kind is meaningful.
type AnswerValue struct {
	Choice int     `json:"choice,omitempty"`
	Number float64 `json:"number,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
	Text   string  `json:"text,omitempty"`
	Pin    Point   `json:"pin,omitempty"`
	Order  []int   `json:"order,omitempty"`
}

func ChoiceValue(i int) AnswerValue     { return AnswerValue{Choice: i} }
func NumberValue(n float64) AnswerValue { return AnswerValue{Number: n} }
func BoolValue(b bool) AnswerValue      { return AnswerValue{Bool: b} }
func TextValue(s string) AnswerValue    { return AnswerValue{Text: s} }
func PinValue(x, y float64) AnswerValue { return AnswerValue{Pin: Point{X: x, Y: y}} }
func OrderValue(o ...int) AnswerValue   { return AnswerValue{Order: o} }

// Answer is one participant's submission for a question stage.
type Answer struct {
	ParticipantID string       `json:"participantId"`
	Kind          QuestionKind `json:"kind"`
	Value         AnswerValue  `json:"value"`
	ResponseMs    int64        `json:"responseMs"`
	SubmittedAt   time.Time    `json:"submittedAt"`
	// Graded is set once correctness has been decided at submission time.
	Graded     bool `json:"graded,omitempty"`
	Correct    bool `json:"correct,omitempty"`
	ScoreDelta int  `json:"scoreDelta,omitempty"`
}

// ValidateValue checks that v is well-formed for q.
func ValidateValue(q Question, v AnswerValue) error {
	switch q.Kind {
	case KindChoice:
		if v.Choice < 0 || (len(q.Options) > 0 && v.Choice >= len(q.Options)) {
			return ErrInvalidAnswer
		}
	case KindRange:
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return ErrInvalidAnswer
		}
	case KindBoolean:
	case KindText:
		if strings.TrimSpace(v.Text) == "" {
			return ErrInvalidAnswer
		}
	case KindPin:
		if math.IsNaN(v.Pin.X) || math.IsNaN(v.Pin.Y) {
			return ErrInvalidAnswer
		}
	case KindPuzzle:
		if len(v.Order) == 0 {
			return ErrInvalidAnswer
		}
		seen := make(map[int]bool, len(v.Order))
		for _, i := range v.Order {
			if i < 0 || seen[i] || (len(q.Options) > 0 && i >= len(q.Options)) {
				return ErrInvalidAnswer
			}
			seen[i] = true
		}
	default:
		return ErrAnswerKindMismatch
	}
	return nil
}

// Matches reports whether a submitted value satisfies one accepted value.
func Matches(q Question, accepted, submitted AnswerValue) bool {
	switch q.Kind {
	case KindChoice:
		return accepted.Choice == submitted.Choice
	case KindRange:
		return math.Abs(accepted.Number-submitted.Number) <= q.Tolerance
	case KindBoolean:
		return accepted.Bool == submitted.Bool
	case KindText:
		return normalizeText(accepted.Text) == normalizeText(submitted.Text)
	case KindPin:
		return math.Hypot(accepted.Pin.X-submitted.Pin.X, accepted.Pin.Y-submitted.Pin.Y) <= q.Tolerance
	case KindPuzzle:
		return slices.Equal(accepted.Order, submitted.Order)
	}
	return false
}

// MatchesAny reports whether submitted satisfies any value of the correct set.
func MatchesAny(q Question, set []AnswerValue, submitted AnswerValue) bool {
	for _, accepted := range set {
		if Matches(q, accepted, submitted) {
			return true
		}
	}
	return false
}

// SameValue is strict identity used to keep the correct set free of duplicates.
func SameValue(q Question, a, b AnswerValue) bool {
	switch q.Kind {
	case KindChoice:
		return a.Choice == b.Choice
	case KindRange:
		return a.Number == b.Number
	case KindBoolean:
		return a.Bool == b.Bool
	case KindText:
		return normalizeText(a.Text) == normalizeText(b.Text)
	case KindPin:
		return a.Pin == b.Pin
	case KindPuzzle:
		return slices.Equal(a.Order, b.Order)
	}
	return false
}

// AddValue appends v to set unless an identical value is already present.
func AddValue(q Question, set []AnswerValue, v AnswerValue) []AnswerValue {
	for _, existing := range set {
		if SameValue(q, existing, v) {
			return set
		}
	}
	return append(set, cloneValue(v))
}

// RemoveValue drops every value identical to v.
func RemoveValue(q Question, set []AnswerValue, v AnswerValue) []AnswerValue {
	var out []AnswerValue
	for _, existing := range set {
		if !SameValue(q, existing, v) {
			out = append(out, existing)
		}
	}
	return out
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneValue(v AnswerValue) AnswerValue {
	v.Order = slices.Clone(v.Order)
	return v
}
