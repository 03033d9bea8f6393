package game

import (
	"strings"
	"time"

	"live-quiz-service/internal/domain"
)

// NewHost builds the host participant for a fresh session.
func NewHost(id, nickname string, now time.Time) (domain.Participant, error) {
	nickname = strings.TrimSpace(nickname)
	if id == "" || nickname == "" {
		return domain.Participant{}, domain.ErrInvalidNickname
	}
	return domain.Participant{
		ID:        id,
		Nickname:  nickname,
		Role:      domain.RoleHost,
		JoinedAt:  now,
		UpdatedAt: now,
	}, nil
}

// Join adds a player, or brings back a player who left earlier with their score intact.
// Nicknames are compared exactly (case-sensitive) after trimming surrounding whitespace.
func (e *Engine) Join(s *domain.Session, playerID, nickname string, now time.Time) (domain.Participant, error) {
	if s.Status != domain.StatusActive {
		return domain.Participant{}, domain.ErrSessionClosed
	}
	switch s.CurrentStage.Kind {
	case domain.StagePodium, domain.StageQuit:
		return domain.Participant{}, domain.ErrSessionClosed
	}
	nickname = strings.TrimSpace(nickname)
	if playerID == "" || nickname == "" {
		return domain.Participant{}, domain.ErrInvalidNickname
	}

	idx := s.Participant(playerID)
	if idx >= 0 && (!s.Participants[idx].Left || s.Participants[idx].Role == domain.RoleHost) {
		return domain.Participant{}, domain.ErrAlreadyJoined
	}
	if idx < 0 && s.PlayerCount() >= e.maxPlayers {
		return domain.Participant{}, domain.ErrSessionFull
	}
	for i, p := range s.Participants {
		if i != idx && p.Nickname == nickname {
			return domain.Participant{}, domain.ErrNicknameTaken
		}
	}

	if idx >= 0 {
		p := &s.Participants[idx]
		p.Left = false
		p.Nickname = nickname
		p.UpdatedAt = now
		return *p, nil
	}
	p := domain.Participant{
		ID:        playerID,
		Nickname:  nickname,
		Role:      domain.RolePlayer,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	s.Participants = append(s.Participants, p)
	return p, nil
}

// Remove marks target as gone. Players may remove themselves; the host may remove any player.
func (e *Engine) Remove(s *domain.Session, actorID, targetID string, now time.Time) error {
	ti := s.Participant(targetID)
	if ti < 0 || s.Participants[ti].Left {
		return domain.ErrParticipantNotFound
	}
	ai := s.Participant(actorID)
	if ai < 0 {
		return domain.ErrForbiddenRemoval
	}
	actor, target := s.Participants[ai], s.Participants[ti]

	switch {
	case actorID == targetID && actor.Role == domain.RolePlayer:
	case actor.Role == domain.RoleHost && target.Role == domain.RolePlayer:
	default:
		return domain.ErrForbiddenRemoval
	}

	s.Participants[ti].Left = true
	s.Participants[ti].UpdatedAt = now
	return nil
}
