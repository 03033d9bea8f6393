package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

var _ app.SessionRepository = (*SessionRepository)(nil)

// SessionRepository keeps sessions in process memory. Stored values are deep copies.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	codes    map[string]string // join code -> id of the active session holding it
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]domain.Session),
		codes:    make(map[string]string),
	}
}

func (r *SessionRepository) Get(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) GetByCode(_ context.Context, code string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.codes[code]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	s, ok := r.sessions[id]
	if !ok || s.Status != domain.StatusActive {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) Insert(_ context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.codes[s.Code]; taken {
		return domain.ErrCodeTaken
	}
	r.sessions[s.ID] = s.Clone()
	if s.Status == domain.StatusActive {
		r.codes[s.Code] = s.ID
	}
	return nil
}

func (r *SessionRepository) Save(_ context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	r.sessions[s.ID] = s.Clone()
	if s.Status != domain.StatusActive && r.codes[s.Code] == s.ID {
		delete(r.codes, s.Code)
	}
	return nil
}

func (r *SessionRepository) ListActive(_ context.Context) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Session, 0, len(r.codes))
	for _, s := range r.sessions {
		if s.Status == domain.StatusActive {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}
