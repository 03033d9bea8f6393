package memory

import (
	"context"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

var _ app.ResultArchiver = (*ResultArchive)(nil)

// ResultArchive keeps archived session summaries in memory, first write wins.
type ResultArchive struct {
	mu        sync.Mutex
	summaries map[string]domain.Summary
	writes    int
}

func NewResultArchive() *ResultArchive {
	return &ResultArchive{summaries: make(map[string]domain.Summary)}
}

func (a *ResultArchive) Archive(_ context.Context, summary domain.Summary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.writes++
	if _, ok := a.summaries[summary.SessionID]; ok {
		return nil
	}
	a.summaries[summary.SessionID] = summary
	return nil
}

// Summary returns the archived summary for a session.
func (a *ResultArchive) Summary(sessionID string) (domain.Summary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.summaries[sessionID]
	return s, ok
}

// Writes counts Archive calls, duplicates included.
func (a *ResultArchive) Writes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}
