package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

var _ app.ResultArchiver = (*ResultArchiver)(nil)

type sessionResult struct {
	bun.BaseModel `bun:"table:session_results"`

	SessionID   string                    `bun:"session_id,pk"`
	Code        string                    `bun:"code,notnull"`
	QuizID      string                    `bun:"quiz_id,notnull"`
	Status      string                    `bun:"status,notnull"`
	PlayerCount int                       `bun:"player_count,notnull"`
	Questions   int                       `bun:"questions,notnull"`
	Leaderboard []domain.LeaderboardEntry `bun:"leaderboard,type:jsonb"`
	StartedAt   time.Time                 `bun:"started_at,notnull"`
	FinishedAt  time.Time                 `bun:"finished_at,notnull"`
}

// ResultArchiver writes one row per finished session. Repeated archives of the same session are ignored.
type ResultArchiver struct {
	db *bun.DB
}

func NewResultArchiver(db *bun.DB) *ResultArchiver {
	return &ResultArchiver{db: db}
}

func (a *ResultArchiver) Archive(ctx context.Context, s domain.Summary) error {
	row := sessionResult{
		SessionID:   s.SessionID,
		Code:        s.Code,
		QuizID:      s.QuizID,
		Status:      string(s.Status),
		PlayerCount: s.PlayerCount,
		Questions:   s.Questions,
		Leaderboard: s.Leaderboard.Entries,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
	if _, err := a.db.NewInsert().Model(&row).On("CONFLICT (session_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("archive session %s: %w", s.SessionID, err)
	}
	return nil
}

// Summary reads an archived session back.
func (a *ResultArchiver) Summary(ctx context.Context, sessionID string) (domain.Summary, error) {
	var row sessionResult
	err := a.db.NewSelect().Model(&row).Where("session_id = ?", sessionID).Scan(ctx)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("load archived session %s: %w", sessionID, err)
	}
	return domain.Summary{
		SessionID:   row.SessionID,
		Code:        row.Code,
		QuizID:      row.QuizID,
		Status:      domain.SessionStatus(row.Status),
		PlayerCount: row.PlayerCount,
		Questions:   row.Questions,
		Leaderboard: domain.Leaderboard{SessionID: row.SessionID, Entries: row.Leaderboard, UpdatedAt: row.FinishedAt},
		StartedAt:   row.StartedAt,
		FinishedAt:  row.FinishedAt,
	}, nil
}
