package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

var _ app.SessionRepository = (*SessionRepository)(nil)

const activeSetKey = "quiz:sessions:active"

// insertScript claims the join code and writes the session in one step.
// KEYS: code, session, active set. ARGV: id, document.
var insertScript = redis.NewScript(`
if not redis.call("SET", KEYS[1], ARGV[1], "NX") then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2])
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`)

// saveScript overwrites an existing session; once it is no longer active the join code
// (if still ours) and the active-set entry are dropped and the document gets a retention TTL.
// KEYS: session, code, active set. ARGV: id, document, status, retention ms.
var saveScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2])
if ARGV[3] == "active" then
	redis.call("SADD", KEYS[3], ARGV[1])
	return 1
end
redis.call("SREM", KEYS[3], ARGV[1])
if redis.call("GET", KEYS[2]) == ARGV[1] then
	redis.call("DEL", KEYS[2])
end
if tonumber(ARGV[4]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[4])
end
return 1
`)

// SessionRepository stores sessions as JSON documents so any instance can serve them.
//
//	quiz:session:{id}     session document
//	quiz:code:{code}      id of the active session holding the code
//	quiz:sessions:active  set of active session ids
type SessionRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewSessionRepository keeps finished sessions for retention (zero keeps them forever).
func NewSessionRepository(client *redis.Client, retention time.Duration) *SessionRepository {
	return &SessionRepository{client: client, retention: retention}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis get session %s: %w", id, err)
	}
	return decodeSession(raw)
}

func (r *SessionRepository) GetByCode(ctx context.Context, code string) (domain.Session, error) {
	id, err := r.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis get code %s: %w", code, err)
	}
	s, err := r.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if s.Status != domain.StatusActive {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRepository) Insert(ctx context.Context, s domain.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	ok, err := insertScript.Run(ctx, r.client,
		[]string{codeKey(s.Code), sessionKey(s.ID), activeSetKey},
		s.ID, doc,
	).Int()
	if err != nil {
		return fmt.Errorf("redis insert session %s: %w", s.ID, err)
	}
	if ok == 0 {
		return domain.ErrCodeTaken
	}
	return nil
}

func (r *SessionRepository) Save(ctx context.Context, s domain.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	ok, err := saveScript.Run(ctx, r.client,
		[]string{sessionKey(s.ID), codeKey(s.Code), activeSetKey},
		s.ID, doc, string(s.Status), r.retention.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis save session %s: %w", s.ID, err)
	}
	if ok == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]domain.Session, error) {
	ids, err := r.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list active: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	docs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load active: %w", err)
	}

	out := make([]domain.Session, 0, len(docs))
	for _, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			continue
		}
		s, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		if s.Status == domain.StatusActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func decodeSession(raw []byte) (domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func sessionKey(id string) string {
	return "quiz:session:" + id
}

func codeKey(code string) string {
	return "quiz:code:" + code
}
