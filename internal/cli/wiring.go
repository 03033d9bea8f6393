package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	"live-quiz-service/internal/infra/rabbitmq"
	redisinfra "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/metrics"
	transport "live-quiz-service/internal/transport/http"
)

// runtime is the wired service plus whatever must be closed on shutdown.
type runtime struct {
	service  *app.GameService
	hub      *transport.Hub
	registry *prometheus.Registry
	closers  []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func buildRuntime(ctx context.Context, cfg config.Config, log *logrus.Entry) (*runtime, error) {
	rt := &runtime{
		hub:      transport.NewHub(),
		registry: prometheus.NewRegistry(),
	}
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(rt.registry)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var archiver app.ResultArchiver = memory.NewResultArchive()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		loader = postgres.NewQuizLoader(pool)

		db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL))), pgdialect.New())
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		archiver = postgres.NewResultArchiver(db)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	lockTimeout := config.TTLDuration(cfg.Game.LockTimeout, app.DefaultLockTimeout)
	var (
		quizzes      app.QuizRepository
		repo         app.SessionRepository
		locker       app.Locker
		mutateBudget time.Duration // zero leaves in-process mutations unbounded
	)
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		repo = redisinfra.NewSessionRepository(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
		lease := config.TTLDuration(cfg.Game.LockLease, redisinfra.DefaultLockLease)
		locker = redisinfra.NewLocker(redisClient, lease)
		mutateBudget = lease / 2
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
		repo = memory.NewSessionRepository()
		locker = memory.NewLocker()
	}

	notifiers := app.Notifiers{rt.hub}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = publisher.Close() })
		notifiers = append(notifiers, publisher)
	}

	store := app.NewSessionStore(repo, locker,
		app.WithLockTimeout(lockTimeout),
		app.WithMutateBudget(mutateBudget),
		app.WithStoreMetrics(m),
		app.WithStoreLogger(log),
	)
	rt.service = app.NewGameService(store, quizzes, game.NewEngine(cfg.Game.MaxPlayers),
		app.WithNotifier(notifiers),
		app.WithArchiver(archiver),
		app.WithStaleTimeout(config.TTLDuration(cfg.Game.StaleTimeout, app.DefaultStaleTimeout)),
		app.WithMetrics(m),
		app.WithLogger(log),
	)
	return rt, nil
}

// sampleQuizzes is served when no Postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
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
					TimeLimitSec: 20,
				},
				{
					ID:           "q2",
					Prompt:       "Water boils at 100°C at sea level.",
					Kind:         domain.KindBoolean,
					Correct:      []domain.AnswerValue{domain.BoolValue(true)},
					TimeLimitSec: 10,
					Points:       500,
				},
				{
					ID:           "q3",
					Prompt:       "In which year did the Berlin Wall fall?",
					Kind:         domain.KindRange,
					Correct:      []domain.AnswerValue{domain.NumberValue(1989)},
					Tolerance:    1,
					TimeLimitSec: 20,
				},
				{
					ID:           "q4",
					Prompt:       "Name the largest planet in the solar system.",
					Kind:         domain.KindText,
					TimeLimitSec: 30,
				},
			},
		},
	}
}
