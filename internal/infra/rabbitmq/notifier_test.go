package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type fakeChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.key = key
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestNotifyPublishesJSONEvent(t *testing.T) {
	ch := &fakeChannel{}
	n := &Notifier{queue: DefaultQueue, ch: ch}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := n.Notify(context.Background(), app.Event{
		Type:      app.EventStageAdvanced,
		SessionID: "s1",
		Code:      "123456",
		Status:    domain.StatusActive,
		Stage:     domain.PodiumStage(at),
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, DefaultQueue, ch.key)

	msg := ch.msgs[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, string(app.EventStageAdvanced), msg.Type)
	assert.Equal(t, "s1", msg.Headers["session_id"])

	var decoded app.Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, domain.StagePodium, decoded.Stage.Kind)
	assert.Equal(t, "123456", decoded.Code)
}

func TestNotifyWrapsPublishError(t *testing.T) {
	n := &Notifier{queue: DefaultQueue, ch: &fakeChannel{err: amqp.ErrClosed}}
	err := n.Notify(context.Background(), app.Event{Type: app.EventSessionEnded})
	assert.True(t, errors.Is(err, amqp.ErrClosed))
	assert.NoError(t, n.Close())
}
