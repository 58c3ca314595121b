package logvault

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/dm112-tadbox/log-vault/queue"
)

func TestNotificationsTransport_PushesEventsToIngestionQueue(t *testing.T) {
	store := queue.NewMemoryStore()

	transport, err := NewNotificationsTransport(NotificationsTransportOptions{
		Store:     store,
		QueueName: "app-ingest",
	})
	require.NoError(t, err)

	logger := NewLogger(LoggerOptions{
		Meta:       Meta{"project": "demo"},
		Transports: []Transport{transport},
	})
	logger.Error("something broke")

	claimed, err := store.Claim(context.Background(), "app-ingest")
	require.NoError(t, err)

	var event LogEvent
	require.NoError(t, json.Unmarshal(claimed.Payload, &event))
	assert.Equal(t, LevelError, event.Level)
	assert.Equal(t, "something broke", event.Message)
	assert.Equal(t, Meta{"project": "demo"}, event.Meta)
}

func TestNotificationsTransport_RequiresStore(t *testing.T) {
	_, err := NewNotificationsTransport(NotificationsTransportOptions{})
	assert.Error(t, err)
}

func TestNotificationsTransport_DefaultQueueName(t *testing.T) {
	transport, err := NewNotificationsTransport(NotificationsTransportOptions{
		Store: queue.NewMemoryStore(),
	})
	require.NoError(t, err)
	assert.Equal(t, ProjectName(), transport.QueueName())
	assert.NotEmpty(t, transport.QueueName())
}

func TestNotificationsTransport_SurfacesEnqueueFailure(t *testing.T) {
	store := queue.NewMemoryStore()
	transport, err := NewNotificationsTransport(NotificationsTransportOptions{
		Store:     store,
		QueueName: "app-ingest",
		Strategy:  retry.Strategy{Attempts: 1, Delay: time.Millisecond, Backoff: 1},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = transport.Log(context.Background(), NewEvent(LevelError, "boom", nil))
	assert.Error(t, err)
}
