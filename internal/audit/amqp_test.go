package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-dispatch/internal/audit"
)

type publishCall struct {
	exchange, key string
	msg           amqp.Publishing
}

// fakeChannel records PublishWithContext calls in place of *amqp.Channel.
type fakeChannel struct {
	calls []publishCall
	err   error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.calls = append(f.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return f.err
}

func TestAMQPSink_Write(t *testing.T) {
	ch := &fakeChannel{}
	sink := audit.NewAMQPSink(ch, "fleet.audit")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := sink.Write(context.Background(), audit.Event{
		Action:     audit.ActionTripCreated,
		ActorID:    "user-1",
		Metadata:   map[string]any{"trip_id": "t1"},
		OccurredAt: at,
	})

	require.NoError(t, err)
	require.Len(t, ch.calls, 1)
	call := ch.calls[0]
	assert.Equal(t, "fleet.audit", call.exchange)
	assert.Equal(t, "audit.trip_created", call.key)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, amqp.Persistent, call.msg.DeliveryMode)
	assert.Equal(t, at, call.msg.Timestamp)

	var body map[string]any
	require.NoError(t, json.Unmarshal(call.msg.Body, &body))
	assert.Equal(t, "TRIP_CREATED", body["action"])
	assert.Equal(t, "user-1", body["actor_id"])
}

func TestAMQPSink_WritePublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	sink := audit.NewAMQPSink(ch, "fleet.audit")

	err := sink.Write(context.Background(), audit.Event{Action: audit.ActionTripCancelled})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	assert.NoError(t, sink.Close(), "sink without owned connection closes cleanly")
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "audit.trip_in_progress", audit.RoutingKey("TRIP_IN_PROGRESS"))
}
