package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/scoreboard/config"
)

type recordingBackend struct {
	published map[string][]byte
	handler   Handler
	listened  []string
	closed    bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	if b.published == nil {
		b.published = make(map[string][]byte)
	}
	b.published[channel] = data
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, _ string, handler Handler) error {
	b.handler = handler
	return handler(ctx, Message{ID: "m", Data: []byte("payload")})
}

func (b *recordingBackend) Listen(ctx context.Context, channel string, handler Handler) error {
	b.listened = append(b.listened, channel)
	return handler(ctx, Message{ID: "l", Data: []byte("update")})
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQDelegatesToBackend(t *testing.T) {
	backend := &recordingBackend{}
	queue := New(backend)

	id, err := queue.Publish(context.Background(), "verdicts", []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, []byte("x"), backend.published["verdicts"])

	var got Message
	err = queue.Subscribe(context.Background(), "verdicts", func(_ context.Context, msg Message) error {
		got = msg
		return errors.New("nack")
	})
	assert.EqualError(t, err, "nack")
	assert.Equal(t, "payload", string(got.Data))

	err = queue.Listen(context.Background(), "standings.updated", func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"standings.updated"}, backend.listened)
	assert.Equal(t, "update", string(got.Data))

	require.NoError(t, queue.Close())
	assert.True(t, backend.closed)
}

func TestOpenDisabledBackend(t *testing.T) {
	queue, err := Open(context.Background(), config.MQConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, queue)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{"contest_id": int32(4), "source": []byte("judge"), "kind": "verdict"})
	assert.Equal(t, map[string]string{"contest_id": "4", "source": "judge", "kind": "verdict"}, attrs)
	assert.Nil(t, headersToAttributes(nil))
}

func TestNATSHeaderToAttributes(t *testing.T) {
	header := nats.Header{}
	header.Set(natsMsgIDHeader, "abc")
	header.Set("contest_id", "4")

	assert.Equal(t, map[string]string{"contest_id": "4"}, natsHeaderToAttributes(header))
}
