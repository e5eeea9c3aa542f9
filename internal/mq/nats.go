package mq

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jjudge-oj/scoreboard/config"
	"github.com/nats-io/nats.go"
)

const (
	natsMsgIDHeader   = "Nats-Msg-Id"
	natsChannelBuffer = 256
)

// NATSClient publishes and consumes over core NATS subjects. Delivery is
// at-most-once: a handler error is dropped rather than redelivered.
type NATSClient struct {
	conn       *nats.Conn
	queueGroup string
}

// NewNATSClient connects to the configured NATS server.
func NewNATSClient(cfg config.NATSConfig) (*NATSClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("nats url is required")
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("scoreboard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &NATSClient{conn: conn, queueGroup: cfg.QueueGroup}, nil
}

// Publish sends a message to the named subject.
func (n *NATSClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("nats channel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := uuid.NewString()
	msg := nats.NewMsg(channel)
	msg.Data = data
	msg.Header.Set(natsMsgIDHeader, messageID)
	for key, value := range attrs {
		msg.Header.Set(key, value)
	}
	if err := n.conn.PublishMsg(msg); err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes messages from the named subject until ctx is done.
// Instances sharing a queue group split the subject's messages.
func (n *NATSClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return n.consume(ctx, channel, n.queueGroup, handler)
}

// Listen consumes every message on the subject, regardless of queue group.
func (n *NATSClient) Listen(ctx context.Context, channel string, handler Handler) error {
	return n.consume(ctx, channel, "", handler)
}

func (n *NATSClient) consume(ctx context.Context, channel, queueGroup string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("nats channel is required")
	}

	msgs := make(chan *nats.Msg, natsChannelBuffer)
	var (
		sub *nats.Subscription
		err error
	)
	if queueGroup != "" {
		sub, err = n.conn.ChanQueueSubscribe(channel, queueGroup, msgs)
	} else {
		sub, err = n.conn.ChanSubscribe(channel, msgs)
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("nats subscription closed")
			}
			_ = handler(ctx, Message{
				ID:         msg.Header.Get(natsMsgIDHeader),
				Data:       msg.Data,
				Attributes: natsHeaderToAttributes(msg.Header),
			})
		}
	}
}

// Close drains nothing and closes the connection.
func (n *NATSClient) Close() error {
	n.conn.Close()
	return nil
}

func natsHeaderToAttributes(header nats.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(header))
	for key := range header {
		if key == natsMsgIDHeader {
			continue
		}
		attrs[key] = header.Get(key)
	}
	return attrs
}
