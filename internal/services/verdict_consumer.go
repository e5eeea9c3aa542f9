package services

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/internal/metrics"
	"github.com/jjudge-oj/scoreboard/internal/mq"
	"github.com/jjudge-oj/scoreboard/internal/store"
	"github.com/jjudge-oj/scoreboard/types"
)

// Subscriber is the part of mq.MQ the consumer needs.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// VerdictRecorder applies a verdict event.
type VerdictRecorder interface {
	RecordVerdict(ctx context.Context, event types.VerdictEvent) (types.Submission, error)
}

// VerdictConsumer feeds verdict events from the message queue into the
// submission service.
type VerdictConsumer struct {
	subscriber Subscriber
	channel    string
	recorder   VerdictRecorder
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewVerdictConsumer(subscriber Subscriber, channel string, recorder VerdictRecorder, logger *zap.Logger, m *metrics.Metrics) *VerdictConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerdictConsumer{
		subscriber: subscriber,
		channel:    channel,
		recorder:   recorder,
		logger:     logger,
		metrics:    m,
	}
}

// Run consumes until ctx is cancelled.
func (c *VerdictConsumer) Run(ctx context.Context) error {
	c.logger.Info("consuming verdict events", zap.String("channel", c.channel))
	err := c.subscriber.Subscribe(ctx, c.channel, c.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle applies one message. Malformed and duplicate events are
// acknowledged; storage failures are returned so the broker redelivers.
func (c *VerdictConsumer) Handle(ctx context.Context, msg mq.Message) error {
	var event types.VerdictEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil || event.SubmissionID <= 0 {
		c.metrics.VerdictEvent(metrics.EventMalformed)
		c.logger.Warn("dropping malformed verdict event", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	_, err := c.recorder.RecordVerdict(ctx, event)
	switch {
	case err == nil:
		c.metrics.VerdictEvent(metrics.EventApplied)
		return nil
	case errors.Is(err, store.ErrAlreadyJudged):
		c.metrics.VerdictEvent(metrics.EventDuplicate)
		return nil
	case errors.Is(err, ErrInvalidVerdict), errors.Is(err, ErrSubmissionNotFound):
		c.metrics.VerdictEvent(metrics.EventMalformed)
		c.logger.Warn("dropping verdict event",
			zap.String("message_id", msg.ID),
			zap.Int64("submission_id", event.SubmissionID),
			zap.Error(err),
		)
		return nil
	default:
		c.metrics.VerdictEvent(metrics.EventFailed)
		c.logger.Error("record verdict",
			zap.String("message_id", msg.ID),
			zap.Int64("submission_id", event.SubmissionID),
			zap.Error(err),
		)
		return err
	}
}
