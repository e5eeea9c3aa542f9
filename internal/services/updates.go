package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/internal/mq"
	"github.com/jjudge-oj/scoreboard/types"
)

// Publisher is the part of mq.MQ that sends updates.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Listener is the part of mq.MQ that receives every update.
type Listener interface {
	Listen(ctx context.Context, channel string, handler mq.Handler) error
}

// Notifier announces standings changes.
type Notifier interface {
	Notify(ctx context.Context, update types.StandingsUpdate) error
}

// UpdateNotifier publishes StandingsUpdate events tagged with this
// instance's origin.
type UpdateNotifier struct {
	publisher Publisher
	channel   string
	origin    string
	now       func() time.Time
}

func NewUpdateNotifier(publisher Publisher, channel, origin string) *UpdateNotifier {
	return &UpdateNotifier{publisher: publisher, channel: channel, origin: origin, now: time.Now}
}

// Notify publishes the update. Origin and OccurredAt are filled in when
// unset.
func (n *UpdateNotifier) Notify(ctx context.Context, update types.StandingsUpdate) error {
	if update.Origin == "" {
		update.Origin = n.origin
	}
	if update.OccurredAt.IsZero() {
		update.OccurredAt = n.now().UTC()
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	_, err = n.publisher.Publish(ctx, n.channel, data, map[string]string{
		"contest_id": strconv.Itoa(update.ContestID),
		"reason":     update.Reason,
	})
	return err
}

// UpdateListener drops this instance's cached standings when another
// instance announces a change.
type UpdateListener struct {
	listener    Listener
	channel     string
	origin      string
	invalidator Invalidator
	logger      *zap.Logger
}

func NewUpdateListener(listener Listener, channel, origin string, invalidator Invalidator, logger *zap.Logger) *UpdateListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateListener{
		listener:    listener,
		channel:     channel,
		origin:      origin,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Run listens until ctx is cancelled.
func (l *UpdateListener) Run(ctx context.Context) error {
	l.logger.Info("listening for standings updates", zap.String("channel", l.channel))
	err := l.listener.Listen(ctx, l.channel, l.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle invalidates the contest named by one update. Updates published by
// this instance were already applied locally and are skipped.
func (l *UpdateListener) Handle(ctx context.Context, msg mq.Message) error {
	var update types.StandingsUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil || update.ContestID <= 0 {
		l.logger.Warn("dropping malformed standings update", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	if update.Origin != "" && update.Origin == l.origin {
		return nil
	}

	if err := l.invalidator.Invalidate(ctx, update.ContestID); err != nil {
		l.logger.Warn("standings invalidation failed",
			zap.Int("contest_id", update.ContestID),
			zap.String("origin", update.Origin),
			zap.Error(err),
		)
		return err
	}
	l.logger.Debug("standings invalidated by update",
		zap.Int("contest_id", update.ContestID),
		zap.String("reason", update.Reason),
		zap.String("origin", update.Origin),
	)
	return nil
}
