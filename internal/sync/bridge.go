package sync

import (
	"context"

	"go.uber.org/zap"
)

// Mutator is the set of portal write endpoints for notifications.
type Mutator interface {
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

// Invalidator receives the post-mutation signal. *Engine implements it.
type Invalidator interface {
	Invalidate()
}

// Bridge wraps the portal write endpoints so that every successful write
// invalidates the synchronized notification state exactly once. Failed
// writes are returned unmodified and do not invalidate; the bridge never
// retries.
type Bridge struct {
	mutator Mutator
	target  Invalidator
	log     *zap.Logger
}

// NewBridge creates a Bridge that writes through m and invalidates target.
func NewBridge(m Mutator, target Invalidator, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{mutator: m, target: target, log: log}
}

// MarkRead marks one notification as read.
func (b *Bridge) MarkRead(ctx context.Context, id string) error {
	return b.run("mark_read", func() error {
		return b.mutator.MarkRead(ctx, id)
	}, zap.String("notification_id", id))
}

// MarkAllRead marks every notification of the user as read.
func (b *Bridge) MarkAllRead(ctx context.Context) error {
	return b.run("mark_all_read", func() error {
		return b.mutator.MarkAllRead(ctx)
	})
}

// Delete removes one notification.
func (b *Bridge) Delete(ctx context.Context, id string) error {
	return b.run("delete", func() error {
		return b.mutator.Delete(ctx, id)
	}, zap.String("notification_id", id))
}

// DeleteMany removes the given notifications in one call. An empty set is
// a no-op that neither calls the portal nor invalidates.
func (b *Bridge) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return b.run("delete_many", func() error {
		return b.mutator.DeleteMany(ctx, ids)
	}, zap.Int("count", len(ids)))
}

func (b *Bridge) run(op string, write func() error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op))

	if err := write(); err != nil {
		b.log.Warn("notification mutation failed", append(fields, zap.Error(err))...)
		return err
	}

	b.log.Debug("notification mutation succeeded", fields...)
	b.target.Invalidate()
	return nil
}
