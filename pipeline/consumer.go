package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/platemate/server/cache"
	"github.com/platemate/server/db"
	"github.com/platemate/server/friends"
	"github.com/platemate/server/model"
	"github.com/platemate/server/ratings"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChannelUserDeleted carries account-deletion events. Publishers send a
// UserDeletedEvent; the consumer purges everything the user owns.
const ChannelUserDeleted = "users.deleted"

// UserDeletedEvent is the payload published when an account is removed.
type UserDeletedEvent struct {
	UserID int64  `json:"user_id"`
	Handle string `json:"handle"`
}

// Consumer subscribes to user lifecycle events and runs the purge sequence:
// ratings first, then friendships, then the user row itself.
type Consumer struct {
	db      *gorm.DB
	pubsub  cache.PubSub
	friends *friends.Service
	ratings *ratings.Service
	logger  *zap.Logger

	cancel   func()
	done     chan struct{}
	stopOnce sync.Once
}

func NewConsumer(gdb *gorm.DB, ps cache.PubSub, fr *friends.Service, rt *ratings.Service, logger *zap.Logger) *Consumer {
	return &Consumer{
		db:      gdb,
		pubsub:  ps,
		friends: fr,
		ratings: rt,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start subscribes and begins consuming until Stop is called or the context
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	ch, cancel, err := c.pubsub.Subscribe(ctx, ChannelUserDeleted)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelUserDeleted, err)
	}
	c.cancel = cancel

	go func() {
		defer close(c.done)
		for msg := range ch {
			if err := c.handle(msg); err != nil {
				c.logger.Error("pipeline event failed",
					zap.String("channel", msg.Channel),
					zap.String("payload", msg.Payload),
					zap.Error(err))
			}
		}
	}()
	return nil
}

// Stop unsubscribes and waits for in-flight event handling to finish. A
// consumer that was never started stops immediately.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.stopOnce.Do(c.cancel)
	<-c.done
}

func (c *Consumer) handle(msg *cache.Message) error {
	var evt UserDeletedEvent
	if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if evt.UserID <= 0 {
		return fmt.Errorf("event has no user id: %s", msg.Payload)
	}
	return c.purgeUser(evt)
}

func (c *Consumer) purgeUser(evt UserDeletedEvent) error {
	if err := c.ratings.DeleteAllForUser(evt.UserID); err != nil {
		return fmt.Errorf("delete ratings of user %d: %w", evt.UserID, err)
	}
	if err := c.friends.DeleteAllForUser(model.User{ID: evt.UserID}); err != nil {
		return fmt.Errorf("delete friendships of user %d: %w", evt.UserID, err)
	}
	err := db.WithRetry(c.db, func(tx *gorm.DB) error {
		return tx.Delete(&model.User{}, evt.UserID).Error
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", evt.UserID, err)
	}
	c.logger.Info("user purged",
		zap.Int64("user_id", evt.UserID),
		zap.String("handle", evt.Handle))
	return nil
}
