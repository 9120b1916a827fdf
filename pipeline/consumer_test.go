package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/platemate/server/cache"
	"github.com/platemate/server/config"
	"github.com/platemate/server/friends"
	"github.com/platemate/server/model"
	"github.com/platemate/server/pipeline"
	"github.com/platemate/server/places"
	"github.com/platemate/server/ratings"
	"github.com/platemate/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopPlaces struct{}

func (noopPlaces) Details(_ context.Context, id string) (*places.Details, error) {
	return &places.Details{GoogleID: id, DisplayName: id, Address: id}, nil
}

func (noopPlaces) Search(context.Context, string) ([]places.Details, error) { return nil, nil }

func setupPipeline(t *testing.T) (*gorm.DB, cache.PubSub, *friends.Service, *ratings.Service, *pipeline.Consumer) {
	db := testutil.SetupTestDB(t)
	ps, err := cache.NewPubSub(config.CacheConfig{})
	require.NoError(t, err)

	fr := friends.NewService(db, zap.NewNop())
	rt := ratings.NewService(db, fr, noopPlaces{}, zap.NewNop())
	consumer := pipeline.NewConsumer(db, ps, fr, rt, zap.NewNop())
	require.NoError(t, consumer.Start(context.Background()))
	t.Cleanup(consumer.Stop)
	return db, ps, fr, rt, consumer
}

func publishDeleted(t *testing.T, ps cache.PubSub, u model.User) {
	payload, err := json.Marshal(pipeline.UserDeletedEvent{UserID: u.ID, Handle: u.Handle})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(context.Background(), pipeline.ChannelUserDeleted, string(payload)))
}

func userExists(db *gorm.DB, id int64) bool {
	var count int64
	db.Model(&model.User{}).Where("id = ?", id).Count(&count)
	return count > 0
}

func TestConsumer_PurgesUser(t *testing.T) {
	db, ps, fr, rt, _ := setupPipeline(t)

	doomed := testutil.CreateUser(t, db, "doomed", "doomed@example.com", "Doomed", "User")
	friend := testutil.CreateUser(t, db, "friend", "friend@example.com", "Friendly", "User")

	require.NoError(t, fr.Request(doomed, friend))
	require.NoError(t, fr.Accept(friend, doomed))
	_, err := rt.Create(context.Background(), doomed, ratings.CreateInput{
		GoogleID: "g-1", Food: 3, Price: 3, Vibe: 3,
	})
	require.NoError(t, err)
	_, err = rt.Create(context.Background(), friend, ratings.CreateInput{
		GoogleID: "g-1", Food: 4, Price: 4, Vibe: 4,
	})
	require.NoError(t, err)

	publishDeleted(t, ps, doomed)

	require.Eventually(t, func() bool {
		return !userExists(db, doomed.ID)
	}, 2*time.Second, 10*time.Millisecond)

	var friendshipCount int64
	require.NoError(t, db.Model(&model.Friendship{}).Count(&friendshipCount).Error)
	assert.Zero(t, friendshipCount)

	var remaining []model.Rating
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, friend.ID, remaining[0].UserID)

	assert.True(t, userExists(db, friend.ID))
}

func TestConsumer_MalformedEventSkipped(t *testing.T) {
	db, ps, _, _, _ := setupPipeline(t)

	survivor := testutil.CreateUser(t, db, "survivor", "s@example.com", "Sur", "Vivor")

	require.NoError(t, ps.Publish(context.Background(), pipeline.ChannelUserDeleted, "not json"))
	publishDeleted(t, ps, survivor)

	require.Eventually(t, func() bool {
		return !userExists(db, survivor.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_StopWaits(t *testing.T) {
	_, _, _, _, consumer := setupPipeline(t)
	done := make(chan struct{})
	go func() {
		consumer.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestConsumer_StopWithoutStart(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ps, err := cache.NewPubSub(config.CacheConfig{})
	require.NoError(t, err)

	fr := friends.NewService(db, zap.NewNop())
	rt := ratings.NewService(db, fr, noopPlaces{}, zap.NewNop())
	consumer := pipeline.NewConsumer(db, ps, fr, rt, zap.NewNop())

	done := make(chan struct{})
	go func() {
		consumer.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked for a consumer that never started")
	}
}
