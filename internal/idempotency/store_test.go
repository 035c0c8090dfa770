package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maisoncleo/atelier-tracker/internal/aws/dynamotest"
)

const table = "sync_jobs"

func newTestStore(t *testing.T) (*Store, *dynamotest.Fake) {
	t.Helper()
	db := dynamotest.New()
	db.CreateTable(table, "idempotency_key", "")
	s := NewStore(db, table, 48*time.Hour)
	s.nowFunc = func() time.Time { return time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC) }
	return s, db
}

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateIfNotExists(ctx, "k1", "sync")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateIfNotExists(ctx, "k1", "sync")
	require.NoError(t, err)
	assert.False(t, created, "duplicate create must report the existing key")

	rec, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, "sync", rec.JobType)
	assert.Equal(t, time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC).Unix(), rec.ExpiresAt)
	assert.False(t, rec.Finished())

	require.NoError(t, s.MarkFailed(ctx, "k1", "woocommerce unreachable"))
	rec, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "woocommerce unreachable", rec.Note)

	require.NoError(t, s.Begin(ctx, "k1", 2))
	require.NoError(t, s.MarkDone(ctx, "k1", `{"ordersCreated":3}`))
	rec, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, `{"ordersCreated":3}`, rec.Result)
	assert.Empty(t, rec.Note, "a successful run clears the failure note")
	assert.True(t, rec.Finished())
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore(t)
	rec, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestTransitions_RequireExistingKey(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	err := s.MarkDone(ctx, "ghost", "{}")
	assert.ErrorIs(t, err, ErrUnknownKey)
	err = s.MarkFailed(ctx, "ghost", "x")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Zero(t, db.Count(table), "transitions never create records")
}

func TestCreateIfNotExists_PropagatesStoreErrors(t *testing.T) {
	s, db := newTestStore(t)
	db.FailNext("PutItem", table, errors.New("throttled"))

	created, err := s.CreateIfNotExists(context.Background(), "k1", "sync")
	require.Error(t, err)
	assert.False(t, created)
	assert.Contains(t, err.Error(), "throttled")
}
