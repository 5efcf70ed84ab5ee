package buffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports/mocks"
)

func TestJournal_FlushWritesInsertsAndDeletes(t *testing.T) {
	ctx := context.Background()
	store, journal, persistence := newTestStore(t)

	for i := int64(1); i <= 3; i++ {
		store.Append(testMessage(testChatID, i, "hello"))
	}

	require.NoError(t, journal.Flush(ctx))
	assert.Len(t, persistence.Messages(), 3)

	store.Drain(testChatID, 5, 0)

	inserts, deletes := journal.Pending()
	assert.Zero(t, inserts)
	assert.Equal(t, 1, deletes)

	require.NoError(t, journal.Flush(ctx))

	stored := persistence.Messages()
	assert.Equal(t, []int64{2, 3}, messageIDs(stored))
}

func TestJournal_DrainBeforeFlushCancelsInsert(t *testing.T) {
	ctx := context.Background()
	store, journal, persistence := newTestStore(t)

	store.Append(testMessage(testChatID, 1, "short lived"))
	store.Drain(testChatID, 0, 0)

	inserts, deletes := journal.Pending()
	assert.Zero(t, inserts)
	assert.Zero(t, deletes)

	require.NoError(t, journal.Flush(ctx))

	insertCalls, deleteCalls := persistence.Calls()
	assert.Zero(t, insertCalls)
	assert.Zero(t, deleteCalls)
}

func TestJournal_FailedFlushIsRetried(t *testing.T) {
	ctx := context.Background()
	store, journal, persistence := newTestStore(t)

	persistence.InsertFn = func(context.Context, []domain.BufferedMessage) error {
		return mocks.ErrStoreDown
	}

	store.Append(testMessage(testChatID, 1, "one"))
	store.Append(testMessage(testChatID, 2, "two"))

	err := journal.Flush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, mocks.ErrStoreDown)

	inserts, _ := journal.Pending()
	assert.Equal(t, 2, inserts, "failed batch must stay queued")
	assert.Empty(t, persistence.Messages())

	persistence.InsertFn = nil

	require.NoError(t, journal.Flush(ctx))
	assert.Equal(t, []int64{1, 2}, messageIDs(persistence.Messages()))

	inserts, deletes := journal.Pending()
	assert.Zero(t, inserts)
	assert.Zero(t, deletes)
}

func TestJournal_DrainDuringFailedFlushCancelsPair(t *testing.T) {
	ctx := context.Background()
	store, journal, persistence := newTestStore(t)

	store.Append(testMessage(testChatID, 1, "one"))
	store.Append(testMessage(testChatID, 2, "two"))

	// The drain lands while the insert batch is in flight and then fails.
	persistence.InsertFn = func(context.Context, []domain.BufferedMessage) error {
		store.Drain(testChatID, 3, 0)
		return mocks.ErrStoreDown
	}

	require.Error(t, journal.Flush(ctx))

	inserts, deletes := journal.Pending()
	assert.Equal(t, 1, inserts)
	assert.Zero(t, deletes)

	persistence.InsertFn = nil

	require.NoError(t, journal.Flush(ctx))
	assert.Equal(t, []int64{2}, messageIDs(persistence.Messages()))
}

func TestJournal_FailedDeleteIsRetried(t *testing.T) {
	ctx := context.Background()
	store, journal, persistence := newTestStore(t)

	store.Append(testMessage(testChatID, 1, "one"))
	require.NoError(t, journal.Flush(ctx))

	persistence.DeleteFn = func(context.Context, []string) error {
		return mocks.ErrStoreDown
	}

	store.Drain(testChatID, 0, 0)
	require.Error(t, journal.Flush(ctx))

	_, deletes := journal.Pending()
	assert.Equal(t, 1, deletes)

	persistence.DeleteFn = nil

	require.NoError(t, journal.Flush(ctx))
	assert.Empty(t, persistence.Messages())
}

func TestJournal_EvictQueuesDeletes(t *testing.T) {
	ctx := context.Background()
	store, journal, persistence := newTestStore(t)

	store.Append(testMessage(testChatID, 1, "old"))
	store.Append(testMessage(testChatID, 5, "new"))
	require.NoError(t, journal.Flush(ctx))

	store.Evict(testBase.Add(2 * time.Second))
	require.NoError(t, journal.Flush(ctx))

	assert.Equal(t, []int64{5}, messageIDs(persistence.Messages()))
}
