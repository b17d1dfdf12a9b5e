package database

import (
	"context"
	"testing"

	"boomerbox-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) *HistoryDB {
	t.Helper()
	h, err := InitHistoryDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistoryRecordAndCount(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)

	for i, ts := range []int64{100, 300, 200} {
		require.NoError(t, h.Record(ctx, models.ShowcasePost{
			GuildID:           "1",
			SourceChannelID:   "10",
			SourceMessageID:   string(rune('a' + i)),
			AuthorID:          "u",
			ShowcaseMessageID: "s",
			Attachments:       i,
			Timestamp:         ts,
		}))
	}
	require.NoError(t, h.Record(ctx, models.ShowcasePost{GuildID: "2", Timestamp: 999}))

	count, err := h.CountForGuild(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	latest, err := h.Latest(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(300), latest.Timestamp)
	assert.Equal(t, "b", latest.SourceMessageID)
}

func TestHistoryLatestEmpty(t *testing.T) {
	h := newTestHistory(t)

	latest, err := h.Latest(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, latest)

	count, err := h.CountForGuild(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, count)
}
