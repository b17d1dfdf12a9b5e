package database

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"boomerbox-bot/models"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GuildStore {
	t.Helper()
	return LoadGuildStore(filepath.Join(t.TempDir(), "guild_configs.json"), zerolog.Nop())
}

func TestGetReturnsDefaultsForUnknownGuild(t *testing.T) {
	gs := newTestStore(t)

	for _, id := range []int64{0, 1, 987654321098765432} {
		assert.Equal(t, models.DefaultGuildConfig(), gs.Get(id))
	}
	assert.Len(t, gs.All(), 3)
}

func TestGetReturnsCopy(t *testing.T) {
	gs := newTestStore(t)

	cfg := gs.Get(42)
	cfg.DeleteAfterShowcase = false

	assert.True(t, gs.Get(42).DeleteAfterShowcase)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "guild_configs.json")
	gs := LoadGuildStore(path, zerolog.Nop())

	want := map[int64]models.GuildConfig{
		111: {
			SubmissionChannelID: 1001,
			ShowcaseChannelID:   1002,
			ShowcaseTime:        models.ShowcaseTime{Hour: 9, Minute: 30},
			LastShowcaseDate:    "2026-10-13",
			DeleteAfterShowcase: true,
		},
		222: {
			SubmissionChannelID: 2001,
			ShowcaseTime:        models.ShowcaseTime{Hour: 23, Minute: 59},
		},
		333: models.DefaultGuildConfig(),
	}
	for id, cfg := range want {
		require.NoError(t, gs.Update(id, func(c *models.GuildConfig) { *c = cfg }))
	}

	reloaded := LoadGuildStore(path, zerolog.Nop())
	got := make(map[int64]models.GuildConfig)
	for _, e := range reloaded.All() {
		got[e.GuildID] = e.Config
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	gs := LoadGuildStore(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())
	assert.Empty(t, gs.All())
}

func TestLoadMalformedFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guild_configs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	gs := LoadGuildStore(path, zerolog.Nop())
	assert.Empty(t, gs.All())
}

func TestLoadNormalizesKeysAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guild_configs.json")
	legacy := `{
	  "123": {"submission_channel_id": 5, "showcase_channel_id": 6, "showcase_time": "18:45"},
	  "not-a-guild": {"showcase_time": "01:00"},
	  "456": {"showcase_time": "bogus"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	gs := LoadGuildStore(path, zerolog.Nop())
	entries := gs.All()

	require.Len(t, entries, 2)
	assert.Equal(t, int64(123), entries[0].GuildID)
	assert.Equal(t, models.ShowcaseTime{Hour: 18, Minute: 45}, entries[0].Config.ShowcaseTime)
	assert.True(t, entries[0].Config.DeleteAfterShowcase, "missing field should keep default")
	assert.Equal(t, int64(456), entries[1].GuildID)
	assert.Equal(t, models.DefaultGuildConfig(), entries[1].Config)
}

func TestLoadKeepsEntryWithBadField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guild_configs.json")
	legacy := `{
	  "1": {"submission_channel_id": 11, "showcase_channel_id": 12, "showcase_time": "12:00", "delete_after_showcase": true},
	  "2": {"submission_channel_id": 21, "showcase_channel_id": 22, "showcase_time": "9:5", "last_showcase_date": "2026-03-13", "delete_after_showcase": false},
	  "3": {"submission_channel_id": 31, "showcase_channel_id": 32, "showcase_time": null},
	  "4": {"submission_channel_id": 41, "showcase_channel_id": 42, "showcase_time": "late", "delete_after_showcase": "yes"},
	  "5": null
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	gs := LoadGuildStore(path, zerolog.Nop())
	require.NoError(t, gs.Update(1, func(cfg *models.GuildConfig) { cfg.DeleteAfterShowcase = false }))

	reloaded := LoadGuildStore(path, zerolog.Nop())
	want := map[int64]models.GuildConfig{
		1: {SubmissionChannelID: 11, ShowcaseChannelID: 12, ShowcaseTime: models.ShowcaseTime{Hour: 12}},
		2: {
			SubmissionChannelID: 21,
			ShowcaseChannelID:   22,
			ShowcaseTime:        models.ShowcaseTime{Hour: 9, Minute: 5},
			LastShowcaseDate:    "2026-03-13",
		},
		3: {SubmissionChannelID: 31, ShowcaseChannelID: 32, ShowcaseTime: models.ShowcaseTime{Hour: 12}, DeleteAfterShowcase: true},
		4: {SubmissionChannelID: 41, ShowcaseChannelID: 42, ShowcaseTime: models.ShowcaseTime{Hour: 12}, DeleteAfterShowcase: true},
	}
	got := map[int64]models.GuildConfig{}
	for _, e := range reloaded.All() {
		got[e.GuildID] = e.Config
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reloaded guilds mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveFailureIsReportedAndKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	gs := LoadGuildStore(filepath.Join(blocker, "guild_configs.json"), zerolog.Nop())

	err := gs.Update(7, func(c *models.GuildConfig) { c.ShowcaseChannelID = 99 })

	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, models.Snowflake(99), gs.Get(7).ShowcaseChannelID)
}

func TestConcurrentUpdatesDoNotInterleave(t *testing.T) {
	gs := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = gs.Update(1, func(c *models.GuildConfig) { c.SubmissionChannelID++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, models.Snowflake(50), gs.Get(1).SubmissionChannelID)

	reloaded := LoadGuildStore(gs.Path(), zerolog.Nop())
	assert.Equal(t, models.Snowflake(50), reloaded.Get(1).SubmissionChannelID)
}
