package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"boomerbox-bot/models"

	"github.com/rs/zerolog"
)

// ErrPersistence wraps every failure to read or write the guild config file.
var ErrPersistence = errors.New("guild config persistence failed")

// GuildEntry pairs a guild ID with a snapshot of its configuration.
type GuildEntry struct {
	GuildID int64
	Config  models.GuildConfig
}

// GuildStore keeps every guild's configuration in memory and writes it through to a JSON file.
type GuildStore struct {
	path   string
	mutex  sync.Mutex
	guilds map[int64]*models.GuildConfig
	log    zerolog.Logger
}

// LoadGuildStore reads the config file at path. A missing or malformed file yields an empty store.
func LoadGuildStore(path string, logger zerolog.Logger) *GuildStore {
	gs := &GuildStore{
		path:   path,
		guilds: make(map[int64]*models.GuildConfig),
		log:    logger.With().Str("component", "guild_store").Logger(),
	}

	guilds, err := readGuildFile(path, gs.log)
	switch {
	case errors.Is(err, os.ErrNotExist):
		gs.log.Info().Str("path", path).Msg("no existing configuration file found, starting fresh")
	case err != nil:
		gs.log.Error().Err(err).Str("path", path).Msg("error loading configuration")
	default:
		gs.guilds = guilds
		gs.log.Info().Int("guilds", len(guilds)).Msg("loaded guild configuration")
	}
	return gs
}

func readGuildFile(path string, logger zerolog.Logger) (map[int64]*models.GuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, path, err)
	}

	guilds := make(map[int64]*models.GuildConfig, len(raw))
	for key, entry := range raw {
		guildID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn().Str("key", key).Msg("skipping non-numeric guild key")
			continue
		}
		cfg, err := decodeGuildEntry(entry, logger.With().Int64("guild_id", guildID).Logger())
		if err != nil {
			logger.Warn().Err(err).Int64("guild_id", guildID).Msg("skipping malformed guild entry")
			continue
		}
		guilds[guildID] = &cfg
	}
	return guilds, nil
}

// decodeGuildEntry decodes one guild object field by field. A field that does not decode
// keeps its default so the rest of the entry, channels included, survives.
func decodeGuildEntry(entry json.RawMessage, logger zerolog.Logger) (models.GuildConfig, error) {
	cfg := models.DefaultGuildConfig()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return cfg, err
	}
	if fields == nil {
		return cfg, errors.New("entry is null")
	}

	targets := []struct {
		name string
		dst  any
	}{
		{"submission_channel_id", &cfg.SubmissionChannelID},
		{"showcase_channel_id", &cfg.ShowcaseChannelID},
		{"last_showcase_date", &cfg.LastShowcaseDate},
		{"showcase_time", &cfg.ShowcaseTime},
		{"delete_after_showcase", &cfg.DeleteAfterShowcase},
	}
	for _, target := range targets {
		raw, ok := fields[target.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target.dst); err != nil {
			logger.Warn().Err(err).Str("field", target.name).RawJSON("value", raw).
				Msg("invalid guild setting, using default")
		}
	}
	return cfg, nil
}

// Path returns the backing file path.
func (gs *GuildStore) Path() string {
	return gs.path
}

// Get returns a copy of the guild's configuration, creating defaults if it has none.
func (gs *GuildStore) Get(guildID int64) models.GuildConfig {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	return *gs.getLocked(guildID)
}

func (gs *GuildStore) getLocked(guildID int64) *models.GuildConfig {
	cfg, ok := gs.guilds[guildID]
	if !ok {
		def := models.DefaultGuildConfig()
		cfg = &def
		gs.guilds[guildID] = cfg
	}
	return cfg
}

// Update applies fn to the guild's configuration and saves the whole mapping before returning.
// No other write can interleave between the read, the mutation and the save.
func (gs *GuildStore) Update(guildID int64, fn func(cfg *models.GuildConfig)) error {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	fn(gs.getLocked(guildID))
	return gs.saveLocked()
}

// All returns a snapshot of every configured guild ordered by guild ID.
func (gs *GuildStore) All() []GuildEntry {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	entries := make([]GuildEntry, 0, len(gs.guilds))
	for id, cfg := range gs.guilds {
		entries = append(entries, GuildEntry{GuildID: id, Config: *cfg})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].GuildID < entries[j].GuildID })
	return entries
}

// Save commits every guild's configuration to the JSON file.
func (gs *GuildStore) Save() error {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	return gs.saveLocked()
}

func (gs *GuildStore) saveLocked() error {
	if err := gs.writeFile(); err != nil {
		gs.log.Error().Err(err).Str("path", gs.path).Msg("error saving configuration")
		return err
	}
	gs.log.Debug().Int("guilds", len(gs.guilds)).Msg("saved guild configuration")
	return nil
}

func (gs *GuildStore) writeFile() error {
	out := make(map[string]*models.GuildConfig, len(gs.guilds))
	for id, cfg := range gs.guilds {
		out[strconv.FormatInt(id, 10)] = cfg
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}

	dir := filepath.Dir(gs.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrPersistence, err)
	}

	// Write to a sibling temp file and rename so a crash never leaves a truncated file.
	tmp, err := os.CreateTemp(dir, filepath.Base(gs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), gs.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}
