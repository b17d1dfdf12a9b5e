package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"boomerbox-bot/models"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// HistoryDB records every published showcase.
type HistoryDB struct {
	db *sql.DB
}

// InitHistoryDB opens (creating if needed) the showcase history database at dbPath.
func InitHistoryDB(dbPath string) (*HistoryDB, error) {
	if dbPath != ":memory:" {
		// Ensure the directory for the database file exists.
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createShowcasesTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create showcases table: %w", err)
	}

	return &HistoryDB{db: db}, nil
}

func createShowcasesTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS showcases (
        db_id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        source_channel_id TEXT,
        source_message_id TEXT,
        author_id TEXT,
        showcase_message_id TEXT,
        attachments INTEGER,
        timestamp INTEGER NOT NULL
    );`
	if _, err := db.Exec(query); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_showcases_guild_timestamp ON showcases(guild_id, timestamp);`)
	return err
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Record saves a single published showcase.
func (h *HistoryDB) Record(ctx context.Context, post models.ShowcasePost) error {
	query := `
    INSERT INTO showcases (
        guild_id, source_channel_id, source_message_id, author_id, showcase_message_id, attachments, timestamp
    ) VALUES (?, ?, ?, ?, ?, ?, ?);`

	_, err := h.db.ExecContext(ctx, query,
		post.GuildID,
		post.SourceChannelID,
		post.SourceMessageID,
		post.AuthorID,
		post.ShowcaseMessageID,
		post.Attachments,
		post.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record showcase for guild %s: %w", post.GuildID, err)
	}
	return nil
}

// CountForGuild returns how many showcases a guild has published.
func (h *HistoryDB) CountForGuild(ctx context.Context, guildID string) (int64, error) {
	var count int64
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM showcases WHERE guild_id = ?`, guildID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count showcases for guild %s: %w", guildID, err)
	}
	return count, nil
}

// Latest returns the most recent showcase for a guild, or nil if there is none.
func (h *HistoryDB) Latest(ctx context.Context, guildID string) (*models.ShowcasePost, error) {
	row := h.db.QueryRowContext(ctx, `
    SELECT db_id, guild_id, source_channel_id, source_message_id, author_id, showcase_message_id, attachments, timestamp
    FROM showcases WHERE guild_id = ? ORDER BY timestamp DESC, db_id DESC LIMIT 1`, guildID)

	var post models.ShowcasePost
	err := row.Scan(&post.DBID, &post.GuildID, &post.SourceChannelID, &post.SourceMessageID,
		&post.AuthorID, &post.ShowcaseMessageID, &post.Attachments, &post.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest showcase for guild %s: %w", guildID, err)
	}
	return &post, nil
}
