package models

// ShowcasePost represents a published showcase as recorded in the history database.
type ShowcasePost struct {
	DBID              int64  `db:"db_id"`
	GuildID           string `db:"guild_id"`
	SourceChannelID   string `db:"source_channel_id"`
	SourceMessageID   string `db:"source_message_id"`
	AuthorID          string `db:"author_id"`
	ShowcaseMessageID string `db:"showcase_message_id"`
	Attachments       int    `db:"attachments"`
	Timestamp         int64  `db:"timestamp"` // Unix timestamp of publication
}
