package handlers

import (
	"context"
	"time"

	"boomerbox-bot/bot"
	"boomerbox-bot/ingest"
	"boomerbox-bot/models"
	"boomerbox-bot/showcase"
	"boomerbox-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Session is the part of a discordgo session the command handlers need.
type Session interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// GuildStore reads and updates per-guild configuration.
type GuildStore interface {
	Get(guildID int64) models.GuildConfig
	Update(guildID int64, fn func(cfg *models.GuildConfig)) error
}

// Showcaser triggers showcases on demand.
type Showcaser interface {
	RunManual(ctx context.Context, guildID int64) (showcase.Outcome, error)
	Now() time.Time
}

// Submissions handles messages posted in submission channels.
type Submissions interface {
	HandleSubmission(ctx context.Context, m *discordgo.Message) ingest.Action
}

// History reports past showcases of a guild.
type History interface {
	CountForGuild(ctx context.Context, guildID string) (int64, error)
	Latest(ctx context.Context, guildID string) (*models.ShowcasePost, error)
}

// Handler holds everything the event handlers work with.
type Handler struct {
	ctx         context.Context
	store       GuildStore
	showcaser   Showcaser
	submissions Submissions
	history     History
	auth        *utils.Auth
	log         zerolog.Logger
}

// New creates a Handler. history may be nil. ctx bounds the work started by events.
func New(ctx context.Context, store GuildStore, showcaser Showcaser, submissions Submissions, history History, auth *utils.Auth, logger zerolog.Logger) *Handler {
	return &Handler{
		ctx:         ctx,
		store:       store,
		showcaser:   showcaser,
		submissions: submissions,
		history:     history,
		auth:        auth,
		log:         logger.With().Str("component", "handlers").Logger(),
	}
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	b.Session.AddHandler(InteractionCreate(h))
	b.Session.AddHandler(MessageCreate(h))

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		h.log.Info().Str("user", r.User.Username).Str("id", r.User.ID).Int("guilds", len(r.Guilds)).Msg("logged in")
	})
}
