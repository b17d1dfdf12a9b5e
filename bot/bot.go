package bot

import (
	"fmt"
	"sync/atomic"

	"boomerbox-bot/config"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Bot encapsulates the gateway session, the registered commands and the showcase scheduler.
type Bot struct {
	Session  *discordgo.Session
	Commands []*discordgo.ApplicationCommand

	log         zerolog.Logger
	debugGuilds []string
	scheduler   *Scheduler
	ready       atomic.Bool
}

// NewBot creates a Bot from settings. The session is not opened.
func NewBot(settings *config.Settings, scheduler *Scheduler, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + settings.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	return &Bot{
		Session:     dg,
		log:         logger.With().Str("component", "bot").Logger(),
		debugGuilds: settings.DebugGuildIDs,
		scheduler:   scheduler,
	}, nil
}

// RegisterCommands sets the application commands created on Start.
func (b *Bot) RegisterCommands(commands []*discordgo.ApplicationCommand) {
	b.Commands = append(b.Commands, commands...)
}

// Ready reports whether the gateway session has completed its handshake.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

// SelfID returns the bot's own user ID once ready.
func (b *Bot) SelfID() string {
	if b.Session.State == nil || b.Session.State.User == nil {
		return ""
	}
	return b.Session.State.User.ID
}

// Start registers handlers, opens the session and creates the slash commands.
// The scheduler starts on the first Ready event.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.ready.Store(true)
		if b.scheduler != nil {
			b.scheduler.Start()
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		b.ready.Store(false)
	})
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Resumed) {
		b.ready.Store(true)
	})
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	guilds := b.debugGuilds
	if len(guilds) == 0 {
		guilds = []string{""}
	}
	for _, guildID := range guilds {
		for _, cmd := range b.Commands {
			if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, guildID, cmd); err != nil {
				b.log.Error().Err(err).Str("command", cmd.Name).Str("guild_id", guildID).Msg("cannot create command")
			}
		}
	}
	b.log.Info().Int("commands", len(b.Commands)).Strs("debug_guilds", b.debugGuilds).Msg("slash commands registered")

	b.log.Info().Msg("bot is now running, press CTRL-C to exit")
	return nil
}

// Stop halts the scheduler and closes the session.
func (b *Bot) Stop() {
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.Session != nil {
		if err := b.Session.Close(); err != nil {
			b.log.Warn().Err(err).Msg("error closing session")
		}
	}
	b.log.Info().Msg("bot stopped gracefully")
}
