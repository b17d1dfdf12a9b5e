package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// EmbedSender is the part of a discordgo session the admin log needs.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var (
	mu        sync.RWMutex
	session   EmbedSender
	channelID string
	logger    = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// NewLogger builds the process logger at the given level and installs it for the admin log.
func NewLogger(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	l := zerolog.New(out).With().Timestamp().Logger().Level(lvl)

	mu.Lock()
	logger = l
	mu.Unlock()
	return l
}

// InitLogger mirrors admin log lines to an admin channel through the given session.
func InitLogger(s EmbedSender, adminChannelID string) {
	mu.Lock()
	defer mu.Unlock()

	session = s
	channelID = adminChannelID
	if channelID == "" {
		logger.Warn().Msg("bot.admin_channel_id is not set, logging to channel will be disabled")
	}
}

// Log writes a structured line and sends an embed to the admin channel when one is configured.
func Log(level, module, operation, details string) {
	mu.RLock()
	s, ch, l := session, channelID, logger
	mu.RUnlock()

	var color int
	var event *zerolog.Event
	switch level {
	case "WARN":
		color = ColorWarn
		event = l.Warn()
	case "ERROR":
		color = ColorError
		event = l.Error()
	default:
		color = ColorInfo
		event = l.Info()
	}
	event.Str("module", module).Str("operation", operation).Msg(details)

	if s == nil || ch == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", level),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Module",
				Value:  module,
				Inline: true,
			},
			{
				Name:   "Operation",
				Value:  operation,
				Inline: true,
			},
			{
				Name:  "Details",
				Value: details,
			},
		},
	}

	if _, err := s.ChannelMessageSendEmbed(ch, embed); err != nil {
		l.Error().Err(err).Msg("error sending log message to Discord")
	}
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log("INFO", module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log("WARN", module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log("ERROR", module, operation, details)
}
