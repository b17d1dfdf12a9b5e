// Package showcase picks a random submission each day and republishes it to the showcase channel.
package showcase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"boomerbox-bot/database"
	"boomerbox-bot/metrics"
	"boomerbox-bot/models"
	"boomerbox-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when a guild has no usable submission or showcase channel.
var ErrNotConfigured = errors.New("showcase channels not configured")

const (
	scanLimit     = 100
	embedTitle    = "🌟 Daily Showcase"
	emptyNotice   = "📢 No submissions to showcase today!"
	nextFieldName = "⏳ Next Showcase"
	// ColorGold is the embed colour of a showcase post.
	ColorGold = 0xF1C40F
)

// Outcome describes how a showcase run ended.
type Outcome string

const (
	OutcomeNotConfigured Outcome = "not_configured"
	OutcomeEmpty         Outcome = "empty"
	OutcomePosted        Outcome = "posted"
	OutcomeFailed        Outcome = "failed"
)

// Chat is the part of a discordgo session the showcaser needs.
type Chat interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Store is the guild configuration the showcaser reads and updates.
type Store interface {
	Get(guildID int64) models.GuildConfig
	Update(guildID int64, fn func(cfg *models.GuildConfig)) error
	All() []database.GuildEntry
}

// Fetcher downloads attachment bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// History records published showcases.
type History interface {
	Record(ctx context.Context, post models.ShowcasePost) error
}

// Option configures a Showcaser.
type Option func(*Showcaser)

// WithHistory records each published showcase in h.
func WithHistory(h History) Option {
	return func(s *Showcaser) { s.history = h }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Showcaser) { s.now = now }
}

// WithLocation sets the zone showcase times are interpreted in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Showcaser) { s.loc = loc }
}

// WithPicker replaces the uniform random choice; pick returns an index in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(s *Showcaser) { s.pick = pick }
}

// WithSelfID tells the showcaser which bot account is its own, so re-uploaded media stays eligible.
func WithSelfID(selfID func() string) Option {
	return func(s *Showcaser) { s.selfID = selfID }
}

// Showcaser runs showcases for every configured guild.
type Showcaser struct {
	chat    Chat
	store   Store
	fetcher Fetcher
	history History
	log     zerolog.Logger

	now    func() time.Time
	loc    *time.Location
	pick   func(n int) int
	selfID func() string

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a Showcaser.
func New(chat Chat, store Store, fetcher Fetcher, logger zerolog.Logger, opts ...Option) *Showcaser {
	s := &Showcaser{
		chat:    chat,
		store:   store,
		fetcher: fetcher,
		log:     logger.With().Str("component", "showcase").Logger(),
		now:     time.Now,
		loc:     time.Local,
		pick:    rand.Intn,
		selfID:  func() string { return "" },
		locks:   make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextShowcase returns the next occurrence of t strictly after now.
func NextShowcase(now time.Time, t models.ShowcaseTime) time.Time {
	next := t.On(now)
	if !now.Before(next) {
		next = t.On(now.AddDate(0, 0, 1))
	}
	return next
}

// Now returns the current time in the showcase location.
func (s *Showcaser) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Showcaser) guildLock(guildID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[guildID] = l
	}
	return l
}

// Tick runs the showcase of every guild whose showcase time is the current minute and
// which has not fired today. Guilds are handled one after another.
func (s *Showcaser) Tick(ctx context.Context, now time.Time) {
	now = now.In(s.loc)
	today := models.DateOf(now)
	current := models.TimeOf(now)

	for _, entry := range s.store.All() {
		if entry.Config.ShowcaseTime != current || entry.Config.LastShowcaseDate == today {
			continue
		}
		if err := ctx.Err(); err != nil {
			return
		}
		s.runDue(ctx, entry.GuildID, now)
	}
}

func (s *Showcaser) runDue(ctx context.Context, guildID int64, now time.Time) {
	today, current := models.DateOf(now), models.TimeOf(now)
	l := s.guildLock(guildID)
	l.Lock()
	defer l.Unlock()

	// A manual run or config change may have landed since All() was read.
	cfg := s.store.Get(guildID)
	if cfg.ShowcaseTime != current || cfg.LastShowcaseDate == today {
		return
	}

	s.log.Info().Int64("guild_id", guildID).Str("showcase_time", current.String()).Msg("triggering showcase")
	if _, err := s.run(ctx, guildID, now); err != nil && !errors.Is(err, ErrNotConfigured) {
		s.log.Error().Err(err).Int64("guild_id", guildID).Msg("scheduled showcase failed")
	}
}

// Run showcases a random submission of the guild now.
func (s *Showcaser) Run(ctx context.Context, guildID int64) (Outcome, error) {
	l := s.guildLock(guildID)
	l.Lock()
	defer l.Unlock()
	return s.run(ctx, guildID, s.Now())
}

// RunManual showcases a random submission without affecting the daily schedule: the
// last showcase date is the same after the run as before it.
func (s *Showcaser) RunManual(ctx context.Context, guildID int64) (Outcome, error) {
	l := s.guildLock(guildID)
	l.Lock()
	defer l.Unlock()

	previous := s.store.Get(guildID).LastShowcaseDate
	if err := s.store.Update(guildID, func(cfg *models.GuildConfig) { cfg.LastShowcaseDate = "" }); err != nil {
		s.log.Warn().Err(err).Int64("guild_id", guildID).Msg("could not clear last showcase date")
	}

	outcome, runErr := s.run(ctx, guildID, s.Now())

	restoreErr := s.store.Update(guildID, func(cfg *models.GuildConfig) { cfg.LastShowcaseDate = previous })
	if restoreErr != nil {
		restoreErr = fmt.Errorf("restore last showcase date: %w", restoreErr)
	}
	return outcome, errors.Join(runErr, restoreErr)
}

func (s *Showcaser) run(ctx context.Context, guildID int64, now time.Time) (Outcome, error) {
	outcome, err := s.showcase(ctx, guildID, now)
	metrics.Showcases.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (s *Showcaser) showcase(ctx context.Context, guildID int64, now time.Time) (Outcome, error) {
	log := s.log.With().Int64("guild_id", guildID).Logger()
	cfg := s.store.Get(guildID)

	if !cfg.ChannelsConfigured() {
		log.Warn().Msg("channels not configured, skipping showcase")
		return OutcomeNotConfigured, ErrNotConfigured
	}
	submissionID, showcaseID := cfg.SubmissionChannelID.String(), cfg.ShowcaseChannelID.String()
	if _, err := s.chat.Channel(submissionID); err != nil {
		log.Error().Err(err).Str("channel_id", submissionID).Msg("could not find submission channel")
		return OutcomeNotConfigured, fmt.Errorf("%w: submission channel %s: %v", ErrNotConfigured, submissionID, err)
	}
	if _, err := s.chat.Channel(showcaseID); err != nil {
		log.Error().Err(err).Str("channel_id", showcaseID).Msg("could not find showcase channel")
		return OutcomeNotConfigured, fmt.Errorf("%w: showcase channel %s: %v", ErrNotConfigured, showcaseID, err)
	}

	messages, err := s.chat.ChannelMessages(submissionID, scanLimit, "", "", "")
	if err != nil {
		return OutcomeFailed, s.channelError(log, err, "read submission channel")
	}
	candidates := s.eligible(messages)

	if len(candidates) == 0 {
		log.Info().Msg("no submissions found")
		if _, err := s.chat.ChannelMessageSend(showcaseID, emptyNotice); err != nil {
			return OutcomeFailed, s.channelError(log, err, "send empty notice")
		}
		return OutcomeEmpty, nil
	}

	chosen := candidates[s.pick(len(candidates))]
	log.Info().Str("message_id", chosen.ID).Str("author", chosen.Author.Username).Msg("selected submission")

	data := s.buildPost(ctx, log, chosen, cfg.ShowcaseTime, now)

	posted, err := s.chat.ChannelMessageSendComplex(showcaseID, data)
	if err != nil {
		return OutcomeFailed, s.channelError(log, err, "publish showcase")
	}
	utils.Info("showcase", "publish", fmt.Sprintf("Showcased message %s from %s in guild %d", chosen.ID, chosen.Author.Username, guildID))

	if cfg.DeleteAfterShowcase {
		if err := s.chat.ChannelMessageDelete(submissionID, chosen.ID); err != nil {
			if utils.IsPermissionDenied(err) {
				log.Warn().Err(err).Msg("missing permissions to delete showcased message")
			} else {
				log.Warn().Err(err).Msg("could not delete showcased message")
			}
		}
	}

	if s.history != nil {
		err := s.history.Record(ctx, models.ShowcasePost{
			GuildID:           strconv.FormatInt(guildID, 10),
			SourceChannelID:   submissionID,
			SourceMessageID:   chosen.ID,
			AuthorID:          chosen.Author.ID,
			ShowcaseMessageID: posted.ID,
			Attachments:       len(data.Files),
			Timestamp:         now.Unix(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("could not record showcase history")
		}
	}

	today := models.DateOf(now)
	if err := s.store.Update(guildID, func(c *models.GuildConfig) { c.LastShowcaseDate = today }); err != nil {
		utils.Error("showcase", "persist", fmt.Sprintf("Showcase posted but last date not saved for guild %d: %v", guildID, err))
		return OutcomePosted, err
	}
	return OutcomePosted, nil
}

// eligible keeps human messages with content or attachments, and this bot's own messages
// that carry attachments.
func (s *Showcaser) eligible(messages []*discordgo.Message) []*discordgo.Message {
	self := s.selfID()
	var out []*discordgo.Message
	for _, m := range messages {
		if m.Author == nil {
			continue
		}
		human := !m.Author.Bot && (m.Content != "" || len(m.Attachments) > 0)
		own := self != "" && m.Author.ID == self && len(m.Attachments) > 0
		if human || own {
			out = append(out, m)
		}
	}
	return out
}

func (s *Showcaser) buildPost(ctx context.Context, log zerolog.Logger, m *discordgo.Message, at models.ShowcaseTime, now time.Time) *discordgo.MessageSend {
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	embed := &discordgo.MessageEmbed{
		Title:       embedTitle,
		Description: m.Content,
		Color:       ColorGold,
		Timestamp:   now.Format(time.RFC3339),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    name,
			IconURL: m.Author.AvatarURL(""),
		},
		Fields: []*discordgo.MessageEmbedField{{
			Name:  nextFieldName,
			Value: fmt.Sprintf("<t:%d:R>", NextShowcase(now, at).Unix()),
		}},
	}

	var files []*discordgo.File
	for _, a := range m.Attachments {
		body, err := s.fetcher.Fetch(ctx, a.URL)
		if err != nil {
			log.Warn().Err(err).Str("attachment", a.Filename).Msg("could not process attachment")
			continue
		}
		files = append(files, &discordgo.File{
			Name:        a.Filename,
			ContentType: a.ContentType,
			Reader:      bytes.NewReader(body),
		})
		if embed.Image == nil && strings.HasPrefix(a.ContentType, "image") {
			embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + a.Filename}
		}
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  files,
	}
}

func (s *Showcaser) channelError(log zerolog.Logger, err error, op string) error {
	if utils.IsPermissionDenied(err) {
		log.Error().Err(err).Msg("missing permissions in showcase channels")
	} else {
		log.Error().Err(err).Msgf("could not %s", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
