// Package ingest replaces Instagram links posted in submission channels with the media behind them.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"boomerbox-bot/media"
	"boomerbox-bot/metrics"
	"boomerbox-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// linkPattern matches Instagram post, reel and IGTV links.
var linkPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/(?:p|reel|tv)/[A-Za-z0-9_-]+/?(?:\?[^\s]*)?`)

const (
	statusProcessing     = "🔄 Processing Instagram link..."
	statusCarouselFormat = "🔄 Downloading %d items from carousel..."
	statusResolveFailed  = "❌ Failed to get download link from Cobalt."
	statusCobaltError    = "❌ Cobalt error: %s - %s"
	statusUnknownFormat  = "❔ Unknown Cobalt response status: %s"
	statusDownloadFailed = "❌ Failed to download media."
	statusPostFailed     = "❌ Error posting media: %v"
)

// Outcomes reported per link, also used as metric labels.
const (
	OutcomePosted         = "posted"
	OutcomePartial        = "partial"
	OutcomeTransportError = "transport_error"
	OutcomeResolverError  = "resolver_error"
	OutcomeUnrecognized   = "unrecognized"
	OutcomeStatusFailed   = "status_failed"
)

// Action is what HandleSubmission did with a message.
type Action int

const (
	ActionKept Action = iota
	ActionIngested
	ActionDeleted
)

// Chat is the part of a discordgo session the pipeline needs.
type Chat interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Resolver turns a post URL into downloadable media.
type Resolver interface {
	Resolve(ctx context.Context, mediaURL string) (media.Resolution, error)
}

// Fetcher downloads media bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options tunes timing and concurrency. Zero values take the defaults.
type Options struct {
	// StatusTTL is how long a status message may live before it deletes itself. Default 60s.
	StatusTTL time.Duration
	// CleanupDelay is the pause before removing the status message after success. Default 2s.
	CleanupDelay time.Duration
	// MaxInFlight bounds messages processed at once; 0 means unbounded.
	MaxInFlight int
}

// Pipeline orchestrates resolution, download and re-upload of linked media.
type Pipeline struct {
	chat         Chat
	resolver     Resolver
	fetcher      Fetcher
	log          zerolog.Logger
	statusTTL    time.Duration
	cleanupDelay time.Duration
	sem          *semaphore.Weighted
}

// New creates a Pipeline.
func New(chat Chat, resolver Resolver, fetcher Fetcher, logger zerolog.Logger, opts Options) *Pipeline {
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = 60 * time.Second
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = 2 * time.Second
	}
	p := &Pipeline{
		chat:         chat,
		resolver:     resolver,
		fetcher:      fetcher,
		log:          logger.With().Str("component", "ingest").Logger(),
		statusTTL:    opts.StatusTTL,
		cleanupDelay: opts.CleanupDelay,
	}
	if opts.MaxInFlight > 0 {
		p.sem = semaphore.NewWeighted(int64(opts.MaxInFlight))
	}
	return p
}

// FindLinks returns every Instagram link in text, in order of appearance.
func FindLinks(text string) []string {
	return linkPattern.FindAllString(text, -1)
}

// HandleSubmission applies the submission channel rules to m: links are ingested,
// messages with attachments are kept and anything else is deleted.
func (p *Pipeline) HandleSubmission(ctx context.Context, m *discordgo.Message) Action {
	links := FindLinks(m.Content)
	if len(links) > 0 {
		p.log.Info().Int("links", len(links)).Str("author", m.Author.Username).Str("guild_id", m.GuildID).
			Msg("found Instagram links")
		p.Process(ctx, m, links)
		return ActionIngested
	}

	if len(m.Attachments) > 0 {
		return ActionKept
	}

	if err := p.chat.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		p.logDeleteError(p.log, err, "could not delete message without attachment or supported link")
		return ActionKept
	}
	metrics.MessagesModerated.Inc()
	p.log.Info().Str("author", m.Author.Username).Str("channel_id", m.ChannelID).
		Msg("deleted message without attachment or supported link")
	return ActionDeleted
}

// Process handles each link of m one after another. A failing link does not stop the rest.
func (p *Pipeline) Process(ctx context.Context, m *discordgo.Message, links []string) {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.log.Warn().Err(err).Str("message_id", m.ID).Msg("gave up waiting for an ingestion slot")
			return
		}
		defer p.sem.Release(1)
	}

	for _, link := range links {
		outcome := p.processLink(ctx, m, link)
		metrics.LinksProcessed.WithLabelValues(outcome).Inc()
	}
}

func (p *Pipeline) processLink(ctx context.Context, m *discordgo.Message, link string) string {
	log := p.log.With().Str("run_id", uuid.NewString()).Str("link", link).Str("guild_id", m.GuildID).Logger()

	status, err := p.chat.ChannelMessageSend(m.ChannelID, statusProcessing)
	if err != nil {
		log.Error().Err(err).Msg("could not send status message")
		return OutcomeStatusFailed
	}
	p.expire(status, log)

	start := time.Now()
	res, err := p.resolver.Resolve(ctx, link)
	if err != nil {
		metrics.ResolveDuration.WithLabelValues("transport_error").Observe(time.Since(start).Seconds())
		log.Error().Err(err).Msg("failed to get download link")
		p.editStatus(status, statusResolveFailed, log)
		return OutcomeTransportError
	}
	metrics.ResolveDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	var items []media.Item
	switch r := res.(type) {
	case media.Single:
		items = []media.Item{{URL: r.URL}}
	case media.Carousel:
		items = r.Items
		p.editStatus(status, fmt.Sprintf(statusCarouselFormat, len(items)), log)
	case media.Failure:
		log.Warn().Str("code", r.Code).Str("text", r.Message).Msg("cobalt returned an error")
		p.editStatus(status, fmt.Sprintf(statusCobaltError, r.Code, r.Message), log)
		return OutcomeResolverError
	case media.Unrecognized:
		log.Warn().Str("status", r.Status).Msg("unknown cobalt response status")
		p.editStatus(status, fmt.Sprintf(statusUnknownFormat, r.Status), log)
		return OutcomeUnrecognized
	}

	if !p.postItems(ctx, m, items, status, log) {
		return OutcomePartial
	}

	select {
	case <-time.After(p.cleanupDelay):
	case <-ctx.Done():
	}
	if err := p.chat.ChannelMessageDelete(status.ChannelID, status.ID); err != nil {
		p.logDeleteError(log, err, "could not delete status message")
	}
	return OutcomePosted
}

// postItems uploads every item in order and deletes the source once the last one is posted,
// unless any item failed.
func (p *Pipeline) postItems(ctx context.Context, m *discordgo.Message, items []media.Item, status *discordgo.Message, log zerolog.Logger) bool {
	total := len(items)
	failed := 0
	for i, item := range items {
		var handle *discordgo.Message
		if i == 0 {
			handle = status
		}
		if err := p.postItem(ctx, m, item.URL, handle, i+1, total, log); err != nil {
			failed++
			log.Error().Err(err).Int("item", i+1).Int("total", total).Msg("failed to post media item")
		}
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", total).Msg("keeping source message after failed items")
		return false
	}

	if err := p.chat.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		p.logDeleteError(log, err, "could not delete source message")
	} else {
		log.Info().Str("author", m.Author.Username).Msg("deleted source message")
	}
	return true
}

func (p *Pipeline) postItem(ctx context.Context, m *discordgo.Message, url string, status *discordgo.Message, index, total int, log zerolog.Logger) error {
	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.editStatus(status, statusDownloadFailed, log)
		return fmt.Errorf("download %s: %w", url, err)
	}

	name := Filename(url, index, total)
	content := fmt.Sprintf("📹 Instagram content from %s", m.Author.Mention())
	if total > 1 {
		content += fmt.Sprintf(" (Item %d/%d)", index, total)
	}

	_, err = p.chat.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: contentType(name),
			Reader:      bytes.NewReader(data),
		}},
	})
	if err != nil {
		p.editStatus(status, fmt.Sprintf(statusPostFailed, err), log)
		return fmt.Errorf("post %s: %w", name, err)
	}
	metrics.ItemsPosted.Inc()
	return nil
}

// Filename names an uploaded item after the media type its URL suggests.
func Filename(url string, index, total int) string {
	ext := ".mp4"
	switch {
	case strings.Contains(url, ".jpg"), strings.Contains(url, ".jpeg"):
		ext = ".jpg"
	case strings.Contains(url, ".png"):
		ext = ".png"
	}
	if total > 1 {
		return fmt.Sprintf("instagram_media_%d%s", index, ext)
	}
	return "instagram_media" + ext
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".jpg"):
		return "image/jpeg"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	default:
		return "video/mp4"
	}
}

func (p *Pipeline) editStatus(status *discordgo.Message, content string, log zerolog.Logger) {
	if status == nil {
		return
	}
	if _, err := p.chat.ChannelMessageEdit(status.ChannelID, status.ID, content); err != nil {
		log.Warn().Err(err).Msg("could not edit status message")
	}
}

// expire deletes the status message after the TTL whatever the pipeline outcome.
func (p *Pipeline) expire(status *discordgo.Message, log zerolog.Logger) {
	time.AfterFunc(p.statusTTL, func() {
		if err := p.chat.ChannelMessageDelete(status.ChannelID, status.ID); err != nil && !utils.IsNotFound(err) {
			log.Debug().Err(err).Msg("could not expire status message")
		}
	})
}

func (p *Pipeline) logDeleteError(log zerolog.Logger, err error, msg string) {
	if utils.IsPermissionDenied(err) {
		log.Warn().Err(err).Msg(msg + ": missing permissions")
		return
	}
	log.Warn().Err(err).Msg(msg)
}
