package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"boomerbox-bot/models"
	"boomerbox-bot/showcase"

	"github.com/bwmarrin/discordgo"
)

const (
	invalidTimeMessage = "❌ Invalid time format. Please use HH:MM (e.g., 14:30)."
	notConfiguredReply = "❌ Please configure channels first using `/setup`"
	colorStatus        = 0x3498DB
)

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// channelOption reads a channel option as a snowflake without a session lookup.
func channelOption(opt *discordgo.ApplicationCommandInteractionDataOption) (models.Snowflake, error) {
	if opt == nil {
		return 0, errors.New("missing channel option")
	}
	raw, ok := opt.Value.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected channel option value %v", opt.Value)
	}
	return models.ParseSnowflake(raw)
}

func guildID(i *discordgo.InteractionCreate) (int64, error) {
	return strconv.ParseInt(i.GuildID, 10, 64)
}

func saveFailed(err error) *discordgo.InteractionResponseData {
	return ephemeral(fmt.Sprintf("⚠️ The change applies now but could not be saved to disk: %v", err))
}

// HandleSetup configures the submission and showcase channels and the showcase time.
func (h *Handler) HandleSetup(i *discordgo.InteractionCreate) *discordgo.InteractionResponseData {
	id, err := guildID(i)
	if err != nil {
		return ephemeral("🚫 This command can only be used in a server.")
	}
	opts := optionMap(i)

	submission, err := channelOption(opts["submission_channel"])
	if err != nil {
		return ephemeral("❌ Please choose a submission channel.")
	}
	target, err := channelOption(opts["showcase_channel"])
	if err != nil {
		return ephemeral("❌ Please choose a showcase channel.")
	}

	rawTime := models.DefaultGuildConfig().ShowcaseTime.String()
	if opt, ok := opts["showcase_time"]; ok {
		rawTime = opt.StringValue()
	}
	at, err := models.ParseShowcaseTime(rawTime)
	if err != nil {
		return ephemeral(invalidTimeMessage)
	}

	err = h.store.Update(id, func(cfg *models.GuildConfig) {
		cfg.SubmissionChannelID = submission
		cfg.ShowcaseChannelID = target
		cfg.ShowcaseTime = at
	})
	h.log.Info().Int64("guild_id", id).Str("submission", submission.String()).Str("showcase", target.String()).
		Str("time", at.String()).Msg("guild configured")
	if err != nil {
		return saveFailed(err)
	}

	return ephemeral(fmt.Sprintf("✅ Configuration updated!\n📥 Submission channel: <#%s>\n🌟 Showcase channel: <#%s>\n⏰ Showcase time: %s daily",
		submission, target, at))
}

// HandleShowcaseNow runs a showcase immediately without affecting the daily schedule.
func (h *Handler) HandleShowcaseNow(s Session, i *discordgo.InteractionCreate) {
	id, err := guildID(i)
	if err != nil {
		h.respond(s, i, ephemeral("🚫 This command can only be used in a server."))
		return
	}
	if !h.store.Get(id).ChannelsConfigured() {
		h.respond(s, i, ephemeral(notConfiguredReply))
		return
	}

	// Selection and uploads can outlast the interaction deadline.
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to defer showcase_now")
		return
	}

	outcome, err := h.showcaser.RunManual(h.ctx, id)
	content := showcaseNowReply(outcome, err)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		h.log.Error().Err(err).Msg("failed to edit showcase_now response")
	}
}

func showcaseNowReply(outcome showcase.Outcome, err error) string {
	switch outcome {
	case showcase.OutcomePosted:
		if err != nil {
			return fmt.Sprintf("✅ Showcase posted, with a warning: %v", err)
		}
		return "✅ Showcase posted!"
	case showcase.OutcomeEmpty:
		return "📢 No submissions to showcase right now."
	case showcase.OutcomeNotConfigured:
		return "❌ Could not find the configured channels. Run `/setup` again."
	default:
		if err == nil {
			err = errors.New("unknown failure")
		}
		return fmt.Sprintf("❌ Showcase failed: %v", err)
	}
}

// HandleStatus shows the guild's configuration and the next showcase time.
func (h *Handler) HandleStatus(s Session, i *discordgo.InteractionCreate) *discordgo.InteractionResponseData {
	id, err := guildID(i)
	if err != nil {
		return ephemeral("🚫 This command can only be used in a server.")
	}
	cfg := h.store.Get(id)
	if !cfg.ChannelsConfigured() {
		return ephemeral("ℹ️ Bot is not configured yet. Use `/setup` to configure channels.")
	}

	last := "Never"
	if !cfg.LastShowcaseDate.IsZero() {
		last = string(cfg.LastShowcaseDate)
	}
	deleteStatus := "❌ Disabled"
	if cfg.DeleteAfterShowcase {
		deleteStatus = "✅ Enabled"
	}
	next := showcase.NextShowcase(h.showcaser.Now(), cfg.ShowcaseTime)

	fields := []*discordgo.MessageEmbedField{
		{Name: "📥 Submission Channel", Value: channelMention(s, cfg.SubmissionChannelID)},
		{Name: "🌟 Showcase Channel", Value: channelMention(s, cfg.ShowcaseChannelID)},
		{Name: "📅 Last Showcase", Value: last, Inline: true},
		{Name: "⏰ Showcase Time", Value: fmt.Sprintf("Daily at %s", cfg.ShowcaseTime), Inline: true},
		{Name: "🗑️ Delete After Showcase", Value: deleteStatus, Inline: true},
		{Name: "⏳ Next Showcase", Value: fmt.Sprintf("<t:%d:R>", next.Unix())},
	}
	if h.history != nil {
		total := "unavailable"
		if n, err := h.history.CountForGuild(h.ctx, i.GuildID); err != nil {
			h.log.Warn().Err(err).Int64("guild_id", id).Msg("could not count showcase history")
		} else {
			total = strconv.FormatInt(n, 10)
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🏆 Total Showcases", Value: total, Inline: true})

		latest, err := h.history.Latest(h.ctx, i.GuildID)
		if err != nil {
			h.log.Warn().Err(err).Int64("guild_id", id).Msg("could not load latest showcase")
		} else if latest != nil {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   "🔗 Last Showcased",
				Value:  fmt.Sprintf("<@%s> <t:%d:R>", latest.AuthorID, latest.Timestamp),
				Inline: true,
			})
		}
	}

	return &discordgo.InteractionResponseData{
		Flags: discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{{
			Title:  "🤖 Bot Status",
			Color:  colorStatus,
			Fields: fields,
		}},
	}
}

func channelMention(s Session, id models.Snowflake) string {
	if _, err := s.Channel(id.String()); err != nil {
		return "❌ Not found"
	}
	return fmt.Sprintf("<#%s>", id)
}

// HandleSettings changes the showcase time or the delete-after-showcase flag.
func (h *Handler) HandleSettings(i *discordgo.InteractionCreate) *discordgo.InteractionResponseData {
	id, err := guildID(i)
	if err != nil {
		return ephemeral("🚫 This command can only be used in a server.")
	}
	opts := optionMap(i)

	var changes []func(cfg *models.GuildConfig)
	var updated []string

	if opt, ok := opts["showcase_time"]; ok {
		at, err := models.ParseShowcaseTime(opt.StringValue())
		if err != nil {
			return ephemeral("❌ Invalid time format for `showcase_time`. Please use HH:MM (e.g., 14:30).")
		}
		changes = append(changes, func(cfg *models.GuildConfig) { cfg.ShowcaseTime = at })
		updated = append(updated, fmt.Sprintf("⏰ Showcase time updated to **%s** daily.", at))
	}

	if opt, ok := opts["delete_after_showcase"]; ok {
		enabled := opt.BoolValue()
		changes = append(changes, func(cfg *models.GuildConfig) { cfg.DeleteAfterShowcase = enabled })
		status := "❌ Disabled"
		if enabled {
			status = "✅ Enabled"
		}
		updated = append(updated, fmt.Sprintf("🗑️ Delete after showcase is now %s.", status))
	}

	if len(changes) == 0 {
		return ephemeral("ℹ️ You didn't specify any settings to change. Use the options to modify settings.")
	}

	err = h.store.Update(id, func(cfg *models.GuildConfig) {
		for _, change := range changes {
			change(cfg)
		}
	})
	if err != nil {
		return saveFailed(err)
	}
	return ephemeral("✅ Settings updated!\n" + strings.Join(updated, "\n"))
}
