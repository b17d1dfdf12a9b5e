package handlers

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// MessageCreate routes messages posted in a submission channel to the ingestion pipeline.
// discordgo runs each handler on its own goroutine, so slow downloads never stall the gateway.
func MessageCreate(h *Handler) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		var selfID string
		if s.State != nil && s.State.User != nil {
			selfID = s.State.User.ID
		}
		if !h.IsSubmission(selfID, m.Message) {
			return
		}
		h.submissions.HandleSubmission(h.ctx, m.Message)
	}
}

// IsSubmission reports whether m was posted by someone other than the bot in its guild's
// submission channel.
func (h *Handler) IsSubmission(selfID string, m *discordgo.Message) bool {
	if m == nil || m.Author == nil || m.GuildID == "" {
		return false
	}
	if selfID != "" && m.Author.ID == selfID {
		return false
	}
	id, err := strconv.ParseInt(m.GuildID, 10, 64)
	if err != nil {
		return false
	}
	cfg := h.store.Get(id)
	return !cfg.SubmissionChannelID.IsZero() && cfg.SubmissionChannelID.String() == m.ChannelID
}
