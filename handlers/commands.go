package handlers

import (
	"github.com/bwmarrin/discordgo"
)

var commandPermissions = map[string]string{
	"setup":        "manager",
	"showcase_now": "manager",
	"status":       "manager",
	"settings":     "manager",
	"ping":         "guest",
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func (h *Handler) CommandDispatcher(s Session, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name
	requiredLevel, ok := commandPermissions[commandName]
	if !ok {
		h.respond(s, i, ephemeral("🚫 Internal error: unknown command."))
		return
	}

	if requiredLevel != "guest" {
		if i.GuildID == "" {
			h.respond(s, i, ephemeral("🚫 This command can only be used in a server."))
			return
		}
		if !h.auth.CheckPermission(i, requiredLevel) {
			h.respond(s, i, ephemeral("🚫 You need the Manage Server permission to use this command."))
			return
		}
	}

	switch commandName {
	case "setup":
		h.respond(s, i, h.HandleSetup(i))
	case "showcase_now":
		h.HandleShowcaseNow(s, i)
	case "status":
		h.respond(s, i, h.HandleStatus(s, i))
	case "settings":
		h.respond(s, i, h.HandleSettings(i))
	case "ping":
		h.respond(s, i, &discordgo.InteractionResponseData{Content: "Pong!"})
	}
}

func (h *Handler) respond(s Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.log.Error().Err(err).Str("command", i.ApplicationCommandData().Name).Msg("failed to respond to interaction")
	}
}

func ephemeral(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}
}
