package command

import "github.com/bwmarrin/discordgo"

var (
	manageGuild int64 = discordgo.PermissionManageGuild
	guildOnly         = false
)

// SetupCommand defines the /setup command.
type SetupCommand struct{}

// Definition returns the application command definition.
func (c *SetupCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "setup",
		Description:              "Configure submission, showcase channels, and showcase time",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             &guildOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "submission_channel",
				Description:  "Channel where users submit posts",
				Type:         discordgo.ApplicationCommandOptionChannel,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				Required:     true,
			},
			{
				Name:         "showcase_channel",
				Description:  "Channel where featured posts are showcased",
				Type:         discordgo.ApplicationCommandOptionChannel,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				Required:     true,
			},
			{
				Name:        "showcase_time",
				Description: "Time to showcase posts (HH:MM format, e.g., 14:30), default 12:00",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
			},
		},
	}
}

// ShowcaseNowCommand defines the /showcase_now command.
type ShowcaseNowCommand struct{}

// Definition returns the application command definition.
func (c *ShowcaseNowCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "showcase_now",
		Description:              "Immediately showcase a random post",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             &guildOnly,
	}
}

// StatusCommand defines the /status command.
type StatusCommand struct{}

// Definition returns the application command definition.
func (c *StatusCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "status",
		Description:              "Show bot configuration and status for this server",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             &guildOnly,
	}
}

// SettingsCommand defines the /settings command.
type SettingsCommand struct{}

// Definition returns the application command definition.
func (c *SettingsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "settings",
		Description:              "Modify bot settings for this server",
		DefaultMemberPermissions: &manageGuild,
		DMPermission:             &guildOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "showcase_time",
				Description: "Time to showcase posts (HH:MM format, e.g., 14:30)",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
			},
			{
				Name:        "delete_after_showcase",
				Description: "Delete submission after it's showcased?",
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Required:    false,
			},
		},
	}
}

// PingCommand defines the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
