package utils

import (
	"slices"

	"boomerbox-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// Auth provides methods for authorization checks.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth creates a new Auth instance from the "commands" section of the configuration.
func NewAuth(v *viper.Viper) (*Auth, error) {
	var commandsConfig models.CommandsConfig
	if err := v.UnmarshalKey("commands", &commandsConfig); err != nil {
		return nil, err
	}
	return &Auth{config: commandsConfig}, nil
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.config.Auth.Developers, userID)
}

// CanManageGuild checks if a member holds Manage Server (or Administrator).
func (a *Auth) CanManageGuild(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	perms := member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageGuild != 0
}

// CheckPermission checks if the invoking user has the required permission level.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	if i.Member == nil || i.Member.User == nil {
		// Commands are guild-only; DMs carry no member.
		return false
	}
	userID := i.Member.User.ID

	switch requiredLevel {
	case "developer":
		return a.IsDeveloper(userID)
	case "manager":
		return a.IsDeveloper(userID) || a.CanManageGuild(i.Member)
	case "guest":
		return true
	default:
		return false
	}
}
