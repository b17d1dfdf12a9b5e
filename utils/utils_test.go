package utils

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func TestIsPermissionDenied(t *testing.T) {
	assert.True(t, IsPermissionDenied(restError(http.StatusForbidden, 0)))
	assert.True(t, IsPermissionDenied(restError(http.StatusBadRequest, discordgo.ErrCodeMissingPermissions)))
	assert.True(t, IsPermissionDenied(fmt.Errorf("delete: %w", restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess))))
	assert.False(t, IsPermissionDenied(restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)))
	assert.False(t, IsPermissionDenied(errors.New("boom")))
	assert.False(t, IsPermissionDenied(nil))

	assert.True(t, IsNotFound(restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)))
	assert.False(t, IsNotFound(restError(http.StatusForbidden, 0)))
}

func interaction(userID string, perms int64) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: userID}, Permissions: perms},
	}}
}

func TestCheckPermission(t *testing.T) {
	v := viper.New()
	v.Set("commands.auth.developers", []string{"dev"})
	auth, err := NewAuth(v)
	require.NoError(t, err)

	assert.True(t, auth.CheckPermission(interaction("dev", 0), "manager"))
	assert.True(t, auth.CheckPermission(interaction("mod", discordgo.PermissionManageGuild), "manager"))
	assert.True(t, auth.CheckPermission(interaction("admin", discordgo.PermissionAdministrator), "manager"))
	assert.False(t, auth.CheckPermission(interaction("user", discordgo.PermissionSendMessages), "manager"))
	assert.True(t, auth.CheckPermission(interaction("user", 0), "guest"))
	assert.False(t, auth.CheckPermission(interaction("mod", discordgo.PermissionManageGuild), "developer"))
	assert.False(t, auth.CheckPermission(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}, "guest"))
}

type recordingSender struct {
	channels []string
	embeds   []*discordgo.MessageEmbed
}

func (r *recordingSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.channels = append(r.channels, channelID)
	r.embeds = append(r.embeds, embed)
	return &discordgo.Message{}, nil
}

func TestLogMirrorsToAdminChannel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("debug", &buf)
	sender := &recordingSender{}
	InitLogger(sender, "admin")
	t.Cleanup(func() { InitLogger(nil, "") })

	Error("showcase", "Run", "guild 1 failed")

	require.Len(t, sender.embeds, 1)
	assert.Equal(t, "admin", sender.channels[0])
	assert.Equal(t, ColorError, sender.embeds[0].Color)
	assert.Equal(t, "guild 1 failed", sender.embeds[0].Fields[2].Value)
	assert.Contains(t, buf.String(), `"module":"showcase"`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestLogWithoutChannelOnlyWritesLine(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("bogus-level", &buf)
	InitLogger(nil, "")

	Info("ingest", "Process", "hello")

	assert.Contains(t, buf.String(), `"message":"hello"`)
}
