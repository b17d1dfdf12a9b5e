package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_DEBUG_GUILD_IDS", " 1, 2 ,,3")
	t.Setenv("COBALT_API_URL", "https://cobalt.example.com/")
	t.Setenv("COBALT_API_KEY", "key")
	t.Setenv("COBALT_USER_AGENT", "ua")
	t.Setenv("CLOUDFLARE_BYPASS_HEADER", "X-Bypass")
	t.Setenv("CLOUDFLARE_BYPASS_VALUE", "v")
	t.Setenv("INGEST_MAX_INFLIGHT", "8")
	t.Setenv("BOT_TIMEZONE", "Europe/London")

	s, err := Load(newEnvViper())
	require.NoError(t, err)

	assert.Equal(t, "tok", s.DiscordToken)
	assert.Equal(t, []string{"1", "2", "3"}, s.DebugGuildIDs)
	assert.Equal(t, CobaltSettings{
		APIURL:       "https://cobalt.example.com/",
		APIKey:       "key",
		UserAgent:    "ua",
		BypassHeader: "X-Bypass",
		BypassValue:  "v",
		Timeout:      30 * time.Second,
	}, s.Cobalt)
	assert.Equal(t, 8, s.MaxInFlight)
	assert.Equal(t, "Europe/London", s.Timezone.String())
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	v.Set("discord.token", "tok")
	v.Set("cobalt.api_url", "http://localhost:9000")

	s, err := Load(v)
	require.NoError(t, err)

	assert.Empty(t, s.DebugGuildIDs)
	assert.Equal(t, 60*time.Second, s.FetchTimeout)
	assert.Zero(t, s.MediaMaxBytes)
	assert.Equal(t, 4, s.MaxInFlight)
	assert.Equal(t, "guild_configs.json", s.ConfigFile)
	assert.Equal(t, "data/showcase_history.db", s.HistoryDB)
	assert.Equal(t, "info", s.LogLevel)
	assert.Empty(t, s.MetricsAddr)
	assert.Equal(t, time.Local, s.Timezone)
}

func TestLoadRequiredSettings(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want string
	}{
		{name: "no token", set: map[string]string{"cobalt.api_url": "u"}, want: "DISCORD_TOKEN"},
		{name: "no cobalt url", set: map[string]string{"discord.token": "t"}, want: "COBALT_API_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.ErrorIs(t, err, ErrMissingSetting)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadInvalidTimezone(t *testing.T) {
	v := viper.New()
	v.Set("discord.token", "t")
	v.Set("cobalt.api_url", "u")
	v.Set("bot.timezone", "Mars/Olympus")

	_, err := Load(v)
	require.Error(t, err)
}
