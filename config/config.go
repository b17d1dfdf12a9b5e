package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSetting is returned when a setting required for startup is absent.
var ErrMissingSetting = errors.New("missing required setting")

// Settings is the typed view of everything the bot reads from the environment and config.yaml.
type Settings struct {
	DiscordToken   string
	DebugGuildIDs  []string
	AdminChannelID string
	Timezone       *time.Location

	Cobalt CobaltSettings

	FetchTimeout  time.Duration
	MediaMaxBytes int64
	MaxInFlight   int

	ConfigFile string
	HistoryDB  string

	LogLevel    string
	MetricsAddr string
}

// CobaltSettings configures the cobalt resolution API client.
type CobaltSettings struct {
	APIURL            string
	APIKey            string
	UserAgent         string
	BypassHeader      string
	BypassValue       string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// LoadConfig loads configuration from a .env file and config.yaml into the global viper instance.
// Load order:
// 1. .env (exported as environment variables)
// 2. config.yaml in the working directory (optional)
// Environment variables override config file values with the same key, "." mapped to "_".
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("No config.yaml found, using environment variables and defaults.")
		} else {
			panic(fmt.Errorf("fatal error parsing config.yaml: %w", err))
		}
	}
}

// SetDefaults registers the default value of every optional setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cobalt.timeout", 30*time.Second)
	v.SetDefault("cobalt.requests_per_second", 0)
	v.SetDefault("media.fetch_timeout", 60*time.Second)
	v.SetDefault("media.max_bytes", 0)
	v.SetDefault("ingest.max_inflight", 4)
	v.SetDefault("storage.config_file", "guild_configs.json")
	v.SetDefault("storage.history_db", "data/showcase_history.db")
	v.SetDefault("log.level", "info")
}

// Load builds Settings from v. It fails only when a required setting is missing or invalid.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	s := &Settings{
		DiscordToken:   v.GetString("discord.token"),
		DebugGuildIDs:  splitList(v.GetString("discord.debug_guild_ids")),
		AdminChannelID: v.GetString("bot.admin_channel_id"),
		Cobalt: CobaltSettings{
			APIURL:            v.GetString("cobalt.api_url"),
			APIKey:            v.GetString("cobalt.api_key"),
			UserAgent:         v.GetString("cobalt.user_agent"),
			BypassHeader:      v.GetString("cloudflare.bypass_header"),
			BypassValue:       v.GetString("cloudflare.bypass_value"),
			Timeout:           v.GetDuration("cobalt.timeout"),
			RequestsPerSecond: v.GetFloat64("cobalt.requests_per_second"),
		},
		FetchTimeout:  v.GetDuration("media.fetch_timeout"),
		MediaMaxBytes: v.GetInt64("media.max_bytes"),
		MaxInFlight:   v.GetInt("ingest.max_inflight"),
		ConfigFile:    v.GetString("storage.config_file"),
		HistoryDB:     v.GetString("storage.history_db"),
		LogLevel:      v.GetString("log.level"),
		MetricsAddr:   v.GetString("metrics.addr"),
	}

	if s.DiscordToken == "" {
		return nil, fmt.Errorf("%w: DISCORD_TOKEN", ErrMissingSetting)
	}
	if s.Cobalt.APIURL == "" {
		return nil, fmt.Errorf("%w: COBALT_API_URL", ErrMissingSetting)
	}

	s.Timezone = time.Local
	if tz := strings.TrimSpace(v.GetString("bot.timezone")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid bot.timezone %q: %w", tz, err)
		}
		s.Timezone = loc
	}

	return s, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
