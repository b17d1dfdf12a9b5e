package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boomerbox-bot/bot"
	"boomerbox-bot/command"
	"boomerbox-bot/config"
	"boomerbox-bot/database"
	"boomerbox-bot/handlers"
	"boomerbox-bot/ingest"
	"boomerbox-bot/media"
	"boomerbox-bot/metrics"
	"boomerbox-bot/showcase"
	"boomerbox-bot/utils"

	"github.com/spf13/viper"
)

func main() {
	config.LoadConfig()
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := utils.NewLogger(settings.LogLevel, os.Stdout)
	logger.Info().Msg("starting BoomerBox bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := database.LoadGuildStore(settings.ConfigFile, logger)

	var history *database.HistoryDB
	if settings.HistoryDB != "" {
		history, err = database.InitHistoryDB(settings.HistoryDB)
		if err != nil {
			logger.Error().Err(err).Str("path", settings.HistoryDB).Msg("showcase history disabled")
			history = nil
		} else {
			defer history.Close()
		}
	}

	auth, err := utils.NewAuth(viper.GetViper())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid commands configuration")
	}

	httpClient := &http.Client{}
	resolver := media.NewResolver(httpClient, media.ResolverConfig{
		BaseURL:           settings.Cobalt.APIURL,
		APIKey:            settings.Cobalt.APIKey,
		BypassHeader:      settings.Cobalt.BypassHeader,
		BypassValue:       settings.Cobalt.BypassValue,
		UserAgent:         settings.Cobalt.UserAgent,
		Timeout:           settings.Cobalt.Timeout,
		RequestsPerSecond: settings.Cobalt.RequestsPerSecond,
	})
	fetcher := media.NewFetcher(httpClient, settings.FetchTimeout, settings.MediaMaxBytes)

	var showcaser *showcase.Showcaser
	scheduler, err := bot.NewScheduler(logger, settings.Timezone, func(ctx context.Context, now time.Time) {
		showcaser.Tick(ctx, now)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("error initializing scheduler")
	}

	b, err := bot.NewBot(settings, scheduler, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error initializing bot")
	}
	utils.InitLogger(b.Session, settings.AdminChannelID)

	opts := []showcase.Option{
		showcase.WithLocation(settings.Timezone),
		showcase.WithSelfID(b.SelfID),
	}
	var counter handlers.History
	if history != nil {
		opts = append(opts, showcase.WithHistory(history))
		counter = history
	}
	showcaser = showcase.New(b.Session, store, fetcher, logger, opts...)

	pipeline := ingest.New(b.Session, resolver, fetcher, logger, ingest.Options{MaxInFlight: settings.MaxInFlight})
	h := handlers.New(ctx, store, showcaser, pipeline, counter, auth, logger)

	b.RegisterCommands(command.GetCommandDefinitions())

	var metricsServer *metrics.Server
	if settings.MetricsAddr != "" {
		metricsServer = metrics.NewServer(logger, b.Ready)
		go func() {
			if err := metricsServer.Start(settings.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	if err := b.Start(func(b *bot.Bot) { handlers.Register(b, h) }); err != nil {
		logger.Fatal().Err(err).Msg("error starting bot")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics server shutdown")
		}
		cancel()
	}
	b.Stop()
}
