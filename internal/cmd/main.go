package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/gateway"
	"github.com/sendou-ink/sendou.ink-sub003/internal/outbox"
)

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// configure zerolog console output and level
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	database, dbCfg, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("setup database")
	}
	defer database.Close()

	clock := clockwork.NewRealClock()
	services := setupServices(database, config, clock)

	// signal-aware context
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// outbox relay
	var publisher outbox.Publisher
	natsURL := os.Getenv("NATS_URL")
	if natsURL != "" {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = natsURL
		jsPublisher, err := outbox.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create JetStream publisher")
		}
		defer jsPublisher.Close()
		publisher = jsPublisher
	} else {
		log.Warn().Msg("NATS_URL not set, events will only be logged")
		publisher = outbox.LogPublisher{}
	}

	relayCfg := outbox.DefaultRelayConfig()
	relayCfg.DatabaseURL = dbCfg.DSN()
	relay, err := outbox.NewRelay(outbox.NewRepository(db.New(database)), publisher, relayCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox relay")
	}
	go func() {
		if err := relay.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox relay exited")
		}
	}()

	// WebSocket fan-out
	hub := gateway.NewHub(gateway.DefaultHubConfig())
	go hub.Run(ctx)
	wsHandler := gateway.NewWebSocketHandler(hub)

	if natsURL != "" {
		consumerCfg := gateway.DefaultJetStreamConsumerConfig()
		consumerCfg.URL = natsURL
		consumer, err := gateway.NewEventConsumer(hub, consumerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create event consumer")
		}
		defer consumer.Stop()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer exited")
			}
		}()
	}

	// empty-group sweeper
	if err := services.Sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start group sweeper")
	}
	defer func() {
		if err := services.Sweeper.Stop(); err != nil {
			log.Error().Err(err).Msg("stop group sweeper")
		}
	}()

	api := gateway.NewAPI(
		services.Groups,
		services.Matches,
		services.Reports,
		services.Leaderboards,
		config.Season,
		clock,
	)
	server := setupServer(api, wsHandler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting HTTP server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
		log.Info().Msg("graceful shutdown complete")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server exited unexpectedly")
		}
	}
}
