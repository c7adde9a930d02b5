package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/roommate/roomlink/internal/adapters/http"
	"github.com/roommate/roomlink/internal/adapters/local"
	"github.com/roommate/roomlink/internal/adapters/media"
	"github.com/roommate/roomlink/internal/adapters/poll"
	"github.com/roommate/roomlink/internal/adapters/rtc"
	signaling "github.com/roommate/roomlink/internal/adapters/signal"
	"github.com/roommate/roomlink/internal/app"
	"github.com/roommate/roomlink/internal/app/orch"
	"github.com/roommate/roomlink/internal/config"
	"github.com/roommate/roomlink/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	store := local.NewStore(
		domain.Identity{UserID: domain.UserID(cfg.UserID), DisplayName: cfg.DisplayName},
		domain.LocalProfile{DisplayName: cfg.DisplayName, UpdatedAt: time.Now().UnixMilli()},
	)
	if path := os.Getenv("ROOMLINK_HOUSES"); path != "" {
		if err := store.LoadHouses(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to load houses")
		}
	}

	channel := signaling.NewChannel(cfg.SignalingURL, cfg.ReconnectDelay)
	registry := app.NewSubscriptionRegistry(channel, store, cfg.Account)
	announcer := app.NewAnnouncer(channel, store, store, store)

	restClient := poll.NewClient(cfg.SignalingURL)
	poller := poll.NewPoller(restClient, domain.UserID(cfg.UserID), cfg.PollInterval)
	defer poller.StopAll()

	// Secondary delivery path: poll each house's event queue alongside
	// the websocket subscription.
	if houses, err := store.ListHouses(ctx); err == nil {
		for _, h := range houses {
			house := h.SigningPubkey
			poller.StartPolling(ctx, house, func(events []domain.HouseEvent) {
				log.Info().Str("house", string(house)).Int("count", len(events)).Msg("house events")
			})
		}
	}

	capture, err := media.NewCaptureSource()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create capture source")
	}
	voice := orch.New(channel, capture, rtc.NewDialer(rtc.DefaultConfig()), &media.RendererFactory{})

	engine := app.NewEngine(
		channel,
		registry,
		announcer,
		app.NewPresenceSync(),
		app.NewProfileSync(),
		app.NewHintSync(registry, restClient, store),
		voice,
	)

	go channel.Run(ctx)

	r := router.SetupRouter(cfg, engine)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("roomlink started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	voice.LeaveVoice()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Exited gracefully")
}
