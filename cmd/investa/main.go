package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/imellon/go-investa/internal/api/rest"
	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/logger"
)

const shutdownGrace = 5 * time.Second

func main() {
	log := logger.InitLog()
	wg := &sync.WaitGroup{}

	// the signal context also stops the notification outbox workers
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfiguration()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration failed")
	}
	cfg.ParseFlags()

	server, err := rest.InitServer(ctx, cfg, log, wg)
	if err != nil {
		log.Fatal().Err(err).Msg("server initialization failed")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Info().Str("address", cfg.ServerConfig.ServerAddress).Msg("shutting down")
		ctxTO, cancelTO := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancelTO()
		if err := server.Shutdown(ctxTO); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("address", cfg.ServerConfig.ServerAddress).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped unexpectedly")
	}
	wg.Wait()
	log.Info().Msg("server shutdown succeeded")
}
