package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// onSignal waits for the first signal on sig, runs stops in order, then
// shuts srv down. The returned channel closes once all of it has finished.
func onSignal(sig <-chan os.Signal, srv shutdowner, timeout time.Duration, stops ...func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig

		log.Info().Msg("Shutting down...")
		for _, stop := range stops {
			stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()
	return done
}
