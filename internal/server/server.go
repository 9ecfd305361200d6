package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/config"
)

type Server struct {
	cfg     *config.Config
	http    *http.Server
	limiter limiterCloser
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	router, limiter, err := s.setupRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}
	s.limiter = limiter

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.AgentTimeout)*3*time.Second + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)

		if closeErr := s.limiter.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing rate limiter")
		}

		return err
	case err := <-errCh:
		s.limiter.Close()
		return err
	}
}
