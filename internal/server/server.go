// Package server exposes the metadata codec over HTTP for inspection and
// tooling. It does not move edge data between peers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danmuck/edgexchange/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	NodeName = "edgectl"
	Version  = "0.1.0"

	// MaxBlobBytes bounds request bodies on the codec endpoints.
	MaxBlobBytes = 1 << 20
)

type Config struct {
	Addr        string
	CorsOrigins []string
	// Token, when set, is required as a bearer token on /v1 routes.
	Token string
	// TLSCert and TLSKey switch Run to HTTPS when both are set.
	TLSCert string
	TLSKey  string
}

type Server struct {
	cfg      Config
	logger   zerolog.Logger
	router   *gin.Engine
	appeared time.Time
	http     *http.Server
}

// New builds the routed engine. A CORS origin list that cors rejects is
// returned as an error.
func New(cfg Config, logger zerolog.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger, NodeName))
	r.Use(observability.RequestMetricsMiddleware(NodeName))
	if len(cfg.CorsOrigins) > 0 {
		corsCfg := cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}
		if err := corsCfg.Validate(); err != nil {
			return nil, fmt.Errorf("server: cors: %w", err)
		}
		r.Use(cors.New(corsCfg))
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   r,
		appeared: time.Now(),
	}
	s.RegisterRoutes()
	return s, nil
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			s.logger.Info().Str("addr", s.cfg.Addr).Msg("server listening (tls)")
			errCh <- s.http.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
			return
		}
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info().Msg("server stopped")
		return nil
	}
}
