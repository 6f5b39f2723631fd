package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ninthcircle/diceroller/internal/config"
	"github.com/ninthcircle/diceroller/internal/metrics"
	"github.com/ninthcircle/diceroller/internal/ratelimit"
	"github.com/ninthcircle/diceroller/internal/repository"
	"github.com/ninthcircle/diceroller/internal/roller"
	dtls "github.com/ninthcircle/diceroller/internal/tls"
	"github.com/ninthcircle/diceroller/internal/web/auth"
	"github.com/ninthcircle/diceroller/internal/web/handlers"
	"github.com/ninthcircle/diceroller/internal/web/middleware"
	"github.com/ninthcircle/diceroller/internal/web/static"
	"github.com/ninthcircle/diceroller/internal/web/views"
	"github.com/ninthcircle/diceroller/internal/web/worker"
)

type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	rolls    *roller.Service
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	views    *views.Engine
	logins   *ratelimit.Limiter
	oidc     *auth.OIDCProvider
	http     *http.Server
}

func New(cfg *config.Config, rolls *roller.Service, users *repository.UserRepository, sessions *repository.SessionRepository, logger *slog.Logger) (*Server, error) {
	viewEngine, err := views.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize views: %w", err)
	}

	// discovery context also backs key refreshes, so it is never cancelled
	oidcProvider, err := auth.NewOIDCProvider(context.Background(), cfg.Auth.OIDC)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		rolls:    rolls,
		users:    users,
		sessions: sessions,
		views:    viewEngine,
		logins: ratelimit.New(ratelimit.Config{
			PerMinute: cfg.Auth.LoginAttemptsPerMinute,
			PerHour:   cfg.Auth.LoginAttemptsPerHour,
		}),
		oidc: oidcProvider,
	}

	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the router with every route and middleware attached
func (s *Server) Handler() http.Handler {
	h := handlers.New(s.cfg, s.rolls, s.users, s.sessions, s.views, s.logins, s.oidc, s.logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", h.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", static.Handler()))

	r.Get("/auth/login", h.LoginPage)
	r.Post("/auth/login", h.Login)
	r.Get("/auth/logout", h.Logout)
	if s.oidc != nil {
		r.Get("/auth/oidc/login", h.OIDCLogin)
		r.Get("/auth/oidc/callback", h.OIDCCallback)
	}

	// public widget
	r.Get("/embed/dice-rolls", h.DiceRolls)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(s.sessions, s.logger))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/dice-roller", http.StatusSeeOther)
		})
		r.Get("/admin/dice-roller", h.DiceRoller)
		r.Post("/admin/dice-roller", h.DiceRoller)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	pruners := []worker.Pruner{s.logins}
	if s.oidc != nil {
		pruners = append(pruners, s.oidc)
	}
	janitor := worker.New(s.sessions, s.logger, worker.Config{Interval: s.cfg.Auth.CleanupInterval}, pruners...)
	janitor.Start()
	defer janitor.Stop()

	if s.cfg.Server.TLS.Enabled {
		tlsConfig, err := dtls.ServerConfig(s.cfg.Server.TLS)
		if err != nil {
			return err
		}
		s.http.TLSConfig = tlsConfig
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting web server", "addr", s.cfg.Server.ListenAddr, "tls", s.cfg.Server.TLS.Enabled, "acme", s.cfg.Server.TLS.ACME.Enabled)
		var err error
		if s.cfg.Server.TLS.Enabled {
			err = s.http.ListenAndServeTLS("", "")
		} else {
			err = s.http.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		return nil
	}
}
