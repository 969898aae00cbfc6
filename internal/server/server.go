package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/morerecipes/apiserver/config"
	"github.com/morerecipes/apiserver/internal/auth"
	"github.com/morerecipes/apiserver/internal/db"
	"github.com/morerecipes/apiserver/internal/handlers"
	"github.com/morerecipes/apiserver/internal/logging"
	"github.com/morerecipes/apiserver/internal/mq"
	"github.com/morerecipes/apiserver/internal/services"
	"github.com/morerecipes/apiserver/internal/storage"
	"github.com/morerecipes/apiserver/internal/store"
	"github.com/morerecipes/apiserver/internal/store/memstore"
	"github.com/morerecipes/apiserver/internal/validation"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	db      *sql.DB
	storage *storage.Storage
	broker  *mq.MQ
}

type repositories struct {
	users   services.UserRepository
	recipes services.RecipeRepository
}

// New wires the store, optional backends, services and routes described by cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.New(cfg.Log)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	s := &Server{logger: logger}
	repos, err := s.openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if s.storage, err = storage.Open(ctx, cfg.Storage); err != nil {
		s.close()
		return nil, err
	}
	if s.broker, err = mq.Open(ctx, cfg.MQ); err != nil {
		s.close()
		return nil, err
	}

	v := validation.New()
	var events *services.EventPublisher
	if s.broker != nil {
		events = services.NewEventPublisher(s.broker, cfg.MQ.EventsChannel, logger)
	}
	userService := services.NewUserService(repos.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, v, cfg.Auth.TokenTTL, logger)
	recipeService := services.NewRecipeService(repos.recipes, repos.users, v, cfg.Pagination, events, logger)
	var imageService *services.ImageService
	if s.storage != nil {
		imageService = services.NewImageService(s.storage, repos.users)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, tokens, logger)
	})
	router.Route("/recipes", func(r chi.Router) {
		handlers.RecipeRouter(r, recipeService, imageService, tokens, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", port,
		"db_driver", cfg.Database.Driver,
		"storage_backend", cfg.Storage.Backend,
		"mq_backend", cfg.MQ.Backend,
	)
	return s, nil
}

func (s *Server) openStore(ctx context.Context, cfg config.DatabaseConfig) (repositories, error) {
	switch cfg.Driver {
	case "memory":
		st := memstore.New()
		return repositories{users: st.Users(), recipes: st.Recipes()}, nil
	case "", "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		s.db = conn
		return repositories{
			users:   store.NewUserRepository(conn),
			recipes: store.NewRecipeRepository(conn),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then closes owned connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Error("close mq", "error", err)
		}
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			s.logger.Error("close storage", "error", err)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
