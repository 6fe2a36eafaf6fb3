package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/internal/auth"
	"github.com/contactsbook/apiserver/internal/db"
	"github.com/contactsbook/apiserver/internal/handlers"
	"github.com/contactsbook/apiserver/internal/logging"
	"github.com/contactsbook/apiserver/internal/metrics"
	"github.com/contactsbook/apiserver/internal/mq"
	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/storage"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger
	db         *sql.DB
	mongo      *mongo.Client
	mq         *mq.MQ
}

type repositories struct {
	users    services.UserRepository
	contacts services.ContactRepository
	db       *sql.DB
	mongo    *mongo.Client
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET is required: %w", err)
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv := &Server{logger: logger, db: repos.db, mongo: repos.mongo}

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		srv.closeBackends(ctx)
		return nil, fmt.Errorf("open storage: %w", err)
	}

	queue, err := mq.Open(ctx, cfg)
	if err != nil {
		srv.closeBackends(ctx)
		return nil, fmt.Errorf("open mq: %w", err)
	}
	srv.mq = queue

	var publisher services.Publisher
	if queue != nil {
		publisher = queue
	}
	events := services.NewVerificationEvents(publisher, cfg.MQ.VerificationChannel, cfg.Avatar.PublicBaseURL)

	userService := services.NewUserService(repos.users, auth.NewPasswordHasher(cfg.Auth.BcryptCost), tokens, events, logger)
	avatarService := services.NewAvatarService(repos.users, objects, services.AvatarOptions{
		TmpDir:       cfg.Avatar.TmpDir,
		Size:         cfg.Avatar.Size,
		StrictResize: cfg.Avatar.StrictResize,
	}, logger)
	contactService := services.NewContactService(repos.contacts)

	authMiddleware := handlers.RequireAuth(auth.NewAuthenticator(tokens, repos.users), logger)
	requestMetrics := metrics.New()

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(logger),
		requestMetrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", requestMetrics.Handler())
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, avatarService, authMiddleware, logger)
	})
	router.Route("/avatars", func(r chi.Router) {
		handlers.AvatarRouter(r, avatarService, logger)
	})
	router.Route("/contacts", func(r chi.Router) {
		handlers.ContactRouter(r, contactService, authMiddleware, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo, "":
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return repositories{}, fmt.Errorf("open mongo: %w", err)
		}
		users := store.NewMongoUserRepository(database)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return repositories{}, fmt.Errorf("ensure indexes: %w", err)
		}
		return repositories{
			users:    users,
			contacts: store.NewMongoContactRepository(database),
			mongo:    client,
		}, nil
	case config.DriverPostgres:
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		return repositories{
			users:    store.NewUserRepository(dbConn),
			contacts: store.NewContactRepository(dbConn),
			db:       dbConn,
		}, nil
	case config.DriverMemory:
		return repositories{
			users:    store.NewMemoryUserRepository(),
			contacts: store.NewMemoryContactRepository(),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends(ctx)
	return err
}

func (s *Server) closeBackends(ctx context.Context) {
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.logger.Warn("close mq", zap.Error(err))
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			s.logger.Warn("disconnect mongo", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("close postgres", zap.Error(err))
		}
	}
}
