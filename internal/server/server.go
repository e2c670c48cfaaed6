package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hostrate/apiserver/config"
	"github.com/hostrate/apiserver/internal/auth"
	"github.com/hostrate/apiserver/internal/db"
	"github.com/hostrate/apiserver/internal/handlers"
	"github.com/hostrate/apiserver/internal/logging"
	"github.com/hostrate/apiserver/internal/mq"
	"github.com/hostrate/apiserver/internal/services"
	"github.com/hostrate/apiserver/internal/storage"
	"github.com/hostrate/apiserver/internal/store"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and the clients it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	mq         *mq.MQ
	objects    *storage.Storage
	logger     logrus.FieldLogger
}

// New constructs a Server from config. The database must be reachable; the
// event broker and object storage are optional.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Server, error) {
	signer, err := auth.NewJWTSigner(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	opts := []services.HostServiceOption{services.WithLogger(logger)}

	broker, err := mq.Open(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("event publishing disabled")
	case err != nil:
		_ = dbConn.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	default:
		opts = append(opts, services.WithEvents(broker))
		logger.WithField("backend", cfg.MQ.Backend).Info("event publishing enabled")
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		logger.Info("avatar storage disabled")
	case err != nil:
		closeQuietly(broker)
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	default:
		opts = append(opts, services.WithAvatars(objects, cfg.Storage.MaxAvatarBytes))
		logger.WithField("backend", cfg.Storage.Backend).WithField("bucket", objects.Bucket()).Info("avatar storage enabled")
	}

	hostService, err := services.NewHostService(
		store.NewHostRepository(dbConn),
		store.NewRatingRepository(dbConn),
		auth.NewBcryptHasher(cfg.BcryptCost),
		signer,
		opts...,
	)
	if err != nil {
		closeQuietly(broker)
		closeStorage(objects)
		_ = dbConn.Close()
		return nil, err
	}

	router := NewRouter(
		handlers.NewHostHandler(hostService, logger, cfg.Storage.MaxAvatarBytes),
		signer,
		dbConn,
		logger,
	)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		mq:         broker,
		objects:    objects,
		logger:     logger,
	}, nil
}

// NewRouter builds the chi router with middleware and all host routes.
func NewRouter(hostHandler *handlers.HostHandler, verifier handlers.TokenVerifier, pinger handlers.Pinger, logger logrus.FieldLogger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(logger),
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz(pinger))
	handlers.HostRouter(router, hostHandler, verifier)
	return router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the database, broker and
// object storage client.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeQuietly(s.mq)
	closeStorage(s.objects)
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

func closeQuietly(broker *mq.MQ) {
	if broker != nil {
		_ = broker.Close()
	}
}

func closeStorage(objects *storage.Storage) {
	if objects != nil {
		_ = objects.Close()
	}
}
