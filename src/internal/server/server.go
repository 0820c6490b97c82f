package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"presence-svc/src/clients"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/dependency"
	"presence-svc/src/internal/user"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg        *config.Configuration
	deps       *dependency.Manager
	httpServer *http.Server
}

func New(cfg *config.Configuration) *Server {
	return &Server{cfg: cfg}
}

// Connect opens the backing stores and wires the dependency graph.
// Redis is required. MongoDB and RabbitMQ are optional.
func Connect(cfg *config.Configuration, router *gin.Engine) (*dependency.Manager, error) {
	redisClient, err := clients.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	var mongodb *clients.MongoDB
	if cfg.Database.Url != "" {
		mongodb, err = clients.NewMongoDB(&cfg.Database)
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("mongodb: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.App.Timeout)*time.Second)
		err = user.EnsureIndexes(ctx, mongodb, cfg.Database.UserCollection)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Failed to create user indexes")
		}
	}

	var rabbitMQ *clients.RabbitMQ
	if cfg.Messaging.Enabled {
		rabbitMQ, err = clients.NewRabbitMQ(&cfg.Messaging)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, presence events will not be published")
		}
	}

	deps, err := dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, cfg)
	if err != nil {
		closeClients(mongodb, redisClient, rabbitMQ)
		return nil, err
	}

	return deps, nil
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
func (s *Server) Start() error {
	gin.SetMode(s.cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	deps, err := Connect(s.cfg, router)
	if err != nil {
		return err
	}
	s.deps = deps
	defer s.close()

	SetupRoutes(deps)

	if s.cfg.App.SeedOnStart && s.cfg.App.SeedFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		count, err := deps.UserLoader.LoadFile(ctx, s.cfg.App.SeedFile)
		cancel()
		if err != nil {
			log.WithError(err).Error("Failed to seed users")
		} else {
			log.WithField("count", count).Info("Users seeded")
		}
	}

	s.httpServer = &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func (s *Server) close() {
	if s.deps != nil {
		Disconnect(s.deps)
	}
}

// Disconnect releases everything Connect opened
func Disconnect(deps *dependency.Manager) {
	deps.Close()
	closeClients(deps.Mongodb, deps.Redis, deps.RabbitMQ)
}

func closeClients(mongodb *clients.MongoDB, redisClient *clients.RedisClient, rabbitMQ *clients.RabbitMQ) {
	if rabbitMQ != nil {
		_ = rabbitMQ.Close()
	}
	if mongodb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = mongodb.Close(ctx)
		cancel()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
