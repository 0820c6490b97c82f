package dependency

import (
	"presence-svc/src/clients"
	"presence-svc/src/internal/config"
	"presence-svc/src/internal/kv"
	"presence-svc/src/internal/loginsession"
	"presence-svc/src/internal/middleware"
	"presence-svc/src/internal/presence"
	"presence-svc/src/internal/session"
	"presence-svc/src/internal/token"
	"presence-svc/src/internal/user"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Manager struct {
	Router          *gin.Engine
	Config          *config.Configuration
	Mongodb         *clients.MongoDB
	Redis           *clients.RedisClient
	RabbitMQ        *clients.RabbitMQ
	Publisher       clients.EventPublisher
	UserRepository  user.Repository
	UserLoader      *user.Loader
	Tracker         *presence.Tracker
	PresenceHandler *presence.Handler
	SessionService  session.Service
	SessionHandler  session.Handler
	LoginSessions   *loginsession.Service
	LoginHandler    *loginsession.Handler
	AuthMiddleware  *middleware.AuthMiddleware
	KVHandler       *kv.Handler

	closers []func()
}

// NewDependencyManager wires the services. mongodb and rabbitMQ may be nil:
// the roster then lives in memory and presence events are dropped.
func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) (*Manager, error) {
	m := &Manager{
		Router:   router,
		Config:   cfg,
		Mongodb:  mongodb,
		Redis:    redisClient,
		RabbitMQ: rabbitMQ,
	}

	var users user.Repository
	if mongodb != nil {
		users = user.NewUserRepository(mongodb, cfg.Database.UserCollection)
	} else {
		logrus.Warn("No database configured, user roster is kept in memory")
		users = user.NewMemoryRepository()
	}

	if cfg.Cache.Enabled {
		cached, err := user.NewCachedRepository(users, &cfg.Cache)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, cached.Close)
		users = cached
	}
	m.UserRepository = users

	m.Publisher = clients.NopPublisher{}
	if rabbitMQ != nil {
		publisher, err := clients.NewActivityPublisher(&cfg.Messaging, rabbitMQ.Channel)
		if err != nil {
			logrus.WithError(err).Warn("Presence events will not be published")
		} else {
			m.Publisher = publisher
		}
	}

	timeout := time.Duration(cfg.App.Timeout) * time.Second
	tokens := token.NewManager(cfg.Security.JwtKey, time.Duration(cfg.Security.AccessTokenMinutes)*time.Minute)

	m.Tracker = presence.NewTracker(redisClient, cfg.Presence.OnlineTTL())
	m.PresenceHandler = presence.NewHandler(m.Tracker, timeout)
	m.UserLoader = user.NewLoader(users, m.Tracker, cfg.Security.BcryptCost)

	m.LoginSessions = loginsession.NewService(redisClient, users, m.Tracker, tokens, m.Publisher, cfg.Session.Expiration())
	m.LoginHandler = loginsession.NewHandler(cfg, m.LoginSessions)

	m.SessionService = session.NewSessionService(m.Tracker, users, m.Publisher, m.LoginSessions)
	m.SessionHandler = session.NewHandler(cfg, m.SessionService)

	m.AuthMiddleware = middleware.NewAuthMiddleware(tokens, m.LoginSessions)
	m.KVHandler = kv.NewHandler(kv.NewService(redisClient), timeout)

	return m, nil
}

// Close releases in-process resources. Client connections are closed by their owner.
func (m *Manager) Close() {
	for _, closeFn := range m.closers {
		closeFn()
	}
}
