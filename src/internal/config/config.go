package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultConfigPath = "src/internal/config/cfg.yml"

type Configuration struct {
	Logs      LogsSettings     `mapstructure:"logs"`
	App       Application      `mapstructure:"app"`
	Database  Database         `mapstructure:"database"`
	Messaging MessagingConfig  `mapstructure:"messaging"`
	Redis     Redis            `mapstructure:"redis"`
	Security  SecuritySettings `mapstructure:"security"`
	Server    ServerSettings   `mapstructure:"server"`
	Presence  PresenceConfig   `mapstructure:"presence"`
	Session   SessionConfig    `mapstructure:"session"`
	Cache     CacheConfig      `mapstructure:"cache"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name        string `mapstructure:"name"`
	Timeout     int    `mapstructure:"timeout"`
	Version     string `mapstructure:"version"`
	SeedOnStart bool   `mapstructure:"seed-on-start"`
	SeedFile    string `mapstructure:"seed-file"`
}

type Database struct {
	Url            string `mapstructure:"url"`
	DbName         string `mapstructure:"dbname"`
	UserCollection string `mapstructure:"user-collection"`
	Timeout        int    `mapstructure:"timeout"`
}

type MessagingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Url          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange-type"`
	RoutingKey   string `mapstructure:"routing-key"`
	Durable      bool   `mapstructure:"durable"`
	AutoDelete   bool   `mapstructure:"auto-delete"`
	Internal     bool   `mapstructure:"internal"`
	NoWait       bool   `mapstructure:"no-wait"`
}

type Redis struct {
	Url          string `mapstructure:"url"`
	Password     string `mapstructure:"password"`
	Db           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool-size"`
	DialTimeout  int    `mapstructure:"dial-timeout"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	ScanCount    int64  `mapstructure:"scan-count"`
}

type SecuritySettings struct {
	JwtKey             string `mapstructure:"jwt-key"`
	AccessTokenMinutes int    `mapstructure:"access-token-minutes"`
	RequireAdminAuth   bool   `mapstructure:"require-admin-auth"`
	BcryptCost         int    `mapstructure:"bcrypt-cost"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

type PresenceConfig struct {
	OnlineTTLSeconds int `mapstructure:"online-ttl-seconds"`
}

type SessionConfig struct {
	ExpirationMinutes       int `mapstructure:"expiration-minutes"`
	DefaultExtensionMinutes int `mapstructure:"default-extension-minutes"`
}

type CacheConfig struct {
	Enabled     bool  `mapstructure:"enabled"`
	MaxCost     int64 `mapstructure:"max-cost"`
	NumCounters int64 `mapstructure:"num-counters"`
	BufferItems int64 `mapstructure:"buffer-items"`
	TTLSeconds  int   `mapstructure:"ttl-seconds"`
}

// OnlineTTL returns the presence marker TTL
func (p PresenceConfig) OnlineTTL() time.Duration {
	return time.Duration(p.OnlineTTLSeconds) * time.Second
}

// Expiration returns the login session TTL
func (s SessionConfig) Expiration() time.Duration {
	return time.Duration(s.ExpirationMinutes) * time.Minute
}

func Load() *Configuration {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		logrus.Panicf("Error reading config file, %s", err)
	}
	logrus.Info("Configuration loaded")

	return cfg
}

// LoadFrom reads the yml file at path and applies environment overrides
func LoadFrom(path string) (*Configuration, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func read(path string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyEnv(cfg *Configuration) {
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Messaging.Url = rabbitmqUrl
	}

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey != "" {
		cfg.Security.JwtKey = jwtKey
	}

	onlineTTL := os.Getenv("ONLINE_TTL_SECONDS")
	if onlineTTL != "" {
		if ttl, err := strconv.Atoi(onlineTTL); err == nil {
			cfg.Presence.OnlineTTLSeconds = ttl
		}
	}
}

func applyDefaults(cfg *Configuration) {
	if cfg.Presence.OnlineTTLSeconds <= 0 {
		cfg.Presence.OnlineTTLSeconds = 300
	}
	if cfg.Session.ExpirationMinutes <= 0 {
		cfg.Session.ExpirationMinutes = 30
	}
	if cfg.Session.DefaultExtensionMinutes <= 0 {
		cfg.Session.DefaultExtensionMinutes = 30
	}
	if cfg.Security.AccessTokenMinutes <= 0 {
		cfg.Security.AccessTokenMinutes = 15
	}
	if cfg.App.Timeout <= 0 {
		cfg.App.Timeout = 5
	}
	if cfg.Redis.ScanCount <= 0 {
		cfg.Redis.ScanCount = 100
	}
}
