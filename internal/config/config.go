package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/misteraverin/notification-service/pkg/logger"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every env-driven setting of the service. Only this
// struct may be used to read configuration values, no direct access to
// env or any other config source should be made elsewhere.
type Config struct {
	AppEnv   string `env:"APP_ENV,default=dev"`
	AppName  string `env:"APP_NAME,default=notification_service"`
	AppDebug bool   `env:"APP_DEBUG,default=true"`

	HttpListenAddr    string `env:"HTTP_LISTEN_ADDR,default=:8080"`
	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR,default=:9090"`
	MetricsURI        string `env:"METRICS_URI,default=/metrics"`
	PromNamespace     string `env:"PROM_NAMESPACE,default=notification"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	// MigrationsDir, when set, makes the API apply goose migrations on
	// startup against the write database.
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	RedisAddr      string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername  string `env:"REDIS_USER"`
	RedisPassword  string `env:"REDIS_PASS"`
	RedisDatabase  int    `env:"REDIS_DATABASE"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	// Dispatch engine settings. Concurrency 1 keeps the original
	// one-customer-at-a-time behavior.
	DispatchInterval    time.Duration `env:"DISPATCH_INTERVAL,default=1m"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY,default=1"`
	DispatchMaxTries    int           `env:"DISPATCH_MAX_TRIES,default=3"`
	DispatchRetryDelay  time.Duration `env:"DISPATCH_RETRY_DELAY,default=500ms"`

	QueueStream       string        `env:"QUEUE_STREAM,default=mailout-runs"`
	QueueGroup        string        `env:"QUEUE_GROUP,default=dispatchers"`
	QueueConsumer     string        `env:"QUEUE_CONSUMER,default=dispatcher"`
	QueuePollInterval time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize    int64         `env:"QUEUE_BATCH_SIZE,default=10"`
	QueueMaxLen       int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueClaimMinIdle time.Duration `env:"QUEUE_CLAIM_MIN_IDLE,default=30s"`

	FbrqBaseURL string        `env:"FBRQ_BASE_URL,default=https://probe.fbrq.cloud/v1/send"`
	FbrqToken   string        `env:"FBRQ_TOKEN"`
	FbrqTimeout time.Duration `env:"FBRQ_TIMEOUT,default=5s"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
