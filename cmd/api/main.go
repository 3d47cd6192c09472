package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/misteraverin/notification-service/internal/config"
	"github.com/misteraverin/notification-service/internal/handlers"
	"github.com/misteraverin/notification-service/internal/queue"
	"github.com/misteraverin/notification-service/internal/repository"
	"github.com/misteraverin/notification-service/internal/services"
	xhttp "github.com/misteraverin/notification-service/pkg/http"
	"github.com/misteraverin/notification-service/pkg/logger"
	"github.com/misteraverin/notification-service/pkg/pg"
	"github.com/misteraverin/notification-service/pkg/prom"
	"github.com/misteraverin/notification-service/pkg/redis"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	if dir := config.Get().MigrationsDir; dir != "" {
		if err := pg.Migrate(writeConf, dir); err != nil {
			logger.Error("migrations failed", "error", err)
			return
		}
	}

	pgDebug := config.Get().AppEnv == "dev"
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewAdapter(config.Get().RedisKeyPrefix, &redis.Options{
		Addrs:    []string{config.Get().RedisAddr},
		DB:       config.Get().RedisDatabase,
		Username: config.Get().RedisUsername,
		Password: config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	commands, err := queue.NewCommands(redisAdap, queue.Config{
		Stream: config.Get().QueueStream,
		Group:  config.Get().QueueGroup,
		MaxLen: config.Get().QueueMaxLen,
	})
	if err != nil {
		logger.Error("failed creating command queue", "error", err)
		return
	}

	mailoutRepo := repository.NewMailoutRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)

	mailoutService := services.NewMailoutService(mailoutRepo, messageRepo, referenceRepo, commands)
	healthService := services.NewHealthService(db)

	mailoutHandler := handlers.NewMailoutHandler(mailoutService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterMailoutRoutes(g, mailoutHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go func() {
		prom.ListenAndServer(config.Get().MetricsListenAddr, config.Get().MetricsURI)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(config.Get().HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
