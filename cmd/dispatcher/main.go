package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/misteraverin/notification-service/internal/config"
	"github.com/misteraverin/notification-service/internal/dispatch"
	gateway "github.com/misteraverin/notification-service/internal/gateways"
	"github.com/misteraverin/notification-service/internal/queue"
	"github.com/misteraverin/notification-service/internal/repository"
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

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	commands, err := queue.NewCommands(redisAdap, queue.Config{
		Stream:       config.Get().QueueStream,
		Group:        config.Get().QueueGroup,
		Consumer:     config.Get().QueueConsumer + "-" + hostname,
		PollInterval: config.Get().QueuePollInterval,
		BatchSize:    config.Get().QueueBatchSize,
		MaxLen:       config.Get().QueueMaxLen,
		ClaimMinIdle: config.Get().QueueClaimMinIdle,
	})
	if err != nil {
		logger.Error("failed creating command queue", "error", err)
		return
	}

	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go func() {
		prom.ListenAndServer(config.Get().MetricsListenAddr, config.Get().MetricsURI)
	}()

	mailoutRepo := repository.NewMailoutRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	client := gateway.NewClient(gateway.Config{
		BaseURL: config.Get().FbrqBaseURL,
		Token:   config.Get().FbrqToken,
		Timeout: config.Get().FbrqTimeout,
	})

	deliveryWorker := dispatch.NewDeliveryWorker(messageRepo, client, dispatch.RetryPolicy{
		MaxAttempts: config.Get().DispatchMaxTries,
		Delay:       config.Get().DispatchRetryDelay,
	}, nil)
	guard := dispatch.NewDedupGuard(redisAdap)
	engine := dispatch.NewEngine(mailoutRepo, customerRepo, deliveryWorker, guard, config.Get().DispatchConcurrency)
	engine.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reportStuckPending(ctx, messageRepo)

	scheduler := dispatch.NewScheduler(engine, config.Get().DispatchInterval)
	scheduler.Start(ctx)

	go func() {
		err := commands.Consume(ctx, func(ctx context.Context, cmd queue.RunCommand) error {
			err := engine.RunMailout(ctx, cmd.MailoutID)
			if errors.Is(err, repository.ErrEntityNotFound) {
				// mailout deleted after the run was queued, nothing to retry
				logger.Warn("queued run for missing mailout", "mailout_id", cmd.MailoutID)
				return nil
			}
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("command consumer stopped", "error", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	cancel()
	scheduler.Stop()
	engine.Stop()
}

// reportStuckPending surfaces messages a previous dispatcher left
// mid-flight. They stay pending until an operator decides what to do.
func reportStuckPending(ctx context.Context, messages *repository.MessageRepository) {
	stuck, err := messages.ListStuckPending(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		logger.Warn("stuck pending scan failed", "error", err)
		return
	}
	if len(stuck) > 0 {
		logger.Warn("found messages stuck in pending", "count", len(stuck))
	}
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
