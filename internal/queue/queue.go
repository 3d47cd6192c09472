package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/misteraverin/notification-service/pkg/logger"
	"github.com/misteraverin/notification-service/pkg/redis"
)

// RunCommand asks a dispatcher to run one mailout on demand.
type RunCommand struct {
	MailoutID   int64     `json:"mailout_id"`
	RequestedAt time.Time `json:"requested_at"`
}

type RunHandler func(ctx context.Context, cmd RunCommand) error

type Config struct {
	Stream       string
	Group        string
	Consumer     string
	PollInterval time.Duration
	BatchSize    int64
	MaxLen       int64
	ClaimMinIdle time.Duration
}

func (c *Config) withDefaults() {
	if c.Stream == "" {
		c.Stream = "mailout-runs"
	}
	if c.Group == "" {
		c.Group = "dispatchers"
	}
	if c.Consumer == "" {
		c.Consumer = "dispatcher-1"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.ClaimMinIdle <= 0 {
		c.ClaimMinIdle = 30 * time.Second
	}
}

// Commands is the stream-backed bridge between the API and the
// dispatcher: the API publishes run commands, the dispatcher consumes
// them through a consumer group so each command is handled once.
type Commands struct {
	redis  redis.Adapter
	config Config
}

func NewCommands(adapter redis.Adapter, config Config) (*Commands, error) {
	config.withDefaults()
	err := adapter.XGroupCreateMkStream(config.Stream, config.Group, "0")
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &Commands{redis: adapter, config: config}, nil
}

func (c *Commands) PublishRun(cmd RunCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if _, err := c.redis.XAdd(c.config.Stream, map[string]interface{}{"data": data}); err != nil {
		return err
	}
	if c.config.MaxLen > 0 {
		// best effort, a failed trim only delays cleanup
		if err := c.redis.XTrimApprox(c.config.Stream, c.config.MaxLen); err != nil {
			logger.Warn("stream trim failed", "stream", c.config.Stream, "error", err)
		}
	}
	return nil
}

func (c *Commands) Backlog() (int64, error) {
	return c.redis.XLen(c.config.Stream)
}

// Consume polls the stream until the context is canceled. Commands that
// fail stay pending and are reclaimed once their idle time passes
// ClaimMinIdle, including those abandoned by a crashed dispatcher.
func (c *Commands) Consume(ctx context.Context, handle RunHandler) error {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		msgs, err := c.redis.XReadGroup(c.config.Group, c.config.Consumer, c.config.Stream, ">", c.config.BatchSize)
		if err != nil && !errors.Is(err, redis.NilError) {
			logger.Error("stream read failed", "stream", c.config.Stream, "error", err)
			continue
		}
		c.handleBatch(ctx, msgs, handle)
		c.reclaim(ctx, handle)
	}
}

func (c *Commands) handleBatch(ctx context.Context, msgs []redis.StreamMessage, handle RunHandler) {
	for _, msg := range msgs {
		cmd, err := decodeRunCommand(msg)
		if err != nil {
			// unparseable entries would loop forever, ack and drop
			logger.Error("dropping malformed run command", "id", msg.ID, "error", err)
			c.ack(msg.ID)
			continue
		}
		if err := handle(ctx, cmd); err != nil {
			logger.Error("run command failed, leaving pending",
				"id", msg.ID, "mailout_id", cmd.MailoutID, "error", err)
			continue
		}
		c.ack(msg.ID)
	}
}

func (c *Commands) reclaim(ctx context.Context, handle RunHandler) {
	pending, err := c.redis.XPendingExt(c.config.Stream, c.config.Group, "-", "+", c.config.BatchSize)
	if err != nil {
		logger.Warn("pending scan failed", "stream", c.config.Stream, "error", err)
		return
	}
	var stale []string
	for _, p := range pending {
		if p.Idle >= c.config.ClaimMinIdle {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	claimed, err := c.redis.XClaim(c.config.Stream, c.config.Group, c.config.Consumer, c.config.ClaimMinIdle, stale...)
	if err != nil {
		logger.Warn("claim failed", "stream", c.config.Stream, "error", err)
		return
	}
	logger.Info("reclaimed stale run commands", "stream", c.config.Stream, "count", len(claimed))
	c.handleBatch(ctx, claimed, handle)
}

func (c *Commands) ack(id string) {
	if err := c.redis.XAck(c.config.Stream, c.config.Group, id); err != nil {
		logger.Warn("ack failed", "stream", c.config.Stream, "id", id, "error", err)
	}
}

func decodeRunCommand(msg redis.StreamMessage) (RunCommand, error) {
	var cmd RunCommand
	raw, ok := msg.Values["data"]
	if !ok {
		return cmd, errors.New("missing data field")
	}
	var payload []byte
	switch v := raw.(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		return cmd, fmt.Errorf("unexpected data type %T", raw)
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, err
	}
	if cmd.MailoutID == 0 {
		return cmd, errors.New("missing mailout id")
	}
	return cmd, nil
}
