package dispatch

import (
	"context"
	"strconv"

	"github.com/valyala/fasthttp"

	gateway "github.com/misteraverin/notification-service/internal/gateways"
	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/logger"
	"github.com/misteraverin/notification-service/pkg/prom"
)

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) (*model.Message, error)
	UpdateStatus(ctx context.Context, id int64, status model.MessageStatus) (*model.Message, error)
}

type GatewayClient interface {
	Send(ctx context.Context, msg gateway.Message) (int, string)
}

// Outcome is the terminal result of dispatching one message.
type Outcome struct {
	MessageID int64
	Status    model.MessageStatus
	Attempts  int
}

// DeliveryWorker drives a single message from creation to a terminal
// status: a pending row first, then bounded gateway attempts, then
// exactly one write of sent or failed.
type DeliveryWorker struct {
	messages MessageStore
	gateway  GatewayClient
	policy   RetryPolicy
	sleeper  Sleeper
}

func NewDeliveryWorker(messages MessageStore, gw GatewayClient, policy RetryPolicy, sleeper Sleeper) *DeliveryWorker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if sleeper == nil {
		sleeper = NewClockSleeper()
	}
	return &DeliveryWorker{
		messages: messages,
		gateway:  gw,
		policy:   policy,
		sleeper:  sleeper,
	}
}

func (w *DeliveryWorker) Dispatch(ctx context.Context, m *model.Mailout, c *model.Customer) (*Outcome, error) {
	msg, err := w.messages.Create(ctx, &model.Message{
		Status:     model.StatusPending,
		MailoutID:  m.ID,
		CustomerID: c.ID,
	})
	if err != nil {
		return nil, err
	}

	phone, err := strconv.ParseInt(c.FullPhone(), 10, 64)
	if err != nil {
		logger.Error("customer phone is not numeric",
			"message_id", msg.ID, "customer_id", c.ID, "phone", c.FullPhone())
		prom.IncMessagesFailed()
		return w.finish(ctx, msg.ID, model.StatusFailed, 0)
	}

	payload := gateway.Message{ID: msg.ID, Phone: phone, Text: m.TextMessage}
	attempts := 0
	for attempts < w.policy.MaxAttempts {
		attempts++
		code, body := w.gateway.Send(ctx, payload)
		if code == fasthttp.StatusOK {
			logger.Info("message delivered",
				"message_id", msg.ID, "mailout_id", m.ID, "customer_id", c.ID, "attempts", attempts)
			prom.IncMessagesSent()
			return w.finish(ctx, msg.ID, model.StatusSent, attempts)
		}

		logger.Warn("delivery attempt failed",
			"message_id", msg.ID, "attempt", attempts, "status", code, "response", body)
		if attempts == w.policy.MaxAttempts {
			break
		}
		if err := w.sleeper.Sleep(ctx, w.policy.Delay); err != nil {
			logger.Warn("delivery interrupted",
				"message_id", msg.ID, "attempt", attempts, "error", err)
			break
		}
	}

	prom.IncMessagesFailed()
	return w.finish(ctx, msg.ID, model.StatusFailed, attempts)
}

// finish writes the terminal status. The write must land even when the
// dispatch context was canceled mid-retry.
func (w *DeliveryWorker) finish(ctx context.Context, id int64, status model.MessageStatus, attempts int) (*Outcome, error) {
	if _, err := w.messages.UpdateStatus(context.WithoutCancel(ctx), id, status); err != nil {
		return nil, err
	}
	return &Outcome{MessageID: id, Status: status, Attempts: attempts}, nil
}
