package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/internal/repository"
	"github.com/misteraverin/notification-service/pkg/logger"
	"github.com/misteraverin/notification-service/pkg/worker"
)

type MailoutStore interface {
	Get(ctx context.Context, id int64) (*model.Mailout, error)
	SelectDue(ctx context.Context, now time.Time) ([]*model.Mailout, error)
}

type AudienceStore interface {
	ListByTags(ctx context.Context, labels []string) ([]*model.Customer, error)
}

// Engine runs dispatch cycles: it selects due mailouts, resolves each
// audience and fans the deliveries out over a worker pool.
type Engine struct {
	mailouts MailoutStore
	audience AudienceStore
	worker   *DeliveryWorker
	dedup    *DedupGuard
	pool     *worker.Pool

	// Now is the clock for cycle decisions, swappable in tests.
	Now func() time.Time
}

func NewEngine(mailouts MailoutStore, audience AudienceStore, dw *DeliveryWorker, dedup *DedupGuard, concurrency int) *Engine {
	e := &Engine{
		mailouts: mailouts,
		audience: audience,
		worker:   dw,
		dedup:    dedup,
		Now:      time.Now,
	}
	e.pool = worker.NewPool(concurrency*2, concurrency, e.handle)
	return e
}

func (e *Engine) Start() { e.pool.Start() }
func (e *Engine) Stop()  { e.pool.Stop() }

type dispatchJob struct {
	ctx      context.Context
	mailout  *model.Mailout
	customer *model.Customer
	wg       *sync.WaitGroup
	errs     *errCollector
}

func (e *Engine) handle(_ int, job interface{}) {
	j := job.(*dispatchJob)
	defer j.wg.Done()

	_, err := e.worker.Dispatch(j.ctx, j.mailout, j.customer)
	if err == nil {
		return
	}
	// A customer or mailout removed mid-cycle only skips this delivery.
	if errors.Is(err, repository.ErrEntityNotFound) {
		logger.Warn("dispatch target vanished, skipping",
			"mailout_id", j.mailout.ID, "customer_id", j.customer.ID, "error", err)
		return
	}
	// No terminal status was written, so the pair must stay retryable
	// on the next cycle.
	if e.dedup != nil {
		e.dedup.Release(j.mailout.ID, j.customer.ID)
	}
	logger.Error("dispatch failed",
		"mailout_id", j.mailout.ID, "customer_id", j.customer.ID, "error", err)
	j.errs.add(err)
}

// RunDueMailouts executes one cycle over every mailout whose window
// contains the current time. A store failure aborts the remainder of
// the cycle; nothing is checkpointed, the next tick starts from
// scratch.
func (e *Engine) RunDueMailouts(ctx context.Context) error {
	now := e.Now().UTC()
	due, err := e.mailouts.SelectDue(ctx, now)
	if err != nil {
		return err
	}

	cycle := uuid.NewString()
	logger.Info("dispatch cycle started", "cycle", cycle, "mailouts", len(due))

	for _, m := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.runMailout(ctx, cycle, m); err != nil {
			logger.Error("mailout dispatch failed, aborting cycle",
				"cycle", cycle, "mailout_id", m.ID, "error", err)
			return err
		}
	}

	logger.Info("dispatch cycle finished", "cycle", cycle)
	return nil
}

// RunMailout dispatches one mailout on demand. A mailout outside its
// sending window is skipped without error.
func (e *Engine) RunMailout(ctx context.Context, id int64) error {
	m, err := e.mailouts.Get(ctx, id)
	if err != nil {
		return err
	}
	if !m.Active(e.Now().UTC()) {
		logger.Info("mailout outside its window, not dispatching", "mailout_id", id)
		return nil
	}
	return e.runMailout(ctx, uuid.NewString(), m)
}

func (e *Engine) runMailout(ctx context.Context, cycle string, m *model.Mailout) error {
	customers, err := e.audience.ListByTags(ctx, m.TagLabels())
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errs := &errCollector{}
	enqueued := 0
	for _, c := range customers {
		now := e.Now().UTC()
		// The window can close while a large audience is being walked.
		if m.Expired(now) {
			logger.Info("mailout expired mid-cycle",
				"cycle", cycle, "mailout_id", m.ID, "enqueued", enqueued, "audience", len(customers))
			break
		}
		if ctx.Err() != nil {
			break
		}
		if !AllowLocalTime(m, c, now) {
			continue
		}
		if e.dedup != nil && !e.dedup.Acquire(ctx, m, c.ID, now) {
			continue
		}
		wg.Add(1)
		e.pool.Enqueue(&dispatchJob{ctx: ctx, mailout: m, customer: c, wg: &wg, errs: errs})
		enqueued++
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return errs.first()
}

type errCollector struct {
	mu  sync.Mutex
	err error
}

func (c *errCollector) add(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *errCollector) first() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
