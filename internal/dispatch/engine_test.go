package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/internal/repository"
	"github.com/misteraverin/notification-service/pkg/pg"
	"github.com/misteraverin/notification-service/pkg/redis"
)

type engineFixture struct {
	db        *pg.DB
	mailouts  *repository.MailoutRepository
	customers *repository.CustomerRepository
	messages  *repository.MessageRepository
	refs      *repository.ReferenceRepository
	tags      map[string]*model.Tag
	zones     map[string]*model.Timezone
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(gdb))

	db := pg.NewFromGorm(gdb, gdb)
	return &engineFixture{
		db:        db,
		mailouts:  repository.NewMailoutRepository(db),
		customers: repository.NewCustomerRepository(db),
		messages:  repository.NewMessageRepository(db),
		refs:      repository.NewReferenceRepository(db),
		tags:      map[string]*model.Tag{},
		zones:     map[string]*model.Timezone{},
	}
}

func (f *engineFixture) timezone(t *testing.T, name string) *model.Timezone {
	t.Helper()
	if tz, ok := f.zones[name]; ok {
		return tz
	}
	tz, err := f.refs.CreateTimezone(context.Background(), &model.Timezone{Name: name})
	require.NoError(t, err)
	f.zones[name] = tz
	return tz
}

func (f *engineFixture) tag(t *testing.T, label string) *model.Tag {
	t.Helper()
	if tag, ok := f.tags[label]; ok {
		return tag
	}
	tag, err := f.refs.CreateTag(context.Background(), &model.Tag{Label: label})
	require.NoError(t, err)
	f.tags[label] = tag
	return tag
}

func (f *engineFixture) seedCustomer(t *testing.T, phone, tzName, tagLabel string) *model.Customer {
	t.Helper()
	ctx := context.Background()
	tag := f.tag(t, tagLabel)
	pc, err := f.refs.CreatePhoneCode(ctx, &model.PhoneCode{Code: "9" + phone[:2]})
	require.NoError(t, err)
	tz := f.timezone(t, tzName)
	c, err := f.customers.Create(ctx, &model.Customer{
		CountryCode: 7,
		Phone:       phone,
		PhoneCode:   pc,
		Timezone:    tz,
		Tags:        []model.Tag{*tag},
	})
	require.NoError(t, err)
	return c
}

func newTestEngine(f *engineFixture, gw GatewayClient) *Engine {
	dw := NewDeliveryWorker(f.messages, gw, RetryPolicy{MaxAttempts: 3}, &recordingSleeper{})
	return NewEngine(f.mailouts, f.customers, dw, nil, 2)
}

func TestEngineRunDueMailouts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	alice := f.seedCustomer(t, "1111111", "Europe/Moscow", "promo")
	f.seedCustomer(t, "2222222", "Europe/Berlin", "promo")
	f.seedCustomer(t, "3333333", "Europe/Moscow", "news")

	promo := alice.Tags[0]
	active, err := f.mailouts.Create(ctx, &model.Mailout{
		TextMessage: "sale",
		StartAt:     now.Add(-time.Hour),
		FinishAt:    now.Add(time.Hour),
		Tags:        []model.Tag{promo},
	})
	require.NoError(t, err)
	_, err = f.mailouts.Create(ctx, &model.Mailout{
		TextMessage: "too late",
		StartAt:     now.Add(-2 * time.Hour),
		FinishAt:    now.Add(-time.Hour),
		Tags:        []model.Tag{promo},
	})
	require.NoError(t, err)

	gw := &stubGateway{}
	e := newTestEngine(f, gw)
	e.Now = func() time.Time { return now }
	e.Start()
	defer e.Stop()

	require.NoError(t, e.RunDueMailouts(ctx))

	// only the active mailout reached its audience, one message each
	assert.Equal(t, 2, gw.sent())
	stats, err := f.messages.MailoutStats(ctx, active.ID, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, model.StatusSent, stats[0].Status)
	assert.Equal(t, int64(2), stats[0].Count)
}

func TestEngineHonorsLocalTimeWindow(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	// 12:00 UTC, 15:00 in Moscow
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	alice := f.seedCustomer(t, "1111111", "Europe/Moscow", "promo")
	promo := alice.Tags[0]

	night, err := f.mailouts.Create(ctx, &model.Mailout{
		TextMessage:        "quiet hours",
		StartAt:            now.Add(-time.Hour),
		FinishAt:           now.Add(time.Hour),
		LocalTimeStartHour: hourPtr(0),
		LocalTimeEndHour:   hourPtr(6),
		Tags:               []model.Tag{promo},
	})
	require.NoError(t, err)

	gw := &stubGateway{}
	e := newTestEngine(f, gw)
	e.Now = func() time.Time { return now }
	e.Start()
	defer e.Stop()

	require.NoError(t, e.RunDueMailouts(ctx))

	assert.Zero(t, gw.sent())
	stats, err := f.messages.MailoutStats(ctx, night.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestEngineRecordsFailures(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	alice := f.seedCustomer(t, "1111111", "Europe/Moscow", "promo")
	m, err := f.mailouts.Create(ctx, &model.Mailout{
		TextMessage: "doomed",
		StartAt:     now.Add(-time.Hour),
		FinishAt:    now.Add(time.Hour),
		Tags:        []model.Tag{alice.Tags[0]},
	})
	require.NoError(t, err)

	gw := &stubGateway{codes: []int{500, 500, 500}}
	e := newTestEngine(f, gw)
	e.Now = func() time.Time { return now }
	e.Start()
	defer e.Stop()

	require.NoError(t, e.RunDueMailouts(ctx))

	assert.Equal(t, 3, gw.sent())
	stats, err := f.messages.MailoutStats(ctx, m.ID, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, model.StatusFailed, stats[0].Status)
	assert.Equal(t, int64(1), stats[0].Count)
}

// flakyMessageStore fails a configured number of Create calls before
// delegating to the real repository.
type flakyMessageStore struct {
	*repository.MessageRepository
	mu    sync.Mutex
	fails int
}

func (s *flakyMessageStore) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	s.mu.Lock()
	if s.fails > 0 {
		s.fails--
		s.mu.Unlock()
		return nil, errors.New("database is unavailable")
	}
	s.mu.Unlock()
	return s.MessageRepository.Create(ctx, m)
}

// steppingClock hands out the configured instants in order, repeating
// the last one once exhausted.
type steppingClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *steppingClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.times) > 1 {
		t := c.times[0]
		c.times = c.times[1:]
		return t
	}
	return c.times[0]
}

func TestEngineRetriesCustomerAfterStoreError(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	alice := f.seedCustomer(t, "1111111", "Europe/Moscow", "promo")
	m, err := f.mailouts.Create(ctx, &model.Mailout{
		TextMessage: "flaky store",
		StartAt:     now.Add(-time.Hour),
		FinishAt:    now.Add(time.Hour),
		Tags:        []model.Tag{alice.Tags[0]},
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	adapter, err := redis.NewAdapter("test:", &redis.Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	guard := NewDedupGuard(adapter)

	store := &flakyMessageStore{MessageRepository: f.messages, fails: 1}
	gw := &stubGateway{}
	dw := NewDeliveryWorker(store, gw, RetryPolicy{MaxAttempts: 3}, &recordingSleeper{})
	e := NewEngine(f.mailouts, f.customers, dw, guard, 2)
	e.Now = func() time.Time { return now }
	e.Start()
	defer e.Stop()

	// the first cycle dies on message creation, before any send
	require.Error(t, e.RunDueMailouts(ctx))
	assert.Zero(t, gw.sent())

	// the claim from the failed attempt must not block the next cycle
	require.NoError(t, e.RunDueMailouts(ctx))
	assert.Equal(t, 1, gw.sent())

	stats, err := f.messages.MailoutStats(ctx, m.ID, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, model.StatusSent, stats[0].Status)
	assert.Equal(t, int64(1), stats[0].Count)

	// a delivered pair stays claimed
	require.NoError(t, e.RunDueMailouts(ctx))
	assert.Equal(t, 1, gw.sent())
}

func TestEngineStopsWhenMailoutExpiresMidCycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	finish := start.Add(time.Hour)

	alice := f.seedCustomer(t, "1111111", "Europe/Moscow", "promo")
	f.seedCustomer(t, "2222222", "Europe/Berlin", "promo")
	f.seedCustomer(t, "3333333", "Europe/Moscow", "promo")

	m, err := f.mailouts.Create(ctx, &model.Mailout{
		TextMessage: "slow burn",
		StartAt:     start,
		FinishAt:    finish,
		Tags:        []model.Tag{alice.Tags[0]},
	})
	require.NoError(t, err)

	// the window check and the first customer see an active window,
	// then the clock jumps past finish_at
	clock := &steppingClock{times: []time.Time{
		start.Add(time.Minute),
		start.Add(time.Minute),
		finish.Add(time.Minute),
	}}

	gw := &stubGateway{}
	e := newTestEngine(f, gw)
	e.Now = clock.now
	e.Start()
	defer e.Stop()

	require.NoError(t, e.RunMailout(ctx, m.ID))

	// remaining customers are skipped for this cycle, not failed
	assert.Equal(t, 1, gw.sent())
	stats, err := f.messages.MailoutStats(ctx, m.ID, nil)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, model.StatusSent, stats[0].Status)
	assert.Equal(t, int64(1), stats[0].Count)
}

func TestEngineRunMailout(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	alice := f.seedCustomer(t, "1111111", "Europe/Moscow", "promo")
	promo := alice.Tags[0]

	t.Run("active mailout dispatches", func(t *testing.T) {
		m, err := f.mailouts.Create(ctx, &model.Mailout{
			TextMessage: "on demand",
			StartAt:     now.Add(-time.Hour),
			FinishAt:    now.Add(time.Hour),
			Tags:        []model.Tag{promo},
		})
		require.NoError(t, err)

		gw := &stubGateway{}
		e := newTestEngine(f, gw)
		e.Now = func() time.Time { return now }
		e.Start()
		defer e.Stop()

		require.NoError(t, e.RunMailout(ctx, m.ID))
		assert.Equal(t, 1, gw.sent())
	})

	t.Run("future mailout is skipped without error", func(t *testing.T) {
		m, err := f.mailouts.Create(ctx, &model.Mailout{
			TextMessage: "not yet",
			StartAt:     now.Add(time.Hour),
			FinishAt:    now.Add(2 * time.Hour),
			Tags:        []model.Tag{promo},
		})
		require.NoError(t, err)

		gw := &stubGateway{}
		e := newTestEngine(f, gw)
		e.Now = func() time.Time { return now }
		e.Start()
		defer e.Stop()

		require.NoError(t, e.RunMailout(ctx, m.ID))
		assert.Zero(t, gw.sent())
	})

	t.Run("unknown mailout", func(t *testing.T) {
		e := newTestEngine(f, &stubGateway{})
		e.Start()
		defer e.Stop()
		err := e.RunMailout(ctx, 99999)
		assert.ErrorIs(t, err, repository.ErrMailoutNotFound)
	})
}
