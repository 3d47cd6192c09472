package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/pg"
)

func newTestDB(t *testing.T) *pg.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A second connection to :memory: would see an empty database.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(gdb))
	return pg.NewFromGorm(gdb, gdb)
}

type fixtures struct {
	db   *pg.DB
	tags *ReferenceRepository
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	db := newTestDB(t)
	return &fixtures{db: db, tags: NewReferenceRepository(db)}
}

func (f *fixtures) tag(t *testing.T, label string) *model.Tag {
	t.Helper()
	tag, err := f.tags.CreateTag(context.Background(), &model.Tag{Label: label})
	require.NoError(t, err)
	return tag
}

func (f *fixtures) phoneCode(t *testing.T, code string) *model.PhoneCode {
	t.Helper()
	pc, err := f.tags.CreatePhoneCode(context.Background(), &model.PhoneCode{Code: code})
	require.NoError(t, err)
	return pc
}

func (f *fixtures) timezone(t *testing.T, name string) *model.Timezone {
	t.Helper()
	tz, err := f.tags.CreateTimezone(context.Background(), &model.Timezone{Name: name})
	require.NoError(t, err)
	return tz
}

func (f *fixtures) customer(t *testing.T, phone string, pc *model.PhoneCode, tz *model.Timezone, tags ...*model.Tag) *model.Customer {
	t.Helper()
	c := &model.Customer{CountryCode: 7, Phone: phone, PhoneCode: pc, Timezone: tz}
	for _, tag := range tags {
		c.Tags = append(c.Tags, *tag)
	}
	created, err := NewCustomerRepository(f.db).Create(context.Background(), c)
	require.NoError(t, err)
	return created
}

func (f *fixtures) mailout(t *testing.T, text string, start, finish time.Time, tags ...*model.Tag) *model.Mailout {
	t.Helper()
	m := &model.Mailout{TextMessage: text, StartAt: start, FinishAt: finish}
	for _, tag := range tags {
		m.Tags = append(m.Tags, *tag)
	}
	created, err := NewMailoutRepository(f.db).Create(context.Background(), m)
	require.NoError(t, err)
	return created
}
