package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misteraverin/notification-service/internal/model"
)

func TestMessageRepositoryCreate(t *testing.T) {
	f := newFixtures(t)
	repo := NewMessageRepository(f.db)
	ctx := context.Background()

	code := f.phoneCode(t, "925")
	tz := f.timezone(t, "Europe/Moscow")
	customer := f.customer(t, "1234567", code, tz)
	start := time.Now().UTC()
	mailout := f.mailout(t, "hello", start, start.Add(time.Hour))

	t.Run("defaults to created", func(t *testing.T) {
		msg, err := repo.Create(ctx, &model.Message{
			MailoutID:  mailout.ID,
			CustomerID: customer.ID,
		})
		require.NoError(t, err)
		assert.NotZero(t, msg.ID)
		assert.Equal(t, model.StatusCreated, msg.Status)
	})

	t.Run("explicit status", func(t *testing.T) {
		msg, err := repo.Create(ctx, &model.Message{
			Status:     model.StatusPending,
			MailoutID:  mailout.ID,
			CustomerID: customer.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, msg.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Message{
			Status:     "delivered",
			MailoutID:  mailout.ID,
			CustomerID: customer.ID,
		})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown mailout", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Message{
			MailoutID:  mailout.ID + 1000,
			CustomerID: customer.ID,
		})
		assert.ErrorIs(t, err, ErrMailoutNotFound)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Message{
			MailoutID:  mailout.ID,
			CustomerID: customer.ID + 1000,
		})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})
}

func TestMessageRepositoryUpdateStatus(t *testing.T) {
	f := newFixtures(t)
	repo := NewMessageRepository(f.db)
	ctx := context.Background()

	code := f.phoneCode(t, "925")
	tz := f.timezone(t, "Europe/Moscow")
	customer := f.customer(t, "1234567", code, tz)
	start := time.Now().UTC()
	mailout := f.mailout(t, "hello", start, start.Add(time.Hour))

	msg, err := repo.Create(ctx, &model.Message{MailoutID: mailout.ID, CustomerID: customer.ID})
	require.NoError(t, err)

	t.Run("moves status and stamps created_at", func(t *testing.T) {
		before := time.Now().UTC().Add(-time.Second)
		updated, err := repo.UpdateStatus(ctx, msg.ID, model.StatusSent)
		require.NoError(t, err)
		assert.Equal(t, model.StatusSent, updated.Status)
		assert.True(t, updated.CreatedAt.After(before))
	})

	t.Run("empty status means updated", func(t *testing.T) {
		updated, err := repo.UpdateStatus(ctx, msg.ID, "")
		require.NoError(t, err)
		assert.Equal(t, model.StatusUpdated, updated.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, msg.ID, "bogus")
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, msg.ID+1000, model.StatusSent)
		assert.ErrorIs(t, err, ErrMessageNotFound)
	})
}

func TestMessageRepositorySoftDelete(t *testing.T) {
	f := newFixtures(t)
	repo := NewMessageRepository(f.db)
	ctx := context.Background()

	code := f.phoneCode(t, "925")
	tz := f.timezone(t, "Europe/Moscow")
	customer := f.customer(t, "1234567", code, tz)
	start := time.Now().UTC()
	mailout := f.mailout(t, "hello", start, start.Add(time.Hour))

	msg, err := repo.Create(ctx, &model.Message{MailoutID: mailout.ID, CustomerID: customer.ID})
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, msg.ID))

	// the row survives with status deleted
	got, err := repo.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, got.Status)

	assert.ErrorIs(t, repo.SoftDelete(ctx, msg.ID+1000), ErrMessageNotFound)
}

func TestMessageRepositoryStats(t *testing.T) {
	f := newFixtures(t)
	repo := NewMessageRepository(f.db)
	ctx := context.Background()

	code := f.phoneCode(t, "925")
	tz := f.timezone(t, "Europe/Moscow")
	customer := f.customer(t, "1234567", code, tz)
	start := time.Now().UTC()
	first := f.mailout(t, "first", start, start.Add(time.Hour))
	second := f.mailout(t, "second", start, start.Add(time.Hour))

	seed := func(mailoutID int64, status model.MessageStatus, n int) {
		for i := 0; i < n; i++ {
			_, err := repo.Create(ctx, &model.Message{
				Status:     status,
				MailoutID:  mailoutID,
				CustomerID: customer.ID,
			})
			require.NoError(t, err)
		}
	}
	seed(first.ID, model.StatusSent, 3)
	seed(first.ID, model.StatusFailed, 1)
	seed(second.ID, model.StatusSent, 2)

	t.Run("general ordered by count", func(t *testing.T) {
		stats, err := repo.GeneralStats(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, model.StatusSent, stats[0].Status)
		assert.Equal(t, int64(5), stats[0].Count)
		assert.Equal(t, model.StatusFailed, stats[1].Status)
		assert.Equal(t, int64(1), stats[1].Count)
	})

	t.Run("per mailout", func(t *testing.T) {
		stats, err := repo.MailoutStats(ctx, first.ID, nil)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, model.StatusSent, stats[0].Status)
		assert.Equal(t, int64(3), stats[0].Count)
	})

	t.Run("per mailout with status filter", func(t *testing.T) {
		failed := model.StatusFailed
		stats, err := repo.MailoutStats(ctx, first.ID, &failed)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, model.StatusFailed, stats[0].Status)
		assert.Equal(t, int64(1), stats[0].Count)
	})

	t.Run("empty result", func(t *testing.T) {
		stats, err := repo.MailoutStats(ctx, second.ID+1000, nil)
		require.NoError(t, err)
		assert.Empty(t, stats)
	})
}

func TestMessageRepositoryListStuckPending(t *testing.T) {
	f := newFixtures(t)
	repo := NewMessageRepository(f.db)
	ctx := context.Background()

	code := f.phoneCode(t, "925")
	tz := f.timezone(t, "Europe/Moscow")
	customer := f.customer(t, "1234567", code, tz)
	start := time.Now().UTC()
	mailout := f.mailout(t, "hello", start, start.Add(time.Hour))

	old, err := repo.Create(ctx, &model.Message{
		Status:     model.StatusPending,
		MailoutID:  mailout.ID,
		CustomerID: customer.ID,
		CreatedAt:  start.Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Message{
		Status:     model.StatusPending,
		MailoutID:  mailout.ID,
		CustomerID: customer.ID,
		CreatedAt:  start,
	})
	require.NoError(t, err)

	stuck, err := repo.ListStuckPending(ctx, start.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, old.ID, stuck[0].ID)
}
