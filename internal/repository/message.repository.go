package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/pg"
)

type MessageRepository struct {
	db *pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message after checking that its mailout and customer
// exist. Status defaults to created when left empty.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	entity := toMessageEntity(m)
	if entity.Status == "" {
		entity.Status = string(model.StatusCreated)
	}
	if !model.MessageStatus(entity.Status).Valid() {
		return nil, ErrInvalidStatus
	}
	err := r.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		tx := r.db.Write(txCtx)
		if err := firstByID(tx, &MailoutEntity{}, entity.MailoutID, ErrMailoutNotFound); err != nil {
			return err
		}
		if err := firstByID(tx, &CustomerEntity{}, entity.CustomerID, ErrCustomerNotFound); err != nil {
			return err
		}
		return tx.Create(entity).Error
	})
	if err != nil {
		return nil, err
	}
	return toMessageModel(entity), nil
}

func (r *MessageRepository) Get(ctx context.Context, id int64) (*model.Message, error) {
	var entity MessageEntity
	err := r.db.Read(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMessageModel(&entity), nil
}

// UpdateStatus moves a message to the given status and stamps
// created_at with the mutation time. An empty status means updated.
func (r *MessageRepository) UpdateStatus(ctx context.Context, id int64, status model.MessageStatus) (*model.Message, error) {
	if status == "" {
		status = model.StatusUpdated
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	now := time.Now().UTC()
	var entity MessageEntity
	err := r.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		tx := r.db.Write(txCtx)
		if err := tx.First(&entity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		return tx.Model(&entity).Updates(map[string]interface{}{
			"status":     string(status),
			"created_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	entity.Status = string(status)
	entity.CreatedAt = now
	return toMessageModel(&entity), nil
}

// SoftDelete marks a message deleted without touching created_at. The
// row stays behind for the stats queries.
func (r *MessageRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.Write(ctx).
		Model(&MessageEntity{}).
		Where("id = ?", id).
		Update("status", string(model.StatusDeleted))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// GeneralStats counts messages per status across all mailouts, most
// frequent status first.
func (r *MessageRepository) GeneralStats(ctx context.Context) ([]*model.StatusCount, error) {
	var stats []*model.StatusCount
	err := r.db.Read(ctx).
		Model(&MessageEntity{}).
		Select("status, COUNT(id) AS count").
		Group("status").
		Order("count DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// MailoutStats counts messages per status for one mailout, optionally
// narrowed to a single status.
func (r *MessageRepository) MailoutStats(ctx context.Context, mailoutID int64, status *model.MessageStatus) ([]*model.StatusCount, error) {
	q := r.db.Read(ctx).
		Model(&MessageEntity{}).
		Select("status, COUNT(id) AS count").
		Where("mailout_id = ?", mailoutID)
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	var stats []*model.StatusCount
	err := q.Group("status").Order("count DESC").Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListStuckPending returns pending messages last touched before the
// given cutoff. Useful for spotting deliveries interrupted by a crash.
func (r *MessageRepository) ListStuckPending(ctx context.Context, olderThan time.Time) ([]*model.Message, error) {
	var entities []*MessageEntity
	err := r.db.Read(ctx).
		Where("status = ? AND created_at < ?", string(model.StatusPending), olderThan).
		Order("id").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toMessageModels(entities), nil
}
