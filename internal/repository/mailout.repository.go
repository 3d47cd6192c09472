package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/pg"
	"github.com/misteraverin/notification-service/pkg/prom"
)

type MailoutRepository struct {
	db *pg.DB
}

func NewMailoutRepository(db *pg.DB) *MailoutRepository {
	return &MailoutRepository{db: db}
}

func (r *MailoutRepository) Create(ctx context.Context, m *model.Mailout) (*model.Mailout, error) {
	if m.FinishAt.Before(m.StartAt) {
		return nil, model.ErrWrongDatetime
	}
	entity := toMailoutEntity(m)
	// Associated tags and phone codes are referenced by id only, never
	// upserted from here.
	err := r.db.Write(ctx).
		Omit("Tags.*", "PhoneCodes.*").
		Create(entity).Error
	if err != nil {
		return nil, err
	}
	prom.IncMailoutsCreated()
	return r.Get(ctx, entity.ID)
}

func (r *MailoutRepository) Get(ctx context.Context, id int64) (*model.Mailout, error) {
	var entity MailoutEntity
	err := r.db.Read(ctx).
		Preload("Tags").
		Preload("PhoneCodes").
		First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMailoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMailoutModel(&entity), nil
}

// SelectDue returns every mailout whose sending window contains now,
// i.e. start_at <= now < finish_at, ordered by id.
func (r *MailoutRepository) SelectDue(ctx context.Context, now time.Time) ([]*model.Mailout, error) {
	var entities []*MailoutEntity
	err := r.db.Read(ctx).
		Preload("Tags").
		Preload("PhoneCodes").
		Where("start_at <= ? AND finish_at > ?", now, now).
		Order("id").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toMailoutModels(entities), nil
}

func (r *MailoutRepository) Update(ctx context.Context, m *model.Mailout) (*model.Mailout, error) {
	if m.FinishAt.Before(m.StartAt) {
		return nil, model.ErrWrongDatetime
	}
	entity := toMailoutEntity(m)
	err := r.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		tx := r.db.Write(txCtx)
		var existing MailoutEntity
		if err := tx.First(&existing, m.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMailoutNotFound
			}
			return err
		}
		if err := tx.Omit("Tags", "PhoneCodes").Save(entity).Error; err != nil {
			return err
		}
		if err := tx.Model(entity).Association("Tags").Replace(entity.Tags); err != nil {
			return err
		}
		return tx.Model(entity).Association("PhoneCodes").Replace(entity.PhoneCodes)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, m.ID)
}

func (r *MailoutRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.Write(ctx).Delete(&MailoutEntity{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMailoutNotFound
	}
	return nil
}
