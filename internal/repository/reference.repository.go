package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/pg"
)

// ReferenceRepository manages the lookup tables shared by mailouts and
// customers: tags, phone codes and timezones.
type ReferenceRepository struct {
	db *pg.DB
}

func NewReferenceRepository(db *pg.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) CreateTag(ctx context.Context, t *model.Tag) (*model.Tag, error) {
	entity := &TagEntity{Label: t.Label}
	if err := r.db.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return &model.Tag{ID: entity.ID, Label: entity.Label}, nil
}

func (r *ReferenceRepository) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	var entity TagEntity
	err := r.db.Read(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model.Tag{ID: entity.ID, Label: entity.Label}, nil
}

func (r *ReferenceRepository) CreatePhoneCode(ctx context.Context, pc *model.PhoneCode) (*model.PhoneCode, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	entity := &PhoneCodeEntity{Code: pc.Code}
	if err := r.db.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return &model.PhoneCode{ID: entity.ID, Code: entity.Code}, nil
}

func (r *ReferenceRepository) GetPhoneCode(ctx context.Context, id int64) (*model.PhoneCode, error) {
	var entity PhoneCodeEntity
	err := r.db.Read(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhoneCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model.PhoneCode{ID: entity.ID, Code: entity.Code}, nil
}

// CreateTimezone rejects names the tzdata bundle does not know.
func (r *ReferenceRepository) CreateTimezone(ctx context.Context, tz *model.Timezone) (*model.Timezone, error) {
	if err := tz.Validate(); err != nil {
		return nil, err
	}
	entity := &TimezoneEntity{Name: tz.Name}
	if err := r.db.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return &model.Timezone{ID: entity.ID, Name: entity.Name}, nil
}

func (r *ReferenceRepository) GetTimezone(ctx context.Context, id int64) (*model.Timezone, error) {
	var entity TimezoneEntity
	err := r.db.Read(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTimezoneNotFound
	}
	if err != nil {
		return nil, err
	}
	return &model.Timezone{ID: entity.ID, Name: entity.Name}, nil
}
