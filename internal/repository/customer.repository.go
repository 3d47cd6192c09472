package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/pg"
	"github.com/misteraverin/notification-service/pkg/prom"
)

type CustomerRepository struct {
	db *pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(c)
	err := r.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		tx := r.db.Write(txCtx)
		if entity.PhoneCodeID != nil {
			if err := firstByID(tx, &PhoneCodeEntity{}, *entity.PhoneCodeID, ErrPhoneCodeNotFound); err != nil {
				return err
			}
		}
		if entity.TimezoneID != nil {
			if err := firstByID(tx, &TimezoneEntity{}, *entity.TimezoneID, ErrTimezoneNotFound); err != nil {
				return err
			}
		}
		return tx.Omit("Tags.*").Create(entity).Error
	})
	if err != nil {
		return nil, err
	}
	prom.IncCustomersCreated()
	return r.Get(ctx, entity.ID)
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.db.Read(ctx).
		Preload("PhoneCode").
		Preload("Timezone").
		Preload("Tags").
		First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

// ListByTags returns every customer carrying at least one of the given
// tag labels, each at most once, ordered by id. An empty label set
// matches nobody.
func (r *CustomerRepository) ListByTags(ctx context.Context, labels []string) ([]*model.Customer, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	var entities []*CustomerEntity
	err := r.db.Read(ctx).
		Distinct("customers.*").
		Joins("JOIN customers_tags ON customers_tags.customer_id = customers.id").
		Joins("JOIN tags ON tags.id = customers_tags.tag_id").
		Where("tags.tag IN ?", labels).
		Order("customers.id").
		Preload("PhoneCode").
		Preload("Timezone").
		Preload("Tags").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toCustomerModels(entities), nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(c)
	err := r.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		tx := r.db.Write(txCtx)
		var existing CustomerEntity
		if err := tx.First(&existing, c.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if err := tx.Omit("Tags", "PhoneCode", "Timezone").Save(entity).Error; err != nil {
			return err
		}
		return tx.Model(entity).Association("Tags").Replace(entity.Tags)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, c.ID)
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.Write(ctx).Delete(&CustomerEntity{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func firstByID(tx *gorm.DB, dest interface{}, id int64, notFound error) error {
	err := tx.Select("id").First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
