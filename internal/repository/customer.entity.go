package repository

import (
	"github.com/misteraverin/notification-service/internal/model"
)

type CustomerEntity struct {
	ID          int64            `gorm:"primaryKey;autoIncrement;column:id"`
	CountryCode int              `gorm:"column:country_code;not null;default:7"`
	Phone       string           `gorm:"column:phone;not null;index"`
	PhoneCodeID *int64           `gorm:"column:phone_code_id;index"`
	PhoneCode   *PhoneCodeEntity `gorm:"foreignKey:PhoneCodeID;references:ID"`
	TimezoneID  *int64           `gorm:"column:timezone_id;index"`
	Timezone    *TimezoneEntity  `gorm:"foreignKey:TimezoneID;references:ID"`
	Tags        []*TagEntity     `gorm:"many2many:customers_tags;joinForeignKey:CustomerID;joinReferences:TagID"`
}

func (CustomerEntity) TableName() string { return "customers" }

func toCustomerEntity(c *model.Customer) *CustomerEntity {
	if c == nil {
		return nil
	}
	e := &CustomerEntity{
		ID:          c.ID,
		CountryCode: c.CountryCode,
		Phone:       c.Phone,
	}
	if c.PhoneCode != nil {
		id := c.PhoneCode.ID
		e.PhoneCodeID = &id
	}
	if c.Timezone != nil {
		id := c.Timezone.ID
		e.TimezoneID = &id
	}
	for _, t := range c.Tags {
		e.Tags = append(e.Tags, &TagEntity{ID: t.ID, Label: t.Label})
	}
	return e
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	c := &model.Customer{
		ID:          e.ID,
		CountryCode: e.CountryCode,
		Phone:       e.Phone,
	}
	if e.PhoneCode != nil {
		c.PhoneCode = &model.PhoneCode{ID: e.PhoneCode.ID, Code: e.PhoneCode.Code}
	}
	if e.Timezone != nil {
		c.Timezone = &model.Timezone{ID: e.Timezone.ID, Name: e.Timezone.Name}
	}
	for _, t := range e.Tags {
		c.Tags = append(c.Tags, model.Tag{ID: t.ID, Label: t.Label})
	}
	return c
}

func toCustomerModels(entities []*CustomerEntity) []*model.Customer {
	if entities == nil {
		return nil
	}
	models := make([]*model.Customer, len(entities))
	for i, e := range entities {
		models[i] = toCustomerModel(e)
	}
	return models
}
