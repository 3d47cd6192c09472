package repository

import (
	"time"

	"github.com/misteraverin/notification-service/internal/model"
)

type MailoutEntity struct {
	ID                 int64              `gorm:"primaryKey;autoIncrement;column:id"`
	TextMessage        string             `gorm:"column:text_message;not null"`
	StartAt            time.Time          `gorm:"column:start_at;not null;index"`
	FinishAt           time.Time          `gorm:"column:finish_at;not null;index"`
	LocalTimeStartHour *int               `gorm:"column:local_time_start_hour"`
	LocalTimeEndHour   *int               `gorm:"column:local_time_end_hour"`
	Tags               []*TagEntity       `gorm:"many2many:mailouts_tags;joinForeignKey:MailoutID;joinReferences:TagID"`
	PhoneCodes         []*PhoneCodeEntity `gorm:"many2many:mailouts_phone_codes;joinForeignKey:MailoutID;joinReferences:PhoneCodeID"`
}

func (MailoutEntity) TableName() string { return "mailouts" }

func toMailoutEntity(m *model.Mailout) *MailoutEntity {
	if m == nil {
		return nil
	}
	e := &MailoutEntity{
		ID:                 m.ID,
		TextMessage:        m.TextMessage,
		StartAt:            m.StartAt,
		FinishAt:           m.FinishAt,
		LocalTimeStartHour: m.LocalTimeStartHour,
		LocalTimeEndHour:   m.LocalTimeEndHour,
	}
	for _, t := range m.Tags {
		e.Tags = append(e.Tags, &TagEntity{ID: t.ID, Label: t.Label})
	}
	for _, pc := range m.PhoneCodes {
		e.PhoneCodes = append(e.PhoneCodes, &PhoneCodeEntity{ID: pc.ID, Code: pc.Code})
	}
	return e
}

func toMailoutModel(e *MailoutEntity) *model.Mailout {
	if e == nil {
		return nil
	}
	m := &model.Mailout{
		ID:                 e.ID,
		TextMessage:        e.TextMessage,
		StartAt:            e.StartAt,
		FinishAt:           e.FinishAt,
		LocalTimeStartHour: e.LocalTimeStartHour,
		LocalTimeEndHour:   e.LocalTimeEndHour,
	}
	for _, t := range e.Tags {
		m.Tags = append(m.Tags, model.Tag{ID: t.ID, Label: t.Label})
	}
	for _, pc := range e.PhoneCodes {
		m.PhoneCodes = append(m.PhoneCodes, model.PhoneCode{ID: pc.ID, Code: pc.Code})
	}
	return m
}

func toMailoutModels(entities []*MailoutEntity) []*model.Mailout {
	if entities == nil {
		return nil
	}
	models := make([]*model.Mailout, len(entities))
	for i, e := range entities {
		models[i] = toMailoutModel(e)
	}
	return models
}
