package repository

import (
	"time"

	"github.com/misteraverin/notification-service/internal/model"
)

type MessageEntity struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Status     string    `gorm:"column:status;not null;index;default:created"`
	MailoutID  int64     `gorm:"column:mailout_id;not null;index"`
	CustomerID int64     `gorm:"column:customer_id;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (MessageEntity) TableName() string { return "messages" }

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:         m.ID,
		Status:     string(m.Status),
		MailoutID:  m.MailoutID,
		CustomerID: m.CustomerID,
		CreatedAt:  m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:         e.ID,
		Status:     model.MessageStatus(e.Status),
		MailoutID:  e.MailoutID,
		CustomerID: e.CustomerID,
		CreatedAt:  e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
