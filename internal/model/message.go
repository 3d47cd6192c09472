package model

import "time"

// Message is one delivery attempt record. CreatedAt is reset on every
// status update, mirroring the store's historical behavior; it is a
// mutation timestamp despite the name.
type Message struct {
	ID         int64         `json:"id"`
	Status     MessageStatus `json:"status"`
	MailoutID  int64         `json:"mailout_id"`
	CustomerID int64         `json:"customer_id"`
	CreatedAt  time.Time     `json:"created_at"`
}

// StatusCount is one row of the stats queries.
type StatusCount struct {
	Status MessageStatus `json:"status" gorm:"column:status"`
	Count  int64         `json:"count"  gorm:"column:count"`
}
