package model

import (
	"errors"
	"fmt"
	"time"
)

type Mailout struct {
	ID          int64        `json:"id"`
	TextMessage string       `json:"text_message"`
	StartAt     time.Time    `json:"start_at"`
	FinishAt    time.Time    `json:"finish_at"`
	// Optional per-day sending window in the customer's local time,
	// hours 0-23, half-open [start, end). Either side may be set alone.
	LocalTimeStartHour *int        `json:"local_time_start_hour,omitempty"`
	LocalTimeEndHour   *int        `json:"local_time_end_hour,omitempty"`
	Tags               []Tag       `json:"tags,omitempty"`
	PhoneCodes         []PhoneCode `json:"phone_codes,omitempty"`
}

// Active reports whether now falls inside the mailout's window,
// start inclusive, finish exclusive.
func (m *Mailout) Active(now time.Time) bool {
	return !now.Before(m.StartAt) && now.Before(m.FinishAt)
}

// Expired reports whether the window has passed.
func (m *Mailout) Expired(now time.Time) bool {
	return !now.Before(m.FinishAt)
}

// HasLocalTimeWindow reports whether any local-hour restriction is set.
func (m *Mailout) HasLocalTimeWindow() bool {
	return m.LocalTimeStartHour != nil || m.LocalTimeEndHour != nil
}

func (m *Mailout) TagLabels() []string {
	labels := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		labels = append(labels, t.Label)
	}
	return labels
}

// MailoutCreateRequest is the input for creating a mailout.
type MailoutCreateRequest struct {
	TextMessage        string    `json:"text_message"`
	StartAt            time.Time `json:"start_at"`
	FinishAt           time.Time `json:"finish_at"`
	LocalTimeStartHour *int      `json:"local_time_start_hour"`
	LocalTimeEndHour   *int      `json:"local_time_end_hour"`
	TagIDs             []int64   `json:"tag_ids"`
	PhoneCodeIDs       []int64   `json:"phone_code_ids"`
}

func (p MailoutCreateRequest) Validate() error {
	if p.TextMessage == "" {
		return fmt.Errorf("%w: text_message is required", ErrValidation)
	}
	if p.StartAt.IsZero() || p.FinishAt.IsZero() {
		return fmt.Errorf("%w: start_at and finish_at are required", ErrValidation)
	}
	if p.FinishAt.Before(p.StartAt) {
		return ErrWrongDatetime
	}
	if err := validHour(p.LocalTimeStartHour); err != nil {
		return err
	}
	if err := validHour(p.LocalTimeEndHour); err != nil {
		return err
	}
	return nil
}

// ErrValidation is the root of request validation failures; handlers
// map anything wrapping it to a client error.
var (
	ErrValidation    = errors.New("invalid request")
	ErrWrongDatetime = fmt.Errorf("%w: finish_at precedes start_at", ErrValidation)
)

func validHour(h *int) error {
	if h == nil {
		return nil
	}
	if *h < 0 || *h > 23 {
		return fmt.Errorf("%w: local time hour must be between 0 and 23", ErrValidation)
	}
	return nil
}
