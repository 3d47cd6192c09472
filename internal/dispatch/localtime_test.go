package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/misteraverin/notification-service/internal/model"
)

func hourPtr(h int) *int { return &h }

func TestAllowLocalTime(t *testing.T) {
	// 12:00 UTC is 15:00 in Moscow and 04:00 in Los Angeles.
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	moscow := &model.Customer{ID: 1, Timezone: &model.Timezone{Name: "Europe/Moscow"}}
	la := &model.Customer{ID: 2, Timezone: &model.Timezone{Name: "America/Los_Angeles"}}
	noTz := &model.Customer{ID: 3}
	badTz := &model.Customer{ID: 4, Timezone: &model.Timezone{Name: "Mars/Olympus"}}

	tests := []struct {
		name     string
		start    *int
		end      *int
		customer *model.Customer
		want     bool
	}{
		{"no window allows anyone", nil, nil, noTz, true},
		{"inside window", hourPtr(9), hourPtr(18), moscow, true},
		{"before window", hourPtr(9), hourPtr(18), la, false},
		{"end hour is exclusive", hourPtr(9), hourPtr(15), moscow, false},
		{"start hour is inclusive", hourPtr(15), hourPtr(18), moscow, true},
		{"open start", nil, hourPtr(18), moscow, true},
		{"open end", hourPtr(9), nil, moscow, true},
		{"window without timezone denies", hourPtr(0), hourPtr(24), noTz, false},
		{"window with unknown timezone denies", hourPtr(0), hourPtr(24), badTz, false},
		{"overnight window denies everyone", hourPtr(22), hourPtr(6), moscow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &model.Mailout{
				ID:                 1,
				LocalTimeStartHour: tt.start,
				LocalTimeEndHour:   tt.end,
			}
			assert.Equal(t, tt.want, AllowLocalTime(m, tt.customer, noon))
		})
	}
}
