package dispatch

import (
	"sync"
	"time"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/logger"
)

// locations caches loaded timezones; a cycle resolves the same handful
// of names for thousands of customers.
var locations sync.Map

func loadLocation(name string) (*time.Location, error) {
	if v, ok := locations.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locations.Store(name, loc)
	return loc, nil
}

// AllowLocalTime reports whether a mailout may reach the customer right
// now, judged by the hour on the customer's local clock. Mailouts
// without a window pass everyone. A window with an unset edge is open
// on that side. When the window is set but the customer's timezone is
// missing or unknown, the send is refused rather than guessed.
//
// Overnight windows (start >= end) match no hour and therefore block
// every send.
func AllowLocalTime(m *model.Mailout, c *model.Customer, now time.Time) bool {
	if !m.HasLocalTimeWindow() {
		return true
	}

	name := c.TimezoneName()
	if name == "" {
		logger.Warn("local-time window set but customer has no timezone, skipping",
			"mailout_id", m.ID, "customer_id", c.ID)
		return false
	}
	loc, err := loadLocation(name)
	if err != nil {
		logger.Warn("customer timezone unresolvable, skipping",
			"mailout_id", m.ID, "customer_id", c.ID, "timezone", name)
		return false
	}

	start, end := 0, 24
	if m.LocalTimeStartHour != nil {
		start = *m.LocalTimeStartHour
	}
	if m.LocalTimeEndHour != nil {
		end = *m.LocalTimeEndHour
	}

	hour := now.In(loc).Hour()
	return start <= hour && hour < end
}
