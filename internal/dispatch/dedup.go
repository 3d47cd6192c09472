package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/pkg/logger"
	"github.com/misteraverin/notification-service/pkg/redis"
)

// DedupGuard claims a mailout/customer pair in Redis before a message
// is created, so overlapping cycles and duplicate on-demand runs do not
// send the same text twice. The claim expires with the mailout's
// sending window.
type DedupGuard struct {
	redis redis.Adapter
}

func NewDedupGuard(adapter redis.Adapter) *DedupGuard {
	return &DedupGuard{redis: adapter}
}

// Acquire returns true when this process is the first to claim the
// pair. Redis being unreachable must not halt dispatching, so errors
// degrade to true and the database keeps the authoritative record.
func (g *DedupGuard) Acquire(ctx context.Context, m *model.Mailout, customerID int64, now time.Time) bool {
	ttl := m.FinishAt.Sub(now)
	if ttl <= 0 {
		return false
	}

	ok, err := g.redis.SetNX(dedupKey(m.ID, customerID), []byte("1"), ttl)
	if err != nil {
		logger.Warn("dedup claim failed, proceeding without it",
			"mailout_id", m.ID, "customer_id", customerID, "error", err)
		return true
	}
	return ok
}

// Release drops a claim whose dispatch never reached a terminal status,
// so a later cycle can retry the pair. Best effort: a missing or
// already expired key is fine.
func (g *DedupGuard) Release(mailoutID, customerID int64) {
	if err := g.redis.Del(dedupKey(mailoutID, customerID)); err != nil {
		logger.Warn("dedup release failed",
			"mailout_id", mailoutID, "customer_id", customerID, "error", err)
	}
}

func dedupKey(mailoutID, customerID int64) string {
	return fmt.Sprintf("dispatch:mailout:%d:customer:%d", mailoutID, customerID)
}
