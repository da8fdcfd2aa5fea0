package sqlite

import (
	"time"

	"jeeves-bot/internal/metrics"
)

func observeDB(operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveDBLatency(operation, start)
	}
}
