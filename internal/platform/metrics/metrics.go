package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	cellsWritten     uint64
	exports          uint64
	recoveryRequests uint64
	storeFailures    uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// CellsWritten counts override cells applied by rota saves.
func (c *Collector) CellsWritten(n int) {
	if c == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&c.cellsWritten, uint64(n))
}

func (c *Collector) Export() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.exports, 1)
}

func (c *Collector) RecoveryRequest() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.recoveryRequests, 1)
}

func (c *Collector) StoreFailure() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.storeFailures, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":         total,
		"errorsTotal":           errs,
		"rateLimitedTotal":      limited,
		"avgDurationMs":         avg,
		"totalDurationMs":       totalMs,
		"cellsWrittenTotal":     atomic.LoadUint64(&c.cellsWritten),
		"exportsTotal":          atomic.LoadUint64(&c.exports),
		"recoveryRequestsTotal": atomic.LoadUint64(&c.recoveryRequests),
		"storeFailuresTotal":    atomic.LoadUint64(&c.storeFailures),
	}
}
