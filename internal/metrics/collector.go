package metrics

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"
)

// RollCounter reports how many rolls are stored
type RollCounter interface {
	Count(ctx context.Context) (int, error)
}

// Collector periodically refreshes the state gauges
type Collector struct {
	metrics      *Metrics
	rolls        RollCounter
	databasePath string
	interval     time.Duration
	startTime    time.Time
	logger       *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a new metrics collector. databasePath may be empty
// (in-memory database), in which case the size gauge is left untouched.
func NewCollector(m *Metrics, rolls RollCounter, databasePath string, interval time.Duration, logger *slog.Logger) *Collector {
	if interval == 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		metrics:      m,
		rolls:        rolls,
		databasePath: databasePath,
		interval:     interval,
		startTime:    time.Now(),
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the collector background loop
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop stops the collector and waits for the loop to exit
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	c.Collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect updates every state gauge once
func (c *Collector) Collect(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.databasePath != "" {
		if info, err := os.Stat(c.databasePath); err == nil {
			c.metrics.DatabaseSizeBytes.Set(float64(info.Size()))
		}
	}

	if c.rolls != nil {
		n, err := c.rolls.Count(ctx)
		if err != nil {
			c.logger.Warn("failed to count rolls", "error", err)
			return
		}
		c.metrics.RollsStored.Set(float64(n))
	}
}
