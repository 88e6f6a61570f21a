package metrics

import (
	"encoding/json"
	"time"

	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
)

// Collector periodically snapshots aggregate request and machine counts from
// storage into the gauge metrics. It does not touch per-operation counters or
// histograms, which are updated inline by the packages that perform the work.
type Collector struct {
	strategy storage.Strategy
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector over the given storage strategy.
func NewCollector(strategy storage.Strategy) *Collector {
	return &Collector{
		strategy: strategy,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics on a ticker, firing once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectRequestMetrics()
	c.collectMachineMetrics()
}

func (c *Collector) collectRequestMetrics() {
	records, err := c.strategy.FindAll(types.CollectionRequests)
	if err != nil {
		return
	}

	counts := make(map[string]map[types.RequestStatus]int)
	for _, rec := range records {
		var req types.Request
		if err := json.Unmarshal(rec.Data, &req); err != nil {
			continue
		}
		if counts[string(req.Type)] == nil {
			counts[string(req.Type)] = make(map[types.RequestStatus]int)
		}
		counts[string(req.Type)][req.Status]++
	}

	for reqType, byStatus := range counts {
		for status, count := range byStatus {
			RequestsTotal.WithLabelValues(reqType, string(status)).Set(float64(count))
		}
	}
}

func (c *Collector) collectMachineMetrics() {
	records, err := c.strategy.FindAll(types.CollectionMachines)
	if err != nil {
		return
	}

	counts := make(map[types.MachineStatus]int)
	for _, rec := range records {
		var m types.Machine
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			continue
		}
		counts[m.Status]++
	}

	for status, count := range counts {
		MachinesTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}
