// Package stats collects the counters shown on the admin statistics page.
package stats

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is the statistics payload for the admin dashboard.
type Snapshot struct {
	ServerUptime      string `json:"server_uptime"`
	ServerStarted     string `json:"server_started"`
	HostUptimeSeconds uint64 `json:"host_uptime_seconds"`
	MemoryUsed        string `json:"memory_used"`
	MemoryTotal       string `json:"memory_total"`

	CurrentActiveUsers int `json:"current_active_users"`
	PeakActiveUsers    int `json:"peak_active_users"`
	TotalUsers         int `json:"total_users"`
	LiveTokens         int `json:"live_tokens"`
}

// Collector tracks the peak active user count and assembles snapshots.
type Collector struct {
	mu    sync.Mutex
	start time.Time
	peak  int
}

// NewCollector creates a collector anchored to the current time.
func NewCollector() *Collector {
	return &Collector{start: time.Now()}
}

// Observe records an active user count, tracking the peak.
func (c *Collector) Observe(active int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active > c.peak {
		c.peak = active
	}
}

// Reset clears the peak counter and restarts the uptime anchor for the
// displayed statistics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peak = 0
}

// Snapshot assembles the statistics payload. Host metrics are best effort;
// a failed probe is logged and left zero.
func (c *Collector) Snapshot(activeUsers, totalUsers, liveTokens int) Snapshot {
	c.mu.Lock()
	if activeUsers > c.peak {
		c.peak = activeUsers
	}
	peak := c.peak
	start := c.start
	c.mu.Unlock()

	s := Snapshot{
		ServerUptime:       time.Since(start).Round(time.Second).String(),
		ServerStarted:      humanize.Time(start),
		CurrentActiveUsers: activeUsers,
		PeakActiveUsers:    peak,
		TotalUsers:         totalUsers,
		LiveTokens:         liveTokens,
	}

	if uptime, err := host.Uptime(); err == nil {
		s.HostUptimeSeconds = uptime
	} else {
		log.Debug("failed to read host uptime", "error", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryUsed = humanize.Bytes(vm.Used)
		s.MemoryTotal = humanize.Bytes(vm.Total)
	} else {
		log.Debug("failed to read memory stats", "error", err)
	}

	return s
}
