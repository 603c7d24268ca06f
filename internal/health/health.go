package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Pinger is the slice of the storage layer the checker probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChainStatus exposes the chain queries the checker reports on.
type ChainStatus interface {
	Height() uint64
	LastBlockTime() time.Time
}

// Checker performs health checks on application dependencies
type Checker struct {
	db             Pinger
	chain          ChainStatus
	lastRunTime    time.Time
	lastRunSuccess bool
	interval       time.Duration
	mu             sync.RWMutex
}

// NewChecker creates a new health checker. interval is the expected snapshot
// cadence; zero disables the snapshot job check.
func NewChecker(db Pinger, chain ChainStatus, interval time.Duration) *Checker {
	return &Checker{
		db:       db,
		chain:    chain,
		interval: interval,
	}
}

// UpdateLastRun updates the timestamp and status of the last snapshot run
func (c *Checker) UpdateLastRun(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = time.Now()
	c.lastRunSuccess = success
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overallStatus := StatusOK

	// Check 1: Database connectivity
	dbCheck := c.checkDatabase(ctx)
	checks["database"] = dbCheck
	if dbCheck.Status != StatusOK {
		overallStatus = StatusError
	}

	// Check 2: Chain progress
	chainCheck := c.checkChain()
	checks["chain"] = chainCheck
	if chainCheck.Status != StatusOK {
		overallStatus = StatusError
	}

	// Check 3: Snapshot job cadence (if scheduled)
	if c.interval > 0 {
		jobCheck := c.checkSnapshotJob()
		checks["snapshot_job"] = jobCheck
		if jobCheck.Status != StatusOK && overallStatus == StatusOK {
			overallStatus = StatusDegraded
		}
	}

	return HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkChain reports the embedded chain's position. The chain lives in
// process, so this only fails when the checker was wired without one.
func (c *Checker) checkChain() CheckDetail {
	if c.chain == nil {
		return CheckDetail{
			Status:  StatusError,
			Message: "chain not initialized",
		}
	}

	height := c.chain.Height()
	last := c.chain.LastBlockTime()
	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("height %d, last block %s", height, last.Format(time.RFC3339)),
	}
}

// checkSnapshotJob verifies snapshots are landing at the expected cadence
func (c *Checker) checkSnapshotJob() CheckDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// If we've never run, that's OK (might be starting up)
	if c.lastRunTime.IsZero() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "snapshot job not yet executed (startup)",
		}
	}

	// Check if last run was successful
	if !c.lastRunSuccess {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last snapshot failed",
		}
	}

	// Check if we're running on schedule (allow 2x interval grace period)
	timeSinceLastRun := time.Since(c.lastRunTime)
	graceThreshold := c.interval * 2

	if timeSinceLastRun > graceThreshold {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no snapshot in %s (expected every %s)", timeSinceLastRun.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last snapshot %s ago", timeSinceLastRun.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only support GET
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()
		status := c.Check(ctx)

		// Set status code based on health
		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
