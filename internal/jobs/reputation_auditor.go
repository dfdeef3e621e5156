package jobs

import (
	"context"
	"log/slog"
	"time"

	"qamod/internal/db"
)

// DriftFinder lists users whose cached reputation disagrees with the ledger.
type DriftFinder interface {
	FindReputationDrift(ctx context.Context, limit int) ([]db.ReputationDrift, error)
}

// DriftRecorder receives the number of drifting users found by each pass.
type DriftRecorder func(count int)

// ReputationAuditor periodically compares every user's cached reputation with
// the sum of their ledger entries and reports mismatches. It never repairs:
// the ledger is append-only and a mismatch needs a human to look at it.
type ReputationAuditor struct {
	store    DriftFinder
	interval time.Duration
	limit    int
	record   DriftRecorder
	logger   *slog.Logger
}

// NewReputationAuditor creates a new auditor. record may be nil.
func NewReputationAuditor(store DriftFinder, interval time.Duration, record DriftRecorder) *ReputationAuditor {
	return &ReputationAuditor{
		store:    store,
		interval: interval,
		limit:    100,
		record:   record,
		logger:   slog.Default().With("component", "reputation_auditor"),
	}
}

// Start begins the background audit loop.
func (a *ReputationAuditor) Start(ctx context.Context) {
	a.logger.Info("reputation auditor started", "interval", a.interval)

	// Run immediately on start
	a.Check(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("reputation auditor stopped")
			return
		case <-ticker.C:
			a.Check(ctx)
		}
	}
}

// Check runs one audit pass and returns the number of drifting users found.
func (a *ReputationAuditor) Check(ctx context.Context) int {
	drift, err := a.store.FindReputationDrift(ctx, a.limit)
	if err != nil {
		a.logger.Error("failed to audit reputation", "error", err)
		return 0
	}

	for _, d := range drift {
		a.logger.Warn("reputation drift",
			"user_id", d.UserID, "cached", d.Cached, "ledger_sum", d.LedgerSum)
	}
	if a.record != nil {
		a.record(len(drift))
	}
	return len(drift)
}
