package types

// Check statuses. Raw status is owned by ping ingestion and the bulk
// pause/resume actions; effective status overlays maintenance on top of it.
const (
	StatusNew    = "new"
	StatusUp     = "up"
	StatusDown   = "down"
	StatusPaused = "paused"

	// StatusNoChecks is only ever produced by status page aggregation.
	StatusNoChecks = "no_checks"
)

// Per-owner quotas.
const (
	MaxWindowsPerCheck       = 10
	MaxStatusPagesPerProject = 5
	MaxBulkChecks            = 50
)

// Field limits shared by maintenance windows and status pages.
const (
	MaxTitleLength = 100
	MaxNameLength  = 100
	MaxSlugLength  = 100
)

const ContextCallerKey = "caller"

// IsValidStatus reports whether s is one of the raw check statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusUp, StatusDown, StatusPaused:
		return true
	}
	return false
}
