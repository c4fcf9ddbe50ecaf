// Package status derives what a check displays from its raw status and its
// maintenance windows, and rolls many displayed statuses into one verdict.
package status

import (
	"time"

	"github.com/monocle-dev/beacon/internal/models"
	"github.com/monocle-dev/beacon/internal/types"
)

// InMaintenance reports whether any window is active at now.
func InMaintenance(windows []models.MaintenanceWindow, now time.Time) bool {
	for _, w := range windows {
		if w.Active(now) {
			return true
		}
	}
	return false
}

// Effective overlays active maintenance onto the raw status. The raw status
// itself is never modified.
func Effective(raw string, windows []models.MaintenanceWindow, now time.Time) string {
	if InMaintenance(windows, now) {
		return types.StatusPaused
	}
	return raw
}

// Aggregate computes a status page verdict from its members' effective
// statuses: down beats up, up beats a uniformly paused set. A non-empty set
// with neither up nor down that is not all paused (all "new", or new mixed
// with paused) reports "new".
func Aggregate(statuses []string) string {
	if len(statuses) == 0 {
		return types.StatusNoChecks
	}

	anyUp, allPaused := false, true
	for _, s := range statuses {
		switch s {
		case types.StatusDown:
			return types.StatusDown
		case types.StatusUp:
			anyUp = true
		}
		if s != types.StatusPaused {
			allPaused = false
		}
	}

	switch {
	case anyUp:
		return types.StatusUp
	case allPaused:
		return types.StatusPaused
	default:
		return types.StatusNew
	}
}
