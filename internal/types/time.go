package types

import "time"

// FormatTime renders t in UTC RFC 3339 without sub-second precision.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// FormatTimePtr is FormatTime for nullable timestamps.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}
