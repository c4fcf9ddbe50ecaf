package types

// Caller is the pre-authenticated scope every project operation runs under.
type Caller struct {
	ProjectID uint `json:"project_id"`
}
