// Package models defines the persisted entities of the bulk agent:
// runs, jobs and rollback records.
package models

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing call
	DefaultLimit = 50
)

// ListOptions represents pagination options for list operations
type ListOptions struct {
	Limit  int `json:"limit"`  // Number of items to return
	Offset int `json:"offset"` // Number of items to skip
}

// WithDefaults returns a copy of the options with the default limit applied
func (o ListOptions) WithDefaults() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	return o
}
