// Package repository holds shared list query options for the MySQL repositories.
package repository

const (
	// DefaultLimit is applied when a caller does not specify a page size
	DefaultLimit = 50

	// MaxLimit caps the page size regardless of what the caller asks for
	MaxLimit = 200
)

// ListOptions defines pagination and ordering for list queries
type ListOptions struct {
	Offset    int  `json:"offset"`     // Number of records to skip
	Limit     int  `json:"limit"`      // Maximum number of records to return
	OrderDesc bool `json:"order_desc"` // Newest first when true
}

// Normalize clamps the options to sane bounds
func (o ListOptions) Normalize() ListOptions {
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// Direction returns the SQL sort keyword for the configured order
func (o ListOptions) Direction() string {
	if o.OrderDesc {
		return "DESC"
	}
	return "ASC"
}
