package conversation

// Pagination bounds for conversation listings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Filter contains criteria for listing conversations.
type Filter struct {
	Status *Status
	Limit  int
	Offset int
}

// NewFilter creates a new filter with default pagination.
func NewFilter() *Filter {
	return &Filter{Limit: DefaultListLimit}
}

// WithStatus sets the status filter.
func (f *Filter) WithStatus(status Status) *Filter {
	f.Status = &status
	return f
}

// WithPagination sets the pagination parameters.
func (f *Filter) WithPagination(limit, offset int) *Filter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// Normalize clamps pagination into the supported range.
func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
