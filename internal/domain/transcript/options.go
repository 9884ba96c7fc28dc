package transcript

import "time"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListOptions provides filtering options for listing records.
type ListOptions struct {
	HostEmail   string
	MeetingType MeetingType
	Since       time.Time
	Limit       int
	Offset      int
}

// SearchOptions provides paging for search.
type SearchOptions struct {
	Limit  int
	Offset int
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}
