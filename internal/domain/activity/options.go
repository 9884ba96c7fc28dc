package activity

const (
	defaultLimit = 50
	maxLimit     = 200
)

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	RecordID string
	Type     Type
	Limit    int
	Offset   int
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
