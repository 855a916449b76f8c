package domain

// StatusName is a canonical warehouse status.
type StatusName string

const (
	StatusNew        StatusName = "New"
	StatusInProgress StatusName = "In Progress"
	StatusResolved   StatusName = "Resolved"
)

// CanonicalStatuses lists the warehouse status vocabulary.
var CanonicalStatuses = []StatusName{StatusNew, StatusInProgress, StatusResolved}

// IsCanonical reports whether s belongs to the warehouse vocabulary.
func (s StatusName) IsCanonical() bool {
	for _, c := range CanonicalStatuses {
		if s == c {
			return true
		}
	}
	return false
}
