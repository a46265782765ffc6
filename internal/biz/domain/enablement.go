package domain

// EnablementSet is the static allow-list of groups the collector ingests.
// It is built once from configuration and read-only afterwards.
type EnablementSet map[int64]struct{}

// NewEnablementSet builds the set from the configured group ids.
func NewEnablementSet(groupIDs []int64) EnablementSet {
	s := make(EnablementSet, len(groupIDs))
	for _, id := range groupIDs {
		s[id] = struct{}{}
	}
	return s
}

// Enabled reports whether ingestion runs for the group. Pure membership test,
// no side effects.
func (s EnablementSet) Enabled(groupID int64) bool {
	_, ok := s[groupID]
	return ok
}
