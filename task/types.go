package task

// Priority constants for tasks.
const (
	PriorityLow      = 0
	PriorityMedium   = 1 // default
	PriorityHigh     = 2
	PriorityCritical = 3

	PriorityMin = 0
	PriorityMax = 3
)

// PriorityName returns a human-readable name for the priority level.
func PriorityName(p int) string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// PriorityPtr returns a pointer to the provided priority.
func PriorityPtr(priority int) *int {
	return &priority
}

// RelationKind identifies one of a task's three relation lists.
type RelationKind string

const (
	// RelationBlockedBy is the derived inverse of Blocking; display-only.
	RelationBlockedBy RelationKind = "blocked_by"

	// RelationBlocking is the writable blocking edge list.
	RelationBlocking RelationKind = "blocking"

	// RelationLinked is the per-side list of related tasks.
	RelationLinked RelationKind = "linked_tasks"
)

// ValidRelationKinds returns all valid relation kind values.
func ValidRelationKinds() []RelationKind {
	return []RelationKind{RelationBlockedBy, RelationBlocking, RelationLinked}
}

// IsValid returns true if the kind is a known valid value.
func (k RelationKind) IsValid() bool {
	for _, valid := range ValidRelationKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// IsWritable reports whether a task's own form may edit this relation list.
// blocked_by is populated by other tasks' blocking lists.
func (k RelationKind) IsWritable() bool {
	return k == RelationBlocking || k == RelationLinked
}
