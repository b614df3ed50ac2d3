package models

// EntityKind names a node type in the ownership graph.
type EntityKind string

const (
	EntityCourse     EntityKind = "course"
	EntityGroup      EntityKind = "group"
	EntityAssignment EntityKind = "assignment"
	EntitySubmission EntityKind = "submission"
	EntityAnswer     EntityKind = "answer"
)

// ownedChildren is the exclusive ownership graph:
// Course -> Group -> Assignment -> Submission -> Answer.
var ownedChildren = map[EntityKind][]EntityKind{
	EntityCourse:     {EntityGroup},
	EntityGroup:      {EntityAssignment},
	EntityAssignment: {EntitySubmission},
	EntitySubmission: {EntityAnswer},
}

// Children returns the kinds exclusively owned by k.
func (k EntityKind) Children() []EntityKind {
	return ownedChildren[k]
}

// OwnsMaterials reports whether materials can hang off k.
func (k EntityKind) OwnsMaterials() bool {
	return k == EntityCourse || k == EntityGroup
}

// HasMemberships reports whether k carries enrollment rows.
func (k EntityKind) HasMemberships() bool {
	return k == EntityCourse || k == EntityGroup
}

// ReferencedByNotifications reports whether notifications may point at k.
func (k EntityKind) ReferencedByNotifications() bool {
	switch k {
	case EntityCourse, EntityGroup, EntityAssignment:
		return true
	default:
		return false
	}
}

// EntityRef identifies a single node.
type EntityRef struct {
	Kind EntityKind
	ID   string
}
