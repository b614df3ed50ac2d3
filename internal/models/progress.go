package models

// GroupProgress summarises a group's grading state.
type GroupProgress struct {
	GroupID         string           `json:"group_id"`
	Progress        string           `json:"progress"`
	AssignmentCount int              `json:"assignment_count"`
	StudentCount    int              `json:"student_count"`
	Members         []MemberProgress `json:"members,omitempty"`
}

// MemberProgress is a single student's share of a group's checked work.
type MemberProgress struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Progress string `json:"progress"`
}
