package models

import "time"

// AssignmentStatus is derived from the assignment window.
type AssignmentStatus string

const (
	AssignmentStatusPlanned          AssignmentStatus = "PLANNED"
	AssignmentStatusInProgress       AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusAwaitingApproval AssignmentStatus = "AWAITING_APPROVAL"
)

// Assignment belongs to exactly one group.
type Assignment struct {
	ID          string           `db:"id" json:"id"`
	GroupID     string           `db:"group_id" json:"group_id"`
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description"`
	StartDate   time.Time        `db:"start_date" json:"start_date"`
	EndDate     time.Time        `db:"end_date" json:"end_date"`
	Status      AssignmentStatus `db:"status" json:"status"`
	Version     int              `db:"version" json:"version"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentWithSubmissions pairs an assignment with every submission made to it.
type AssignmentWithSubmissions struct {
	Assignment
	Submissions []Submission `json:"submissions"`
}
