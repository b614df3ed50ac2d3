package models

import "time"

// Notification optionally references a course, group or assignment. When the
// referenced entity is deleted the references are cleared and the row is kept.
type Notification struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	IsRead       bool      `db:"is_read" json:"is_read"`
	CourseID     *string   `db:"course_id" json:"course_id,omitempty"`
	GroupID      *string   `db:"group_id" json:"group_id,omitempty"`
	AssignmentID *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
