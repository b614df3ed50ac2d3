package models

import "time"

// Submission is the per-user record for an assignment. It must own at least one answer.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	Grade        int       `db:"grade" json:"grade"`
	IsChecked    bool      `db:"is_checked" json:"is_checked"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Answer is a single piece of work attached to a submission.
type Answer struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Name         string    `db:"name" json:"name"`
	Text         *string   `db:"text" json:"text,omitempty"`
	URL          string    `db:"url" json:"url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
