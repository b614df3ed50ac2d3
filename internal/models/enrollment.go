package models

import "time"

// CourseEnrollment links a user to a course.
type CourseEnrollment struct {
	UserID   string    `db:"user_id" json:"user_id"`
	CourseID string    `db:"course_id" json:"course_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// GroupEnrollment links a user to a group and stores their last computed progress.
type GroupEnrollment struct {
	UserID   string    `db:"user_id" json:"user_id"`
	GroupID  string    `db:"group_id" json:"group_id"`
	Progress float64   `db:"progress" json:"progress"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Member is an enrollment joined with the user's identity.
type Member struct {
	UserID   string    `db:"user_id" json:"user_id"`
	FullName string    `db:"full_name" json:"full_name"`
	Email    string    `db:"email" json:"email"`
	Role     UserRole  `db:"role" json:"role"`
	Progress float64   `db:"progress" json:"progress"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
