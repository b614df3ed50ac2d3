package models

import "time"

// GroupStatus is derived from the group's time window; callers never set it.
type GroupStatus string

const (
	GroupStatusPlanned    GroupStatus = "PLANNED"
	GroupStatusInProgress GroupStatus = "IN_PROGRESS"
	GroupStatusCompleted  GroupStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s GroupStatus) Valid() bool {
	switch s {
	case GroupStatusPlanned, GroupStatusInProgress, GroupStatusCompleted:
		return true
	default:
		return false
	}
}

// Group belongs to exactly one course.
type Group struct {
	ID        string      `db:"id" json:"id"`
	CourseID  string      `db:"course_id" json:"course_id"`
	Name      string      `db:"name" json:"name"`
	StartDate time.Time   `db:"start_date" json:"start_date"`
	EndDate   time.Time   `db:"end_date" json:"end_date"`
	Status    GroupStatus `db:"status" json:"status"`
	Version   int         `db:"version" json:"version"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// GroupSort enumerates the sort orders available when listing groups.
type GroupSort string

const (
	GroupSortName          GroupSort = "name"
	GroupSortNameDesc      GroupSort = "name_desc"
	GroupSortStartDate     GroupSort = "start_date"
	GroupSortStartDateDesc GroupSort = "start_date_desc"
	GroupSortEndDate       GroupSort = "end_date"
	GroupSortEndDateDesc   GroupSort = "end_date_desc"
)

// GroupFilter narrows the groups a user belongs to.
type GroupFilter struct {
	UserID   string
	CourseID string
	Search   string
	Status   GroupStatus
	Sort     GroupSort
}
