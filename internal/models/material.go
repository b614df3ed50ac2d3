package models

import "time"

// MaterialAccess tells which entity owns a material.
type MaterialAccess string

const (
	MaterialAccessCourse MaterialAccess = "COURSE"
	MaterialAccessGroup  MaterialAccess = "GROUP"
)

// Material is an educational file kept in external storage.
type Material struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	StorageKey  string         `db:"storage_key" json:"-"`
	URL         string         `db:"url" json:"url"`
	ContentType string         `db:"content_type" json:"content_type"`
	Size        int64          `db:"size" json:"size"`
	Access      MaterialAccess `db:"access" json:"access"`
	CourseID    *string        `db:"course_id" json:"course_id,omitempty"`
	GroupID     *string        `db:"group_id" json:"group_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
