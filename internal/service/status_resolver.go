package service

import (
	"strings"
	"time"

	"github.com/noah-isme/course-system-api/internal/models"
)

// ResolveGroupStatus derives a group's status from its window. Rules apply in order and
// later ones override earlier ones, so an ended group is COMPLETED whatever its start.
func ResolveGroupStatus(now, start, end time.Time) models.GroupStatus {
	status := models.GroupStatusPlanned
	if !start.After(now) {
		status = models.GroupStatusInProgress
	}
	if end.Before(now) {
		status = models.GroupStatusCompleted
	}
	return status
}

// AssignmentWindow holds the two independent assignment conditions. Both can hold at once.
type AssignmentWindow struct {
	Started bool `json:"started"`
	Open    bool `json:"open"`
}

// AssignmentWindowAt evaluates the assignment conditions at now.
func AssignmentWindowAt(now, start, end time.Time) AssignmentWindow {
	return AssignmentWindow{
		Started: !start.After(now),
		Open:    !end.Before(now),
	}
}

// StatusPrecedence decides which assignment status wins when both window flags hold.
type StatusPrecedence string

const (
	// PrecedenceAwaitingApproval lets the open flag win, matching the legacy evaluation order.
	PrecedenceAwaitingApproval StatusPrecedence = "AWAITING_APPROVAL"
	PrecedenceInProgress       StatusPrecedence = "IN_PROGRESS"
)

// ParseStatusPrecedence maps configuration input to a precedence, defaulting to the legacy order.
func ParseStatusPrecedence(raw string) StatusPrecedence {
	if StatusPrecedence(strings.ToUpper(strings.TrimSpace(raw))) == PrecedenceInProgress {
		return PrecedenceInProgress
	}
	return PrecedenceAwaitingApproval
}

// ResolveAssignmentStatus turns a window into a status. With neither flag set the assignment is PLANNED.
func ResolveAssignmentStatus(window AssignmentWindow, precedence StatusPrecedence) models.AssignmentStatus {
	switch {
	case window.Started && window.Open:
		if precedence == PrecedenceInProgress {
			return models.AssignmentStatusInProgress
		}
		return models.AssignmentStatusAwaitingApproval
	case window.Started:
		return models.AssignmentStatusInProgress
	case window.Open:
		return models.AssignmentStatusAwaitingApproval
	default:
		return models.AssignmentStatusPlanned
	}
}

// validateWindow rejects windows ending before they start.
func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return invalidf("start_date and end_date are required")
	}
	if start.After(end) {
		return invalidf("start_date must not be after end_date")
	}
	return nil
}
