package service

import (
	"math"
	"strconv"

	"github.com/noah-isme/course-system-api/internal/models"
)

// zeroProgress is reported whenever there is nothing to divide.
const zeroProgress = "0.0"

// ComputeUserProgress returns the share of the group's assignments for which the user
// has a checked submission.
func ComputeUserProgress(assignments []models.AssignmentWithSubmissions, userID string) string {
	return FormatProgress(userProgressValue(assignments, userID))
}

func userProgressValue(assignments []models.AssignmentWithSubmissions, userID string) float64 {
	checked := 0
	for _, assignment := range assignments {
		for _, submission := range assignment.Submissions {
			if submission.UserID == userID && submission.IsChecked {
				checked++
			}
		}
	}
	return percentage(checked, len(assignments))
}

// ComputeGroupProgress returns graded submissions over the number of assignment slots
// the group's students could fill.
func ComputeGroupProgress(assignments []models.AssignmentWithSubmissions, members []models.Member) string {
	graded := 0
	for _, assignment := range assignments {
		for _, submission := range assignment.Submissions {
			if submission.Grade > 0 {
				graded++
			}
		}
	}
	return FormatProgress(percentage(graded, len(assignments)*countStudents(members)))
}

func countStudents(members []models.Member) int {
	students := 0
	for _, member := range members {
		switch member.Role {
		case models.RoleStudent:
			students++
		case models.RoleAdmin, models.RoleTeacher:
		}
	}
	return students
}

func percentage(numerator, denominator int) float64 {
	if numerator == 0 || denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator) * 100
}

// FormatProgress renders a percentage with at most two decimals and no trailing zeros.
func FormatProgress(value float64) string {
	rounded := roundProgress(value)
	if rounded == 0 {
		return zeroProgress
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func roundProgress(value float64) float64 {
	return math.Round(value*100) / 100
}
