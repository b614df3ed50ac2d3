package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-system-api/internal/models"
)

func withSubmissions(id string, submissions ...models.Submission) models.AssignmentWithSubmissions {
	return models.AssignmentWithSubmissions{Assignment: models.Assignment{ID: id}, Submissions: submissions}
}

func students(ids ...string) []models.Member {
	members := make([]models.Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, models.Member{UserID: id, Role: models.RoleStudent})
	}
	return members
}

func TestComputeGroupProgressCountsGradedSlots(t *testing.T) {
	assignments := []models.AssignmentWithSubmissions{
		withSubmissions("a1", models.Submission{UserID: "s1", Grade: 80, IsChecked: true}),
		withSubmissions("a2"),
	}
	members := append(students("s1", "s2"), models.Member{UserID: "t1", Role: models.RoleTeacher})

	assert.Equal(t, "25", ComputeGroupProgress(assignments, members))
}

func TestComputeGroupProgressZeroGuards(t *testing.T) {
	assert.Equal(t, "0.0", ComputeGroupProgress(nil, students("s1")))
	assert.Equal(t, "0.0", ComputeGroupProgress([]models.AssignmentWithSubmissions{withSubmissions("a1")}, nil))

	ungraded := []models.AssignmentWithSubmissions{withSubmissions("a1", models.Submission{UserID: "s1", IsChecked: true})}
	assert.Equal(t, "0.0", ComputeGroupProgress(ungraded, students("s1")))
}

func TestComputeUserProgressUsesCheckedSubmissions(t *testing.T) {
	assignments := []models.AssignmentWithSubmissions{
		withSubmissions("a1", models.Submission{UserID: "s1", IsChecked: true}),
		withSubmissions("a2", models.Submission{UserID: "s1"}),
		withSubmissions("a3", models.Submission{UserID: "s2", IsChecked: true}),
	}

	assert.Equal(t, "33.33", ComputeUserProgress(assignments, "s1"))
	assert.Equal(t, "0.0", ComputeUserProgress(assignments, "nobody"))
	assert.Equal(t, "0.0", ComputeUserProgress(nil, "s1"))
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "0.0", FormatProgress(0))
	assert.Equal(t, "0.0", FormatProgress(0.001))
	assert.Equal(t, "100", FormatProgress(100))
	assert.Equal(t, "66.67", FormatProgress(200.0/3))
	assert.Equal(t, "12.5", FormatProgress(12.5))
}
