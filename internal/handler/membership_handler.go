package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/pkg/response"
)

type membershipService interface {
	ListCourseMembers(ctx context.Context, courseID string) ([]models.Member, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error)
	RemoveCourseMember(ctx context.Context, courseID, userID string) error
}

// MembershipHandler exposes course and group rosters.
type MembershipHandler struct {
	members membershipService
}

// NewMembershipHandler constructs MembershipHandler.
func NewMembershipHandler(members membershipService) *MembershipHandler {
	return &MembershipHandler{members: members}
}

// CourseMembers godoc
// @Summary List course members
// @Tags Memberships
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/members [get]
func (h *MembershipHandler) CourseMembers(c *gin.Context) {
	members, err := h.members.ListCourseMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// GroupMembers godoc
// @Summary List group members with stored progress
// @Tags Memberships
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/members [get]
func (h *MembershipHandler) GroupMembers(c *gin.Context) {
	members, err := h.members.ListGroupMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// RemoveCourseMember godoc
// @Summary Remove a user from a course
// @Description Removing a user who is not enrolled succeeds.
// @Tags Memberships
// @Param id path string true "Course ID"
// @Param userId path string true "User ID"
// @Success 204
// @Router /courses/{id}/members/{userId} [delete]
func (h *MembershipHandler) RemoveCourseMember(c *gin.Context) {
	if err := h.members.RemoveCourseMember(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
