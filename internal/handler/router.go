package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/middleware"
	"github.com/noah-isme/course-system-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Courses       *CourseHandler
	Groups        *GroupHandler
	Assignments   *AssignmentHandler
	Answers       *AnswerHandler
	Materials     *MaterialHandler
	Memberships   *MembershipHandler
	Notifications *NotificationHandler
	Progress      *ProgressHandler
}

// RegisterRoutes mounts the public download route and the authenticated API on api.
func RegisterRoutes(api *gin.RouterGroup, auth middleware.TokenValidator, h Handlers) {
	api.GET("/materials/download", h.Materials.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))
	{
		registerCourseRoutes(secured, h)
		registerGroupRoutes(secured, h)
		registerAssignmentRoutes(secured, h)
		registerMaterialRoutes(secured, h)

		secured.GET("/notifications", h.Notifications.List)
		secured.POST("/notifications/:id/read", h.Notifications.MarkRead)
	}
}

var staff = middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

func registerCourseRoutes(r *gin.RouterGroup, h Handlers) {
	r.GET("/courses", h.Courses.List)
	r.GET("/courses/:id", h.Courses.Get)
	r.POST("/courses", staff, h.Courses.Create)
	r.PUT("/courses/:id", staff, h.Courses.Update)
	r.DELETE("/courses/:id", staff, h.Courses.Delete)
	r.POST("/courses/:id/join", h.Courses.Join)
	r.GET("/courses/:id/members", h.Memberships.CourseMembers)
	r.DELETE("/courses/:id/members/:userId", staff, h.Memberships.RemoveCourseMember)
}

func registerGroupRoutes(r *gin.RouterGroup, h Handlers) {
	r.GET("/groups", h.Groups.List)
	r.GET("/groups/:id", h.Groups.Get)
	r.POST("/groups", staff, h.Groups.Create)
	r.PUT("/groups/:id", staff, h.Groups.Update)
	r.DELETE("/groups/:id", staff, h.Groups.Delete)
	r.POST("/groups/:id/join", h.Groups.Join)
	r.GET("/groups/:id/members", h.Memberships.GroupMembers)
	r.DELETE("/groups/:id/members/:userId", staff, h.Groups.RemoveMember)

	r.GET("/groups/:id/progress", staff, h.Progress.Group)
	r.GET("/groups/:id/progress/users/:userId", h.Progress.User)
	r.GET("/groups/:id/progress/export", staff, h.Progress.Export)
}

func registerAssignmentRoutes(r *gin.RouterGroup, h Handlers) {
	r.GET("/groups/:id/assignments", h.Assignments.List)
	r.POST("/groups/:id/assignments", staff, h.Assignments.Create)
	r.GET("/assignments/:id", h.Assignments.Get)
	r.PUT("/assignments/:id", staff, h.Assignments.Update)
	r.DELETE("/assignments/:id", staff, h.Assignments.Delete)

	r.POST("/assignments/:id/answers", middleware.RequireRoles(models.RoleStudent), h.Answers.Submit)
	r.GET("/submissions/:id/answers", h.Answers.List)
	r.PUT("/submissions/:id/grade", staff, h.Assignments.Grade)
	r.DELETE("/answers/:id", h.Answers.Delete)
}

func registerMaterialRoutes(r *gin.RouterGroup, h Handlers) {
	r.GET("/courses/:id/materials", h.Materials.ListCourse)
	r.POST("/courses/:id/materials", staff, h.Materials.UploadCourse)
	r.GET("/groups/:id/materials", h.Materials.ListGroup)
	r.POST("/groups/:id/materials", staff, h.Materials.UploadGroup)
	r.GET("/materials/:id/link", h.Materials.Link)
	r.DELETE("/materials/:id", staff, h.Materials.Delete)
}
