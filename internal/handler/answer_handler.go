package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
	"github.com/noah-isme/course-system-api/pkg/response"
)

type answerService interface {
	Submit(ctx context.Context, assignmentID string, req *service.SubmitAnswerRequest, user *models.User) (*service.SubmitAnswerResult, error)
	ListAnswers(ctx context.Context, submissionID string, user *models.User) ([]models.Answer, error)
	Delete(ctx context.Context, answerID string, user *models.User) (*service.DeleteAnswerResult, error)
}

// AnswerHandler exposes answer submission endpoints.
type AnswerHandler struct {
	answers answerService
}

// NewAnswerHandler constructs AnswerHandler.
func NewAnswerHandler(answers answerService) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// Submit godoc
// @Summary Submit an answer
// @Description The first answer to an assignment creates the caller's submission.
// @Tags Answers
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.SubmitAnswerRequest true "Answer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assignments/{id}/answers [post]
func (h *AnswerHandler) Submit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.answers.Submit(c.Request.Context(), c.Param("id"), &req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List submission answers
// @Tags Answers
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions/{id}/answers [get]
func (h *AnswerHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	answers, err := h.answers.ListAnswers(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, answers, nil)
}

// Delete godoc
// @Summary Delete an answer
// @Description Removing the last answer also removes the submission.
// @Tags Answers
// @Produce json
// @Param id path string true "Answer ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /answers/{id} [delete]
func (h *AnswerHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.answers.Delete(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
