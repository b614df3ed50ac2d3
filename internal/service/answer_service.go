package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type submissionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByUserAndAssignment(ctx context.Context, userID, assignmentID string) (*models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id string) error
	FindAnswer(ctx context.Context, id string) (*models.Answer, error)
	ListAnswers(ctx context.Context, submissionID string) ([]models.Answer, error)
	CreateAnswer(ctx context.Context, answer *models.Answer) error
	DeleteAnswer(ctx context.Context, id string) error
	CountAnswers(ctx context.Context, submissionID string) (int, error)
}

type assignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

// SubmitAnswerRequest is a single answer. Either text or url must be present.
type SubmitAnswerRequest struct {
	Name string  `json:"name" validate:"required,max=200"`
	Text *string `json:"text" validate:"omitempty,max=20000"`
	URL  string  `json:"url" validate:"omitempty,url"`
}

// SubmitAnswerResult reports the stored answer and the submission it belongs to.
type SubmitAnswerResult struct {
	Answer            *models.Answer     `json:"answer"`
	Submission        *models.Submission `json:"submission"`
	SubmissionCreated bool               `json:"submission_created"`
}

// DeleteAnswerResult reports what a delete left behind.
type DeleteAnswerResult struct {
	SubmissionID      string `json:"submission_id"`
	RemainingAnswers  int    `json:"remaining_answers"`
	SubmissionDeleted bool   `json:"submission_deleted"`
}

// AnswerService handles answer submission and removal. A submission exists only while
// it holds at least one answer.
type AnswerService struct {
	submissions submissionRepository
	assignments assignmentReader
	progress    progressTracker
	activities  activityRecorder
	runner      *commandRunner
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAnswerService constructs AnswerService.
func NewAnswerService(submissions submissionRepository, assignments assignmentReader, progress progressTracker, activities activityRecorder, tx transactor, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AnswerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if activities == nil {
		activities = noopActivities{}
	}
	return &AnswerService{
		submissions: submissions,
		assignments: assignments,
		progress:    progress,
		activities:  activities,
		runner:      newCommandRunner(tx, metrics, logger),
		validator:   validate,
		logger:      logger,
	}
}

// Submit attaches an answer to the user's submission for the assignment, creating the
// submission first when this is the user's first answer.
func (s *AnswerService) Submit(ctx context.Context, assignmentID string, req *SubmitAnswerRequest, user *models.User) (*SubmitAnswerResult, error) {
	if req == nil {
		return nil, invalidf("answer is required")
	}
	if user == nil {
		return nil, invalidf("user is required")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Text != nil && strings.TrimSpace(*req.Text) == "" {
		req.Text = nil
	}
	if req.Text == nil && req.URL == "" {
		return nil, invalidf("answer must carry text or a url")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid answer payload")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}

	result := &SubmitAnswerResult{}
	err = s.runner.Run(ctx, "submit_answer", func(ctx context.Context, saga *Saga) error {
		submission, created, err := s.findOrCreateSubmission(ctx, user.ID, assignment.ID)
		if err != nil {
			return err
		}
		if created {
			saga.OnFailure("delete submission", func(ctx context.Context) error {
				return s.submissions.Delete(ctx, submission.ID)
			})
		}
		answer := &models.Answer{SubmissionID: submission.ID, Name: req.Name, Text: req.Text, URL: req.URL}
		if err := s.submissions.CreateAnswer(ctx, answer); err != nil {
			return appErrors.Dependency(err, "failed to store answer")
		}
		result.Answer = answer
		result.Submission = submission
		result.SubmissionCreated = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, Activity{
		Type:         ActivitySubmittedAssignment,
		UserID:       user.ID,
		GroupID:      assignment.GroupID,
		AssignmentID: assignment.ID,
		Args:         []interface{}{assignment.Name},
	})
	return result, nil
}

func (s *AnswerService) findOrCreateSubmission(ctx context.Context, userID, assignmentID string) (*models.Submission, bool, error) {
	submission, err := s.submissions.FindByUserAndAssignment(ctx, userID, assignmentID)
	if err == nil {
		return submission, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Dependency(err, "failed to load submission")
	}
	submission = &models.Submission{UserID: userID, AssignmentID: assignmentID}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, false, appErrors.Dependency(err, "failed to create submission")
	}
	return submission, true, nil
}

// ListAnswers returns the answers of a submission to its owner or to staff.
func (s *AnswerService) ListAnswers(ctx context.Context, submissionID string, user *models.User) ([]models.Answer, error) {
	if user == nil {
		return nil, invalidf("user is required")
	}
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, lookupError(err, "submission")
	}
	if !canManageSubmission(user, submission) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another user")
	}
	answers, err := s.submissions.ListAnswers(ctx, submissionID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list answers")
	}
	if answers == nil {
		answers = []models.Answer{}
	}
	return answers, nil
}

// Delete removes an answer. Emptiness is decided from the persisted count after the
// delete; a submission left with no answers is removed as well.
func (s *AnswerService) Delete(ctx context.Context, answerID string, user *models.User) (*DeleteAnswerResult, error) {
	answer, err := s.submissions.FindAnswer(ctx, answerID)
	if err != nil {
		return nil, lookupError(err, "answer")
	}
	submission, err := s.submissions.FindByID(ctx, answer.SubmissionID)
	if err != nil {
		return nil, lookupError(err, "submission")
	}
	if user != nil && !canManageSubmission(user, submission) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "answer belongs to another user")
	}

	result := &DeleteAnswerResult{SubmissionID: submission.ID}
	err = s.runner.Run(ctx, "delete_answer", func(ctx context.Context, saga *Saga) error {
		if err := s.submissions.DeleteAnswer(ctx, answer.ID); err != nil {
			return appErrors.Dependency(err, "failed to delete answer")
		}
		saga.OnFailure("restore answer", func(ctx context.Context) error {
			restored := *answer
			return s.submissions.CreateAnswer(ctx, &restored)
		})
		remaining, err := s.submissions.CountAnswers(ctx, submission.ID)
		if err != nil {
			return appErrors.Dependency(err, "failed to count remaining answers")
		}
		result.RemainingAnswers = remaining
		if remaining > 0 {
			return nil
		}
		if err := s.submissions.Delete(ctx, submission.ID); err != nil {
			return appErrors.Dependency(err, "failed to delete empty submission")
		}
		saga.OnFailure("restore submission", func(ctx context.Context) error {
			restored := *submission
			return s.submissions.Create(ctx, &restored)
		})
		result.SubmissionDeleted = true
		if !submission.IsChecked && submission.Grade == 0 {
			return nil
		}
		assignment, err := s.assignments.FindByID(ctx, submission.AssignmentID)
		if err != nil {
			return lookupError(err, "assignment")
		}
		return s.progress.RefreshMember(ctx, assignment.GroupID, submission.UserID)
	})
	if err != nil {
		return nil, err
	}
	if result.SubmissionDeleted && (submission.IsChecked || submission.Grade > 0) {
		if assignment, err := s.assignments.FindByID(ctx, submission.AssignmentID); err == nil {
			s.progress.Invalidate(ctx, assignment.GroupID)
		}
	}
	return result, nil
}

func canManageSubmission(user *models.User, submission *models.Submission) bool {
	switch user.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	case models.RoleStudent:
		return submission.UserID == user.ID
	default:
		return false
	}
}
