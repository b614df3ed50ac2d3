package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type gradeStore interface {
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	UpdateGrade(ctx context.Context, id string, grade int, checked bool) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type progressTracker interface {
	RefreshMember(ctx context.Context, groupID, userID string) error
	Invalidate(ctx context.Context, groupID string)
}

// AssignmentRequest is the payload for creating or updating an assignment.
type AssignmentRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Version     int       `json:"version" validate:"omitempty,min=1"`
}

// GradeRequest sets the grade of a submission.
type GradeRequest struct {
	Grade int `json:"grade" validate:"min=0,max=100"`
}

// AssignmentService orchestrates assignments and grading.
type AssignmentService struct {
	repo        assignmentRepository
	groups      groupReader
	submissions gradeStore
	users       userReader
	progress    progressTracker
	deleter     entityDeleter
	activities  activityRecorder
	runner      *commandRunner
	precedence  StatusPrecedence
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// AssignmentServiceDeps groups the collaborators of AssignmentService.
type AssignmentServiceDeps struct {
	Repo        assignmentRepository
	Groups      groupReader
	Submissions gradeStore
	Users       userReader
	Progress    progressTracker
	Deleter     entityDeleter
	Activities  activityRecorder
	Transactor  transactor
	Metrics     *MetricsService
	Precedence  StatusPrecedence
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(deps AssignmentServiceDeps) *AssignmentService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Activities == nil {
		deps.Activities = noopActivities{}
	}
	if deps.Precedence == "" {
		deps.Precedence = PrecedenceAwaitingApproval
	}
	return &AssignmentService{
		repo:        deps.Repo,
		groups:      deps.Groups,
		submissions: deps.Submissions,
		users:       deps.Users,
		progress:    deps.Progress,
		deleter:     deps.Deleter,
		activities:  deps.Activities,
		runner:      newCommandRunner(deps.Transactor, deps.Metrics, deps.Logger),
		precedence:  deps.Precedence,
		validator:   deps.Validator,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

func (s *AssignmentService) deriveStatus(now time.Time, a *models.Assignment) models.AssignmentStatus {
	return ResolveAssignmentStatus(AssignmentWindowAt(now, a.StartDate, a.EndDate), s.precedence)
}

// Get returns an assignment with its status re-derived.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	s.refreshStatus(ctx, assignment, s.now())
	return assignment, nil
}

// ListForGroup returns the group's assignments, writing back any status that changed.
func (s *AssignmentService) ListForGroup(ctx context.Context, groupID string) ([]models.Assignment, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, lookupError(err, "group")
	}
	assignments, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to list assignments")
	}
	now := s.now()
	for i := range assignments {
		s.refreshStatus(ctx, &assignments[i], now)
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	return assignments, nil
}

// Window exposes both raw window flags so callers can apply their own precedence.
func (s *AssignmentService) Window(assignment *models.Assignment) AssignmentWindow {
	return AssignmentWindowAt(s.now(), assignment.StartDate, assignment.EndDate)
}

func (s *AssignmentService) refreshStatus(ctx context.Context, assignment *models.Assignment, now time.Time) {
	derived := s.deriveStatus(now, assignment)
	if derived == assignment.Status {
		return
	}
	assignment.Status = derived
	if err := s.repo.UpdateStatus(ctx, assignment.ID, derived); err != nil {
		s.logger.Warn("persist assignment status failed", zap.String("assignment_id", assignment.ID), zap.Error(err))
	}
}

func (s *AssignmentService) validate(req *AssignmentRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalidf("assignment name is required")
	}
	if err := validateWindow(req.StartDate, req.EndDate); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid assignment payload")
	}
	return nil
}

// Create adds an assignment to a group.
func (s *AssignmentService) Create(ctx context.Context, groupID string, req AssignmentRequest, creator *models.User) (*models.Assignment, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, lookupError(err, "group")
	}
	assignment := &models.Assignment{
		GroupID:     group.ID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
	}
	assignment.Status = s.deriveStatus(s.now(), assignment)
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Dependency(err, "failed to create assignment")
	}
	s.progress.Invalidate(ctx, group.ID)
	if creator != nil {
		s.activities.Record(ctx, Activity{
			Type:         ActivityCreatedAssignment,
			UserID:       creator.ID,
			CourseID:     group.CourseID,
			GroupID:      group.ID,
			AssignmentID: assignment.ID,
			Args:         []interface{}{assignment.Name, group.Name, formatDayTime(assignment.StartDate), formatDayTime(assignment.EndDate)},
		})
	}
	return assignment, nil
}

// Update applies new field values when the caller's version is current.
func (s *AssignmentService) Update(ctx context.Context, id string, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	if req.Version == 0 {
		return nil, invalidf("version is required")
	}
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	assignment.Name = req.Name
	assignment.Description = strings.TrimSpace(req.Description)
	assignment.StartDate = req.StartDate.UTC()
	assignment.EndDate = req.EndDate.UTC()
	assignment.Status = s.deriveStatus(s.now(), assignment)
	assignment.Version = req.Version
	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, writeError(err, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes the assignment with its submissions and answers.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "assignment")
	}
	if err := s.deleter.Delete(ctx, models.EntityRef{Kind: models.EntityAssignment, ID: id}); err != nil {
		return err
	}
	s.progress.Invalidate(ctx, assignment.GroupID)
	return nil
}

// GradeSubmission marks a submission as checked and refreshes the student's stored progress.
func (s *AssignmentService) GradeSubmission(ctx context.Context, submissionID string, req GradeRequest, grader *models.User) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "grade must be between 0 and 100")
	}
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, lookupError(err, "submission")
	}
	assignment, err := s.repo.FindByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}

	err = s.runner.Run(ctx, "grade_submission", func(ctx context.Context, saga *Saga) error {
		previous := *submission
		if err := s.submissions.UpdateGrade(ctx, submission.ID, req.Grade, true); err != nil {
			return appErrors.Dependency(err, "failed to grade submission")
		}
		saga.OnFailure("restore grade", func(ctx context.Context) error {
			return s.submissions.UpdateGrade(ctx, previous.ID, previous.Grade, previous.IsChecked)
		})
		return s.progress.RefreshMember(ctx, assignment.GroupID, submission.UserID)
	})
	if err != nil {
		return nil, err
	}
	submission.Grade = req.Grade
	submission.IsChecked = true
	s.progress.Invalidate(ctx, assignment.GroupID)

	if grader != nil {
		studentName := submission.UserID
		if student, err := s.users.FindByID(ctx, submission.UserID); err == nil {
			studentName = student.FullName
		}
		s.activities.Record(ctx, Activity{
			Type:         ActivityMarkedAssignment,
			UserID:       grader.ID,
			GroupID:      assignment.GroupID,
			AssignmentID: assignment.ID,
			Args:         []interface{}{studentName, assignment.Name, req.Grade},
		})
	}
	return submission, nil
}
