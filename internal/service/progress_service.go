package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
	"github.com/noah-isme/course-system-api/pkg/export"
)

type gradedAssignments interface {
	ListWithSubmissions(ctx context.Context, groupID string) ([]models.AssignmentWithSubmissions, error)
}

type progressMembers interface {
	ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error)
	UpdateProgress(ctx context.Context, userID, groupID string, progress float64) error
}

type progressCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Evict(ctx context.Context, keys ...string) error
}

// ProgressReport is a rendered group progress export.
type ProgressReport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ProgressService computes user and group progress and keeps stored progress current.
type ProgressService struct {
	assignments gradedAssignments
	members     progressMembers
	groups      groupReader
	cache       progressCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewProgressService constructs ProgressService. cache may be nil.
func NewProgressService(assignments gradedAssignments, members progressMembers, groups groupReader, cache progressCache, cacheTTL time.Duration, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{assignments: assignments, members: members, groups: groups, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func groupProgressKey(groupID string) string {
	return "progress:group:" + groupID
}

// UserProgress returns the user's progress within a group.
func (s *ProgressService) UserProgress(ctx context.Context, groupID, userID string) (string, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return "", lookupError(err, "group")
	}
	assignments, err := s.assignments.ListWithSubmissions(ctx, groupID)
	if err != nil {
		return "", appErrors.Dependency(err, "failed to load group assignments")
	}
	return ComputeUserProgress(assignments, userID), nil
}

// GroupProgress returns the group's aggregate progress and each student's share.
func (s *ProgressService) GroupProgress(ctx context.Context, groupID string) (*models.GroupProgress, error) {
	var cached models.GroupProgress
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, groupProgressKey(groupID), &cached); err == nil && hit {
			return &cached, nil
		}
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, lookupError(err, "group")
	}
	progress, err := s.computeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, groupProgressKey(groupID), progress, s.cacheTTL); err != nil {
			s.logger.Warn("cache group progress failed", zap.String("group_id", groupID), zap.Error(err))
		}
	}
	return progress, nil
}

func (s *ProgressService) computeGroup(ctx context.Context, groupID string) (*models.GroupProgress, error) {
	assignments, err := s.assignments.ListWithSubmissions(ctx, groupID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load group assignments")
	}
	members, err := s.members.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load group members")
	}
	progress := &models.GroupProgress{
		GroupID:         groupID,
		Progress:        ComputeGroupProgress(assignments, members),
		AssignmentCount: len(assignments),
		StudentCount:    countStudents(members),
		Members:         []models.MemberProgress{},
	}
	for _, member := range members {
		if member.Role != models.RoleStudent {
			continue
		}
		progress.Members = append(progress.Members, models.MemberProgress{
			UserID:   member.UserID,
			FullName: member.FullName,
			Progress: ComputeUserProgress(assignments, member.UserID),
		})
	}
	return progress, nil
}

// RefreshMember recomputes a member's progress and stores it on the group enrollment.
func (s *ProgressService) RefreshMember(ctx context.Context, groupID, userID string) error {
	assignments, err := s.assignments.ListWithSubmissions(ctx, groupID)
	if err != nil {
		return appErrors.Dependency(err, "failed to load group assignments")
	}
	value := userProgressValue(assignments, userID)
	if err := s.members.UpdateProgress(ctx, userID, groupID, roundProgress(value)); err != nil {
		return appErrors.Dependency(err, "failed to store member progress")
	}
	return nil
}

// Invalidate drops the cached group progress.
func (s *ProgressService) Invalidate(ctx context.Context, groupID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Evict(ctx, groupProgressKey(groupID)); err != nil {
		s.logger.Warn("evict group progress failed", zap.String("group_id", groupID), zap.Error(err))
	}
}

// ExportReport renders the group progress as CSV or PDF.
func (s *ProgressService) ExportReport(ctx context.Context, groupID, rawFormat string) (*ProgressReport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, invalidf("%s", err.Error())
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, lookupError(err, "group")
	}
	progress, err := s.computeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Title:   fmt.Sprintf("%s progress (%s%%)", group.Name, progress.Progress),
		Headers: []string{"student", "user_id", "progress"},
	}
	for _, member := range progress.Members {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student":  member.FullName,
			"user_id":  member.UserID,
			"progress": member.Progress,
		})
	}
	content, err := export.Render(format, dataset)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to render progress report")
	}
	return &ProgressReport{
		Filename:    fmt.Sprintf("group-%s-progress.%s", group.ID, format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}
