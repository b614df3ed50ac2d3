package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/repository"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// compensation undoes one completed step of a command.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// Saga collects compensations for the steps a command has completed. Inside a
// transaction compensations are not recorded since rollback already undoes the steps.
type Saga struct {
	transactional bool
	steps         []compensation
}

// OnFailure registers undo to run if a later step fails.
func (s *Saga) OnFailure(name string, undo func(ctx context.Context) error) {
	if s == nil || s.transactional {
		return
	}
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// commandRunner executes multi-step commands as one unit: inside a transaction when a
// transactor is configured, otherwise as a saga whose compensations run in reverse order.
type commandRunner struct {
	tx      transactor
	metrics *MetricsService
	logger  *zap.Logger
}

func newCommandRunner(tx transactor, metrics *MetricsService, logger *zap.Logger) *commandRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &commandRunner{tx: tx, metrics: metrics, logger: logger}
}

// Run executes fn under the given command name. The returned error is always an *appErrors.Error.
func (r *commandRunner) Run(ctx context.Context, name string, fn func(ctx context.Context, saga *Saga) error) error {
	var err error
	if r.tx != nil {
		err = r.tx.WithinTx(ctx, func(txCtx context.Context) error {
			return fn(txCtx, &Saga{transactional: true})
		})
	} else {
		saga := &Saga{}
		err = fn(ctx, saga)
		if err != nil {
			if compErr := r.compensate(ctx, name, saga); compErr != nil {
				err = withCompensationFailure(err, compErr)
			}
		}
	}
	r.metrics.RecordCommand(name, err)
	if err != nil {
		r.logger.Warn("command failed", zap.String("command", name), zap.Error(err))
		return asDomainError(err, name)
	}
	return nil
}

func (r *commandRunner) compensate(ctx context.Context, name string, saga *Saga) error {
	ctx = context.WithoutCancel(ctx)
	var failures []error
	for i := len(saga.steps) - 1; i >= 0; i-- {
		step := saga.steps[i]
		err := step.undo(ctx)
		r.metrics.RecordCompensation(name, err)
		if err != nil {
			r.logger.Error("compensation failed",
				zap.String("command", name),
				zap.String("step", step.name),
				zap.Error(err))
			failures = append(failures, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		r.logger.Info("compensation applied", zap.String("command", name), zap.String("step", step.name))
	}
	return errors.Join(failures...)
}

// withCompensationFailure keeps the original failure kind and surfaces the compensation error in its message.
func withCompensationFailure(err, compErr error) error {
	domainErr := appErrors.FromError(err)
	clone := *domainErr
	clone.Message = fmt.Sprintf("%s; compensation failed: %v", domainErr.Message, compErr)
	return &clone
}

func asDomainError(err error, command string) *appErrors.Error {
	var domainErr *appErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, appErrors.ErrConflict.Message)
	}
	return appErrors.Dependency(err, fmt.Sprintf("%s failed", command))
}

// lookupError converts a repository read failure into NOT_FOUND or DEPENDENCY_FAILURE.
func lookupError(err error, what string) *appErrors.Error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Dependency(err, "failed to load "+what)
}

// writeError converts a repository write failure, mapping stale versions to CONFLICT.
func writeError(err error, message string) *appErrors.Error {
	if errors.Is(err, repository.ErrStaleVersion) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, appErrors.ErrConflict.Message)
	}
	return appErrors.Dependency(err, message)
}

func invalidf(format string, args ...interface{}) *appErrors.Error {
	return appErrors.Invalid(fmt.Sprintf(format, args...))
}

// validationError wraps validator output into VALIDATION_ERROR.
func validationError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
