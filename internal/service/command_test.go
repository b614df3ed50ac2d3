package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/repository"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

// fakeTransactor mimics a database transaction: writes registered through stage are
// applied only on commit.
type fakeTransactor struct {
	calls      int
	committed  int
	rolledBack int
	pending    []func()
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	f.pending = nil
	if err := fn(ctx); err != nil {
		f.rolledBack++
		f.pending = nil
		return err
	}
	for _, apply := range f.pending {
		apply()
	}
	f.pending = nil
	f.committed++
	return nil
}

// stage defers apply until commit when a transaction is open, otherwise applies it immediately.
func (f *fakeTransactor) stage(apply func()) {
	if f == nil {
		apply()
		return
	}
	f.pending = append(f.pending, apply)
}

func TestCommandRunnerCompensatesInReverseOrder(t *testing.T) {
	metrics := NewMetricsService()
	runner := newCommandRunner(nil, metrics, nil)
	var undone []string

	err := runner.Run(context.Background(), "create_thing", func(ctx context.Context, saga *Saga) error {
		saga.OnFailure("first", func(context.Context) error { undone = append(undone, "first"); return nil })
		saga.OnFailure("second", func(context.Context) error { undone = append(undone, "second"); return nil })
		return appErrors.Clone(appErrors.ErrDuplicateMembership, "already there")
	})

	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateMembership.Code))
	assert.Equal(t, []string{"second", "first"}, undone)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.commandTotal.WithLabelValues("create_thing", "failure")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.compensations.WithLabelValues("create_thing", "success")))
}

func TestCommandRunnerReportsCompensationFailure(t *testing.T) {
	runner := newCommandRunner(nil, nil, nil)
	ran := false

	err := runner.Run(context.Background(), "create_thing", func(ctx context.Context, saga *Saga) error {
		saga.OnFailure("ok step", func(context.Context) error { ran = true; return nil })
		saga.OnFailure("broken step", func(context.Context) error { return errors.New("disk gone") })
		return appErrors.Dependency(errors.New("boom"), "failed to write")
	})

	require.Error(t, err)
	assert.True(t, ran, "remaining compensations still run after one fails")
	domainErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDependency.Code, domainErr.Code)
	assert.Contains(t, domainErr.Message, "failed to write; compensation failed: broken step: disk gone")
}

func TestCommandRunnerCompensatesWithCancelledContext(t *testing.T) {
	runner := newCommandRunner(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var undoErr error

	err := runner.Run(ctx, "cancelled", func(ctx context.Context, saga *Saga) error {
		saga.OnFailure("undo", func(ctx context.Context) error { undoErr = ctx.Err(); return nil })
		cancel()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.NoError(t, undoErr)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDependency.Code))
}

func TestCommandRunnerSkipsCompensationsInsideTransaction(t *testing.T) {
	tx := &fakeTransactor{}
	runner := newCommandRunner(tx, nil, nil)
	undone := false

	err := runner.Run(context.Background(), "tx_command", func(ctx context.Context, saga *Saga) error {
		saga.OnFailure("undo", func(context.Context) error { undone = true; return nil })
		return errors.New("write failed")
	})

	require.Error(t, err)
	assert.False(t, undone)
	assert.Equal(t, 1, tx.rolledBack)
}

func TestCommandRunnerSuccessRecordsMetric(t *testing.T) {
	metrics := NewMetricsService()
	runner := newCommandRunner(&fakeTransactor{}, metrics, nil)

	require.NoError(t, runner.Run(context.Background(), "ok", func(context.Context, *Saga) error { return nil }))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.commandTotal.WithLabelValues("ok", "success")))
}

func TestErrorHelpersMapRepositoryErrors(t *testing.T) {
	assert.True(t, appErrors.HasCode(lookupError(sql.ErrNoRows, "course"), appErrors.ErrNotFound.Code))
	assert.True(t, appErrors.HasCode(lookupError(errors.New("conn reset"), "course"), appErrors.ErrDependency.Code))

	stale := fmt.Errorf("update course: %w", repository.ErrStaleVersion)
	assert.True(t, appErrors.HasCode(writeError(stale, "x"), appErrors.ErrConflict.Code))
	assert.True(t, appErrors.HasCode(asDomainError(stale, "x"), appErrors.ErrConflict.Code))
	assert.True(t, appErrors.HasCode(writeError(errors.New("down"), "x"), appErrors.ErrDependency.Code))
}
