package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
)

type cascadeStore interface {
	ChildIDs(ctx context.Context, parent models.EntityRef, child models.EntityKind) ([]string, error)
	DeleteRow(ctx context.Context, ref models.EntityRef) error
	DeleteMemberships(ctx context.Context, ref models.EntityRef) error
	DeleteMaterials(ctx context.Context, ref models.EntityRef) error
}

type materialLister interface {
	ListByOwner(ctx context.Context, kind models.EntityKind, ownerID string) ([]models.Material, error)
}

type cascadeMembership interface {
	ClearNotificationReferences(ctx context.Context, ref models.EntityRef) error
	PurgeMaterials(ctx context.Context, materials []models.Material) error
}

// cascadePlan lists every node under a root in owned-child-first order together with
// the materials hanging off those nodes.
type cascadePlan struct {
	nodes     []models.EntityRef
	materials []models.Material
}

// CascadeDeleter removes an entity and everything it owns by walking the ownership graph.
// Row deletions share one unit of work when a transactor is configured.
type CascadeDeleter struct {
	store     cascadeStore
	materials materialLister
	members   cascadeMembership
	runner    *commandRunner
	logger    *zap.Logger
}

// NewCascadeDeleter constructs CascadeDeleter.
func NewCascadeDeleter(store cascadeStore, materials materialLister, members cascadeMembership, tx transactor, metrics *MetricsService, logger *zap.Logger) *CascadeDeleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CascadeDeleter{store: store, materials: materials, members: members, runner: newCommandRunner(tx, metrics, logger), logger: logger}
}

// Delete purges stored material objects first and drops relational rows only once every
// object is gone, so a storage failure leaves the graph intact and retryable.
func (d *CascadeDeleter) Delete(ctx context.Context, root models.EntityRef) error {
	plan, err := d.plan(ctx, root)
	if err != nil {
		return appErrors.Dependency(err, fmt.Sprintf("failed to plan %s deletion", root.Kind))
	}
	if err := d.members.PurgeMaterials(ctx, plan.materials); err != nil {
		return err
	}
	return d.runner.Run(ctx, "delete_"+string(root.Kind), func(ctx context.Context, _ *Saga) error {
		for _, node := range plan.nodes {
			if err := d.deleteNode(ctx, node); err != nil {
				return err
			}
		}
		d.logger.Info("cascade delete completed",
			zap.String("kind", string(root.Kind)),
			zap.String("id", root.ID),
			zap.Int("nodes", len(plan.nodes)),
			zap.Int("materials", len(plan.materials)))
		return nil
	})
}

func (d *CascadeDeleter) deleteNode(ctx context.Context, node models.EntityRef) error {
	if err := d.members.ClearNotificationReferences(ctx, node); err != nil {
		return err
	}
	if node.Kind.HasMemberships() {
		if err := d.store.DeleteMemberships(ctx, node); err != nil {
			return appErrors.Dependency(err, fmt.Sprintf("failed to delete %s memberships", node.Kind))
		}
	}
	if node.Kind.OwnsMaterials() {
		if err := d.store.DeleteMaterials(ctx, node); err != nil {
			return appErrors.Dependency(err, fmt.Sprintf("failed to delete %s materials", node.Kind))
		}
	}
	if err := d.store.DeleteRow(ctx, node); err != nil {
		return appErrors.Dependency(err, fmt.Sprintf("failed to delete %s", node.Kind))
	}
	return nil
}

func (d *CascadeDeleter) plan(ctx context.Context, root models.EntityRef) (*cascadePlan, error) {
	plan := &cascadePlan{}
	if err := d.walk(ctx, root, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (d *CascadeDeleter) walk(ctx context.Context, node models.EntityRef, plan *cascadePlan) error {
	for _, childKind := range node.Kind.Children() {
		ids, err := d.store.ChildIDs(ctx, node, childKind)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := d.walk(ctx, models.EntityRef{Kind: childKind, ID: id}, plan); err != nil {
				return err
			}
		}
	}
	if node.Kind.OwnsMaterials() {
		materials, err := d.materials.ListByOwner(ctx, node.Kind, node.ID)
		if err != nil {
			return err
		}
		plan.materials = append(plan.materials, materials...)
	}
	plan.nodes = append(plan.nodes, node)
	return nil
}
