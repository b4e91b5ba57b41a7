package builder

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type DeploymentRepo interface {
	Create(dbc dbctx.Context, d *types.Deployment) (*types.Deployment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Deployment, error)
	ListByProject(dbc dbctx.Context, ownerID uuid.UUID, projectID string) ([]*types.Deployment, error)
	ListByStatus(dbc dbctx.Context, statuses []string) ([]*types.Deployment, error)
	// Transition applies mutate to the row under a row lock. It reports false
	// without calling mutate when the row is already terminal.
	Transition(dbc dbctx.Context, id uuid.UUID, mutate func(d *types.Deployment)) (*types.Deployment, bool, error)
}

type deploymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeploymentRepo(db *gorm.DB, baseLog *logger.Logger) DeploymentRepo {
	repoLog := baseLog.With("repo", "DeploymentRepo")
	return &deploymentRepo{db: db, log: repoLog}
}

func (dr *deploymentRepo) Create(dbc dbctx.Context, d *types.Deployment) (*types.Deployment, error) {
	if err := dbc.DB(dr.db).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (dr *deploymentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Deployment, error) {
	var d types.Deployment
	err := dbc.DB(dr.db).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (dr *deploymentRepo) ListByProject(dbc dbctx.Context, ownerID uuid.UUID, projectID string) ([]*types.Deployment, error) {
	var results []*types.Deployment
	if err := dbc.DB(dr.db).
		Where("owner_id = ? AND project_id = ?", ownerID, projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *deploymentRepo) ListByStatus(dbc dbctx.Context, statuses []string) ([]*types.Deployment, error) {
	var results []*types.Deployment
	if len(statuses) == 0 {
		return results, nil
	}
	if err := dbc.DB(dr.db).Where("status IN ?", statuses).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *deploymentRepo) Transition(dbc dbctx.Context, id uuid.UUID, mutate func(d *types.Deployment)) (*types.Deployment, bool, error) {
	var out *types.Deployment
	applied := false
	err := dbc.DB(dr.db).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var d types.Deployment
		if err := q.Where("id = ?", id).First(&d).Error; err != nil {
			return err
		}
		out = &d
		if types.DeploymentTerminal(d.Status) {
			return nil
		}
		mutate(&d)
		d.UpdatedAt = time.Now()
		if err := tx.Save(&d).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, applied, nil
}
