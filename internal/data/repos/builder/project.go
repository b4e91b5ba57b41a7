package builder

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type ProjectRepo interface {
	Create(dbc dbctx.Context, project *types.Project) (*types.Project, error)
	GetByProjectID(dbc dbctx.Context, projectID string) (*types.Project, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Project, error)
	ProjectIDExists(dbc dbctx.Context, projectID string) (bool, error)
	// Save overwrites the document columns of an existing row and bumps its revision.
	Save(dbc dbctx.Context, project *types.Project) error
	SoftDeleteByProjectID(dbc dbctx.Context, projectID string) (bool, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	repoLog := baseLog.With("repo", "ProjectRepo")
	return &projectRepo{db: db, log: repoLog}
}

func (pr *projectRepo) Create(dbc dbctx.Context, project *types.Project) (*types.Project, error) {
	if project.Revision == 0 {
		project.Revision = 1
	}
	if err := dbc.DB(pr.db).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// GetByProjectID returns nil, nil when no live row matches.
func (pr *projectRepo) GetByProjectID(dbc dbctx.Context, projectID string) (*types.Project, error) {
	var p types.Project
	err := dbc.DB(pr.db).
		Where("project_id = ?", projectID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (pr *projectRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Project, error) {
	var results []*types.Project
	if err := dbc.DB(pr.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *projectRepo) ProjectIDExists(dbc dbctx.Context, projectID string) (bool, error) {
	var count int64
	if err := dbc.DB(pr.db).Unscoped().
		Model(&types.Project{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (pr *projectRepo) Save(dbc dbctx.Context, project *types.Project) error {
	res := dbc.DB(pr.db).
		Model(&types.Project{}).
		Where("project_id = ?", project.ProjectID).
		Updates(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"components":  project.Components,
			"connections": project.Connections,
			"schema":      project.Schema,
			"revision":    gorm.Expr("revision + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (pr *projectRepo) SoftDeleteByProjectID(dbc dbctx.Context, projectID string) (bool, error) {
	res := dbc.DB(pr.db).
		Where("project_id = ?", projectID).
		Delete(&types.Project{})
	return res.RowsAffected > 0, res.Error
}
