package builder

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type ComponentFilter struct {
	Type      string
	ProjectID string
}

type ComponentDefinitionRepo interface {
	Create(dbc dbctx.Context, defs []*types.ComponentDefinition) ([]*types.ComponentDefinition, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ComponentDefinition, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, filter ComponentFilter) ([]*types.ComponentDefinition, error)
	Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type componentDefinitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComponentDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) ComponentDefinitionRepo {
	repoLog := baseLog.With("repo", "ComponentDefinitionRepo")
	return &componentDefinitionRepo{db: db, log: repoLog}
}

func (cr *componentDefinitionRepo) Create(dbc dbctx.Context, defs []*types.ComponentDefinition) ([]*types.ComponentDefinition, error) {
	if len(defs) == 0 {
		return []*types.ComponentDefinition{}, nil
	}
	if err := dbc.DB(cr.db).Create(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (cr *componentDefinitionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ComponentDefinition, error) {
	var def types.ComponentDefinition
	err := dbc.DB(cr.db).Where("id = ?", id).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (cr *componentDefinitionRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, filter ComponentFilter) ([]*types.ComponentDefinition, error) {
	q := dbc.DB(cr.db).Where("owner_id = ?", ownerID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.ProjectID != "" {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	var results []*types.ComponentDefinition
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *componentDefinitionRepo) Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(cr.db).
		Model(&types.ComponentDefinition{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (cr *componentDefinitionRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(cr.db).Where("id IN ?", ids).Delete(&types.ComponentDefinition{}).Error
}
