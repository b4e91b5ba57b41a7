package builder

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type SchemaDesignRepo interface {
	GetByProjectID(dbc dbctx.Context, projectID string) (*types.SchemaDesign, error)
	Upsert(dbc dbctx.Context, design *types.SchemaDesign) (*types.SchemaDesign, error)
	DeleteByProjectID(dbc dbctx.Context, projectID string) (bool, error)
}

type schemaDesignRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSchemaDesignRepo(db *gorm.DB, baseLog *logger.Logger) SchemaDesignRepo {
	repoLog := baseLog.With("repo", "SchemaDesignRepo")
	return &schemaDesignRepo{db: db, log: repoLog}
}

func (sr *schemaDesignRepo) GetByProjectID(dbc dbctx.Context, projectID string) (*types.SchemaDesign, error) {
	var s types.SchemaDesign
	err := dbc.DB(sr.db).Where("project_id = ?", projectID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes the design keyed by project id. A soft-deleted row for the same
// project is revived.
func (sr *schemaDesignRepo) Upsert(dbc dbctx.Context, design *types.SchemaDesign) (*types.SchemaDesign, error) {
	err := dbc.DB(sr.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tables", "relationships", "owner_id", "updated_at", "deleted_at"}),
	}).Create(design).Error
	if err != nil {
		return nil, err
	}
	return sr.GetByProjectID(dbc, design.ProjectID)
}

func (sr *schemaDesignRepo) DeleteByProjectID(dbc dbctx.Context, projectID string) (bool, error) {
	res := dbc.DB(sr.db).Where("project_id = ?", projectID).Delete(&types.SchemaDesign{})
	return res.RowsAffected > 0, res.Error
}
