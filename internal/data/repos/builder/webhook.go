package builder

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type WebhookRepo interface {
	Create(dbc dbctx.Context, hook *types.Webhook) (*types.Webhook, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Webhook, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Webhook, error)
	// ListActive returns the owner's active webhooks scoped to projectID or to no project.
	ListActive(dbc dbctx.Context, ownerID uuid.UUID, projectID string) ([]*types.Webhook, error)
	Save(dbc dbctx.Context, hook *types.Webhook) error
	UpdateLastStatus(dbc dbctx.Context, id uuid.UUID, status types.DeliveryStatus) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type webhookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWebhookRepo(db *gorm.DB, baseLog *logger.Logger) WebhookRepo {
	repoLog := baseLog.With("repo", "WebhookRepo")
	return &webhookRepo{db: db, log: repoLog}
}

func (wr *webhookRepo) Create(dbc dbctx.Context, hook *types.Webhook) (*types.Webhook, error) {
	if err := dbc.DB(wr.db).Create(hook).Error; err != nil {
		return nil, err
	}
	return hook, nil
}

func (wr *webhookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Webhook, error) {
	var hook types.Webhook
	err := dbc.DB(wr.db).Where("id = ?", id).First(&hook).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hook, nil
}

func (wr *webhookRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Webhook, error) {
	var results []*types.Webhook
	if err := dbc.DB(wr.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (wr *webhookRepo) ListActive(dbc dbctx.Context, ownerID uuid.UUID, projectID string) ([]*types.Webhook, error) {
	var results []*types.Webhook
	if err := dbc.DB(wr.db).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Where("project_id = ? OR project_id = ''", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (wr *webhookRepo) Save(dbc dbctx.Context, hook *types.Webhook) error {
	return dbc.DB(wr.db).Save(hook).Error
}

func (wr *webhookRepo) UpdateLastStatus(dbc dbctx.Context, id uuid.UUID, status types.DeliveryStatus) error {
	return dbc.DB(wr.db).
		Model(&types.Webhook{}).
		Where("id = ?", id).
		Update("last_status", datatypes.NewJSONType(status)).Error
}

func (wr *webhookRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(wr.db).Where("id IN ?", ids).Delete(&types.Webhook{}).Error
}
