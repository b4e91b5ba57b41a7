package repos

import (
	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos/auth"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos/builder"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos/user"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type ProjectRepo = builder.ProjectRepo
type SchemaDesignRepo = builder.SchemaDesignRepo
type ComponentDefinitionRepo = builder.ComponentDefinitionRepo
type ComponentFilter = builder.ComponentFilter
type WebhookRepo = builder.WebhookRepo
type DeploymentRepo = builder.DeploymentRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return builder.NewProjectRepo(db, baseLog)
}

func NewSchemaDesignRepo(db *gorm.DB, baseLog *logger.Logger) SchemaDesignRepo {
	return builder.NewSchemaDesignRepo(db, baseLog)
}

func NewComponentDefinitionRepo(db *gorm.DB, baseLog *logger.Logger) ComponentDefinitionRepo {
	return builder.NewComponentDefinitionRepo(db, baseLog)
}

func NewWebhookRepo(db *gorm.DB, baseLog *logger.Logger) WebhookRepo {
	return builder.NewWebhookRepo(db, baseLog)
}

func NewDeploymentRepo(db *gorm.DB, baseLog *logger.Logger) DeploymentRepo {
	return builder.NewDeploymentRepo(db, baseLog)
}
