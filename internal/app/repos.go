package app

import (
	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type Repos struct {
	User       repos.UserRepo
	UserToken  repos.UserTokenRepo
	Project    repos.ProjectRepo
	Schema     repos.SchemaDesignRepo
	Library    repos.ComponentDefinitionRepo
	Webhook    repos.WebhookRepo
	Deployment repos.DeploymentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		UserToken:  repos.NewUserTokenRepo(db, log),
		Project:    repos.NewProjectRepo(db, log),
		Schema:     repos.NewSchemaDesignRepo(db, log),
		Library:    repos.NewComponentDefinitionRepo(db, log),
		Webhook:    repos.NewWebhookRepo(db, log),
		Deployment: repos.NewDeploymentRepo(db, log),
	}
}
