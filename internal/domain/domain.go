package domain

import (
	"github.com/stackgenie/stackgenie-backend/internal/domain/auth"
	"github.com/stackgenie/stackgenie-backend/internal/domain/builder"
	"github.com/stackgenie/stackgenie-backend/internal/domain/user"
)

type User = user.User
type UserToken = auth.UserToken

type Project = builder.Project
type SchemaDesign = builder.SchemaDesign
type SchemaTable = builder.SchemaTable
type SchemaField = builder.SchemaField
type SchemaRelationship = builder.SchemaRelationship
type RelationshipEnd = builder.RelationshipEnd
type RelationshipType = builder.RelationshipType
type ComponentDefinition = builder.ComponentDefinition
type Webhook = builder.Webhook
type DeliveryStatus = builder.DeliveryStatus
type Deployment = builder.Deployment
type DeploymentLog = builder.DeploymentLog
type FrontendTarget = builder.FrontendTarget
type BackendTarget = builder.BackendTarget

const (
	ProjectStatusCreated   = builder.ProjectStatusCreated
	ProjectStatusGenerated = builder.ProjectStatusGenerated

	DeploymentPending    = builder.DeploymentPending
	DeploymentInProgress = builder.DeploymentInProgress
	DeploymentCompleted  = builder.DeploymentCompleted
	DeploymentFailed     = builder.DeploymentFailed
	DeploymentCanceled   = builder.DeploymentCanceled

	OneToOne   = builder.OneToOne
	OneToMany  = builder.OneToMany
	ManyToOne  = builder.ManyToOne
	ManyToMany = builder.ManyToMany
)

var DeploymentTerminal = builder.DeploymentTerminal

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Project{},
		&SchemaDesign{},
		&ComponentDefinition{},
		&Webhook{},
		&Deployment{},
	}
}
