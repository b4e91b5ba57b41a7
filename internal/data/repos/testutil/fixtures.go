package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/stackgenie/stackgenie-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "pw",
		Name:     "Test User",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, projectID string) *types.Project {
	tb.Helper()
	p := &types.Project{
		ProjectID:   projectID,
		OwnerID:     ownerID,
		Name:        "project " + projectID,
		Status:      types.ProjectStatusCreated,
		Components:  datatypes.JSON([]byte("[]")),
		Connections: datatypes.JSON([]byte("[]")),
		Revision:    1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedWebhook(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, url string, events ...string) *types.Webhook {
	tb.Helper()
	w := &types.Webhook{
		OwnerID:         ownerID,
		Name:            "hook",
		URL:             url,
		Events:          datatypes.JSONSlice[string](events),
		Headers:         datatypes.NewJSONType(map[string]string{}),
		Method:          "POST",
		IsActive:        true,
		MaxRetries:      1,
		RetryIntervalMS: 1,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed webhook: %v", err)
	}
	return w
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
