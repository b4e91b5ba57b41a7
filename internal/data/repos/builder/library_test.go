package builder

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos/testutil"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
)

func TestComponentDefinitionRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewComponentDefinitionRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "libraryrepo@example.com")

	defs, err := repo.Create(dbc, []*types.ComponentDefinition{
		{OwnerID: owner.ID, Name: "Primary", Type: "Button", Configuration: datatypes.JSON([]byte(`{}`))},
		{OwnerID: owner.ID, Name: "Hero", Type: "Card", ProjectID: "proj_l", Configuration: datatypes.JSON([]byte(`{}`))},
	})
	if err != nil || len(defs) != 2 {
		t.Fatalf("Create: err=%v len=%d", err, len(defs))
	}
	if defs[0].Status != "active" || defs[0].Version != "1.0.0" {
		t.Fatalf("Create defaults: status=%q version=%q", defs[0].Status, defs[0].Version)
	}

	buttons, err := repo.ListByOwner(dbc, owner.ID, ComponentFilter{Type: "Button"})
	if err != nil || len(buttons) != 1 {
		t.Fatalf("ListByOwner(Button): err=%v len=%d", err, len(buttons))
	}
	scoped, err := repo.ListByOwner(dbc, owner.ID, ComponentFilter{ProjectID: "proj_l"})
	if err != nil || len(scoped) != 1 || scoped[0].Name != "Hero" {
		t.Fatalf("ListByOwner(project): err=%v len=%d", err, len(scoped))
	}

	if err := repo.Update(dbc, defs[0].ID, map[string]any{"version": "1.1.0"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(dbc, defs[0].ID)
	if err != nil || got == nil || got.Version != "1.1.0" {
		t.Fatalf("GetByID after update: got=%v err=%v", got, err)
	}

	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{defs[0].ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if got, err := repo.GetByID(dbc, defs[0].ID); err != nil || got != nil {
		t.Fatalf("GetByID after delete: got=%v err=%v", got, err)
	}
}
