package builder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos/testutil"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
)

func TestWebhookRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewWebhookRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "webhookrepo@example.com")

	global := testutil.SeedWebhook(t, ctx, db, owner.ID, "http://example.test/a", "deployment.completed")
	scoped := testutil.SeedWebhook(t, ctx, db, owner.ID, "http://example.test/b")
	scoped.ProjectID = "proj_w"
	if err := repo.Save(dbc, scoped); err != nil {
		t.Fatalf("Save: %v", err)
	}
	elsewhere := testutil.SeedWebhook(t, ctx, db, owner.ID, "http://example.test/c")
	elsewhere.ProjectID = "proj_other"
	if err := repo.Save(dbc, elsewhere); err != nil {
		t.Fatalf("Save: %v", err)
	}
	inactive := testutil.SeedWebhook(t, ctx, db, owner.ID, "http://example.test/d")
	inactive.IsActive = false
	if err := repo.Save(dbc, inactive); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := repo.ListByOwner(dbc, owner.ID)
	if err != nil || len(all) != 4 {
		t.Fatalf("ListByOwner: err=%v len=%d", err, len(all))
	}

	active, err := repo.ListActive(dbc, owner.ID, "proj_w")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	ids := map[uuid.UUID]bool{}
	for _, h := range active {
		ids[h.ID] = true
	}
	if len(active) != 2 || !ids[global.ID] || !ids[scoped.ID] {
		t.Fatalf("ListActive: unexpected %d rows", len(active))
	}

	status := types.DeliveryStatus{Success: true, StatusCode: 200, Timestamp: time.Now().UTC()}
	if err := repo.UpdateLastStatus(dbc, global.ID, status); err != nil {
		t.Fatalf("UpdateLastStatus: %v", err)
	}
	got, err := repo.GetByID(dbc, global.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.LastStatus == nil || got.LastStatus.Data().StatusCode != 200 {
		t.Fatalf("UpdateLastStatus: last=%v", got.LastStatus)
	}

	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{global.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if got, err := repo.GetByID(dbc, global.ID); err != nil || got != nil {
		t.Fatalf("GetByID after delete: got=%v err=%v", got, err)
	}
}
