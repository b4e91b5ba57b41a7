package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos/testutil"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*types.User{
		{
			Email:    "userrepo@example.com",
			Password: "pw",
			Name:     "A B",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}

	gotByIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].ID != created[0].ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	gotByEmails, err := repo.GetByEmails(dbc, []string{created[0].Email})
	if err != nil {
		t.Fatalf("GetByEmails: %v", err)
	}
	if len(gotByEmails) != 1 || gotByEmails[0].Email != created[0].Email {
		t.Fatalf("GetByEmails: unexpected result: %+v", gotByEmails)
	}

	exists, err := repo.EmailExists(dbc, created[0].Email)
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if !exists {
		t.Fatalf("EmailExists: expected true")
	}

	exists, err = repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil {
		t.Fatalf("EmailExists(does-not-exist): %v", err)
	}
	if exists {
		t.Fatalf("EmailExists(does-not-exist): expected false")
	}

	if err := repo.UpdateName(dbc, created[0].ID, "Renamed"); err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	gotByIDs, err = repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil || len(gotByIDs) != 1 {
		t.Fatalf("GetByIDs after rename: err=%v len=%d", err, len(gotByIDs))
	}
	if gotByIDs[0].Name != "Renamed" {
		t.Fatalf("UpdateName: name=%q", gotByIDs[0].Name)
	}

	now := time.Now()
	if err := repo.SetResetToken(dbc, created[0].ID, "hash-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	found, err := repo.GetByResetToken(dbc, "hash-1", now)
	if err != nil || found == nil || found.ID != created[0].ID {
		t.Fatalf("GetByResetToken: user=%+v err=%v", found, err)
	}
	if found, err := repo.GetByResetToken(dbc, "hash-1", now.Add(2*time.Hour)); err != nil || found != nil {
		t.Fatalf("GetByResetToken(expired): user=%+v err=%v", found, err)
	}
	if found, err := repo.GetByResetToken(dbc, "other", now); err != nil || found != nil {
		t.Fatalf("GetByResetToken(unknown): user=%+v err=%v", found, err)
	}

	if err := repo.UpdatePassword(dbc, created[0].ID, "pw2"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	gotByIDs, err = repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil || len(gotByIDs) != 1 || gotByIDs[0].Password != "pw2" || gotByIDs[0].ResetTokenHash != nil {
		t.Fatalf("UpdatePassword: users=%+v err=%v", gotByIDs, err)
	}
	if found, err := repo.GetByResetToken(dbc, "hash-1", now); err != nil || found != nil {
		t.Fatalf("GetByResetToken after password change: user=%+v err=%v", found, err)
	}

	if _, err := repo.Create(dbc, []*types.User{{Email: created[0].Email, Password: "pw", Name: "dup"}}); err == nil {
		t.Fatalf("Create duplicate email: expected error")
	}
}
