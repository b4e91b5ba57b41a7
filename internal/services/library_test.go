package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stackgenie/stackgenie-backend/internal/canvas"
	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
)

func strPtr(s string) *string { return &s }

func TestLibraryService(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.asUser(t, "lib@example.com")
	svc := NewLibraryService(env.log, env.repos.library, canvas.DefaultRegistry())

	if _, err := svc.Create(ctx, LibraryComponentInput{Name: strPtr("Hero")}); err == nil {
		t.Fatalf("Create: missing type accepted")
	} else {
		wantStatus(t, err, http.StatusBadRequest)
	}
	if _, err := svc.Create(ctx, LibraryComponentInput{Name: strPtr("Hero"), Type: strPtr("Card"), Configuration: json.RawMessage(`[1,2]`)}); err == nil {
		t.Fatalf("Create: non-object configuration accepted")
	}

	def, err := svc.Create(ctx, LibraryComponentInput{
		Name:          strPtr("Hero"),
		Type:          strPtr("Card"),
		Configuration: json.RawMessage(`{"variant":"wide"}`),
		ProjectID:     strPtr("proj_lib"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, LibraryComponentInput{Name: strPtr("Cta"), Type: strPtr("Button")}); err != nil {
		t.Fatalf("Create(second): %v", err)
	}

	cards, err := svc.List(ctx, repos.ComponentFilter{Type: "Card"})
	if err != nil || len(cards) != 1 || cards[0].ID != def.ID {
		t.Fatalf("List(Card): n=%d err=%v", len(cards), err)
	}

	updated, err := svc.Update(ctx, def.ID, LibraryComponentInput{Version: strPtr("2.0.0"), Name: strPtr("Hero Banner")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Hero Banner" || updated.Version != "2.0.0" || updated.Type != "Card" {
		t.Fatalf("Update: %+v", updated)
	}
	if _, err := svc.Update(ctx, def.ID, LibraryComponentInput{Name: strPtr("  ")}); err == nil {
		t.Fatalf("Update: blank name accepted")
	}

	other, _ := env.asUser(t, "lib-other@example.com")
	if _, err := svc.Get(other, def.ID); err == nil {
		t.Fatalf("Get: other user read the component")
	} else {
		wantStatus(t, err, http.StatusNotFound)
	}

	if err := svc.Delete(ctx, def.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, def.ID); err == nil {
		t.Fatalf("Get after Delete: expected not found")
	}
}
