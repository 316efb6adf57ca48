package repos

import (
	"context"
	"testing"

	"github.com/visionforge/classifier-backend/internal/data/repos/testutil"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
)

func TestCollaboratorEmailSetRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewDatasetRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	ds, err := repo.Create(dbc, &domain.Dataset{Name: "flowers_roundtrip", AutomlID: "ICN42"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.AddCollaboratorEmail(dbc, ds.ID, "a@example.com"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := repo.AddCollaboratorEmail(dbc, ds.ID, "b@example.com"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	// Adding the same email twice must not duplicate it.
	if _, err := repo.AddCollaboratorEmail(dbc, ds.ID, "a@example.com"); err != nil {
		t.Fatalf("re-add a: %v", err)
	}

	got, _ := repo.GetByKey(dbc, ds.ID)
	if emails := got.CollaboratorEmails(); len(emails) != 2 {
		t.Fatalf("emails = %v, want 2 entries", emails)
	}

	if _, err := repo.RemoveCollaboratorEmail(dbc, ds.ID, "a@example.com"); err != nil {
		t.Fatalf("remove a: %v", err)
	}
	got, _ = repo.GetByKey(dbc, ds.ID)
	emails := got.CollaboratorEmails()
	if len(emails) != 1 || emails[0] != "b@example.com" {
		t.Fatalf("emails after removal = %v", emails)
	}
}

func TestGetByAutomlID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewDatasetRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	if _, err := repo.Create(dbc, &domain.Dataset{Name: "flowers_automlid", AutomlID: "ICN777"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByAutomlID(dbc, "ICN777")
	if err != nil {
		t.Fatalf("GetByAutomlID: %v", err)
	}
	if got == nil || got.Name != "flowers_automlid" {
		t.Fatalf("got %+v", got)
	}

	missing, err := repo.GetByAutomlID(dbc, "ICN000")
	if err != nil {
		t.Fatalf("GetByAutomlID(missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("want nil for unknown id, got %+v", missing)
	}
}
