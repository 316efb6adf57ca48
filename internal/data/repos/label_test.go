package repos

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/data/repos/testutil"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
)

func TestAdjustImageCount(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewLabelRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	label, err := repo.Create(dbc, &domain.Label{DatasetKey: uuid.New(), Name: "daisy"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := repo.AdjustImageCount(dbc, label.ID, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := repo.AdjustImageCount(dbc, label.ID, -1); err != nil {
			t.Fatalf("decrement: %v", err)
		}
	}

	got, err := repo.GetByKey(dbc, label.ID)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.TotalImages != 3 {
		t.Fatalf("TotalImages = %d, want 3", got.TotalImages)
	}
}

func TestAdjustImageCountFloorsAtZero(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewLabelRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	label, _ := repo.Create(dbc, &domain.Label{DatasetKey: uuid.New(), Name: "rose", TotalImages: 2})

	updated, err := repo.AdjustImageCount(dbc, label.ID, -10)
	if err != nil {
		t.Fatalf("AdjustImageCount: %v", err)
	}
	if updated.TotalImages != 0 {
		t.Fatalf("TotalImages = %d, want 0", updated.TotalImages)
	}
}

func TestAdjustImageCountIsSafeUnderConcurrency(t *testing.T) {
	db := testutil.DB(t)
	repo := NewLabelRepo(db, testutil.Logger(t))
	// No shared test transaction here: each call must take the row lock on
	// its own session so concurrent uploads and deletes actually contend.
	dbc := dbctx.Context{Ctx: context.Background()}

	label, err := repo.Create(dbc, &domain.Label{DatasetKey: uuid.New(), Name: "tulip", TotalImages: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Delete(dbc, label.ID)
	})

	const workers = 12
	const perWorker = 5
	errCh := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		delta := 1
		if i%3 == 0 {
			delta = -1
		}
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := repo.AdjustImageCount(dbc, label.ID, delta); err != nil {
					errCh <- err
				}
			}
		}(delta)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("AdjustImageCount: %v", err)
	}

	got, err := repo.GetByKey(dbc, label.ID)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	// 8 incrementing workers and 4 decrementing ones; a lost update would
	// leave the counter short of 100 + 40 - 20.
	if got.TotalImages != 120 {
		t.Fatalf("TotalImages = %d, want 120", got.TotalImages)
	}
}

func TestListByDatasetScopesToParent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewLabelRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	parent := uuid.New()
	other := uuid.New()
	repo.Create(dbc, &domain.Label{DatasetKey: parent, Name: "daisy"})
	repo.Create(dbc, &domain.Label{DatasetKey: parent, Name: "rose"})
	repo.Create(dbc, &domain.Label{DatasetKey: other, Name: "robin"})

	labels, err := repo.ListByDataset(dbc, parent)
	if err != nil {
		t.Fatalf("ListByDataset: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("labels = %d, want 2", len(labels))
	}
	if labels[0].Name != "daisy" || labels[1].Name != "rose" {
		t.Fatalf("order = [%s %s], want name ASC", labels[0].Name, labels[1].Name)
	}
}
