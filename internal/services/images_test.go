package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
)

func TestDeleteImageAdjustsCounterAndStorage(t *testing.T) {
	images := &fakeImageRepo{}
	labels := &fakeLabelRepo{}
	bucket := newFakeBucket()
	svc := NewImageService(testLogger(t), images, labels, bucket)

	label, _ := labels.Create(dbc(), &domain.Label{Name: "daisy", TotalImages: 3})
	batch, _ := images.CreateBatch(dbc(), []*domain.Image{
		{LabelKey: label.ID, UploadPath: "datasets/flowers/daisy/a.jpg"},
	})
	bucket.put("datasets/flowers/daisy/a.jpg", "x")

	if err := svc.Delete(context.Background(), batch[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if label.TotalImages != 2 {
		t.Fatalf("TotalImages = %d, want 2", label.TotalImages)
	}
	if len(images.images) != 0 {
		t.Fatal("image row must be gone")
	}
	if keys, _ := bucket.ListKeys(context.Background(), "datasets/"); len(keys) != 0 {
		t.Fatalf("object residuals: %v", keys)
	}
}

func TestDeleteImageNotFound(t *testing.T) {
	svc := NewImageService(testLogger(t), &fakeImageRepo{}, &fakeLabelRepo{}, newFakeBucket())
	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
