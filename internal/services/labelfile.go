package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// SamplePrefix is where a dataset's training frames live; each key is
// datasets/{dataset}/{label}/{file}.
func SamplePrefix(dataset string) string {
	return "datasets/" + dataset + "/"
}

// LabelFileKey is the manifest location the provider import reads from.
func LabelFileKey(dataset string) string {
	return SamplePrefix(dataset) + "labels.csv"
}

// LabelFileService derives the provider's import manifest from the objects
// already uploaded for the dataset: one `gs://bucket/key,label` row per
// sample, labeled by the folder the sample sits in.
type LabelFileService interface {
	Generate(ctx context.Context, dataset string) (string, error)
}

type labelFileService struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewLabelFileService(baseLog *logger.Logger, bucket gcp.BucketService) LabelFileService {
	return &labelFileService{
		log:    baseLog.With("service", "LabelFileService"),
		bucket: bucket,
	}
}

func (s *labelFileService) Generate(ctx context.Context, dataset string) (string, error) {
	dataset = strings.TrimSpace(dataset)
	if dataset == "" {
		return "", fmt.Errorf("dataset required: %w", errs.ErrInvalidArgument)
	}

	keys, err := s.bucket.ListKeys(ctx, SamplePrefix(dataset))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	rows := 0
	for _, key := range keys {
		parts := strings.Split(key, "/")
		// datasets/{dataset}/{label}/{file}; anything shallower (such as a
		// previous labels.csv) is not a sample.
		if len(parts) < 4 || parts[len(parts)-1] == "" {
			continue
		}
		label := parts[2]
		fmt.Fprintf(&b, "gs://%s/%s,%s\n", s.bucket.BucketName(), key, label)
		rows++
	}
	if rows == 0 {
		return "", fmt.Errorf("no training samples under %s: %w", SamplePrefix(dataset), errs.ErrNotFound)
	}

	manifestKey := LabelFileKey(dataset)
	if err := s.bucket.UploadObject(ctx, manifestKey, strings.NewReader(b.String())); err != nil {
		return "", err
	}
	s.log.Info("Label manifest written", "dataset", dataset, "key", manifestKey, "rows", rows)
	return manifestKey, nil
}
