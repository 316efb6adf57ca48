package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

const (
	exportRoot        = "models/on-device/"
	exportStampLayout = "2006-01-02_15-04-05"
	tfliteSuffix      = "_tflite"

	modelArtifact = "model.tflite"
	dictArtifact  = "dict.txt"
)

// ParseError means an export folder name under the dataset's export root
// did not carry a well-formed timestamp. It fails the whole resolution
// attempt; picking "the newest of the ones we could read" would silently
// deploy the wrong model.
type ParseError struct {
	Folder string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("export folder %q: malformed timestamp: %v", e.Folder, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AmbiguousArtifactError means the winning export folder did not contain
// exactly one copy of a required artifact.
type AmbiguousArtifactError struct {
	Folder   string
	Artifact string
	Count    int
}

func (e *AmbiguousArtifactError) Error() string {
	return fmt.Sprintf("export folder %q: expected exactly one %s, found %d", e.Folder, e.Artifact, e.Count)
}

// ExportResolver turns a finished export operation into a Model record by
// locating the newest timestamped folder the provider wrote and the two
// artifacts inside it.
type ExportResolver interface {
	Resolve(ctx context.Context, datasetID string) (*domain.Model, error)
}

type exportResolver struct {
	log    *logger.Logger
	bucket gcp.BucketService
	models repos.ModelRepo
}

func NewExportResolver(baseLog *logger.Logger, bucket gcp.BucketService, models repos.ModelRepo) ExportResolver {
	return &exportResolver{
		log:    baseLog.With("service", "ExportResolver"),
		bucket: bucket,
		models: models,
	}
}

func ExportPrefix(datasetID string) string {
	return exportRoot + datasetID + "/"
}

func (r *exportResolver) Resolve(ctx context.Context, datasetID string) (*domain.Model, error) {
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return nil, fmt.Errorf("datasetId required: %w", errs.ErrInvalidArgument)
	}

	prefix := ExportPrefix(datasetID)
	keys, err := r.bucket.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// Keys look like models/on-device/{datasetID}/{stamp}_tflite/{file}.
	folders := map[string]time.Time{}
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) < 5 {
			continue
		}
		folder := parts[3]
		if _, seen := folders[folder]; seen {
			continue
		}
		ts, err := ParseExportTimestamp(strings.TrimSuffix(folder, tfliteSuffix))
		if err != nil {
			return nil, &ParseError{Folder: folder, Err: err}
		}
		folders[folder] = ts
	}
	if len(folders) == 0 {
		return nil, fmt.Errorf("no export folders under %s: %w", prefix, errs.ErrNotFound)
	}

	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return folders[names[i]].After(folders[names[j]])
	})
	winner := names[0]
	winnerPrefix := prefix + winner + "/"

	var modelKey, dictKey string
	modelCount, dictCount := 0, 0
	for _, key := range keys {
		if !strings.HasPrefix(key, winnerPrefix) {
			continue
		}
		switch key[strings.LastIndex(key, "/")+1:] {
		case modelArtifact:
			modelCount++
			modelKey = key
		case dictArtifact:
			dictCount++
			dictKey = key
		}
	}
	if modelCount != 1 {
		return nil, &AmbiguousArtifactError{Folder: winner, Artifact: modelArtifact, Count: modelCount}
	}
	if dictCount != 1 {
		return nil, &AmbiguousArtifactError{Folder: winner, Artifact: dictArtifact, Count: dictCount}
	}

	model := &domain.Model{
		DatasetID:   datasetID,
		ModelPath:   r.bucket.ObjectURL(modelKey),
		LabelPath:   r.bucket.ObjectURL(dictKey),
		GeneratedAt: folders[winner],
	}
	if _, err := r.models.Create(dbctx.Context{Ctx: ctx}, model); err != nil {
		return nil, err
	}
	r.log.Info("Export resolved",
		"dataset_id", datasetID,
		"folder", winner,
		"model", modelKey,
		"dict", dictKey,
	)
	return model, nil
}

// ParseExportTimestamp reads the provider's folder stamp
// yyyy-MM-dd_HH-mm-ss-SSS (millisecond suffix separated by a dash, which
// time.Parse cannot express in a single layout).
func ParseExportTimestamp(s string) (time.Time, error) {
	base := len(exportStampLayout)
	if len(s) != base+4 || s[base] != '-' {
		return time.Time{}, fmt.Errorf("want yyyy-MM-dd_HH-mm-ss-SSS, got %q", s)
	}
	t, err := time.Parse(exportStampLayout, s[:base])
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.Atoi(s[base+1:])
	if err != nil || ms < 0 {
		return time.Time{}, fmt.Errorf("bad millisecond suffix %q", s[base+1:])
	}
	return t.Add(time.Duration(ms) * time.Millisecond), nil
}
