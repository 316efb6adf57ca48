package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/gcp"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// VideoPrefix is where raw uploads land before frame extraction.
func VideoPrefix(dataset string) string {
	return "videos/" + dataset + "/"
}

type ProcessVideoRequest struct {
	Dataset  string `json:"dataset"`
	Label    string `json:"label"`
	Filename string `json:"filename"`
	Uploader string `json:"uploader"`
}

type ProcessVideoResult struct {
	Dataset    string `json:"dataset"`
	Label      string `json:"label"`
	FrameCount int    `json:"frame_count"`
}

// VideoService turns an uploaded clip into training samples: one JPEG frame
// per second of video, registered as Image rows under the clip's label.
type VideoService interface {
	ProcessVideo(ctx context.Context, req ProcessVideoRequest) (*ProcessVideoResult, error)
}

type videoService struct {
	log      *logger.Logger
	datasets repos.DatasetRepo
	labels   repos.LabelRepo
	images   repos.ImageRepo
	bucket   gcp.BucketService
	ffmpeg   string
}

func NewVideoService(
	baseLog *logger.Logger,
	datasets repos.DatasetRepo,
	labels repos.LabelRepo,
	images repos.ImageRepo,
	bucket gcp.BucketService,
) VideoService {
	return &videoService{
		log:      baseLog.With("service", "VideoService"),
		datasets: datasets,
		labels:   labels,
		images:   images,
		bucket:   bucket,
		ffmpeg:   "ffmpeg",
	}
}

func (s *videoService) ProcessVideo(ctx context.Context, req ProcessVideoRequest) (*ProcessVideoResult, error) {
	req.Dataset = strings.TrimSpace(req.Dataset)
	req.Label = strings.TrimSpace(req.Label)
	req.Filename = strings.TrimSpace(req.Filename)
	if req.Dataset == "" || req.Label == "" || req.Filename == "" {
		return nil, fmt.Errorf("dataset, label and filename required: %w", errs.ErrInvalidArgument)
	}
	if strings.Contains(req.Filename, "/") {
		return nil, fmt.Errorf("filename must be bare: %w", errs.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ds, err := s.datasets.GetByName(dbc, req.Dataset)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset %q: %w", req.Dataset, errs.ErrNotFound)
	}

	label, err := s.findLabel(dbc, ds, req.Label)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "video-frames-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	videoKey := VideoPrefix(req.Dataset) + req.Label + "/" + req.Filename
	videoPath := filepath.Join(workDir, req.Filename)
	if err := s.downloadTo(ctx, videoKey, videoPath); err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	framePattern := filepath.Join(workDir, title+"-img-%04d.jpg")

	// One frame per second of footage.
	cmd := exec.CommandContext(ctx, s.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps=1",
		framePattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction: %w: %s", err, strings.TrimSpace(string(out)))
	}

	frames, err := filepath.Glob(filepath.Join(workDir, title+"-img-*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s: %w", videoKey, errs.ErrInvalidArgument)
	}

	records := make([]*domain.Image, 0, len(frames))
	for _, frame := range frames {
		name := filepath.Base(frame)
		key := SamplePrefix(req.Dataset) + req.Label + "/" + name

		f, err := os.Open(frame)
		if err != nil {
			return nil, err
		}
		uploadErr := s.bucket.UploadObject(ctx, key, f)
		_ = f.Close()
		if uploadErr != nil {
			return nil, fmt.Errorf("upload frame %s: %w", name, uploadErr)
		}

		records = append(records, &domain.Image{
			LabelKey:   label.ID,
			DatasetKey: ds.ID,
			Filename:   name,
			UploadPath: key,
			GCSUri:     fmt.Sprintf("gs://%s/%s", s.bucket.BucketName(), key),
			Type:       domain.ImageTypeTrain,
			Uploader:   req.Uploader,
		})
	}

	if _, err := s.images.CreateBatch(dbc, records); err != nil {
		return nil, err
	}
	if _, err := s.labels.AdjustImageCount(dbc, label.ID, len(records)); err != nil {
		return nil, err
	}

	if err := s.bucket.DeleteObject(ctx, videoKey); err != nil {
		s.log.Warn("Source video delete failed", "key", videoKey, "error", err)
	}

	s.log.Info("Video processed",
		"dataset", req.Dataset,
		"label", req.Label,
		"video", req.Filename,
		"frames", len(records),
	)
	return &ProcessVideoResult{
		Dataset:    req.Dataset,
		Label:      req.Label,
		FrameCount: len(records),
	}, nil
}

func (s *videoService) findLabel(dbc dbctx.Context, ds *domain.Dataset, name string) (*domain.Label, error) {
	labels, err := s.labels.ListByDataset(dbc, ds.ID)
	if err != nil {
		return nil, err
	}
	for _, l := range labels {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("label %q in dataset %q: %w", name, ds.Name, errs.ErrNotFound)
}

func (s *videoService) downloadTo(ctx context.Context, key, dest string) error {
	r, err := s.bucket.DownloadObject(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", key, err)
	}
	return f.Close()
}
