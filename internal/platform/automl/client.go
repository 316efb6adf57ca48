package automl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/visionforge/classifier-backend/internal/pkg/ctxutil"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/pkg/httpx"
	"github.com/visionforge/classifier-backend/internal/platform/envutil"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client drives the AutoML Vision v1beta1 REST API. All three long-running
// kinds (import, train, export) go through here and come back as an
// OperationMetadata handle; completion is observed only by GetOperation.
type Client interface {
	ListDatasets(ctx context.Context) ([]Dataset, error)
	CreateDataset(ctx context.Context, displayName string) (*Dataset, error)
	DeleteDataset(ctx context.Context, datasetID string) (*OperationMetadata, error)
	ImportData(ctx context.Context, datasetID string, inputURIs []string) (*OperationMetadata, error)
	CreateModel(ctx context.Context, datasetID, displayName string, trainBudget int, modelType string) (*OperationMetadata, error)
	ExportModel(ctx context.Context, modelID, gcsPath string) (*OperationMetadata, error)
	ListModels(ctx context.Context) ([]Model, error)
	GetOperation(ctx context.Context, name string) (*OperationMetadata, error)
}

type Config struct {
	ProjectID  string
	Location   string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// TokenSource overrides Application Default Credentials (tests).
	TokenSource oauth2.TokenSource
}

func ConfigFromEnv() Config {
	return Config{
		ProjectID:  envutil.Str("GCLOUD_PROJECT", ""),
		Location:   envutil.Str("AUTOML_LOCATION", "us-central1"),
		BaseURL:    envutil.Str("AUTOML_BASE_URL", "https://automl.googleapis.com/v1beta1"),
		Timeout:    time.Duration(envutil.Int("AUTOML_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxRetries: envutil.Int("AUTOML_MAX_RETRIES", 3),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, fmt.Errorf("missing GCLOUD_PROJECT")
	}
	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = "us-central1"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://automl.googleapis.com/v1beta1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	ts := cfg.TokenSource
	if ts == nil {
		creds, err := google.FindDefaultCredentials(context.Background(), cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("resolve google credentials: %w", err)
		}
		ts = creds.TokenSource
	}

	return &client{
		log:         log.With("client", "AutoMLClient"),
		cfg:         cfg,
		tokenSource: ts,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log         *logger.Logger
	cfg         Config
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

func (c *client) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.cfg.ProjectID, c.cfg.Location)
}

func (c *client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	var out listDatasetsResponse
	if err := c.do(ctx, http.MethodGet, "/"+c.parent()+"/datasets", nil, &out); err != nil {
		return nil, err
	}
	return out.Datasets, nil
}

func (c *client) CreateDataset(ctx context.Context, displayName string) (*Dataset, error) {
	body := Dataset{
		DisplayName: displayName,
		ImageClassificationDatasetMetadata: &ImageClassificationDatasetMetadata{
			ClassificationType: "MULTICLASS",
		},
	}
	var out Dataset
	if err := c.do(ctx, http.MethodPost, "/"+c.parent()+"/datasets", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DeleteDataset(ctx context.Context, datasetID string) (*OperationMetadata, error) {
	var out OperationMetadata
	path := fmt.Sprintf("/%s/datasets/%s", c.parent(), datasetID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ImportData(ctx context.Context, datasetID string, inputURIs []string) (*OperationMetadata, error) {
	body := importDataRequest{
		InputConfig: inputConfig{GcsSource: gcsSource{InputURIs: inputURIs}},
	}
	var out OperationMetadata
	path := fmt.Sprintf("/%s/datasets/%s:importData", c.parent(), datasetID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) CreateModel(ctx context.Context, datasetID, displayName string, trainBudget int, modelType string) (*OperationMetadata, error) {
	body := createModelRequest{
		Model: modelSpec{
			DisplayName: displayName,
			DatasetID:   datasetID,
			ImageClassificationModelMetadata: imageClassificationModelSpec{
				TrainBudget: trainBudget,
				ModelType:   modelType,
			},
		},
	}
	var out OperationMetadata
	if err := c.do(ctx, http.MethodPost, "/"+c.parent()+"/models", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ExportModel(ctx context.Context, modelID, gcsPath string) (*OperationMetadata, error) {
	body := exportModelRequest{
		OutputConfig: exportOutputConfig{
			ModelFormat:    "tflite",
			GcsDestination: gcsDestination{OutputURIPrefix: gcsPath},
		},
	}
	var out OperationMetadata
	path := fmt.Sprintf("/%s/models/%s:export", c.parent(), modelID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ListModels(ctx context.Context) ([]Model, error) {
	var out listModelsResponse
	if err := c.do(ctx, http.MethodGet, "/"+c.parent()+"/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Model, nil
}

// GetOperation polls a long-running operation by its opaque handle
// (a path-like string such as projects/p/locations/l/operations/ICN123).
func (c *client) GetOperation(ctx context.Context, name string) (*OperationMetadata, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, fmt.Errorf("operation name required: %w", errs.ErrInvalidArgument)
	}
	var out OperationMetadata
	if err := c.do(ctx, http.MethodGet, "/"+name, nil, &out); err != nil {
		return nil, err
	}
	if out.Name == "" {
		out.Name = name
	}
	return &out, nil
}

// ProviderError is any non-2xx answer from the provider that is not a
// missing-handle 404. It must never be read as completion.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "automl: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("automl http %d: %s", e.StatusCode, msg)
}

func (e *ProviderError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out != nil && len(raw) > 0 {
				if decErr := json.Unmarshal(raw, out); decErr != nil {
					return fmt.Errorf("automl: decode %s %s: %w", method, path, decErr)
				}
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 15*time.Second))
		c.log.Warn("AutoML request retrying",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	tok, err := c.tokenSource.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("automl: fetch access token: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode == http.StatusNotFound {
		return resp, raw, fmt.Errorf("automl: %s: %w", strings.TrimPrefix(path, "/"), errs.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &ProviderError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
