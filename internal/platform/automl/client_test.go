package automl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	c, err := New(log, Config{
		ProjectID:   "proj",
		Location:    "us-central1",
		BaseURL:     srv.URL,
		MaxRetries:  0,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
	})
	if err != nil {
		t.Fatalf("init client: %v", err)
	}
	return c
}

func TestGetOperationAbsentDoneIsFalse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"name":     "projects/proj/locations/us-central1/operations/ICN1",
			"metadata": map[string]any{"progressPercent": 40},
		})
	}))

	meta, err := c.GetOperation(context.Background(), "projects/proj/locations/us-central1/operations/ICN1")
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if meta.Done {
		t.Fatal("done must decode as false when the provider omits it")
	}
	if meta.Name != "projects/proj/locations/us-central1/operations/ICN1" {
		t.Fatalf("unexpected name %q", meta.Name)
	}
}

func TestGetOperationMissingHandle(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}))

	_, err := c.GetOperation(context.Background(), "projects/proj/locations/us-central1/operations/gone")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetOperationProviderFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))

	_, err := c.GetOperation(context.Background(), "projects/proj/locations/us-central1/operations/ICN1")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProviderError, got %v", err)
	}
	if pe.HTTPStatusCode() != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", pe.HTTPStatusCode())
	}
}

func TestImportDataRequestShape(t *testing.T) {
	var gotPath string
	var gotBody importDataRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("Authorization") == "" {
			t.Error("missing Authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"name": "projects/proj/locations/us-central1/operations/ICN2"})
	}))

	meta, err := c.ImportData(context.Background(), "ICN42", []string{"gs://b/datasets/flowers/labels.csv"})
	if err != nil {
		t.Fatalf("ImportData: %v", err)
	}
	if meta.Name == "" {
		t.Fatal("expected operation handle")
	}
	want := "/projects/proj/locations/us-central1/datasets/ICN42:importData"
	if gotPath != want {
		t.Fatalf("path = %q, want %q", gotPath, want)
	}
	if len(gotBody.InputConfig.GcsSource.InputURIs) != 1 ||
		gotBody.InputConfig.GcsSource.InputURIs[0] != "gs://b/datasets/flowers/labels.csv" {
		t.Fatalf("unexpected inputUris %v", gotBody.InputConfig.GcsSource.InputURIs)
	}
}

func TestListModelsDecodesProviderEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The v1beta1 list response keys the array "model", singular.
		json.NewEncoder(w).Encode(map[string]any{
			"model": []map[string]any{
				{"name": "projects/proj/locations/us-central1/models/ICN9", "datasetId": "ICN42", "displayName": "v20190319123000"},
			},
		})
	}))

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].DatasetID != "ICN42" {
		t.Fatalf("unexpected models %+v", models)
	}
}
