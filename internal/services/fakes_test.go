package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/platform/automl"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
	"github.com/visionforge/classifier-backend/internal/platform/sendgrid"
)

func dbc() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

// fakeBucket is an in-memory gcp.BucketService.
type fakeBucket struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	deleted []string
	listErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{bucket: "test-vcm", objects: map[string][]byte{}}
}

func (b *fakeBucket) put(key, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = []byte(body)
}

func (b *fakeBucket) UploadObject(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) DownloadObject(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) DeleteObject(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []string{}
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *fakeBucket) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := b.ListKeys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		_ = b.DeleteObject(ctx, k)
	}
	return len(keys), nil
}

func (b *fakeBucket) ObjectURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, key)
}

func (b *fakeBucket) BucketName() string { return b.bucket }

// fakeOperationRepo implements repos.OperationRepo in memory, including the
// (type, source_operation) claim uniqueness.
type fakeOperationRepo struct {
	mu      sync.Mutex
	records []*domain.Operation
	claims  map[string]bool
	claimed []*domain.Operation
}

func newFakeOperationRepo() *fakeOperationRepo {
	return &fakeOperationRepo{claims: map[string]bool{}}
}

func (r *fakeOperationRepo) Create(_ dbctx.Context, op *domain.Operation) (*domain.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	r.records = append(r.records, op)
	return op, nil
}

func (r *fakeOperationRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range r.records {
		if op.ID == id {
			return op, nil
		}
	}
	return nil, nil
}

func (r *fakeOperationRepo) ListPending(_ dbctx.Context, opType string) ([]*domain.Operation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Operation{}
	for _, op := range r.records {
		if op.Type == opType && !op.Done {
			// Return snapshots like the real repo does: rows fetched from the
			// database are not aliased to what MarkStatus later mutates.
			cp := *op
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOperationRepo) MarkStatus(dbc dbctx.Context, id uuid.UUID, done bool, at time.Time) (*domain.Operation, error) {
	r.mu.Lock()
	for _, op := range r.records {
		if op.ID == id {
			op.Done = op.Done || done
			op.LastUpdated = at
			cp := *op
			r.mu.Unlock()
			return &cp, nil
		}
	}
	r.mu.Unlock()
	return nil, nil
}

func (r *fakeOperationRepo) ClaimNextStage(_ dbctx.Context, op *domain.Operation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := op.Type + "|" + op.SourceOperation
	if r.claims[key] {
		return false, nil
	}
	r.claims[key] = true
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	r.records = append(r.records, op)
	r.claimed = append(r.claimed, op)
	return true, nil
}

func (r *fakeOperationRepo) DeleteBatchByDataset(_ dbctx.Context, datasetID string, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	deleted := 0
	for _, op := range r.records {
		if op.DatasetID == datasetID && deleted < limit {
			deleted++
			continue
		}
		kept = append(kept, op)
	}
	r.records = kept
	return deleted, nil
}

// fakeDatasetRepo implements repos.DatasetRepo in memory.
type fakeDatasetRepo struct {
	mu       sync.Mutex
	datasets []*domain.Dataset
}

func (r *fakeDatasetRepo) Create(_ dbctx.Context, d *domain.Dataset) (*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.datasets = append(r.datasets, d)
	return d, nil
}

func (r *fakeDatasetRepo) GetByKey(_ dbctx.Context, key uuid.UUID) (*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.datasets {
		if d.ID == key {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDatasetRepo) GetByName(_ dbctx.Context, name string) (*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.datasets {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDatasetRepo) GetByAutomlID(_ dbctx.Context, automlID string) (*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.datasets {
		if d.AutomlID == automlID {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDatasetRepo) List(_ dbctx.Context) ([]*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Dataset{}, r.datasets...), nil
}

func (r *fakeDatasetRepo) Delete(_ dbctx.Context, key uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.datasets[:0]
	for _, d := range r.datasets {
		if d.ID != key {
			kept = append(kept, d)
		}
	}
	r.datasets = kept
	return nil
}

func (r *fakeDatasetRepo) AddCollaboratorEmail(dbc dbctx.Context, key uuid.UUID, email string) (*domain.Dataset, error) {
	d, _ := r.GetByKey(dbc, key)
	if d == nil {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	emails := d.CollaboratorEmails()
	for _, e := range emails {
		if e == email {
			return d, nil
		}
	}
	d.SetCollaboratorEmails(append(emails, email))
	return d, nil
}

func (r *fakeDatasetRepo) RemoveCollaboratorEmail(dbc dbctx.Context, key uuid.UUID, email string) (*domain.Dataset, error) {
	d, _ := r.GetByKey(dbc, key)
	if d == nil {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	emails := d.CollaboratorEmails()
	out := emails[:0]
	for _, e := range emails {
		if e != email {
			out = append(out, e)
		}
	}
	d.SetCollaboratorEmails(out)
	return d, nil
}

// fakeLabelRepo implements repos.LabelRepo in memory.
type fakeLabelRepo struct {
	mu     sync.Mutex
	labels []*domain.Label
}

func (r *fakeLabelRepo) Create(_ dbctx.Context, l *domain.Label) (*domain.Label, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.labels = append(r.labels, l)
	return l, nil
}

func (r *fakeLabelRepo) GetByKey(_ dbctx.Context, key uuid.UUID) (*domain.Label, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.labels {
		if l.ID == key {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLabelRepo) ListByDataset(_ dbctx.Context, datasetKey uuid.UUID) ([]*domain.Label, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Label{}
	for _, l := range r.labels {
		if l.DatasetKey == datasetKey {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLabelRepo) AdjustImageCount(_ dbctx.Context, key uuid.UUID, delta int) (*domain.Label, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.labels {
		if l.ID == key {
			l.TotalImages += delta
			if l.TotalImages < 0 {
				l.TotalImages = 0
			}
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLabelRepo) Delete(_ dbctx.Context, key uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.labels[:0]
	for _, l := range r.labels {
		if l.ID != key {
			kept = append(kept, l)
		}
	}
	r.labels = kept
	return nil
}

func (r *fakeLabelRepo) DeleteBatchByDataset(_ dbctx.Context, datasetKey uuid.UUID, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.labels[:0]
	deleted := 0
	for _, l := range r.labels {
		if l.DatasetKey == datasetKey && deleted < limit {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	r.labels = kept
	return deleted, nil
}

// fakeImageRepo implements repos.ImageRepo in memory.
type fakeImageRepo struct {
	mu     sync.Mutex
	images []*domain.Image
}

func (r *fakeImageRepo) CreateBatch(_ dbctx.Context, images []*domain.Image) ([]*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range images {
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
	}
	r.images = append(r.images, images...)
	return images, nil
}

func (r *fakeImageRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, nil
}

func (r *fakeImageRepo) ListByLabel(_ dbctx.Context, labelKey uuid.UUID) ([]*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Image{}
	for _, img := range r.images {
		if img.LabelKey == labelKey {
			out = append(out, img)
		}
	}
	return out, nil
}

func (r *fakeImageRepo) CountByLabel(dbc dbctx.Context, labelKey uuid.UUID) (int64, error) {
	imgs, _ := r.ListByLabel(dbc, labelKey)
	return int64(len(imgs)), nil
}

func (r *fakeImageRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.images[:0]
	for _, img := range r.images {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	r.images = kept
	return nil
}

func (r *fakeImageRepo) DeleteBatchByLabel(_ dbctx.Context, labelKey uuid.UUID, limit int) ([]*domain.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.images[:0]
	batch := []*domain.Image{}
	for _, img := range r.images {
		if img.LabelKey == labelKey && len(batch) < limit {
			batch = append(batch, img)
			continue
		}
		kept = append(kept, img)
	}
	r.images = kept
	return batch, nil
}

// fakeModelRepo implements repos.ModelRepo in memory.
type fakeModelRepo struct {
	mu      sync.Mutex
	models  []*domain.Model
	makeErr error
}

func (r *fakeModelRepo) Create(_ dbctx.Context, m *domain.Model) (*domain.Model, error) {
	if r.makeErr != nil {
		return nil, r.makeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.models = append(r.models, m)
	return m, nil
}

func (r *fakeModelRepo) ListByDataset(_ dbctx.Context, datasetID string) ([]*domain.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Model{}
	for _, m := range r.models {
		if m.DatasetID == datasetID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeModelRepo) DeleteBatchByDataset(_ dbctx.Context, datasetID string, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.models[:0]
	deleted := 0
	for _, m := range r.models {
		if m.DatasetID == datasetID && deleted < limit {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.models = kept
	return deleted, nil
}

// fakeCollaboratorRepo implements repos.CollaboratorRepo in memory.
type fakeCollaboratorRepo struct {
	mu   sync.Mutex
	rows []*domain.Collaborator
}

func (r *fakeCollaboratorRepo) Create(_ dbctx.Context, c *domain.Collaborator) (*domain.Collaborator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.rows = append(r.rows, c)
	return c, nil
}

func (r *fakeCollaboratorRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Collaborator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCollaboratorRepo) ListByDataset(_ dbctx.Context, datasetKey uuid.UUID) ([]*domain.Collaborator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Collaborator{}
	for _, c := range r.rows {
		if c.DatasetKey == datasetKey {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCollaboratorRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, c := range r.rows {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeCollaboratorRepo) DeleteBatchByDataset(_ dbctx.Context, datasetKey uuid.UUID, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	deleted := 0
	for _, c := range r.rows {
		if c.DatasetKey == datasetKey && deleted < limit {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	r.rows = kept
	return deleted, nil
}

// fakeGateway implements automl.Client.
type fakeGateway struct {
	mu         sync.Mutex
	models     []automl.Model
	operations map[string]*automl.OperationMetadata
	getErrs    map[string]error
	opCounter  int
	submitted  []string

	exportedModels []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		operations: map[string]*automl.OperationMetadata{},
		getErrs:    map[string]error{},
	}
}

func (g *fakeGateway) nextOp(kind string) *automl.OperationMetadata {
	g.opCounter++
	meta := &automl.OperationMetadata{Name: fmt.Sprintf("projects/p/locations/l/operations/%s-%d", kind, g.opCounter)}
	g.operations[meta.Name] = meta
	g.submitted = append(g.submitted, meta.Name)
	return meta
}

func (g *fakeGateway) ListDatasets(context.Context) ([]automl.Dataset, error) { return nil, nil }

func (g *fakeGateway) CreateDataset(_ context.Context, displayName string) (*automl.Dataset, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opCounter++
	return &automl.Dataset{
		Name:        fmt.Sprintf("projects/p/locations/l/datasets/ICN%d", g.opCounter),
		DisplayName: displayName,
	}, nil
}

func (g *fakeGateway) DeleteDataset(_ context.Context, datasetID string) (*automl.OperationMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextOp("delete"), nil
}

func (g *fakeGateway) ImportData(_ context.Context, datasetID string, inputURIs []string) (*automl.OperationMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextOp("import"), nil
}

func (g *fakeGateway) CreateModel(_ context.Context, datasetID, displayName string, trainBudget int, modelType string) (*automl.OperationMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextOp("train"), nil
}

func (g *fakeGateway) ExportModel(_ context.Context, modelID, gcsPath string) (*automl.OperationMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exportedModels = append(g.exportedModels, modelID)
	return g.nextOp("export"), nil
}

func (g *fakeGateway) ListModels(context.Context) ([]automl.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]automl.Model{}, g.models...), nil
}

func (g *fakeGateway) GetOperation(_ context.Context, name string) (*automl.OperationMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.getErrs[name]; err != nil {
		return nil, err
	}
	if meta, ok := g.operations[name]; ok {
		cp := *meta
		return &cp, nil
	}
	return &automl.OperationMetadata{Name: name}, nil
}

// fakeTraining implements TrainingService with canned results.
type fakeTraining struct {
	mu        sync.Mutex
	trainErr  error
	exportErr error
	counter   int
	trained   []string
	exported  []string
}

func (t *fakeTraining) next(kind string) *automl.OperationMetadata {
	t.counter++
	return &automl.OperationMetadata{Name: fmt.Sprintf("projects/p/locations/l/operations/%s-%d", kind, t.counter)}
}

func (t *fakeTraining) ImportDataset(_ context.Context, datasetID, datasetName string) (*automl.OperationMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next("import"), nil
}

func (t *fakeTraining) StartTraining(_ context.Context, datasetID string, trainBudget int, modelType string) (*automl.OperationMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.trainErr != nil {
		return nil, t.trainErr
	}
	t.trained = append(t.trained, datasetID)
	return t.next("train"), nil
}

func (t *fakeTraining) ExportModel(_ context.Context, modelID, gcsPath string) (*automl.OperationMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next("export"), nil
}

func (t *fakeTraining) ExportLatestModel(_ context.Context, datasetID, gcsPath string) (*automl.OperationMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.exportErr != nil {
		return nil, t.exportErr
	}
	t.exported = append(t.exported, gcsPath)
	return t.next("export"), nil
}

// fakeResolver implements ExportResolver.
type fakeResolver struct {
	model *domain.Model
	err   error
	calls int
}

func (r *fakeResolver) Resolve(_ context.Context, datasetID string) (*domain.Model, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.model != nil {
		return r.model, nil
	}
	return &domain.Model{ID: uuid.New(), DatasetID: datasetID}, nil
}

// fakeNotifier implements OwnerNotifier.
type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
	err      error
}

func (n *fakeNotifier) NotifyTrainingComplete(_ context.Context, ds *domain.Dataset) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, ds.Name)
	return nil
}

// fakeMail implements sendgrid.Client.
type fakeMail struct {
	mu   sync.Mutex
	sent []sendgrid.SendEmailRequest
	err  error
}

func (m *fakeMail) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, req)
	return &sendgrid.SendEmailResult{StatusCode: 202}, nil
}
