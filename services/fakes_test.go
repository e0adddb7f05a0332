package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eveternet/styleseeker-worker/internal/catalog"
	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/models"
)

// fakeProvider is an ai.DescriptionProvider double. Products whose name is
// in failNames get a transport error; otherwise response is returned. It
// tracks the peak number of in-flight Describe calls; delay keeps calls
// overlapping long enough for that peak to be observable.
type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	inflight  int
	peak      int
	delay     time.Duration
	response  string
	failNames map[string]bool
}

func (f *fakeProvider) Describe(ctx context.Context, imageURLs []string, productName string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	fail := f.failNames[productName]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()

	if fail {
		return "", errors.New("provider unavailable")
	}
	return f.response, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// fakeMirror is an in-memory database.MirrorStore.
type fakeMirror struct {
	mu   sync.Mutex
	rows map[string]map[string]*models.ProductMirror // tenantID -> productID -> row
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: make(map[string]map[string]*models.ProductMirror)}
}

func (f *fakeMirror) tenantRows(tenantID string) map[string]*models.ProductMirror {
	if f.rows[tenantID] == nil {
		f.rows[tenantID] = make(map[string]*models.ProductMirror)
	}
	return f.rows[tenantID]
}

func (f *fakeMirror) seed(tenantID string, row models.ProductMirror) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantRows(tenantID)[row.ProductID] = &row
}

func (f *fakeMirror) Upsert(ctx context.Context, tenantID string, record models.SearchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantRows(tenantID)[record.ProductID] = &models.ProductMirror{
		ProductID:        record.ProductID,
		ProductName:      record.ProductName,
		TextChecksum:     record.TextChecksum,
		ImageURLChecksum: record.ImageURLChecksum,
		ImageDescription: record.ImageDescription,
		IsPublished:      record.IsPublished,
	}
	return nil
}

func (f *fakeMirror) Get(ctx context.Context, tenantID, productID string) (*models.ProductMirror, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tenantRows(tenantID)[productID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeMirror) CachedDescriptions(ctx context.Context, tenantID string, checksums []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wanted := make(map[string]bool, len(checksums))
	for _, c := range checksums {
		wanted[c] = true
	}

	cache := make(map[string]string)
	for _, row := range f.tenantRows(tenantID) {
		if wanted[row.ImageURLChecksum] && row.ImageDescription != "" {
			cache[row.ImageURLChecksum] = row.ImageDescription
		}
	}
	return cache, nil
}

func (f *fakeMirror) Delete(ctx context.Context, tenantID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tenantRows(tenantID), productID)
	return nil
}

func (f *fakeMirror) SetPublished(ctx context.Context, tenantID, productID string, published bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tenantRows(tenantID)[productID]
	if !ok {
		return database.ErrMirrorNotFound
	}
	row.IsPublished = published
	return nil
}

func (f *fakeMirror) count(tenantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tenantRows(tenantID))
}

// fakeIndex is an in-memory vector.Index recording every call.
type fakeIndex struct {
	mu        sync.Mutex
	batches   [][]string // product ids per UpsertBatch call, in call order
	failOnID  string     // fail any batch containing this id
	deleteErr error
	deleted   []string
	updates   map[string]map[string]any
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{updates: make(map[string]map[string]any)}
}

func (f *fakeIndex) UpsertBatch(ctx context.Context, namespace string, records []models.SearchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.ProductID == f.failOnID {
			return errors.New("vector index rejected batch")
		}
		ids = append(ids, rec.ProductID)
	}
	f.batches = append(f.batches, ids)
	return nil
}

func (f *fakeIndex) DeleteOne(ctx context.Context, namespace, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) UpdateMetadata(ctx context.Context, namespace, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = fields
	return nil
}

func (f *fakeIndex) upsertedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, batch := range f.batches {
		ids = append(ids, batch...)
	}
	return ids
}

// fakeSource is a catalog.Source (and SingleFetcher) over a fixed product list.
type fakeSource struct {
	products []models.RawProduct
	initErr  error
	fetchErr error
}

func (f *fakeSource) Init(ctx context.Context) error { return f.initErr }

func (f *fakeSource) FetchAll(ctx context.Context) ([]models.RawProduct, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.products, nil
}

func (f *fakeSource) FetchByID(ctx context.Context, id int64) (*models.RawProduct, error) {
	for _, p := range f.products {
		if p.ID == id {
			copied := p
			return &copied, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func fixedResolver(src catalog.Source) CatalogResolver {
	return func(platform string, creds catalog.Credentials) (catalog.Source, error) {
		return src, nil
	}
}

// noopLock never contends.
type noopLock struct{}

func (noopLock) Acquire(ctx context.Context, tenantID string) (func(), error) {
	return func() {}, nil
}

// busyLock always reports a running import.
type busyLock struct{}

func (busyLock) Acquire(ctx context.Context, tenantID string) (func(), error) {
	return nil, ErrImportRunning
}

func testTenant() *models.Tenant {
	return &models.Tenant{
		ID:       primitive.NewObjectID(),
		Name:     "acme-boutique",
		Platform: "shopify",
		StoreURL: "https://acme.example.com",
		APIKey:   "key",
	}
}
