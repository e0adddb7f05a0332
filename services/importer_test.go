package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eveternet/styleseeker-worker/internal/catalog"
	"github.com/eveternet/styleseeker-worker/models"
	"github.com/eveternet/styleseeker-worker/utils"
)

// pipeline wires an importer over the fakes with production defaults and
// no pauses, so tests run instantly.
func pipeline(provider *fakeProvider, mirror *fakeMirror, index *fakeIndex, src catalog.Source, lock ImportLocker) *Importer {
	enricher := NewEnricher(provider, mirror)
	sink := NewSink(index, mirror, 50, 0)
	return NewImporter(enricher, sink, mirror, lock, fixedResolver(src), ImporterOptions{})
}

func imagelessProducts(n int) []models.RawProduct {
	products := make([]models.RawProduct, n)
	for i := range products {
		products[i] = models.RawProduct{
			ID:          int64(i + 1),
			Name:        fmt.Sprintf("Product %d", i+1),
			IsPublished: true,
		}
	}
	return products
}

func TestImportStoresFullCatalog(t *testing.T) {
	provider := &fakeProvider{}
	mirror := newFakeMirror()
	index := newFakeIndex()
	src := &fakeSource{products: imagelessProducts(101)}
	importer := pipeline(provider, mirror, index, src, noopLock{})

	tenant := testTenant()
	result := importer.ProcessAndStoreProducts(context.Background(), tenant)

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 101, result.ImportedCount)
	assert.Equal(t, 101, result.TotalProducts)
	assert.NotEmpty(t, result.JobID)

	// 101 products chunk as 100+1; the 100-chunk sub-batches as 50+50.
	require.Len(t, index.batches, 3)
	assert.Len(t, index.batches[0], 50)
	assert.Len(t, index.batches[1], 50)
	assert.Len(t, index.batches[2], 1)
	assert.Equal(t, "1", index.batches[0][0])
	assert.Equal(t, "101", index.batches[2][0])

	// No images anywhere, so the provider is never called.
	assert.Equal(t, 0, provider.callCount())
	assert.Equal(t, 101, mirror.count(tenant.ID.Hex()))
}

func TestImportDropsProductWhoseAICallFails(t *testing.T) {
	products := []models.RawProduct{
		{ID: 1, Name: "Alpha", ImageURLs: []string{"https://cdn.example.com/1.jpg"}},
		{ID: 2, Name: "Bravo", ImageURLs: []string{"https://cdn.example.com/2.jpg"}},
		{ID: 3, Name: "Charlie", ImageURLs: []string{"https://cdn.example.com/3.jpg"}},
	}
	provider := &fakeProvider{response: "Described.", failNames: map[string]bool{"Bravo": true}}
	mirror := newFakeMirror()
	index := newFakeIndex()
	importer := pipeline(provider, mirror, index, &fakeSource{products: products}, noopLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, 3, result.TotalProducts)
	assert.ElementsMatch(t, []string{"1", "3"}, index.upsertedIDs())
}

func TestImportBoundsConcurrentAICalls(t *testing.T) {
	products := make([]models.RawProduct, 25)
	for i := range products {
		products[i] = models.RawProduct{
			ID:        int64(i + 1),
			Name:      fmt.Sprintf("Product %d", i+1),
			ImageURLs: []string{fmt.Sprintf("https://cdn.example.com/%d.jpg", i+1)},
		}
	}

	// The delay keeps each group's calls overlapping, so the peak reflects
	// actual in-flight width rather than scheduler luck.
	provider := &fakeProvider{response: "Described.", delay: 2 * time.Millisecond}
	mirror := newFakeMirror()
	index := newFakeIndex()
	enricher := NewEnricher(provider, mirror)
	sink := NewSink(index, mirror, 50, 0)
	importer := NewImporter(enricher, sink, mirror, noopLock{},
		fixedResolver(&fakeSource{products: products}), ImporterOptions{MaxConcurrentAI: 4})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 25, result.ImportedCount)
	assert.Equal(t, 25, provider.callCount())
	assert.LessOrEqual(t, provider.peakConcurrency(), 4)
}

func TestImportReusesCachedDescriptions(t *testing.T) {
	products := []models.RawProduct{
		{ID: 1, Name: "Alpha", ImageURLs: []string{"https://cdn.example.com/1.jpg"}},
		{ID: 2, Name: "Bravo", ImageURLs: []string{"https://cdn.example.com/2.jpg"}},
	}
	mirror := newFakeMirror()
	tenant := testTenant()
	for _, p := range products {
		mirror.seed(tenant.ID.Hex(), models.ProductMirror{
			ProductID:        fmt.Sprintf("%d", p.ID),
			ImageURLChecksum: utils.Checksum(p.ImageURLs[0]),
			ImageDescription: "Previously generated.",
		})
	}

	provider := &fakeProvider{response: "fresh"}
	index := newFakeIndex()
	importer := pipeline(provider, mirror, index, &fakeSource{products: products}, noopLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), tenant)

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 2, result.ImportedCount)
	// Re-import of unchanged products must not burn AI calls.
	assert.Equal(t, 0, provider.callCount())
}

func TestImportSurvivesFailedChunk(t *testing.T) {
	provider := &fakeProvider{}
	mirror := newFakeMirror()
	index := newFakeIndex()
	index.failOnID = "150" // last product of chunk 2
	src := &fakeSource{products: imagelessProducts(150)}
	importer := pipeline(provider, mirror, index, src, noopLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	// Chunk 1 persisted, chunk 2 failed and was skipped; partial success
	// still reports ok.
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 100, result.ImportedCount)
	assert.Equal(t, 150, result.TotalProducts)
}

func TestImportAllChunksFailed(t *testing.T) {
	provider := &fakeProvider{}
	mirror := newFakeMirror()
	index := newFakeIndex()
	index.failOnID = "1"
	src := &fakeSource{products: imagelessProducts(10)}
	importer := pipeline(provider, mirror, index, src, noopLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, 0, result.ImportedCount)
}

func TestImportConflictsWithRunningImport(t *testing.T) {
	importer := pipeline(&fakeProvider{}, newFakeMirror(), newFakeIndex(),
		&fakeSource{products: imagelessProducts(5)}, busyLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	assert.Equal(t, http.StatusConflict, result.Status)
	assert.Equal(t, 0, result.ImportedCount)
}

func TestImportCatalogFetchFailure(t *testing.T) {
	index := newFakeIndex()
	src := &fakeSource{fetchErr: errors.New("store unreachable")}
	importer := pipeline(&fakeProvider{}, newFakeMirror(), index, src, noopLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Contains(t, result.Message, "catalog fetch failed")
	assert.Empty(t, index.batches)
}

func TestImportUnknownPlatform(t *testing.T) {
	enricher := NewEnricher(&fakeProvider{}, newFakeMirror())
	sink := NewSink(newFakeIndex(), newFakeMirror(), 50, 0)
	importer := NewImporter(enricher, sink, newFakeMirror(), noopLock{}, catalog.Resolve, ImporterOptions{})

	tenant := testTenant()
	tenant.Platform = "magento"
	result := importer.ProcessAndStoreProducts(context.Background(), tenant)

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Contains(t, result.Message, "catalog configuration error")
}

func TestImportSkipsInvalidProducts(t *testing.T) {
	products := []models.RawProduct{
		{ID: 1, Name: "Valid"},
		{ID: 0, Name: "No ID"},
		{ID: 3, Name: ""},
		{ID: 4, Name: "Also Valid"},
	}
	index := newFakeIndex()
	importer := pipeline(&fakeProvider{}, newFakeMirror(), index, &fakeSource{products: products}, noopLock{})

	result := importer.ProcessAndStoreProducts(context.Background(), testTenant())

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, 4, result.TotalProducts)
	assert.ElementsMatch(t, []string{"1", "4"}, index.upsertedIDs())
}

func TestUpsertSingleProduct(t *testing.T) {
	provider := &fakeProvider{response: "A picture."}
	mirror := newFakeMirror()
	index := newFakeIndex()
	importer := pipeline(provider, mirror, index, &fakeSource{}, noopLock{})

	tenant := testTenant()
	err := importer.UpsertSingleProduct(context.Background(), tenant, models.RawProduct{
		ID:        77,
		Name:      "Webhook Product",
		ImageURLs: []string{"https://cdn.example.com/77.jpg"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"77"}, index.upsertedIDs())
	row, err := mirror.Get(context.Background(), tenant.ID.Hex(), "77")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "A picture.", row.ImageDescription)
}

func TestSetPublishedStatusWithFetchKnownProduct(t *testing.T) {
	mirror := newFakeMirror()
	tenant := testTenant()
	mirror.seed(tenant.ID.Hex(), models.ProductMirror{ProductID: "5", IsPublished: false})

	index := newFakeIndex()
	provider := &fakeProvider{}
	importer := pipeline(provider, mirror, index, &fakeSource{}, noopLock{})

	err := importer.SetPublishedStatusWithFetch(context.Background(), tenant, "5", true)

	require.NoError(t, err)
	row, _ := mirror.Get(context.Background(), tenant.ID.Hex(), "5")
	assert.True(t, row.IsPublished)
	assert.Equal(t, map[string]any{"is_published": true}, index.updates["5"])
	// Known product must not trigger a catalog fetch or re-enrichment.
	assert.Equal(t, 0, provider.callCount())
	assert.Empty(t, index.batches)
}

func TestSetPublishedStatusWithFetchUnknownProduct(t *testing.T) {
	mirror := newFakeMirror()
	tenant := testTenant()
	src := &fakeSource{products: []models.RawProduct{
		{ID: 9, Name: "Late Arrival", IsPublished: false},
	}}
	provider := &fakeProvider{response: "Described."}
	index := newFakeIndex()
	importer := pipeline(provider, mirror, index, src, noopLock{})

	err := importer.SetPublishedStatusWithFetch(context.Background(), tenant, "9", true)

	require.NoError(t, err)
	row, _ := mirror.Get(context.Background(), tenant.ID.Hex(), "9")
	require.NotNil(t, row)
	// The webhook's flag wins over whatever the platform reported.
	assert.True(t, row.IsPublished)
	assert.Equal(t, []string{"9"}, index.upsertedIDs())
}

func TestSetPublishedStatusWithFetchMissingEverywhere(t *testing.T) {
	importer := pipeline(&fakeProvider{}, newFakeMirror(), newFakeIndex(), &fakeSource{}, noopLock{})

	err := importer.SetPublishedStatusWithFetch(context.Background(), testTenant(), "404", true)

	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestDeleteProduct(t *testing.T) {
	mirror := newFakeMirror()
	tenant := testTenant()
	mirror.seed(tenant.ID.Hex(), models.ProductMirror{ProductID: "12"})
	index := newFakeIndex()
	importer := pipeline(&fakeProvider{}, mirror, index, &fakeSource{}, noopLock{})

	ok := importer.DeleteProduct(context.Background(), tenant, "12")

	assert.True(t, ok)
	assert.Equal(t, []string{"12"}, index.deleted)
	row, _ := mirror.Get(context.Background(), tenant.ID.Hex(), "12")
	assert.Nil(t, row)
}
