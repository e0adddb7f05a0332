package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/models"
)

func makeRecords(n int) []models.SearchRecord {
	records := make([]models.SearchRecord, n)
	for i := range records {
		records[i] = models.SearchRecord{
			ProductID:   fmt.Sprintf("%d", i+1),
			ProductName: fmt.Sprintf("Product %d", i+1),
			Text:        fmt.Sprintf("Product %d", i+1),
		}
	}
	return records
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "tenant_abc123", Namespace("abc123"))
}

func TestWriteChunkSubBatches(t *testing.T) {
	index := newFakeIndex()
	mirror := newFakeMirror()
	sink := NewSink(index, mirror, 50, 0)

	err := sink.WriteChunk(context.Background(), makeRecords(120), "t1")

	require.NoError(t, err)
	require.Len(t, index.batches, 3)
	assert.Len(t, index.batches[0], 50)
	assert.Len(t, index.batches[1], 50)
	assert.Len(t, index.batches[2], 20)
	// Order is preserved across sub-batches.
	assert.Equal(t, "51", index.batches[1][0])
	assert.Equal(t, "120", index.batches[2][19])
	assert.Equal(t, 120, mirror.count("t1"))
}

func TestWriteChunkEmptyInput(t *testing.T) {
	index := newFakeIndex()
	sink := NewSink(index, newFakeMirror(), 50, 0)

	require.NoError(t, sink.WriteChunk(context.Background(), nil, "t1"))
	assert.Empty(t, index.batches)
}

func TestWriteChunkVectorFailureSkipsMirror(t *testing.T) {
	index := newFakeIndex()
	index.failOnID = "3"
	mirror := newFakeMirror()
	sink := NewSink(index, mirror, 50, 0)

	err := sink.WriteChunk(context.Background(), makeRecords(5), "t1")

	assert.Error(t, err)
	// The chunk aborts before any mirror write happens.
	assert.Equal(t, 0, mirror.count("t1"))
}

func TestDeleteProductBothStores(t *testing.T) {
	index := newFakeIndex()
	mirror := newFakeMirror()
	sink := NewSink(index, mirror, 50, 0)
	mirror.seed("t1", models.ProductMirror{ProductID: "8"})

	ok := sink.DeleteProduct(context.Background(), "t1", "8")

	assert.True(t, ok)
	assert.Equal(t, []string{"8"}, index.deleted)
	assert.Equal(t, 0, mirror.count("t1"))
}

func TestDeleteProductVectorFailure(t *testing.T) {
	index := newFakeIndex()
	index.deleteErr = errors.New("index unavailable")
	mirror := newFakeMirror()
	mirror.seed("t1", models.ProductMirror{ProductID: "8"})
	sink := NewSink(index, mirror, 50, 0)

	ok := sink.DeleteProduct(context.Background(), "t1", "8")

	// Reported as failure, but the mirror delete is still attempted.
	assert.False(t, ok)
	assert.Equal(t, 0, mirror.count("t1"))
}

func TestSetPublishedMissingRow(t *testing.T) {
	index := newFakeIndex()
	sink := NewSink(index, newFakeMirror(), 50, 0)

	err := sink.SetPublished(context.Background(), "t1", "404", true)

	assert.ErrorIs(t, err, database.ErrMirrorNotFound)
	// Mirror is the source of truth; the vector index is never touched when
	// the row is missing.
	assert.Empty(t, index.updates)
}

func TestSetPublishedUpdatesBothStores(t *testing.T) {
	index := newFakeIndex()
	mirror := newFakeMirror()
	mirror.seed("t1", models.ProductMirror{ProductID: "6", IsPublished: true})
	sink := NewSink(index, mirror, 50, 0)

	err := sink.SetPublished(context.Background(), "t1", "6", false)

	require.NoError(t, err)
	row, _ := mirror.Get(context.Background(), "t1", "6")
	assert.False(t, row.IsPublished)
	assert.Equal(t, map[string]any{"is_published": false}, index.updates["6"])
}
