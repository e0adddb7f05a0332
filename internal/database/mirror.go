package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eveternet/styleseeker-worker/models"
)

// ErrMirrorNotFound is returned by operations that require an existing
// mirror row. Callers use it to fall back to a full fetch-and-upsert.
var ErrMirrorNotFound = errors.New("product not found in mirror")

// MirrorStore is the relational mirror capability: checksums and publish
// flags per (tenant, product), never the full searchable text.
type MirrorStore interface {
	// Upsert fully replaces the mirror row for the record's product id,
	// creating it when absent.
	Upsert(ctx context.Context, tenantID string, record models.SearchRecord) error

	// Get returns the mirror row, or (nil, nil) when the product was
	// never imported.
	Get(ctx context.Context, tenantID, productID string) (*models.ProductMirror, error)

	// CachedDescriptions returns, for the given image-url checksums, the
	// subset that already have a stored non-empty image description.
	CachedDescriptions(ctx context.Context, tenantID string, checksums []string) (map[string]string, error)

	Delete(ctx context.Context, tenantID, productID string) error

	// SetPublished flips only the publish flag. Returns ErrMirrorNotFound
	// when the product has no mirror row.
	SetPublished(ctx context.Context, tenantID, productID string, published bool) error
}

const mirrorCollection = "products"

// MongoMirror implements MirrorStore on the tenant-per-database layout.
type MongoMirror struct {
	manager *TenantDBManager
}

func NewMongoMirror(manager *TenantDBManager) *MongoMirror {
	return &MongoMirror{manager: manager}
}

func (m *MongoMirror) collection(tenantID string) (*mongo.Collection, error) {
	db, err := m.manager.GetTenantDB(tenantID)
	if err != nil {
		return nil, err
	}
	return db.Collection(mirrorCollection), nil
}

func (m *MongoMirror) Upsert(ctx context.Context, tenantID string, record models.SearchRecord) error {
	col, err := m.collection(tenantID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	filter := bson.M{"product_id": record.ProductID}
	update := bson.M{
		"$set": bson.M{
			"product_name":       record.ProductName,
			"text_checksum":      record.TextChecksum,
			"image_url_checksum": record.ImageURLChecksum,
			"image_description":  record.ImageDescription,
			"is_published":       record.IsPublished,
			"updated_at":         now,
		},
		"$setOnInsert": bson.M{
			"product_id": record.ProductID,
			"created_at": now,
		},
	}

	_, err = col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mirror upsert failed for product %s: %w", record.ProductID, err)
	}
	return nil
}

func (m *MongoMirror) Get(ctx context.Context, tenantID, productID string) (*models.ProductMirror, error) {
	col, err := m.collection(tenantID)
	if err != nil {
		return nil, err
	}

	var row models.ProductMirror
	err = col.FindOne(ctx, bson.M{"product_id": productID}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mirror lookup failed for product %s: %w", productID, err)
	}
	return &row, nil
}

func (m *MongoMirror) CachedDescriptions(ctx context.Context, tenantID string, checksums []string) (map[string]string, error) {
	cache := make(map[string]string)
	if len(checksums) == 0 {
		return cache, nil
	}

	col, err := m.collection(tenantID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"image_url_checksum": bson.M{"$in": checksums},
		"image_description":  bson.M{"$nin": bson.A{"", nil}},
	}
	cursor, err := col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cached description lookup failed: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row models.ProductMirror
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("cached description decode failed: %w", err)
		}
		if row.ImageDescription != "" {
			cache[row.ImageURLChecksum] = row.ImageDescription
		}
	}
	return cache, cursor.Err()
}

func (m *MongoMirror) Delete(ctx context.Context, tenantID, productID string) error {
	col, err := m.collection(tenantID)
	if err != nil {
		return err
	}

	_, err = col.DeleteOne(ctx, bson.M{"product_id": productID})
	if err != nil {
		return fmt.Errorf("mirror delete failed for product %s: %w", productID, err)
	}
	return nil
}

func (m *MongoMirror) SetPublished(ctx context.Context, tenantID, productID string, published bool) error {
	col, err := m.collection(tenantID)
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"product_id": productID},
		bson.M{"$set": bson.M{"is_published": published, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mirror publish update failed for product %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		return ErrMirrorNotFound
	}
	return nil
}
