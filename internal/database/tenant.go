package database

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TenantDBManager hands out one isolated Mongo database per tenant, with
// the mirror indexes created lazily on first access.
type TenantDBManager struct {
	client    *mongo.Client
	databases map[string]*mongo.Database
	mu        sync.RWMutex
}

func NewTenantDBManager(client *mongo.Client) *TenantDBManager {
	return &TenantDBManager{
		client:    client,
		databases: make(map[string]*mongo.Database),
	}
}

// GetTenantDB returns isolated database for tenant
func (m *TenantDBManager) GetTenantDB(tenantID string) (*mongo.Database, error) {
	m.mu.RLock()
	if db, exists := m.databases[tenantID]; exists {
		m.mu.RUnlock()
		return db, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if db, exists := m.databases[tenantID]; exists {
		return db, nil
	}

	dbName := fmt.Sprintf("tenant_%s", tenantID)
	db := m.client.Database(dbName)

	if err := m.createTenantIndexes(db); err != nil {
		return nil, err
	}

	m.databases[tenantID] = db
	return db, nil
}

func (m *TenantDBManager) createTenantIndexes(db *mongo.Database) error {
	ctx := context.Background()

	// Products mirror indexes: product_id is the upsert conflict key,
	// image_url_checksum backs the description cache lookups.
	productsCol := db.Collection("products")
	_, err := productsCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "image_url_checksum", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})

	return err
}
