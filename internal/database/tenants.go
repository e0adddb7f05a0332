package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eveternet/styleseeker-worker/models"
)

// TenantStore reads and writes the tenant registry in the control database.
type TenantStore struct {
	col *mongo.Collection
}

func NewTenantStore(db *mongo.Database) *TenantStore {
	return &TenantStore{col: db.Collection("tenants")}
}

func (s *TenantStore) GetByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	oid, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id %q: %v", tenantID, err)
	}

	var tenant models.Tenant
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&tenant)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("tenant %s not found", tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("tenant lookup failed: %w", err)
	}
	return &tenant, nil
}

// ListActive returns all tenants eligible for a scheduled reimport.
func (s *TenantStore) ListActive(ctx context.Context) ([]models.Tenant, error) {
	cursor, err := s.col.Find(ctx, bson.M{"status": bson.M{"$ne": "disabled"}})
	if err != nil {
		return nil, fmt.Errorf("tenant list failed: %w", err)
	}
	defer cursor.Close(ctx)

	var tenants []models.Tenant
	if err := cursor.All(ctx, &tenants); err != nil {
		return nil, fmt.Errorf("tenant decode failed: %w", err)
	}
	return tenants, nil
}

func (s *TenantStore) Create(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error) {
	now := time.Now().UTC()
	tenant := models.Tenant{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Platform:     req.Platform,
		StoreURL:     req.StoreURL,
		APIKey:       req.APIKey,
		APISecret:    req.APISecret,
		Status:       "active",
		ContactEmail: req.ContactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.col.InsertOne(ctx, tenant); err != nil {
		return nil, fmt.Errorf("tenant create failed: %w", err)
	}
	return &tenant, nil
}
