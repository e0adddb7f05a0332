package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tenant is one onboarded merchant. Each tenant gets its own mirror
// database and its own vector index namespace.
type Tenant struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name" binding:"required,min=2,max=100"`
	Platform     string             `bson:"platform" json:"platform" binding:"required"` // catalog plugin id: "shopify", "woocommerce"
	StoreURL     string             `bson:"store_url" json:"store_url"`
	APIKey       string             `bson:"api_key" json:"-"`
	APISecret    string             `bson:"api_secret" json:"-"`
	Status       string             `bson:"status,omitempty" json:"status,omitempty"` // default "active"
	ContactEmail string             `bson:"contact_email,omitempty" json:"contact_email,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

type CreateTenantRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=100"`
	Platform     string `json:"platform" binding:"required"`
	StoreURL     string `json:"store_url" binding:"required"`
	APIKey       string `json:"api_key" binding:"required"`
	APISecret    string `json:"api_secret"`
	ContactEmail string `json:"contact_email,omitempty"`
}
