package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RawProduct is a product exactly as a catalog platform returned it.
// Instances are immutable once fetched and live for one pipeline pass.
type RawProduct struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	IsPublished bool     `json:"is_published"`
}

// FirstImageURL returns the first image URL, or "" when the product has no images.
func (p RawProduct) FirstImageURL() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

// SearchRecord is the enriched, storable form of a product. It is created
// once per enrichment pass and fully replaces any prior record for the
// same product id on re-import.
type SearchRecord struct {
	TenantID           string `json:"tenant_id"`
	ProductID          string `json:"product_id"`
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description,omitempty"`
	// Text is the combined searchable text (name + description + generated
	// image description). TextChecksum is always the checksum of this exact value.
	Text             string `json:"text"`
	TextChecksum     string `json:"text_checksum"`
	FirstImageURL    string `json:"first_image_url,omitempty"`
	ImageURLChecksum string `json:"image_url_checksum,omitempty"`
	ImageDescription string `json:"image_description,omitempty"`
	IsPublished      bool   `json:"is_published"`
}

// ProductMirror is the per-tenant Mongo row tracking checksums and the
// publish flag for one imported product. It never stores the combined
// text, only its checksum, so change detection stays cheap.
type ProductMirror struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID        string             `bson:"product_id" json:"product_id"`
	ProductName      string             `bson:"product_name" json:"product_name"`
	TextChecksum     string             `bson:"text_checksum" json:"text_checksum"`
	ImageURLChecksum string             `bson:"image_url_checksum,omitempty" json:"image_url_checksum,omitempty"`
	ImageDescription string             `bson:"image_description,omitempty" json:"image_description,omitempty"`
	IsPublished      bool               `bson:"is_published" json:"is_published"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
