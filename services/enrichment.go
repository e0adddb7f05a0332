package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/eveternet/styleseeker-worker/internal/ai"
	"github.com/eveternet/styleseeker-worker/internal/database"
	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/models"
	"github.com/eveternet/styleseeker-worker/utils"
)

// ErrInvalidProduct marks a structurally unusable catalog product. This is
// a caller error: the product is skipped, never the chunk.
var ErrInvalidProduct = errors.New("product is missing id or name")

// Enricher turns one raw catalog product into a storable search record.
// Expensive image descriptions are reused from the mirror whenever the
// product's first-image checksum matches a prior import. The provider
// signals expected no-description outcomes (content filtering, unusable
// images) with an empty string; those never fail a record.
type Enricher struct {
	provider ai.DescriptionProvider
	mirror   database.MirrorStore
}

func NewEnricher(provider ai.DescriptionProvider, mirror database.MirrorStore) *Enricher {
	return &Enricher{
		provider: provider,
		mirror:   mirror,
	}
}

// Enrich processes a single product, resolving the description cache with
// one mirror lookup. Used by the webhook-driven single-product path, where
// a provider outage degrades the record instead of failing the request.
func (e *Enricher) Enrich(ctx context.Context, product models.RawProduct, tenantID string) (*models.SearchRecord, error) {
	if product.ID == 0 || product.Name == "" {
		return nil, ErrInvalidProduct
	}

	firstImage := product.FirstImageURL()
	imageChecksum := ""
	if firstImage != "" {
		imageChecksum = utils.Checksum(firstImage)
	}

	imageDescription := ""
	if imageChecksum != "" {
		cache, err := e.mirror.CachedDescriptions(ctx, tenantID, []string{imageChecksum})
		if err != nil {
			// A failed lookup only costs an extra AI call; keep going.
			logger.Warn("Description cache lookup failed",
				"tenant_id", tenantID, "product_id", product.ID, "error", err)
			cache = map[string]string{}
		}

		if cached := cache[imageChecksum]; cached != "" {
			imageDescription = cached
		} else {
			generated, err := e.provider.Describe(ctx, product.ImageURLs, product.Name)
			if err != nil {
				// Partial degradation: the record still ships, just without
				// an image description.
				logger.Error("Image description generation failed",
					"tenant_id", tenantID, "product_id", product.ID, "error", err)
			} else {
				imageDescription = utils.NormalizeDescription(generated)
			}
		}
	}

	return e.buildRecord(product, tenantID, firstImage, imageChecksum, imageDescription), nil
}

// EnrichWithCache is identical to Enrich but uses a cache the caller
// already resolved, letting the orchestrator batch-check a whole chunk in
// one query instead of N lookups. A provider transport error fails the
// record so the orchestrator drops just this product from its chunk.
func (e *Enricher) EnrichWithCache(ctx context.Context, product models.RawProduct, tenantID string, cache map[string]string) (*models.SearchRecord, error) {
	if product.ID == 0 || product.Name == "" {
		return nil, ErrInvalidProduct
	}

	firstImage := product.FirstImageURL()
	imageChecksum := ""
	if firstImage != "" {
		imageChecksum = utils.Checksum(firstImage)
	}

	imageDescription := ""
	if imageChecksum != "" {
		if cached := cache[imageChecksum]; cached != "" {
			// Cached descriptions were normalized when first stored; reuse verbatim.
			imageDescription = cached
		} else {
			generated, err := e.provider.Describe(ctx, product.ImageURLs, product.Name)
			if err != nil {
				return nil, fmt.Errorf("image description generation failed for product %d: %w", product.ID, err)
			}
			imageDescription = utils.NormalizeDescription(generated)
		}
	}

	return e.buildRecord(product, tenantID, firstImage, imageChecksum, imageDescription), nil
}

// buildRecord combines base text (name + description) with the image
// description and computes the checksums stored alongside the exact text.
func (e *Enricher) buildRecord(product models.RawProduct, tenantID, firstImage, imageChecksum, imageDescription string) *models.SearchRecord {
	text := product.Name
	if product.Description != "" {
		text += " " + product.Description
	}
	if imageDescription != "" {
		text += "\n" + imageDescription
	}

	return &models.SearchRecord{
		TenantID:           tenantID,
		ProductID:          strconv.FormatInt(product.ID, 10),
		ProductName:        product.Name,
		ProductDescription: product.Description,
		Text:               text,
		TextChecksum:       utils.Checksum(text),
		FirstImageURL:      firstImage,
		ImageURLChecksum:   imageChecksum,
		ImageDescription:   imageDescription,
		IsPublished:        product.IsPublished,
	}
}
