package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eveternet/styleseeker-worker/internal/logger"
	"github.com/eveternet/styleseeker-worker/models"
)

const shopifyAPIVersion = "2024-01"

// ShopifyClient pulls products from the Shopify Admin REST API using
// since_id cursor pagination.
type ShopifyClient struct {
	creds      Credentials
	pageSize   int
	httpClient *http.Client
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyProduct struct {
	ID       int64          `json:"id"`
	Title    string         `json:"title"`
	BodyHTML string         `json:"body_html"`
	Status   string         `json:"status"`
	Images   []shopifyImage `json:"images"`
}

type shopifyProductsResponse struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProductResponse struct {
	Product *shopifyProduct `json:"product"`
}

func NewShopifyClient(creds Credentials) *ShopifyClient {
	return &ShopifyClient{
		creds:    creds,
		pageSize: 250, // Shopify's maximum per page
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *ShopifyClient) Init(ctx context.Context) error {
	if c.creds.StoreURL == "" || c.creds.APIKey == "" {
		return fmt.Errorf("%w: shopify requires store URL and access token", ErrMissingCredentials)
	}
	return nil
}

func (c *ShopifyClient) FetchAll(ctx context.Context) ([]models.RawProduct, error) {
	var all []models.RawProduct
	sinceID := int64(0)

	for {
		url := fmt.Sprintf("%s/admin/api/%s/products.json?limit=%d&since_id=%d",
			strings.TrimRight(c.creds.StoreURL, "/"), shopifyAPIVersion, c.pageSize, sinceID)

		var page shopifyProductsResponse
		if err := c.getJSON(ctx, url, &page); err != nil {
			if len(all) == 0 {
				return nil, fmt.Errorf("shopify product fetch failed: %w", err)
			}
			// Cursor pagination cannot skip past a broken page; keep what we have.
			logger.Error("Shopify page fetch failed, continuing with fetched products",
				"since_id", sinceID, "fetched", len(all), "error", err)
			break
		}

		for _, sp := range page.Products {
			all = append(all, sp.toRawProduct())
			if sp.ID > sinceID {
				sinceID = sp.ID
			}
		}

		if len(page.Products) < c.pageSize {
			break
		}
	}

	return all, nil
}

func (c *ShopifyClient) FetchByID(ctx context.Context, id int64) (*models.RawProduct, error) {
	url := fmt.Sprintf("%s/admin/api/%s/products/%d.json",
		strings.TrimRight(c.creds.StoreURL, "/"), shopifyAPIVersion, id)

	var resp shopifyProductResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Product == nil {
		return nil, fmt.Errorf("%w: shopify id %d", ErrProductNotFound, id)
	}

	p := resp.Product.toRawProduct()
	return &p, nil
}

func (c *ShopifyClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shopify returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func (sp shopifyProduct) toRawProduct() models.RawProduct {
	images := make([]string, 0, len(sp.Images))
	for _, img := range sp.Images {
		if img.Src != "" {
			images = append(images, img.Src)
		}
	}

	return models.RawProduct{
		ID:          sp.ID,
		Name:        sp.Title,
		Description: htmlToText(sp.BodyHTML),
		ImageURLs:   images,
		IsPublished: sp.Status == "active",
	}
}
