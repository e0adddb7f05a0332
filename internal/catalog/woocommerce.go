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

// WooCommerceClient pulls products from the WooCommerce REST API using
// page-number pagination with HTTP basic auth (consumer key/secret).
type WooCommerceClient struct {
	creds      Credentials
	pageSize   int
	httpClient *http.Client
}

type wooImage struct {
	Src string `json:"src"`
}

type wooProduct struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Images      []wooImage `json:"images"`
}

func NewWooCommerceClient(creds Credentials) *WooCommerceClient {
	return &WooCommerceClient{
		creds:    creds,
		pageSize: 100, // WooCommerce's maximum per_page
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *WooCommerceClient) Init(ctx context.Context) error {
	if c.creds.StoreURL == "" || c.creds.APIKey == "" || c.creds.APISecret == "" {
		return fmt.Errorf("%w: woocommerce requires store URL, consumer key and consumer secret", ErrMissingCredentials)
	}
	return nil
}

func (c *WooCommerceClient) FetchAll(ctx context.Context) ([]models.RawProduct, error) {
	var all []models.RawProduct
	failedPages := 0

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/wp-json/wc/v3/products?per_page=%d&page=%d",
			strings.TrimRight(c.creds.StoreURL, "/"), c.pageSize, page)

		var products []wooProduct
		if err := c.getJSON(ctx, url, &products); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("woocommerce product fetch failed: %w", err)
			}
			logger.Error("WooCommerce page fetch failed, skipping page", "page", page, "error", err)
			failedPages++
			if failedPages >= 3 {
				// Repeated failures usually mean we ran off the end or the
				// store is down; stop rather than loop forever.
				break
			}
			continue
		}
		failedPages = 0

		for _, wp := range products {
			all = append(all, wp.toRawProduct())
		}

		if len(products) < c.pageSize {
			break
		}
	}

	return all, nil
}

func (c *WooCommerceClient) FetchByID(ctx context.Context, id int64) (*models.RawProduct, error) {
	url := fmt.Sprintf("%s/wp-json/wc/v3/products/%d",
		strings.TrimRight(c.creds.StoreURL, "/"), id)

	var wp wooProduct
	if err := c.getJSON(ctx, url, &wp); err != nil {
		return nil, err
	}
	if wp.ID == 0 {
		return nil, fmt.Errorf("%w: woocommerce id %d", ErrProductNotFound, id)
	}

	p := wp.toRawProduct()
	return &p, nil
}

func (c *WooCommerceClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.SetBasicAuth(c.creds.APIKey, c.creds.APISecret)
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
		return fmt.Errorf("woocommerce returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func (wp wooProduct) toRawProduct() models.RawProduct {
	images := make([]string, 0, len(wp.Images))
	for _, img := range wp.Images {
		if img.Src != "" {
			images = append(images, img.Src)
		}
	}

	return models.RawProduct{
		ID:          wp.ID,
		Name:        wp.Name,
		Description: htmlToText(wp.Description),
		ImageURLs:   images,
		IsPublished: wp.Status == "publish",
	}
}
