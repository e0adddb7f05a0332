package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eveternet/styleseeker-worker/models"
)

// PineconeIndex talks to a Pinecone-compatible index with integrated text
// embedding over its REST data plane.
type PineconeIndex struct {
	Host       string
	APIKey     string
	HTTPClient *http.Client
}

func NewPineconeIndex(host, apiKey string) *PineconeIndex {
	return &PineconeIndex{
		Host:   strings.TrimRight(host, "/"),
		APIKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type upsertRecord struct {
	ID          string `json:"_id"`
	Text        string `json:"text"`
	ProductName string `json:"product_name"`
	IsPublished bool   `json:"is_published"`
}

type upsertRequest struct {
	Records []upsertRecord `json:"records"`
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

type updateRequest struct {
	ID          string         `json:"id"`
	SetMetadata map[string]any `json:"setMetadata"`
}

func (p *PineconeIndex) UpsertBatch(ctx context.Context, namespace string, records []models.SearchRecord) error {
	if len(records) == 0 {
		return nil
	}

	payload := upsertRequest{Records: make([]upsertRecord, 0, len(records))}
	for _, rec := range records {
		payload.Records = append(payload.Records, upsertRecord{
			ID:          rec.ProductID,
			Text:        rec.Text,
			ProductName: rec.ProductName,
			IsPublished: rec.IsPublished,
		})
	}

	url := fmt.Sprintf("%s/records/namespaces/%s/upsert", p.Host, namespace)
	return p.post(ctx, url, payload)
}

func (p *PineconeIndex) DeleteOne(ctx context.Context, namespace, id string) error {
	url := fmt.Sprintf("%s/records/namespaces/%s/delete", p.Host, namespace)
	return p.post(ctx, url, deleteRequest{IDs: []string{id}})
}

func (p *PineconeIndex) UpdateMetadata(ctx context.Context, namespace, id string, fields map[string]any) error {
	url := fmt.Sprintf("%s/records/namespaces/%s/update", p.Host, namespace)
	return p.post(ctx, url, updateRequest{ID: id, SetMetadata: fields})
}

func (p *PineconeIndex) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Api-Key", p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vector index returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
