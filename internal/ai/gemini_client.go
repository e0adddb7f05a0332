package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"github.com/eveternet/styleseeker-worker/internal/logger"
)

const (
	// Gemini payload limits cap how many images we attach per product.
	maxImagesPerRequest = 8
	maxImageBytes       = 4 << 20 // 4MB per image

	describePrompt = "Describe the product shown in these images for a fashion search catalog. " +
		"Cover style, color, material, pattern, fit and notable details. " +
		"Product name: %s. " +
		"Respond with plain descriptive sentences only, no markdown, no preamble."
)

type GeminiClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	httpClient  *http.Client
}

type RateLimits struct {
	RPM int // Requests per minute
	RPD int // Requests per day
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, RPD: 250}
	}
}

func NewGeminiClient(apiKey, model, tier string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10+1)

	return &GeminiClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Describe generates a textual description of the product images.
// Returns "" (no error) when Gemini declines to answer or no image
// could be fetched; such products are stored without an image description.
func (gc *GeminiClient) Describe(ctx context.Context, imageURLs []string, productName string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.describe_images")
	defer span.End()

	span.SetAttributes(
		attribute.Int("gemini.image_count", len(imageURLs)),
		attribute.String("gemini.model", gc.model),
	)

	if len(imageURLs) > maxImagesPerRequest {
		imageURLs = imageURLs[:maxImagesPerRequest]
	}

	parts := make([]genai.Part, 0, len(imageURLs)+1)
	for _, url := range imageURLs {
		format, data, err := gc.fetchImage(ctx, url)
		if err != nil {
			logger.Warn("Skipping unfetchable product image", "url", url, "error", err)
			continue
		}
		parts = append(parts, genai.ImageData(format, data))
	}

	if len(parts) == 0 {
		span.SetAttributes(attribute.Bool("gemini.no_usable_images", true))
		return "", nil
	}
	parts = append(parts, genai.Text(fmt.Sprintf(describePrompt, productName)))

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.4)
		model.SetMaxOutputTokens(1024)

		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			span.SetAttributes(attribute.String("gemini.error_message", err.Error()))
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		return "", err
	}

	text := extractText(result.(*genai.GenerateContentResponse))
	span.SetAttributes(attribute.Bool("gemini.empty_response", text == ""))
	return text, nil
}

func (gc *GeminiClient) fetchImage(ctx context.Context, url string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty image body")
	}

	return imageFormat(resp.Header.Get("Content-Type"), data), data, nil
}

// imageFormat maps a Content-Type to the short format name genai expects.
func imageFormat(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	default:
		return "jpeg"
	}
}

// extractText flattens the first candidate's text parts. Content-filtered
// or empty responses yield "" so callers treat them as a cache-less product,
// not a failure.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety || candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

func (gc *GeminiClient) Close() error {
	return gc.client.Close()
}
