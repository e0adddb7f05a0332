package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eveternet/styleseeker-worker/models"
)

var (
	ErrUnknownPlatform    = errors.New("unknown catalog platform")
	ErrMissingCredentials = errors.New("missing catalog credentials")
	ErrProductNotFound    = errors.New("product not found")
)

// Credentials holds a tenant's merchant-platform access configuration.
type Credentials struct {
	StoreURL  string
	APIKey    string
	APISecret string
}

// Source fetches a merchant's product catalog. One implementation exists
// per merchant platform. FetchAll handles pagination internally; a single
// failed page is logged and skipped, the remaining pages still contribute.
type Source interface {
	// Init validates credentials. It fails when the tenant's merchant
	// configuration is absent or unusable.
	Init(ctx context.Context) error
	FetchAll(ctx context.Context) ([]models.RawProduct, error)
}

// SingleFetcher is implemented by sources that can look up one product by
// its platform id. Webhook-driven publish flows need it for products that
// were never imported.
type SingleFetcher interface {
	FetchByID(ctx context.Context, id int64) (*models.RawProduct, error)
}

type constructor func(Credentials) Source

// registry maps platform ids to source constructors. Resolution happens
// once at orchestration start; unknown ids fail fast as a configuration error.
var registry = map[string]constructor{
	"shopify":     func(c Credentials) Source { return NewShopifyClient(c) },
	"woocommerce": func(c Credentials) Source { return NewWooCommerceClient(c) },
}

// Resolve returns the catalog source for a tenant's configured platform id.
func Resolve(platform string, creds Credentials) (Source, error) {
	build, ok := registry[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	return build(creds), nil
}

// Platforms lists the registered platform ids.
func Platforms() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}

// ParseProductID converts the string form used in routes and mirror rows
// back to the platform's numeric id.
func ParseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid product id %q: %v", s, err)
	}
	return id, nil
}

// htmlToText extracts the visible text from platform description HTML and
// collapses whitespace. Entities are decoded and stray angle brackets in
// prose survive, which a naive tag scan gets wrong.
func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
