package ai

import "context"

// DescriptionProvider turns a product's images into a short textual
// description suitable for search. Implementations return an empty string
// (not an error) for expected failure modes such as content filtering or
// unusable images; errors are reserved for transport and quota problems.
type DescriptionProvider interface {
	Describe(ctx context.Context, imageURLs []string, productName string) (string, error)
}
