package discovery

import (
	"context"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/MrEdHardy/schleuben/httpclient"
)

// CapabilityFetcher returns the path templates a capability document
// declares. Implementations do not retry.
type CapabilityFetcher interface {
	Fetch(ctx context.Context, uri *url.URL) ([]string, error)
}

// FetcherFunc adapts a function to CapabilityFetcher.
type FetcherFunc func(ctx context.Context, uri *url.URL) ([]string, error)

// Fetch implements CapabilityFetcher.
func (f FetcherFunc) Fetch(ctx context.Context, uri *url.URL) ([]string, error) {
	return f(ctx, uri)
}

// OpenAPIFetcher downloads OpenAPI documents through an httpclient.Client,
// so the fetch itself runs through the client's resilience pipeline.
type OpenAPIFetcher struct {
	client *httpclient.Client
}

// NewOpenAPIFetcher returns a fetcher using client.
func NewOpenAPIFetcher(client *httpclient.Client) *OpenAPIFetcher {
	return &OpenAPIFetcher{client: client}
}

// Fetch implements CapabilityFetcher.
func (f *OpenAPIFetcher) Fetch(ctx context.Context, uri *url.URL) ([]string, error) {
	resp, err := f.client.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri.Redacted(), err)
	}
	paths, err := ParsePaths(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", uri.Redacted(), err)
	}
	return paths, nil
}

// ParsePaths returns the keys of the top-level "paths" mapping of an
// OpenAPI document, in document order. JSON documents parse as YAML.
func ParsePaths(doc []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("empty capability document")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("capability document is not an object")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "paths" {
			continue
		}
		paths := top.Content[i+1]
		if paths.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("capability document \"paths\" is not an object")
		}
		keys := make([]string, 0, len(paths.Content)/2)
		for j := 0; j+1 < len(paths.Content); j += 2 {
			keys = append(keys, paths.Content[j].Value)
		}
		return keys, nil
	}
	return nil, fmt.Errorf("capability document has no \"paths\"")
}
