package discovery

import (
	"net/url"
	"slices"
	"strings"

	"github.com/MrEdHardy/schleuben/errors"
)

const openAPIPathSuffix = "_openapipath"

// AddressTable maps logical service names to base URIs. Names are matched
// case-insensitively since configuration keys may arrive lowercased.
// A table is immutable; hot reload builds a new one.
type AddressTable struct {
	addresses   map[string]string
	openAPIPath string
}

// NewAddressTable builds a table from the "addresses" configuration map.
// Entries named "<Service>_OpenApiPath" override defaultOpenAPIPath for
// that service.
func NewAddressTable(addresses map[string]string, defaultOpenAPIPath string) *AddressTable {
	t := &AddressTable{
		addresses:   make(map[string]string, len(addresses)),
		openAPIPath: defaultOpenAPIPath,
	}
	for name, addr := range addresses {
		t.addresses[normalize(name)] = strings.TrimSpace(addr)
	}
	return t
}

// Names returns the configured service names, sorted, without the
// capability path entries.
func (t *AddressTable) Names() []string {
	names := make([]string, 0, len(t.addresses))
	for name := range t.addresses {
		if !strings.HasSuffix(name, openAPIPathSuffix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// BaseURI returns the absolute base address of service.
func (t *AddressTable) BaseURI(service string) (*url.URL, error) {
	raw, ok := t.addresses[normalize(service)]
	if !ok || raw == "" {
		return nil, errors.Configuration(service, "no address is configured")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Configuration(service, "address is not a valid URI").WithCause(err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.Configuration(service, "address must be an absolute URI")
	}
	return u, nil
}

// OpenAPIPath returns the relative path of service's capability document.
func (t *AddressTable) OpenAPIPath(service string) (string, error) {
	key := service + "_OpenApiPath"
	if p, ok := t.addresses[normalize(key)]; ok {
		if p == "" {
			return "", errors.Configuration(key, "capability path is empty")
		}
		return p, nil
	}
	if t.openAPIPath == "" {
		return "", errors.Configuration(key, "no capability path is configured")
	}
	return t.openAPIPath, nil
}

// CapabilityURI returns the absolute URI of service's capability document.
func (t *AddressTable) CapabilityURI(service string) (*url.URL, error) {
	p, err := t.OpenAPIPath(service)
	if err != nil {
		return nil, err
	}
	return t.Resolve(service, p)
}

// Resolve joins relative onto service's base address with RFC 3986
// reference resolution.
func (t *AddressTable) Resolve(service, relative string) (*url.URL, error) {
	base, err := t.BaseURI(service)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(relative)
	if err != nil {
		return nil, errors.Configuration(service, "relative path "+relative+" is not a valid URI").WithCause(err)
	}
	return base.ResolveReference(ref), nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
