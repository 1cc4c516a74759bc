// Package discovery resolves logical operations to absolute URLs by reading
// the capability (OpenAPI) documents of configured downstream services.
//
// An EndpointCache sweeps every service in its Config, keeps the discovered
// path templates in a registry that is swapped wholesale on each refresh,
// and re-sweeps in the background until stopped:
//
//	table := discovery.NewAddressTable(cfg.Addresses, discovery.DefaultOpenAPIPath)
//	cache := discovery.NewEndpointCache(cfg.Discovery, table, discovery.NewOpenAPIFetcher(client))
//	defer cache.Stop(ctx)
//
//	u, err := cache.Lookup(ctx, "GetPersonById", "")
//	if u == nil && err == nil {
//		// no service advertises the operation
//	}
package discovery
