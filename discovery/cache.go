package discovery

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MrEdHardy/schleuben/errors"
	"github.com/MrEdHardy/schleuben/logger"
	"github.com/MrEdHardy/schleuben/observability"
)

// Entry is one discovered path template.
type Entry struct {
	// Key is the registry key: the template, or "<service>_<template>" in a
	// role-tagged cache.
	Key string `json:"key"`
	// Service is the logical service that advertised the template.
	Service string `json:"service"`
	// Template is the relative path template, e.g. "/people/GetPersonById/{id}".
	Template string `json:"template"`
}

// Option customises an EndpointCache.
type Option func(*EndpointCache)

// WithLogger sets the cache logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *EndpointCache) { c.log = log }
}

// WithMetrics records sweeps on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *EndpointCache) { c.metrics = m }
}

// EndpointCache answers which absolute URL serves a logical operation,
// keeping a periodically refreshed copy of the downstream capability
// documents. Each consumer owns its own cache.
type EndpointCache struct {
	cfg     Config
	fetcher CapabilityFetcher
	log     *logger.Logger
	metrics *observability.Metrics

	// sweep serialises Initialize and Refresh; acquiring it honours ctx.
	sweep *semaphore.Weighted

	mu            sync.RWMutex
	addresses     *AddressTable
	entries       map[string]Entry
	keys          []string
	initialized   bool
	lastRefreshed time.Time
	lastErr       error

	life        sync.Mutex
	loopStarted bool
	stopped     bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewEndpointCache creates an empty cache. Nothing is fetched until
// Initialize, the first Lookup, or Start with WarmUp set.
func NewEndpointCache(cfg Config, addresses *AddressTable, fetcher CapabilityFetcher, opts ...Option) *EndpointCache {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &EndpointCache{
		cfg:       cfg,
		fetcher:   fetcher,
		log:       logger.Nop(),
		sweep:     semaphore.NewWeighted(1),
		addresses: addresses,
		entries:   map[string]Entry{},
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("discovery." + cfg.Name)
	return c
}

// Initialize performs the first capability sweep and starts the background
// refresh. It returns immediately once the cache has been initialized;
// concurrent callers wait for the single sweep in progress.
func (c *EndpointCache) Initialize(ctx context.Context) error {
	if c.Initialized() {
		return nil
	}
	if err := c.sweep.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sweep.Release(1)

	if c.Initialized() {
		return nil
	}

	c.log.Info("Initializing endpoints", logger.Fields("services", c.cfg.Services))
	entries, err := c.fetchAll(ctx)
	if err != nil {
		c.log.Error("Failed to initialize endpoints", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	c.swap(entries)
	c.startRefreshLoop()
	return nil
}

// Refresh re-sweeps every service and replaces the registry wholesale. On
// failure the current registry is kept and the error returned. A successful
// Refresh of an empty cache counts as its initialization.
func (c *EndpointCache) Refresh(ctx context.Context) error {
	if err := c.sweep.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sweep.Release(1)

	entries, err := c.fetchAll(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}
	c.swap(entries)
	c.startRefreshLoop()
	return nil
}

// Lookup resolves operation, optionally qualified by role, to an absolute
// URL. An exact registry key wins; otherwise the first key in lexicographic
// order containing both role and operation, ignoring case. No match
// returns (nil, nil). An uninitialized cache is initialized first.
func (c *EndpointCache) Lookup(ctx context.Context, operation, role string) (*url.URL, error) {
	if !c.Initialized() {
		if err := c.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	entry, ok := c.match(operation, role)
	addresses := c.addresses
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return addresses.Resolve(entry.Service, entry.Template)
}

// match must be called with mu held.
func (c *EndpointCache) match(operation, role string) (Entry, bool) {
	prefix := ""
	if role != "" {
		prefix = role + "_"
	}
	for _, key := range []string{prefix + operation, prefix + "/" + strings.TrimPrefix(operation, "/")} {
		if e, ok := c.entries[key]; ok {
			return e, true
		}
	}

	op := strings.ToLower(operation)
	r := strings.ToLower(role)
	for _, key := range c.keys {
		k := strings.ToLower(key)
		if strings.Contains(k, op) && strings.Contains(k, r) {
			return c.entries[key], true
		}
	}
	return Entry{}, false
}

// SetAddresses swaps the address table, e.g. after a configuration reload.
// Discovered templates are kept and resolve against the new addresses.
func (c *EndpointCache) SetAddresses(addresses *AddressTable) {
	c.mu.Lock()
	c.addresses = addresses
	c.mu.Unlock()
}

// Initialized reports whether a sweep has completed successfully.
func (c *EndpointCache) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// LastRefreshedAt returns when the registry was last replaced.
func (c *EndpointCache) LastRefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshed
}

// Entries returns the registry sorted by key.
func (c *EndpointCache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.entries[k])
	}
	return out
}

// fetchAll sweeps every configured service concurrently and builds a fresh
// registry. Any failure fails the whole sweep.
func (c *EndpointCache) fetchAll(ctx context.Context) (map[string]Entry, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanDiscoverySweep,
		attribute.StringSlice(observability.AttrService, c.cfg.Services),
	)

	c.mu.RLock()
	addresses := c.addresses
	c.mu.RUnlock()

	results := make([][]string, len(c.cfg.Services))
	g, gctx := errgroup.WithContext(ctx)
	for i, service := range c.cfg.Services {
		g.Go(func() error {
			uri, err := addresses.CapabilityURI(service)
			if err != nil {
				return err
			}
			paths, err := c.fetchService(gctx, service, uri)
			if err != nil {
				return errors.Discovery(service, err)
			}
			results[i] = paths
			return nil
		})
	}
	err := g.Wait()

	entries := make(map[string]Entry)
	if err == nil {
		for i, service := range c.cfg.Services {
			for _, p := range results[i] {
				key := p
				if c.cfg.RoleTagged {
					key = service + "_" + p
				}
				entries[key] = Entry{Key: key, Service: service, Template: p}
			}
		}
		span.SetAttributes(attribute.Int(observability.AttrEntries, len(entries)))
	}

	c.metrics.RecordSweep(ctx, c.cfg.Name, len(entries), err)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *EndpointCache) fetchService(ctx context.Context, service string, uri *url.URL) ([]string, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCapabilityFetch,
		attribute.String(observability.AttrService, service),
		attribute.String(observability.AttrHTTPURL, uri.String()),
	)
	paths, err := c.fetcher.Fetch(ctx, uri)
	observability.EndSpan(span, err)
	return paths, err
}

func (c *EndpointCache) swap(entries map[string]Entry) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	c.mu.Lock()
	c.entries = entries
	c.keys = keys
	c.initialized = true
	c.lastRefreshed = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	c.log.Debug("Endpoints updated", logger.Fields(logger.FieldEntries, len(keys)))
}

func (c *EndpointCache) startRefreshLoop() {
	c.life.Lock()
	defer c.life.Unlock()
	if c.loopStarted || c.stopped {
		return
	}
	c.loopStarted = true
	c.wg.Add(1)
	go c.refreshLoop()
}

func (c *EndpointCache) refreshLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.log.Info("Refreshing endpoints")
			if err := c.Refresh(c.ctx); err != nil {
				if c.ctx.Err() != nil {
					return
				}
				c.log.Error("Failed to refresh endpoints", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}
}
