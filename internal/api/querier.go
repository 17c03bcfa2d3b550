package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"mfDealFlow/internal/app"
	"mfDealFlow/internal/domain"
)

// Querier is the read side of the pipeline.
type Querier interface {
	Query(ctx context.Context, opts app.QueryOptions) (*domain.QueryResult, error)
	Summary(ctx context.Context, opts app.QueryOptions) (*domain.FlowSummary, error)
}

// Ingester runs one ingestion.
type Ingester interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// CachedQuerier memoizes query results for a short TTL. Errors are never
// cached. Invalidate must be called after the store changes.
type CachedQuerier struct {
	next  Querier
	cache *cache.Cache
}

// NewCachedQuerier wraps next. A non-positive ttl disables caching by
// returning an uncached pass-through.
func NewCachedQuerier(next Querier, ttl time.Duration) *CachedQuerier {
	if ttl <= 0 {
		return &CachedQuerier{next: next}
	}
	return &CachedQuerier{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedQuerier) Query(ctx context.Context, opts app.QueryOptions) (*domain.QueryResult, error) {
	key := cacheKey("query", opts)
	if c.cache != nil {
		if v, found := c.cache.Get(key); found {
			return v.(*domain.QueryResult), nil
		}
	}
	res, err := c.next.Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.SetDefault(key, res)
	}
	return res, nil
}

func (c *CachedQuerier) Summary(ctx context.Context, opts app.QueryOptions) (*domain.FlowSummary, error) {
	key := cacheKey("summary", opts)
	if c.cache != nil {
		if v, found := c.cache.Get(key); found {
			return v.(*domain.FlowSummary), nil
		}
	}
	res, err := c.next.Summary(ctx, opts)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.SetDefault(key, res)
	}
	return res, nil
}

// Invalidate drops every cached entry.
func (c *CachedQuerier) Invalidate() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

func cacheKey(kind string, opts app.QueryOptions) string {
	return fmt.Sprintf("%s|%s|%s|%t|%s", kind,
		dateParam(opts.Range.Start), dateParam(opts.Range.End),
		opts.ActionableOnly, strings.ToUpper(strings.TrimSpace(opts.Symbol)))
}
