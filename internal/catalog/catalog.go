package catalog

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/cache"
	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/repository"
	"golang.org/x/sync/singleflight"
)

const defaultLoadTimeout = 10 * time.Second

// Catalog serves batch product lookups from the cache first and the product
// store for whatever missed. A nil cache disables caching.
type Catalog struct {
	repo    repository.ProductRepository
	cache   cache.ProductCache
	logger  *slog.Logger
	sfg     singleflight.Group
	timeout time.Duration
}

func New(repo repository.ProductRepository, c cache.ProductCache, logger *slog.Logger) *Catalog {
	return &Catalog{
		repo:    repo,
		cache:   c,
		logger:  logger,
		timeout: defaultLoadTimeout,
	}
}

func (c *Catalog) ProductsByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	ids = uniqueSorted(ids)
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	// identical concurrent lookups share one load, bounded by c.timeout
	// rather than by any one caller's context
	ch := c.sfg.DoChan(strings.Join(ids, ","), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.load(lctx, ids)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*domain.Product), nil
	}
}

func (c *Catalog) load(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if c.cache == nil {
		return c.repo.FindByIDs(ctx, ids)
	}

	found, missed, err := c.cache.GetMany(ctx, ids)
	if err != nil {
		c.logger.WarnContext(ctx, "product cache get failed", slog.Any("error", err))
		found, missed = map[string]*domain.Product{}, ids
	}

	products := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			products = append(products, p)
		}
	}
	if len(missed) == 0 {
		return products, nil
	}

	fetched, err := c.repo.FindByIDs(ctx, missed)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetMany(ctx, fetched); err != nil {
		c.logger.WarnContext(ctx, "product cache set failed", slog.Any("error", err))
	}

	return append(products, fetched...), nil
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
