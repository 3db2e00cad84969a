package service

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

type quantitySummer interface {
	SumQuantityByProduct(ctx context.Context, productID int64, window models.DateRange) (int64, error)
}

type suppliedCounter interface {
	CountSuppliedProducts(ctx context.Context, supplierID int64) (int64, error)
}

// LoaderConfig bounds the per-id lookups issued while building one report.
type LoaderConfig struct {
	MaxConcurrency int
	BatchWait      time.Duration
	BatchCapacity  int
}

func (c LoaderConfig) withDefaults() LoaderConfig {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	if c.BatchWait <= 0 {
		c.BatchWait = 2 * time.Millisecond
	}
	if c.BatchCapacity <= 0 {
		c.BatchCapacity = 100
	}
	return c
}

// reportLoaders are request scoped: the window is baked into the batch function
// and the loader cache must not outlive the run.
type reportLoaders struct {
	soldQuantity  *dataloader.Loader[int64, int64]
	suppliedCount *dataloader.Loader[int64, int64]
}

func newReportLoaders(orders quantitySummer, suppliers suppliedCounter, window models.DateRange, cfg LoaderConfig) *reportLoaders {
	cfg = cfg.withDefaults()
	loaders := &reportLoaders{}
	if orders != nil {
		loaders.soldQuantity = newCountLoader(cfg, func(ctx context.Context, productID int64) (int64, error) {
			return orders.SumQuantityByProduct(ctx, productID, window)
		})
	}
	if suppliers != nil {
		loaders.suppliedCount = newCountLoader(cfg, suppliers.CountSuppliedProducts)
	}
	return loaders
}

func newCountLoader(cfg LoaderConfig, fetch func(context.Context, int64) (int64, error)) *dataloader.Loader[int64, int64] {
	batch := func(ctx context.Context, keys []int64) []*dataloader.Result[int64] {
		if err := ctx.Err(); err != nil {
			return handleError[int64](len(keys), err)
		}
		results := make([]*dataloader.Result[int64], len(keys))
		var g errgroup.Group
		g.SetLimit(cfg.MaxConcurrency)
		for i, key := range keys {
			i, key := i, key
			g.Go(func() error {
				value, err := fetch(ctx, key)
				results[i] = &dataloader.Result[int64]{Data: value, Error: err}
				return nil
			})
		}
		_ = g.Wait()
		return results
	}
	return dataloader.NewBatchedLoader(batch,
		dataloader.WithWait[int64, int64](cfg.BatchWait),
		dataloader.WithBatchCapacity[int64, int64](cfg.BatchCapacity),
	)
}

func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// loadAll queues every key before resolving any thunk so they share batches.
// values[i] and errs[i] belong to keys[i].
func loadAll(ctx context.Context, loader *dataloader.Loader[int64, int64], keys []int64) ([]int64, []error) {
	thunks := make([]dataloader.Thunk[int64], len(keys))
	for i, key := range keys {
		thunks[i] = loader.Load(ctx, key)
	}
	values := make([]int64, len(keys))
	errs := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errs[i] = thunk()
	}
	return values, errs
}
