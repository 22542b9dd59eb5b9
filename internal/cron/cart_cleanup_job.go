package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/checkout"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

const (
	cartCleanupJobName      = "cart_cleanup"
	cleanupRoot             = "cart_cleanups"
	defaultCleanupBatchSize = 100
	maxCleanupAttempts      = 10
)

type processedRecorder interface {
	AddProcessed(job, outcome string, n int)
}

// CartCleanupJobParams configure the partial-commit sweeper.
type CartCleanupJobParams struct {
	Logger    *logger.Logger
	Store     store.Store
	Metrics   processedRecorder
	BatchSize int
}

// CartCleanupJob finishes carts left behind when an order was stored but
// its cart delete failed. Only lines still holding the ordered quantity are
// removed; anything the customer changed since is kept.
type CartCleanupJob struct {
	logg      *logger.Logger
	store     store.Store
	carts     *cart.Repository
	metrics   processedRecorder
	batchSize int
	now       func() time.Time
}

func NewCartCleanupJob(params CartCleanupJobParams) (*CartCleanupJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultCleanupBatchSize
	}
	return &CartCleanupJob{
		logg:      params.Logger,
		store:     params.Store,
		carts:     cart.NewRepository(params.Store),
		metrics:   params.Metrics,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

func (j *CartCleanupJob) Name() string { return cartCleanupJobName }

func (j *CartCleanupJob) Run(ctx context.Context) error {
	// Each tick takes at most batchSize records; the rest wait for later ticks.
	orderIDs, err := j.store.ChildKeys(ctx, cleanupRoot, j.batchSize)
	if err != nil {
		return fmt.Errorf("list cart cleanups: %w", err)
	}

	var errs error
	counts := map[string]int{}
	for _, orderID := range orderIDs {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		rec, err := j.store.Get(ctx, checkout.CleanupPath(orderID))
		if err != nil {
			counts["failed"]++
			errs = multierr.Append(errs, fmt.Errorf("load cart cleanup %s: %w", orderID, err))
			continue
		}
		outcome, err := j.process(ctx, rec)
		counts[outcome]++
		errs = multierr.Append(errs, err)
	}

	if j.metrics != nil {
		for outcome, n := range counts {
			j.metrics.AddProcessed(cartCleanupJobName, outcome, n)
		}
	}
	if len(orderIDs) > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"records": len(orderIDs),
			"cleaned": counts["cleaned"],
			"failed":  counts["failed"],
			"dropped": counts["dropped"],
		}), "cron.cart_cleanup_swept")
	}
	return errs
}

func (j *CartCleanupJob) process(ctx context.Context, rec store.Snapshot) (string, error) {
	orderID := rec.Key()
	var record checkout.CleanupRecord
	if err := rec.Decode(&record); err != nil || record.UserID == "" || record.ShopID == "" {
		j.logg.Warn(j.logg.WithOrderID(ctx, orderID), "cron.cart_cleanup_malformed")
		if rmErr := j.store.Remove(ctx, checkout.CleanupPath(orderID)); rmErr != nil {
			return "failed", fmt.Errorf("remove malformed cleanup %s: %w", orderID, rmErr)
		}
		return "dropped", nil
	}

	if err := j.reconcile(ctx, record); err != nil {
		return "failed", j.retryLater(ctx, orderID, record, err)
	}
	if err := j.store.Remove(ctx, checkout.CleanupPath(orderID)); err != nil {
		return "failed", fmt.Errorf("remove cleanup %s: %w", orderID, err)
	}
	return "cleaned", nil
}

func (j *CartCleanupJob) reconcile(ctx context.Context, record checkout.CleanupRecord) error {
	current, err := j.carts.Get(ctx, record.UserID, record.ShopID)
	if err != nil {
		return err
	}
	if current.IsEmpty() {
		return j.carts.Delete(ctx, record.UserID, record.ShopID)
	}

	var stale []string
	for productID, line := range current.Lines {
		ordered, ok := record.Items[productID]
		if ok && line.Quantity <= ordered {
			stale = append(stale, productID)
		}
	}
	switch {
	case len(stale) == len(current.Lines):
		return j.carts.Delete(ctx, record.UserID, record.ShopID)
	case len(stale) > 0:
		return j.carts.RemoveLines(ctx, record.UserID, record.ShopID, stale, j.now())
	}
	return nil
}

// retryLater bumps the attempt counter; a record that keeps failing is
// dropped so one broken cart cannot stall the queue forever.
func (j *CartCleanupJob) retryLater(ctx context.Context, orderID string, record checkout.CleanupRecord, cause error) error {
	ctx = j.logg.WithFields(ctx, map[string]any{
		"order_id": orderID,
		"user_id":  record.UserID,
		"attempts": record.Attempts + 1,
	})
	errs := fmt.Errorf("cleanup %s: %w", orderID, cause)
	if record.Attempts+1 >= maxCleanupAttempts {
		j.logg.Error(ctx, "cron.cart_cleanup_abandoned", cause)
		return multierr.Append(errs, j.store.Remove(ctx, checkout.CleanupPath(orderID)))
	}
	return multierr.Append(errs, j.store.Set(ctx, store.Join(checkout.CleanupPath(orderID), "attempts"), record.Attempts+1))
}
