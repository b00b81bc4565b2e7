package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/metrics"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
)

type pendingQueue interface {
	PeekAll(ctx context.Context) ([]models.PosTransaction, error)
	MarkCompleted(ctx context.Context, txnID string, syncedAt time.Time) error
	Count(ctx context.Context) (int64, error)
}

type remoteTransactions interface {
	PutIfAbsent(ctx context.Context, txn *models.PosTransaction) (bool, error)
}

type remoteBaskets interface {
	Remove(ctx context.Context, basketKey string) error
}

type basketCache interface {
	Remove(ctx context.Context, basketKey string) error
}

// Failure records one transaction left pending after a drain pass.
type Failure struct {
	TxnID string
	Err   error
}

// Report summarizes a drain pass. Outcome distinguishes an empty queue from
// a pass that tried and failed, so callers can tell "idle" from "stuck".
type Report struct {
	Synced   int
	Failures []Failure
	Outcome  enums.SyncOutcome
}

// Err aggregates the per-transaction failures, nil when everything drained.
func (r *Report) Err() error {
	var errs error
	for _, f := range r.Failures {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.TxnID, f.Err))
	}
	return errs
}

// Engine drains the pending partition to the remote transaction store.
// Passes are serialized: a pass triggered while another is running is
// rejected rather than interleaved.
type Engine struct {
	queue         pendingQueue
	remote        remoteTransactions
	remoteBaskets remoteBaskets
	basketCache   basketCache
	metrics       *metrics.SyncMetrics
	log           *logger.Logger
	cfg           config.SyncConfig
	now           func() time.Time

	running atomic.Bool
}

// NewEngine builds the sync reconciliation engine.
func NewEngine(
	queue pendingQueue,
	remote remoteTransactions,
	remoteBaskets remoteBaskets,
	basketCache basketCache,
	syncMetrics *metrics.SyncMetrics,
	log *logger.Logger,
	cfg config.SyncConfig,
) (*Engine, error) {
	if queue == nil {
		return nil, fmt.Errorf("pending queue required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote transaction store required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		queue:         queue,
		remote:        remote,
		remoteBaskets: remoteBaskets,
		basketCache:   basketCache,
		metrics:       syncMetrics,
		log:           log,
		cfg:           cfg,
		now:           time.Now,
	}, nil
}

// SyncAll drains the pending partition oldest first, one transaction at a
// time so a single bad record never blocks the rest. Each remote write uses
// the transaction id as an idempotency key, so re-attempting a record whose
// write landed on a previous pass does not double-count. Failed records stay
// pending and are reported in aggregate.
func (e *Engine) SyncAll(ctx context.Context) (*Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeSyncInProgress, "a sync pass is already running")
	}
	defer e.running.Store(false)

	started := e.now()
	defer func() {
		e.metrics.ObservePass(time.Since(started))
	}()

	rows, err := e.queue.PeekAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading pending partition")
	}
	if len(rows) == 0 {
		e.metrics.SetPending(0)
		return &Report{Outcome: enums.SyncOutcomeIdle}, nil
	}

	report := &Report{}
	for _, row := range rows {
		if err := e.syncOne(ctx, row); err != nil {
			e.metrics.IncFailed()
			report.Failures = append(report.Failures, Failure{TxnID: row.TxnID, Err: err})
			e.log.Warn(e.log.WithTransactionID(ctx, row.TxnID),
				fmt.Sprintf("transaction left pending: %v", err))
			continue
		}
		e.metrics.IncSynced()
		report.Synced++
	}

	if pending, err := e.queue.Count(ctx); err == nil {
		e.metrics.SetPending(int(pending))
	}

	switch {
	case len(report.Failures) == 0:
		report.Outcome = enums.SyncOutcomeDrained
	case report.Synced == 0:
		report.Outcome = enums.SyncOutcomeAllFailed
	default:
		report.Outcome = enums.SyncOutcomePartial
	}
	e.log.Info(e.log.WithFields(ctx, map[string]any{
		"synced":  report.Synced,
		"failed":  len(report.Failures),
		"outcome": report.Outcome.String(),
	}), "sync pass finished")
	return report, nil
}

// syncOne pushes a single record remote-first, then flips the local row to
// completed. A crash between the two leaves the row pending; the idempotent
// remote write absorbs the replay on the next pass.
func (e *Engine) syncOne(ctx context.Context, row models.PosTransaction) error {
	backoff := retry.WithMaxRetries(e.cfg.RetryAttempts, retry.NewExponential(e.retryBase()))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := e.remote.PutIfAbsent(ctx, &row)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remote write: %w", err)
	}

	if err := e.queue.MarkCompleted(ctx, row.TxnID, e.now().UTC()); err != nil {
		return fmt.Errorf("completing local row: %w", err)
	}

	e.reconcileBasket(ctx, row)
	return nil
}

// reconcileBasket retires the originating pending basket once its sale is
// acknowledged. Best effort: the sale record is already safe, and both
// removals are idempotent, so failures only log.
func (e *Engine) reconcileBasket(ctx context.Context, row models.PosTransaction) {
	if row.BasketKey == nil || *row.BasketKey == "" {
		return
	}
	key := *row.BasketKey
	if e.remoteBaskets != nil {
		if err := e.remoteBaskets.Remove(ctx, key); err != nil {
			e.log.Warn(ctx, fmt.Sprintf("removing remote basket %s: %v", key, err))
		}
	}
	if e.basketCache != nil {
		if err := e.basketCache.Remove(ctx, key); err != nil {
			e.log.Warn(ctx, fmt.Sprintf("removing cached basket %s: %v", key, err))
		}
	}
}

func (e *Engine) retryBase() time.Duration {
	if e.cfg.RetryBase > 0 {
		return e.cfg.RetryBase
	}
	return 250 * time.Millisecond
}
