// Package session runs one wallet evaluation from slot acquisition to the
// persisted result.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
	"solana-wallet-lab/internal/enrichment"
	"solana-wallet-lab/internal/ingestion"
	"solana-wallet-lab/internal/matching"
	"solana-wallet-lab/internal/metrics"
	"solana-wallet-lab/internal/normalization"
	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/storage"
)

const cleanupTimeout = 30 * time.Second

// Pipeline holds the stage components bound to one slot's credentials.
type Pipeline struct {
	Ingest   *ingestion.Runner
	Metadata *enrichment.MetadataEnricher
	Cleaner  *normalization.Cleaner
	Price    *enrichment.PriceEnricher
}

// PipelineFactory builds the stage components for a slot.
type PipelineFactory func(slotID string, logger *zap.Logger) (*Pipeline, error)

// Request identifies one session run.
type Request struct {
	Wallet    string
	SessionID string
	SlotID    string // pre-assigned slot; empty means acquire one
}

// Orchestrator drives the session state machine.
type Orchestrator struct {
	slots     storage.SlotStore
	wallets   storage.WalletRegistry
	sessions  storage.SessionStore
	results   storage.ResultStore
	ledgers   storage.LedgerFactory
	pipeline  PipelineFactory
	timeout   time.Duration
	killGrace time.Duration
	exit      func(code int)
	push      func(ctx context.Context) error
	now       func() time.Time
	logger    *zap.Logger
}

// Options contains configuration for creating an Orchestrator.
type Options struct {
	Slots     storage.SlotStore
	Wallets   storage.WalletRegistry
	Sessions  storage.SessionStore
	Results   storage.ResultStore
	Ledgers   storage.LedgerFactory
	Pipeline  PipelineFactory
	Timeout   time.Duration // Default: 10m
	KillGrace time.Duration // watchdog fires at Timeout + KillGrace
	Exit      func(code int)
	Push      func(ctx context.Context) error // optional metrics push after each run
	Now       func() time.Time
	Logger    *zap.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		slots:     opts.Slots,
		wallets:   opts.Wallets,
		sessions:  opts.Sessions,
		results:   opts.Results,
		ledgers:   opts.Ledgers,
		pipeline:  opts.Pipeline,
		timeout:   timeout,
		killGrace: opts.KillGrace,
		exit:      exit,
		push:      opts.Push,
		now:       now,
		logger:    logger,
	}
}

// Outcome is the final state of a run alongside its result.
type Outcome struct {
	State  State
	Trace  []State
	Result *domain.SessionResult // nil when no result was written
}

// run is the mutable state of one session.
type run struct {
	req      Request
	slot     string
	acquired bool // slot is held by this run
	ledger   storage.Ledger
	result   *domain.SessionResult
	noResult bool // the wallet's existing result must not be overwritten
	started  time.Time
	states   *tracker
	logger   *zap.Logger
}

// Run executes one session. The slot is released, the ledger deleted and
// the terminal status written on every return path, in that order.
// Returns ErrWalletAlreadyEvaluated or storage.ErrNoSlotAvailable without
// side effects when the request is rejected before a slot is held.
func (o *Orchestrator) Run(ctx context.Context, req Request) (out Outcome, err error) {
	if req.Wallet == "" || req.SessionID == "" {
		if req.SlotID != "" {
			_ = o.slots.Release(context.WithoutCancel(ctx), req.SlotID)
		}
		return out, fmt.Errorf("%w: wallet and session id are required", storage.ErrInvalidInput)
	}

	r := &run{
		req:     req,
		slot:    req.SlotID,
		started: o.now(),
		states:  newTracker(),
		logger:  o.logger.With(zap.String("wallet", req.Wallet), zap.String("session_id", req.SessionID)),
	}
	r.result = domain.NewSessionResult(req.SessionID, req.Wallet, r.started)
	resumed := o.ledgers.Exists(req.SessionID)

	if r.slot == "" {
		if !resumed {
			evaluated, err := o.wallets.Contains(ctx, req.Wallet)
			if err != nil {
				return out, fmt.Errorf("check wallet: %w", err)
			}
			if evaluated {
				r.logger.Info("wallet-already-evaluated")
				observability.RecordSessionRequest("already_evaluated")
				return out, ErrWalletAlreadyEvaluated
			}
		}
		slot, err := o.slots.Acquire(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNoSlotAvailable) || errors.Is(err, storage.ErrLockTimeout) {
				r.logger.Info("slot-unavailable", zap.Error(err))
				observability.RecordSessionRequest("no_slot")
			}
			return out, err
		}
		r.slot = slot
		observability.RecordSessionRequest("accepted")
	}
	r.acquired = true
	r.logger = r.logger.With(zap.String("slot", r.slot))
	o.transition(r, StateSlotAcquired)

	ctx, cancel := context.WithTimeoutCause(ctx, o.timeout, ErrSessionTimeout)
	defer cancel()

	wd := ArmWatchdog(o.timeout+o.killGrace, func() { o.kill(r) })
	defer wd.Stop()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("session-panic", zap.Any("panic", p), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
		out = o.finish(ctx, r, err)
	}()

	return out, o.execute(ctx, r, resumed)
}

// execute runs the pipeline stages in order.
func (o *Orchestrator) execute(ctx context.Context, r *run, resumed bool) error {
	if err := o.ensureSession(ctx, r); err != nil {
		return err
	}

	reserved, err := o.wallets.CheckAndReserve(ctx, r.req.Wallet)
	if err != nil {
		return o.stageErr(ctx, "reserve wallet", err)
	}
	if !reserved {
		if !resumed {
			r.noResult = true
			r.logger.Info("wallet-already-evaluated")
			return ErrWalletAlreadyEvaluated
		}
		r.logger.Info("session-resumed")
	}

	pipe, err := o.pipeline(r.slot, r.logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	r.ledger, err = o.ledgers.Open(ctx, r.req.SessionID)
	if err != nil {
		return o.stageErr(ctx, "open ledger", err)
	}

	// Ingesting
	o.transition(r, StateIngesting)
	start := o.now()
	sum, err := pipe.Ingest.Run(ctx, r.req.Wallet, r.ledger)
	o.recordStage(StateIngesting, start)
	if err != nil {
		return o.stageErr(ctx, "ingestion", err)
	}
	if sum.Stop == ingestion.StopFetchError {
		r.result.AddError(fmt.Sprintf("ingestion stopped early at page %d: %v", sum.NextPage, sum.FetchErr))
	}
	if sum.Total == 0 {
		return ErrNoTransactions
	}

	first, last, ok, err := r.ledger.TimeRange(ctx)
	if err != nil {
		return o.stageErr(ctx, "read time range", err)
	}
	if ok {
		startDate, endDate := metrics.DateRange(first, last)
		r.result.StartDate, r.result.EndDate = &startDate, &endDate
	}

	// Enriching
	o.transition(r, StateEnriching)
	start = o.now()
	report, err := pipe.Metadata.Enrich(ctx, r.ledger)
	o.recordStage(StateEnriching, start)
	if err != nil {
		return o.stageErr(ctx, "metadata enrichment", err)
	}
	if s := report.Summary(); s != "" {
		r.result.AddError(s)
	}

	// Cleaning
	o.transition(r, StateCleaning)
	start = o.now()
	cleaned, err := pipe.Cleaner.Clean(ctx, r.ledger)
	o.recordStage(StateCleaning, start)
	if err != nil {
		return o.stageErr(ctx, "cleaning", err)
	}
	if cleaned.Eligible == 0 {
		return ErrNoTransactions
	}

	// PricingEnriching
	o.transition(r, StatePricingEnriching)
	start = o.now()
	report, err = pipe.Price.Enrich(ctx, r.ledger)
	o.recordStage(StatePricingEnriching, start)
	if err != nil {
		return o.stageErr(ctx, "price enrichment", err)
	}
	if s := report.Summary(); s != "" {
		r.result.AddError(s)
	}

	// Matching
	o.transition(r, StateMatching)
	start = o.now()
	rows, err := r.ledger.Load(ctx)
	if err != nil {
		return o.stageErr(ctx, "load ledger", err)
	}
	matched := matching.Match(rows)
	o.recordStage(StateMatching, start)
	observability.RecordTradesMatched(len(matched.Trades))
	r.logger.Info("trades-matched",
		zap.Int("rows", len(rows)),
		zap.Int("trades", len(matched.Trades)),
		zap.Int("unmatched_buys", matched.UnmatchedBuys),
		zap.Int("dropped_sells", matched.DroppedSells))

	// Analyzing
	o.transition(r, StateAnalyzing)
	start = o.now()
	metrics.Compute(matched.Trades).ApplyTo(r.result)
	o.recordStage(StateAnalyzing, start)

	if err := ctx.Err(); err != nil {
		return o.stageErr(ctx, "analysis", err)
	}
	r.result.TimestampEnded = o.now().UTC()
	if err := o.results.Put(ctx, r.result); err != nil {
		return o.stageErr(ctx, "write result", err)
	}
	return nil
}

// ensureSession records the session as Running unless the request layer already did.
func (o *Orchestrator) ensureSession(ctx context.Context, r *run) error {
	err := o.sessions.Create(ctx, &domain.Session{
		ID:        r.req.SessionID,
		Wallet:    r.req.Wallet,
		Slot:      r.slot,
		Status:    domain.SessionRunning,
		StartTime: r.started,
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return o.stageErr(ctx, "create session", err)
	}
	return nil
}

// finish performs the exit sequence: release slot, delete ledger, write the
// failure result if any, write the terminal status.
func (o *Orchestrator) finish(ctx context.Context, r *run, err error) Outcome {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	final := StateCompleted
	status := domain.SessionCompleted
	if err != nil {
		final = StateFailed
		status = domain.SessionFailed
	}

	if r.acquired {
		o.safely(r, "release-slot", func() error { return o.slots.Release(cctx, r.slot) })
	}
	o.safely(r, "remove-ledger", func() error {
		if r.ledger != nil {
			if cerr := r.ledger.Close(); cerr != nil {
				r.logger.Warn("ledger-close-failed", zap.Error(cerr))
			}
		}
		return o.ledgers.Remove(r.req.SessionID)
	})

	written := err == nil
	if err != nil && !r.noResult {
		r.result.AddError(err.Error())
		r.result.TimestampEnded = o.now().UTC()
		o.safely(r, "write-failure-result", func() error { return o.results.Put(cctx, r.result) })
		written = true
	}

	o.safely(r, "finish-session", func() error {
		return o.sessions.Finish(cctx, r.req.SessionID, status, o.now())
	})
	o.transition(r, final)

	elapsed := o.now().Sub(r.started)
	observability.RecordSessionFinished(string(status), elapsed.Seconds())
	if err != nil {
		r.logger.Warn("session-failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		r.logger.Info("session-completed", zap.Duration("elapsed", elapsed))
	}

	if o.push != nil {
		if perr := o.push(cctx); perr != nil {
			r.logger.Warn("metrics-push-failed", zap.Error(perr))
		}
	}

	out := Outcome{State: final, Trace: r.states.trace()}
	if written {
		out.Result = r.result
	}
	return out
}

// safely runs one cleanup step; errors and panics are logged, never propagated.
func (o *Orchestrator) safely(r *run, step string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("cleanup-panic", zap.String("step", step), zap.Any("panic", p))
		}
	}()
	if err := fn(); err != nil {
		r.logger.Error("cleanup-failed", zap.String("step", step), zap.Error(err))
	}
}

// kill ends the process once the watchdog fires. No cleanup runs; the
// slot stays IN_USE until released by an operator.
func (o *Orchestrator) kill(r *run) {
	r.logger.Error("session-killed",
		zap.String("state", string(r.states.current())),
		zap.Duration("after", o.timeout+o.killGrace))
	r.states.set(StateKilled)
	observability.RecordSessionFinished(string(StateKilled), o.now().Sub(r.started).Seconds())
	_ = r.logger.Sync()
	o.exit(KillExitCode)
}

func (o *Orchestrator) transition(r *run, s State) {
	r.states.set(s)
	r.logger.Info("session-state", zap.String("state", string(s)))
}

func (o *Orchestrator) recordStage(s State, start time.Time) {
	observability.RecordStage(string(s), o.now().Sub(start).Seconds())
}

// stageErr wraps err, reporting a passed deadline as ErrSessionTimeout.
func (o *Orchestrator) stageErr(ctx context.Context, stage string, err error) error {
	if errors.Is(context.Cause(ctx), ErrSessionTimeout) {
		return fmt.Errorf("%s: %w", stage, ErrSessionTimeout)
	}
	return fmt.Errorf("%s: %w", stage, err)
}
