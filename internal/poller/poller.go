package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"busara/internal/domain"
	"busara/internal/reconcile"
	"busara/pkg/payment"

	"go.uber.org/zap"
)

// Poller drives push-poll intents to resolution: one goroutine per in-flight
// intent, fixed cadence, hard wall-clock budget. Every resolution goes through
// the reconciler, so a webhook racing a poll is harmless.
type Poller struct {
	provider payment.PushPoller
	rec      *reconcile.Reconciler

	interval    time.Duration
	budget      time.Duration
	callTimeout time.Duration

	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*watch
	wg     sync.WaitGroup
}

// watch identifies one run loop. The pointer doubles as the loop's identity so
// cleanup never removes a successor registered under the same intent id.
type watch struct {
	cancel context.CancelFunc
}

func New(provider payment.PushPoller, rec *reconcile.Reconciler, interval, budget, callTimeout time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if budget <= 0 {
		budget = 120 * time.Second
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Poller{
		provider:    provider,
		rec:         rec,
		interval:    interval,
		budget:      budget,
		callTimeout: callTimeout,
		logger:      logger,
		active:      make(map[string]*watch),
	}
}

// Watch starts polling externalRef until the provider resolves, the budget
// elapses, or Cancel/Shutdown is called. Watching an intent already being
// watched is a no-op.
func (p *Poller) Watch(intentID, externalRef string) {
	p.mu.Lock()
	if _, ok := p.active[intentID]; ok {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.budget)
	w := &watch{cancel: cancel}
	p.active[intentID] = w
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx, w, intentID, externalRef)
}

// Cancel stops the watch for one intent, e.g. when the owning session is torn
// down. The intent itself is left as-is; a webhook can still resolve it.
func (p *Poller) Cancel(intentID string) {
	p.mu.Lock()
	if w, ok := p.active[intentID]; ok {
		w.cancel()
	}
	p.mu.Unlock()
}

// Shutdown cancels every active watch and waits for the loops to exit.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	for _, w := range p.active {
		w.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, w *watch, intentID, externalRef string) {
	defer p.wg.Done()
	defer func() {
		w.cancel()
		p.mu.Lock()
		if p.active[intentID] == w {
			delete(p.active, intentID)
		}
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.logger.Warn("poll budget elapsed, expiring intent",
					zap.String("intent_id", intentID),
					zap.String("external_ref", externalRef))
				if err := p.rec.Expire(context.Background(), intentID); err != nil {
					p.logger.Error("expire failed", zap.String("intent_id", intentID), zap.Error(err))
				}
			}
			return
		case <-ticker.C:
			if p.tick(ctx, intentID, externalRef) {
				return
			}
		}
	}
}

// tick performs one status query; returns true when polling should stop.
func (p *Poller) tick(ctx context.Context, intentID, externalRef string) bool {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	res, err := p.provider.QueryStatus(callCtx, externalRef)
	cancel()
	if err != nil {
		// Transient by definition here: the adapter already retried transport
		// failures. Keep polling until the budget says otherwise.
		p.logger.Warn("status query failed", zap.String("intent_id", intentID), zap.Error(err))
		return false
	}
	if res.Processing() {
		return false
	}
	outcome := domain.OutcomeFailed
	if res.ResultCode == payment.ResultSuccess {
		outcome = domain.OutcomeSucceeded
	}
	if _, err := p.rec.Settle(context.Background(), intentID, outcome, reconcile.ProviderResult{
		Amount:     res.Amount,
		ResultDesc: res.ResultDesc,
		PayerPhone: res.PayerPhone,
		Receipt:    res.Receipt,
	}); err != nil {
		p.logger.Error("settle from poll failed", zap.String("intent_id", intentID), zap.Error(err))
	}
	return true
}
