// Package oracle runs the off-ledger side of the classification service: a
// scanning poller that classifies pending jobs and writes results back
// through the contract, plus the operator's scheduled fee reclamation.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/mirrorledger/textoracle/internal/classify"
	"github.com/mirrorledger/textoracle/internal/client"
	"github.com/mirrorledger/textoracle/internal/contract"
	"github.com/mirrorledger/textoracle/internal/ledger"
	"github.com/mirrorledger/textoracle/pkg/log"
)

const DefaultIdleDelay = time.Second

// Result labels written back into job boxes.
const (
	ResultToxic    = contract.ResultPrefix + " Toxic"
	ResultNotToxic = contract.ResultPrefix + " Not Toxic"
)

// Worker is the oracle operator's scan loop. Every cycle it re-reads all
// boxes allocated to the contract and completes the ones holding unanswered
// request text. It is a scanning poller, not an event subscriber: each cycle
// costs O(live jobs) reads, a documented ceiling for demo-scale volumes.
type Worker struct {
	svc        ledger.Service
	proxy      *client.Proxy
	operator   ledger.Signer
	classifier classify.Classifier

	idleDelay time.Duration
	metrics   *Metrics
}

type WorkerOption func(*Worker)

// WithIdleDelay sets the sleep between scan cycles that found nothing to do.
func WithIdleDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.idleDelay = d
	}
}

// WithMetrics attaches Prometheus counters to the loop.
func WithMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// NewWorker wires a worker for one deployed oracle application. The operator
// signer must be the contract creator, otherwise every Complete call will be
// denied.
func NewWorker(svc ledger.Service, appID uint64, operator ledger.Signer, classifier classify.Classifier, opts ...WorkerOption) *Worker {
	w := &Worker{
		svc:        svc,
		proxy:      client.NewProxy(svc, appID),
		operator:   operator,
		classifier: classifier,
		idleDelay:  DefaultIdleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run scans until the context is canceled. Per-job failures are logged and
// skipped for the cycle; the loop itself only stops on shutdown.
func (w *Worker) Run(ctx context.Context) error {
	log.Info("Oracle worker started for app %d", w.proxy.AppID())
	for {
		if err := ctx.Err(); err != nil {
			log.Info("Oracle worker stopping: %v", err)
			return err
		}

		completed := w.sweep(ctx)
		if completed == 0 {
			// Nothing pending this cycle; don't hammer the ledger.
			if err := sleepCtx(ctx, w.idleDelay); err != nil {
				log.Info("Oracle worker stopping: %v", err)
				return err
			}
		}
	}
}

// sweep runs one scan cycle and reports how many jobs it completed.
func (w *Worker) sweep(ctx context.Context) int {
	if w.metrics != nil {
		w.metrics.Sweeps.Inc()
	}

	names, err := w.svc.ApplicationBoxes(ctx, w.proxy.AppID())
	if err != nil {
		log.Error("Failed to list boxes: %v", err)
		if w.metrics != nil {
			w.metrics.ScanErrors.Inc()
		}
		return 0
	}

	completed := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return completed
		}
		if w.processBox(ctx, name) {
			completed++
		}
	}
	return completed
}

// processBox classifies one job if it holds unanswered text. Boxes that are
// unreadable, still empty, or already carrying a result are skipped this
// round; there is no per-job retry bookkeeping.
func (w *Worker) processBox(ctx context.Context, jobID []byte) bool {
	value, err := w.svc.ApplicationBox(ctx, w.proxy.AppID(), jobID)
	if err != nil {
		log.Debug("Skipping unreadable box %x: %v", jobID, err)
		if w.metrics != nil {
			w.metrics.ScanErrors.Inc()
		}
		return false
	}
	if w.metrics != nil {
		w.metrics.BoxesScanned.Inc()
	}

	text := string(value)
	if text == "" || strings.HasPrefix(text, contract.ResultPrefix) {
		return false
	}

	toxic, err := w.classifier.Classify(ctx, text)
	if err != nil {
		log.Error("Classifier failed for job %x: %v", jobID, err)
		if w.metrics != nil {
			w.metrics.ScanErrors.Inc()
		}
		return false
	}
	label := ResultNotToxic
	if toxic {
		label = ResultToxic
	}

	if err := w.proxy.CompleteJob(ctx, w.operator, jobID, label, ""); err != nil {
		log.Error("Failed to complete job %x: %v", jobID, err)
		if w.metrics != nil {
			w.metrics.ScanErrors.Inc()
		}
		return false
	}

	log.Info("Completed job %x: %s", jobID, label)
	if w.metrics != nil {
		w.metrics.JobsCompleted.Inc()
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
