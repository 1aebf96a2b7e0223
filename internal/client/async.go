package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mirrorledger/textoracle/internal/ledger"
	"github.com/mirrorledger/textoracle/pkg/log"
)

// ErrTimeout is returned when no result appears within the polling budget.
// The job is left behind in its pending state; the owner must purge it
// separately to reclaim the deposit.
var ErrTimeout = errors.New("timed out waiting for classification result")

const (
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultPollMaxInterval = 2 * time.Second
	DefaultBudget          = 60 * time.Second
)

// AsyncProxy orchestrates a full classification round trip against the
// oracle contract. The ledger offers no push notification for box writes, so
// completion is detected by polling: the sole completion signal is the box
// value differing from the text we submitted.
type AsyncProxy struct {
	proxy *Proxy
	svc   ledger.Service

	pollInterval    time.Duration
	pollMaxInterval time.Duration
	budget          time.Duration
}

type Option func(*AsyncProxy)

// WithPollInterval sets the initial poll interval. Subsequent polls back off
// exponentially with jitter up to the max interval.
func WithPollInterval(d time.Duration) Option {
	return func(p *AsyncProxy) {
		p.pollInterval = d
	}
}

func WithPollMaxInterval(d time.Duration) Option {
	return func(p *AsyncProxy) {
		p.pollMaxInterval = d
	}
}

// WithBudget bounds the whole wait for a result.
func WithBudget(d time.Duration) Option {
	return func(p *AsyncProxy) {
		p.budget = d
	}
}

func NewAsyncProxy(svc ledger.Service, appID uint64, opts ...Option) *AsyncProxy {
	p := &AsyncProxy{
		proxy:           NewProxy(svc, appID),
		svc:             svc,
		pollInterval:    DefaultPollInterval,
		pollMaxInterval: DefaultPollMaxInterval,
		budget:          DefaultBudget,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ClassifyText starts a job, submits the text and waits for the oracle's
// result. On success the job is purged right away so the deposit flows back
// to the owner. On timeout the job stays orphaned in its pending state and
// ErrTimeout is returned.
func (p *AsyncProxy) ClassifyText(ctx context.Context, signer ledger.Signer, text, note string) (string, error) {
	payment := p.proxy.DepositPayment(signer.Address())
	jobID, err := p.proxy.StartClassificationJob(ctx, signer, payment, note)
	if err != nil {
		return "", fmt.Errorf("start classification job: %w", err)
	}

	if err := p.proxy.ClassifyText(ctx, signer, jobID, text, note); err != nil {
		return "", fmt.Errorf("submit text for job %x: %w", jobID, err)
	}

	result, err := p.waitForResult(ctx, jobID, text)
	if err != nil {
		return "", err
	}

	// Reclaim the deposit. The result is already final, so a failed purge
	// only costs the deposit until the owner retries PurgeJob.
	if err := p.proxy.PurgeJob(ctx, signer, jobID, note); err != nil {
		log.Warn("Failed to purge completed job %x: %v", jobID, err)
	}
	return result, nil
}

// PurgeJob reclaims the deposit of a job, typically one orphaned by an
// earlier timeout.
func (p *AsyncProxy) PurgeJob(ctx context.Context, signer ledger.Signer, jobID []byte, note string) error {
	return p.proxy.PurgeJob(ctx, signer, jobID, note)
}

func (p *AsyncProxy) waitForResult(ctx context.Context, jobID []byte, submitted string) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.pollInterval
	policy.MaxInterval = p.pollMaxInterval
	policy.MaxElapsedTime = 0
	policy.Reset()

	for {
		value, err := p.svc.ApplicationBox(waitCtx, p.proxy.AppID(), jobID)
		if err == nil && string(value) != submitted {
			return string(value), nil
		}
		if err != nil && !errors.Is(err, ledger.ErrUnknownBox) {
			// Transient read failure: keep polling until the budget runs out.
			log.Debug("Poll of job %x failed: %v", jobID, err)
		}

		timer := time.NewTimer(policy.NextBackOff())
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return "", fmt.Errorf("job %x after %s: %w", jobID, p.budget, ErrTimeout)
		case <-timer.C:
		}
	}
}
