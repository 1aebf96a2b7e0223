// Package client holds the off-ledger caller side of the oracle protocol: a
// typed proxy building signed application calls, and an async wrapper that
// drives a whole classification round trip.
package client

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mirrorledger/textoracle/internal/contract"
	"github.com/mirrorledger/textoracle/internal/ledger"
)

// Proxy is a thin typed wrapper over the raw submit-application-call RPC for
// one deployed oracle application. Both the submitting client and the worker
// oracle call through it.
type Proxy struct {
	svc   ledger.Service
	appID uint64
}

func NewProxy(svc ledger.Service, appID uint64) *Proxy {
	return &Proxy{svc: svc, appID: appID}
}

func (p *Proxy) AppID() uint64 {
	return p.appID
}

// DepositPayment builds the escrow payment a job owner must group with the
// Start call.
func (p *Proxy) DepositPayment(sender ledger.Address) *ledger.Payment {
	return &ledger.Payment{
		Sender:   sender,
		Receiver: ledger.AppAddress(p.appID),
		Amount:   contract.JobDeposit,
	}
}

// StartClassificationJob reserves a job and returns its id. The payment must
// escrow exactly the job deposit with the contract.
func (p *Proxy) StartClassificationJob(ctx context.Context, signer ledger.Signer, payment *ledger.Payment, note string) ([]byte, error) {
	result, err := p.call(ctx, signer, contract.MethodStart, nil, payment, note)
	if err != nil {
		return nil, err
	}
	// An id of the wrong shape is fatal: never follow it up with Classify.
	if len(result) != contract.JobIDSize {
		return nil, fmt.Errorf("contract returned malformed job id of %d bytes", len(result))
	}
	return result, nil
}

// ClassifyText submits the request text for an owned job.
func (p *Proxy) ClassifyText(ctx context.Context, signer ledger.Signer, jobID []byte, text, note string) error {
	_, err := p.call(ctx, signer, contract.MethodClassify, [][]byte{jobID, []byte(text)}, nil, note)
	return err
}

// CompleteJob writes the oracle's result for a job. Creator only.
func (p *Proxy) CompleteJob(ctx context.Context, signer ledger.Signer, jobID []byte, text, note string) error {
	_, err := p.call(ctx, signer, contract.MethodComplete, [][]byte{jobID, []byte(text)}, nil, note)
	return err
}

// PurgeJob deletes an owned job record and reclaims the deposit.
func (p *Proxy) PurgeJob(ctx context.Context, signer ledger.Signer, jobID []byte, note string) error {
	_, err := p.call(ctx, signer, contract.MethodPurge, [][]byte{jobID}, nil, note)
	return err
}

// ReclaimFees sweeps accumulated retained fees to the creator.
func (p *Proxy) ReclaimFees(ctx context.Context, signer ledger.Signer, note string) error {
	_, err := p.call(ctx, signer, contract.MethodReclaim, nil, nil, note)
	return err
}

// JobCounter reads the contract's global job counter.
func (p *Proxy) JobCounter(ctx context.Context) (uint64, error) {
	raw, err := p.svc.ApplicationGlobal(ctx, p.appID, contract.CounterKey)
	if err != nil {
		return 0, fmt.Errorf("read job counter: %w", err)
	}
	if len(raw) != contract.CounterSize {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (p *Proxy) call(ctx context.Context, signer ledger.Signer, method string, args [][]byte, payment *ledger.Payment, note string) ([]byte, error) {
	params, err := p.svc.SuggestedParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transaction params: %w", err)
	}
	txn := ledger.Transaction{
		Sender:  signer.Address(),
		AppID:   p.appID,
		Method:  method,
		Args:    args,
		Payment: payment,
		Fee:     params.MinFee,
		Note:    note,
	}
	return p.svc.SubmitAppCall(ctx, ledger.Sign(txn, signer))
}
