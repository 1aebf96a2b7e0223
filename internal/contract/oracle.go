// Package contract implements the text-classifier oracle application: the
// authoritative per-job state machine. It is the only code allowed to
// create, mutate or delete a job record, and it runs entirely inside atomic
// ledger calls.
package contract

import (
	"encoding/binary"
	"strings"

	"github.com/mirrorledger/textoracle/internal/ledger"
)

// Method selectors, passed as the transaction method by callers.
const (
	MethodStart    = "Start"
	MethodClassify = "Classify"
	MethodComplete = "Complete"
	MethodPurge    = "Purge"
	MethodReclaim  = "Reclaim"
)

const (
	// JobDeposit is what the owner escrows per job: box storage rent plus
	// the retained call fees.
	JobDeposit = 1_676_900

	// PurgeRefund is returned on purge; the 10,000 difference stays with
	// the contract as the retained fee.
	PurgeRefund = 1_666_900

	// ResultPrefix marks a box value as a finished result. It is the only
	// completion signal visible off-ledger.
	ResultPrefix = "RESULT:"

	// CounterKey is the global-state key of the job counter, stored as
	// 8 bytes big-endian.
	CounterKey = "JobIdCounter"
)

// Oracle is the deployed contract program.
type Oracle struct{}

func NewOracle() *Oracle {
	return &Oracle{}
}

// AllowDelete permits teardown of the deployed application only for its
// creator.
func (o *Oracle) AllowDelete(sender, creator ledger.Address) bool {
	return sender == creator
}

// Call dispatches one application call by method selector.
func (o *Oracle) Call(call *ledger.Call) ([]byte, error) {
	switch call.Method {
	case MethodStart:
		return o.start(call)
	case MethodClassify:
		return nil, o.classify(call)
	case MethodComplete:
		return nil, o.complete(call)
	case MethodPurge:
		return nil, o.purge(call)
	case MethodReclaim:
		return nil, o.reclaim(call)
	default:
		return nil, ErrUnknownMethod
	}
}

// start reserves a job: it derives the job id from the sender and the
// global counter, increments the counter and creates the empty job record.
// The grouped payment must escrow exactly the job deposit with the contract.
func (o *Oracle) start(call *ledger.Call) ([]byte, error) {
	payment := call.Payment
	if payment == nil || payment.Receiver != call.AppAddress() || payment.Amount != JobDeposit {
		return nil, ErrInvalidPayment
	}

	counter := o.counter(call)
	jobID := MakeJobID(call.Sender, counter)

	var next [CounterSize]byte
	binary.BigEndian.PutUint64(next[:], counter+1)
	call.GlobalSet(CounterKey, next[:])

	// Empty record: the job now awaits its text.
	call.BoxSet(jobID, nil)
	return jobID, nil
}

// classify stores the owner's request text into the job record. Only the
// account whose address matches the id's owner prefix may write, and a
// record already carrying a result is immutable to the owner.
func (o *Oracle) classify(call *ledger.Call) error {
	if len(call.Args) != 2 {
		return ErrBadRequest
	}
	jobID, text := call.Args[0], call.Args[1]
	// An empty value means "awaiting text" everywhere else, so an empty
	// request could never be answered.
	if len(text) == 0 {
		return ErrBadRequest
	}

	owner, ok := JobOwner(jobID)
	if !ok || owner != call.Sender {
		return ErrNotAuthorized
	}
	current, ok := call.BoxGet(jobID)
	if !ok {
		return ErrJobNotFound
	}
	if strings.HasPrefix(string(current), ResultPrefix) {
		return ErrJobCompleted
	}

	call.BoxSet(jobID, text)
	return nil
}

// complete overwrites the job record with the oracle's result. Only the
// contract creator, the trusted off-ledger operator, may write results.
func (o *Oracle) complete(call *ledger.Call) error {
	if len(call.Args) != 2 {
		return ErrBadRequest
	}
	jobID, text := call.Args[0], call.Args[1]

	if call.Sender != call.Creator() {
		return ErrNotAuthorized
	}
	if _, ok := call.BoxGet(jobID); !ok {
		return ErrJobNotFound
	}

	call.BoxSet(jobID, text)
	return nil
}

// purge deletes the job record and refunds the deposit minus the retained
// fee. Purging an already purged id is a no-op error with no second refund.
func (o *Oracle) purge(call *ledger.Call) error {
	if len(call.Args) != 1 {
		return ErrBadRequest
	}
	jobID := call.Args[0]

	owner, ok := JobOwner(jobID)
	if !ok || owner != call.Sender {
		return ErrNotAuthorized
	}
	if _, ok := call.BoxGet(jobID); !ok {
		return ErrJobNotFound
	}
	// Refund before deleting: a failed payment must leave the record
	// intact so the owner can retry.
	if err := call.Pay(call.Sender, PurgeRefund); err != nil {
		return err
	}
	call.BoxDelete(jobID)
	return nil
}

// reclaim pays accumulated retained fees out to the creator. Every live job
// record still owes its owner the purge refund, so that much of the balance
// is reserved per box and only the surplus is sweepable. With nothing to
// reclaim it does nothing.
func (o *Oracle) reclaim(call *ledger.Call) error {
	if call.Sender != call.Creator() {
		return ErrNotAuthorized
	}
	reserved := call.MinBalance() + uint64(call.BoxCount())*PurgeRefund
	if call.Balance() > reserved {
		return call.Pay(call.Creator(), call.Balance()-reserved)
	}
	return nil
}

func (o *Oracle) counter(call *ledger.Call) uint64 {
	raw := call.GlobalGet(CounterKey)
	if len(raw) != CounterSize {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
