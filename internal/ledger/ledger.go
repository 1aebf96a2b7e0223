package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/mirrorledger/textoracle/pkg/log"
)

const (
	// MinFee is the flat fee every transaction pays, burned to the fee sink.
	MinFee = 1000

	// DefaultAppMinBalance is the minimum balance an application escrow
	// account must retain to keep participating in transactions.
	DefaultAppMinBalance = 100_000
)

// feeSink collects burned transaction fees.
var feeSink = deriveSystemAddress("fee-sink")

// Service is the ledger RPC surface consumed by off-ledger actors: the
// async client proxy and the worker oracle loop. Both only observe committed
// state through these calls; there is no other channel between them.
type Service interface {
	SubmitAppCall(ctx context.Context, st SignedTransaction) ([]byte, error)
	SubmitPayment(ctx context.Context, st SignedTransaction) error
	ApplicationBoxes(ctx context.Context, appID uint64) ([][]byte, error)
	ApplicationBox(ctx context.Context, appID uint64, name []byte) ([]byte, error)
	ApplicationGlobal(ctx context.Context, appID uint64, key string) ([]byte, error)
	SuggestedParams(ctx context.Context) (Params, error)
}

type appRecord struct {
	id         uint64
	program    App
	creator    Address
	address    Address
	minBalance uint64
	globals    map[string][]byte
	boxes      map[string][]byte
}

// Ledger is an in-process ledger node: accounts with balances, deployed
// applications with escrow accounts, per-app box and global storage. Every
// submitted transaction executes atomically under one lock, which is the
// total ordering the protocol relies on.
type Ledger struct {
	mu        sync.Mutex
	accounts  map[Address]uint64
	apps      map[uint64]*appRecord
	nextAppID uint64
	store     Store
}

type Option func(*Ledger)

// WithStore makes the ledger write committed state through to the store.
func WithStore(store Store) Option {
	return func(l *Ledger) {
		l.store = store
	}
}

// New creates a ledger seeded with the genesis balances. If a store is
// configured and holds a previous snapshot, the snapshot wins over genesis.
func New(genesis map[Address]uint64, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		accounts:  make(map[Address]uint64),
		apps:      make(map[uint64]*appRecord),
		nextAppID: 1,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.store != nil {
		snapshot, err := l.store.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load ledger snapshot: %w", err)
		}
		if snapshot != nil && len(snapshot.Accounts) > 0 {
			l.restore(snapshot)
			return l, nil
		}
	}

	for addr, balance := range genesis {
		l.accounts[addr] = balance
		l.persistAccount(addr)
	}
	return l, nil
}

func (l *Ledger) restore(snapshot *Snapshot) {
	for addr, balance := range snapshot.Accounts {
		l.accounts[addr] = balance
	}
	for _, state := range snapshot.Apps {
		app := &appRecord{
			id:         state.ID,
			creator:    state.Creator,
			address:    AppAddress(state.ID),
			minBalance: state.MinBalance,
			globals:    make(map[string][]byte),
			boxes:      make(map[string][]byte),
		}
		for k, v := range state.Globals {
			app.globals[k] = append([]byte(nil), v...)
		}
		for k, v := range state.Boxes {
			app.boxes[k] = append([]byte(nil), v...)
		}
		l.apps[state.ID] = app
		if state.ID >= l.nextAppID {
			l.nextAppID = state.ID + 1
		}
	}
}

// AppAddress derives the escrow account address of an application from its
// id. The derivation is fixed so clients can compute payment receivers
// without a lookup.
func AppAddress(appID uint64) Address {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], appID)
	return deriveSystemAddress("app/" + string(id[:]))
}

func deriveSystemAddress(tag string) Address {
	return Address(sha256.Sum256([]byte(tag)))
}

// CreateApp deploys a program for the given creator and funds nothing:
// the creator is expected to cover the escrow minimum balance with a
// follow-up payment. Creation always succeeds for an existing creator.
func (l *Ledger) CreateApp(creator Address, program App) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[creator]; !ok {
		return 0, ErrUnknownAccount
	}

	id := l.nextAppID
	l.nextAppID++
	app := &appRecord{
		id:         id,
		program:    program,
		creator:    creator,
		address:    AppAddress(id),
		minBalance: DefaultAppMinBalance,
		globals:    make(map[string][]byte),
		boxes:      make(map[string][]byte),
	}
	l.apps[id] = app
	l.accounts[app.address] = 0

	l.persistApp(app)
	l.persistAccount(app.address)
	return id, nil
}

// BindProgram attaches program code to an application restored from a
// snapshot. State survives restarts; code does not.
func (l *Ledger) BindProgram(appID uint64, program App) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	app, ok := l.apps[appID]
	if !ok {
		return ErrUnknownApp
	}
	app.program = program
	return nil
}

// DeleteApp removes a deployed application. The program decides who may
// delete it; the oracle contract only permits its creator.
func (l *Ledger) DeleteApp(ctx context.Context, st SignedTransaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := st.Txn
	if err := l.checkSignature(st); err != nil {
		return err
	}
	app, ok := l.apps[txn.AppID]
	if !ok || app.program == nil {
		return ErrUnknownApp
	}
	if !app.program.AllowDelete(txn.Sender, app.creator) {
		return ErrDeleteDenied
	}
	delete(l.apps, txn.AppID)
	return nil
}

// SubmitAppCall executes one application call atomically. The flat fee is
// charged whenever the transaction is accepted, even if the program returns
// a logical guard failure; the grouped payment only applies when the program
// succeeds. The returned error is the program's own typed error when the
// call was accepted but logically denied.
func (l *Ledger) SubmitAppCall(ctx context.Context, st SignedTransaction) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := st.Txn
	if err := l.checkSignature(st); err != nil {
		return nil, err
	}
	app, ok := l.apps[txn.AppID]
	if !ok || app.program == nil {
		return nil, ErrUnknownApp
	}
	if txn.Fee < MinFee {
		return nil, ErrFeeTooLow
	}
	if txn.Payment != nil && txn.Payment.Sender != txn.Sender {
		return nil, ErrBadPayment
	}

	needed := txn.Fee
	if txn.Payment != nil {
		needed += txn.Payment.Amount
	}
	if l.accounts[txn.Sender] < needed {
		return nil, ErrInsufficientFunds
	}

	call := &Call{
		Sender:    txn.Sender,
		Method:    txn.Method,
		Args:      txn.Args,
		Payment:   txn.Payment,
		ledger:    l,
		app:       app,
		callDirty: newCallDirty(),
	}

	// Fee is burned up front: a denied call still costs its fee.
	l.accounts[txn.Sender] -= txn.Fee
	l.accounts[feeSink] += txn.Fee
	call.dirtyAccounts[txn.Sender] = true
	call.dirtyAccounts[feeSink] = true

	result, err := app.program.Call(call)
	if err == nil && txn.Payment != nil {
		l.accounts[txn.Sender] -= txn.Payment.Amount
		l.accounts[txn.Payment.Receiver] += txn.Payment.Amount
		call.dirtyAccounts[txn.Sender] = true
		call.dirtyAccounts[txn.Payment.Receiver] = true
	}

	l.flush(ctx, app, call)
	return result, err
}

// SubmitPayment executes a plain wallet-to-wallet (or wallet-to-escrow)
// transfer outside any application call.
func (l *Ledger) SubmitPayment(ctx context.Context, st SignedTransaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := st.Txn
	if err := l.checkSignature(st); err != nil {
		return err
	}
	if txn.Payment == nil || txn.Payment.Sender != txn.Sender {
		return ErrBadPayment
	}
	if txn.Fee < MinFee {
		return ErrFeeTooLow
	}
	if l.accounts[txn.Sender] < txn.Fee+txn.Payment.Amount {
		return ErrInsufficientFunds
	}

	l.accounts[txn.Sender] -= txn.Fee + txn.Payment.Amount
	l.accounts[feeSink] += txn.Fee
	l.accounts[txn.Payment.Receiver] += txn.Payment.Amount

	l.persistAccount(txn.Sender)
	l.persistAccount(feeSink)
	l.persistAccount(txn.Payment.Receiver)
	return nil
}

// ApplicationBoxes lists the box names currently allocated to an
// application, in stable byte order.
func (l *Ledger) ApplicationBoxes(ctx context.Context, appID uint64) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	app, ok := l.apps[appID]
	if !ok {
		return nil, ErrUnknownApp
	}
	names := make([][]byte, 0, len(app.boxes))
	for name := range app.boxes {
		names = append(names, []byte(name))
	}
	sort.Slice(names, func(i, j int) bool {
		return bytes.Compare(names[i], names[j]) < 0
	})
	return names, nil
}

// ApplicationBox reads one box value by name.
func (l *Ledger) ApplicationBox(ctx context.Context, appID uint64, name []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	app, ok := l.apps[appID]
	if !ok {
		return nil, ErrUnknownApp
	}
	value, ok := app.boxes[string(name)]
	if !ok {
		return nil, ErrUnknownBox
	}
	return append([]byte(nil), value...), nil
}

// ApplicationGlobal reads one global state entry of an application.
func (l *Ledger) ApplicationGlobal(ctx context.Context, appID uint64, key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	app, ok := l.apps[appID]
	if !ok {
		return nil, ErrUnknownApp
	}
	return append([]byte(nil), app.globals[key]...), nil
}

// AccountBalance reads an account's committed balance.
func (l *Ledger) AccountBalance(ctx context.Context, addr Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.accounts[addr]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return balance, nil
}

// SuggestedParams mirrors the get-transaction-params RPC.
func (l *Ledger) SuggestedParams(ctx context.Context) (Params, error) {
	return Params{MinFee: MinFee}, nil
}

func (l *Ledger) checkSignature(st SignedTransaction) error {
	pub := ed25519.PublicKey(st.Txn.Sender[:])
	if !ed25519.Verify(pub, st.Txn.Encode(), st.Sig) {
		return ErrBadSignature
	}
	if _, ok := l.accounts[st.Txn.Sender]; !ok {
		return ErrUnknownAccount
	}
	return nil
}

// flush writes the entries a call touched through to the store. Persistence
// is best effort: a store failure is logged, not propagated, because the
// in-memory state already committed.
func (l *Ledger) flush(ctx context.Context, app *appRecord, call *Call) {
	if l.store == nil {
		return
	}
	for addr := range call.dirtyAccounts {
		if err := l.store.SaveAccount(ctx, addr, l.accounts[addr]); err != nil {
			log.Error("Failed to persist account %s: %v", addr, err)
		}
	}
	for key := range call.dirtyGlobals {
		if err := l.store.SaveGlobal(ctx, app.id, key, app.globals[key]); err != nil {
			log.Error("Failed to persist global %q of app %d: %v", key, app.id, err)
		}
	}
	for name := range call.dirtyBoxes {
		value, ok := app.boxes[name]
		if !ok {
			if err := l.store.DeleteBox(ctx, app.id, []byte(name)); err != nil {
				log.Error("Failed to delete persisted box of app %d: %v", app.id, err)
			}
			continue
		}
		if err := l.store.SaveBox(ctx, app.id, []byte(name), value); err != nil {
			log.Error("Failed to persist box of app %d: %v", app.id, err)
		}
	}
}

func (l *Ledger) persistAccount(addr Address) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveAccount(context.Background(), addr, l.accounts[addr]); err != nil {
		log.Error("Failed to persist account %s: %v", addr, err)
	}
}

func (l *Ledger) persistApp(app *appRecord) {
	if l.store == nil {
		return
	}
	state := AppState{
		ID:         app.id,
		Creator:    app.creator,
		MinBalance: app.minBalance,
	}
	if err := l.store.SaveApp(context.Background(), state); err != nil {
		log.Error("Failed to persist app %d: %v", app.id, err)
	}
}
