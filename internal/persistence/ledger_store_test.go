package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorledger/textoracle/internal/contract"
	"github.com/mirrorledger/textoracle/internal/ledger"
	"github.com/mirrorledger/textoracle/internal/wallet"
)

func newStore(t *testing.T) *LedgerStore {
	t.Helper()
	store, err := NewLedgerStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewLedgerStore_RequiresPath(t *testing.T) {
	_, err := NewLedgerStore("  ")
	require.Error(t, err)
}

func TestLedgerStore_SaveAndLoadSnapshot(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	account, err := wallet.NewRandom()
	require.NoError(t, err)
	creator, err := wallet.NewRandom()
	require.NoError(t, err)

	require.NoError(t, store.SaveAccount(ctx, account.Address(), 1234))
	require.NoError(t, store.SaveAccount(ctx, account.Address(), 5678)) // upsert
	require.NoError(t, store.SaveApp(ctx, ledger.AppState{
		ID:         1,
		Creator:    creator.Address(),
		MinBalance: ledger.DefaultAppMinBalance,
	}))
	require.NoError(t, store.SaveGlobal(ctx, 1, contract.CounterKey, []byte{0, 0, 0, 0, 0, 0, 0, 3}))
	require.NoError(t, store.SaveBox(ctx, 1, []byte("job-a"), []byte("some text")))
	require.NoError(t, store.SaveBox(ctx, 1, []byte("job-b"), nil)) // empty record

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(5678), snapshot.Accounts[account.Address()])
	require.Len(t, snapshot.Apps, 1)

	app := snapshot.Apps[0]
	assert.Equal(t, uint64(1), app.ID)
	assert.Equal(t, creator.Address(), app.Creator)
	assert.Equal(t, uint64(ledger.DefaultAppMinBalance), app.MinBalance)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 3}, app.Globals[contract.CounterKey])
	assert.Equal(t, []byte("some text"), app.Boxes["job-a"])
	assert.Empty(t, app.Boxes["job-b"])
}

func TestLedgerStore_DeleteBox(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveApp(ctx, ledger.AppState{ID: 1}))
	require.NoError(t, store.SaveBox(ctx, 1, []byte("gone"), []byte("x")))
	require.NoError(t, store.DeleteBox(ctx, 1, []byte("gone")))
	require.NoError(t, store.DeleteBox(ctx, 1, []byte("never existed")))

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Apps, 1)
	assert.Empty(t, snapshot.Apps[0].Boxes)
}

// Committed oracle state must survive a node restart: a second ledger opened
// on the same file sees the jobs and counter the first one wrote.
func TestLedgerStore_StateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	creator, err := wallet.NewRandom()
	require.NoError(t, err)
	user, err := wallet.NewRandom()
	require.NoError(t, err)
	genesis := map[ledger.Address]uint64{
		creator.Address(): 100_000_000,
		user.Address():    100_000_000,
	}

	store, err := NewLedgerStore(path)
	require.NoError(t, err)

	led, err := ledger.New(genesis, ledger.WithStore(store))
	require.NoError(t, err)

	appID, err := led.CreateApp(creator.Address(), contract.NewOracle())
	require.NoError(t, err)
	fund := ledger.Transaction{
		Sender: creator.Address(),
		Payment: &ledger.Payment{
			Sender:   creator.Address(),
			Receiver: ledger.AppAddress(appID),
			Amount:   ledger.DefaultAppMinBalance,
		},
		Fee: ledger.MinFee,
	}
	require.NoError(t, led.SubmitPayment(ctx, ledger.Sign(fund, creator)))

	deposit := ledger.Transaction{
		Sender: user.Address(),
		AppID:  appID,
		Method: contract.MethodStart,
		Payment: &ledger.Payment{
			Sender:   user.Address(),
			Receiver: ledger.AppAddress(appID),
			Amount:   contract.JobDeposit,
		},
		Fee: ledger.MinFee,
	}
	jobID, err := led.SubmitAppCall(ctx, ledger.Sign(deposit, user))
	require.NoError(t, err)

	classify := ledger.Transaction{
		Sender: user.Address(),
		AppID:  appID,
		Method: contract.MethodClassify,
		Args:   [][]byte{jobID, []byte("persisted text")},
		Fee:    ledger.MinFee,
	}
	_, err = led.SubmitAppCall(ctx, ledger.Sign(classify, user))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Restart: fresh store, fresh ledger, same file. Programs are code, not
	// state, so the oracle must be bound again after the snapshot loads.
	store2, err := NewLedgerStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store2.Close() })

	led2, err := ledger.New(genesis, ledger.WithStore(store2))
	require.NoError(t, err)
	require.NoError(t, led2.BindProgram(appID, contract.NewOracle()))

	value, err := led2.ApplicationBox(ctx, appID, jobID)
	require.NoError(t, err)
	assert.Equal(t, "persisted text", string(value))

	counter, err := led2.ApplicationGlobal(ctx, appID, contract.CounterKey)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, counter)

	balance, err := led2.AccountBalance(ctx, user.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000-contract.JobDeposit-2*ledger.MinFee), balance)

	// The restored contract keeps enforcing its rules.
	complete := ledger.Transaction{
		Sender: creator.Address(),
		AppID:  appID,
		Method: contract.MethodComplete,
		Args:   [][]byte{jobID, []byte("RESULT: Not Toxic")},
		Fee:    ledger.MinFee,
	}
	_, err = led2.SubmitAppCall(ctx, ledger.Sign(complete, creator))
	require.NoError(t, err)

	value, err = led2.ApplicationBox(ctx, appID, jobID)
	require.NoError(t, err)
	assert.Equal(t, "RESULT: Not Toxic", string(value))
}
