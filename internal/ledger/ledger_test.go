package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSigner struct {
	priv ed25519.PrivateKey
	addr Address
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &testSigner{priv: priv, addr: AddressFromPublicKey(pub)}
}

func (s *testSigner) Address() Address {
	return s.addr
}

func (s *testSigner) Sign(msg []byte) []byte {
	return ed25519.Sign(s.priv, msg)
}

// stubApp lets tests force the program outcome.
type stubApp struct {
	result []byte
	err    error
}

func (a *stubApp) Call(call *Call) ([]byte, error) {
	return a.result, a.err
}

func (a *stubApp) AllowDelete(sender, creator Address) bool {
	return sender == creator
}

var errDenied = errors.New("denied by program")

func newTestLedger(t *testing.T, accounts ...*testSigner) *Ledger {
	t.Helper()
	genesis := make(map[Address]uint64)
	for _, acct := range accounts {
		genesis[acct.Address()] = 10_000_000
	}
	l, err := New(genesis)
	require.NoError(t, err)
	return l
}

func TestSubmitAppCall_RejectsBadSignature(t *testing.T) {
	sender := newTestSigner(t)
	other := newTestSigner(t)
	l := newTestLedger(t, sender, other)

	appID, err := l.CreateApp(sender.Address(), &stubApp{})
	require.NoError(t, err)

	// Signed by the wrong key.
	txn := Transaction{Sender: sender.Address(), AppID: appID, Method: "Start", Fee: MinFee}
	st := SignedTransaction{Txn: txn, Sig: other.Sign(txn.Encode())}

	_, err = l.SubmitAppCall(context.Background(), st)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestSubmitAppCall_RejectsUnknownSender(t *testing.T) {
	creator := newTestSigner(t)
	stranger := newTestSigner(t)
	l := newTestLedger(t, creator)

	appID, err := l.CreateApp(creator.Address(), &stubApp{})
	require.NoError(t, err)

	txn := Transaction{Sender: stranger.Address(), AppID: appID, Method: "Start", Fee: MinFee}
	_, err = l.SubmitAppCall(context.Background(), Sign(txn, stranger))
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestSubmitAppCall_RejectsLowFee(t *testing.T) {
	sender := newTestSigner(t)
	l := newTestLedger(t, sender)

	appID, err := l.CreateApp(sender.Address(), &stubApp{})
	require.NoError(t, err)

	txn := Transaction{Sender: sender.Address(), AppID: appID, Method: "Start", Fee: MinFee - 1}
	_, err = l.SubmitAppCall(context.Background(), Sign(txn, sender))
	require.ErrorIs(t, err, ErrFeeTooLow)
}

func TestSubmitAppCall_ChargesFeeEvenWhenProgramDenies(t *testing.T) {
	sender := newTestSigner(t)
	l := newTestLedger(t, sender)

	appID, err := l.CreateApp(sender.Address(), &stubApp{err: errDenied})
	require.NoError(t, err)

	before, err := l.AccountBalance(context.Background(), sender.Address())
	require.NoError(t, err)

	txn := Transaction{Sender: sender.Address(), AppID: appID, Method: "Start", Fee: MinFee}
	_, err = l.SubmitAppCall(context.Background(), Sign(txn, sender))
	require.ErrorIs(t, err, errDenied)

	after, err := l.AccountBalance(context.Background(), sender.Address())
	require.NoError(t, err)
	assert.Equal(t, before-MinFee, after)
}

func TestSubmitAppCall_PaymentNotAppliedOnProgramDenial(t *testing.T) {
	sender := newTestSigner(t)
	l := newTestLedger(t, sender)

	appID, err := l.CreateApp(sender.Address(), &stubApp{err: errDenied})
	require.NoError(t, err)
	appAddr := AppAddress(appID)

	txn := Transaction{
		Sender: sender.Address(),
		AppID:  appID,
		Method: "Start",
		Payment: &Payment{
			Sender:   sender.Address(),
			Receiver: appAddr,
			Amount:   5000,
		},
		Fee: MinFee,
	}
	_, err = l.SubmitAppCall(context.Background(), Sign(txn, sender))
	require.ErrorIs(t, err, errDenied)

	// The escrow account never received anything, so it does not even exist.
	_, err = l.AccountBalance(context.Background(), appAddr)
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestSubmitAppCall_PaymentAppliedOnSuccess(t *testing.T) {
	sender := newTestSigner(t)
	l := newTestLedger(t, sender)

	appID, err := l.CreateApp(sender.Address(), &stubApp{result: []byte("ok")})
	require.NoError(t, err)
	appAddr := AppAddress(appID)

	txn := Transaction{
		Sender: sender.Address(),
		AppID:  appID,
		Method: "Start",
		Payment: &Payment{
			Sender:   sender.Address(),
			Receiver: appAddr,
			Amount:   5000,
		},
		Fee: MinFee,
	}
	result, err := l.SubmitAppCall(context.Background(), Sign(txn, sender))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), result)

	balance, err := l.AccountBalance(context.Background(), appAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), balance)
}

func TestSubmitAppCall_RejectsInsufficientFunds(t *testing.T) {
	sender := newTestSigner(t)
	l := newTestLedger(t, sender)

	appID, err := l.CreateApp(sender.Address(), &stubApp{})
	require.NoError(t, err)

	txn := Transaction{
		Sender: sender.Address(),
		AppID:  appID,
		Method: "Start",
		Payment: &Payment{
			Sender:   sender.Address(),
			Receiver: AppAddress(appID),
			Amount:   100_000_000,
		},
		Fee: MinFee,
	}
	_, err = l.SubmitAppCall(context.Background(), Sign(txn, sender))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSubmitPayment_TransfersFunds(t *testing.T) {
	sender := newTestSigner(t)
	receiver := newTestSigner(t)
	l := newTestLedger(t, sender, receiver)

	txn := Transaction{
		Sender: sender.Address(),
		Payment: &Payment{
			Sender:   sender.Address(),
			Receiver: receiver.Address(),
			Amount:   2500,
		},
		Fee: MinFee,
	}
	require.NoError(t, l.SubmitPayment(context.Background(), Sign(txn, sender)))

	got, err := l.AccountBalance(context.Background(), receiver.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000+2500), got)
}

func TestApplicationBoxes_SortedAndScoped(t *testing.T) {
	sender := newTestSigner(t)
	l := newTestLedger(t, sender)

	app := &boxWriterApp{}
	appID, err := l.CreateApp(sender.Address(), app)
	require.NoError(t, err)

	for _, name := range []string{"bbb", "aaa", "ccc"} {
		txn := Transaction{Sender: sender.Address(), AppID: appID, Method: name, Fee: MinFee}
		_, err := l.SubmitAppCall(context.Background(), Sign(txn, sender))
		require.NoError(t, err)
	}

	names, err := l.ApplicationBoxes(context.Background(), appID)
	require.NoError(t, err)
	require.Len(t, names, 3)
	assert.Equal(t, [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}, names)

	value, err := l.ApplicationBox(context.Background(), appID, []byte("aaa"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	_, err = l.ApplicationBox(context.Background(), appID, []byte("missing"))
	require.ErrorIs(t, err, ErrUnknownBox)
}

// boxWriterApp stores one box named after the called method.
type boxWriterApp struct{}

func (a *boxWriterApp) Call(call *Call) ([]byte, error) {
	call.BoxSet([]byte(call.Method), []byte("v"))
	return nil, nil
}

func (a *boxWriterApp) AllowDelete(sender, creator Address) bool {
	return sender == creator
}

func TestDeleteApp_OnlyCreator(t *testing.T) {
	creator := newTestSigner(t)
	other := newTestSigner(t)
	l := newTestLedger(t, creator, other)

	appID, err := l.CreateApp(creator.Address(), &stubApp{})
	require.NoError(t, err)

	txn := Transaction{Sender: other.Address(), AppID: appID}
	err = l.DeleteApp(context.Background(), Sign(txn, other))
	require.ErrorIs(t, err, ErrDeleteDenied)

	txn = Transaction{Sender: creator.Address(), AppID: appID}
	require.NoError(t, l.DeleteApp(context.Background(), Sign(txn, creator)))

	_, err = l.ApplicationBoxes(context.Background(), appID)
	require.ErrorIs(t, err, ErrUnknownApp)
}

func TestTransactionEncode_Distinguishes(t *testing.T) {
	a := Transaction{Method: "Start", Args: [][]byte{[]byte("ab"), []byte("c")}}
	b := Transaction{Method: "Start", Args: [][]byte{[]byte("a"), []byte("bc")}}
	assert.NotEqual(t, a.Encode(), b.Encode())
}
