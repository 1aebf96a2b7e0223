package ledger

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressSize is the length of an account address in bytes. An address is
// the account's ed25519 public key, so ownership is provable by signature
// verification alone.
const AddressSize = 32

type Address [AddressSize]byte

// String renders the address in base58 for logs and API responses.
func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress decodes a base58 address string.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := base58.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != AddressSize {
		return addr, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// AddressFromPublicKey converts an ed25519 public key to its address form.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	var addr Address
	copy(addr[:], pub)
	return addr
}

// Signer signs transactions on behalf of one account. Implemented by
// wallet.Account; tests may supply their own.
type Signer interface {
	Address() Address
	Sign(msg []byte) []byte
}

// Payment is a native funds transfer. It may ride along with an application
// call as the call's grouped payment.
type Payment struct {
	Sender   Address
	Receiver Address
	Amount   uint64
}

// Transaction is an application call to be executed atomically by the ledger.
// Method carries the ABI-style selector ("Start", "Classify", ...) and Args the
// selector-specific arguments.
type Transaction struct {
	Sender  Address
	AppID   uint64
	Method  string
	Args    [][]byte
	Payment *Payment
	Fee     uint64
	Note    string
}

// Encode produces the canonical byte form of the transaction used for
// signing. Fields are length-prefixed so no two distinct transactions share
// an encoding.
func (t Transaction) Encode() []byte {
	buf := make([]byte, 0, 128)
	appendBytes := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		buf = append(buf, n[:]...)
		buf = append(buf, b...)
	}
	appendUint := func(v uint64) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], v)
		buf = append(buf, n[:]...)
	}

	appendBytes(t.Sender[:])
	appendUint(t.AppID)
	appendBytes([]byte(t.Method))
	appendUint(uint64(len(t.Args)))
	for _, arg := range t.Args {
		appendBytes(arg)
	}
	if t.Payment != nil {
		buf = append(buf, 1)
		appendBytes(t.Payment.Sender[:])
		appendBytes(t.Payment.Receiver[:])
		appendUint(t.Payment.Amount)
	} else {
		buf = append(buf, 0)
	}
	appendUint(t.Fee)
	appendBytes([]byte(t.Note))
	return buf
}

// SignedTransaction pairs a transaction with the sender's signature over its
// canonical encoding.
type SignedTransaction struct {
	Txn Transaction
	Sig []byte
}

// Sign builds a signed transaction. The signer must control the transaction's
// sender address.
func Sign(txn Transaction, signer Signer) SignedTransaction {
	return SignedTransaction{
		Txn: txn,
		Sig: signer.Sign(txn.Encode()),
	}
}

// Params mirrors the get-transaction-params RPC: the metadata a client needs
// to build a valid transaction.
type Params struct {
	MinFee uint64
}
