// Package wallet provisions demo accounts: a BIP-39 mnemonic is stretched
// through HKDF into an ed25519 signing key, and the public key doubles as the
// ledger address.
package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"

	"github.com/mirrorledger/textoracle/internal/ledger"
)

const hkdfInfoSigning = "textoracle/account/signing/v1"

// Account holds one account's signing key. It satisfies ledger.Signer.
type Account struct {
	priv ed25519.PrivateKey
	addr ledger.Address
}

// NewMnemonic generates a fresh 24-word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// FromMnemonic derives the account deterministically from a mnemonic and an
// optional passphrase. The same mnemonic always yields the same address.
func FromMnemonic(mnemonic, passphrase string) (*Account, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)

	signingSeed, err := hkdfExpand(seed, hkdfInfoSigning, ed25519.SeedSize)
	if err != nil {
		return nil, fmt.Errorf("derive signing seed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(signingSeed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Account{
		priv: priv,
		addr: ledger.AddressFromPublicKey(pub),
	}, nil
}

// NewRandom creates a throwaway account with a fresh mnemonic.
func NewRandom() (*Account, error) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic, "")
}

func (a *Account) Address() ledger.Address {
	return a.addr
}

func (a *Account) Sign(msg []byte) []byte {
	return ed25519.Sign(a.priv, msg)
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
