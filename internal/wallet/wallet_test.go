package wallet

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMnemonic_IsDeterministic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)

	a, err := FromMnemonic(mnemonic, "")
	require.NoError(t, err)
	b, err := FromMnemonic(mnemonic, "")
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
}

func TestFromMnemonic_PassphraseChangesAddress(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)

	plain, err := FromMnemonic(mnemonic, "")
	require.NoError(t, err)
	protected, err := FromMnemonic(mnemonic, "hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, plain.Address(), protected.Address())
}

func TestFromMnemonic_RejectsGarbage(t *testing.T) {
	_, err := FromMnemonic("definitely not a mnemonic", "")
	require.Error(t, err)
}

func TestSign_VerifiesAgainstAddress(t *testing.T) {
	account, err := NewRandom()
	require.NoError(t, err)

	msg := []byte("hello ledger")
	sig := account.Sign(msg)

	addr := account.Address()
	assert.True(t, ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig))
}
