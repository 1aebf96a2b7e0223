package contract

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorledger/textoracle/internal/ledger"
)

func TestMakeJobID_ByteLayout(t *testing.T) {
	var owner ledger.Address
	for i := range owner {
		owner[i] = byte(i)
	}

	jobID := MakeJobID(owner, 0x0102030405060708)
	require.Len(t, jobID, JobIDSize)

	assert.Equal(t, owner[:], jobID[:ledger.AddressSize])
	assert.Equal(t,
		[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		jobID[ledger.AddressSize:])
}

func TestJobOwnerAndCounter_RoundTrip(t *testing.T) {
	var owner ledger.Address
	owner[0] = 0xAB

	jobID := MakeJobID(owner, 7)

	got, ok := JobOwner(jobID)
	require.True(t, ok)
	assert.Equal(t, owner, got)

	counter, ok := JobCounter(jobID)
	require.True(t, ok)
	assert.Equal(t, uint64(7), counter)
}

func TestJobOwner_RejectsMalformedIDs(t *testing.T) {
	_, ok := JobOwner(nil)
	assert.False(t, ok)

	_, ok = JobOwner(make([]byte, JobIDSize-1))
	assert.False(t, ok)

	_, ok = JobCounter(make([]byte, JobIDSize+1))
	assert.False(t, ok)
}

func TestJobID_CounterIsBigEndian(t *testing.T) {
	var owner ledger.Address
	jobID := MakeJobID(owner, 1)
	assert.Equal(t, uint64(1), binary.BigEndian.Uint64(jobID[ledger.AddressSize:]))
}
