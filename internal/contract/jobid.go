package contract

import (
	"encoding/binary"

	"github.com/mirrorledger/textoracle/internal/ledger"
)

const (
	// CounterSize is the big-endian encoded width of the job counter.
	CounterSize = 8

	// JobIDSize is owner address plus counter. The owner prefix makes
	// authorization an O(1) comparison; the strictly increasing counter
	// makes the id unique for the lifetime of the deployment.
	JobIDSize = ledger.AddressSize + CounterSize
)

// MakeJobID derives the job identifier for an owner at a given counter
// value. The byte layout is part of the wire protocol and must not change:
// 32 bytes of owner address followed by 8 bytes of big-endian counter.
func MakeJobID(owner ledger.Address, counter uint64) []byte {
	id := make([]byte, 0, JobIDSize)
	id = append(id, owner[:]...)
	id = binary.BigEndian.AppendUint64(id, counter)
	return id
}

// JobOwner extracts the owner address prefix. ok is false when the id is
// malformed.
func JobOwner(jobID []byte) (ledger.Address, bool) {
	var owner ledger.Address
	if len(jobID) != JobIDSize {
		return owner, false
	}
	copy(owner[:], jobID[:ledger.AddressSize])
	return owner, true
}

// JobCounter extracts the counter segment of a job id.
func JobCounter(jobID []byte) (uint64, bool) {
	if len(jobID) != JobIDSize {
		return 0, false
	}
	return binary.BigEndian.Uint64(jobID[ledger.AddressSize:]), true
}
