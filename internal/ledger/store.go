package ledger

import "context"

// Store persists ledger state so a node restart resumes with committed
// balances, boxes and global state. The ledger writes through after each
// committed transaction; a nil store keeps everything in memory.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	SaveAccount(ctx context.Context, addr Address, balance uint64) error
	SaveApp(ctx context.Context, state AppState) error
	SaveGlobal(ctx context.Context, appID uint64, key string, value []byte) error
	SaveBox(ctx context.Context, appID uint64, name, value []byte) error
	DeleteBox(ctx context.Context, appID uint64, name []byte) error
}

// Snapshot is the full persisted ledger state.
type Snapshot struct {
	Accounts map[Address]uint64
	Apps     []AppState
}

// AppState is the persistable part of a deployed application. Programs are
// code, not state: after a restart the operator rebinds the program to its
// app id with Ledger.BindProgram.
type AppState struct {
	ID         uint64
	Creator    Address
	MinBalance uint64
	Globals    map[string][]byte
	Boxes      map[string][]byte
}
