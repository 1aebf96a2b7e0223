package ledger

// App is a program deployed on the ledger. Call runs under the ledger lock,
// so everything an application does through the Call handle is atomic and
// totally ordered relative to every other call on the same ledger.
//
// A typed error returned by Call is a logical guard failure: the transaction
// still commits (the fee stays charged) but any grouped payment is not
// applied. Infrastructure failures (bad signature, unknown app, missing
// funds) are rejected by the ledger before the program ever runs.
type App interface {
	Call(call *Call) ([]byte, error)
	// AllowDelete decides whether sender may delete the deployed application.
	AllowDelete(sender, creator Address) bool
}

// Call is the execution context handed to a running application. It scopes
// box and global-state access to the called app and exposes the app's escrow
// account for inner payments.
type Call struct {
	Sender  Address
	Method  string
	Args    [][]byte
	Payment *Payment

	ledger *Ledger
	app    *appRecord
	callDirty
}

func (c *Call) Creator() Address {
	return c.app.creator
}

func (c *Call) AppAddress() Address {
	return c.app.address
}

func (c *Call) BoxGet(name []byte) ([]byte, bool) {
	value, ok := c.app.boxes[string(name)]
	return value, ok
}

func (c *Call) BoxSet(name, value []byte) {
	c.app.boxes[string(name)] = append([]byte(nil), value...)
	c.markBoxDirty(name)
}

func (c *Call) BoxDelete(name []byte) bool {
	_, ok := c.app.boxes[string(name)]
	if ok {
		delete(c.app.boxes, string(name))
		c.markBoxDirty(name)
	}
	return ok
}

// BoxCount reports how many boxes the application currently holds.
func (c *Call) BoxCount() int {
	return len(c.app.boxes)
}

func (c *Call) GlobalGet(key string) []byte {
	return c.app.globals[key]
}

func (c *Call) GlobalSet(key string, value []byte) {
	c.app.globals[key] = append([]byte(nil), value...)
	c.dirtyGlobals[key] = true
}

// Balance is the application escrow account's current balance.
func (c *Call) Balance() uint64 {
	return c.ledger.accounts[c.app.address]
}

// MinBalance is the minimum the escrow account must retain.
func (c *Call) MinBalance() uint64 {
	return c.app.minBalance
}

// Pay issues an inner payment from the application escrow account.
func (c *Call) Pay(to Address, amount uint64) error {
	if c.ledger.accounts[c.app.address] < amount {
		return ErrInsufficientFunds
	}
	c.ledger.accounts[c.app.address] -= amount
	c.ledger.accounts[to] += amount
	c.dirtyAccounts[c.app.address] = true
	c.dirtyAccounts[to] = true
	return nil
}

// callDirty tracks what a call touched so the ledger can write just those
// entries through to the store afterwards.
type callDirty struct {
	dirtyBoxes    map[string]bool
	dirtyGlobals  map[string]bool
	dirtyAccounts map[Address]bool
}

func newCallDirty() callDirty {
	return callDirty{
		dirtyBoxes:    make(map[string]bool),
		dirtyGlobals:  make(map[string]bool),
		dirtyAccounts: make(map[Address]bool),
	}
}

func (c *Call) markBoxDirty(name []byte) {
	c.dirtyBoxes[string(name)] = true
}
