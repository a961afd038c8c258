package multisig

import (
	"errors"
	"fmt"
	"sort"

	"mpvledger/core/events"
)

var (
	ErrNotSigner          = errors.New("multisig: caller is not a signer")
	ErrUnknownTransaction = errors.New("multisig: unknown transaction")
	ErrAlreadyExecuted    = errors.New("multisig: transaction already executed")
	ErrDuplicateApproval  = errors.New("multisig: duplicate approval")
	ErrNotApproved        = errors.New("multisig: approval not found")
	ErrSignerExists       = errors.New("multisig: signer already exists")
	ErrSignerUnknown      = errors.New("multisig: signer does not exist")
	ErrInvariantViolation = errors.New("multisig: requirement must stay between 1 and the signer count")
	ErrNilExecutor        = errors.New("multisig: executor not configured")
)

// Action is a payload gated behind the wallet's approval flow. Wallet
// self-governance payloads (AddSigner, RemoveSigner, ChangeRequirement) are
// applied by the wallet itself; everything else is forwarded to the configured
// executor once quorum is reached.
type Action interface {
	Kind() string
}

// AddSigner admits a new signer to the wallet once approved.
type AddSigner struct {
	Signer [20]byte
}

func (AddSigner) Kind() string { return "multisig.addSigner" }

// RemoveSigner evicts a signer from the wallet once approved.
type RemoveSigner struct {
	Signer [20]byte
}

func (RemoveSigner) Kind() string { return "multisig.removeSigner" }

// ChangeRequirement replaces the approval threshold once approved.
type ChangeRequirement struct {
	Required int
}

func (ChangeRequirement) Kind() string { return "multisig.changeRequirement" }

// Executor applies a quorum-approved action against the rest of the system.
type Executor interface {
	Execute(action Action) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(action Action) error

func (f ExecutorFunc) Execute(action Action) error { return f(action) }

// Transaction is one proposed action and its accumulated approvals. Once
// executed the record is terminal.
type Transaction struct {
	ID       uint64
	Action   Action
	Approved map[[20]byte]struct{}
	Executed bool
}

// Wallet is an N-of-M approval gate. Every privileged mutation of the system,
// including changes to the wallet's own signer set, must pass through Submit
// and Confirm and only applies once the approval count reaches the configured
// requirement.
type Wallet struct {
	name         string
	signers      map[[20]byte]struct{}
	required     int
	txs          map[uint64]*Transaction
	txCount      uint64
	transactor   [20]byte
	executor     Executor
	onGovernance func()
	emitter      events.Emitter
}

// NewWallet constructs a wallet with the bootstrap signer set. The initial set
// is the only mutation that bypasses the approval flow; everything afterwards
// is self-referential governance.
func NewWallet(name string, signers [][20]byte, required int) (*Wallet, error) {
	w := &Wallet{
		name:    name,
		signers: make(map[[20]byte]struct{}, len(signers)),
		txs:     make(map[uint64]*Transaction),
		emitter: events.NoopEmitter{},
	}
	for _, signer := range signers {
		if signer == ([20]byte{}) {
			return nil, fmt.Errorf("multisig: zero address signer")
		}
		if _, ok := w.signers[signer]; ok {
			return nil, fmt.Errorf("%w: %x", ErrSignerExists, signer)
		}
		w.signers[signer] = struct{}{}
	}
	if err := validRequirement(len(w.signers), required); err != nil {
		return nil, err
	}
	w.required = required
	return w, nil
}

func validRequirement(signerCount, required int) error {
	if signerCount == 0 || required < 1 || required > signerCount {
		return ErrInvariantViolation
	}
	return nil
}

// SetExecutor configures the executor invoked for non-governance actions.
func (w *Wallet) SetExecutor(executor Executor) { w.executor = executor }

// SetGovernanceHook registers a callback invoked after an approved
// self-governance payload changes the signer set or requirement. The registry
// uses it to keep percentage-driven quorums in step with the signer count.
func (w *Wallet) SetGovernanceHook(hook func()) { w.onGovernance = hook }

// SetTransactor designates a module account allowed to submit actions without
// belonging to the signer set. A transactor submission carries no approval;
// quorum must come entirely from signers.
func (w *Wallet) SetTransactor(transactor [20]byte) { w.transactor = transactor }

// SetEmitter configures the event emitter used by the wallet. Passing nil
// resets the emitter to a no-op implementation.
func (w *Wallet) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		w.emitter = events.NoopEmitter{}
		return
	}
	w.emitter = emitter
}

func (w *Wallet) emit(evt events.Event) {
	if w == nil || w.emitter == nil {
		return
	}
	w.emitter.Emit(evt)
}

// Name returns the identifier the wallet was registered under.
func (w *Wallet) Name() string { return w.name }

// IsSigner reports whether the account belongs to the wallet's signer set.
func (w *Wallet) IsSigner(account [20]byte) bool {
	_, ok := w.signers[account]
	return ok
}

// Signers returns the signer set in deterministic order.
func (w *Wallet) Signers() [][20]byte {
	out := make([][20]byte, 0, len(w.signers))
	for signer := range w.signers {
		out = append(out, signer)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}

// SignerCount returns the size of the signer set.
func (w *Wallet) SignerCount() int { return len(w.signers) }

// Required returns the approval threshold.
func (w *Wallet) Required() int { return w.required }

// TransactionCount returns the number of actions ever submitted.
func (w *Wallet) TransactionCount() uint64 { return w.txCount }

// Transaction returns a copy of the stored action record.
func (w *Wallet) Transaction(id uint64) (*Transaction, bool) {
	tx, ok := w.txs[id]
	if !ok {
		return nil, false
	}
	clone := &Transaction{
		ID:       tx.ID,
		Action:   tx.Action,
		Approved: make(map[[20]byte]struct{}, len(tx.Approved)),
		Executed: tx.Executed,
	}
	for signer := range tx.Approved {
		clone.Approved[signer] = struct{}{}
	}
	return clone, true
}

// ApprovalCount returns the number of distinct approvals recorded for an
// action.
func (w *Wallet) ApprovalCount(id uint64) (int, error) {
	tx, ok := w.txs[id]
	if !ok {
		return 0, ErrUnknownTransaction
	}
	return len(tx.Approved), nil
}

// Submit proposes a new action, records the caller's approval, and executes
// immediately when one approval already satisfies the requirement. The
// returned identifier is used for later confirmations.
func (w *Wallet) Submit(caller [20]byte, action Action) (uint64, error) {
	fromTransactor := w.transactor != ([20]byte{}) && caller == w.transactor
	if !fromTransactor && !w.IsSigner(caller) {
		return 0, ErrNotSigner
	}
	if action == nil {
		return 0, fmt.Errorf("multisig: nil action")
	}
	id := w.txCount
	tx := &Transaction{
		ID:       id,
		Action:   action,
		Approved: make(map[[20]byte]struct{}),
	}
	if !fromTransactor {
		tx.Approved[caller] = struct{}{}
	}
	w.txs[id] = tx
	w.txCount++
	w.emit(events.MultisigSubmitted{Wallet: w.name, TxID: id, Kind: action.Kind(), Submitter: caller})
	if len(tx.Approved) >= w.required {
		if err := w.execute(tx); err != nil {
			delete(w.txs, id)
			w.txCount--
			w.emit(events.MultisigExecutionFailed{Wallet: w.name, TxID: id, Kind: action.Kind(), Reason: err.Error()})
			return 0, err
		}
	}
	return id, nil
}

// Confirm records an additional approval and executes the action once the
// requirement is met. A failed execution rolls the approval back so the
// operation is atomic.
func (w *Wallet) Confirm(caller [20]byte, id uint64) error {
	if !w.IsSigner(caller) {
		return ErrNotSigner
	}
	tx, ok := w.txs[id]
	if !ok {
		return ErrUnknownTransaction
	}
	if tx.Executed {
		return ErrAlreadyExecuted
	}
	if _, ok := tx.Approved[caller]; ok {
		return ErrDuplicateApproval
	}
	tx.Approved[caller] = struct{}{}
	if len(tx.Approved) >= w.required {
		if err := w.execute(tx); err != nil {
			delete(tx.Approved, caller)
			w.emit(events.MultisigExecutionFailed{Wallet: w.name, TxID: id, Kind: tx.Action.Kind(), Reason: err.Error()})
			return err
		}
	}
	w.emit(events.MultisigConfirmed{Wallet: w.name, TxID: id, Signer: caller, Approvals: len(tx.Approved)})
	return nil
}

// Revoke withdraws the caller's approval from a pending action. Executed
// actions are immutable.
func (w *Wallet) Revoke(caller [20]byte, id uint64) error {
	if !w.IsSigner(caller) {
		return ErrNotSigner
	}
	tx, ok := w.txs[id]
	if !ok {
		return ErrUnknownTransaction
	}
	if tx.Executed {
		return ErrAlreadyExecuted
	}
	if _, ok := tx.Approved[caller]; !ok {
		return ErrNotApproved
	}
	delete(tx.Approved, caller)
	w.emit(events.MultisigRevoked{Wallet: w.name, TxID: id, Signer: caller})
	return nil
}

func (w *Wallet) execute(tx *Transaction) error {
	if tx.Executed {
		return ErrAlreadyExecuted
	}
	var err error
	selfGoverned := false
	switch action := tx.Action.(type) {
	case AddSigner:
		selfGoverned = true
		err = w.ApplyAddSigner(action.Signer)
	case RemoveSigner:
		selfGoverned = true
		err = w.ApplyRemoveSigner(action.Signer)
	case ChangeRequirement:
		selfGoverned = true
		err = w.ApplyChangeRequirement(action.Required)
	default:
		if w.executor == nil {
			return ErrNilExecutor
		}
		err = w.executor.Execute(tx.Action)
	}
	if err != nil {
		return err
	}
	if selfGoverned && w.onGovernance != nil {
		w.onGovernance()
	}
	tx.Executed = true
	w.emit(events.MultisigExecuted{Wallet: w.name, TxID: tx.ID, Kind: tx.Action.Kind()})
	return nil
}

// ApplyAddSigner admits a signer. Only action dispatch may call this: either
// the wallet's own approved AddSigner payload or a supervising role's
// membership action.
func (w *Wallet) ApplyAddSigner(signer [20]byte) error {
	if signer == ([20]byte{}) {
		return fmt.Errorf("multisig: zero address signer")
	}
	if _, ok := w.signers[signer]; ok {
		return ErrSignerExists
	}
	w.signers[signer] = struct{}{}
	w.emit(events.SignerAdded{Wallet: w.name, Signer: signer})
	return nil
}

// ApplyRemoveSigner evicts a signer. The signer set never becomes empty; the
// requirement is clamped down when the shrunken set would otherwise violate
// the quorum invariant.
func (w *Wallet) ApplyRemoveSigner(signer [20]byte) error {
	if _, ok := w.signers[signer]; !ok {
		return ErrSignerUnknown
	}
	if len(w.signers) == 1 {
		return ErrInvariantViolation
	}
	delete(w.signers, signer)
	w.emit(events.SignerRemoved{Wallet: w.name, Signer: signer})
	if w.required > len(w.signers) {
		w.required = len(w.signers)
		w.emit(events.RequirementChanged{Wallet: w.name, Required: w.required})
	}
	return nil
}

// ApplyChangeRequirement replaces the approval threshold.
func (w *Wallet) ApplyChangeRequirement(required int) error {
	if err := validRequirement(len(w.signers), required); err != nil {
		return err
	}
	w.required = required
	w.emit(events.RequirementChanged{Wallet: w.name, Required: required})
	return nil
}
