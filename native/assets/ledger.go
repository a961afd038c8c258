package assets

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"mpvledger/core/events"
	"mpvledger/crypto"
	"mpvledger/native/multisig"
)

var (
	ErrUnknownAsset        = errors.New("assets: unknown asset")
	ErrAssetExists         = errors.New("assets: asset id already used")
	ErrInvalidStatus       = errors.New("assets: asset in wrong lifecycle status")
	ErrNotOwner            = errors.New("assets: caller is not the asset owner")
	ErrInsufficientBalance = errors.New("assets: insufficient balance for redemption")
	ErrMintingRoundActive  = errors.New("assets: minting countdown already running")
	ErrNoMintingRound      = errors.New("assets: no minting round to operate on")
	ErrNoPendingAssets     = errors.New("assets: no pending assets")
	ErrCountdownNotElapsed = errors.New("assets: countdown not elapsed")
	ErrNoActiveLock        = errors.New("assets: no active redemption lock")
	ErrUnauthorized        = errors.New("assets: caller lacks redemption admin authority")

	errNilToken = errors.New("assets: token ledger not configured")
	errNilGate  = errors.New("assets: redemption approval gate not configured")
)

// DefaultCountdown is the default length for the minting and redemption
// countdowns.
const DefaultCountdown = int64(48 * time.Hour / time.Second)

// tokenLedger is the balance surface the ledger settles against. The module
// account derived from "assets" is the only caller the token accepts for
// these privileged moves.
type tokenLedger interface {
	BalanceOf(account [20]byte) *big.Int
	ModuleTransfer(caller, from, to [20]byte, value *big.Int) error
	ModuleTransferCheck(caller, from, to [20]byte, value *big.Int) error
	Mint(caller, account [20]byte, amount *big.Int) error
	Burn(caller, account [20]byte, amount *big.Int) error
}

// approvalGate is the redemption admin wallet surface: redemption countdowns
// start only after its quorum approves, and redemption admin operations
// require membership in its signer set.
type approvalGate interface {
	Submit(caller [20]byte, action multisig.Action) (uint64, error)
	IsSigner(account [20]byte) bool
}

// Ledger is the registry of individual assets and their lifecycle state,
// including the redemption workflow and the minting round machinery.
type Ledger struct {
	assets  map[uint64]*Asset
	usedIDs map[uint64]struct{}
	locks   map[uint64]*RedemptionLock

	pendingIDs             []uint64
	mintingCountdownStart  int64
	mintingCountdownLength int64

	redemptionCountdowns      map[uint64]int64
	redemptionCountdownLength int64
	redemptionFee             *big.Int
	feeReceiver               [20]byte
	mintingReceiver           [20]byte

	escrow  [20]byte
	token   tokenLedger
	gate    approvalGate
	nowFn   func() int64
	emitter events.Emitter
}

// NewLedger constructs an empty asset ledger. The token ledger and redemption
// gate must be wired before any redemption or minting operation.
func NewLedger(redemptionFee *big.Int, feeReceiver, mintingReceiver [20]byte) *Ledger {
	fee := big.NewInt(0)
	if redemptionFee != nil {
		fee = new(big.Int).Set(redemptionFee)
	}
	return &Ledger{
		assets:                    make(map[uint64]*Asset),
		usedIDs:                   make(map[uint64]struct{}),
		locks:                     make(map[uint64]*RedemptionLock),
		redemptionCountdowns:      make(map[uint64]int64),
		mintingCountdownLength:    DefaultCountdown,
		redemptionCountdownLength: DefaultCountdown,
		redemptionFee:             fee,
		feeReceiver:               feeReceiver,
		mintingReceiver:           mintingReceiver,
		escrow:                    crypto.ModuleAddress("assets"),
		nowFn:                     func() int64 { return time.Now().Unix() },
		emitter:                   events.NoopEmitter{},
	}
}

// SetToken wires the balance ledger used for escrow, minting, and burning.
func (l *Ledger) SetToken(token tokenLedger) { l.token = token }

// SetRedemptionGate wires the redemption admin wallet.
func (l *Ledger) SetRedemptionGate(gate approvalGate) { l.gate = gate }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		l.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	l.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// EscrowAccount returns the module account holding redemption escrow.
func (l *Ledger) EscrowAccount() [20]byte { return l.escrow }

// --- parameters ---

// SetRedemptionFee replaces the flat fee charged on redemption requests.
func (l *Ledger) SetRedemptionFee(fee *big.Int) error {
	if fee == nil || fee.Sign() < 0 {
		return fmt.Errorf("assets: redemption fee must be non-negative")
	}
	l.redemptionFee = new(big.Int).Set(fee)
	return nil
}

// RedemptionFee returns the currently configured redemption fee.
func (l *Ledger) RedemptionFee() *big.Int { return new(big.Int).Set(l.redemptionFee) }

// SetFeeReceiver replaces the account credited with redemption fees.
func (l *Ledger) SetFeeReceiver(account [20]byte) error {
	if account == ([20]byte{}) {
		return fmt.Errorf("assets: zero fee receiver")
	}
	l.feeReceiver = account
	return nil
}

// FeeReceiver returns the account credited with redemption fees.
func (l *Ledger) FeeReceiver() [20]byte { return l.feeReceiver }

// SetMintingReceiver replaces the account credited by minting rounds.
func (l *Ledger) SetMintingReceiver(account [20]byte) error {
	if account == ([20]byte{}) {
		return fmt.Errorf("assets: zero minting receiver")
	}
	l.mintingReceiver = account
	return nil
}

// MintingReceiver returns the account credited by minting rounds.
func (l *Ledger) MintingReceiver() [20]byte { return l.mintingReceiver }

// SetMintingCountdownLength replaces the minting countdown length in seconds.
func (l *Ledger) SetMintingCountdownLength(seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("assets: negative countdown length")
	}
	l.mintingCountdownLength = seconds
	return nil
}

// MintingCountdownLength returns the minting countdown length in seconds.
func (l *Ledger) MintingCountdownLength() int64 { return l.mintingCountdownLength }

// SetRedemptionCountdownLength replaces the redemption countdown length in
// seconds.
func (l *Ledger) SetRedemptionCountdownLength(seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("assets: negative countdown length")
	}
	l.redemptionCountdownLength = seconds
	return nil
}

// RedemptionCountdownLength returns the redemption countdown length in
// seconds.
func (l *Ledger) RedemptionCountdownLength() int64 { return l.redemptionCountdownLength }

// --- queries ---

// Get returns a copy of the stored asset.
func (l *Ledger) Get(id uint64) (*Asset, bool) {
	asset, ok := l.assets[id]
	if !ok {
		return nil, false
	}
	return asset.Clone(), true
}

// PendingCount returns the number of assets in the current minting round.
func (l *Ledger) PendingCount() int { return len(l.pendingIDs) }

// MintingCountdownStart returns the start of the active minting countdown, or
// zero when no countdown is running.
func (l *Ledger) MintingCountdownStart() int64 { return l.mintingCountdownStart }

// RedemptionCountdownStart returns the start of an asset's redemption
// countdown, or zero when the countdown has not been approved yet.
func (l *Ledger) RedemptionCountdownStart(id uint64) int64 { return l.redemptionCountdowns[id] }

// RedemptionLockOf returns a copy of the active redemption lock for an asset.
func (l *Ledger) RedemptionLockOf(id uint64) (*RedemptionLock, bool) {
	lock, ok := l.locks[id]
	if !ok {
		return nil, false
	}
	return lock.Clone(), true
}

// StatusTotalTokens sums the token value of all assets currently in the given
// status.
func (l *Ledger) StatusTotalTokens(status Status) *big.Int {
	total := big.NewInt(0)
	for _, asset := range l.assets {
		if asset.Status == status {
			total.Add(total, asset.Tokens)
		}
	}
	return total
}

// CollateralizedTokens sums the token value over all statuses that back
// circulating supply.
func (l *Ledger) CollateralizedTokens() *big.Int {
	total := big.NewInt(0)
	for _, asset := range l.assets {
		if asset.Status.Collateralized() {
			total.Add(total, asset.Tokens)
		}
	}
	return total
}

// --- minting round ---

func (l *Ledger) validatePending(asset *Asset, staged map[uint64]struct{}) error {
	if asset == nil {
		return fmt.Errorf("assets: nil asset")
	}
	if asset.ID == 0 {
		return fmt.Errorf("assets: zero asset id")
	}
	if _, ok := l.usedIDs[asset.ID]; ok {
		return fmt.Errorf("%w: %d", ErrAssetExists, asset.ID)
	}
	if _, ok := staged[asset.ID]; ok {
		return fmt.Errorf("%w: %d", ErrAssetExists, asset.ID)
	}
	if asset.Owner == ([20]byte{}) {
		return fmt.Errorf("assets: zero owner")
	}
	if asset.Tokens == nil || asset.Tokens.Sign() <= 0 {
		return fmt.Errorf("assets: token value must be positive")
	}
	return nil
}

// AddPendingAssets registers new assets in Pending status for the current
// minting round. The call is atomic and fails outright while a minting
// countdown is active.
func (l *Ledger) AddPendingAssets(newAssets []*Asset) error {
	if l.mintingCountdownStart != 0 {
		return ErrMintingRoundActive
	}
	if len(newAssets) == 0 {
		return ErrNoPendingAssets
	}
	staged := make(map[uint64]struct{}, len(newAssets))
	for _, asset := range newAssets {
		if err := l.validatePending(asset, staged); err != nil {
			return err
		}
		staged[asset.ID] = struct{}{}
	}
	now := l.nowFn()
	for _, asset := range newAssets {
		stored := asset.Clone()
		stored.Status = StatusPending
		stored.Timestamp = now
		l.assets[stored.ID] = stored
		l.usedIDs[stored.ID] = struct{}{}
		l.pendingIDs = append(l.pendingIDs, stored.ID)
		l.emitter.Emit(events.AssetAdded{ID: stored.ID, Tokens: stored.Tokens, Owner: stored.Owner, Status: stored.Status.String()})
	}
	return nil
}

// RemovePendingAsset withdraws a pending asset from the round before any
// countdown starts. The identifier stays burned and is never reused.
func (l *Ledger) RemovePendingAsset(id uint64) error {
	if l.mintingCountdownStart != 0 {
		return ErrMintingRoundActive
	}
	asset, ok := l.assets[id]
	if !ok {
		return ErrUnknownAsset
	}
	if asset.Status != StatusPending {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	delete(l.assets, id)
	for i, pending := range l.pendingIDs {
		if pending == id {
			l.pendingIDs = append(l.pendingIDs[:i], l.pendingIDs[i+1:]...)
			break
		}
	}
	return nil
}

// ConfirmPendingAssets starts the minting countdown over the current pending
// set. It is reachable only through the minting admin wallet's quorum.
func (l *Ledger) ConfirmPendingAssets() error {
	if l.mintingCountdownStart != 0 {
		return ErrMintingRoundActive
	}
	if len(l.pendingIDs) == 0 {
		return ErrNoPendingAssets
	}
	start := l.nowFn()
	l.mintingCountdownStart = start
	l.emitter.Emit(events.MintingRoundStarted{CountdownStart: start, PendingAssets: len(l.pendingIDs)})
	return nil
}

// CancelMintingRound zeroes the active countdown. Pending assets stay pending
// and need a fresh quorum confirmation before they can be enlisted.
func (l *Ledger) CancelMintingRound() error {
	if l.mintingCountdownStart == 0 {
		return ErrNoMintingRound
	}
	l.mintingCountdownStart = 0
	l.emitter.Emit(events.MintingRoundCancelled{PendingAssets: len(l.pendingIDs)})
	return nil
}

// FinalizeMinting enlists every pending asset once the minting countdown has
// elapsed, minting each asset's token value to the minting receiver. Anyone
// may trigger the refresh; the countdown is the gate.
func (l *Ledger) FinalizeMinting() error {
	if l.token == nil {
		return errNilToken
	}
	if l.mintingCountdownStart == 0 {
		return ErrNoMintingRound
	}
	if l.nowFn() < l.mintingCountdownStart+l.mintingCountdownLength {
		return ErrCountdownNotElapsed
	}
	minted := big.NewInt(0)
	enlisted := 0
	for _, id := range l.pendingIDs {
		asset := l.assets[id]
		if asset == nil || asset.Status != StatusPending {
			continue
		}
		if err := l.token.Mint(l.escrow, l.mintingReceiver, asset.Tokens); err != nil {
			return err
		}
		asset.Status = StatusEnlisted
		minted.Add(minted, asset.Tokens)
		enlisted++
		l.emitter.Emit(events.AssetStatusChanged{ID: id, Status: asset.Status.String()})
	}
	l.pendingIDs = nil
	l.mintingCountdownStart = 0
	l.emitter.Emit(events.MintingFinalized{Enlisted: enlisted, Minted: minted, Receiver: l.mintingReceiver})
	return nil
}

// --- reserved side-state ---

// SetReserved moves an enlisted asset into the Reserved side-state, excluding
// it from redemption without breaking collateralization.
func (l *Ledger) SetReserved(id uint64) error {
	asset, ok := l.assets[id]
	if !ok {
		return ErrUnknownAsset
	}
	if asset.Status != StatusEnlisted {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	asset.Status = StatusReserved
	l.emitter.Emit(events.AssetStatusChanged{ID: id, Status: asset.Status.String()})
	return nil
}

// SetEnlisted moves a reserved asset back to Enlisted.
func (l *Ledger) SetEnlisted(id uint64) error {
	asset, ok := l.assets[id]
	if !ok {
		return ErrUnknownAsset
	}
	if asset.Status != StatusReserved {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	asset.Status = StatusEnlisted
	l.emitter.Emit(events.AssetStatusChanged{ID: id, Status: asset.Status.String()})
	return nil
}

// --- redemption workflow ---

// RequestRedemption locks an enlisted asset for redemption. The caller must
// own the asset and hold the asset's token value plus the redemption fee. The
// fee is credited to the fee receiver immediately; the token value moves into
// the ledger's escrow account until the redemption executes or unwinds. A
// countdown-start action is submitted to the redemption admin wallet and its
// identifier returned for confirmation.
func (l *Ledger) RequestRedemption(caller [20]byte, id uint64) (uint64, error) {
	if l.token == nil {
		return 0, errNilToken
	}
	if l.gate == nil {
		return 0, errNilGate
	}
	asset, ok := l.assets[id]
	if !ok {
		return 0, ErrUnknownAsset
	}
	if asset.Status != StatusEnlisted {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	if asset.Owner != caller {
		return 0, ErrNotOwner
	}
	cost := new(big.Int).Add(asset.Tokens, l.redemptionFee)
	if l.token.BalanceOf(caller).Cmp(cost) < 0 {
		return 0, ErrInsufficientBalance
	}
	// Both settlement moves are checked before any effect lands, so a pause
	// or a non-whitelisted receiver surfaces while the request is still a
	// no-op. The moves below cannot fail once the checks pass.
	if l.redemptionFee.Sign() > 0 {
		if err := l.token.ModuleTransferCheck(l.escrow, caller, l.feeReceiver, l.redemptionFee); err != nil {
			return 0, err
		}
	}
	if err := l.token.ModuleTransferCheck(l.escrow, caller, l.escrow, asset.Tokens); err != nil {
		return 0, err
	}
	txID, err := l.gate.Submit(l.escrow, StartRedemptionCountdown{AssetID: id})
	if err != nil {
		return 0, err
	}
	if l.redemptionFee.Sign() > 0 {
		if err := l.token.ModuleTransfer(l.escrow, caller, l.feeReceiver, l.redemptionFee); err != nil {
			return 0, err
		}
	}
	if err := l.token.ModuleTransfer(l.escrow, caller, l.escrow, asset.Tokens); err != nil {
		return 0, err
	}
	l.locks[id] = &RedemptionLock{Account: caller, Amount: new(big.Int).Set(asset.Tokens)}
	asset.Status = StatusLocked
	l.emitter.Emit(events.RedemptionRequested{AssetID: id, Account: caller, Amount: asset.Tokens, Fee: l.redemptionFee})
	return txID, nil
}

// StartRedemptionCountdownFor records the quorum-approved countdown start for
// a locked asset. Reachable only through the redemption admin wallet's
// execution path.
func (l *Ledger) StartRedemptionCountdownFor(id uint64) error {
	asset, ok := l.assets[id]
	if !ok {
		return ErrUnknownAsset
	}
	if asset.Status != StatusLocked {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	if l.redemptionCountdowns[id] != 0 {
		return fmt.Errorf("assets: redemption countdown already started for %d", id)
	}
	l.redemptionCountdowns[id] = l.nowFn()
	return nil
}

func (l *Ledger) unwindRedemption(id uint64) (*RedemptionLock, error) {
	asset, ok := l.assets[id]
	if !ok {
		return nil, ErrUnknownAsset
	}
	if asset.Status != StatusLocked {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	lock, ok := l.locks[id]
	if !ok {
		return nil, ErrNoActiveLock
	}
	if err := l.token.ModuleTransfer(l.escrow, l.escrow, lock.Account, lock.Amount); err != nil {
		return nil, err
	}
	delete(l.locks, id)
	delete(l.redemptionCountdowns, id)
	asset.Status = StatusEnlisted
	return lock, nil
}

// CancelRedemption unwinds a redemption request, refunding the escrowed
// amount. Only the lock's account may cancel.
func (l *Ledger) CancelRedemption(caller [20]byte, id uint64) error {
	if l.token == nil {
		return errNilToken
	}
	lock, ok := l.locks[id]
	if !ok {
		return ErrNoActiveLock
	}
	if lock.Account != caller {
		return fmt.Errorf("%w: only the lock account may cancel", ErrUnauthorized)
	}
	unwound, err := l.unwindRedemption(id)
	if err != nil {
		return err
	}
	l.emitter.Emit(events.RedemptionCancelled{AssetID: id, Account: unwound.Account, Amount: unwound.Amount})
	return nil
}

// RejectRedemption unwinds a redemption on the redemption admin's authority.
func (l *Ledger) RejectRedemption(caller [20]byte, id uint64) error {
	if l.token == nil {
		return errNilToken
	}
	if l.gate == nil {
		return errNilGate
	}
	if !l.gate.IsSigner(caller) {
		return ErrUnauthorized
	}
	lock, err := l.unwindRedemption(id)
	if err != nil {
		return err
	}
	l.emitter.Emit(events.RedemptionRejected{AssetID: id, Account: lock.Account, Amount: lock.Amount})
	return nil
}

// ExecuteRedemption burns the escrowed amount and retires the asset once the
// approved countdown has elapsed. Redemption admin signers only. The asset
// record is retained as a terminal historical entry.
func (l *Ledger) ExecuteRedemption(caller [20]byte, id uint64) error {
	if l.token == nil {
		return errNilToken
	}
	if l.gate == nil {
		return errNilGate
	}
	if !l.gate.IsSigner(caller) {
		return ErrUnauthorized
	}
	asset, ok := l.assets[id]
	if !ok {
		return ErrUnknownAsset
	}
	if asset.Status != StatusLocked {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, asset.Status)
	}
	lock, ok := l.locks[id]
	if !ok || lock.Amount.Sign() == 0 {
		return ErrNoActiveLock
	}
	start := l.redemptionCountdowns[id]
	if start == 0 || l.nowFn() < start+l.redemptionCountdownLength {
		return ErrCountdownNotElapsed
	}
	if err := l.token.Burn(l.escrow, l.escrow, lock.Amount); err != nil {
		return err
	}
	delete(l.locks, id)
	delete(l.redemptionCountdowns, id)
	asset.Status = StatusRedeemed
	l.emitter.Emit(events.RedemptionExecuted{AssetID: id, Burned: lock.Amount})
	return nil
}
