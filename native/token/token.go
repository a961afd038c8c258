package token

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"mpvledger/core/events"
)

var (
	ErrPaused                 = errors.New("token: system paused")
	ErrNotWhitelisted         = errors.New("token: recipient not whitelisted")
	ErrInsufficientBalance    = errors.New("token: insufficient balance")
	ErrInsufficientAllowance  = errors.New("token: insufficient allowance")
	ErrUnauthorized           = errors.New("token: caller not authorized")
	ErrNoSuchTransfer         = errors.New("token: no such delayed transfer")
	ErrCountdownNotElapsed    = errors.New("token: countdown not elapsed")
	ErrUnknownRestrictionCode = errors.New("token: unknown restriction code")
	ErrZeroSweepKey           = errors.New("token: address derives a zero sweep key")
)

const (
	// DailyLimitWindow is the rolling window length the daily limit applies
	// over.
	DailyLimitWindow = int64(24 * time.Hour / time.Second)
	// DefaultCountdown is the default length for the delayed-transfer and
	// daily-limit-update countdowns.
	DefaultCountdown = int64(48 * time.Hour / time.Second)
)

// WhitelistView is the read surface of the transfer allow-list.
type WhitelistView interface {
	IsWhitelisted(account [20]byte) bool
}

// PauseView reports whether the system-wide pause switch is engaged.
type PauseView interface {
	IsPaused() bool
}

// Token is the fungible balance ledger with transfer restrictions: whitelist
// gating, rolling daily limits with delayed large transfers, and sweep-address
// normalization for exchange deposit addresses. All amounts are fixed-point
// integers scaled by the configured decimal count.
type Token struct {
	name     string
	symbol   string
	decimals uint8

	balances    map[[20]byte]*big.Int
	allowances  map[[20]byte]map[[20]byte]*big.Int
	totalSupply *big.Int

	whitelist WhitelistView
	pause     PauseView

	mintingAdmin    [20]byte
	redemptionAdmin [20]byte
	ledgerModule    [20]byte

	dailyLimit                      *big.Int
	pendingDailyLimit               *big.Int
	dailyLimitUpdateStart           int64
	updateDailyLimitCountdownLength int64
	windows                         map[[20]byte]*limitWindow

	delayedTransfers               map[uint64]*DelayedTransfer
	delayedTransferCount           uint64
	delayedTransferCountdownLength int64

	sweepAddresses map[[20]byte][20]byte

	nowFn   func() int64
	emitter events.Emitter
}

// New constructs a token ledger with zero supply and restrictions disabled
// until the collaborating views are wired.
func New(name, symbol string, decimals uint8) *Token {
	return &Token{
		name:                            name,
		symbol:                          symbol,
		decimals:                        decimals,
		balances:                        make(map[[20]byte]*big.Int),
		allowances:                      make(map[[20]byte]map[[20]byte]*big.Int),
		totalSupply:                     big.NewInt(0),
		dailyLimit:                      big.NewInt(0),
		windows:                         make(map[[20]byte]*limitWindow),
		delayedTransfers:                make(map[uint64]*DelayedTransfer),
		delayedTransferCountdownLength:  DefaultCountdown,
		updateDailyLimitCountdownLength: DefaultCountdown,
		sweepAddresses:                  make(map[[20]byte][20]byte),
		nowFn:                           func() int64 { return time.Now().Unix() },
		emitter:                         events.NoopEmitter{},
	}
}

// SetWhitelist wires the allow-list consulted on every credit.
func (t *Token) SetWhitelist(view WhitelistView) { t.whitelist = view }

// SetPauseView wires the system pause switch.
func (t *Token) SetPauseView(view PauseView) { t.pause = view }

// SetMintingAdmin configures the only account allowed to mint.
func (t *Token) SetMintingAdmin(account [20]byte) { t.mintingAdmin = account }

// SetRedemptionAdmin configures the only account allowed to burn.
func (t *Token) SetRedemptionAdmin(account [20]byte) { t.redemptionAdmin = account }

// SetLedgerModule configures the module account allowed to settle balances
// directly (redemption escrow and fees).
func (t *Token) SetLedgerModule(account [20]byte) { t.ledgerModule = account }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (t *Token) SetNowFunc(now func() int64) {
	if now == nil {
		t.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	t.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (t *Token) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the fixed-point scaling of all amounts.
func (t *Token) Decimals() uint8 { return t.decimals }

// TotalSupply returns the circulating supply.
func (t *Token) TotalSupply() *big.Int { return new(big.Int).Set(t.totalSupply) }

// BalanceOf returns the spendable balance of an account.
func (t *Token) BalanceOf(account [20]byte) *big.Int {
	if bal, ok := t.balances[account]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Allowance returns the amount spender may move on owner's behalf.
func (t *Token) Allowance(owner, spender [20]byte) *big.Int {
	if spenders, ok := t.allowances[owner]; ok {
		if allowance, ok := spenders[spender]; ok {
			return new(big.Int).Set(allowance)
		}
	}
	return big.NewInt(0)
}

// Approve authorizes spender to move up to value from owner's balance.
func (t *Token) Approve(owner, spender [20]byte, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("token: negative approval")
	}
	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[[20]byte]*big.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(value)
	t.emitter.Emit(events.Approval{Owner: owner, Spender: spender, Value: value})
	return nil
}

func (t *Token) consumeAllowance(owner, spender [20]byte, value *big.Int) error {
	spenders, ok := t.allowances[owner]
	if !ok {
		return ErrInsufficientAllowance
	}
	allowance, ok := spenders[spender]
	if !ok || allowance.Cmp(value) < 0 {
		return ErrInsufficientAllowance
	}
	remaining := new(big.Int).Sub(allowance, value)
	spenders[spender] = remaining
	t.emitter.Emit(events.Approval{Owner: owner, Spender: spender, Value: remaining})
	return nil
}

// --- sweep addresses ---

// ComputeSweepKey derives the canonical key for an exchange deposit address by
// dropping the low 20 bits, so every address sharing the high 140-bit prefix
// maps to the same key.
func ComputeSweepKey(account [20]byte) [20]byte {
	shifted := new(big.Int).SetBytes(account[:])
	shifted.Rsh(shifted, 20)
	var key [20]byte
	shifted.FillBytes(key[:])
	return key
}

// UpdateSweepAddress maps every deposit address sharing the given address's
// sweep key to the canonical exchange account.
func (t *Token) UpdateSweepAddress(account, exchange [20]byte) error {
	if exchange == ([20]byte{}) {
		return fmt.Errorf("token: zero exchange address")
	}
	key := ComputeSweepKey(account)
	if key == ([20]byte{}) {
		return ErrZeroSweepKey
	}
	t.sweepAddresses[key] = exchange
	t.emitter.Emit(events.SweepAddressUpdated{SweepKey: key, Exchange: exchange})
	return nil
}

// SweepAddressFor returns the exchange account mapped to an address's sweep
// key, if any.
func (t *Token) SweepAddressFor(account [20]byte) ([20]byte, bool) {
	exchange, ok := t.sweepAddresses[ComputeSweepKey(account)]
	return exchange, ok
}

func (t *Token) resolveRecipient(to [20]byte) ([20]byte, bool) {
	if exchange, ok := t.sweepAddresses[ComputeSweepKey(to)]; ok {
		return exchange, true
	}
	return to, false
}

// --- daily limit ---

// SetInitialDailyLimit seeds the daily limit at bootstrap, bypassing the
// update countdown. Changes after bootstrap go through UpdateDailyLimit.
func (t *Token) SetInitialDailyLimit(limit *big.Int) error {
	if limit == nil || limit.Sign() < 0 {
		return fmt.Errorf("token: negative daily limit")
	}
	t.dailyLimit = new(big.Int).Set(limit)
	return nil
}

// UpdateDailyLimit stages a new daily limit behind the update countdown. The
// staged value takes effect lazily once the countdown elapses. A zero limit
// disables the check.
func (t *Token) UpdateDailyLimit(limit *big.Int) error {
	if limit == nil || limit.Sign() < 0 {
		return fmt.Errorf("token: negative daily limit")
	}
	start := t.nowFn()
	t.pendingDailyLimit = new(big.Int).Set(limit)
	t.dailyLimitUpdateStart = start
	t.emitter.Emit(events.DailyLimitUpdatePending{Limit: limit, CountdownStart: start})
	return nil
}

// DailyLimit returns the limit in force at the current time.
func (t *Token) DailyLimit() *big.Int {
	return new(big.Int).Set(t.effectiveDailyLimit(t.nowFn()))
}

func (t *Token) effectiveDailyLimit(now int64) *big.Int {
	if t.pendingDailyLimit != nil && now >= t.dailyLimitUpdateStart+t.updateDailyLimitCountdownLength {
		return t.pendingDailyLimit
	}
	return t.dailyLimit
}

func (t *Token) refreshDailyLimit(now int64) {
	if t.pendingDailyLimit != nil && now >= t.dailyLimitUpdateStart+t.updateDailyLimitCountdownLength {
		t.dailyLimit = t.pendingDailyLimit
		t.pendingDailyLimit = nil
		t.dailyLimitUpdateStart = 0
		t.emitter.Emit(events.DailyLimitUpdated{Limit: t.dailyLimit})
	}
}

func (t *Token) spentInWindow(account [20]byte, now int64) *big.Int {
	window, ok := t.windows[account]
	if !ok || now >= window.start+DailyLimitWindow {
		return big.NewInt(0)
	}
	return window.spent
}

func (t *Token) recordSpend(account [20]byte, now int64, value *big.Int) {
	window, ok := t.windows[account]
	if !ok || now >= window.start+DailyLimitWindow {
		t.windows[account] = &limitWindow{start: now, spent: new(big.Int).Set(value)}
		return
	}
	window.spent = new(big.Int).Add(window.spent, value)
}

// SpentToday returns the amount the account has spent in its current window.
func (t *Token) SpentToday(account [20]byte) *big.Int {
	return new(big.Int).Set(t.spentInWindow(account, t.nowFn()))
}

// SetDelayedTransferCountdownLength replaces the delayed-transfer countdown in
// seconds.
func (t *Token) SetDelayedTransferCountdownLength(seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("token: negative countdown length")
	}
	t.delayedTransferCountdownLength = seconds
	return nil
}

// DelayedTransferCountdownLength returns the delayed-transfer countdown in
// seconds.
func (t *Token) DelayedTransferCountdownLength() int64 { return t.delayedTransferCountdownLength }

// SetUpdateDailyLimitCountdownLength replaces the daily-limit-update countdown
// in seconds.
func (t *Token) SetUpdateDailyLimitCountdownLength(seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("token: negative countdown length")
	}
	t.updateDailyLimitCountdownLength = seconds
	return nil
}

// UpdateDailyLimitCountdownLength returns the daily-limit-update countdown in
// seconds.
func (t *Token) UpdateDailyLimitCountdownLength() int64 { return t.updateDailyLimitCountdownLength }

// --- transfer pipeline ---

func (t *Token) guard() error {
	if t.pause != nil && t.pause.IsPaused() {
		return ErrPaused
	}
	return nil
}

func (t *Token) requireWhitelisted(account [20]byte) error {
	if t.whitelist == nil || !t.whitelist.IsWhitelisted(account) {
		return ErrNotWhitelisted
	}
	return nil
}

func (t *Token) move(from, to [20]byte, value *big.Int) error {
	fromBal := t.BalanceOf(from)
	if fromBal.Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[from] = fromBal.Sub(fromBal, value)
	t.balances[to] = new(big.Int).Add(t.BalanceOf(to), value)
	return nil
}

func (t *Token) initiateDelayed(from, to [20]byte, value *big.Int, method TransferMethod, spender [20]byte) *DelayedTransfer {
	id := t.delayedTransferCount
	t.delayedTransferCount++
	dt := &DelayedTransfer{
		ID:             id,
		From:           from,
		To:             to,
		Value:          new(big.Int).Set(value),
		Method:         method,
		Spender:        spender,
		CountdownStart: t.nowFn(),
	}
	t.delayedTransfers[id] = dt
	t.emitter.Emit(events.DelayedTransferInitiated{
		ID:             id,
		From:           from,
		To:             to,
		Value:          dt.Value,
		Method:         method.String(),
		CountdownStart: dt.CountdownStart,
	})
	return dt
}

// Transfer moves value from the sender to the recipient, subject to the full
// restriction pipeline. A transfer that would breach the sender's daily limit
// moves no balance; it is converted into a delayed transfer and the result
// carries its identifier.
func (t *Token) Transfer(from, to [20]byte, value *big.Int) (*Result, error) {
	if value == nil || value.Sign() <= 0 {
		return nil, fmt.Errorf("token: transfer amount must be positive")
	}
	now := t.nowFn()
	t.refreshDailyLimit(now)
	effectiveTo, swept := t.resolveRecipient(to)
	if err := t.guard(); err != nil {
		return nil, err
	}
	if err := t.requireWhitelisted(effectiveTo); err != nil {
		t.emitter.Emit(events.TransferRestricted{From: from, To: effectiveTo, Value: value, Code: uint8(CodeNotWhitelisted)})
		return nil, err
	}
	limit := t.dailyLimit
	if limit.Sign() > 0 && new(big.Int).Add(t.spentInWindow(from, now), value).Cmp(limit) > 0 {
		dt := t.initiateDelayed(from, effectiveTo, value, MethodTransfer, from)
		return &Result{Delayed: true, DelayedID: dt.ID}, nil
	}
	if err := t.move(from, effectiveTo, value); err != nil {
		return nil, err
	}
	t.recordSpend(from, now, value)
	t.emitter.Emit(events.Transfer{From: from, To: effectiveTo, Value: value})
	if swept {
		t.emitter.Emit(events.OriginalTransfer{From: from, To: to, Value: value})
	}
	return &Result{}, nil
}

// TransferFrom moves value from an account the spender holds an allowance
// for, subject to the same restriction pipeline as Transfer. A delayed
// conversion does not consume allowance; the allowance check happens when the
// delayed transfer executes.
func (t *Token) TransferFrom(spender, from, to [20]byte, value *big.Int) (*Result, error) {
	if value == nil || value.Sign() <= 0 {
		return nil, fmt.Errorf("token: transfer amount must be positive")
	}
	now := t.nowFn()
	t.refreshDailyLimit(now)
	effectiveTo, swept := t.resolveRecipient(to)
	if err := t.guard(); err != nil {
		return nil, err
	}
	if err := t.requireWhitelisted(effectiveTo); err != nil {
		t.emitter.Emit(events.TransferRestricted{From: from, To: effectiveTo, Value: value, Code: uint8(CodeNotWhitelisted)})
		return nil, err
	}
	limit := t.dailyLimit
	if limit.Sign() > 0 && new(big.Int).Add(t.spentInWindow(from, now), value).Cmp(limit) > 0 {
		dt := t.initiateDelayed(from, effectiveTo, value, MethodTransferFrom, spender)
		return &Result{Delayed: true, DelayedID: dt.ID}, nil
	}
	if t.BalanceOf(from).Cmp(value) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := t.consumeAllowance(from, spender, value); err != nil {
		return nil, err
	}
	if err := t.move(from, effectiveTo, value); err != nil {
		return nil, err
	}
	t.recordSpend(from, now, value)
	t.emitter.Emit(events.Transfer{From: from, To: effectiveTo, Value: value})
	if swept {
		t.emitter.Emit(events.OriginalTransfer{From: from, To: to, Value: value})
	}
	return &Result{}, nil
}

// DelayedTransferOf returns a copy of a pending delayed transfer.
func (t *Token) DelayedTransferOf(id uint64) (*DelayedTransfer, bool) {
	dt, ok := t.delayedTransfers[id]
	if !ok {
		return nil, false
	}
	return dt.Clone(), true
}

// ExecuteDelayedTransfer settles a delayed transfer once its countdown has
// elapsed. For the TransferFrom method the caller must hold an allowance from
// the stored sender covering the value; it is consumed on success.
func (t *Token) ExecuteDelayedTransfer(caller [20]byte, id uint64) error {
	dt, ok := t.delayedTransfers[id]
	if !ok {
		return ErrNoSuchTransfer
	}
	now := t.nowFn()
	if now < dt.CountdownStart+t.delayedTransferCountdownLength {
		return ErrCountdownNotElapsed
	}
	if err := t.guard(); err != nil {
		return err
	}
	if err := t.requireWhitelisted(dt.To); err != nil {
		return err
	}
	if t.BalanceOf(dt.From).Cmp(dt.Value) < 0 {
		return ErrInsufficientBalance
	}
	if dt.Method == MethodTransferFrom {
		if err := t.consumeAllowance(dt.From, caller, dt.Value); err != nil {
			return err
		}
	}
	if err := t.move(dt.From, dt.To, dt.Value); err != nil {
		return err
	}
	delete(t.delayedTransfers, id)
	t.emitter.Emit(events.DelayedTransferExecuted{ID: id, Value: dt.Value})
	t.emitter.Emit(events.Transfer{From: dt.From, To: dt.To, Value: dt.Value})
	return nil
}

// CancelDelayedTransfer deletes a pending delayed transfer. The stored sender
// may always cancel; for the TransferFrom method the account that initiated
// the delayed request may cancel as well.
func (t *Token) CancelDelayedTransfer(caller [20]byte, id uint64) error {
	dt, ok := t.delayedTransfers[id]
	if !ok {
		return ErrNoSuchTransfer
	}
	switch dt.Method {
	case MethodTransfer:
		if caller != dt.From {
			return ErrUnauthorized
		}
	case MethodTransferFrom:
		if caller != dt.From && caller != dt.Spender {
			return ErrUnauthorized
		}
	}
	delete(t.delayedTransfers, id)
	t.emitter.Emit(events.DelayedTransferCancelled{ID: id})
	return nil
}

// --- supply ---

// Mint credits newly issued balance to a whitelisted account. Only the
// configured minting admin may call.
func (t *Token) Mint(caller, account [20]byte, amount *big.Int) error {
	if caller != t.mintingAdmin || t.mintingAdmin == ([20]byte{}) {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("token: mint amount must be positive")
	}
	if err := t.requireWhitelisted(account); err != nil {
		return err
	}
	t.balances[account] = new(big.Int).Add(t.BalanceOf(account), amount)
	t.totalSupply = new(big.Int).Add(t.totalSupply, amount)
	t.emitter.Emit(events.Mint{Account: account, Amount: amount})
	return nil
}

// Burn retires balance from an account. Only the configured redemption admin
// may call.
func (t *Token) Burn(caller, account [20]byte, amount *big.Int) error {
	if caller != t.redemptionAdmin || t.redemptionAdmin == ([20]byte{}) {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("token: burn amount must be positive")
	}
	bal := t.BalanceOf(account)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.balances[account] = bal.Sub(bal, amount)
	t.totalSupply = new(big.Int).Sub(t.totalSupply, amount)
	t.emitter.Emit(events.Burn{Account: account, Amount: amount})
	return nil
}

// ModuleTransfer settles balance on behalf of the asset ledger: redemption
// debits, escrow refunds, and fee credits. Only the configured ledger module
// account may call. Daily limits do not apply to settlement moves; the pause
// switch and recipient whitelist still do.
func (t *Token) ModuleTransfer(caller, from, to [20]byte, value *big.Int) error {
	if err := t.ModuleTransferCheck(caller, from, to, value); err != nil {
		return err
	}
	if err := t.move(from, to, value); err != nil {
		return err
	}
	t.emitter.Emit(events.Transfer{From: from, To: to, Value: value})
	return nil
}

// ModuleTransferCheck runs every ModuleTransfer validation, including the
// sender balance, without moving any balance. Callers staging several
// settlement moves check them all before committing the first.
func (t *Token) ModuleTransferCheck(caller, from, to [20]byte, value *big.Int) error {
	if caller != t.ledgerModule || t.ledgerModule == ([20]byte{}) {
		return ErrUnauthorized
	}
	if value == nil || value.Sign() <= 0 {
		return fmt.Errorf("token: transfer amount must be positive")
	}
	if err := t.guard(); err != nil {
		return err
	}
	if err := t.requireWhitelisted(to); err != nil {
		return err
	}
	if t.BalanceOf(from).Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// --- pre-flight validation ---

// DetectTransferRestriction runs the transfer checks without mutating state:
// 0 is valid, 1 a non-whitelisted recipient, 2 a breached daily limit.
func (t *Token) DetectTransferRestriction(from, to [20]byte, value *big.Int) RestrictionCode {
	now := t.nowFn()
	effectiveTo, _ := t.resolveRecipient(to)
	if t.whitelist == nil || !t.whitelist.IsWhitelisted(effectiveTo) {
		return CodeNotWhitelisted
	}
	limit := t.effectiveDailyLimit(now)
	if limit.Sign() > 0 && value != nil {
		if new(big.Int).Add(t.spentInWindow(from, now), value).Cmp(limit) > 0 {
			return CodeExceedsDailyLimit
		}
	}
	return CodeValid
}

// MessageForTransferRestriction maps a restriction code to its human-readable
// message.
func (t *Token) MessageForTransferRestriction(code RestrictionCode) (string, error) {
	switch code {
	case CodeValid:
		return "Valid transfer", nil
	case CodeNotWhitelisted:
		return "Invalid transfer: nonwhitelisted recipient", nil
	case CodeExceedsDailyLimit:
		return "Invalid transfer: exceeds daily limit", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownRestrictionCode, code)
	}
}
