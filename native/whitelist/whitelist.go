package whitelist

import (
	"errors"
	"fmt"
	"time"

	"mpvledger/core/events"
)

var (
	ErrAlreadyWhitelisted  = errors.New("whitelist: account already whitelisted")
	ErrNotWhitelisted      = errors.New("whitelist: account not whitelisted")
	ErrRemovalPending      = errors.New("whitelist: removal already proposed")
	ErrNoPendingRemoval    = errors.New("whitelist: no removal proposed")
	ErrCountdownNotElapsed = errors.New("whitelist: removal countdown not elapsed")
)

// DefaultRemovalCountdown is the delay between proposing a removal and being
// able to finalize it.
const DefaultRemovalCountdown = int64(48 * time.Hour / time.Second)

// Whitelist is the allow-list of accounts permitted to hold and receive
// balance. Additions are instantaneous; removals pass through a countdown so a
// counterparty is never de-whitelisted abruptly mid-transaction. A zero
// countdown degenerates to instant removal.
type Whitelist struct {
	members          map[[20]byte]struct{}
	pendingRemovals  map[[20]byte]int64
	removalCountdown int64
	nowFn            func() int64
	emitter          events.Emitter
}

// New constructs an empty whitelist with the default removal countdown.
func New() *Whitelist {
	return &Whitelist{
		members:          make(map[[20]byte]struct{}),
		pendingRemovals:  make(map[[20]byte]int64),
		removalCountdown: DefaultRemovalCountdown,
		nowFn:            func() int64 { return time.Now().Unix() },
		emitter:          events.NoopEmitter{},
	}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (w *Whitelist) SetNowFunc(now func() int64) {
	if now == nil {
		w.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	w.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (w *Whitelist) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		w.emitter = events.NoopEmitter{}
		return
	}
	w.emitter = emitter
}

// SetRemovalCountdown replaces the removal countdown length in seconds.
func (w *Whitelist) SetRemovalCountdown(seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("whitelist: negative countdown length")
	}
	w.removalCountdown = seconds
	return nil
}

// RemovalCountdown returns the configured removal countdown in seconds.
func (w *Whitelist) RemovalCountdown() int64 { return w.removalCountdown }

// IsWhitelisted reports whether the account may hold or receive balance. An
// account stays whitelisted while its removal countdown runs.
func (w *Whitelist) IsWhitelisted(account [20]byte) bool {
	_, ok := w.members[account]
	return ok
}

// Add admits a single account.
func (w *Whitelist) Add(account [20]byte) error {
	if account == ([20]byte{}) {
		return fmt.Errorf("whitelist: zero address")
	}
	if _, ok := w.members[account]; ok {
		return ErrAlreadyWhitelisted
	}
	w.members[account] = struct{}{}
	w.emitter.Emit(events.WhitelistAdded{Account: account})
	return nil
}

// AddMany admits a batch of accounts. The batch is atomic: a single invalid
// entry rejects the whole call before any account is admitted.
func (w *Whitelist) AddMany(accounts [][20]byte) error {
	seen := make(map[[20]byte]struct{}, len(accounts))
	for _, account := range accounts {
		if account == ([20]byte{}) {
			return fmt.Errorf("whitelist: zero address")
		}
		if _, ok := w.members[account]; ok {
			return fmt.Errorf("%w: %x", ErrAlreadyWhitelisted, account)
		}
		if _, ok := seen[account]; ok {
			return fmt.Errorf("%w: %x", ErrAlreadyWhitelisted, account)
		}
		seen[account] = struct{}{}
	}
	for _, account := range accounts {
		w.members[account] = struct{}{}
		w.emitter.Emit(events.WhitelistAdded{Account: account})
	}
	return nil
}

// ProposeRemoval starts the removal countdown for a whitelisted account. With
// a zero countdown the removal completes immediately.
func (w *Whitelist) ProposeRemoval(account [20]byte) error {
	if _, ok := w.members[account]; !ok {
		return ErrNotWhitelisted
	}
	if _, ok := w.pendingRemovals[account]; ok {
		return ErrRemovalPending
	}
	if w.removalCountdown == 0 {
		delete(w.members, account)
		w.emitter.Emit(events.WhitelistRemoved{Account: account})
		return nil
	}
	start := w.nowFn()
	w.pendingRemovals[account] = start
	w.emitter.Emit(events.WhitelistRemovalProposed{Account: account, CountdownStart: start})
	return nil
}

// FinalizeRemoval completes a proposed removal once its countdown has elapsed.
func (w *Whitelist) FinalizeRemoval(account [20]byte) error {
	start, ok := w.pendingRemovals[account]
	if !ok {
		return ErrNoPendingRemoval
	}
	if w.nowFn() < start+w.removalCountdown {
		return ErrCountdownNotElapsed
	}
	delete(w.pendingRemovals, account)
	delete(w.members, account)
	w.emitter.Emit(events.WhitelistRemoved{Account: account})
	return nil
}

// PendingRemoval returns the countdown start for a proposed removal.
func (w *Whitelist) PendingRemoval(account [20]byte) (int64, bool) {
	start, ok := w.pendingRemovals[account]
	return start, ok
}

// Members returns the number of whitelisted accounts.
func (w *Whitelist) Members() int { return len(w.members) }
