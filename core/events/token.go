package events

import (
	"encoding/hex"
	"math/big"

	"mpvledger/core/types"
	"mpvledger/crypto"
)

const (
	TypeTransfer                 = "token.transfer"
	TypeOriginalTransfer         = "token.originalTransfer"
	TypeApproval                 = "token.approval"
	TypeMint                     = "token.mint"
	TypeBurn                     = "token.burn"
	TypeDelayedTransferInitiated = "token.delayedTransferInitiated"
	TypeDelayedTransferExecuted  = "token.delayedTransferExecuted"
	TypeDelayedTransferCancelled = "token.delayedTransferCancelled"
	TypeDailyLimitUpdatePending  = "token.dailyLimitUpdatePending"
	TypeDailyLimitUpdated        = "token.dailyLimitUpdated"
	TypeSweepAddressUpdated      = "token.sweepAddressUpdated"
	TypeTransferRestricted       = "token.transferRestricted"
)

type Transfer struct {
	From  [20]byte
	To    [20]byte
	Value *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{
		Type: TypeTransfer,
		Attributes: map[string]string{
			"from":  crypto.NewAddress(crypto.MPVPrefix, e.From[:]).String(),
			"to":    crypto.NewAddress(crypto.MPVPrefix, e.To[:]).String(),
			"value": formatAmount(e.Value),
		},
	}
}

// OriginalTransfer records the nominal recipient of a transfer that was
// redirected to a mapped exchange account, so downstream observers can
// reconstruct the true routing.
type OriginalTransfer struct {
	From  [20]byte
	To    [20]byte
	Value *big.Int
}

func (OriginalTransfer) EventType() string { return TypeOriginalTransfer }

func (e OriginalTransfer) Event() *types.Event {
	return &types.Event{
		Type: TypeOriginalTransfer,
		Attributes: map[string]string{
			"from":  crypto.NewAddress(crypto.MPVPrefix, e.From[:]).String(),
			"to":    crypto.NewAddress(crypto.MPVPrefix, e.To[:]).String(),
			"value": formatAmount(e.Value),
		},
	}
}

// TransferRestricted records a transfer the restriction pipeline rejected
// outright. Code carries the numeric restriction verdict.
type TransferRestricted struct {
	From  [20]byte
	To    [20]byte
	Value *big.Int
	Code  uint8
}

func (TransferRestricted) EventType() string { return TypeTransferRestricted }

func (e TransferRestricted) Event() *types.Event {
	return &types.Event{
		Type: TypeTransferRestricted,
		Attributes: map[string]string{
			"from":  crypto.NewAddress(crypto.MPVPrefix, e.From[:]).String(),
			"to":    crypto.NewAddress(crypto.MPVPrefix, e.To[:]).String(),
			"value": formatAmount(e.Value),
			"code":  uintToString(uint64(e.Code)),
		},
	}
}

type Approval struct {
	Owner   [20]byte
	Spender [20]byte
	Value   *big.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{
		Type: TypeApproval,
		Attributes: map[string]string{
			"owner":   crypto.NewAddress(crypto.MPVPrefix, e.Owner[:]).String(),
			"spender": crypto.NewAddress(crypto.MPVPrefix, e.Spender[:]).String(),
			"value":   formatAmount(e.Value),
		},
	}
}

type Mint struct {
	Account [20]byte
	Amount  *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{
		Type: TypeMint,
		Attributes: map[string]string{
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type Burn struct {
	Account [20]byte
	Amount  *big.Int
}

func (Burn) EventType() string { return TypeBurn }

func (e Burn) Event() *types.Event {
	return &types.Event{
		Type: TypeBurn,
		Attributes: map[string]string{
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type DelayedTransferInitiated struct {
	ID             uint64
	From           [20]byte
	To             [20]byte
	Value          *big.Int
	Method         string
	CountdownStart int64
}

func (DelayedTransferInitiated) EventType() string { return TypeDelayedTransferInitiated }

func (e DelayedTransferInitiated) Event() *types.Event {
	return &types.Event{
		Type: TypeDelayedTransferInitiated,
		Attributes: map[string]string{
			"id":             uintToString(e.ID),
			"from":           crypto.NewAddress(crypto.MPVPrefix, e.From[:]).String(),
			"to":             crypto.NewAddress(crypto.MPVPrefix, e.To[:]).String(),
			"value":          formatAmount(e.Value),
			"method":         e.Method,
			"countdownStart": intToString(e.CountdownStart),
		},
	}
}

type DelayedTransferExecuted struct {
	ID    uint64
	Value *big.Int
}

func (DelayedTransferExecuted) EventType() string { return TypeDelayedTransferExecuted }

func (e DelayedTransferExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeDelayedTransferExecuted,
		Attributes: map[string]string{
			"id":    uintToString(e.ID),
			"value": formatAmount(e.Value),
		},
	}
}

type DelayedTransferCancelled struct {
	ID uint64
}

func (DelayedTransferCancelled) EventType() string { return TypeDelayedTransferCancelled }

func (e DelayedTransferCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeDelayedTransferCancelled,
		Attributes: map[string]string{
			"id": uintToString(e.ID),
		},
	}
}

type DailyLimitUpdatePending struct {
	Limit          *big.Int
	CountdownStart int64
}

func (DailyLimitUpdatePending) EventType() string { return TypeDailyLimitUpdatePending }

func (e DailyLimitUpdatePending) Event() *types.Event {
	return &types.Event{
		Type: TypeDailyLimitUpdatePending,
		Attributes: map[string]string{
			"limit":          formatAmount(e.Limit),
			"countdownStart": intToString(e.CountdownStart),
		},
	}
}

type DailyLimitUpdated struct {
	Limit *big.Int
}

func (DailyLimitUpdated) EventType() string { return TypeDailyLimitUpdated }

func (e DailyLimitUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeDailyLimitUpdated,
		Attributes: map[string]string{
			"limit": formatAmount(e.Limit),
		},
	}
}

type SweepAddressUpdated struct {
	SweepKey [20]byte
	Exchange [20]byte
}

func (SweepAddressUpdated) EventType() string { return TypeSweepAddressUpdated }

func (e SweepAddressUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeSweepAddressUpdated,
		Attributes: map[string]string{
			"sweepKey": hex.EncodeToString(e.SweepKey[:]),
			"exchange": crypto.NewAddress(crypto.MPVPrefix, e.Exchange[:]).String(),
		},
	}
}
