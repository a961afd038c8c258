package token

import (
	"math/big"
)

// TransferMethod distinguishes how a delayed transfer was initiated, which
// determines who may cancel it and how execution is authorized.
type TransferMethod uint8

const (
	MethodTransfer TransferMethod = iota
	MethodTransferFrom
)

func (m TransferMethod) String() string {
	switch m {
	case MethodTransfer:
		return "transfer"
	case MethodTransferFrom:
		return "transferFrom"
	default:
		return "unknown"
	}
}

// DelayedTransfer is a transfer deferred behind a countdown because it
// exceeded the sender's remaining daily allowance. No balance moves until the
// countdown elapses and execution is requested.
type DelayedTransfer struct {
	ID             uint64
	From           [20]byte
	To             [20]byte
	Value          *big.Int
	Method         TransferMethod
	Spender        [20]byte
	CountdownStart int64
}

// Clone returns a deep copy of the delayed transfer.
func (d *DelayedTransfer) Clone() *DelayedTransfer {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Value != nil {
		clone.Value = new(big.Int).Set(d.Value)
	} else {
		clone.Value = big.NewInt(0)
	}
	return &clone
}

// RestrictionCode is the result of a pre-flight transfer validation.
type RestrictionCode uint8

const (
	CodeValid             RestrictionCode = 0
	CodeNotWhitelisted    RestrictionCode = 1
	CodeExceedsDailyLimit RestrictionCode = 2
)

// Result reports the outcome of a transfer call: either the balance moved, or
// the transfer was converted into a delayed transfer identified by DelayedID.
type Result struct {
	Delayed   bool
	DelayedID uint64
}

type limitWindow struct {
	start int64
	spent *big.Int
}
