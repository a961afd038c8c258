package assets

import "math/big"

// Status represents the lifecycle states of a registered asset.
type Status uint8

const (
	StatusPending Status = iota
	StatusEnlisted
	StatusLocked
	StatusRedeemed
	StatusReserved
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusEnlisted, StatusLocked, StatusRedeemed, StatusReserved:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusEnlisted:
		return "enlisted"
	case StatusLocked:
		return "locked"
	case StatusRedeemed:
		return "redeemed"
	case StatusReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// Collateralized reports whether assets in this status back circulating
// supply. The sum of Tokens over collateralized assets must equal the token's
// total supply at all times.
func (s Status) Collateralized() bool {
	switch s {
	case StatusEnlisted, StatusLocked, StatusReserved:
		return true
	default:
		return false
	}
}

// Asset is one registry entry representing a unit of real-world collateral
// backing a fixed quantity of ledger balance. Identifiers are assigned by the
// submitter and never reused, even after a pending asset is withdrawn.
type Asset struct {
	ID             uint64
	NotarizationID [32]byte
	Tokens         *big.Int
	Owner          [20]byte
	Status         Status
	Timestamp      int64
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Tokens != nil {
		clone.Tokens = new(big.Int).Set(a.Tokens)
	} else {
		clone.Tokens = big.NewInt(0)
	}
	return &clone
}

// RedemptionLock records balance escrowed for an in-flight redemption. At most
// one lock exists per asset.
type RedemptionLock struct {
	Account [20]byte
	Amount  *big.Int
}

// Clone returns a deep copy of the lock.
func (l *RedemptionLock) Clone() *RedemptionLock {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Amount != nil {
		clone.Amount = new(big.Int).Set(l.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// StartRedemptionCountdown is the quorum-gated payload the ledger submits to
// the redemption admin wallet when a redemption is requested. Once approved it
// starts the asset's redemption countdown.
type StartRedemptionCountdown struct {
	AssetID uint64
}

// Kind implements multisig.Action.
func (StartRedemptionCountdown) Kind() string { return "assets.startRedemptionCountdown" }
