package events

import (
	"math/big"

	"mpvledger/core/types"
	"mpvledger/crypto"
)

const (
	TypeAssetAdded            = "assets.added"
	TypeAssetStatusChanged    = "assets.statusChanged"
	TypeMintingRoundStarted   = "assets.mintingRoundStarted"
	TypeMintingRoundCancelled = "assets.mintingRoundCancelled"
	TypeMintingFinalized      = "assets.mintingFinalized"
	TypeRedemptionRequested   = "assets.redemptionRequested"
	TypeRedemptionCancelled   = "assets.redemptionCancelled"
	TypeRedemptionRejected    = "assets.redemptionRejected"
	TypeRedemptionExecuted    = "assets.redemptionExecuted"
)

type AssetAdded struct {
	ID     uint64
	Tokens *big.Int
	Owner  [20]byte
	Status string
}

func (AssetAdded) EventType() string { return TypeAssetAdded }

func (e AssetAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeAssetAdded,
		Attributes: map[string]string{
			"id":     uintToString(e.ID),
			"tokens": formatAmount(e.Tokens),
			"owner":  crypto.NewAddress(crypto.MPVPrefix, e.Owner[:]).String(),
			"status": e.Status,
		},
	}
}

type AssetStatusChanged struct {
	ID     uint64
	Status string
}

func (AssetStatusChanged) EventType() string { return TypeAssetStatusChanged }

func (e AssetStatusChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeAssetStatusChanged,
		Attributes: map[string]string{
			"id":     uintToString(e.ID),
			"status": e.Status,
		},
	}
}

type MintingRoundStarted struct {
	CountdownStart int64
	PendingAssets  int
}

func (MintingRoundStarted) EventType() string { return TypeMintingRoundStarted }

func (e MintingRoundStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeMintingRoundStarted,
		Attributes: map[string]string{
			"countdownStart": intToString(e.CountdownStart),
			"pendingAssets":  intToString(int64(e.PendingAssets)),
		},
	}
}

type MintingRoundCancelled struct {
	PendingAssets int
}

func (MintingRoundCancelled) EventType() string { return TypeMintingRoundCancelled }

func (e MintingRoundCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeMintingRoundCancelled,
		Attributes: map[string]string{
			"pendingAssets": intToString(int64(e.PendingAssets)),
		},
	}
}

type MintingFinalized struct {
	Enlisted int
	Minted   *big.Int
	Receiver [20]byte
}

func (MintingFinalized) EventType() string { return TypeMintingFinalized }

func (e MintingFinalized) Event() *types.Event {
	return &types.Event{
		Type: TypeMintingFinalized,
		Attributes: map[string]string{
			"enlisted": intToString(int64(e.Enlisted)),
			"minted":   formatAmount(e.Minted),
			"receiver": crypto.NewAddress(crypto.MPVPrefix, e.Receiver[:]).String(),
		},
	}
}

type RedemptionRequested struct {
	AssetID uint64
	Account [20]byte
	Amount  *big.Int
	Fee     *big.Int
}

func (RedemptionRequested) EventType() string { return TypeRedemptionRequested }

func (e RedemptionRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeRedemptionRequested,
		Attributes: map[string]string{
			"assetId": uintToString(e.AssetID),
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
			"amount":  formatAmount(e.Amount),
			"fee":     formatAmount(e.Fee),
		},
	}
}

type RedemptionCancelled struct {
	AssetID uint64
	Account [20]byte
	Amount  *big.Int
}

func (RedemptionCancelled) EventType() string { return TypeRedemptionCancelled }

func (e RedemptionCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeRedemptionCancelled,
		Attributes: map[string]string{
			"assetId": uintToString(e.AssetID),
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type RedemptionRejected struct {
	AssetID uint64
	Account [20]byte
	Amount  *big.Int
}

func (RedemptionRejected) EventType() string { return TypeRedemptionRejected }

func (e RedemptionRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeRedemptionRejected,
		Attributes: map[string]string{
			"assetId": uintToString(e.AssetID),
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
			"amount":  formatAmount(e.Amount),
		},
	}
}

type RedemptionExecuted struct {
	AssetID uint64
	Burned  *big.Int
}

func (RedemptionExecuted) EventType() string { return TypeRedemptionExecuted }

func (e RedemptionExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeRedemptionExecuted,
		Attributes: map[string]string{
			"assetId": uintToString(e.AssetID),
			"burned":  formatAmount(e.Burned),
		},
	}
}
