package assets

import (
	"errors"
	"math/big"
	"sort"
)

// AssetRecord is the serializable form of one asset entry.
type AssetRecord struct {
	ID             uint64
	NotarizationID [32]byte
	Tokens         *big.Int
	Owner          [20]byte
	Status         uint8
	Timestamp      uint64
}

// LockRecord is the serializable form of one redemption lock.
type LockRecord struct {
	AssetID uint64
	Account [20]byte
	Amount  *big.Int
}

// CountdownRecord pairs an asset with its redemption countdown start.
type CountdownRecord struct {
	AssetID uint64
	Start   uint64
}

// State is the serializable form of the ledger, with map contents flattened
// into ID-sorted slices so encodings are deterministic.
type State struct {
	Assets  []AssetRecord
	UsedIDs []uint64
	Locks   []LockRecord

	PendingIDs             []uint64
	MintingCountdownStart  uint64
	MintingCountdownLength uint64

	RedemptionCountdowns      []CountdownRecord
	RedemptionCountdownLength uint64
	RedemptionFee             *big.Int
	FeeReceiver               [20]byte
	MintingReceiver           [20]byte
}

var errMalformedState = errors.New("assets: malformed state")

// ExportState captures the ledger contents for persistence.
func (l *Ledger) ExportState() *State {
	state := &State{
		Assets:                    make([]AssetRecord, 0, len(l.assets)),
		UsedIDs:                   make([]uint64, 0, len(l.usedIDs)),
		Locks:                     make([]LockRecord, 0, len(l.locks)),
		PendingIDs:                append([]uint64(nil), l.pendingIDs...),
		MintingCountdownStart:     uint64(l.mintingCountdownStart),
		MintingCountdownLength:    uint64(l.mintingCountdownLength),
		RedemptionCountdowns:      make([]CountdownRecord, 0, len(l.redemptionCountdowns)),
		RedemptionCountdownLength: uint64(l.redemptionCountdownLength),
		RedemptionFee:             new(big.Int).Set(l.redemptionFee),
		FeeReceiver:               l.feeReceiver,
		MintingReceiver:           l.mintingReceiver,
	}
	for _, asset := range l.assets {
		state.Assets = append(state.Assets, AssetRecord{
			ID:             asset.ID,
			NotarizationID: asset.NotarizationID,
			Tokens:         new(big.Int).Set(asset.Tokens),
			Owner:          asset.Owner,
			Status:         uint8(asset.Status),
			Timestamp:      uint64(asset.Timestamp),
		})
	}
	sort.Slice(state.Assets, func(i, j int) bool { return state.Assets[i].ID < state.Assets[j].ID })
	for id := range l.usedIDs {
		state.UsedIDs = append(state.UsedIDs, id)
	}
	sort.Slice(state.UsedIDs, func(i, j int) bool { return state.UsedIDs[i] < state.UsedIDs[j] })
	for id, lock := range l.locks {
		state.Locks = append(state.Locks, LockRecord{
			AssetID: id,
			Account: lock.Account,
			Amount:  new(big.Int).Set(lock.Amount),
		})
	}
	sort.Slice(state.Locks, func(i, j int) bool { return state.Locks[i].AssetID < state.Locks[j].AssetID })
	for id, start := range l.redemptionCountdowns {
		state.RedemptionCountdowns = append(state.RedemptionCountdowns, CountdownRecord{
			AssetID: id,
			Start:   uint64(start),
		})
	}
	sort.Slice(state.RedemptionCountdowns, func(i, j int) bool {
		return state.RedemptionCountdowns[i].AssetID < state.RedemptionCountdowns[j].AssetID
	})
	return state
}

// RestoreState replaces the ledger contents with a previously exported
// snapshot. Wiring (token, gate, clock, emitter) is untouched.
func (l *Ledger) RestoreState(state *State) error {
	if state == nil || state.RedemptionFee == nil {
		return errMalformedState
	}
	restored := make(map[uint64]*Asset, len(state.Assets))
	for _, record := range state.Assets {
		status := Status(record.Status)
		if !status.Valid() || record.Tokens == nil {
			return errMalformedState
		}
		restored[record.ID] = &Asset{
			ID:             record.ID,
			NotarizationID: record.NotarizationID,
			Tokens:         new(big.Int).Set(record.Tokens),
			Owner:          record.Owner,
			Status:         status,
			Timestamp:      int64(record.Timestamp),
		}
	}
	used := make(map[uint64]struct{}, len(state.UsedIDs))
	for _, id := range state.UsedIDs {
		used[id] = struct{}{}
	}
	locks := make(map[uint64]*RedemptionLock, len(state.Locks))
	for _, record := range state.Locks {
		if record.Amount == nil {
			return errMalformedState
		}
		if _, ok := restored[record.AssetID]; !ok {
			return errMalformedState
		}
		locks[record.AssetID] = &RedemptionLock{
			Account: record.Account,
			Amount:  new(big.Int).Set(record.Amount),
		}
	}
	countdowns := make(map[uint64]int64, len(state.RedemptionCountdowns))
	for _, record := range state.RedemptionCountdowns {
		countdowns[record.AssetID] = int64(record.Start)
	}
	for _, id := range state.PendingIDs {
		if _, ok := restored[id]; !ok {
			return errMalformedState
		}
	}
	l.assets = restored
	l.usedIDs = used
	l.locks = locks
	l.pendingIDs = append([]uint64(nil), state.PendingIDs...)
	l.mintingCountdownStart = int64(state.MintingCountdownStart)
	l.mintingCountdownLength = int64(state.MintingCountdownLength)
	l.redemptionCountdowns = countdowns
	l.redemptionCountdownLength = int64(state.RedemptionCountdownLength)
	l.redemptionFee = new(big.Int).Set(state.RedemptionFee)
	l.feeReceiver = state.FeeReceiver
	l.mintingReceiver = state.MintingReceiver
	return nil
}
