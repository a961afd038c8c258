package token

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
)

// BalanceRecord is the serializable form of one balance entry.
type BalanceRecord struct {
	Account [20]byte
	Amount  *big.Int
}

// AllowanceRecord is the serializable form of one allowance entry.
type AllowanceRecord struct {
	Owner   [20]byte
	Spender [20]byte
	Amount  *big.Int
}

// WindowRecord is the serializable form of one daily-limit spending window.
type WindowRecord struct {
	Account [20]byte
	Start   uint64
	Spent   *big.Int
}

// DelayedRecord is the serializable form of one pending delayed transfer.
type DelayedRecord struct {
	ID             uint64
	From           [20]byte
	To             [20]byte
	Value          *big.Int
	Method         uint8
	Spender        [20]byte
	CountdownStart uint64
}

// SweepRecord maps a sweep key to its registered exchange address.
type SweepRecord struct {
	Key      [20]byte
	Exchange [20]byte
}

// State is the serializable form of the token ledger, with map contents
// flattened into sorted slices so encodings are deterministic.
type State struct {
	Name     string
	Symbol   string
	Decimals uint8

	Balances    []BalanceRecord
	Allowances  []AllowanceRecord
	TotalSupply *big.Int

	DailyLimit                      *big.Int
	PendingDailyLimit               *big.Int
	HasPendingDailyLimit            bool
	DailyLimitUpdateStart           uint64
	UpdateDailyLimitCountdownLength uint64
	Windows                         []WindowRecord

	DelayedTransfers               []DelayedRecord
	DelayedTransferCount           uint64
	DelayedTransferCountdownLength uint64

	SweepAddresses []SweepRecord
}

var errMalformedState = errors.New("token: malformed state")

func sortAddrSlice[T any](records []T, addr func(T) [20]byte) {
	sort.Slice(records, func(i, j int) bool {
		a, b := addr(records[i]), addr(records[j])
		return bytes.Compare(a[:], b[:]) < 0
	})
}

// ExportState captures the token contents for persistence.
func (t *Token) ExportState() *State {
	state := &State{
		Name:                            t.name,
		Symbol:                          t.symbol,
		Decimals:                        t.decimals,
		Balances:                        make([]BalanceRecord, 0, len(t.balances)),
		Allowances:                      make([]AllowanceRecord, 0, len(t.allowances)),
		TotalSupply:                     new(big.Int).Set(t.totalSupply),
		DailyLimit:                      new(big.Int).Set(t.dailyLimit),
		PendingDailyLimit:               big.NewInt(0),
		DailyLimitUpdateStart:           uint64(t.dailyLimitUpdateStart),
		UpdateDailyLimitCountdownLength: uint64(t.updateDailyLimitCountdownLength),
		Windows:                         make([]WindowRecord, 0, len(t.windows)),
		DelayedTransfers:                make([]DelayedRecord, 0, len(t.delayedTransfers)),
		DelayedTransferCount:            t.delayedTransferCount,
		DelayedTransferCountdownLength:  uint64(t.delayedTransferCountdownLength),
		SweepAddresses:                  make([]SweepRecord, 0, len(t.sweepAddresses)),
	}
	if t.pendingDailyLimit != nil {
		state.PendingDailyLimit = new(big.Int).Set(t.pendingDailyLimit)
		state.HasPendingDailyLimit = true
	}
	for account, amount := range t.balances {
		state.Balances = append(state.Balances, BalanceRecord{Account: account, Amount: new(big.Int).Set(amount)})
	}
	sortAddrSlice(state.Balances, func(r BalanceRecord) [20]byte { return r.Account })
	for owner, spenders := range t.allowances {
		for spender, amount := range spenders {
			state.Allowances = append(state.Allowances, AllowanceRecord{
				Owner:   owner,
				Spender: spender,
				Amount:  new(big.Int).Set(amount),
			})
		}
	}
	sort.Slice(state.Allowances, func(i, j int) bool {
		a, b := state.Allowances[i], state.Allowances[j]
		if cmp := bytes.Compare(a.Owner[:], b.Owner[:]); cmp != 0 {
			return cmp < 0
		}
		return bytes.Compare(a.Spender[:], b.Spender[:]) < 0
	})
	for account, window := range t.windows {
		state.Windows = append(state.Windows, WindowRecord{
			Account: account,
			Start:   uint64(window.start),
			Spent:   new(big.Int).Set(window.spent),
		})
	}
	sortAddrSlice(state.Windows, func(r WindowRecord) [20]byte { return r.Account })
	for _, transfer := range t.delayedTransfers {
		state.DelayedTransfers = append(state.DelayedTransfers, DelayedRecord{
			ID:             transfer.ID,
			From:           transfer.From,
			To:             transfer.To,
			Value:          new(big.Int).Set(transfer.Value),
			Method:         uint8(transfer.Method),
			Spender:        transfer.Spender,
			CountdownStart: uint64(transfer.CountdownStart),
		})
	}
	sort.Slice(state.DelayedTransfers, func(i, j int) bool {
		return state.DelayedTransfers[i].ID < state.DelayedTransfers[j].ID
	})
	for key, exchange := range t.sweepAddresses {
		state.SweepAddresses = append(state.SweepAddresses, SweepRecord{Key: key, Exchange: exchange})
	}
	sortAddrSlice(state.SweepAddresses, func(r SweepRecord) [20]byte { return r.Key })
	return state
}

// RestoreState replaces the token contents with a previously exported
// snapshot. Wiring (whitelist, pause view, admin addresses, clock, emitter)
// is untouched.
func (t *Token) RestoreState(state *State) error {
	if state == nil || state.TotalSupply == nil || state.DailyLimit == nil {
		return errMalformedState
	}
	if state.HasPendingDailyLimit && state.PendingDailyLimit == nil {
		return errMalformedState
	}
	balances := make(map[[20]byte]*big.Int, len(state.Balances))
	for _, record := range state.Balances {
		if record.Amount == nil || record.Amount.Sign() < 0 {
			return errMalformedState
		}
		balances[record.Account] = new(big.Int).Set(record.Amount)
	}
	allowances := make(map[[20]byte]map[[20]byte]*big.Int)
	for _, record := range state.Allowances {
		if record.Amount == nil || record.Amount.Sign() < 0 {
			return errMalformedState
		}
		spenders, ok := allowances[record.Owner]
		if !ok {
			spenders = make(map[[20]byte]*big.Int)
			allowances[record.Owner] = spenders
		}
		spenders[record.Spender] = new(big.Int).Set(record.Amount)
	}
	windows := make(map[[20]byte]*limitWindow, len(state.Windows))
	for _, record := range state.Windows {
		if record.Spent == nil {
			return errMalformedState
		}
		windows[record.Account] = &limitWindow{
			start: int64(record.Start),
			spent: new(big.Int).Set(record.Spent),
		}
	}
	delayed := make(map[uint64]*DelayedTransfer, len(state.DelayedTransfers))
	for _, record := range state.DelayedTransfers {
		if record.Value == nil || record.ID > state.DelayedTransferCount {
			return errMalformedState
		}
		delayed[record.ID] = &DelayedTransfer{
			ID:             record.ID,
			From:           record.From,
			To:             record.To,
			Value:          new(big.Int).Set(record.Value),
			Method:         TransferMethod(record.Method),
			Spender:        record.Spender,
			CountdownStart: int64(record.CountdownStart),
		}
	}
	sweeps := make(map[[20]byte][20]byte, len(state.SweepAddresses))
	for _, record := range state.SweepAddresses {
		sweeps[record.Key] = record.Exchange
	}
	t.name = state.Name
	t.symbol = state.Symbol
	t.decimals = state.Decimals
	t.balances = balances
	t.allowances = allowances
	t.totalSupply = new(big.Int).Set(state.TotalSupply)
	t.dailyLimit = new(big.Int).Set(state.DailyLimit)
	if state.HasPendingDailyLimit {
		t.pendingDailyLimit = new(big.Int).Set(state.PendingDailyLimit)
	} else {
		t.pendingDailyLimit = nil
	}
	t.dailyLimitUpdateStart = int64(state.DailyLimitUpdateStart)
	t.updateDailyLimitCountdownLength = int64(state.UpdateDailyLimitCountdownLength)
	t.windows = windows
	t.delayedTransfers = delayed
	t.delayedTransferCount = state.DelayedTransferCount
	t.delayedTransferCountdownLength = int64(state.DelayedTransferCountdownLength)
	t.sweepAddresses = sweeps
	return nil
}
