package whitelist

import (
	"bytes"
	"errors"
	"sort"
)

// State is the serializable form of the whitelist, with map contents flattened
// into sorted slices so encodings are deterministic.
type State struct {
	Members          [][20]byte
	RemovalAccounts  [][20]byte
	RemovalStarts    []uint64
	RemovalCountdown uint64
}

var errMalformedState = errors.New("whitelist: malformed state")

// ExportState captures the whitelist contents for persistence.
func (w *Whitelist) ExportState() *State {
	state := &State{
		Members:          make([][20]byte, 0, len(w.members)),
		RemovalAccounts:  make([][20]byte, 0, len(w.pendingRemovals)),
		RemovalStarts:    make([]uint64, 0, len(w.pendingRemovals)),
		RemovalCountdown: uint64(w.removalCountdown),
	}
	for account := range w.members {
		state.Members = append(state.Members, account)
	}
	sort.Slice(state.Members, func(i, j int) bool {
		return bytes.Compare(state.Members[i][:], state.Members[j][:]) < 0
	})
	for account := range w.pendingRemovals {
		state.RemovalAccounts = append(state.RemovalAccounts, account)
	}
	sort.Slice(state.RemovalAccounts, func(i, j int) bool {
		return bytes.Compare(state.RemovalAccounts[i][:], state.RemovalAccounts[j][:]) < 0
	})
	for _, account := range state.RemovalAccounts {
		state.RemovalStarts = append(state.RemovalStarts, uint64(w.pendingRemovals[account]))
	}
	return state
}

// RestoreState replaces the whitelist contents with a previously exported
// snapshot. Wiring (clock, emitter) is untouched.
func (w *Whitelist) RestoreState(state *State) error {
	if state == nil || len(state.RemovalAccounts) != len(state.RemovalStarts) {
		return errMalformedState
	}
	members := make(map[[20]byte]struct{}, len(state.Members))
	for _, account := range state.Members {
		members[account] = struct{}{}
	}
	removals := make(map[[20]byte]int64, len(state.RemovalAccounts))
	for i, account := range state.RemovalAccounts {
		if _, ok := members[account]; !ok {
			return errMalformedState
		}
		removals[account] = int64(state.RemovalStarts[i])
	}
	w.members = members
	w.pendingRemovals = removals
	w.removalCountdown = int64(state.RemovalCountdown)
	return nil
}
