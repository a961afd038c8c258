package multisig

import "errors"

// State is the durable portion of a wallet: the signer set, the quorum
// threshold, and the transaction counter (so identifiers are never reissued
// after a restart). Pending transactions hold interface-typed payloads and
// are deliberately not persisted; unexecuted proposals must be resubmitted.
type State struct {
	Signers          [][20]byte
	Required         uint64
	TransactionCount uint64
}

var errMalformedState = errors.New("multisig: malformed state")

// ExportState captures the wallet's durable state for persistence.
func (w *Wallet) ExportState() *State {
	return &State{
		Signers:          w.Signers(),
		Required:         uint64(w.required),
		TransactionCount: w.txCount,
	}
}

// RestoreState replaces the signer set and counters with a previously
// exported snapshot. Any in-memory pending transactions are dropped.
func (w *Wallet) RestoreState(state *State) error {
	if state == nil {
		return errMalformedState
	}
	required := int(state.Required)
	if err := validRequirement(len(state.Signers), required); err != nil {
		return err
	}
	signers := make(map[[20]byte]struct{}, len(state.Signers))
	for _, signer := range state.Signers {
		signers[signer] = struct{}{}
	}
	if len(signers) != len(state.Signers) {
		return errMalformedState
	}
	w.signers = signers
	w.required = required
	w.txCount = state.TransactionCount
	w.txs = make(map[uint64]*Transaction)
	return nil
}
