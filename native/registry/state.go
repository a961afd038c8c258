package registry

import "errors"

// State is the serializable form of the registry's own parameters. Wallet
// signer sets are exported per wallet; module state lives with each module.
type State struct {
	Paused                    bool
	ThresholdPercent          uint64
	SuperOwnerActionCountdown uint64
	BasicOwnerActionCountdown uint64
}

var errMalformedState = errors.New("registry: malformed state")

// ExportState captures the registry parameters for persistence.
func (r *Registry) ExportState() *State {
	return &State{
		Paused:                    r.paused,
		ThresholdPercent:          r.thresholdPercent,
		SuperOwnerActionCountdown: uint64(r.superOwnerActionCountdown),
		BasicOwnerActionCountdown: uint64(r.basicOwnerActionCountdown),
	}
}

// RestoreState replaces the registry parameters with a previously exported
// snapshot. Wallet bindings and module wiring are untouched.
func (r *Registry) RestoreState(state *State) error {
	if state == nil {
		return errMalformedState
	}
	if state.ThresholdPercent == 0 || state.ThresholdPercent > 100 {
		return ErrBadThresholdPercent
	}
	r.paused = state.Paused
	r.thresholdPercent = state.ThresholdPercent
	r.superOwnerActionCountdown = int64(state.SuperOwnerActionCountdown)
	r.basicOwnerActionCountdown = int64(state.BasicOwnerActionCountdown)
	return nil
}
