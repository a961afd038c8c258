package events

import "mpvledger/core/types"

const (
	TypePaused                  = "registry.paused"
	TypeUnpaused                = "registry.unpaused"
	TypeThresholdPercentUpdated = "registry.thresholdPercentUpdated"
)

type Paused struct{}

func (Paused) EventType() string { return TypePaused }

func (Paused) Event() *types.Event {
	return &types.Event{Type: TypePaused, Attributes: map[string]string{}}
}

type Unpaused struct{}

func (Unpaused) EventType() string { return TypeUnpaused }

func (Unpaused) Event() *types.Event {
	return &types.Event{Type: TypeUnpaused, Attributes: map[string]string{}}
}

type ThresholdPercentUpdated struct {
	Percent  uint64
	Required int
}

func (ThresholdPercentUpdated) EventType() string { return TypeThresholdPercentUpdated }

func (e ThresholdPercentUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeThresholdPercentUpdated,
		Attributes: map[string]string{
			"percent":  uintToString(e.Percent),
			"required": intToString(int64(e.Required)),
		},
	}
}
