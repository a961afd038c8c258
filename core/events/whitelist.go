package events

import (
	"mpvledger/core/types"
	"mpvledger/crypto"
)

const (
	TypeWhitelistAdded           = "whitelist.added"
	TypeWhitelistRemovalProposed = "whitelist.removalProposed"
	TypeWhitelistRemoved         = "whitelist.removed"
)

type WhitelistAdded struct {
	Account [20]byte
}

func (WhitelistAdded) EventType() string { return TypeWhitelistAdded }

func (e WhitelistAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeWhitelistAdded,
		Attributes: map[string]string{
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
		},
	}
}

type WhitelistRemovalProposed struct {
	Account        [20]byte
	CountdownStart int64
}

func (WhitelistRemovalProposed) EventType() string { return TypeWhitelistRemovalProposed }

func (e WhitelistRemovalProposed) Event() *types.Event {
	return &types.Event{
		Type: TypeWhitelistRemovalProposed,
		Attributes: map[string]string{
			"account":        crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
			"countdownStart": intToString(e.CountdownStart),
		},
	}
}

type WhitelistRemoved struct {
	Account [20]byte
}

func (WhitelistRemoved) EventType() string { return TypeWhitelistRemoved }

func (e WhitelistRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeWhitelistRemoved,
		Attributes: map[string]string{
			"account": crypto.NewAddress(crypto.MPVPrefix, e.Account[:]).String(),
		},
	}
}
