package events

import (
	"mpvledger/core/types"
	"mpvledger/crypto"
)

const (
	TypeMultisigSubmitted  = "multisig.submitted"
	TypeMultisigConfirmed  = "multisig.confirmed"
	TypeMultisigRevoked    = "multisig.revoked"
	TypeMultisigExecuted   = "multisig.executed"
	TypeMultisigFailed     = "multisig.executionFailed"
	TypeSignerAdded        = "multisig.signerAdded"
	TypeSignerRemoved      = "multisig.signerRemoved"
	TypeRequirementChanged = "multisig.requirementChanged"
)

type MultisigSubmitted struct {
	Wallet    string
	TxID      uint64
	Kind      string
	Submitter [20]byte
}

func (MultisigSubmitted) EventType() string { return TypeMultisigSubmitted }

func (e MultisigSubmitted) Event() *types.Event {
	return &types.Event{
		Type: TypeMultisigSubmitted,
		Attributes: map[string]string{
			"wallet":    e.Wallet,
			"txId":      uintToString(e.TxID),
			"kind":      e.Kind,
			"submitter": crypto.NewAddress(crypto.MPVPrefix, e.Submitter[:]).String(),
		},
	}
}

type MultisigConfirmed struct {
	Wallet    string
	TxID      uint64
	Signer    [20]byte
	Approvals int
}

func (MultisigConfirmed) EventType() string { return TypeMultisigConfirmed }

func (e MultisigConfirmed) Event() *types.Event {
	return &types.Event{
		Type: TypeMultisigConfirmed,
		Attributes: map[string]string{
			"wallet":    e.Wallet,
			"txId":      uintToString(e.TxID),
			"signer":    crypto.NewAddress(crypto.MPVPrefix, e.Signer[:]).String(),
			"approvals": intToString(int64(e.Approvals)),
		},
	}
}

type MultisigRevoked struct {
	Wallet string
	TxID   uint64
	Signer [20]byte
}

func (MultisigRevoked) EventType() string { return TypeMultisigRevoked }

func (e MultisigRevoked) Event() *types.Event {
	return &types.Event{
		Type: TypeMultisigRevoked,
		Attributes: map[string]string{
			"wallet": e.Wallet,
			"txId":   uintToString(e.TxID),
			"signer": crypto.NewAddress(crypto.MPVPrefix, e.Signer[:]).String(),
		},
	}
}

type MultisigExecuted struct {
	Wallet string
	TxID   uint64
	Kind   string
}

func (MultisigExecuted) EventType() string { return TypeMultisigExecuted }

func (e MultisigExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeMultisigExecuted,
		Attributes: map[string]string{
			"wallet": e.Wallet,
			"txId":   uintToString(e.TxID),
			"kind":   e.Kind,
		},
	}
}

type MultisigExecutionFailed struct {
	Wallet string
	TxID   uint64
	Kind   string
	Reason string
}

func (MultisigExecutionFailed) EventType() string { return TypeMultisigFailed }

func (e MultisigExecutionFailed) Event() *types.Event {
	return &types.Event{
		Type: TypeMultisigFailed,
		Attributes: map[string]string{
			"wallet": e.Wallet,
			"txId":   uintToString(e.TxID),
			"kind":   e.Kind,
			"reason": e.Reason,
		},
	}
}

type SignerAdded struct {
	Wallet string
	Signer [20]byte
}

func (SignerAdded) EventType() string { return TypeSignerAdded }

func (e SignerAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeSignerAdded,
		Attributes: map[string]string{
			"wallet": e.Wallet,
			"signer": crypto.NewAddress(crypto.MPVPrefix, e.Signer[:]).String(),
		},
	}
}

type SignerRemoved struct {
	Wallet string
	Signer [20]byte
}

func (SignerRemoved) EventType() string { return TypeSignerRemoved }

func (e SignerRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeSignerRemoved,
		Attributes: map[string]string{
			"wallet": e.Wallet,
			"signer": crypto.NewAddress(crypto.MPVPrefix, e.Signer[:]).String(),
		},
	}
}

type RequirementChanged struct {
	Wallet   string
	Required int
}

func (RequirementChanged) EventType() string { return TypeRequirementChanged }

func (e RequirementChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeRequirementChanged,
		Attributes: map[string]string{
			"wallet":   e.Wallet,
			"required": intToString(int64(e.Required)),
		},
	}
}
