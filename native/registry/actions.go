package registry

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrUnknownAction = errors.New("registry: unknown action kind")
	ErrWrongRole     = errors.New("registry: action not bound to this role")
	ErrBadArity      = errors.New("registry: argument arity mismatch")
)

// ActionKind enumerates every privileged action the registry can dispatch.
// Each kind is statically bound to exactly one role that may initiate it.
type ActionKind uint8

const (
	// SuperOwner actions.
	ActionSetSuperOwnerActionThresholdPercent ActionKind = iota
	ActionSetSuperOwnerActionCountdown
	ActionSetBasicOwnerActionCountdown
	ActionSetWhitelistRemovalActionCountdown
	ActionSetMintingActionCountdown
	ActionSetBurningActionCountdown
	ActionSetDelayedTransferCountdown
	ActionSetUpdateDailyLimitCountdown
	ActionAddOwner
	ActionRemoveOwner
	ActionAddBasicOwner
	ActionRemoveBasicOwner
	ActionPause
	ActionUnpause

	// BasicOwner actions.
	ActionSetRedemptionFee
	ActionSetRedemptionFeeReceiverWallet
	ActionSetMintingReceiverWallet
	ActionSetDailyLimit
	ActionAddOperationAdmin
	ActionRemoveOperationAdmin
	ActionAddMintingAdmin
	ActionRemoveMintingAdmin
	ActionAddRedemptionAdmin
	ActionRemoveRedemptionAdmin
	ActionSetAssetReserved
	ActionSetAssetEnlisted
	ActionCancelMintingRound
	ActionUpdateSweepAddress

	// OperationAdmin actions.
	ActionAddWhitelisted
	ActionAddManyWhitelisted
	ActionRemoveWhitelisted

	// MintingAdmin actions.
	ActionAddPendingAssets
	ActionRemovePendingAsset
	ActionConfirmPendingAssets
)

// Args carries the typed argument vectors of an administrative call, checked
// against the action kind's declared schema before submission.
type Args struct {
	Uints  []*big.Int
	Addrs  [][20]byte
	Hashes [][32]byte
}

type schema struct {
	role   Role
	uints  int
	addrs  int
	hashes int
	// variadic schemas validate argument groups instead of fixed arity.
	variadic bool
}

var actionSchemas = map[ActionKind]schema{
	ActionSetSuperOwnerActionThresholdPercent: {role: RoleSuperOwner, uints: 1},
	ActionSetSuperOwnerActionCountdown:        {role: RoleSuperOwner, uints: 1},
	ActionSetBasicOwnerActionCountdown:        {role: RoleSuperOwner, uints: 1},
	ActionSetWhitelistRemovalActionCountdown:  {role: RoleSuperOwner, uints: 1},
	ActionSetMintingActionCountdown:           {role: RoleSuperOwner, uints: 1},
	ActionSetBurningActionCountdown:           {role: RoleSuperOwner, uints: 1},
	ActionSetDelayedTransferCountdown:         {role: RoleSuperOwner, uints: 1},
	ActionSetUpdateDailyLimitCountdown:        {role: RoleSuperOwner, uints: 1},
	ActionAddOwner:                            {role: RoleSuperOwner, addrs: 1},
	ActionRemoveOwner:                         {role: RoleSuperOwner, addrs: 1},
	ActionAddBasicOwner:                       {role: RoleSuperOwner, addrs: 1},
	ActionRemoveBasicOwner:                    {role: RoleSuperOwner, addrs: 1},
	ActionPause:                               {role: RoleSuperOwner},
	ActionUnpause:                             {role: RoleSuperOwner},

	ActionSetRedemptionFee:               {role: RoleBasicOwner, uints: 1},
	ActionSetRedemptionFeeReceiverWallet: {role: RoleBasicOwner, addrs: 1},
	ActionSetMintingReceiverWallet:       {role: RoleBasicOwner, addrs: 1},
	ActionSetDailyLimit:                  {role: RoleBasicOwner, uints: 1},
	ActionAddOperationAdmin:              {role: RoleBasicOwner, addrs: 1},
	ActionRemoveOperationAdmin:           {role: RoleBasicOwner, addrs: 1},
	ActionAddMintingAdmin:                {role: RoleBasicOwner, addrs: 1},
	ActionRemoveMintingAdmin:             {role: RoleBasicOwner, addrs: 1},
	ActionAddRedemptionAdmin:             {role: RoleBasicOwner, addrs: 1},
	ActionRemoveRedemptionAdmin:          {role: RoleBasicOwner, addrs: 1},
	ActionSetAssetReserved:               {role: RoleBasicOwner, uints: 1},
	ActionSetAssetEnlisted:               {role: RoleBasicOwner, uints: 1},
	ActionCancelMintingRound:             {role: RoleBasicOwner},
	ActionUpdateSweepAddress:             {role: RoleBasicOwner, addrs: 2},

	ActionAddWhitelisted:     {role: RoleOperationAdmin, addrs: 1},
	ActionAddManyWhitelisted: {role: RoleOperationAdmin, variadic: true},
	ActionRemoveWhitelisted:  {role: RoleOperationAdmin, addrs: 1},

	ActionAddPendingAssets:     {role: RoleMintingAdmin, variadic: true},
	ActionRemovePendingAsset:   {role: RoleMintingAdmin, uints: 1},
	ActionConfirmPendingAssets: {role: RoleMintingAdmin},
}

var actionNames = map[ActionKind]string{
	ActionSetSuperOwnerActionThresholdPercent: "setSuperOwnerActionThresholdPercent",
	ActionSetSuperOwnerActionCountdown:        "setSuperOwnerActionCountdown",
	ActionSetBasicOwnerActionCountdown:        "setBasicOwnerActionCountdown",
	ActionSetWhitelistRemovalActionCountdown:  "setWhitelistRemovalActionCountdown",
	ActionSetMintingActionCountdown:           "setMintingActionCountdown",
	ActionSetBurningActionCountdown:           "setBurningActionCountdown",
	ActionSetDelayedTransferCountdown:         "setDelayedTransferCountdown",
	ActionSetUpdateDailyLimitCountdown:        "setUpdateDailyLimitCountdown",
	ActionAddOwner:                            "addOwner",
	ActionRemoveOwner:                         "removeOwner",
	ActionAddBasicOwner:                       "addBasicOwner",
	ActionRemoveBasicOwner:                    "removeBasicOwner",
	ActionPause:                               "pause",
	ActionUnpause:                             "unpause",
	ActionSetRedemptionFee:                    "setRedemptionFee",
	ActionSetRedemptionFeeReceiverWallet:      "setRedemptionFeeReceiverWallet",
	ActionSetMintingReceiverWallet:            "setMintingReceiverWallet",
	ActionSetDailyLimit:                       "setDailyLimit",
	ActionAddOperationAdmin:                   "addOperationAdmin",
	ActionRemoveOperationAdmin:                "removeOperationAdmin",
	ActionAddMintingAdmin:                     "addMintingAdmin",
	ActionRemoveMintingAdmin:                  "removeMintingAdmin",
	ActionAddRedemptionAdmin:                  "addRedemptionAdmin",
	ActionRemoveRedemptionAdmin:               "removeRedemptionAdmin",
	ActionSetAssetReserved:                    "setAssetReserved",
	ActionSetAssetEnlisted:                    "setAssetEnlisted",
	ActionCancelMintingRound:                  "cancelMintingRound",
	ActionUpdateSweepAddress:                  "updateSweepAddress",
	ActionAddWhitelisted:                      "addWhitelisted",
	ActionAddManyWhitelisted:                  "addManyWhitelisted",
	ActionRemoveWhitelisted:                   "removeWhitelisted",
	ActionAddPendingAssets:                    "addPendingAssets",
	ActionRemovePendingAsset:                  "removePendingAsset",
	ActionConfirmPendingAssets:                "confirmPendingAssets",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// BoundRole returns the role statically allowed to initiate this action.
func (k ActionKind) BoundRole() (Role, bool) {
	s, ok := actionSchemas[k]
	return s.role, ok
}

func validateArgs(kind ActionKind, args Args) error {
	s, ok := actionSchemas[kind]
	if !ok {
		return ErrUnknownAction
	}
	if s.variadic {
		switch kind {
		case ActionAddManyWhitelisted:
			if len(args.Addrs) == 0 || len(args.Uints) != 0 || len(args.Hashes) != 0 {
				return fmt.Errorf("%w: addManyWhitelisted wants addresses only", ErrBadArity)
			}
		case ActionAddPendingAssets:
			n := len(args.Addrs)
			if n == 0 || len(args.Uints) != 2*n || len(args.Hashes) != n {
				return fmt.Errorf("%w: addPendingAssets wants (id,tokens) pairs with one owner and one fingerprint each", ErrBadArity)
			}
		default:
			return ErrUnknownAction
		}
		return nil
	}
	if len(args.Uints) != s.uints || len(args.Addrs) != s.addrs || len(args.Hashes) != s.hashes {
		return fmt.Errorf("%w: %s wants %d uints, %d addresses, %d hashes", ErrBadArity, kind, s.uints, s.addrs, s.hashes)
	}
	return nil
}

// proposal is the payload routed through a role's multisig wallet.
type proposal struct {
	kind ActionKind
	args Args
}

// Kind implements multisig.Action.
func (p proposal) Kind() string { return p.kind.String() }
