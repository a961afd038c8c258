package registry

import (
	"errors"
	"fmt"
	"math/big"

	"mpvledger/core/events"
	"mpvledger/native/assets"
	"mpvledger/native/multisig"
	"mpvledger/native/token"
	"mpvledger/native/whitelist"
)

var (
	ErrRoleUnbound         = errors.New("registry: role has no authorizer")
	ErrModuleNotConfigured = errors.New("registry: module not wired")
	ErrBadThresholdPercent = errors.New("registry: threshold percent must be between 1 and 100")
	ErrNegativeCountdown   = errors.New("registry: countdown must not be negative")
	ErrValueOutOfRange     = errors.New("registry: numeric argument out of range")
)

// Registry binds each role to its multisig wallet and dispatches approved
// administrative actions into the whitelist, asset ledger, and token engines.
// All privileged mutation flows through Invoke/Confirm; the registry itself
// never mutates module state except from inside a wallet executor.
type Registry struct {
	wallets map[Role]*multisig.Wallet

	paused           bool
	thresholdPercent uint64

	superOwnerActionCountdown int64
	basicOwnerActionCountdown int64

	whitelist *whitelist.Whitelist
	assets    *assets.Ledger
	token     *token.Token
	emitter   events.Emitter
}

// NewRegistry wires one wallet per role and installs the action executors.
// Every role must be bound; the mapping is immutable afterwards.
func NewRegistry(wallets map[Role]*multisig.Wallet, thresholdPercent uint64) (*Registry, error) {
	if thresholdPercent == 0 || thresholdPercent > 100 {
		return nil, ErrBadThresholdPercent
	}
	for _, role := range Roles {
		if wallets[role] == nil {
			return nil, fmt.Errorf("%w: %s", ErrRoleUnbound, role)
		}
	}
	r := &Registry{
		wallets:          wallets,
		thresholdPercent: thresholdPercent,
		emitter:          events.NoopEmitter{},
	}
	for _, role := range Roles {
		role := role
		wallets[role].SetExecutor(multisig.ExecutorFunc(func(action multisig.Action) error {
			return r.execute(role, action)
		}))
	}
	// The super owner quorum tracks the signer count even when the signer set
	// changes through the wallet's own governance payloads rather than an
	// AddOwner/RemoveOwner action. The recomputed requirement is clamped to
	// [1, signers], so the apply cannot fail.
	wallets[RoleSuperOwner].SetGovernanceHook(func() {
		_ = r.recomputeSuperRequired()
	})
	return r, nil
}

// SetWhitelist wires the whitelist engine governed by the operation admins.
func (r *Registry) SetWhitelist(wl *whitelist.Whitelist) { r.whitelist = wl }

// SetAssets wires the asset ledger governed by the owner and minting roles.
func (r *Registry) SetAssets(ledger *assets.Ledger) { r.assets = ledger }

// SetToken wires the restricted token governed by the owner roles.
func (r *Registry) SetToken(tok *token.Token) { r.token = tok }

func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	r.emitter = emitter
}

// IsPaused reports whether the system-wide transfer pause is in effect.
func (r *Registry) IsPaused() bool { return r.paused }

// ThresholdPercent returns the percentage driving the super owner quorum.
func (r *Registry) ThresholdPercent() uint64 { return r.thresholdPercent }

func (r *Registry) SuperOwnerActionCountdown() int64 { return r.superOwnerActionCountdown }

func (r *Registry) BasicOwnerActionCountdown() int64 { return r.basicOwnerActionCountdown }

// Wallet returns the authorizer bound to the role.
func (r *Registry) Wallet(role Role) (*multisig.Wallet, bool) {
	w, ok := r.wallets[role]
	return w, ok
}

// Invoke submits an administrative action for approval by the wallet bound to
// role. The caller must be a signer of that specific wallet; the action kind
// must be bound to the role and the argument vectors must match its schema.
// It returns the wallet transaction identifier for later Confirm/Revoke calls.
func (r *Registry) Invoke(caller [20]byte, role Role, kind ActionKind, args Args) (uint64, error) {
	wallet, ok := r.wallets[role]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRoleUnbound, role)
	}
	bound, ok := kind.BoundRole()
	if !ok {
		return 0, ErrUnknownAction
	}
	if bound != role {
		return 0, fmt.Errorf("%w: %s belongs to %s", ErrWrongRole, kind, bound)
	}
	if err := validateArgs(kind, args); err != nil {
		return 0, err
	}
	return wallet.Submit(caller, proposal{kind: kind, args: args})
}

// Confirm records the caller's approval of a pending action on the role's
// wallet, executing it when quorum is reached.
func (r *Registry) Confirm(caller [20]byte, role Role, id uint64) error {
	wallet, ok := r.wallets[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoleUnbound, role)
	}
	return wallet.Confirm(caller, id)
}

// Revoke withdraws the caller's prior approval of a pending action.
func (r *Registry) Revoke(caller [20]byte, role Role, id uint64) error {
	wallet, ok := r.wallets[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoleUnbound, role)
	}
	return wallet.Revoke(caller, id)
}

// execute routes an approved wallet payload. The redemption wallet also
// carries countdown-start payloads submitted by the asset ledger.
func (r *Registry) execute(role Role, action multisig.Action) error {
	switch a := action.(type) {
	case proposal:
		return r.apply(role, a)
	case assets.StartRedemptionCountdown:
		if role != RoleRedemptionAdmin {
			return fmt.Errorf("%w: redemption countdown via %s", ErrWrongRole, role)
		}
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		return r.assets.StartRedemptionCountdownFor(a.AssetID)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func (r *Registry) apply(role Role, p proposal) error {
	switch p.kind {
	case ActionSetSuperOwnerActionThresholdPercent:
		pct, err := toUint64(p.args.Uints[0])
		if err != nil {
			return err
		}
		if pct == 0 || pct > 100 {
			return ErrBadThresholdPercent
		}
		r.thresholdPercent = pct
		return r.recomputeSuperRequired()
	case ActionSetSuperOwnerActionCountdown:
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		r.superOwnerActionCountdown = sec
		return nil
	case ActionSetBasicOwnerActionCountdown:
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		r.basicOwnerActionCountdown = sec
		return nil
	case ActionSetWhitelistRemovalActionCountdown:
		if r.whitelist == nil {
			return ErrModuleNotConfigured
		}
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.whitelist.SetRemovalCountdown(sec)
	case ActionSetMintingActionCountdown:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.assets.SetMintingCountdownLength(sec)
	case ActionSetBurningActionCountdown:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.assets.SetRedemptionCountdownLength(sec)
	case ActionSetDelayedTransferCountdown:
		if r.token == nil {
			return ErrModuleNotConfigured
		}
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.token.SetDelayedTransferCountdownLength(sec)
	case ActionSetUpdateDailyLimitCountdown:
		if r.token == nil {
			return ErrModuleNotConfigured
		}
		sec, err := toSeconds(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.token.SetUpdateDailyLimitCountdownLength(sec)
	case ActionAddOwner:
		if err := r.wallets[RoleSuperOwner].ApplyAddSigner(p.args.Addrs[0]); err != nil {
			return err
		}
		return r.recomputeSuperRequired()
	case ActionRemoveOwner:
		if err := r.wallets[RoleSuperOwner].ApplyRemoveSigner(p.args.Addrs[0]); err != nil {
			return err
		}
		return r.recomputeSuperRequired()
	case ActionAddBasicOwner:
		return r.wallets[RoleBasicOwner].ApplyAddSigner(p.args.Addrs[0])
	case ActionRemoveBasicOwner:
		return r.wallets[RoleBasicOwner].ApplyRemoveSigner(p.args.Addrs[0])
	case ActionPause:
		r.paused = true
		r.emitter.Emit(events.Paused{})
		return nil
	case ActionUnpause:
		r.paused = false
		r.emitter.Emit(events.Unpaused{})
		return nil

	case ActionSetRedemptionFee:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		return r.assets.SetRedemptionFee(p.args.Uints[0])
	case ActionSetRedemptionFeeReceiverWallet:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		return r.assets.SetFeeReceiver(p.args.Addrs[0])
	case ActionSetMintingReceiverWallet:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		return r.assets.SetMintingReceiver(p.args.Addrs[0])
	case ActionSetDailyLimit:
		if r.token == nil {
			return ErrModuleNotConfigured
		}
		return r.token.UpdateDailyLimit(p.args.Uints[0])
	case ActionAddOperationAdmin:
		return r.wallets[RoleOperationAdmin].ApplyAddSigner(p.args.Addrs[0])
	case ActionRemoveOperationAdmin:
		return r.wallets[RoleOperationAdmin].ApplyRemoveSigner(p.args.Addrs[0])
	case ActionAddMintingAdmin:
		return r.wallets[RoleMintingAdmin].ApplyAddSigner(p.args.Addrs[0])
	case ActionRemoveMintingAdmin:
		return r.wallets[RoleMintingAdmin].ApplyRemoveSigner(p.args.Addrs[0])
	case ActionAddRedemptionAdmin:
		return r.wallets[RoleRedemptionAdmin].ApplyAddSigner(p.args.Addrs[0])
	case ActionRemoveRedemptionAdmin:
		return r.wallets[RoleRedemptionAdmin].ApplyRemoveSigner(p.args.Addrs[0])
	case ActionSetAssetReserved:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		id, err := toUint64(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.assets.SetReserved(id)
	case ActionSetAssetEnlisted:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		id, err := toUint64(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.assets.SetEnlisted(id)
	case ActionCancelMintingRound:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		return r.assets.CancelMintingRound()
	case ActionUpdateSweepAddress:
		if r.token == nil {
			return ErrModuleNotConfigured
		}
		return r.token.UpdateSweepAddress(p.args.Addrs[0], p.args.Addrs[1])

	case ActionAddWhitelisted:
		if r.whitelist == nil {
			return ErrModuleNotConfigured
		}
		return r.whitelist.Add(p.args.Addrs[0])
	case ActionAddManyWhitelisted:
		if r.whitelist == nil {
			return ErrModuleNotConfigured
		}
		return r.whitelist.AddMany(p.args.Addrs)
	case ActionRemoveWhitelisted:
		if r.whitelist == nil {
			return ErrModuleNotConfigured
		}
		return r.whitelist.ProposeRemoval(p.args.Addrs[0])

	case ActionAddPendingAssets:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		batch, err := decodePendingAssets(p.args)
		if err != nil {
			return err
		}
		return r.assets.AddPendingAssets(batch)
	case ActionRemovePendingAsset:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		id, err := toUint64(p.args.Uints[0])
		if err != nil {
			return err
		}
		return r.assets.RemovePendingAsset(id)
	case ActionConfirmPendingAssets:
		if r.assets == nil {
			return ErrModuleNotConfigured
		}
		return r.assets.ConfirmPendingAssets()
	default:
		return fmt.Errorf("%w: %s via %s", ErrUnknownAction, p.kind, role)
	}
}

// recomputeSuperRequired rescales the super owner quorum to
// ceil(signers * thresholdPercent / 100), clamped to at least one approval.
func (r *Registry) recomputeSuperRequired() error {
	wallet := r.wallets[RoleSuperOwner]
	n := uint64(wallet.SignerCount())
	required := (n*r.thresholdPercent + 99) / 100
	if required < 1 {
		required = 1
	}
	if required > n {
		required = n
	}
	if err := wallet.ApplyChangeRequirement(int(required)); err != nil {
		return err
	}
	r.emitter.Emit(events.ThresholdPercentUpdated{Percent: r.thresholdPercent, Required: int(required)})
	return nil
}

func decodePendingAssets(args Args) ([]*assets.Asset, error) {
	batch := make([]*assets.Asset, 0, len(args.Addrs))
	for i := range args.Addrs {
		id, err := toUint64(args.Uints[2*i])
		if err != nil {
			return nil, err
		}
		batch = append(batch, &assets.Asset{
			ID:             id,
			NotarizationID: args.Hashes[i],
			Tokens:         new(big.Int).Set(args.Uints[2*i+1]),
			Owner:          args.Addrs[i],
			Status:         assets.StatusPending,
		})
	}
	return batch, nil
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, ErrValueOutOfRange
	}
	return v.Uint64(), nil
}

func toSeconds(v *big.Int) (int64, error) {
	if v == nil || v.Sign() < 0 || !v.IsInt64() {
		return 0, ErrNegativeCountdown
	}
	return v.Int64(), nil
}
