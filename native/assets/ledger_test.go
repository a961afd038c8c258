package assets

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"mpvledger/native/multisig"
	"mpvledger/native/token"
	"mpvledger/native/whitelist"
)

type pauseStub struct {
	paused bool
}

func (p *pauseStub) IsPaused() bool { return p.paused }

type virtualClock struct {
	now int64
}

func (c *virtualClock) Now() int64         { return c.now }
func (c *virtualClock) Advance(secs int64) { c.now += secs }

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type fixture struct {
	clock     *virtualClock
	ledger    *Ledger
	token     *token.Token
	gate      *multisig.Wallet
	whitelist *whitelist.Whitelist

	owner       [20]byte
	admin       [20]byte
	feeReceiver [20]byte
}

// newFixture wires a ledger against a real token, whitelist, and a 1-of-1
// redemption admin wallet, with minting proceeds credited to the asset owner.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &virtualClock{now: 10_000}

	owner := testAddr(0x01)
	admin := testAddr(0x02)
	feeReceiver := testAddr(0x03)

	wl := whitelist.New()
	wl.SetNowFunc(clock.Now)

	tok := token.New("Master Property Value", "MPV", 4)
	tok.SetNowFunc(clock.Now)
	tok.SetWhitelist(wl)
	tok.SetPauseView(&pauseStub{})

	ledger := NewLedger(big.NewInt(10), feeReceiver, owner)
	ledger.SetNowFunc(clock.Now)
	ledger.SetToken(tok)

	escrow := ledger.EscrowAccount()
	tok.SetMintingAdmin(escrow)
	tok.SetRedemptionAdmin(escrow)
	tok.SetLedgerModule(escrow)

	gate, err := multisig.NewWallet("redemptionAdmin", [][20]byte{admin}, 1)
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}
	gate.SetTransactor(escrow)
	gate.SetExecutor(multisig.ExecutorFunc(func(action multisig.Action) error {
		start, ok := action.(StartRedemptionCountdown)
		if !ok {
			t.Fatalf("unexpected action %T", action)
		}
		return ledger.StartRedemptionCountdownFor(start.AssetID)
	}))
	ledger.SetRedemptionGate(gate)

	for _, account := range [][20]byte{owner, feeReceiver, escrow} {
		if err := wl.Add(account); err != nil {
			t.Fatalf("whitelist: %v", err)
		}
	}

	return &fixture{
		clock:       clock,
		ledger:      ledger,
		token:       tok,
		gate:        gate,
		whitelist:   wl,
		owner:       owner,
		admin:       admin,
		feeReceiver: feeReceiver,
	}
}

func (f *fixture) enlist(t *testing.T, assets ...*Asset) {
	t.Helper()
	if err := f.ledger.AddPendingAssets(assets); err != nil {
		t.Fatalf("AddPendingAssets: %v", err)
	}
	if err := f.ledger.ConfirmPendingAssets(); err != nil {
		t.Fatalf("ConfirmPendingAssets: %v", err)
	}
	f.clock.Advance(DefaultCountdown)
	if err := f.ledger.FinalizeMinting(); err != nil {
		t.Fatalf("FinalizeMinting: %v", err)
	}
}

func newAsset(id uint64, tokens int64, owner [20]byte) *Asset {
	return &Asset{ID: id, Tokens: big.NewInt(tokens), Owner: owner}
}

func TestMintingRoundLifecycle(t *testing.T) {
	f := newFixture(t)

	if err := f.ledger.AddPendingAssets(nil); !errors.Is(err, ErrNoPendingAssets) {
		t.Fatalf("expected ErrNoPendingAssets, got %v", err)
	}
	if err := f.ledger.AddPendingAssets([]*Asset{newAsset(1, 100, f.owner), newAsset(1, 50, f.owner)}); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists on duplicate id, got %v", err)
	}
	if err := f.ledger.AddPendingAssets([]*Asset{newAsset(1, 100, f.owner)}); err != nil {
		t.Fatalf("AddPendingAssets: %v", err)
	}
	if f.ledger.PendingCount() != 1 {
		t.Fatalf("expected 1 pending asset, got %d", f.ledger.PendingCount())
	}

	if err := f.ledger.ConfirmPendingAssets(); err != nil {
		t.Fatalf("ConfirmPendingAssets: %v", err)
	}
	// A second submission during an active countdown fails outright.
	if err := f.ledger.AddPendingAssets([]*Asset{newAsset(2, 50, f.owner)}); !errors.Is(err, ErrMintingRoundActive) {
		t.Fatalf("expected ErrMintingRoundActive, got %v", err)
	}
	if err := f.ledger.FinalizeMinting(); !errors.Is(err, ErrCountdownNotElapsed) {
		t.Fatalf("expected ErrCountdownNotElapsed, got %v", err)
	}

	f.clock.Advance(DefaultCountdown)
	if err := f.ledger.FinalizeMinting(); err != nil {
		t.Fatalf("FinalizeMinting: %v", err)
	}
	asset, ok := f.ledger.Get(1)
	if !ok || asset.Status != StatusEnlisted {
		t.Fatalf("expected asset 1 enlisted, got %+v", asset)
	}
	if got := f.token.BalanceOf(f.owner); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected minting receiver balance 100, got %s", got)
	}
	if got := f.token.TotalSupply(); got.Cmp(f.ledger.CollateralizedTokens()) != 0 {
		t.Fatalf("supply %s must equal collateralized tokens %s", got, f.ledger.CollateralizedTokens())
	}
}

func TestCancelMintingRoundKeepsPending(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.AddPendingAssets([]*Asset{newAsset(1, 100, f.owner)}); err != nil {
		t.Fatalf("AddPendingAssets: %v", err)
	}
	if err := f.ledger.CancelMintingRound(); !errors.Is(err, ErrNoMintingRound) {
		t.Fatalf("expected ErrNoMintingRound, got %v", err)
	}
	if err := f.ledger.ConfirmPendingAssets(); err != nil {
		t.Fatalf("ConfirmPendingAssets: %v", err)
	}
	if err := f.ledger.CancelMintingRound(); err != nil {
		t.Fatalf("CancelMintingRound: %v", err)
	}
	if f.ledger.PendingCount() != 1 {
		t.Fatalf("cancelling must keep pending assets, got %d", f.ledger.PendingCount())
	}
	f.clock.Advance(DefaultCountdown)
	if err := f.ledger.FinalizeMinting(); !errors.Is(err, ErrNoMintingRound) {
		t.Fatalf("finalize after cancel must need a fresh confirmation, got %v", err)
	}
}

func TestRemovePendingAssetBurnsIdentifier(t *testing.T) {
	f := newFixture(t)
	if err := f.ledger.AddPendingAssets([]*Asset{newAsset(1, 100, f.owner)}); err != nil {
		t.Fatalf("AddPendingAssets: %v", err)
	}
	if err := f.ledger.RemovePendingAsset(1); err != nil {
		t.Fatalf("RemovePendingAsset: %v", err)
	}
	if _, ok := f.ledger.Get(1); ok {
		t.Fatalf("expected asset removed")
	}
	if err := f.ledger.AddPendingAssets([]*Asset{newAsset(1, 100, f.owner)}); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("withdrawn identifiers are never reused, got %v", err)
	}
}

func TestReservedSideState(t *testing.T) {
	f := newFixture(t)
	f.enlist(t, newAsset(1, 100, f.owner))

	if err := f.ledger.SetEnlisted(1); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := f.ledger.SetReserved(1); err != nil {
		t.Fatalf("SetReserved: %v", err)
	}
	if got := f.ledger.StatusTotalTokens(StatusReserved); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 reserved, got %s", got)
	}
	// Reserved assets stay collateralized but cannot be redeemed.
	if _, err := f.ledger.RequestRedemption(f.owner, 1); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := f.ledger.SetEnlisted(1); err != nil {
		t.Fatalf("SetEnlisted: %v", err)
	}
}

func TestRedemptionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.enlist(t, newAsset(1, 100, f.owner), newAsset(2, 100, f.owner))

	if got := f.token.BalanceOf(f.owner); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected owner balance 200, got %s", got)
	}

	if _, err := f.ledger.RequestRedemption(testAddr(0x09), 1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	txID, err := f.ledger.RequestRedemption(f.owner, 1)
	if err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}

	escrow := f.ledger.EscrowAccount()
	if got := f.token.BalanceOf(f.owner); got.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("expected owner balance 90, got %s", got)
	}
	if got := f.token.BalanceOf(escrow); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected escrow balance 100, got %s", got)
	}
	if got := f.token.BalanceOf(f.feeReceiver); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected fee receiver balance 10, got %s", got)
	}
	asset, _ := f.ledger.Get(1)
	if asset.Status != StatusLocked {
		t.Fatalf("expected Locked, got %s", asset.Status)
	}

	// The countdown only starts once the redemption admins approve.
	if err := f.ledger.ExecuteRedemption(f.admin, 1); !errors.Is(err, ErrCountdownNotElapsed) {
		t.Fatalf("expected ErrCountdownNotElapsed before approval, got %v", err)
	}
	if err := f.gate.Confirm(f.admin, txID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if f.ledger.RedemptionCountdownStart(1) == 0 {
		t.Fatalf("expected countdown start recorded")
	}
	if err := f.ledger.ExecuteRedemption(f.admin, 1); !errors.Is(err, ErrCountdownNotElapsed) {
		t.Fatalf("expected ErrCountdownNotElapsed, got %v", err)
	}

	f.clock.Advance(DefaultCountdown)
	if err := f.ledger.ExecuteRedemption(testAddr(0x09), 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.ExecuteRedemption(f.admin, 1); err != nil {
		t.Fatalf("ExecuteRedemption: %v", err)
	}

	asset, _ = f.ledger.Get(1)
	if asset.Status != StatusRedeemed {
		t.Fatalf("expected Redeemed, got %s", asset.Status)
	}
	if got := f.token.TotalSupply(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected supply 100 after burn, got %s", got)
	}
	if got := f.ledger.CollateralizedTokens(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 collateralized, got %s", got)
	}
	if err := f.ledger.ExecuteRedemption(f.admin, 1); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("redeemed is terminal, got %v", err)
	}
}

func TestCancelRedemptionRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.enlist(t, newAsset(1, 100, f.owner), newAsset(2, 100, f.owner))
	supplyBefore := f.token.TotalSupply()

	if _, err := f.ledger.RequestRedemption(f.owner, 1); err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}
	if err := f.ledger.CancelRedemption(testAddr(0x09), 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("only the lock account may cancel, got %v", err)
	}
	if err := f.ledger.CancelRedemption(f.owner, 1); err != nil {
		t.Fatalf("CancelRedemption: %v", err)
	}

	asset, _ := f.ledger.Get(1)
	if asset.Status != StatusEnlisted {
		t.Fatalf("expected Enlisted after cancel, got %s", asset.Status)
	}
	if got := f.token.BalanceOf(f.owner); got.Cmp(big.NewInt(190)) != 0 {
		t.Fatalf("expected locked amount refunded (fee is kept), got %s", got)
	}
	if got := f.token.TotalSupply(); got.Cmp(supplyBefore) != 0 {
		t.Fatalf("cancel must not change supply: %s != %s", got, supplyBefore)
	}
	if _, ok := f.ledger.RedemptionLockOf(1); ok {
		t.Fatalf("expected lock deleted")
	}
}

func TestRejectRedemptionRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.enlist(t, newAsset(1, 100, f.owner), newAsset(2, 100, f.owner))

	if _, err := f.ledger.RequestRedemption(f.owner, 1); err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}
	if err := f.ledger.RejectRedemption(f.owner, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.ledger.RejectRedemption(f.admin, 1); err != nil {
		t.Fatalf("RejectRedemption: %v", err)
	}
	asset, _ := f.ledger.Get(1)
	if asset.Status != StatusEnlisted {
		t.Fatalf("expected Enlisted after reject, got %s", asset.Status)
	}
}

func TestRequestRedemptionInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	// A single asset: the owner holds exactly the token value, not the fee.
	f.enlist(t, newAsset(1, 100, f.owner))
	if _, err := f.ledger.RequestRedemption(f.owner, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	asset, _ := f.ledger.Get(1)
	if asset.Status != StatusEnlisted {
		t.Fatalf("failed request must not change status, got %s", asset.Status)
	}
}

func TestRequestRedemptionSettlementFailureIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.enlist(t, newAsset(1, 100, f.owner), newAsset(2, 100, f.owner))

	// Drop the escrow account from the whitelist so the second settlement
	// move cannot land. The fee credit and the gate submission must not
	// survive either.
	if err := f.whitelist.SetRemovalCountdown(0); err != nil {
		t.Fatalf("SetRemovalCountdown: %v", err)
	}
	if err := f.whitelist.ProposeRemoval(f.ledger.EscrowAccount()); err != nil {
		t.Fatalf("ProposeRemoval: %v", err)
	}

	if _, err := f.ledger.RequestRedemption(f.owner, 1); !errors.Is(err, token.ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	if got := f.token.BalanceOf(f.owner); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("owner balance must be untouched, got %s", got)
	}
	if got := f.token.BalanceOf(f.feeReceiver); got.Sign() != 0 {
		t.Fatalf("fee receiver must stay empty, got %s", got)
	}
	if got := f.gate.TransactionCount(); got != 0 {
		t.Fatalf("no countdown action may be submitted, got %d", got)
	}
	asset, _ := f.ledger.Get(1)
	if asset.Status != StatusEnlisted {
		t.Fatalf("failed request must not change status, got %s", asset.Status)
	}
	if _, ok := f.ledger.RedemptionLockOf(1); ok {
		t.Fatalf("failed request must not record a lock")
	}
}

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.enlist(t, newAsset(1, 100, f.owner), newAsset(2, 100, f.owner))
	if _, err := f.ledger.RequestRedemption(f.owner, 1); err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}

	restored := NewLedger(big.NewInt(0), testAddr(0x0A), testAddr(0x0B))
	if err := restored.RestoreState(f.ledger.ExportState()); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}
	asset, ok := restored.Get(1)
	if !ok || asset.Status != StatusLocked {
		t.Fatalf("expected locked asset 1 after restore, got %+v", asset)
	}
	lock, ok := restored.RedemptionLockOf(1)
	if !ok || lock.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected restored lock of 100, got %+v", lock)
	}
	if restored.RedemptionFee().Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected restored fee 10, got %s", restored.RedemptionFee())
	}
	if got := restored.CollateralizedTokens(); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected 200 collateralized, got %s", got)
	}
}
