package token

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"mpvledger/core/events"
)

type recordingEmitter struct {
	restricted []events.TransferRestricted
}

func (r *recordingEmitter) Emit(evt events.Event) {
	if e, ok := evt.(events.TransferRestricted); ok {
		r.restricted = append(r.restricted, e)
	}
}

type allowAll struct{}

func (allowAll) IsWhitelisted([20]byte) bool { return true }

type memberList map[[20]byte]struct{}

func (m memberList) IsWhitelisted(account [20]byte) bool {
	_, ok := m[account]
	return ok
}

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

var adminAddr = testAddr(0xAD)

func newTestToken(clock *virtualClock, wl WhitelistView, pause PauseView) *Token {
	tok := New("Master Property Value", "MPV", 4)
	tok.SetNowFunc(clock.Now)
	tok.SetWhitelist(wl)
	tok.SetPauseView(pause)
	tok.SetMintingAdmin(adminAddr)
	tok.SetRedemptionAdmin(adminAddr)
	tok.SetLedgerModule(adminAddr)
	return tok
}

func mustMint(t *testing.T, tok *Token, account [20]byte, amount int64) {
	t.Helper()
	if err := tok.Mint(adminAddr, account, big.NewInt(amount)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
}

func TestTransferWhitelistGate(t *testing.T) {
	clock := &virtualClock{now: 1000}
	members := memberList{testAddr(0x01): {}}
	tok := newTestToken(clock, members, &pauseStub{})
	mustMint(t, tok, testAddr(0x01), 100)

	if _, err := tok.Transfer(testAddr(0x01), testAddr(0x02), big.NewInt(10)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	members[testAddr(0x02)] = struct{}{}
	if _, err := tok.Transfer(testAddr(0x01), testAddr(0x02), big.NewInt(10)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := tok.BalanceOf(testAddr(0x02)); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected balance 10, got %s", got)
	}
}

func TestRejectedTransferEmitsRestriction(t *testing.T) {
	clock := &virtualClock{now: 1000}
	members := memberList{testAddr(0x01): {}}
	tok := newTestToken(clock, members, &pauseStub{})
	mustMint(t, tok, testAddr(0x01), 100)
	rec := &recordingEmitter{}
	tok.SetEmitter(rec)

	if _, err := tok.Transfer(testAddr(0x01), testAddr(0x02), big.NewInt(10)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	if len(rec.restricted) != 1 || rec.restricted[0].Code != uint8(CodeNotWhitelisted) {
		t.Fatalf("expected one restriction event with code 1, got %+v", rec.restricted)
	}

	if err := tok.Approve(testAddr(0x01), testAddr(0x03), big.NewInt(50)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := tok.TransferFrom(testAddr(0x03), testAddr(0x01), testAddr(0x02), big.NewInt(10)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	if len(rec.restricted) != 2 {
		t.Fatalf("expected a restriction event per rejection, got %d", len(rec.restricted))
	}
}

func TestTransferWhilePaused(t *testing.T) {
	clock := &virtualClock{now: 1000}
	pause := &pauseStub{paused: true}
	tok := newTestToken(clock, allowAll{}, pause)
	mustMint(t, tok, testAddr(0x01), 100)

	if _, err := tok.Transfer(testAddr(0x01), testAddr(0x02), big.NewInt(10)); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
	pause.paused = false
	if _, err := tok.Transfer(testAddr(0x01), testAddr(0x02), big.NewInt(10)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
}

func TestLargeTransferBecomesDelayed(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	sender, recipient := testAddr(0x01), testAddr(0x02)
	mustMint(t, tok, sender, 1000)

	res, err := tok.Transfer(sender, recipient, big.NewInt(501))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !res.Delayed {
		t.Fatalf("expected delayed conversion")
	}
	if got := tok.BalanceOf(sender); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("delayed conversion must not move balance, got %s", got)
	}

	if err := tok.ExecuteDelayedTransfer(sender, res.DelayedID); !errors.Is(err, ErrCountdownNotElapsed) {
		t.Fatalf("expected ErrCountdownNotElapsed, got %v", err)
	}
	clock.Advance(DefaultCountdown)
	if err := tok.ExecuteDelayedTransfer(sender, res.DelayedID); err != nil {
		t.Fatalf("ExecuteDelayedTransfer: %v", err)
	}
	if got := tok.BalanceOf(recipient); got.Cmp(big.NewInt(501)) != 0 {
		t.Fatalf("expected exactly 501 moved, got %s", got)
	}
	if err := tok.ExecuteDelayedTransfer(sender, res.DelayedID); !errors.Is(err, ErrNoSuchTransfer) {
		t.Fatalf("expected ErrNoSuchTransfer, got %v", err)
	}
}

func TestDailyLimitWindowReset(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	sender, recipient := testAddr(0x01), testAddr(0x02)
	mustMint(t, tok, sender, 2000)

	if _, err := tok.Transfer(sender, recipient, big.NewInt(400)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	res, err := tok.Transfer(sender, recipient, big.NewInt(200))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !res.Delayed {
		t.Fatalf("400 + 200 must breach the 500 limit")
	}
	if got := tok.SpentToday(sender); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected 400 spent, got %s", got)
	}

	clock.Advance(DailyLimitWindow)
	res, err = tok.Transfer(sender, recipient, big.NewInt(200))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Delayed {
		t.Fatalf("window reset must allow the transfer")
	}
	if got := tok.SpentToday(sender); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected fresh window with 200 spent, got %s", got)
	}
}

func TestDelayedTransferFromConsumesAllowanceAtExecution(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	owner, spender, recipient := testAddr(0x01), testAddr(0x02), testAddr(0x03)
	mustMint(t, tok, owner, 1000)
	if err := tok.Approve(owner, spender, big.NewInt(600)); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	res, err := tok.TransferFrom(spender, owner, recipient, big.NewInt(501))
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if !res.Delayed {
		t.Fatalf("expected delayed conversion")
	}
	// The allowance is untouched until execution.
	if got := tok.Allowance(owner, spender); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected allowance 600, got %s", got)
	}

	clock.Advance(DefaultCountdown)
	// Execution requires the caller to hold the allowance from the stored
	// sender.
	if err := tok.ExecuteDelayedTransfer(testAddr(0x09), res.DelayedID); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := tok.ExecuteDelayedTransfer(spender, res.DelayedID); err != nil {
		t.Fatalf("ExecuteDelayedTransfer: %v", err)
	}
	if got := tok.Allowance(owner, spender); got.Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("expected allowance 99 after execution, got %s", got)
	}
	if got := tok.BalanceOf(recipient); got.Cmp(big.NewInt(501)) != 0 {
		t.Fatalf("expected 501 delivered, got %s", got)
	}
}

func TestCancelDelayedTransferAuthorization(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	owner, spender, recipient := testAddr(0x01), testAddr(0x02), testAddr(0x03)
	mustMint(t, tok, owner, 2000)
	if err := tok.Approve(owner, spender, big.NewInt(1200)); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	res, err := tok.Transfer(owner, recipient, big.NewInt(501))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := tok.CancelDelayedTransfer(spender, res.DelayedID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("only the sender may cancel a Transfer, got %v", err)
	}
	if err := tok.CancelDelayedTransfer(owner, res.DelayedID); err != nil {
		t.Fatalf("CancelDelayedTransfer: %v", err)
	}

	res, err = tok.TransferFrom(spender, owner, recipient, big.NewInt(501))
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if err := tok.CancelDelayedTransfer(recipient, res.DelayedID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.CancelDelayedTransfer(spender, res.DelayedID); err != nil {
		t.Fatalf("spender must be able to cancel a TransferFrom: %v", err)
	}
}

func TestSweepAddressNormalization(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	sender := testAddr(0x01)
	deposit := testAddr(0x44)
	exchange := testAddr(0x55)
	mustMint(t, tok, sender, 100)

	if err := tok.UpdateSweepAddress(deposit, exchange); err != nil {
		t.Fatalf("UpdateSweepAddress: %v", err)
	}
	if got, ok := tok.SweepAddressFor(deposit); !ok || got != exchange {
		t.Fatalf("expected sweep mapping to %x, got %x (%v)", exchange, got, ok)
	}
	if _, err := tok.Transfer(sender, deposit, big.NewInt(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := tok.BalanceOf(exchange); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected swept balance 40 on exchange, got %s", got)
	}
	if got := tok.BalanceOf(deposit); got.Sign() != 0 {
		t.Fatalf("deposit address must hold nothing, got %s", got)
	}

	// Neighbouring addresses share the same sweep key: the derivation drops
	// the low bits.
	neighbour := deposit
	neighbour[19] ^= 0x01
	if got, ok := tok.SweepAddressFor(neighbour); !ok || got != exchange {
		t.Fatalf("expected neighbour to share the sweep mapping, got %x (%v)", got, ok)
	}
}

func TestUpdateSweepAddressRejectsZeroKey(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	var lowOnly [20]byte
	lowOnly[19] = 0x0F // every bit cleared by the 20-bit shift
	if err := tok.UpdateSweepAddress(lowOnly, testAddr(0x55)); !errors.Is(err, ErrZeroSweepKey) {
		t.Fatalf("expected ErrZeroSweepKey, got %v", err)
	}
}

func TestDailyLimitUpdateCountdown(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	sender, recipient := testAddr(0x01), testAddr(0x02)
	mustMint(t, tok, sender, 5000)

	if err := tok.UpdateDailyLimit(big.NewInt(2000)); err != nil {
		t.Fatalf("UpdateDailyLimit: %v", err)
	}
	// The old limit stays in force until the countdown elapses.
	res, err := tok.Transfer(sender, recipient, big.NewInt(600))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !res.Delayed {
		t.Fatalf("staged limit must not apply yet")
	}

	clock.Advance(DefaultCountdown)
	res, err = tok.Transfer(sender, recipient, big.NewInt(600))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Delayed {
		t.Fatalf("expected new limit 2000 in force")
	}
	if got := tok.DailyLimit(); got.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("expected limit 2000, got %s", got)
	}
}

func TestModuleTransferBypassesDailyLimit(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	from, to := testAddr(0x01), testAddr(0x02)
	mustMint(t, tok, from, 1000)

	if err := tok.ModuleTransfer(testAddr(0x09), from, to, big.NewInt(600)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.ModuleTransfer(adminAddr, from, to, big.NewInt(600)); err != nil {
		t.Fatalf("ModuleTransfer: %v", err)
	}
	if got := tok.BalanceOf(to); got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("expected 600 settled, got %s", got)
	}
}

func TestMintAndBurnAuthorization(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	account := testAddr(0x01)

	if err := tok.Mint(testAddr(0x09), account, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	mustMint(t, tok, account, 100)
	if got := tok.TotalSupply(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected supply 100, got %s", got)
	}

	if err := tok.Burn(testAddr(0x09), account, big.NewInt(50)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.Burn(adminAddr, account, big.NewInt(150)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := tok.Burn(adminAddr, account, big.NewInt(50)); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if got := tok.TotalSupply(); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected supply 50, got %s", got)
	}
}

func TestDetectTransferRestriction(t *testing.T) {
	clock := &virtualClock{now: 1000}
	members := memberList{testAddr(0x01): {}, testAddr(0x02): {}}
	tok := newTestToken(clock, members, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}

	if code := tok.DetectTransferRestriction(testAddr(0x01), testAddr(0x02), big.NewInt(100)); code != CodeValid {
		t.Fatalf("expected CodeValid, got %d", code)
	}
	if code := tok.DetectTransferRestriction(testAddr(0x01), testAddr(0x09), big.NewInt(100)); code != CodeNotWhitelisted {
		t.Fatalf("expected CodeNotWhitelisted, got %d", code)
	}
	if code := tok.DetectTransferRestriction(testAddr(0x01), testAddr(0x02), big.NewInt(501)); code != CodeExceedsDailyLimit {
		t.Fatalf("expected CodeExceedsDailyLimit, got %d", code)
	}

	for code, want := range map[RestrictionCode]string{
		CodeValid:             "Valid transfer",
		CodeNotWhitelisted:    "Invalid transfer: nonwhitelisted recipient",
		CodeExceedsDailyLimit: "Invalid transfer: exceeds daily limit",
	} {
		got, err := tok.MessageForTransferRestriction(code)
		if err != nil || got != want {
			t.Fatalf("code %d: got %q (%v)", code, got, err)
		}
	}
	if _, err := tok.MessageForTransferRestriction(RestrictionCode(9)); !errors.Is(err, ErrUnknownRestrictionCode) {
		t.Fatalf("expected ErrUnknownRestrictionCode, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	clock := &virtualClock{now: 1000}
	tok := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := tok.SetInitialDailyLimit(big.NewInt(500)); err != nil {
		t.Fatalf("SetInitialDailyLimit: %v", err)
	}
	sender, recipient := testAddr(0x01), testAddr(0x02)
	mustMint(t, tok, sender, 1000)
	if err := tok.Approve(sender, recipient, big.NewInt(77)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	res, err := tok.Transfer(sender, recipient, big.NewInt(501))
	if err != nil || !res.Delayed {
		t.Fatalf("expected delayed transfer, got %v (%v)", res, err)
	}

	restored := newTestToken(clock, allowAll{}, &pauseStub{})
	if err := restored.RestoreState(tok.ExportState()); err != nil {
		t.Fatalf("RestoreState: %v", err)
	}
	if got := restored.BalanceOf(sender); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected restored balance 1000, got %s", got)
	}
	if got := restored.Allowance(sender, recipient); got.Cmp(big.NewInt(77)) != 0 {
		t.Fatalf("expected restored allowance 77, got %s", got)
	}
	dt, ok := restored.DelayedTransferOf(res.DelayedID)
	if !ok || dt.Value.Cmp(big.NewInt(501)) != 0 {
		t.Fatalf("expected restored delayed transfer, got %+v", dt)
	}
	clock.Advance(DefaultCountdown)
	if err := restored.ExecuteDelayedTransfer(sender, res.DelayedID); err != nil {
		t.Fatalf("ExecuteDelayedTransfer after restore: %v", err)
	}
}
