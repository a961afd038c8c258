package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"mpvledger/native/assets"
	"mpvledger/native/multisig"
	"mpvledger/native/registry"
	"mpvledger/native/token"
	"mpvledger/native/whitelist"
	"mpvledger/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func buildSystem(t *testing.T) *System {
	t.Helper()
	wallets := make(map[registry.Role]*multisig.Wallet, len(registry.Roles))
	for i, role := range registry.Roles {
		wallet, err := multisig.NewWallet(role.String(), [][20]byte{testAddr(byte(0x10 + i))}, 1)
		require.NoError(t, err)
		wallets[role] = wallet
	}
	reg, err := registry.NewRegistry(wallets, 40)
	require.NoError(t, err)

	wl := whitelist.New()
	tok := token.New("Master Property Value", "MPV", 4)
	tok.SetWhitelist(wl)
	tok.SetPauseView(reg)
	ledger := assets.NewLedger(big.NewInt(10), testAddr(0xF1), testAddr(0xF2))
	ledger.SetToken(tok)
	ledger.SetRedemptionGate(wallets[registry.RoleRedemptionAdmin])

	escrow := ledger.EscrowAccount()
	tok.SetMintingAdmin(escrow)
	tok.SetRedemptionAdmin(escrow)
	tok.SetLedgerModule(escrow)

	reg.SetWhitelist(wl)
	reg.SetAssets(ledger)
	reg.SetToken(tok)

	return &System{Registry: reg, Whitelist: wl, Assets: ledger, Token: tok}
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	restored, err := manager.Restore(buildSystem(t))
	require.NoError(t, err)
	require.False(t, restored)
}

func TestSaveAndRestore(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	sys := buildSystem(t)
	operation := testAddr(0x12)
	owner := testAddr(0x60)

	_, err := sys.Registry.Invoke(operation, registry.RoleOperationAdmin, registry.ActionAddWhitelisted, registry.Args{Addrs: [][20]byte{owner}})
	require.NoError(t, err)
	minting := testAddr(0x13)
	_, err = sys.Registry.Invoke(minting, registry.RoleMintingAdmin, registry.ActionAddPendingAssets, registry.Args{
		Uints:  []*big.Int{big.NewInt(1), big.NewInt(100)},
		Addrs:  [][20]byte{owner},
		Hashes: [][32]byte{{0x01}},
	})
	require.NoError(t, err)

	require.NoError(t, manager.Save(sys))

	fresh := buildSystem(t)
	restored, err := manager.Restore(fresh)
	require.NoError(t, err)
	require.True(t, restored)

	require.True(t, fresh.Whitelist.IsWhitelisted(owner))
	require.Equal(t, 1, fresh.Assets.PendingCount())
	asset, ok := fresh.Assets.Get(1)
	require.True(t, ok)
	require.Equal(t, assets.StatusPending, asset.Status)

	wallet, ok := fresh.Registry.Wallet(registry.RoleOperationAdmin)
	require.True(t, ok)
	require.Equal(t, uint64(1), wallet.TransactionCount())
}

func TestRestoreRejectsPartialSnapshot(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	sys := buildSystem(t)
	require.NoError(t, manager.save("registry", sys.Registry.ExportState()))

	_, err := manager.Restore(buildSystem(t))
	require.Error(t, err)
}
