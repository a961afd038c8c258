package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mpvledger/crypto"
)

func bech(fill byte) string {
	b := make([]byte, crypto.AddressLength)
	for i := range b {
		b[i] = fill
	}
	return crypto.NewAddress(crypto.MPVPrefix, b).String()
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func sampleConfig() string {
	return fmt.Sprintf(`
Service = "mpvd"
DataDir = "/tmp/mpv-test"

[Token]
Name = "Master Property Value"
Symbol = "MPV"
Decimals = 4
DailyLimit = "500"

[Assets]
RedemptionFee = "10"
FeeReceiver = %q
MintingReceiver = %q

[Governance]
ThresholdPercent = 40

[Roles.superOwner]
Signers = [%q, %q]
Required = 1

[Roles.basicOwner]
Signers = [%q]
Required = 1
`, bech(0x01), bech(0x02), bech(0x10), bech(0x11), bech(0x20))
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig()))
	require.NoError(t, err)

	limit, err := cfg.DailyLimit()
	require.NoError(t, err)
	require.Equal(t, "500", limit.String())

	fee, err := cfg.RedemptionFee()
	require.NoError(t, err)
	require.Equal(t, "10", fee.String())

	signers, required, err := cfg.RoleSigners("superOwner")
	require.NoError(t, err)
	require.Len(t, signers, 2)
	require.Equal(t, 1, required)

	// Defaults fill the omitted fields.
	require.Equal(t, ":9096", cfg.MetricsAddress)
	require.Equal(t, int64(300), cfg.SnapshotInterval)
}

func TestLoadRejectsBadRequirement(t *testing.T) {
	body := fmt.Sprintf(`
[Assets]
FeeReceiver = %q
MintingReceiver = %q

[Roles.superOwner]
Signers = [%q]
Required = 2
`, bech(0x01), bech(0x02), bech(0x10))
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}

func TestLoadRejectsDuplicateSigner(t *testing.T) {
	body := fmt.Sprintf(`
[Assets]
FeeReceiver = %q
MintingReceiver = %q

[Roles.superOwner]
Signers = [%q, %q]
Required = 1
`, bech(0x01), bech(0x02), bech(0x10), bech(0x10))
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}

func TestLoadRejectsBadAmount(t *testing.T) {
	body := fmt.Sprintf(`
[Token]
DailyLimit = "not-a-number"

[Assets]
FeeReceiver = %q
MintingReceiver = %q
`, bech(0x01), bech(0x02))
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}
