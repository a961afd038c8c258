package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"mpvledger/crypto"
)

// Config is the daemon bootstrap configuration. Signer sets and economic
// parameters configured here only seed the initial state; afterwards every
// change flows through the approval pipeline.
type Config struct {
	Service          string `toml:"Service"`
	Environment      string `toml:"Environment"`
	DataDir          string `toml:"DataDir"`
	MetricsAddress   string `toml:"MetricsAddress"`
	SnapshotInterval int64  `toml:"SnapshotInterval"`

	Token      TokenConfig           `toml:"Token"`
	Assets     AssetsConfig          `toml:"Assets"`
	Governance GovernanceConfig      `toml:"Governance"`
	Roles      map[string]RoleConfig `toml:"Roles"`
}

type TokenConfig struct {
	Name       string `toml:"Name"`
	Symbol     string `toml:"Symbol"`
	Decimals   uint8  `toml:"Decimals"`
	DailyLimit string `toml:"DailyLimit"`
}

type AssetsConfig struct {
	RedemptionFee   string `toml:"RedemptionFee"`
	FeeReceiver     string `toml:"FeeReceiver"`
	MintingReceiver string `toml:"MintingReceiver"`
}

type GovernanceConfig struct {
	ThresholdPercent uint64 `toml:"ThresholdPercent"`
}

type RoleConfig struct {
	Signers  []string `toml:"Signers"`
	Required int      `toml:"Required"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = "mpvd"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./mpv-data"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9096"
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = 300
	}
	if cfg.Governance.ThresholdPercent == 0 {
		cfg.Governance.ThresholdPercent = 40
	}
	if strings.TrimSpace(cfg.Token.Symbol) == "" {
		cfg.Token.Symbol = "MPV"
	}
	if strings.TrimSpace(cfg.Token.Name) == "" {
		cfg.Token.Name = "Master Property Value"
	}
}

// Validate checks addresses, amounts, and signer sets without mutating state.
func (c *Config) Validate() error {
	if c.Governance.ThresholdPercent > 100 {
		return fmt.Errorf("config: ThresholdPercent %d exceeds 100", c.Governance.ThresholdPercent)
	}
	if _, err := c.DailyLimit(); err != nil {
		return err
	}
	if _, err := c.RedemptionFee(); err != nil {
		return err
	}
	if _, err := c.FeeReceiver(); err != nil {
		return err
	}
	if _, err := c.MintingReceiver(); err != nil {
		return err
	}
	for name, role := range c.Roles {
		if len(role.Signers) == 0 {
			return fmt.Errorf("config: role %s has no signers", name)
		}
		if role.Required < 1 || role.Required > len(role.Signers) {
			return fmt.Errorf("config: role %s requires %d of %d signers", name, role.Required, len(role.Signers))
		}
		if _, err := decodeAddresses(role.Signers); err != nil {
			return fmt.Errorf("config: role %s: %w", name, err)
		}
	}
	return nil
}

// RoleSigners decodes the configured signer set for a role name.
func (c *Config) RoleSigners(name string) ([][20]byte, int, error) {
	role, ok := c.Roles[name]
	if !ok {
		return nil, 0, fmt.Errorf("config: role %s not configured", name)
	}
	signers, err := decodeAddresses(role.Signers)
	if err != nil {
		return nil, 0, fmt.Errorf("config: role %s: %w", name, err)
	}
	return signers, role.Required, nil
}

func (c *Config) DailyLimit() (*big.Int, error) {
	return parseAmount("Token.DailyLimit", c.Token.DailyLimit)
}

func (c *Config) RedemptionFee() (*big.Int, error) {
	return parseAmount("Assets.RedemptionFee", c.Assets.RedemptionFee)
}

func (c *Config) FeeReceiver() ([20]byte, error) {
	return decodeAddress("Assets.FeeReceiver", c.Assets.FeeReceiver)
}

func (c *Config) MintingReceiver() ([20]byte, error) {
	return decodeAddress("Assets.MintingReceiver", c.Assets.MintingReceiver)
}

func parseAmount(field, value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("config: %s: invalid amount %q", field, value)
	}
	return amount, nil
}

func decodeAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	value = strings.TrimSpace(value)
	if value == "" {
		return out, fmt.Errorf("config: %s is required", field)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, fmt.Errorf("config: %s: %w", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func decodeAddresses(values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	seen := make(map[[20]byte]struct{}, len(values))
	for _, value := range values {
		addr, err := decodeAddress("Signers", value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[addr]; ok {
			return nil, fmt.Errorf("config: duplicate signer %s", value)
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// WriteDefault writes a commented starter configuration to path.
func WriteDefault(path string) error {
	cfg := &Config{}
	applyDefaults(cfg)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
