package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"mpvledger/native/assets"
	"mpvledger/native/multisig"
	"mpvledger/native/registry"
	"mpvledger/native/token"
	"mpvledger/native/whitelist"
	"mpvledger/storage"
)

// Manager reads and writes RLP-encoded module snapshots in the backing store.
// Each section lives under its own keccak-derived key so modules can be
// inspected independently.
type Manager struct {
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

const keyPrefix = "mpvledger/state/"

func sectionKey(section string) []byte {
	return ethcrypto.Keccak256([]byte(keyPrefix + section))
}

func (m *Manager) save(section string, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", section, err)
	}
	if err := m.db.Put(sectionKey(section), encoded); err != nil {
		return fmt.Errorf("state: write %s: %w", section, err)
	}
	return nil
}

// load decodes a section into value, reporting whether the section existed.
func (m *Manager) load(section string, value interface{}) (bool, error) {
	data, err := m.db.Get(sectionKey(section))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: read %s: %w", section, err)
	}
	if err := rlp.DecodeBytes(data, value); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", section, err)
	}
	return true, nil
}

// System aggregates every engine whose state is persisted together. The
// registry carries the wallets, so only the three module engines appear
// alongside it.
type System struct {
	Registry  *registry.Registry
	Whitelist *whitelist.Whitelist
	Assets    *assets.Ledger
	Token     *token.Token
}

func (s *System) complete() bool {
	return s != nil && s.Registry != nil && s.Whitelist != nil && s.Assets != nil && s.Token != nil
}

// Save persists a full snapshot of the system.
func (m *Manager) Save(sys *System) error {
	if !sys.complete() {
		return errors.New("state: incomplete system")
	}
	if err := m.save("registry", sys.Registry.ExportState()); err != nil {
		return err
	}
	for _, role := range registry.Roles {
		wallet, ok := sys.Registry.Wallet(role)
		if !ok {
			return fmt.Errorf("state: role %s has no wallet", role)
		}
		if err := m.save("wallet/"+role.String(), wallet.ExportState()); err != nil {
			return err
		}
	}
	if err := m.save("whitelist", sys.Whitelist.ExportState()); err != nil {
		return err
	}
	if err := m.save("assets", sys.Assets.ExportState()); err != nil {
		return err
	}
	return m.save("token", sys.Token.ExportState())
}

// Restore loads a previously saved snapshot into the wired system. It reports
// false without touching anything when no snapshot exists; a partially
// written snapshot is an error.
func (m *Manager) Restore(sys *System) (bool, error) {
	if !sys.complete() {
		return false, errors.New("state: incomplete system")
	}
	var registryState registry.State
	ok, err := m.load("registry", &registryState)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := sys.Registry.RestoreState(&registryState); err != nil {
		return false, err
	}
	for _, role := range registry.Roles {
		wallet, ok := sys.Registry.Wallet(role)
		if !ok {
			return false, fmt.Errorf("state: role %s has no wallet", role)
		}
		var walletState multisig.State
		found, err := m.load("wallet/"+role.String(), &walletState)
		if err != nil {
			return false, err
		}
		if !found {
			return false, fmt.Errorf("state: snapshot missing wallet %s", role)
		}
		if err := wallet.RestoreState(&walletState); err != nil {
			return false, err
		}
	}
	var whitelistState whitelist.State
	if found, err := m.load("whitelist", &whitelistState); err != nil {
		return false, err
	} else if !found {
		return false, errors.New("state: snapshot missing whitelist")
	}
	if err := sys.Whitelist.RestoreState(&whitelistState); err != nil {
		return false, err
	}
	var assetState assets.State
	if found, err := m.load("assets", &assetState); err != nil {
		return false, err
	} else if !found {
		return false, errors.New("state: snapshot missing assets")
	}
	if err := sys.Assets.RestoreState(&assetState); err != nil {
		return false, err
	}
	var tokenState token.State
	if found, err := m.load("token", &tokenState); err != nil {
		return false, err
	} else if !found {
		return false, errors.New("state: snapshot missing token")
	}
	if err := sys.Token.RestoreState(&tokenState); err != nil {
		return false, err
	}
	return true, nil
}
