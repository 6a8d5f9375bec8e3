package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config carries the daemon settings loaded from TOML.
type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	Env          string `toml:"Env"`
	VaultAddress string `toml:"VaultAddress"`

	GenesisAccounts []GenesisAccount `toml:"GenesisAccounts,omitempty"`
	GenesisTokens   []GenesisToken   `toml:"GenesisTokens,omitempty"`
	GenesisNFTs     []GenesisNFT     `toml:"GenesisNFTs,omitempty"`
}

// GenesisAccount seeds a native balance for local runs.
type GenesisAccount struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}

// GenesisToken seeds a fungible-token balance for local runs.
type GenesisToken struct {
	Token   string `toml:"Token"`
	Holder  string `toml:"Holder"`
	Balance string `toml:"Balance"`
}

// GenesisNFT seeds a unique-token ownership record for local runs.
type GenesisNFT struct {
	Collection string `toml:"Collection"`
	Holder     string `toml:"Holder"`
	TokenID    string `toml:"TokenID"`
}

const defaultVaultAddress = "0x00000000000000000000000000000000a55e7570"

// Load loads the configuration from the given path, writing defaults when the
// file does not exist yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:   ":8645",
		DataDir:      "./assetswap-data",
		Env:          "dev",
		VaultAddress: defaultVaultAddress,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	vault, err := ParseAddress(c.VaultAddress)
	if err != nil {
		return fmt.Errorf("config: VaultAddress: %w", err)
	}
	if vault == ([20]byte{}) {
		return fmt.Errorf("config: VaultAddress must not be the zero address")
	}
	for i, acc := range c.GenesisAccounts {
		if _, err := ParseAddress(acc.Address); err != nil {
			return fmt.Errorf("config: GenesisAccounts[%d]: %w", i, err)
		}
		if _, err := ParseAmount(acc.Balance); err != nil {
			return fmt.Errorf("config: GenesisAccounts[%d]: %w", i, err)
		}
	}
	for i, tok := range c.GenesisTokens {
		if _, err := ParseAddress(tok.Token); err != nil {
			return fmt.Errorf("config: GenesisTokens[%d]: %w", i, err)
		}
		if _, err := ParseAddress(tok.Holder); err != nil {
			return fmt.Errorf("config: GenesisTokens[%d]: %w", i, err)
		}
		if _, err := ParseAmount(tok.Balance); err != nil {
			return fmt.Errorf("config: GenesisTokens[%d]: %w", i, err)
		}
	}
	for i, n := range c.GenesisNFTs {
		if _, err := ParseAddress(n.Collection); err != nil {
			return fmt.Errorf("config: GenesisNFTs[%d]: %w", i, err)
		}
		if _, err := ParseAddress(n.Holder); err != nil {
			return fmt.Errorf("config: GenesisNFTs[%d]: %w", i, err)
		}
		if _, err := ParseAmount(n.TokenID); err != nil {
			return fmt.Errorf("config: GenesisNFTs[%d]: %w", i, err)
		}
	}
	return nil
}

// Vault returns the parsed escrow vault address.
func (c *Config) Vault() [20]byte {
	vault, _ := ParseAddress(c.VaultAddress)
	return vault
}

// ParseAddress decodes a 0x-prefixed hex address.
func ParseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}

// ParseAmount decodes a non-negative decimal integer.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}
