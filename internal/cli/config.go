package cli

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Config is the connection profile a command operates under. Values
// come from the YAML profile file, overridden by SECUREOPS_* environment
// variables.
type Config struct {
	// Endpoint is the chain node URL.
	Endpoint string `yaml:"endpoint" env:"SECUREOPS_ENDPOINT"`
	// ChainID pins the profile to one chain.
	ChainID uint64 `yaml:"chain_id" env:"SECUREOPS_CHAIN_ID"`
	// Contract is the secured contract address.
	Contract string `yaml:"contract" env:"SECUREOPS_CONTRACT"`
	// Signer is the address whose wallet key signs and calls.
	Signer string `yaml:"signer" env:"SECUREOPS_SIGNER"`
	// KeyFile is the keystore holding the signer's key.
	KeyFile string `yaml:"key_file" env:"SECUREOPS_KEY_FILE"`
	// StorePath is the pending transaction store location.
	StorePath string `yaml:"store_path" env:"SECUREOPS_STORE_PATH"`
}

// DefaultConfigPath is where commands look for the profile when
// --config is not given.
const DefaultConfigPath = "secureops.yaml"

// LoadConfig reads the profile file and applies environment overrides.
// A missing file is an error only when the path was given explicitly;
// the default path falls through to environment-only configuration.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := &Config{StorePath: "pending.db"}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Environment-only profile.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}
	return cfg, nil
}

// ContractAddress parses the configured contract address.
func (c *Config) ContractAddress() (chain.Address, error) {
	if c.Contract == "" {
		return chain.ZeroAddress, fmt.Errorf("no contract address configured")
	}
	return chain.ParseAddress(c.Contract)
}

// SignerAddress parses the configured signer address.
func (c *Config) SignerAddress() (chain.Address, error) {
	if c.Signer == "" {
		return chain.ZeroAddress, fmt.Errorf("no signer address configured")
	}
	return chain.ParseAddress(c.Signer)
}
