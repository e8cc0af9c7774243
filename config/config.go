// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Network presets: contract ids, signer and gateway URL per network,
//     embedded in networks.toml and overridable per data directory
//   - Client settings: trade defaults, wallet, logging, set in the conf
//     file or on the command line
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType names a preset in networks.toml.
type NetworkType string

const (
	Mainnet      NetworkType = "mainnet"
	Signet       NetworkType = "signet"
	Regtest      NetworkType = "regtest"
	RegtestLocal NetworkType = "regtest-local"
	Oylnet       NetworkType = "oylnet"
)

// Config holds client runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Indexer gateway
	RPC RPCConfig

	// Overrides for the network preset
	Contracts ContractsConfig

	// Trade defaults
	Trade TradeConfig

	// Local signing wallet
	Wallet WalletConfig

	// Pending ledger
	Pending PendingConfig

	// Textfile metrics
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds gateway settings. An empty URL uses the preset.
type RPCConfig struct {
	URL      string        `conf:"rpc.url"`
	Timeout  time.Duration `conf:"rpc.timeout"`
	Workers  int           `conf:"rpc.workers"`  // concurrent outpoint lookups
	CheckOrd bool          `conf:"rpc.checkord"` // skip carriers holding inscriptions or runes
}

// ContractsConfig overrides preset contract ids ("block:tx") and the
// frBTC signer address.
type ContractsConfig struct {
	Factory string `conf:"contracts.factory"`
	FrBTC   string `conf:"contracts.frbtc"`
	Signer  string `conf:"contracts.signer"`
}

// TradeConfig holds defaults applied when a command leaves them unset.
type TradeConfig struct {
	ToleranceBps   int    `conf:"trade.tolerance_bps"`
	DeadlineBlocks uint64 `conf:"trade.deadline_blocks"`
	UseRouter      bool   `conf:"trade.use_router"`
	FeeRate        uint64 `conf:"trade.feerate"` // sats/vbyte, 0 = estimate
}

// WalletConfig selects the keystore wallet and address index.
type WalletConfig struct {
	Name  string `conf:"wallet.name"`
	Index uint32 `conf:"wallet.index"`
}

// PendingConfig holds pending ledger settings.
type PendingConfig struct {
	TTL time.Duration `conf:"pending.ttl"`
}

// MetricsConfig holds metrics output settings. An empty file disables
// writing.
type MetricsConfig struct {
	File string `conf:"metrics.file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.swapengine
//	macOS:   ~/Library/Application Support/Swapengine
//	Windows: %APPDATA%\Swapengine
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swapengine"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Swapengine")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Swapengine")
		}
		return filepath.Join(home, "AppData", "Roaming", "Swapengine")
	default:
		return filepath.Join(home, ".swapengine")
	}
}

// NetworkDir returns the network-specific data directory.
func (c *Config) NetworkDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDir(), "keystore")
}

// PendingDir returns the pending ledger database directory.
func (c *Config) PendingDir() string {
	return filepath.Join(c.NetworkDir(), "pending")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "swapengine.conf")
}

// NetworksFile returns the path of the user preset overrides.
func (c *Config) NetworksFile() string {
	return filepath.Join(c.DataDir, "networks.toml")
}
