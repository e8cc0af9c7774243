package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads client configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.url", "rpc":
		cfg.RPC.URL = value
	case "rpc.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.RPC.Timeout = d
	case "rpc.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Workers = n
	case "rpc.checkord":
		cfg.RPC.CheckOrd = parseBool(value)

	// Contracts
	case "contracts.factory":
		cfg.Contracts.Factory = value
	case "contracts.frbtc":
		cfg.Contracts.FrBTC = value
	case "contracts.signer":
		cfg.Contracts.Signer = value

	// Trade
	case "trade.tolerance_bps", "slippage":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Trade.ToleranceBps = n
	case "trade.deadline_blocks":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Trade.DeadlineBlocks = n
	case "trade.use_router":
		cfg.Trade.UseRouter = parseBool(value)
	case "trade.feerate", "feerate":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Trade.FeeRate = n

	// Wallet
	case "wallet.name", "wallet":
		cfg.Wallet.Name = value
	case "wallet.index":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Wallet.Index = uint32(n)

	// Pending
	case "pending.ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Pending.TTL = d

	// Metrics
	case "metrics.file":
		cfg.Metrics.File = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default client configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# Swap engine client configuration
#
# Contract ids and gateway URLs come from the network preset
# (networks.toml). The contracts.* and rpc.url keys override it.

# Network: mainnet, signet, regtest, regtest-local or oylnet
network = ` + string(network) + `

# Data directory (default: ~/.swapengine)
# datadir = ~/.swapengine

# ============================================================================
# Gateway
# ============================================================================

# rpc.url = https://mainnet.subfrost.io/v4/subfrost
rpc.timeout = 10s
rpc.workers = 8
# Skip UTXOs holding inscriptions or runes (needs an ord index)
rpc.checkord = ` + strconv.FormatBool(Default(network).RPC.CheckOrd) + `

# ============================================================================
# Contracts
# ============================================================================

# contracts.factory = 4:65522
# contracts.frbtc = 32:0
# contracts.signer = <frBTC signer address>

# ============================================================================
# Trading
# ============================================================================

# Slippage tolerance in basis points (50 = 0.5%)
trade.tolerance_bps = 50
trade.deadline_blocks = 3
trade.use_router = false
# Fee rate in sats/vbyte (0 = ask the gateway)
trade.feerate = 0

# ============================================================================
# Wallet
# ============================================================================

wallet.name = default
wallet.index = 0

# ============================================================================
# Pending transactions
# ============================================================================

pending.ttl = 30m

# ============================================================================
# Metrics
# ============================================================================

# Prometheus textfile written after each command
# metrics.file =

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
