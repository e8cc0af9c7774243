package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/subfrost/swapengine/internal/slippage"
)

// Flags holds parsed global command-line flags.
type Flags struct {
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// RPC
	RPCURL     string
	RPCTimeout time.Duration
	NoOrd      bool

	// Trade
	Slippage  string // percent, e.g. "0.5"
	Deadline  uint64
	FeeRate   uint64
	UseRouter bool

	// Wallet
	Wallet string
	Index  uint
	// Explicitly-set index, so --index=0 overrides the file.
	SetIndex bool

	// Metrics
	MetricsFile string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the command and its own flags
	Args []string

	SetUseRouter bool
	SetLogJSON   bool
}

// ParseFlags parses the global flags in args. Parsing stops at the first
// non-flag argument, which starts the command.
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("swapengine-cli", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {}

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network preset")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// RPC
	fs.StringVar(&f.RPCURL, "rpc", "", "Gateway JSON-RPC URL")
	fs.DurationVar(&f.RPCTimeout, "rpc-timeout", 0, "Gateway request timeout")
	fs.BoolVar(&f.NoOrd, "no-ord", false, "Do not ask the ord index about UTXOs")

	// Trade
	fs.StringVar(&f.Slippage, "slippage", "", "Slippage tolerance in percent")
	fs.Uint64Var(&f.Deadline, "deadline", 0, "Blocks a swap stays valid")
	fs.Uint64Var(&f.FeeRate, "feerate", 0, "Fee rate in sats/vbyte")
	fs.BoolVar(&f.UseRouter, "router", false, "Route single-hop swaps through the factory")

	// Wallet
	fs.StringVar(&f.Wallet, "wallet", "", "Keystore wallet name")
	fs.UintVar(&f.Index, "index", 0, "Wallet address index")

	// Metrics
	fs.StringVar(&f.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.SetIndex = isFlagSet(fs, "index")
	f.SetUseRouter = isFlagSet(fs, "router")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) error {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// RPC
	if f.RPCURL != "" {
		cfg.RPC.URL = f.RPCURL
	}
	if f.RPCTimeout != 0 {
		cfg.RPC.Timeout = f.RPCTimeout
	}
	if f.NoOrd {
		cfg.RPC.CheckOrd = false
	}

	// Trade
	if f.Slippage != "" {
		bps, err := slippage.ParsePercent(f.Slippage)
		if err != nil {
			return err
		}
		cfg.Trade.ToleranceBps = bps
	}
	if f.Deadline != 0 {
		cfg.Trade.DeadlineBlocks = f.Deadline
	}
	if f.FeeRate != 0 {
		cfg.Trade.FeeRate = f.FeeRate
	}
	if f.SetUseRouter {
		cfg.Trade.UseRouter = f.UseRouter
	}

	// Wallet
	if f.Wallet != "" {
		cfg.Wallet.Name = f.Wallet
	}
	if f.SetIndex {
		cfg.Wallet.Index = uint32(f.Index)
	}

	// Metrics
	if f.MetricsFile != "" {
		cfg.Metrics.File = f.MetricsFile
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
	return nil
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(f *Flags) (*Config, error) {
	network := Mainnet
	if f.Network != "" {
		network = NetworkType(f.Network)
	}

	cfg := Default(network)
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := f.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags win, and a network named only in the file still needs its
	// own directories.
	if err := ApplyFlags(cfg, f); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. This is idempotent, safe to call on
// every run.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDir(),
		cfg.KeystoreDir(),
		cfg.PendingDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
