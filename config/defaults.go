package config

import (
	"time"

	"github.com/subfrost/swapengine/internal/pending"
	"github.com/subfrost/swapengine/internal/planner"
	"github.com/subfrost/swapengine/internal/rpcclient"
	"github.com/subfrost/swapengine/internal/slippage"
)

// DefaultMainnet returns the default client configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Timeout:  rpcclient.DefaultTimeout,
			Workers:  rpcclient.DefaultWorkers,
			CheckOrd: true,
		},
		Trade: TradeConfig{
			ToleranceBps:   slippage.DefaultToleranceBps,
			DeadlineBlocks: planner.DefaultDeadlineBlocks,
		},
		Wallet: WalletConfig{
			Name: "default",
		},
		Pending: PendingConfig{
			TTL: pending.DefaultTTL,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Default returns the default client configuration for the given network.
// Local regtest has no ord indexer and gets a longer timeout for slow
// simulation on a laptop node.
func Default(network NetworkType) *Config {
	cfg := DefaultMainnet()
	cfg.Network = network
	switch network {
	case Regtest, RegtestLocal, Oylnet:
		cfg.RPC.CheckOrd = false
	}
	if network == RegtestLocal {
		cfg.RPC.Timeout = 30 * time.Second
	}
	return cfg
}
