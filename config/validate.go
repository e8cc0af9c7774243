package config

import (
	"fmt"
	"net/url"

	"github.com/subfrost/swapengine/internal/slippage"
)

// Validate checks client config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network == "" {
		return fmt.Errorf("network is empty")
	}
	if cfg.RPC.URL != "" {
		u, err := url.Parse(cfg.RPC.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("rpc.url must be an http(s) URL, got %q", cfg.RPC.URL)
		}
	}
	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if cfg.RPC.Workers < 1 || cfg.RPC.Workers > 64 {
		return fmt.Errorf("rpc.workers must be in range [1, 64]")
	}
	if err := slippage.ValidateTolerance(cfg.Trade.ToleranceBps); err != nil {
		return fmt.Errorf("trade.tolerance_bps: %w", err)
	}
	if cfg.Trade.DeadlineBlocks == 0 {
		return fmt.Errorf("trade.deadline_blocks must be at least 1")
	}
	if cfg.Pending.TTL <= 0 {
		return fmt.Errorf("pending.ttl must be positive")
	}
	if cfg.Wallet.Name == "" {
		return fmt.Errorf("wallet.name is empty")
	}
	return nil
}
