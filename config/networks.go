package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pelletier/go-toml/v2"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/pkg/types"
)

//go:embed networks.toml
var builtinNetworks []byte

// ErrUnknownNetwork is returned for a network with no preset.
var ErrUnknownNetwork = errors.New("unknown network")

// Network is the preset a client needs to talk to one deployment.
type Network struct {
	Name      string        `toml:"-"`
	Chain     string        `toml:"chain"`
	RPCURL    string        `toml:"rpc_url"`
	Explorer  string        `toml:"explorer"`
	Factory   types.AssetID `toml:"factory"`
	FrBTC     types.AssetID `toml:"frbtc"`
	BUSD      types.AssetID `toml:"busd"`
	Signer    string        `toml:"signer"`
	PoolFee   uint32        `toml:"pool_fee"`
	WrapFee   uint32        `toml:"wrap_fee"`
	UnwrapFee uint32        `toml:"unwrap_fee"`
}

// Params returns the bitcoin chain parameters the network runs on.
// Unknown chains fall back to regtest.
func (n *Network) Params() *chaincfg.Params {
	switch n.Chain {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "signet":
		return &chaincfg.SigNetParams
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params
	default:
		return &chaincfg.RegressionNetParams
	}
}

// FallbackFees returns the wrap/unwrap fees used when the frBTC premium
// cannot be read.
func (n *Network) FallbackFees() fee.Params {
	return fee.Params{WrapPerThousand: n.WrapFee, UnwrapPerThousand: n.UnwrapFee}
}

// Validate checks a preset for fields a planner cannot run without.
func (n *Network) Validate() error {
	if n.RPCURL == "" {
		return fmt.Errorf("network %s: rpc_url is empty", n.Name)
	}
	if n.FrBTC.IsZero() {
		return fmt.Errorf("network %s: frbtc is not set", n.Name)
	}
	if n.Factory.IsZero() {
		return fmt.Errorf("network %s: factory is not set", n.Name)
	}
	if err := fee.ValidatePerThousand(n.PoolFee); err != nil {
		return fmt.Errorf("network %s: pool_fee: %w", n.Name, err)
	}
	if err := n.FallbackFees().Validate(); err != nil {
		return fmt.Errorf("network %s: %w", n.Name, err)
	}
	if n.Signer != "" {
		addr, err := btcutil.DecodeAddress(n.Signer, n.Params())
		if err != nil || !addr.IsForNet(n.Params()) {
			return fmt.Errorf("network %s: signer %q is not a %s address", n.Name, n.Signer, n.Params().Name)
		}
	}
	return nil
}

// Networks is a set of presets keyed by name.
type Networks map[string]*Network

// BuiltinNetworks parses the embedded presets.
func BuiltinNetworks() (Networks, error) {
	nets := make(Networks)
	if err := nets.merge(builtinNetworks); err != nil {
		return nil, fmt.Errorf("builtin networks: %w", err)
	}
	return nets, nil
}

// LoadNetworks returns the builtin presets with path merged over them.
// A missing file is not an error.
func LoadNetworks(path string) (Networks, error) {
	nets, err := BuiltinNetworks()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nets, nil
	}
	if err != nil {
		return nil, err
	}
	if err := nets.merge(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nets, nil
}

// merge decodes doc over the existing entries field by field.
func (n Networks) merge(doc []byte) error {
	var raw map[string]map[string]any
	if err := toml.Unmarshal(doc, &raw); err != nil {
		return err
	}
	for name, fields := range raw {
		net, ok := n[name]
		if !ok {
			net = &Network{}
		}
		body, err := toml.Marshal(fields)
		if err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
		dec := toml.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(net); err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
		net.Name = name
		n[name] = net
	}
	return nil
}

// Get returns the preset for network.
func (n Networks) Get(network NetworkType) (*Network, error) {
	net, ok := n[string(network)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownNetwork, network, n.Names())
	}
	cp := *net
	return &cp, nil
}

// Names returns the preset names in sorted order.
func (n Networks) Names() []string {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the preset for cfg.Network with the RPC and contract
// overrides from cfg applied.
func Resolve(cfg *Config, nets Networks) (*Network, error) {
	net, err := nets.Get(cfg.Network)
	if err != nil {
		return nil, err
	}
	if cfg.RPC.URL != "" {
		net.RPCURL = cfg.RPC.URL
	}
	if cfg.Contracts.Factory != "" {
		if net.Factory, err = types.ParseAssetID(cfg.Contracts.Factory); err != nil {
			return nil, fmt.Errorf("contracts.factory: %w", err)
		}
	}
	if cfg.Contracts.FrBTC != "" {
		if net.FrBTC, err = types.ParseAssetID(cfg.Contracts.FrBTC); err != nil {
			return nil, fmt.Errorf("contracts.frbtc: %w", err)
		}
	}
	if cfg.Contracts.Signer != "" {
		net.Signer = cfg.Contracts.Signer
	}
	if err := net.Validate(); err != nil {
		return nil, err
	}
	return net, nil
}
