package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/subfrost/swapengine/config"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/internal/metrics"
	"github.com/subfrost/swapengine/internal/pending"
	"github.com/subfrost/swapengine/internal/planner"
	"github.com/subfrost/swapengine/internal/rpcclient"
	"github.com/subfrost/swapengine/internal/storage"
	"github.com/subfrost/swapengine/internal/wallet"
)

// env is everything a command needs to reach the network.
type env struct {
	cfg      *config.Config
	net      *config.Network
	params   *chaincfg.Params
	provider *rpcclient.Provider
	metrics  *metrics.Metrics
	db       *storage.BadgerDB
	ledger   *pending.Ledger
	closed   bool
}

func newEnv(cfg *config.Config) (*env, error) {
	nets, err := config.LoadNetworks(cfg.NetworksFile())
	if err != nil {
		return nil, fmt.Errorf("load networks: %w", err)
	}
	net, err := config.Resolve(cfg, nets)
	if err != nil {
		return nil, err
	}
	fallback := net.FallbackFees()
	client := rpcclient.NewWithTimeout(net.RPCURL, cfg.RPC.Timeout)
	provider := rpcclient.NewProvider(client, rpcclient.ProviderConfig{
		Factory:            net.Factory,
		FrBTC:              net.FrBTC,
		PoolFeePerThousand: net.PoolFee,
		FallbackFees:       &fallback,
		CheckOrd:           cfg.RPC.CheckOrd,
		Workers:            cfg.RPC.Workers,
	})

	db, err := storage.NewBadger(cfg.PendingDir())
	if err != nil {
		return nil, fmt.Errorf("open pending ledger: %w", err)
	}
	log.Logger.Debug().
		Str("network", net.Name).
		Str("rpc", client.Endpoint()).
		Str("factory", net.Factory.String()).
		Msg("Environment ready")

	return &env{
		cfg:      cfg,
		net:      net,
		params:   net.Params(),
		provider: provider,
		metrics:  metrics.New(),
		db:       db,
		ledger:   pending.New(db, pending.WithTTL(cfg.Pending.TTL)),
	}, nil
}

// close writes metrics and closes the ledger. It is safe to call twice.
func (e *env) close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.cfg.Metrics.File != "" {
		if err := e.metrics.WriteFile(e.cfg.Metrics.File); err != nil {
			log.Logger.Warn().Err(err).Str("file", e.cfg.Metrics.File).Msg("Failed to write metrics")
		}
	}
	if err := e.db.Close(); err != nil {
		log.Logger.Warn().Err(err).Msg("Failed to close pending ledger")
	}
}

// signerAddress returns the frBTC signer from the preset, or asks the
// frBTC contract when the preset has none.
func (e *env) signerAddress(ctx context.Context) (string, error) {
	if e.net.Signer != "" {
		return e.net.Signer, nil
	}
	addr, err := e.provider.SignerAddress(ctx, e.params)
	if err != nil {
		return "", fmt.Errorf("frBTC signer: %w", err)
	}
	return addr, nil
}

func (e *env) planner(ctx context.Context) (*planner.Planner, error) {
	signer, err := e.signerAddress(ctx)
	if err != nil {
		return nil, err
	}
	return planner.New(planner.Config{
		Params:         e.params,
		Network:        e.net.Name,
		FrBTC:          e.net.FrBTC,
		Factory:        e.net.Factory,
		SignerAddress:  signer,
		Intermediate:   e.net.BUSD,
		DeadlineBlocks: e.cfg.Trade.DeadlineBlocks,
		UseRouter:      e.cfg.Trade.UseRouter,
	}, planner.Deps{
		Pools:    e.provider,
		Locator:  e.provider,
		Carriers: e.provider,
		Fees:     e.provider,
		Heights:  e.provider,
		FeeRates: e.provider,
		Spent:    e.ledger,
		Metrics:  e.metrics,
	})
}

// address returns override, or the recorded wallet address at the
// configured index.
func (e *env) address(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	ks, err := wallet.NewKeystore(e.cfg.KeystoreDir())
	if err != nil {
		return "", err
	}
	accounts, err := ks.ListAccounts(e.cfg.Wallet.Name)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return "", fmt.Errorf("%w: create one with 'wallet create' or pass --address", err)
		}
		return "", err
	}
	for _, a := range accounts {
		if a.Change == wallet.ChangeExternal && a.Index == e.cfg.Wallet.Index {
			return a.Address, nil
		}
	}
	return "", fmt.Errorf("wallet %q has no address at index %d; run 'wallet address --index %d'",
		e.cfg.Wallet.Name, e.cfg.Wallet.Index, e.cfg.Wallet.Index)
}

// execute signs plan with the wallet key and broadcasts it.
func (e *env) execute(ctx context.Context, plan *planner.ExecutionPlan) (string, error) {
	ks, err := wallet.NewKeystore(e.cfg.KeystoreDir())
	if err != nil {
		return "", err
	}
	password, err := readPassword(fmt.Sprintf("Password for wallet %q: ", e.cfg.Wallet.Name))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	signer, err := ks.Signer(e.cfg.Wallet.Name, password, e.params, e.cfg.Wallet.Index)
	for i := range password {
		password[i] = 0
	}
	if err != nil {
		return "", err
	}
	defer signer.Close()
	if signer.Address() != plan.Address {
		return "", fmt.Errorf("plan pays %s but wallet index %d is %s", plan.Address, e.cfg.Wallet.Index, signer.Address())
	}

	exec := planner.NewExecutor(signer, e.provider, e.provider, e.ledger, e.metrics)
	return exec.Execute(ctx, plan)
}

func cmdNetworks(cfg *config.Config) {
	nets, err := config.LoadNetworks(cfg.NetworksFile())
	if err != nil {
		fatal("load networks: %v", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCHAIN\tFACTORY\tFRBTC\tRPC")
	for _, name := range nets.Names() {
		n := nets[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, n.Chain, n.Factory, n.FrBTC, n.RPCURL)
	}
	w.Flush()
}
