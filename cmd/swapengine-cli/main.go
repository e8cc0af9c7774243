// swapengine-cli quotes alkanes AMM trades and builds, signs and
// broadcasts the transactions that execute them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subfrost/swapengine/config"
	"github.com/subfrost/swapengine/internal/log"
	"golang.org/x/term"
)

const version = "0.1.0"

func main() {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage()
			os.Exit(0)
		}
		fatal("%v", err)
	}
	if flags.Version {
		fmt.Printf("swapengine-cli version %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if flags.Help {
			return
		}
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	args := flags.Args[1:]

	switch cmd {
	case "help":
		usage()
		return
	case "networks":
		cmdNetworks(cfg)
		return
	case "wallet":
		cmdWallet(cfg, args)
		return
	}

	e, err := newEnv(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer e.close()

	switch cmd {
	case "quote":
		err = cmdQuote(ctx, e, args)
	case "swap":
		err = cmdSwap(ctx, e, args)
	case "wrap":
		err = cmdWrap(ctx, e, args)
	case "unwrap":
		err = cmdUnwrap(ctx, e, args)
	case "add-liquidity":
		err = cmdAddLiquidity(ctx, e, args)
	case "remove-liquidity":
		err = cmdRemoveLiquidity(ctx, e, args)
	case "call":
		err = cmdCall(ctx, e, args)
	case "pool":
		err = cmdPool(ctx, e, args)
	case "pending":
		err = cmdPending(e, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		e.close()
		os.Exit(1)
	}
	if err != nil {
		e.close()
		fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: swapengine-cli [global flags] <command> [flags]

Global flags:
  --network <net>       mainnet (default), signet, regtest, regtest-local, oylnet
  --rpc <url>           Gateway JSON-RPC URL (default: network preset)
  --datadir <path>      Data directory (default: ~/.swapengine)
  --config, -c <path>   Config file (default: <datadir>/swapengine.conf)
  --wallet <name>       Keystore wallet (default: default)
  --index <n>           Wallet address index (default: 0)
  --slippage <pct>      Slippage tolerance in percent (default: 0.5)
  --deadline <blocks>   Blocks a swap stays valid (default: 3)
  --feerate <sat/vb>    Fee rate (default: gateway estimate)
  --router              Send single-hop swaps through the factory
  --no-ord              Do not check UTXOs for inscriptions and runes
  --metrics-file <path> Write Prometheus textfile metrics after the command
  --log-level <lvl>     debug, info, warn, error (default: info)
  --log-json            Log as JSON

Assets are "block:tx" ids or the names btc, frbtc and busd. Amounts are
decimal with 8 places ("0.5"); prefix with = for base units ("=50000000").

Commands:
  quote --sell <a> --buy <b> --amount <n> [--exact-out] [--via <c>]
                                  Price a swap without building it
  swap --sell <a> --buy <b> --amount <n> [--exact-out] [--via <c>] [--pool <id>,...]
                                  Build a swap; either side may be btc
  wrap --amount <btc>             Mint frBTC from BTC
  unwrap --amount <n>             Burn frBTC for BTC
  add-liquidity --a <a> --b <b> --amount-a <n> --amount-b <n> [--pool <id>]
                                  Deposit into a pool; creates it when missing
  remove-liquidity --pool <id> --amount <lp>
                                  Burn LP tokens for both reserves
  call --target <id> --opcode <n> [--args 1,2] [--edict <id>:<amt>,...]
                                  Build a raw contract call
  pool <id> | pool --a <a> --b <b>
                                  Show pool reserves

  Building commands print the plan as JSON. Add --execute to sign it with
  the wallet and broadcast it; --address builds for a foreign address.

  pending list [--asset <id>]     Show unconfirmed broadcasts
  pending prune                   Drop expired entries

  wallet create                   Create a wallet (prints the mnemonic)
  wallet import --mnemonic "..."  Import a wallet from a mnemonic
  wallet list                     List wallets
  wallet address [--index <n>]    Derive and record an address

  networks                        List network presets
`)
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
