package main

import (
	"flag"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/subfrost/swapengine/config"
	"github.com/subfrost/swapengine/internal/wallet"
)

func cmdWallet(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: swapengine-cli wallet <create|import|list|address> [flags]")
	}

	nets, err := config.LoadNetworks(cfg.NetworksFile())
	if err != nil {
		fatal("load networks: %v", err)
	}
	net, err := nets.Get(cfg.Network)
	if err != nil {
		fatal("%v", err)
	}
	params := net.Params()

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(ks, cfg.Wallet.Name, params, args[1:])
	case "import":
		cmdWalletImport(ks, cfg.Wallet.Name, params, args[1:])
	case "list":
		cmdWalletList(ks)
	case "address":
		cmdWalletAddress(ks, cfg.Wallet.Name, cfg.Wallet.Index, params, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: swapengine-cli wallet <create|import|list|address> [flags]", args[0])
	}
}

func readNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return password
}

// storeSeed encrypts seed into a new wallet and records address 0.
func storeSeed(ks *wallet.Keystore, name string, params *chaincfg.Params, seed, password []byte) string {
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	key, err := master.DeriveTaproot(params, 0, wallet.ChangeExternal, 0)
	if err != nil {
		fatal("derive address: %v", err)
	}
	addr, err := key.TaprootAddress(params)
	if err != nil {
		fatal("derive address: %v", err)
	}

	if err := ks.Create(name, params, seed, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}
	if err := ks.AddAccount(name, wallet.AccountEntry{
		Index:   0,
		Change:  wallet.ChangeExternal,
		Name:    "Default",
		Address: addr.EncodeAddress(),
	}); err != nil {
		fatal("add account: %v", err)
	}
	return addr.EncodeAddress()
}

func cmdWalletCreate(ks *wallet.Keystore, name string, params *chaincfg.Params, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	fs.StringVar(&name, "name", name, "Wallet name")
	fs.Parse(args)

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password := readNewPassword()
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	addr := storeSeed(ks, name, params, seed, password)

	fmt.Printf("\nWallet created: %s (%s)\n", name, params.Name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletImport(ks *wallet.Keystore, name string, params *chaincfg.Params, args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	fs.StringVar(&name, "name", name, "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	passphrase := fs.String("passphrase", "", "BIP-39 passphrase")
	fs.Parse(args)

	if *mnemonic == "" {
		fatal("Usage: swapengine-cli wallet import --mnemonic \"word1 word2 ...\"")
	}
	if !wallet.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	password := readNewPassword()
	seed, err := wallet.SeedFromMnemonic(*mnemonic, *passphrase)
	if err != nil {
		fatal("derive seed: %v", err)
	}
	addr := storeSeed(ks, name, params, seed, password)

	fmt.Printf("Wallet imported: %s (%s)\n", name, params.Name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletList(ks *wallet.Keystore) {
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		network, err := ks.Network(name)
		if err != nil {
			network = "?"
		}
		fmt.Printf("%s (%s)\n", name, network)
	}
}

// cmdWalletAddress prints the address at index, deriving and recording it
// when the wallet has not seen it yet.
func cmdWalletAddress(ks *wallet.Keystore, name string, index uint32, params *chaincfg.Params, args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	idx := fs.Uint("index", uint(index), "Address index")
	all := fs.Bool("all", false, "List every recorded address")
	fs.Parse(args)

	accounts, err := ks.ListAccounts(name)
	if err != nil {
		fatal("list accounts: %v", err)
	}
	if *all {
		for _, acct := range accounts {
			fmt.Printf("  [%d] %s\n", acct.Index, acct.Address)
		}
		return
	}
	for _, acct := range accounts {
		if acct.Change == wallet.ChangeExternal && acct.Index == uint32(*idx) {
			fmt.Println(acct.Address)
			return
		}
	}

	password, err := readPassword(fmt.Sprintf("Password for wallet %q: ", name))
	if err != nil {
		fatal("read password: %v", err)
	}
	signer, err := ks.Signer(name, password, params, uint32(*idx))
	if err != nil {
		fatal("%v", err)
	}
	defer signer.Close()
	if err := ks.AddAccount(name, wallet.AccountEntry{
		Index:   uint32(*idx),
		Change:  wallet.ChangeExternal,
		Address: signer.Address(),
	}); err != nil {
		fatal("add account: %v", err)
	}
	fmt.Println(signer.Address())
}
