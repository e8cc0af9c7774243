package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/subfrost/swapengine/pkg/fixedpoint"
)

func cmdPending(e *env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: swapengine-cli pending <list|prune> [flags]")
	}
	switch args[0] {
	case "list":
		return cmdPendingList(e, args[1:])
	case "prune":
		n, err := e.ledger.Prune()
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d expired entries\n", n)
		return nil
	default:
		return fmt.Errorf("unknown pending command: %s", args[0])
	}
}

func cmdPendingList(e *env, args []string) error {
	if len(args) == 2 && args[0] == "--asset" {
		asset, err := parseAsset(e, args[1])
		if err != nil {
			return err
		}
		total, err := e.ledger.PendingAmount(asset, e.net.Name)
		if err != nil {
			return err
		}
		fmt.Printf("%s pending: %s\n", asset, fixedpoint.FromBaseUnits(total, fixedpoint.DefaultDecimals, 8))
		return nil
	}

	entries, err := e.ledger.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No pending transactions.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TXID\tACTION\tNETWORK\tEXPECTED\tAGE")
	for _, en := range entries {
		expected := "-"
		if len(en.Expected) > 0 {
			parts := make([]string, 0, len(en.Expected))
			for _, a := range en.Expected {
				if a.Amount == nil {
					continue
				}
				parts = append(parts, fmt.Sprintf("%s %s", fixedpoint.FromBaseUnits(a.Amount, fixedpoint.DefaultDecimals, 8), a.Asset))
			}
			expected = strings.Join(parts, ", ")
		}
		age := time.Since(en.CreatedAt).Truncate(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", en.TxID, en.Action, en.Network, expected, age)
	}
	return w.Flush()
}
