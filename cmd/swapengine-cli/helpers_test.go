package main

import (
	"testing"

	"github.com/subfrost/swapengine/config"
	"github.com/subfrost/swapengine/internal/planner"
	"github.com/subfrost/swapengine/pkg/types"
)

func testEnv(t *testing.T) *env {
	t.Helper()
	nets, err := config.BuiltinNetworks()
	if err != nil {
		t.Fatal(err)
	}
	net, err := nets.Get(config.Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	return &env{cfg: config.DefaultMainnet(), net: net, params: net.Params()}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1", "100000000", false},
		{"0.5", "50000000", false},
		{"0.000000019", "1", false}, // floored
		{"=12345", "12345", false},
		{"=1.5", "", true},
		{"-1", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got.Dec() != tt.want {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got.Dec(), tt.want)
		}
	}
}

func TestParseAsset(t *testing.T) {
	e := testEnv(t)
	tests := []struct {
		in   string
		want types.AssetID
	}{
		{"btc", planner.BTC},
		{"frBTC", types.MustAssetID("32:0")},
		{"busd", types.MustAssetID("2:56801")},
		{"2:0", types.MustAssetID("2:0")},
	}
	for _, tt := range tests {
		got, err := parseAsset(e, tt.in)
		if err != nil {
			t.Fatalf("parseAsset(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseAsset(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if _, err := parseAsset(e, "diesel"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestParseEdict(t *testing.T) {
	e := testEnv(t)
	ed, err := parseEdict(e, "2:0:=1000")
	if err != nil {
		t.Fatalf("parseEdict: %v", err)
	}
	if ed.Asset != types.MustAssetID("2:0") || ed.Amount.Uint64() != 1000 {
		t.Errorf("edict = %s %s, want 2:0 1000", ed.Asset, ed.Amount.Dec())
	}

	ed, err = parseEdict(e, "frbtc:0.1")
	if err != nil {
		t.Fatalf("parseEdict: %v", err)
	}
	if ed.Asset != e.net.FrBTC || ed.Amount.Uint64() != 10_000_000 {
		t.Errorf("edict = %s %s", ed.Asset, ed.Amount.Dec())
	}

	if _, err := parseEdict(e, "1000"); err == nil {
		t.Error("expected error without asset")
	}
}

func TestSwapFlagsRequest(t *testing.T) {
	e := testEnv(t)
	e.cfg.Trade.ToleranceBps = 100
	sf := swapFlags{sell: "btc", buy: "busd", amount: "=5000", via: "frbtc", exactOut: true}
	req, err := sf.request(e)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Sell != planner.BTC || req.Buy != e.net.BUSD {
		t.Errorf("pair = %s/%s", req.Sell, req.Buy)
	}
	if req.Via == nil || *req.Via != e.net.FrBTC {
		t.Errorf("Via = %v, want frBTC", req.Via)
	}
	if req.ToleranceBps != 100 || req.Amount.Uint64() != 5000 {
		t.Errorf("tolerance %d amount %s", req.ToleranceBps, req.Amount.Dec())
	}
	if req.Mode.String() != "exact_out" {
		t.Errorf("Mode = %s, want exact_out", req.Mode)
	}

	if _, err := (&swapFlags{sell: "btc"}).request(e); err == nil {
		t.Error("expected error without buy and amount")
	}
}
