package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseHash(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", valid, false},
		{"upper", strings.ToUpper(valid), false},
		{"short", valid[:62], true},
		{"long", valid + "00", true},
		{"not hex", strings.Repeat("zz", 32), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHash(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHash() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && h.String() != valid {
				t.Errorf("String() = %s, want %s", h, valid)
			}
		})
	}
}

func TestHash_JSON(t *testing.T) {
	var h Hash
	h[0], h[31] = 0x01, 0xff
	data, err := json.Marshal(struct {
		Digest Hash `json:"digest"`
	}{h})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"digest":"01` + strings.Repeat("00", 30) + `ff"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var back struct {
		Digest Hash `json:"digest"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if back.Digest != h {
		t.Errorf("round trip = %s, want %s", back.Digest, h)
	}
	if err := json.Unmarshal([]byte(`{"digest":"00"}`), &back); err == nil {
		t.Error("short digest accepted")
	}
}
