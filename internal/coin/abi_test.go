package coin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultABIHasCoinInterface(t *testing.T) {
	parsed, err := DefaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	if err := validateABI(parsed); err != nil {
		t.Fatalf("default abi invalid: %v", err)
	}
	if _, ok := parsed.Methods["minter"]; !ok {
		t.Fatalf("minter getter missing")
	}
}

func TestParseABIRejectsWrongShapes(t *testing.T) {
	cases := map[string]string{
		"no sent event": `[
			{"inputs": [{"name": "", "type": "address"}], "name": "balances", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
		]`,
		"signed amount": `[
			{"anonymous": false, "inputs": [
				{"indexed": false, "name": "from", "type": "address"},
				{"indexed": false, "name": "to", "type": "address"},
				{"indexed": false, "name": "amount", "type": "int256"}
			], "name": "Sent", "type": "event"},
			{"inputs": [{"name": "", "type": "address"}], "name": "balances", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
		]`,
		"no balances": `[
			{"anonymous": false, "inputs": [
				{"indexed": false, "name": "from", "type": "address"},
				{"indexed": false, "name": "to", "type": "address"},
				{"indexed": false, "name": "amount", "type": "uint256"}
			], "name": "Sent", "type": "event"}
		]`,
		"balances takes uint": `[
			{"anonymous": false, "inputs": [
				{"indexed": false, "name": "from", "type": "address"},
				{"indexed": false, "name": "to", "type": "address"},
				{"indexed": false, "name": "amount", "type": "uint256"}
			], "name": "Sent", "type": "event"},
			{"inputs": [{"name": "", "type": "uint256"}], "name": "balances", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
		]`,
	}

	for name, raw := range cases {
		if _, err := ParseABI(strings.NewReader(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadABIFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coin.json")
	if err := os.WriteFile(path, []byte(coinABIJSON), 0o644); err != nil {
		t.Fatalf("write abi: %v", err)
	}

	parsed, err := LoadABI(path)
	if err != nil {
		t.Fatalf("load abi: %v", err)
	}
	if _, ok := parsed.Events[EventSent]; !ok {
		t.Fatalf("Sent event missing")
	}

	if _, err := LoadABI(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
