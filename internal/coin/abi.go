package coin

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	// EventSent is the transfer event emitted by the Coin contract.
	EventSent = "Sent"
	// MethodBalances is the public balances mapping getter.
	MethodBalances = "balances"
)

const coinABIJSON = `[
  {"inputs": [], "stateMutability": "nonpayable", "type": "constructor"},
  {
    "inputs": [
      {"internalType": "uint256", "name": "requested", "type": "uint256"},
      {"internalType": "uint256", "name": "available", "type": "uint256"}
    ],
    "name": "InsufficientBalance",
    "type": "error"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Sent",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "address", "name": "", "type": "address"}],
    "name": "balances",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "receiver", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "mint",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "minter",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "receiver", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "send",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	coinABI     abi.ABI
	coinABIOnce sync.Once
	coinABIErr  error
)

// DefaultABI returns the parsed Coin ABI bundled with the binary.
func DefaultABI() (abi.ABI, error) {
	coinABIOnce.Do(func() {
		coinABI, coinABIErr = abi.JSON(strings.NewReader(coinABIJSON))
	})
	return coinABI, coinABIErr
}

// LoadABI reads an ABI JSON file. An empty path selects DefaultABI.
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return DefaultABI()
	}

	file, err := os.Open(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("open abi: %w", err)
	}
	defer file.Close()

	return ParseABI(file)
}

// ParseABI parses an ABI and checks it exposes the Coin read interface.
func ParseABI(r io.Reader) (abi.ABI, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}
	if err := validateABI(parsed); err != nil {
		return abi.ABI{}, err
	}
	return parsed, nil
}

// validateABI requires Sent(address, address, uint) and balances(address) returns (uint).
func validateABI(parsed abi.ABI) error {
	sent, ok := parsed.Events[EventSent]
	if !ok {
		return fmt.Errorf("abi has no %s event", EventSent)
	}
	if sent.Anonymous {
		return fmt.Errorf("%s event must not be anonymous", EventSent)
	}
	if len(sent.Inputs) != 3 {
		return fmt.Errorf("%s event: expected 3 inputs, got %d", EventSent, len(sent.Inputs))
	}
	if sent.Inputs[0].Type.T != abi.AddressTy || sent.Inputs[1].Type.T != abi.AddressTy {
		return fmt.Errorf("%s event: from and to must be addresses", EventSent)
	}
	if sent.Inputs[2].Type.T != abi.UintTy {
		return fmt.Errorf("%s event: amount must be an unsigned integer", EventSent)
	}
	for _, input := range sent.Inputs {
		if input.Indexed && input.Name == "" {
			return fmt.Errorf("%s event: indexed inputs must be named", EventSent)
		}
	}

	balances, ok := parsed.Methods[MethodBalances]
	if !ok {
		return fmt.Errorf("abi has no %s method", MethodBalances)
	}
	if len(balances.Inputs) != 1 || balances.Inputs[0].Type.T != abi.AddressTy {
		return fmt.Errorf("%s method: expected a single address input", MethodBalances)
	}
	if len(balances.Outputs) != 1 || balances.Outputs[0].Type.T != abi.UintTy {
		return fmt.Errorf("%s method: expected a single unsigned integer output", MethodBalances)
	}
	return nil
}
