package coin_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"coinwatch/internal/coin"
	"coinwatch/internal/coin/cointest"
)

var (
	contractAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	alice        = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob          = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

const indexedCoinABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": true, "name": "to", "type": "address"},
      {"indexed": false, "name": "amount", "type": "uint256"}
    ],
    "name": "Sent",
    "type": "event"
  },
  {
    "inputs": [{"name": "", "type": "address"}],
    "name": "balances",
    "outputs": [{"name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

func newContract(t *testing.T) (*coin.Contract, *cointest.Backend) {
	t.Helper()
	parsed, err := coin.DefaultABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	backend := cointest.NewBackend(parsed)
	contract, err := coin.NewContract(contractAddr, parsed, backend)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return contract, backend
}

func TestBalancesPreservesPrecision(t *testing.T) {
	contract, backend := newContract(t)

	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	backend.SetBalance(alice, huge)

	got, err := contract.Balances(context.Background(), alice, nil)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if got.Cmp(huge) != 0 {
		t.Fatalf("balance mismatch: %s != %s", got, huge)
	}

	got, err = contract.Balances(context.Background(), bob, nil)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestBalancesAtBlock(t *testing.T) {
	contract, backend := newContract(t)
	backend.SetBalance(alice, big.NewInt(10))
	backend.SetBalanceAt(42, alice, big.NewInt(7))

	got, err := contract.Balances(context.Background(), alice, big.NewInt(42))
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if got.Int64() != 7 {
		t.Fatalf("expected balance at block 42, got %s", got)
	}

	calls := backend.Calls()
	if len(calls) != 1 || calls[0].Block == nil || calls[0].Block.Uint64() != 42 {
		t.Fatalf("unexpected calls: %+v", calls)
	}
}

func TestBalancesError(t *testing.T) {
	contract, backend := newContract(t)
	boom := errors.New("node unavailable")
	backend.FailBalance(alice, boom)

	if _, err := contract.Balances(context.Background(), alice, nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped node error, got %v", err)
	}
}

func TestUnpackSent(t *testing.T) {
	contract, _ := newContract(t)
	parsed, _ := coin.DefaultABI()

	amount, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
	log, err := cointest.SentLog(parsed, contractAddr, alice, bob, amount, 100, 2)
	if err != nil {
		t.Fatalf("build log: %v", err)
	}

	ev, err := contract.UnpackSent(log)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if ev.From != alice || ev.To != bob {
		t.Fatalf("address mismatch: %+v", ev)
	}
	if ev.Amount.Cmp(amount) != 0 {
		t.Fatalf("amount mismatch: %s", ev.Amount)
	}
	if ev.Raw.BlockNumber != 100 || ev.Raw.Index != 2 {
		t.Fatalf("raw log not kept")
	}
}

func TestUnpackSentIndexedDeclaration(t *testing.T) {
	parsed, err := coin.ParseABI(strings.NewReader(indexedCoinABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	contract, err := coin.NewContract(contractAddr, parsed, cointest.NewBackend(parsed))
	if err != nil {
		t.Fatalf("bind: %v", err)
	}

	log, err := cointest.SentLog(parsed, contractAddr, alice, bob, big.NewInt(100), 5, 0)
	if err != nil {
		t.Fatalf("build log: %v", err)
	}
	if len(log.Topics) != 3 {
		t.Fatalf("expected indexed topics, got %d", len(log.Topics))
	}

	ev, err := contract.UnpackSent(log)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if ev.From != alice || ev.To != bob || ev.Amount.Int64() != 100 {
		t.Fatalf("decoded mismatch: %+v", ev)
	}
}

func TestUnpackSentRejectsForeignLogs(t *testing.T) {
	contract, _ := newContract(t)
	parsed, _ := coin.DefaultABI()

	log, err := cointest.SentLog(parsed, bob, alice, bob, big.NewInt(1), 1, 0)
	if err != nil {
		t.Fatalf("build log: %v", err)
	}
	if _, err := contract.UnpackSent(log); err == nil {
		t.Fatalf("expected error for log from another contract")
	}

	if _, err := contract.UnpackSent(types.Log{Address: contractAddr}); err == nil {
		t.Fatalf("expected error for log without topics")
	}

	other := types.Log{Address: contractAddr, Topics: []common.Hash{common.HexToHash("0x01")}}
	if _, err := contract.UnpackSent(other); err == nil {
		t.Fatalf("expected error for unknown topic0")
	}
}

func TestFilterSentSkipsRemoved(t *testing.T) {
	contract, backend := newContract(t)
	parsed, _ := coin.DefaultABI()

	kept, _ := cointest.SentLog(parsed, contractAddr, alice, bob, big.NewInt(1), 10, 0)
	removed, _ := cointest.SentLog(parsed, contractAddr, bob, alice, big.NewInt(2), 11, 0)
	removed.Removed = true
	outside, _ := cointest.SentLog(parsed, contractAddr, bob, alice, big.NewInt(3), 30, 0)
	backend.AddLogs(kept, removed, outside)

	events, err := contract.FilterSent(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(events) != 1 || events[0].Amount.Int64() != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestSentQuery(t *testing.T) {
	contract, _ := newContract(t)
	parsed, _ := coin.DefaultABI()

	query := contract.SentQuery(nil, nil)
	if len(query.Addresses) != 1 || query.Addresses[0] != contractAddr {
		t.Fatalf("address filter mismatch: %+v", query.Addresses)
	}
	if len(query.Topics) != 1 || query.Topics[0][0] != parsed.Events[coin.EventSent].ID {
		t.Fatalf("topic filter mismatch: %+v", query.Topics)
	}
}

func TestNewContractValidation(t *testing.T) {
	parsed, _ := coin.DefaultABI()
	if _, err := coin.NewContract(contractAddr, parsed, nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
	if _, err := coin.NewContract(common.Address{}, parsed, cointest.NewBackend(parsed)); err == nil {
		t.Fatalf("expected error for zero address")
	}
}

func TestParseAddress(t *testing.T) {
	got, err := coin.ParseAddress(" 0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != alice {
		t.Fatalf("address mismatch: %s", got.Hex())
	}
	if _, err := coin.ParseAddress("0xA"); err == nil {
		t.Fatalf("expected error for short address")
	}
}
