package listener

import (
	"math/big"
	"strings"
	"sync"
	"testing"
)

func TestFormatTransfer(t *testing.T) {
	got := FormatTransfer(alice, bob, big.NewInt(100), big.NewInt(400), big.NewInt(600))
	want := "Coin transfer: 100 coins were sent from " + alice.Hex() + " to " + bob.Hex() + ".\n" +
		"Balances now:\nSender: 400\nReceiver: 600\n"
	if got != want {
		t.Fatalf("format mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrinterDoesNotInterleave(t *testing.T) {
	out := newMessageWriter()
	printer := NewPrinter(out)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := FormatTransfer(alice, bob, big.NewInt(int64(i)), big.NewInt(1), big.NewInt(2))
			if err := printer.Print(msg); err != nil {
				t.Errorf("print: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got := out.Messages()
	if len(got) != 50 {
		t.Fatalf("expected 50 writes, got %d", len(got))
	}
	for _, msg := range got {
		if strings.Count(msg, "Coin transfer:") != 1 || !strings.HasSuffix(msg, "Receiver: 2\n") {
			t.Fatalf("interleaved message: %q", msg)
		}
	}
}
