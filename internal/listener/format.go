package listener

import (
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FormatTransfer renders the console message for one transfer.
func FormatTransfer(from, to common.Address, amount, senderBalance, receiverBalance *big.Int) string {
	return fmt.Sprintf(
		"Coin transfer: %s coins were sent from %s to %s.\nBalances now:\nSender: %s\nReceiver: %s\n",
		decimal(amount), from.Hex(), to.Hex(), decimal(senderBalance), decimal(receiverBalance),
	)
}

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Printer writes whole messages to w; concurrent messages never interleave.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes msg with a single Write call.
func (p *Printer) Print(msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, msg)
	return err
}
