package coin

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SentEvent is a decoded Sent(from, to, amount) log.
type SentEvent struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
	Raw    types.Log
}
