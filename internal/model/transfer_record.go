package model

// TransferRecord is the stored form of one reported Sent event.
// Amounts and balances are decimal strings so no precision is lost.
type TransferRecord struct {
	ChainID         uint64 `json:"chain_id"`
	BlockNumber     uint64 `json:"block_number"`
	BlockHash       string `json:"block_hash"`
	TxHash          string `json:"tx_hash"`
	LogIndex        uint64 `json:"log_index"`
	Contract        string `json:"contract"`
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
	SenderBalance   string `json:"sender_balance"`
	ReceiverBalance string `json:"receiver_balance"`
	// BalancesAt is the block the balances were read at; 0 means latest.
	BalancesAt uint64 `json:"balances_at,omitempty"`
	ObservedAt string `json:"observed_at"`
}
