package funding

import "time"

// CardInRequest captures user-provided data to fund a wallet from a card.
// Exactly one of AmountWei and AmountEther is expected; wei wins.
type CardInRequest struct {
	CardNumber  string `json:"card_number"`
	Expiry      string `json:"expiry"`
	CVV         string `json:"cvv"`
	AmountWei   string `json:"amount_wei"`
	AmountEther string `json:"amount_ether"`
	ClientTxID  string `json:"client_tx_id"`
}

// CardOutRequest captures withdrawal details to push funds to a card.
type CardOutRequest struct {
	CardNumber  string `json:"card_number"`
	AmountWei   string `json:"amount_wei"`
	AmountEther string `json:"amount_ether"`
	ClientTxID  string `json:"client_tx_id"`
}

// FundingResponse represents the API response for card funding actions.
type FundingResponse struct {
	TransactionID     string    `json:"transaction_id"`
	Status            string    `json:"status"`
	AmountWei         string    `json:"amount_wei"`
	WalletBalanceWei  string    `json:"wallet_balance_wei"`
	WalletBalanceEth  string    `json:"wallet_balance_ether"`
	AcquirerReference string    `json:"acquirer_reference,omitempty"`
	CompletedAt       time.Time `json:"completed_at"`
}
