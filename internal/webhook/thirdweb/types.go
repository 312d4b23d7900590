package thirdweb

import "encoding/json"

const (
	typeOnchainTransaction = "pay.onchain-transaction"

	statusCompleted = "COMPLETED"
)

type webhookPayload struct {
	Version int             `json:"version"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

type onchainTransactionData struct {
	Status            string             `json:"status"`
	Receiver          string             `json:"receiver"`
	DestinationAmount string             `json:"destinationAmount"`
	DestinationToken  tokenInfo          `json:"destinationToken"`
	PurchaseData      purchaseData       `json:"purchaseData"`
	Transactions      []chainTransaction `json:"transactions"`
}

type tokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
}

type chainTransaction struct {
	ChainID         uint64 `json:"chainId"`
	TransactionHash string `json:"transactionHash"`
}

type purchaseData struct {
	UserAddress string `json:"userAddress"`
}
