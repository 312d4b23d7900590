package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type NonceResponse struct {
	Nonce string `json:"nonce"`
}

type LoginRequest struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type BalanceResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type TransactionItem struct {
	ID              string     `json:"id"`
	TransactionHash *string    `json:"transactionHash"`
	Provider        string     `json:"provider"`
	Amount          float64    `json:"amount"`
	AmountLeft      float64    `json:"amountLeft"`
	UsedAmount      float64    `json:"usedAmount"`
	Status          string     `json:"status"`
	BlockNumber     *uint64    `json:"blockNumber"`
	ExpiredAt       *time.Time `json:"expiredAt"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type TransactionsResponse struct {
	Address      string            `json:"address"`
	Transactions []TransactionItem `json:"transactions"`
}

type AddVoucherRequest struct {
	Password  string     `json:"password" binding:"required"`
	Address   string     `json:"address" binding:"required"`
	Amount    float64    `json:"amount" binding:"required"`
	ExpiredAt *time.Time `json:"expired_at"`
}

type AddVoucherResponse struct {
	Created bool `json:"created"`
}

type ListVouchersRequest struct {
	Password string `form:"password" binding:"required"`
	Address  string `form:"address" binding:"required"`
}

type VoucherExpirationRequest struct {
	Password  string     `json:"password" binding:"required"`
	VoucherID string     `json:"voucher_id" binding:"required"`
	ExpiredAt *time.Time `json:"expired_at"`
}

type VoucherExpirationResponse struct {
	Updated bool `json:"updated"`
}

type ProcessResponse struct {
	ProcessedCount int      `json:"processedCount"`
	Transactions   []string `json:"transactions"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}
