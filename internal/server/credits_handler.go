package server

import (
	"context"
	"net/http"

	"github.com/Libertai/libertai-inference/internal/auth"
	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/gin-gonic/gin"
)

// ChainPoller is satisfied by the Base and Solana pollers. A nil poller means
// the chain is disabled in configuration.
type ChainPoller interface {
	Poll(ctx context.Context) ([]string, error)
}

type creditsHandler struct {
	svc    *credits.Service
	base   ChainPoller
	solana ChainPoller
}

func newCreditsHandler(svc *credits.Service, base, solana ChainPoller) *creditsHandler {
	return &creditsHandler{svc: svc, base: base, solana: solana}
}

func (h *creditsHandler) Balance(c *gin.Context) {
	address := auth.CurrentAddress(c)
	balance, err := h.svc.Balance(c.Request.Context(), address)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Address: address, Balance: balance})
}

func (h *creditsHandler) Transactions(c *gin.Context) {
	address := auth.CurrentAddress(c)
	txs, err := h.svc.Transactions(c.Request.Context(), address)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp := TransactionsResponse{
		Address:      address,
		Transactions: make([]TransactionItem, 0, len(txs)),
	}
	for i := range txs {
		tx := &txs[i]
		resp.Transactions = append(resp.Transactions, TransactionItem{
			ID:              tx.ID,
			TransactionHash: tx.TransactionHash,
			Provider:        string(tx.Provider),
			Amount:          tx.Amount,
			AmountLeft:      tx.AmountLeft,
			UsedAmount:      tx.UsedAmount(),
			Status:          string(tx.Status),
			BlockNumber:     tx.BlockNumber,
			ExpiredAt:       tx.ExpiredAt,
			IsActive:        tx.IsActive,
			CreatedAt:       tx.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ProcessBase triggers a Base poll cycle outside the schedule. An overlapping
// run reports zero processed transactions.
func (h *creditsHandler) ProcessBase(c *gin.Context) {
	h.triggerPoll(c, h.base, "base poller disabled")
}

func (h *creditsHandler) ProcessSolana(c *gin.Context) {
	h.triggerPoll(c, h.solana, "solana poller disabled")
}

func (h *creditsHandler) triggerPoll(c *gin.Context, p ChainPoller, disabledMsg string) {
	if p == nil {
		writeError(c, http.StatusServiceUnavailable, disabledMsg)
		return
	}
	hashes, err := p.Poll(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if hashes == nil {
		hashes = []string{}
	}
	c.JSON(http.StatusOK, ProcessResponse{ProcessedCount: len(hashes), Transactions: hashes})
}

func (h *creditsHandler) UpdateExpired(c *gin.Context) {
	result, err := h.svc.ExpireCredits(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
