package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/gin-gonic/gin"
)

// voucherHandler grants and administers off-chain credits. These routes are
// guarded by a shared password list rather than SIWE: vouchers are issued by
// operators on behalf of users, not by the users themselves.
type voucherHandler struct {
	svc       *credits.Service
	passwords []string
}

func newVoucherHandler(svc *credits.Service, passwords []string) *voucherHandler {
	return &voucherHandler{svc: svc, passwords: passwords}
}

func (h *voucherHandler) authorized(password string) bool {
	ok := false
	for _, p := range h.passwords {
		if subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1 {
			ok = true
		}
	}
	return ok
}

func (h *voucherHandler) Add(c *gin.Context) {
	var req AddVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.authorized(req.Password) {
		writeError(c, http.StatusUnauthorized, "invalid password")
		return
	}
	if req.Amount <= 0 {
		writeError(c, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.ExpiredAt != nil && req.ExpiredAt.Before(time.Now()) {
		writeError(c, http.StatusBadRequest, "expiration must be in the future")
		return
	}
	created, err := h.svc.AddCredits(c.Request.Context(), credits.AddParams{
		Provider:  store.ProviderVoucher,
		Address:   req.Address,
		Amount:    req.Amount,
		ExpiredAt: req.ExpiredAt,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, AddVoucherResponse{Created: created})
}

func (h *voucherHandler) List(c *gin.Context) {
	var req ListVouchersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "missing address or password")
		return
	}
	if !h.authorized(req.Password) {
		writeError(c, http.StatusUnauthorized, "invalid password")
		return
	}
	vouchers, err := h.svc.Vouchers(c.Request.Context(), req.Address)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]TransactionItem, 0, len(vouchers))
	for i := range vouchers {
		v := &vouchers[i]
		items = append(items, TransactionItem{
			ID:         v.ID,
			Provider:   string(v.Provider),
			Amount:     v.Amount,
			AmountLeft: v.AmountLeft,
			UsedAmount: v.UsedAmount(),
			Status:     string(v.Status),
			ExpiredAt:  v.ExpiredAt,
			IsActive:   v.IsActive,
			CreatedAt:  v.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, TransactionsResponse{Address: req.Address, Transactions: items})
}

// ChangeExpiration sets or clears a voucher's expiration date. Passing a null
// expired_at makes the voucher permanent.
func (h *voucherHandler) ChangeExpiration(c *gin.Context) {
	var req VoucherExpirationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.authorized(req.Password) {
		writeError(c, http.StatusUnauthorized, "invalid password")
		return
	}
	updated, err := h.svc.ChangeVoucherExpiration(c.Request.Context(), req.VoucherID, req.ExpiredAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		writeError(c, http.StatusNotFound, "voucher not found")
		return
	}
	c.JSON(http.StatusOK, VoucherExpirationResponse{Updated: true})
}
