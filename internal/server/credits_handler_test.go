package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Libertai/libertai-inference/internal/auth"
	"github.com/Libertai/libertai-inference/internal/config"
	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/Libertai/libertai-inference/internal/webhook/thirdweb"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testVoucherPassword = "operator-secret"
	testJWTSecret       = "test-jwt-secret"
	testAddress         = "0xe9eb4a51414de92c4dbe5a46f6259cb4f456d7f9"
)

type stubPoller struct {
	hashes []string
}

func (p *stubPoller) Poll(ctx context.Context) ([]string, error) {
	return p.hashes, nil
}

func newTestRouter(t *testing.T, base ChainPoller) (*gin.Engine, *credits.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := store.OpenSQLite(":memory:")
	store.AutoMigrate(db)
	repo := store.NewRepository(db)
	creditsSvc := credits.NewService(repo, nil, nil, nil)

	cfg := config.Config{}
	cfg.Credits.VoucherPasswords = []string{testVoucherPassword}
	authSvc := auth.NewService(config.AuthConfig{
		JWTSecret: testJWTSecret,
		JWTTTL:    time.Hour,
		NonceTTL:  time.Minute,
	})
	webhookH := thirdweb.NewHandler(thirdweb.Config{WebhookSecret: "whsec"}, creditsSvc, nil)
	hub := NewEventHub(nil)

	return NewRouter(cfg, authSvc, creditsSvc, webhookH, hub, base, nil), creditsSvc
}

func bearerToken(t *testing.T, address string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBalanceRequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := doJSON(t, r, http.MethodGet, "/credits/balance", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated balance: %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/credits/balance", nil, map[string]string{
		"Authorization": "Bearer bogus",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: %d, want 401", w.Code)
	}
}

func TestBalanceAndTransactionsScopedToTokenAddress(t *testing.T) {
	r, svc := newTestRouter(t, nil)
	ctx := context.Background()

	if _, err := svc.AddCredits(ctx, credits.AddParams{
		Provider:        store.ProviderBase,
		Address:         testAddress,
		Amount:          42,
		TransactionHash: "0xmine",
	}); err != nil {
		t.Fatalf("seed credits: %v", err)
	}
	if _, err := svc.AddCredits(ctx, credits.AddParams{
		Provider:        store.ProviderBase,
		Address:         "0x000000000000000000000000000000000000dead",
		Amount:          1_000,
		TransactionHash: "0xtheirs",
	}); err != nil {
		t.Fatalf("seed credits: %v", err)
	}

	headers := map[string]string{"Authorization": bearerToken(t, testAddress)}

	w := doJSON(t, r, http.MethodGet, "/credits/balance", nil, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("balance: %d, body %s", w.Code, w.Body.String())
	}
	var balance BalanceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != 42 {
		t.Fatalf("balance = %v, want 42", balance.Balance)
	}

	w = doJSON(t, r, http.MethodGet, "/credits/transactions", nil, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("transactions: %d", w.Code)
	}
	var txs TransactionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txs.Transactions) != 1 {
		t.Fatalf("transactions = %d, want only the caller's row", len(txs.Transactions))
	}
}

func TestVoucherRoutesGuardedByPassword(t *testing.T) {
	r, svc := newTestRouter(t, nil)

	w := doJSON(t, r, http.MethodPost, "/credits/vouchers", AddVoucherRequest{
		Password: "wrong", Address: testAddress, Amount: 10,
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/credits/vouchers", AddVoucherRequest{
		Password: testVoucherPassword, Address: testAddress, Amount: 10,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("add voucher: %d, body %s", w.Code, w.Body.String())
	}

	balance, err := svc.Balance(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Fatalf("balance after voucher = %v, want 10", balance)
	}

	// Listing is a plain GET with query parameters, no body.
	w = doJSON(t, r, http.MethodGet,
		"/credits/vouchers?password="+testVoucherPassword+"&address="+testAddress, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list vouchers: %d", w.Code)
	}
	var list TransactionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode vouchers: %v", err)
	}
	if len(list.Transactions) != 1 {
		t.Fatalf("vouchers = %d, want 1", len(list.Transactions))
	}

	w = doJSON(t, r, http.MethodGet,
		"/credits/vouchers?password=wrong&address="+testAddress, nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("list with wrong password: %d, want 401", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/credits/vouchers?address="+testAddress, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("list without password: %d, want 400", w.Code)
	}

	exp := time.Now().Add(24 * time.Hour).UTC()
	w = doJSON(t, r, http.MethodPost, "/credits/voucher/expiration", VoucherExpirationRequest{
		Password: testVoucherPassword, VoucherID: list.Transactions[0].ID, ExpiredAt: &exp,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("change expiration: %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/credits/voucher/expiration", VoucherExpirationRequest{
		Password: testVoucherPassword, VoucherID: "00000000-0000-0000-0000-000000000000", ExpiredAt: &exp,
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown voucher: %d, want 404", w.Code)
	}
}

func TestVoucherAddValidation(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	past := time.Now().Add(-time.Hour)
	w := doJSON(t, r, http.MethodPost, "/credits/vouchers", AddVoucherRequest{
		Password: testVoucherPassword, Address: testAddress, Amount: 10, ExpiredAt: &past,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("past expiration: %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/credits/vouchers", AddVoucherRequest{
		Password: testVoucherPassword, Address: testAddress, Amount: -5,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative amount: %d, want 400", w.Code)
	}
}

func TestManualPollTriggers(t *testing.T) {
	r, _ := newTestRouter(t, &stubPoller{hashes: []string{"0xaa", "0xbb"}})

	w := doJSON(t, r, http.MethodPost, "/credits/base/process", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("base process: %d", w.Code)
	}
	var resp ProcessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode process: %v", err)
	}
	if resp.ProcessedCount != 2 {
		t.Fatalf("processed = %d, want 2", resp.ProcessedCount)
	}

	// Solana poller was not wired; the route reports the chain as disabled.
	w = doJSON(t, r, http.MethodPost, "/credits/solana/process", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled solana: %d, want 503", w.Code)
	}
}

func TestUpdateExpiredEndpoint(t *testing.T) {
	r, svc := newTestRouter(t, nil)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	if _, err := svc.AddCredits(ctx, credits.AddParams{
		Provider: store.ProviderVoucher, Address: testAddress, Amount: 5, ExpiredAt: &past,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/credits/update-expired", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update-expired: %d", w.Code)
	}
	var result credits.ExpireResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("updated = %d, want 1", result.UpdatedCount)
	}
}
