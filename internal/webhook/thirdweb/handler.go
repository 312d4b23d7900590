// Package thirdweb ingests signed payment webhooks from the Thirdweb on-ramp
// and maps them onto ledger transactions, including the pending-to-completed
// transition once chain finality is reported.
package thirdweb

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	headerSignature = "X-Pay-Signature"
	headerTimestamp = "X-Pay-Timestamp"
)

// CreditLedger is the slice of the credit service the webhook needs.
type CreditLedger interface {
	HasTransaction(ctx context.Context, hash string) (bool, error)
	AddCredits(ctx context.Context, p credits.AddParams) (bool, error)
	UpdateTransactionStatus(ctx context.Context, hash string, status store.TransactionStatus) (bool, error)
}

type Config struct {
	// WebhookSecret is the shared HMAC secret configured in the Thirdweb
	// dashboard.
	WebhookSecret string
	// PaymentProcessor is the receiver address payments must be destined for.
	PaymentProcessor string
	// ExpectedToken guards against spoofed or unexpected token legs: the
	// destination leg must settle in this stablecoin on this chain.
	ExpectedTokenSymbol string
	ExpectedChainID     uint64
}

func (c Config) expectedSymbol() string {
	if c.ExpectedTokenSymbol == "" {
		return "USDC"
	}
	return c.ExpectedTokenSymbol
}

func (c Config) expectedChainID() uint64 {
	if c.ExpectedChainID == 0 {
		return 8453 // Base mainnet
	}
	return c.ExpectedChainID
}

type Handler struct {
	cfg    Config
	ledger CreditLedger
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(cfg Config, ledger CreditLedger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, ledger: ledger, logger: logger, now: time.Now}
}

// HandleWebhook processes one signed delivery. Signature or timestamp
// failures reject with 401; payload shapes this system does not understand are
// acknowledged and ignored so the sender stops retrying them.
func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader(headerSignature)
	timestamp := c.GetHeader(headerTimestamp)
	if err := verifySignature(h.cfg.WebhookSecret, signature, timestamp, body, h.now()); err != nil {
		h.logger.Warn("rejected thirdweb webhook", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if payload.Type != typeOnchainTransaction {
		h.logger.Debug("ignoring unsupported webhook type", zap.String("type", payload.Type))
		c.Status(http.StatusOK)
		return
	}

	var data onchainTransactionData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing onchain transaction data"})
		return
	}

	if !strings.EqualFold(data.Receiver, h.cfg.PaymentProcessor) {
		h.logger.Warn("transaction not destined for payment processor, ignoring it",
			zap.String("receiver", data.Receiver))
		c.Status(http.StatusOK)
		return
	}

	if err := h.ingest(c.Request.Context(), data); err != nil {
		h.logger.Error("error processing thirdweb webhook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error processing webhook"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) ingest(ctx context.Context, data onchainTransactionData) error {
	// Settlement happens on the expected chain; take the latest matching leg.
	var settlement *chainTransaction
	for i := len(data.Transactions) - 1; i >= 0; i-- {
		if data.Transactions[i].ChainID == h.cfg.expectedChainID() {
			settlement = &data.Transactions[i]
			break
		}
	}
	if settlement == nil {
		h.logger.Warn("no settlement transaction on expected chain",
			zap.Uint64("chain", h.cfg.expectedChainID()))
		return nil
	}

	if data.DestinationToken.Symbol != h.cfg.expectedSymbol() {
		h.logger.Warn("unsupported destination token", zap.String("symbol", data.DestinationToken.Symbol))
		return nil
	}
	if data.DestinationToken.ChainID != h.cfg.expectedChainID() {
		h.logger.Warn("unsupported destination token chain", zap.Uint64("chain", data.DestinationToken.ChainID))
		return nil
	}

	rawAmount, err := decimal.NewFromString(data.DestinationAmount)
	if err != nil {
		h.logger.Warn("unparseable destination amount", zap.String("amount", data.DestinationAmount))
		return nil
	}
	amountUSD := rawAmount.Shift(-data.DestinationToken.Decimals).InexactFloat64()

	hash := settlement.TransactionHash

	status := store.StatusPending
	if data.Status == statusCompleted {
		status = store.StatusCompleted
	}

	// Re-delivered hashes only ever move forward to completed; never credit
	// the same settlement twice.
	exists, err := h.ledger.HasTransaction(ctx, hash)
	if err != nil {
		return err
	}
	if exists {
		if status == store.StatusCompleted {
			_, err := h.ledger.UpdateTransactionStatus(ctx, hash, store.StatusCompleted)
			return err
		}
		return nil
	}

	_, err = h.ledger.AddCredits(ctx, credits.AddParams{
		Provider:        store.ProviderThirdweb,
		Address:         data.PurchaseData.UserAddress,
		Amount:          amountUSD,
		TransactionHash: hash,
		Status:          status,
	})
	return err
}
