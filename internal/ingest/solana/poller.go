// Package solana polls the payment processor program on Solana for token and
// native-SOL payment events and credits the payer's ledger balance in USD.
package solana

import (
	"context"
	"sync"
	"time"

	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/Libertai/libertai-inference/internal/pricing"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Ledger is the slice of the credit service the poller needs.
type Ledger interface {
	LastBlockNumber(ctx context.Context, providers ...store.Provider) (uint64, bool, error)
	HasTransaction(ctx context.Context, hash string) (bool, error)
	AddCredits(ctx context.Context, p credits.AddParams) (bool, error)
}

type PriceSource interface {
	USDPrice(ctx context.Context, coinID string) (float64, error)
}

type Config struct {
	Program solana.PublicKey
	// SignatureLimit bounds how many recent signatures one cycle examines.
	SignatureLimit int
	PollTimeout    time.Duration
}

func (c Config) signatureLimit() int {
	if c.SignatureLimit <= 0 {
		return 50
	}
	return c.SignatureLimit
}

func (c Config) pollTimeout() time.Duration {
	if c.PollTimeout <= 0 {
		return 60 * time.Second
	}
	return c.PollTimeout
}

type Poller struct {
	cfg    Config
	client RPCClient
	ledger Ledger
	prices PriceSource
	logger *zap.Logger

	mu sync.Mutex
}

func NewPoller(cfg Config, client RPCClient, ledger Ledger, prices PriceSource, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		ledger: ledger,
		prices: prices,
		logger: logger,
	}
}

// Poll runs one fetch-and-ingest cycle and returns the processed signatures.
// A cycle still in flight when the next tick fires makes the new invocation
// return immediately without polling.
func (p *Poller) Poll(ctx context.Context) ([]string, error) {
	if !p.mu.TryLock() {
		p.logger.Debug("solana poll already running, skipping")
		return nil, nil
	}
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.pollTimeout())
	defer cancel()

	lastSlot, hasCursor, err := p.ledger.LastBlockNumber(ctx, store.ProviderLTAISolana, store.ProviderSOLSolana)
	if err != nil {
		return nil, err
	}

	sigs, err := p.client.SignaturesForAddress(ctx, p.cfg.Program, p.cfg.signatureLimit())
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, nil
	}

	// Signatures arrive newest first. The ledger lookup runs before the slot
	// cursor check so a bounded overlap of already-seen slots stays harmless.
	fresh := make([]SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		seen, err := p.ledger.HasTransaction(ctx, sig.Signature)
		if err != nil {
			return nil, err
		}
		if seen {
			continue
		}
		if hasCursor && sig.Slot <= lastSlot {
			continue
		}
		fresh = append(fresh, sig)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	ltaiPrice, err := p.prices.USDPrice(ctx, pricing.CoinLTAI)
	if err != nil {
		return nil, err
	}
	solPrice, err := p.prices.USDPrice(ctx, pricing.CoinSOL)
	if err != nil {
		return nil, err
	}

	// Reverse to ascending slot order so a mid-batch crash leaves the resume
	// point below every unprocessed event.
	processed := make([]string, 0, len(fresh))
	for i := len(fresh) - 1; i >= 0; i-- {
		sig := fresh[i]
		if ok := p.handleSignature(ctx, sig, ltaiPrice, solPrice); ok {
			processed = append(processed, sig.Signature)
		}
	}
	p.logger.Info("solana poll cycle finished",
		zap.Int("signatures", len(sigs)),
		zap.Int("credited", len(processed)))
	return processed, nil
}

func (p *Poller) handleSignature(ctx context.Context, sig SignatureInfo, ltaiPrice, solPrice float64) bool {
	meta, err := p.client.TransactionMeta(ctx, sig.Signature)
	if err != nil {
		p.logger.Warn("failed to fetch solana transaction",
			zap.String("signature", sig.Signature),
			zap.Error(err))
		return false
	}
	if meta == nil {
		return false
	}

	event := extractPaymentEvent(meta.LogMessages)
	if event == nil {
		return false
	}

	status := store.StatusCompleted
	if meta.Failed {
		status = store.StatusError
	}

	provider := store.ProviderLTAISolana
	usd := pricing.LamportsToUSD(event.Amount, ltaiPrice)
	if event.Native {
		provider = store.ProviderSOLSolana
		usd = pricing.LamportsToUSD(event.Amount, solPrice)
	}

	slot := sig.Slot
	ok, err := p.ledger.AddCredits(ctx, credits.AddParams{
		Provider:        provider,
		Address:         event.User,
		Amount:          usd,
		TransactionHash: sig.Signature,
		BlockNumber:     &slot,
		Status:          status,
	})
	if err != nil {
		p.logger.Error("failed to credit solana payment",
			zap.String("signature", sig.Signature),
			zap.Error(err))
		return false
	}
	return ok
}
