// Package base polls the Base chain for payments sent to the LTAI payment
// processor contract and credits the sender's ledger balance in USD.
package base

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/Libertai/libertai-inference/internal/credits"
	"github.com/Libertai/libertai-inference/internal/pricing"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type EthClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Ledger is the slice of the credit service the poller needs.
type Ledger interface {
	LastBlockNumber(ctx context.Context, providers ...store.Provider) (uint64, bool, error)
	AddCredits(ctx context.Context, p credits.AddParams) (bool, error)
}

type PriceSource interface {
	USDPrice(ctx context.Context, coinID string) (float64, error)
}

type Config struct {
	Contract common.Address
	// ColdStartWindow bounds the history scanned when the ledger holds no
	// prior Base transaction: start from head minus this many blocks.
	ColdStartWindow uint64
	// ReorgOffset re-scans this many blocks below the resume point so events
	// the previous poll missed to provider lag or a reorg are picked up; the
	// ledger's hash-uniqueness guard makes the overlap safe.
	ReorgOffset uint64
	PollTimeout time.Duration
}

func (c Config) coldStartWindow() uint64 {
	if c.ColdStartWindow == 0 {
		return 1_000
	}
	return c.ColdStartWindow
}

func (c Config) reorgOffset() uint64 {
	if c.ReorgOffset == 0 {
		return 25
	}
	return c.ReorgOffset
}

func (c Config) pollTimeout() time.Duration {
	if c.PollTimeout <= 0 {
		return 45 * time.Second
	}
	return c.PollTimeout
}

type Poller struct {
	cfg    Config
	client EthClient
	ledger Ledger
	prices PriceSource
	logger *zap.Logger

	mu sync.Mutex
}

func NewPoller(cfg Config, client EthClient, ledger Ledger, prices PriceSource, logger *zap.Logger) *Poller {
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

// Poll runs one fetch-and-ingest cycle and returns the hashes of newly
// credited transactions. A cycle still in flight when the next tick fires
// makes the new invocation return immediately without polling.
func (p *Poller) Poll(ctx context.Context) ([]string, error) {
	if !p.mu.TryLock() {
		p.logger.Debug("base poll already running, skipping")
		return nil, nil
	}
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.pollTimeout())
	defer cancel()

	head, err := p.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	headNumber := head.Number.Uint64()

	from := p.resumePoint(ctx, headNumber)
	if from > headNumber {
		return nil, nil
	}

	logs, err := p.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(headNumber),
		Addresses: []common.Address{p.cfg.Contract},
		Topics:    [][]common.Hash{{paymentProcessedEvent.ID}},
	})
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}

	price, err := p.prices.USDPrice(ctx, pricing.CoinLTAI)
	if err != nil {
		return nil, err
	}

	// Logs arrive in ascending block order; processing them in order keeps the
	// resume point consistent if a crash interrupts the batch.
	processed := make([]string, 0, len(logs))
	for _, lg := range logs {
		hash, ok := p.handleLog(ctx, lg, price)
		if ok {
			processed = append(processed, hash)
		}
	}
	p.logger.Info("base poll cycle finished",
		zap.Uint64("from", from),
		zap.Uint64("to", headNumber),
		zap.Int("events", len(logs)),
		zap.Int("credited", len(processed)))
	return processed, nil
}

// resumePoint picks the first block to scan: just below the highest block
// already recorded for the Base providers, or a bounded window behind the
// chain head on cold start.
func (p *Poller) resumePoint(ctx context.Context, head uint64) uint64 {
	last, ok, err := p.ledger.LastBlockNumber(ctx, store.ProviderLTAIBase, store.ProviderBase)
	if err != nil || !ok {
		if err != nil {
			p.logger.Warn("failed to read base resume point, falling back to recent head", zap.Error(err))
		}
		if head > p.cfg.coldStartWindow() {
			return head - p.cfg.coldStartWindow()
		}
		return 0
	}
	offset := p.cfg.reorgOffset()
	if last > offset {
		return last - offset + 1
	}
	return 0
}

func (p *Poller) handleLog(ctx context.Context, lg types.Log, price float64) (string, bool) {
	event, err := decodePaymentProcessed(lg)
	if err != nil {
		p.logger.Warn("skipping undecodable payment event",
			zap.Uint64("block", lg.BlockNumber),
			zap.String("tx", lg.TxHash.Hex()),
			zap.Error(err))
		return "", false
	}

	usd := pricing.TokenAmountToUSD(event.Amount, ltaiDecimals, price)
	blockNumber := lg.BlockNumber
	ok, err := p.ledger.AddCredits(ctx, credits.AddParams{
		Provider:        store.ProviderLTAIBase,
		Address:         event.Sender.Hex(),
		Amount:          usd,
		TransactionHash: lg.TxHash.Hex(),
		BlockNumber:     &blockNumber,
	})
	if err != nil {
		p.logger.Error("failed to credit base payment",
			zap.String("tx", lg.TxHash.Hex()),
			zap.Error(err))
		return "", false
	}
	if !ok {
		// Already ingested; overlapping poll windows make this routine.
		return "", false
	}
	return lg.TxHash.Hex(), true
}
