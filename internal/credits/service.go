package credits

import (
	"context"
	"errors"
	"time"

	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventSink receives successfully stored transactions, e.g. for the live
// websocket feed. A nil sink disables publishing.
type EventSink interface {
	PublishCreditTransaction(tx *store.CreditTransaction)
}

// Service is the single write path for introducing and consuming funds. Every
// ingester (chain pollers, webhook) and every debit caller goes through it.
type Service struct {
	repo    *store.Repository
	logger  *zap.Logger
	sink    EventSink
	bonuses map[store.Provider]float64
	debits  addressLocks
}

func NewService(repo *store.Repository, logger *zap.Logger, sink EventSink, bonuses map[store.Provider]float64) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		sink:    sink,
		bonuses: bonuses,
		debits:  newAddressLocks(),
	}
}

type AddParams struct {
	Provider        store.Provider
	Address         string
	Amount          float64
	TransactionHash string // empty for vouchers
	BlockNumber     *uint64
	ExpiredAt       *time.Time
	Status          store.TransactionStatus // defaults to completed
}

// AddCredits records a new funding transaction for the address, creating the
// user on first contact. A transaction hash that was already ingested returns
// false without mutation; this is the sole idempotency mechanism for chain and
// webhook re-delivery. Callers of on-chain providers must supply BlockNumber.
func (s *Service) AddCredits(ctx context.Context, p AddParams) (bool, error) {
	if !p.Provider.Valid() {
		return false, errors.New("credits: unknown provider " + string(p.Provider))
	}
	if p.Amount < 0 {
		return false, errors.New("credits: negative amount")
	}
	status := p.Status
	if status == "" {
		status = store.StatusCompleted
	}

	amount := p.Amount
	if bonus, ok := s.bonuses[p.Provider]; ok && bonus > 0 {
		amount = amount * bonus
	}

	tx := &store.CreditTransaction{
		ID:          uuid.NewString(),
		Address:     p.Address,
		Amount:      amount,
		AmountLeft:  amount,
		Provider:    p.Provider,
		BlockNumber: p.BlockNumber,
		Status:      status,
		ExpiredAt:   p.ExpiredAt,
		IsActive:    true,
	}
	if p.TransactionHash != "" {
		hash := p.TransactionHash
		tx.TransactionHash = &hash
	}

	if err := s.repo.CreateCreditTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			s.logger.Warn("duplicate transaction delivery skipped",
				zap.String("hash", p.TransactionHash),
				zap.String("provider", string(p.Provider)))
			return false, nil
		}
		return false, err
	}

	s.logger.Info("credits added",
		zap.String("address", tx.Address),
		zap.Float64("amount", amount),
		zap.String("provider", string(p.Provider)),
		zap.String("status", string(status)),
		zap.String("hash", p.TransactionHash))

	if s.sink != nil {
		clone := *tx
		s.sink.PublishCreditTransaction(&clone)
	}
	return true, nil
}

// UseCredits deducts amount from the address's balance, draining transactions
// closest to expiry first. Insufficient balance is not an error: the paid-for
// work has already been rendered, so remaining transactions are zeroed and the
// deficit is logged. Debits for one address are serialized against each other.
func (s *Service) UseCredits(ctx context.Context, address string, amount float64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	address = store.NormalizeAddress(address)

	// Two near-simultaneous debits for the same address must not both read the
	// same amount_left snapshot.
	lock := s.debits.get(address)
	lock.Lock()
	defer lock.Unlock()

	shortfall, err := s.repo.DebitCredits(ctx, address, amount)
	if err != nil {
		return false, err
	}
	if shortfall > 0 {
		s.logger.Warn("insufficient credits",
			zap.String("address", address),
			zap.Float64("requested", amount),
			zap.Float64("missing", shortfall))
	}
	return true, nil
}

// Balance returns the sum of amount_left over the address's active completed
// transactions; 0 for unknown addresses.
func (s *Service) Balance(ctx context.Context, address string) (float64, error) {
	return s.repo.CreditBalance(ctx, address)
}

func (s *Service) Transactions(ctx context.Context, address string) ([]store.CreditTransaction, error) {
	return s.repo.ListTransactions(ctx, address)
}

func (s *Service) Vouchers(ctx context.Context, address string) ([]store.CreditTransaction, error) {
	return s.repo.ListVouchers(ctx, address)
}

// ChangeVoucherExpiration updates expired_at on an active voucher. Returns
// false for a malformed id or when no active voucher matches.
func (s *Service) ChangeVoucherExpiration(ctx context.Context, voucherID string, expiredAt *time.Time) (bool, error) {
	if _, err := uuid.Parse(voucherID); err != nil {
		s.logger.Warn("invalid voucher id", zap.String("voucher_id", voucherID))
		return false, nil
	}
	return s.repo.UpdateVoucherExpiration(ctx, voucherID, expiredAt)
}

// UpdateTransactionStatus transitions a transaction identified by hash, e.g.
// pending to completed once the webhook reports chain finality. No-op-safe.
func (s *Service) UpdateTransactionStatus(ctx context.Context, hash string, status store.TransactionStatus) (bool, error) {
	ok, err := s.repo.UpdateTransactionStatus(ctx, hash, status)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("transaction status updated",
			zap.String("hash", hash),
			zap.String("status", string(status)))
	}
	return ok, nil
}

// HasTransaction reports whether a transaction hash is already recorded.
func (s *Service) HasTransaction(ctx context.Context, hash string) (bool, error) {
	tx, err := s.repo.GetTransactionByHash(ctx, hash)
	if err != nil {
		return false, err
	}
	return tx != nil, nil
}

// LastBlockNumber exposes the ingestion resume point for a provider set.
func (s *Service) LastBlockNumber(ctx context.Context, providers ...store.Provider) (uint64, bool, error) {
	return s.repo.LastBlockNumber(ctx, providers...)
}

type ExpiredTransaction struct {
	ID              string     `json:"id"`
	TransactionHash *string    `json:"transactionHash"`
	Address         string     `json:"address"`
	ExpiredAt       *time.Time `json:"expiredAt"`
}

type ExpireResult struct {
	UpdatedCount int                  `json:"updatedCount"`
	Transactions []ExpiredTransaction `json:"transactions"`
}

// ExpireCredits deactivates every transaction whose expiration date has
// passed. Runs on a schedule and is also exposed for manual triggering.
func (s *Service) ExpireCredits(ctx context.Context) (ExpireResult, error) {
	expired, err := s.repo.ExpireTransactions(ctx, time.Now())
	if err != nil {
		return ExpireResult{}, err
	}
	result := ExpireResult{
		UpdatedCount: len(expired),
		Transactions: make([]ExpiredTransaction, 0, len(expired)),
	}
	for _, tx := range expired {
		result.Transactions = append(result.Transactions, ExpiredTransaction{
			ID:              tx.ID,
			TransactionHash: tx.TransactionHash,
			Address:         tx.Address,
			ExpiredAt:       tx.ExpiredAt,
		})
	}
	if result.UpdatedCount > 0 {
		s.logger.Info("expired credit transactions deactivated", zap.Int("count", result.UpdatedCount))
	}
	return result, nil
}
