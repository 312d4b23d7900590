package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("store: not found")
	ErrDuplicateTransaction = errors.New("store: duplicate transaction hash")
)

// spendableOrder consumes transactions closest to expiry first; rows without an
// expiration date sort last. Written as a CASE so it works on sqlite and postgres.
const spendableOrder = "CASE WHEN expired_at IS NULL THEN 1 ELSE 0 END, expired_at ASC"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *DB) *Repository { return &Repository{db: db.DB} }

// CreateCreditTransaction persists a new funding transaction, creating the
// owning user row if needed. The user upsert and the insert share one storage
// transaction so a partial failure rolls back entirely. A transaction hash that
// is already recorded returns ErrDuplicateTransaction without mutation.
func (r *Repository) CreateCreditTransaction(ctx context.Context, tx *CreditTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Address = NormalizeAddress(tx.Address)
	err := r.db.WithContext(ctx).Transaction(func(dtx *gorm.DB) error {
		if err := dtx.FirstOrCreate(&User{}, User{Address: tx.Address}).Error; err != nil {
			return err
		}
		if tx.TransactionHash != nil {
			var count int64
			if err := dtx.Model(&CreditTransaction{}).
				Where("transaction_hash = ?", *tx.TransactionHash).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateTransaction
			}
		}
		return dtx.Create(tx).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a hash-uniqueness race to a concurrent writer; same outcome as
		// the pre-insert check.
		return ErrDuplicateTransaction
	}
	return err
}

func (r *Repository) GetTransactionByHash(ctx context.Context, hash string) (*CreditTransaction, error) {
	var tx CreditTransaction
	err := r.db.WithContext(ctx).Where("transaction_hash = ?", hash).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateTransactionStatus moves a transaction identified by its hash to the
// given status. Safe to call repeatedly; reports whether a row matched.
func (r *Repository) UpdateTransactionStatus(ctx context.Context, hash string, status TransactionStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&CreditTransaction{}).
		Where("transaction_hash = ?", hash).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreditBalance sums what is left on the address's active completed
// transactions. Unknown addresses yield 0, never an error.
func (r *Repository) CreditBalance(ctx context.Context, address string) (float64, error) {
	var balance float64
	err := r.db.WithContext(ctx).Model(&CreditTransaction{}).
		Where("address = ? AND is_active = ? AND status = ?", NormalizeAddress(address), true, StatusCompleted).
		Select("COALESCE(SUM(amount_left), 0)").
		Scan(&balance).Error
	return balance, err
}

// DebitCredits walks the address's spendable transactions oldest-expiring
// first, deducting greedily until amount is exhausted. Transactions saturate at
// zero; if the total available falls short the deficit is returned as shortfall
// rather than an error. The read and all updates share one storage transaction.
func (r *Repository) DebitCredits(ctx context.Context, address string, amount float64) (shortfall float64, err error) {
	remaining := amount
	err = r.db.WithContext(ctx).Transaction(func(dtx *gorm.DB) error {
		var txs []CreditTransaction
		if err := dtx.
			Where("address = ? AND is_active = ? AND status = ? AND amount_left > 0",
				NormalizeAddress(address), true, StatusCompleted).
			Order(spendableOrder).
			Find(&txs).Error; err != nil {
			return err
		}
		for i := range txs {
			if remaining <= 0 {
				break
			}
			use := txs[i].AmountLeft
			if use > remaining {
				use = remaining
			}
			if err := dtx.Model(&CreditTransaction{}).
				Where("id = ?", txs[i].ID).
				Update("amount_left", txs[i].AmountLeft-use).Error; err != nil {
				return err
			}
			remaining -= use
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *Repository) ListTransactions(ctx context.Context, address string) ([]CreditTransaction, error) {
	var txs []CreditTransaction
	err := r.db.WithContext(ctx).
		Where("address = ?", NormalizeAddress(address)).
		Order("created_at desc").
		Find(&txs).Error
	return txs, err
}

func (r *Repository) ListVouchers(ctx context.Context, address string) ([]CreditTransaction, error) {
	var vouchers []CreditTransaction
	err := r.db.WithContext(ctx).
		Where("address = ? AND provider = ?", NormalizeAddress(address), ProviderVoucher).
		Order("created_at desc").
		Find(&vouchers).Error
	return vouchers, err
}

// UpdateVoucherExpiration changes the expiration date of an active voucher.
// Reports false when the id does not match an active voucher transaction.
func (r *Repository) UpdateVoucherExpiration(ctx context.Context, voucherID string, expiredAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&CreditTransaction{}).
		Where("id = ? AND provider = ? AND is_active = ?", voucherID, ProviderVoucher, true).
		Update("expired_at", expiredAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LastBlockNumber recovers the poll resume point for a provider set: the
// highest block number among its completed transactions. ok is false when no
// prior transaction exists.
func (r *Repository) LastBlockNumber(ctx context.Context, providers ...Provider) (uint64, bool, error) {
	var result sql.NullInt64
	err := r.db.WithContext(ctx).Model(&CreditTransaction{}).
		Where("provider IN ? AND status = ? AND block_number IS NOT NULL", providers, StatusCompleted).
		Select("MAX(block_number)").
		Scan(&result).Error
	if err != nil {
		return 0, false, err
	}
	if !result.Valid {
		return 0, false, nil
	}
	return uint64(result.Int64), true, nil
}

// ExpireTransactions deactivates every active transaction whose expiration date
// has passed, in one batch transaction, and returns the affected rows.
func (r *Repository) ExpireTransactions(ctx context.Context, now time.Time) ([]CreditTransaction, error) {
	var expired []CreditTransaction
	err := r.db.WithContext(ctx).Transaction(func(dtx *gorm.DB) error {
		if err := dtx.
			Where("is_active = ? AND expired_at IS NOT NULL AND expired_at < ?", true, now).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]string, 0, len(expired))
		for _, tx := range expired {
			ids = append(ids, tx.ID)
		}
		return dtx.Model(&CreditTransaction{}).
			Where("id IN ?", ids).
			Update("is_active", false).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range expired {
		expired[i].IsActive = false
	}
	return expired, nil
}
