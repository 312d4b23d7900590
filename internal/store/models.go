package store

import "time"

type User struct {
	Address            string              `gorm:"primaryKey;size:66"`
	CreditTransactions []CreditTransaction `gorm:"foreignKey:Address;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"autoCreateTime"`
}

// CreditTransaction is the atomic funding unit of the ledger. A row contributes
// to the owner's balance only while IsActive is true and Status is completed.
type CreditTransaction struct {
	ID              string  `gorm:"primaryKey;size:36"`
	TransactionHash *string `gorm:"size:128;uniqueIndex"`
	Address         string  `gorm:"size:66;index;not null"`
	Amount          float64 `gorm:"not null;check:chk_amount_non_negative,amount >= 0"`
	AmountLeft      float64 `gorm:"not null;check:chk_amount_left_non_negative,amount_left >= 0;check:chk_amount_left_within_amount,amount_left <= amount"`
	// The provider check is extend-only: new variants are appended to the IN
	// list alongside the Provider constants, existing values never change.
	Provider    Provider          `gorm:"size:32;not null;index;check:chk_provider_choices,provider IN ('base','ltai_base','solana','ltai_solana','sol_solana','thirdweb','voucher')"`
	BlockNumber *uint64           `gorm:"index"`
	Status      TransactionStatus `gorm:"size:16;not null;default:completed"`
	ExpiredAt   *time.Time
	IsActive    bool      `gorm:"not null;default:true;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// UsedAmount reports how much of this transaction has been consumed so far.
func (t CreditTransaction) UsedAmount() float64 {
	used := t.Amount - t.AmountLeft
	if used < 0 {
		return 0
	}
	return used
}
