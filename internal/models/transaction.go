package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionTypeRent        TransactionType = "RENT"
	TransactionTypeSponsorship TransactionType = "SPONSORSHIP"
	TransactionTypeFee         TransactionType = "FEE"
	TransactionTypePayout      TransactionType = "PAYOUT"
	TransactionTypeRefund      TransactionType = "REFUND"
)

// Transaction records one balance movement between a user's free balance and
// a market pot (or the outside world, for deposits and withdrawals).
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	MarketID    *uint           `gorm:"index" json:"market_id,omitempty"`
	CardID      *uint           `gorm:"index" json:"card_id,omitempty"`
	Type        TransactionType `gorm:"size:50;not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(30,8);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
