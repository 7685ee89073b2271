package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketAccount tracks one user's standing in one market. Created lazily on
// first interaction.
type MarketAccount struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	MarketID uint `gorm:"not null;index:idx_market_user,unique" json:"market_id"`
	UserID   uint `gorm:"not null;index:idx_market_user,unique" json:"user_id"`

	// TotalRentPaid feeds the circuit-breaker refund path only.
	TotalRentPaid decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"total_rent_paid"`

	Withdrawn   bool       `gorm:"not null;default:false" json:"withdrawn"`
	WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MarketAccount) TableName() string {
	return "market_accounts"
}

// CardTime is the append-only ownership-duration ledger: cumulative seconds a
// user has held a card, plus the rent they paid on it. Updated on every
// settlement and ownership change; read by the payout engine.
type CardTime struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	MarketID uint `gorm:"not null;index" json:"market_id"`
	CardID   uint `gorm:"not null;index:idx_card_user,unique" json:"card_id"`
	UserID   uint `gorm:"not null;index:idx_card_user,unique" json:"user_id"`

	SecondsHeld int64           `gorm:"not null;default:0" json:"seconds_held"`
	RentPaid    decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"rent_paid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CardTime) TableName() string {
	return "card_times"
}
