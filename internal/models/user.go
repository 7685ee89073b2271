package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system. Balance is the free deposit the rent
// engine draws from; rent never touches funds outside it.
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	WalletAddress string          `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Nickname      string          `gorm:"size:255" json:"nickname"`
	Balance       decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
