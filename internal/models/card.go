package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card represents one rentable outcome slot in a market. At most one owner at
// any instant; TimeLastCollected never runs ahead of the settlement clock.
type Card struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	MarketID uint   `gorm:"not null;index:idx_market_card,unique" json:"market_id"`
	Index    uint   `gorm:"column:card_index;not null;index:idx_market_card,unique" json:"index"`
	Name     string `gorm:"size:255;not null" json:"name"`

	OwnerID           *uint           `gorm:"index" json:"owner_id,omitempty"`
	PricePerDay       decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"price_per_day"`
	TimeLastCollected time.Time       `gorm:"not null" json:"time_last_collected"`
	RentCollected     decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"rent_collected"`

	// OwnershipDeadline caps the current owner's tenure when the bid carried
	// a time limit; settlement forecloses at the deadline.
	OwnershipDeadline *time.Time `json:"ownership_deadline,omitempty"`

	CardAffiliateWallet *string `gorm:"size:255" json:"card_affiliate_wallet,omitempty"`
	CardAffiliatePaid   bool    `gorm:"not null;default:false" json:"card_affiliate_paid"`

	LongestOwnerID          *uint `gorm:"index" json:"longest_owner_id,omitempty"`
	LongestOwnershipSeconds int64 `gorm:"not null;default:0" json:"longest_ownership_seconds"`

	Claimed     bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedByID *uint      `json:"claimed_by_id,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	ClaimTxHash *string    `gorm:"size:255" json:"claim_tx_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Card) TableName() string {
	return "cards"
}

// CardResponse is the API shape of a card.
type CardResponse struct {
	ID                uint       `json:"id"`
	MarketID          uint       `json:"market_id"`
	Index             uint       `json:"index"`
	Name              string     `json:"name"`
	OwnerID           *uint      `json:"owner_id"`
	PricePerDay       string     `json:"price_per_day"`
	RentCollected     string     `json:"rent_collected"`
	TimeLastCollected time.Time  `json:"time_last_collected"`
	OwnershipDeadline *time.Time `json:"ownership_deadline,omitempty"`
	Claimed           bool       `json:"claimed"`
}

// ToResponse converts a card to its API response format.
func (c *Card) ToResponse() *CardResponse {
	return &CardResponse{
		ID:                c.ID,
		MarketID:          c.MarketID,
		Index:             c.Index,
		Name:              c.Name,
		OwnerID:           c.OwnerID,
		PricePerDay:       c.PricePerDay.String(),
		RentCollected:     c.RentCollected.String(),
		TimeLastCollected: c.TimeLastCollected,
		OwnershipDeadline: c.OwnershipDeadline,
		Claimed:           c.Claimed,
	}
}
