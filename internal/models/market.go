package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketMode string

const (
	// MarketModeClassic splits the remaining pot time-weighted among the
	// renters of the winning card.
	MarketModeClassic MarketMode = "CLASSIC"
	// MarketModeGlobalWinner always resolves to the banner card (index 0),
	// whatever the resolution source reports.
	MarketModeGlobalWinner MarketMode = "GLOBAL_WINNER"
	// MarketModeSafe refunds winning-card rent first, then splits the
	// remainder time-weighted.
	MarketModeSafe MarketMode = "SAFE"
)

type MarketState string

const (
	MarketStateOpen          MarketState = "OPEN"
	MarketStateLocked        MarketState = "LOCKED"
	MarketStateResolved      MarketState = "RESOLVED"
	MarketStateCircuitBroken MarketState = "CIRCUIT_BROKEN"
)

// Fee-paid bitset values stored in Market.FeesPaid
const (
	FeePaidArtist    uint8 = 1 << 0
	FeePaidCreator   uint8 = 1 << 1
	FeePaidAffiliate uint8 = 1 << 2
)

// Market represents a continuous-auction rental market over a fixed set of
// outcome cards. Rent flows into PotBalance; after resolution the payout
// engine distributes it.
type Market struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"size:500;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Mode        MarketMode  `gorm:"size:50;not null;default:CLASSIC" json:"mode"`
	State       MarketState `gorm:"size:50;not null;default:OPEN;index" json:"state"`

	LockTime               time.Time `gorm:"not null" json:"lock_time"`
	ResolutionDeadline     time.Time `gorm:"not null" json:"resolution_deadline"`
	CircuitBreakerDeadline time.Time `gorm:"not null" json:"circuit_breaker_deadline"`

	// Distribution percentages over the collected pot. Whatever they leave
	// uncut goes to the time-weighted winner payout.
	ArtistCut        decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"artist_cut"`
	WinnerCut        decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"winner_cut"`
	CreatorCut       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"creator_cut"`
	AffiliateCut     decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"affiliate_cut"`
	CardAffiliateCut decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"card_affiliate_cut"`

	ArtistID    *uint `gorm:"index" json:"artist_id,omitempty"`
	CreatorID   *uint `gorm:"index" json:"creator_id,omitempty"`
	AffiliateID *uint `gorm:"index" json:"affiliate_id,omitempty"`

	WinningCardID *uint `json:"winning_card_id,omitempty"`

	TotalRentCollected   decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"total_rent_collected"`
	SponsorshipCollected decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"sponsorship_collected"`
	PotBalance           decimal.Decimal `gorm:"type:decimal(30,8);not null;default:0" json:"pot_balance"`

	FeesPaid uint8 `gorm:"not null;default:0" json:"fees_paid"`

	Cards []Card `gorm:"foreignKey:MarketID" json:"cards,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (Market) TableName() string {
	return "markets"
}

// TotalCollected is the denominator every fee and payout percentage applies
// to: rent plus sponsorship.
func (m *Market) TotalCollected() decimal.Decimal {
	return m.TotalRentCollected.Add(m.SponsorshipCollected)
}

// Withdrawable reports whether payout operations are legal.
func (m *Market) Withdrawable() bool {
	return m.State == MarketStateResolved || m.State == MarketStateCircuitBroken
}

// FeePaid reports whether the one-shot flag for a fee role is already set.
func (m *Market) FeePaid(flag uint8) bool {
	return m.FeesPaid&flag != 0
}

// CreateMarketRequest is the payload for creating a market with its cards.
type CreateMarketRequest struct {
	Title                string   `json:"title" binding:"required"`
	Description          string   `json:"description"`
	Mode                 string   `json:"mode"`
	CardNames            []string `json:"card_names" binding:"required,min=2"`
	LockTime             int64    `json:"lock_time" binding:"required"`
	ResolutionDeadline   int64    `json:"resolution_deadline"`
	ArtistCut            string   `json:"artist_cut"`
	WinnerCut            string   `json:"winner_cut"`
	CreatorCut           string   `json:"creator_cut"`
	AffiliateCut         string   `json:"affiliate_cut"`
	CardAffiliateCut     string   `json:"card_affiliate_cut"`
	ArtistID             *uint    `json:"artist_id"`
	AffiliateID          *uint    `json:"affiliate_id"`
	CardAffiliateWallets []string `json:"card_affiliate_wallets"`
}

// PlaceBidRequest is the payload for renting a card.
type PlaceBidRequest struct {
	Price            string `json:"price" binding:"required"`
	TimeLimitSeconds int64  `json:"time_limit_seconds"`
}

// SponsorRequest adds funds directly to the market pot.
type SponsorRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// ResolveRequest names the winning card, delivered by the resolution source.
type ResolveRequest struct {
	WinningCardID uint `json:"winning_card_id"`
}
