package repository

import (
	"context"
	"time"

	"rental-market/internal/models"

	"gorm.io/gorm"
)

// Repository bundles the read queries shared by handlers and jobs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetMarketByID retrieves a market with its cards
func (r *Repository) GetMarketByID(ctx context.Context, marketID uint) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB { return db.Order("card_index") }).
		First(&market, marketID).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// ListMarkets retrieves markets, optionally filtered by state
func (r *Repository) ListMarkets(ctx context.Context, state models.MarketState, limit, offset int) ([]models.Market, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset)
	if state != "" {
		query = query.Where("state = ?", state)
	}

	var markets []models.Market
	if err := query.Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

// ListOpenMarkets retrieves all markets still accepting rent
func (r *Repository) ListOpenMarkets(ctx context.Context) ([]models.Market, error) {
	var markets []models.Market
	err := r.db.WithContext(ctx).
		Where("state = ?", models.MarketStateOpen).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// ListMarketsDueForLock retrieves open markets whose lock time has passed
func (r *Repository) ListMarketsDueForLock(ctx context.Context, now time.Time) ([]models.Market, error) {
	var markets []models.Market
	err := r.db.WithContext(ctx).
		Where("state = ? AND lock_time <= ?", models.MarketStateOpen, now).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// GetCardByID retrieves a card by ID
func (r *Repository) GetCardByID(ctx context.Context, cardID uint) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCardsByMarket retrieves all cards of a market in index order
func (r *Repository) GetCardsByMarket(ctx context.Context, marketID uint) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("card_index").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCardsOwnedBy retrieves the cards a user currently rents in a market
func (r *Repository) GetCardsOwnedBy(ctx context.Context, marketID, userID uint) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND owner_id = ?", marketID, userID).
		Order("card_index").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// GetMarketAccount retrieves a user's account in a market
func (r *Repository) GetMarketAccount(ctx context.Context, marketID, userID uint) (*models.MarketAccount, error) {
	var account models.MarketAccount
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND user_id = ?", marketID, userID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetCardTimes retrieves the per-user time-held ledger for a card
func (r *Repository) GetCardTimes(ctx context.Context, cardID uint) ([]models.CardTime, error) {
	var times []models.CardTime
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("seconds_held DESC").
		Find(&times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}
