package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"rental-market/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BidService processes ownership transfers: competitive bids, owner top-ups
// and voluntary exits. Rent is always settled on a card before its owner or
// price is touched.
type BidService struct {
	db          *gorm.DB
	locks       *KeyedMutex
	minRaisePct decimal.Decimal
}

// NewBidService creates a new BidService. minRaisePercent is how far a
// competing bid must beat the sitting price, in percent.
func NewBidService(db *gorm.DB, locks *KeyedMutex, minRaisePercent int64) *BidService {
	return &BidService{
		db:          db,
		locks:       locks,
		minRaisePct: decimal.NewFromInt(minRaisePercent),
	}
}

// PlaceBid makes bidder the card's renter at price. A zero timeLimit means
// unbounded tenure; otherwise the bidder cedes the card automatically once
// the limit elapses.
func (s *BidService) PlaceBid(ctx context.Context, bidderID, cardID uint, price decimal.Decimal, timeLimit time.Duration, now time.Time) error {
	var marketID uint
	err := s.db.WithContext(ctx).
		Model(&models.Card{}).
		Select("market_id").
		Where("id = ?", cardID).
		Scan(&marketID).Error
	if err != nil {
		return fmt.Errorf("failed to get card: %w", err)
	}

	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := tx.First(&card, cardID).Error; err != nil {
			return fmt.Errorf("failed to get card: %w", err)
		}

		var market models.Market
		if err := tx.First(&market, card.MarketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if market.State != models.MarketStateOpen || !now.Before(market.LockTime) {
			return models.ErrMarketNotOpen
		}

		if err := settleCard(tx, &market, &card, now); err != nil {
			return err
		}

		var deadline *time.Time
		if timeLimit > 0 {
			d := now.Add(timeLimit)
			deadline = &d
		}

		switch {
		case card.OwnerID != nil && *card.OwnerID == bidderID:
			// Top-up by the sitting owner: only the price changes, no
			// ownership bookkeeping.
			if !price.GreaterThan(card.PricePerDay) {
				return models.ErrPriceTooLow
			}
			card.PricePerDay = price
			card.OwnershipDeadline = deadline

		case card.OwnerID != nil:
			minimum := card.PricePerDay.Add(percentOf(s.minRaisePct, card.PricePerDay))
			if price.LessThan(minimum) {
				return models.ErrPriceTooLow
			}
			s.takeOver(&card, bidderID, price, deadline, now)

		default:
			if !price.IsPositive() {
				return models.ErrPriceTooLow
			}
			s.takeOver(&card, bidderID, price, deadline, now)
		}

		// Accounts are created lazily on first interaction.
		if _, err := getOrCreateAccount(tx, market.ID, bidderID); err != nil {
			return err
		}

		if err := tx.Save(&card).Error; err != nil {
			return fmt.Errorf("failed to save card: %w", err)
		}
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to save market: %w", err)
		}

		log.Printf("Card %d rented by user %d at %s/day", card.ID, bidderID, price.String())
		return nil
	})
}

func (s *BidService) takeOver(card *models.Card, bidderID uint, price decimal.Decimal, deadline *time.Time, now time.Time) {
	card.OwnerID = &bidderID
	card.PricePerDay = price
	card.OwnershipDeadline = deadline
	card.TimeLastCollected = now
}

// ExitCard voluntarily forecloses one card held by the user: rent is settled
// up to now, then the card reverts to unowned.
func (s *BidService) ExitCard(ctx context.Context, userID, cardID uint, now time.Time) error {
	var marketID uint
	err := s.db.WithContext(ctx).
		Model(&models.Card{}).
		Select("market_id").
		Where("id = ?", cardID).
		Scan(&marketID).Error
	if err != nil {
		return fmt.Errorf("failed to get card: %w", err)
	}

	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if market.State != models.MarketStateOpen {
			return models.ErrMarketNotOpen
		}

		if err := s.exitCard(tx, &market, cardID, userID, now); err != nil {
			return err
		}
		return tx.Save(&market).Error
	})
}

// ExitAll forecloses every card in the market currently held by the user,
// typically called before lock to stop further accrual.
func (s *BidService) ExitAll(ctx context.Context, userID, marketID uint, now time.Time) error {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if market.State != models.MarketStateOpen {
			return models.ErrMarketNotOpen
		}

		var cardIDs []uint
		if err := tx.Model(&models.Card{}).
			Where("market_id = ? AND owner_id = ?", marketID, userID).
			Pluck("id", &cardIDs).Error; err != nil {
			return fmt.Errorf("failed to list owned cards: %w", err)
		}

		for _, id := range cardIDs {
			if err := s.exitCard(tx, &market, id, userID, now); err != nil {
				return err
			}
		}
		return tx.Save(&market).Error
	})
}

func (s *BidService) exitCard(tx *gorm.DB, market *models.Market, cardID, userID uint, now time.Time) error {
	var card models.Card
	if err := tx.First(&card, cardID).Error; err != nil {
		return fmt.Errorf("failed to get card: %w", err)
	}

	if err := settleCard(tx, market, &card, now); err != nil {
		return err
	}

	// Settlement may already have foreclosed the card, or a different user
	// may hold it; only the sitting owner exits.
	if card.OwnerID == nil || *card.OwnerID != userID {
		return nil
	}

	vacate(&card)
	return tx.Save(&card).Error
}
