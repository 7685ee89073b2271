package services

import (
	"context"
	"fmt"
	"time"

	"rental-market/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const secondsPerDay = 86400

// moneyScale is the number of fractional digits kept on every division.
// Divisions truncate, so rounding always favors the pot.
const moneyScale = 8

// rentOwed returns the rent a price-per-day accrues over a number of seconds.
func rentOwed(pricePerDay decimal.Decimal, seconds int64) decimal.Decimal {
	return pricePerDay.
		Mul(decimal.NewFromInt(seconds)).
		Div(decimal.NewFromInt(secondsPerDay)).
		Truncate(moneyScale)
}

// coveredSeconds returns how many whole seconds of rent a balance can pay at
// the given price.
func coveredSeconds(balance, pricePerDay decimal.Decimal) int64 {
	if !pricePerDay.IsPositive() {
		return 0
	}
	return balance.
		Mul(decimal.NewFromInt(secondsPerDay)).
		Div(pricePerDay).
		IntPart()
}

// percentOf returns pct% of base, truncated.
func percentOf(pct, base decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(decimal.NewFromInt(100)).Truncate(moneyScale)
}

// RentService settles the continuous rental obligation of card owners. Every
// other engine calls settleCard before reading card state; skipping it would
// corrupt the time-weighted payout math.
type RentService struct {
	db    *gorm.DB
	locks *KeyedMutex
}

// NewRentService creates a new RentService
func NewRentService(db *gorm.DB, locks *KeyedMutex) *RentService {
	return &RentService{db: db, locks: locks}
}

// SettleCard settles owed rent on one card up to now.
func (s *RentService) SettleCard(ctx context.Context, cardID uint, now time.Time) error {
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

		if market.State != models.MarketStateOpen {
			return models.ErrMarketNotOpen
		}

		if err := settleCard(tx, &market, &card, now); err != nil {
			return err
		}

		return tx.Save(&market).Error
	})
}

// SettleMarket settles every card of a market in one transaction.
func (s *RentService) SettleMarket(ctx context.Context, marketID uint, now time.Time) error {
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

		if err := settleMarket(tx, &market, now); err != nil {
			return err
		}

		return tx.Save(&market).Error
	})
}

// settleMarket settles all cards of a loaded market inside tx. Caller saves
// the market.
func settleMarket(tx *gorm.DB, market *models.Market, now time.Time) error {
	var cards []models.Card
	if err := tx.Where("market_id = ?", market.ID).Order("card_index").Find(&cards).Error; err != nil {
		return fmt.Errorf("failed to get cards: %w", err)
	}

	for i := range cards {
		if err := settleCard(tx, market, &cards[i], now); err != nil {
			return err
		}
	}
	return nil
}

// settleCard charges the current owner for time elapsed since the last
// collection, handling the time-limit expiry clamp and foreclosure when the
// balance runs out. Saves the card; the caller saves the market.
func settleCard(tx *gorm.DB, market *models.Market, card *models.Card, now time.Time) error {
	if card.OwnerID == nil {
		// Unowned cards accrue nothing; keep the collection clock current.
		if now.After(card.TimeLastCollected) {
			card.TimeLastCollected = now
			return tx.Save(card).Error
		}
		return nil
	}

	// An expired time limit caps the charged interval at the deadline and
	// forecloses the card there, even when the balance would cover more.
	effective := now
	expired := false
	if card.OwnershipDeadline != nil && card.OwnershipDeadline.Before(now) {
		effective = *card.OwnershipDeadline
		expired = true
	}
	if effective.Before(card.TimeLastCollected) {
		// The collection clock never moves backward.
		effective = card.TimeLastCollected
	}

	elapsed := int64(effective.Sub(card.TimeLastCollected).Seconds())

	ownerID := *card.OwnerID
	owed := rentOwed(card.PricePerDay, elapsed)

	var owner models.User
	if err := tx.First(&owner, ownerID).Error; err != nil {
		return fmt.Errorf("failed to get owner: %w", err)
	}

	if owner.Balance.GreaterThanOrEqual(owed) {
		if owed.IsPositive() {
			if err := transferToPot(&owner, market, owed); err != nil {
				return err
			}
			card.RentCollected = card.RentCollected.Add(owed)
			market.TotalRentCollected = market.TotalRentCollected.Add(owed)
			if err := tx.Save(&owner).Error; err != nil {
				return fmt.Errorf("failed to debit owner: %w", err)
			}
			if err := recordTransaction(tx, ownerID, &market.ID, &card.ID, models.TransactionTypeRent, owed, "rent"); err != nil {
				return err
			}
		}
		if err := creditTime(tx, market.ID, card, ownerID, elapsed, owed); err != nil {
			return err
		}
		card.TimeLastCollected = effective
		if expired {
			vacate(card)
		}
		return tx.Save(card).Error
	}

	// Foreclosure: take the whole remaining balance, advance the clock only
	// by the seconds it covered, and vacate the card. Not an error.
	covered := coveredSeconds(owner.Balance, card.PricePerDay)
	if covered > elapsed {
		covered = elapsed
	}
	paid := owner.Balance

	if paid.IsPositive() {
		if err := transferToPot(&owner, market, paid); err != nil {
			return err
		}
		card.RentCollected = card.RentCollected.Add(paid)
		market.TotalRentCollected = market.TotalRentCollected.Add(paid)
		if err := tx.Save(&owner).Error; err != nil {
			return fmt.Errorf("failed to debit owner: %w", err)
		}
		if err := recordTransaction(tx, ownerID, &market.ID, &card.ID, models.TransactionTypeRent, paid, "rent (foreclosure)"); err != nil {
			return err
		}
	}

	if err := creditTime(tx, market.ID, card, ownerID, covered, paid); err != nil {
		return err
	}

	card.TimeLastCollected = card.TimeLastCollected.Add(time.Duration(covered) * time.Second)
	vacate(card)
	return tx.Save(card).Error
}

// vacate removes the current owner and resets the asking price; the next bid
// at any positive price takes the card.
func vacate(card *models.Card) {
	card.OwnerID = nil
	card.OwnershipDeadline = nil
	card.PricePerDay = decimal.Zero
}

// creditTime adds held seconds and paid rent to the user's per-card ledger
// and market account, and refreshes the card's longest-owner record.
func creditTime(tx *gorm.DB, marketID uint, card *models.Card, userID uint, seconds int64, rentPaid decimal.Decimal) error {
	if seconds <= 0 && !rentPaid.IsPositive() {
		return nil
	}

	cardTime, err := getOrCreateCardTime(tx, marketID, card.ID, userID)
	if err != nil {
		return err
	}
	cardTime.SecondsHeld += seconds
	cardTime.RentPaid = cardTime.RentPaid.Add(rentPaid)
	if err := tx.Save(cardTime).Error; err != nil {
		return fmt.Errorf("failed to update card time: %w", err)
	}

	account, err := getOrCreateAccount(tx, marketID, userID)
	if err != nil {
		return err
	}
	account.TotalRentPaid = account.TotalRentPaid.Add(rentPaid)
	if err := tx.Save(account).Error; err != nil {
		return fmt.Errorf("failed to update market account: %w", err)
	}

	if cardTime.SecondsHeld > card.LongestOwnershipSeconds {
		card.LongestOwnershipSeconds = cardTime.SecondsHeld
		card.LongestOwnerID = &userID
	}
	return nil
}

// getOrCreateAccount fetches the per-user market account, creating it lazily.
func getOrCreateAccount(tx *gorm.DB, marketID, userID uint) (*models.MarketAccount, error) {
	var account models.MarketAccount
	err := tx.Where("market_id = ? AND user_id = ?", marketID, userID).First(&account).Error
	if err == gorm.ErrRecordNotFound {
		account = models.MarketAccount{
			MarketID:      marketID,
			UserID:        userID,
			TotalRentPaid: decimal.Zero,
		}
		if err := tx.Create(&account).Error; err != nil {
			return nil, fmt.Errorf("failed to create market account: %w", err)
		}
		return &account, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market account: %w", err)
	}
	return &account, nil
}

// getOrCreateCardTime fetches the per-user card time ledger, creating it lazily.
func getOrCreateCardTime(tx *gorm.DB, marketID, cardID, userID uint) (*models.CardTime, error) {
	var cardTime models.CardTime
	err := tx.Where("card_id = ? AND user_id = ?", cardID, userID).First(&cardTime).Error
	if err == gorm.ErrRecordNotFound {
		cardTime = models.CardTime{
			MarketID: marketID,
			CardID:   cardID,
			UserID:   userID,
			RentPaid: decimal.Zero,
		}
		if err := tx.Create(&cardTime).Error; err != nil {
			return nil, fmt.Errorf("failed to create card time: %w", err)
		}
		return &cardTime, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card time: %w", err)
	}
	return &cardTime, nil
}
