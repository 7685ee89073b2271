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

// MarketService owns the market lifecycle: creation, the strictly
// forward-moving Open → Locked → Resolved|CircuitBroken state machine, and
// sponsorship. Payouts live in PayoutService.
type MarketService struct {
	db                  *gorm.DB
	locks               *KeyedMutex
	circuitBreakerDelay time.Duration
}

// NewMarketService creates a new MarketService
func NewMarketService(db *gorm.DB, locks *KeyedMutex, circuitBreakerDelay time.Duration) *MarketService {
	return &MarketService{
		db:                  db,
		locks:               locks,
		circuitBreakerDelay: circuitBreakerDelay,
	}
}

// CreateMarket creates a market together with its fixed card set, atomically.
func (s *MarketService) CreateMarket(ctx context.Context, creatorID uint, req *models.CreateMarketRequest, now time.Time) (*models.Market, error) {
	if len(req.CardNames) < 2 {
		return nil, fmt.Errorf("a market needs at least two cards")
	}

	lockTime := time.Unix(req.LockTime, 0).UTC()
	if !lockTime.After(now) {
		return nil, fmt.Errorf("lock time must be in the future")
	}

	resolutionDeadline := lockTime
	if req.ResolutionDeadline > 0 {
		resolutionDeadline = time.Unix(req.ResolutionDeadline, 0).UTC()
		if resolutionDeadline.Before(lockTime) {
			return nil, fmt.Errorf("resolution deadline must not precede lock time")
		}
	}

	mode := models.MarketModeClassic
	switch models.MarketMode(req.Mode) {
	case "", models.MarketModeClassic:
	case models.MarketModeGlobalWinner, models.MarketModeSafe:
		mode = models.MarketMode(req.Mode)
	default:
		return nil, fmt.Errorf("unknown market mode: %s", req.Mode)
	}

	cuts, err := parseCuts(req)
	if err != nil {
		return nil, err
	}

	market := &models.Market{
		Title:                  req.Title,
		Description:            req.Description,
		Mode:                   mode,
		State:                  models.MarketStateOpen,
		LockTime:               lockTime,
		ResolutionDeadline:     resolutionDeadline,
		CircuitBreakerDeadline: lockTime.Add(s.circuitBreakerDelay),
		ArtistCut:              cuts[0],
		WinnerCut:              cuts[1],
		CreatorCut:             cuts[2],
		AffiliateCut:           cuts[3],
		CardAffiliateCut:       cuts[4],
		ArtistID:               req.ArtistID,
		CreatorID:              &creatorID,
		AffiliateID:            req.AffiliateID,
		TotalRentCollected:     decimal.Zero,
		SponsorshipCollected:   decimal.Zero,
		PotBalance:             decimal.Zero,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(market).Error; err != nil {
			return fmt.Errorf("failed to create market: %w", err)
		}

		for i, name := range req.CardNames {
			card := models.Card{
				MarketID:          market.ID,
				Index:             uint(i),
				Name:              name,
				PricePerDay:       decimal.Zero,
				RentCollected:     decimal.Zero,
				TimeLastCollected: now,
			}
			if i < len(req.CardAffiliateWallets) && req.CardAffiliateWallets[i] != "" {
				wallet := req.CardAffiliateWallets[i]
				card.CardAffiliateWallet = &wallet
			}
			if err := tx.Create(&card).Error; err != nil {
				return fmt.Errorf("failed to create card %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Market %d created (%d cards, mode %s, locks at %s)",
		market.ID, len(req.CardNames), market.Mode, market.LockTime.Format(time.RFC3339))
	return market, nil
}

// parseCuts parses the five distribution percentages and checks they leave
// something for the winner payout.
func parseCuts(req *models.CreateMarketRequest) ([5]decimal.Decimal, error) {
	var cuts [5]decimal.Decimal
	fields := [5]string{req.ArtistCut, req.WinnerCut, req.CreatorCut, req.AffiliateCut, req.CardAffiliateCut}
	names := [5]string{"artist_cut", "winner_cut", "creator_cut", "affiliate_cut", "card_affiliate_cut"}

	total := decimal.Zero
	for i, f := range fields {
		if f == "" {
			cuts[i] = decimal.Zero
			continue
		}
		v, err := decimal.NewFromString(f)
		if err != nil {
			return cuts, fmt.Errorf("invalid %s: %w", names[i], err)
		}
		if v.IsNegative() {
			return cuts, fmt.Errorf("%s must not be negative", names[i])
		}
		cuts[i] = v
		total = total.Add(v)
	}

	if total.GreaterThan(decimal.NewFromInt(100)) {
		return cuts, fmt.Errorf("distribution percentages exceed 100%%")
	}
	return cuts, nil
}

// Lock transitions Open → Locked once the lock time has passed, fixing every
// card's final rent and time-held figures with a terminal batch settlement.
func (s *MarketService) Lock(ctx context.Context, marketID uint, now time.Time) error {
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
		if now.Before(market.LockTime) {
			return models.ErrTooEarly
		}

		// Charge rent up to lock time, not beyond: nothing accrues once the
		// market is locked.
		if err := settleMarket(tx, &market, market.LockTime); err != nil {
			return err
		}

		market.State = models.MarketStateLocked
		market.LockedAt = &now
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to lock market: %w", err)
		}

		log.Printf("Market %d locked (total rent collected: %s)", market.ID, market.TotalRentCollected.String())
		return nil
	})
}

// Resolve records the winning card reported by the resolution source,
// transitioning Locked → Resolved. In global-winner mode the banner card
// (index 0) wins regardless of the reported outcome.
func (s *MarketService) Resolve(ctx context.Context, marketID, winningCardID uint, now time.Time) error {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		switch market.State {
		case models.MarketStateLocked:
		case models.MarketStateResolved, models.MarketStateCircuitBroken:
			return models.ErrAlreadyResolved
		default:
			return fmt.Errorf("market %d is not locked", marketID)
		}

		var winner models.Card
		if market.Mode == models.MarketModeGlobalWinner {
			if err := tx.Where("market_id = ? AND card_index = 0", marketID).First(&winner).Error; err != nil {
				return fmt.Errorf("failed to get banner card: %w", err)
			}
		} else {
			if err := tx.Where("id = ? AND market_id = ?", winningCardID, marketID).First(&winner).Error; err != nil {
				return fmt.Errorf("winning card %d not in market %d: %w", winningCardID, marketID, err)
			}
		}

		market.State = models.MarketStateResolved
		market.WinningCardID = &winner.ID
		market.ResolvedAt = &now
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to resolve market: %w", err)
		}

		log.Printf("Market %d resolved, winning card %d (%s)", market.ID, winner.ID, winner.Name)
		return nil
	})
}

// CircuitBreaker transitions Locked → CircuitBroken once the deadline has
// passed, the fallback for a permanently unresponsive resolution source.
func (s *MarketService) CircuitBreaker(ctx context.Context, marketID uint, now time.Time) error {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		switch market.State {
		case models.MarketStateLocked:
		case models.MarketStateResolved, models.MarketStateCircuitBroken:
			return models.ErrAlreadyResolved
		default:
			return fmt.Errorf("market %d is not locked", marketID)
		}

		if now.Before(market.CircuitBreakerDeadline) {
			return models.ErrTooEarly
		}

		market.State = models.MarketStateCircuitBroken
		market.ResolvedAt = &now
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to break market: %w", err)
		}

		log.Printf("Market %d circuit broken, rent refunds enabled", market.ID)
		return nil
	})
}

// Sponsor adds funds directly to the pot before lock. Sponsorship widens the
// distributable pot without crediting anyone's held time.
func (s *MarketService) Sponsor(ctx context.Context, userID, marketID uint, amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return models.ErrZeroAmount
	}

	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if market.State != models.MarketStateOpen || !now.Before(market.LockTime) {
			return models.ErrMarketNotOpen
		}

		var sponsor models.User
		if err := tx.First(&sponsor, userID).Error; err != nil {
			return fmt.Errorf("failed to get sponsor: %w", err)
		}

		if err := transferToPot(&sponsor, &market, amount); err != nil {
			return err
		}
		market.SponsorshipCollected = market.SponsorshipCollected.Add(amount)

		if err := tx.Save(&sponsor).Error; err != nil {
			return fmt.Errorf("failed to debit sponsor: %w", err)
		}
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to save market: %w", err)
		}

		return recordTransaction(tx, userID, &marketID, nil, models.TransactionTypeSponsorship, amount, "sponsorship")
	})
}
