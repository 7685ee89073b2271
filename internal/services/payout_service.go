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

// TitleRegistry records the final card title transfer for the circuit-breaker
// claim path. Implemented by the Solana title registry client.
type TitleRegistry interface {
	TransferCardTitle(ctx context.Context, marketID, cardIndex uint, recipientWallet string) (string, error)
}

// PayoutService distributes the pot once a market is Resolved or
// CircuitBroken: the one-shot artist/creator/affiliate/card-affiliate cuts,
// the time-weighted winner payouts, circuit-breaker refunds, and the
// longest-owner card claim.
type PayoutService struct {
	db     *gorm.DB
	locks  *KeyedMutex
	titles TitleRegistry
}

// NewPayoutService creates a new PayoutService. titles may be nil, in which
// case claims are recorded off-chain only.
func NewPayoutService(db *gorm.DB, locks *KeyedMutex, titles TitleRegistry) *PayoutService {
	return &PayoutService{db: db, locks: locks, titles: titles}
}

// PayArtist pays the artist cut. One shot.
func (s *PayoutService) PayArtist(ctx context.Context, marketID uint) error {
	return s.payRoleCut(ctx, marketID, "artist", models.FeePaidArtist,
		func(m *models.Market) (*uint, decimal.Decimal) { return m.ArtistID, m.ArtistCut })
}

// PayMarketCreator pays the creator cut. One shot.
func (s *PayoutService) PayMarketCreator(ctx context.Context, marketID uint) error {
	return s.payRoleCut(ctx, marketID, "creator", models.FeePaidCreator,
		func(m *models.Market) (*uint, decimal.Decimal) { return m.CreatorID, m.CreatorCut })
}

// PayAffiliate pays the affiliate cut. One shot.
func (s *PayoutService) PayAffiliate(ctx context.Context, marketID uint) error {
	return s.payRoleCut(ctx, marketID, "affiliate", models.FeePaidAffiliate,
		func(m *models.Market) (*uint, decimal.Decimal) { return m.AffiliateID, m.AffiliateCut })
}

func (s *PayoutService) payRoleCut(ctx context.Context, marketID uint, role string, flag uint8, pick func(*models.Market) (*uint, decimal.Decimal)) error {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if !market.Withdrawable() {
			return models.ErrNotWithdrawable
		}
		if market.FeePaid(flag) {
			return models.ErrAlreadyPaid
		}

		recipientID, cut := pick(&market)
		if recipientID == nil || !cut.IsPositive() {
			return fmt.Errorf("no %s cut configured for market %d", role, marketID)
		}

		amount := percentOf(cut, market.TotalCollected())
		if err := payFromPot(tx, &market, *recipientID, nil, amount, models.TransactionTypeFee, role+" cut"); err != nil {
			return err
		}

		market.FeesPaid |= flag
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to save market: %w", err)
		}

		log.Printf("Market %d: %s cut %s paid to user %d", marketID, role, amount.String(), *recipientID)
		return nil
	})
}

// PayCardAffiliate pays the card affiliate their percentage of that card's
// own rent. One shot per card.
func (s *PayoutService) PayCardAffiliate(ctx context.Context, cardID uint) error {
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

		if !market.Withdrawable() {
			return models.ErrNotWithdrawable
		}
		if card.CardAffiliatePaid {
			return models.ErrAlreadyPaid
		}
		if card.CardAffiliateWallet == nil || !market.CardAffiliateCut.IsPositive() {
			return fmt.Errorf("no card affiliate configured for card %d", cardID)
		}

		recipient, err := getOrCreateUserByWallet(tx, *card.CardAffiliateWallet)
		if err != nil {
			return err
		}

		amount := percentOf(market.CardAffiliateCut, card.RentCollected)
		if err := payFromPot(tx, &market, recipient.ID, &card.ID, amount, models.TransactionTypeFee, "card affiliate cut"); err != nil {
			return err
		}

		card.CardAffiliatePaid = true
		if err := tx.Save(&card).Error; err != nil {
			return fmt.Errorf("failed to save card: %w", err)
		}
		if err := tx.Save(&market).Error; err != nil {
			return fmt.Errorf("failed to save market: %w", err)
		}

		log.Printf("Card %d: affiliate cut %s paid to %s", cardID, amount.String(), *card.CardAffiliateWallet)
		return nil
	})
}

// Withdraw pays the caller their share of the pot: the time-weighted winner
// payout when the market resolved, or a refund of everything they paid in
// when the circuit breaker fired. One shot per user per market.
func (s *PayoutService) Withdraw(ctx context.Context, userID, marketID uint, now time.Time) (decimal.Decimal, error) {
	s.locks.Lock(marketID)
	defer s.locks.Unlock(marketID)

	var paid decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var market models.Market
		if err := tx.First(&market, marketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if !market.Withdrawable() {
			return models.ErrNotWithdrawable
		}

		var account models.MarketAccount
		err := tx.Where("market_id = ? AND user_id = ?", marketID, userID).First(&account).Error
		if err == gorm.ErrRecordNotFound {
			if market.State == models.MarketStateCircuitBroken {
				return models.ErrPaidNoRent
			}
			return models.ErrNotAWinner
		}
		if err != nil {
			return fmt.Errorf("failed to get market account: %w", err)
		}

		if account.Withdrawn {
			return models.ErrAlreadyWithdrawn
		}

		var amount decimal.Decimal
		var txType models.TransactionType
		var desc string

		if market.State == models.MarketStateCircuitBroken {
			// No winner could be determined: refund whatever they paid in.
			if !account.TotalRentPaid.IsPositive() {
				return models.ErrPaidNoRent
			}
			amount = account.TotalRentPaid
			txType = models.TransactionTypeRefund
			desc = "circuit breaker refund"
		} else {
			amount, err = s.winnerShare(tx, &market, userID)
			if err != nil {
				return err
			}
			txType = models.TransactionTypePayout
			desc = "winner payout"
		}

		if amount.IsPositive() {
			if err := payFromPot(tx, &market, userID, nil, amount, txType, desc); err != nil {
				return err
			}
			if err := tx.Save(&market).Error; err != nil {
				return fmt.Errorf("failed to save market: %w", err)
			}
		}

		account.Withdrawn = true
		account.WithdrawnAt = &now
		if err := tx.Save(&account).Error; err != nil {
			return fmt.Errorf("failed to save market account: %w", err)
		}

		paid = amount
		log.Printf("Market %d: user %d withdrew %s (%s)", marketID, userID, amount.String(), desc)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

// winnerShare computes the caller's payout for a resolved market.
func (s *PayoutService) winnerShare(tx *gorm.DB, market *models.Market, userID uint) (decimal.Decimal, error) {
	if market.WinningCardID == nil {
		return decimal.Zero, fmt.Errorf("market %d has no winning card", market.ID)
	}

	var winningCard models.Card
	if err := tx.First(&winningCard, *market.WinningCardID).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to get winning card: %w", err)
	}

	var held models.CardTime
	err := tx.Where("card_id = ? AND user_id = ?", winningCard.ID, userID).First(&held).Error
	if err == gorm.ErrRecordNotFound || (err == nil && held.SecondsHeld == 0) {
		return decimal.Zero, models.ErrNotAWinner
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get held time: %w", err)
	}

	var totalSeconds int64
	if err := tx.Model(&models.CardTime{}).
		Where("card_id = ?", winningCard.ID).
		Select("COALESCE(SUM(seconds_held), 0)").
		Scan(&totalSeconds).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum held time: %w", err)
	}
	if totalSeconds <= 0 {
		return decimal.Zero, models.ErrNotAWinner
	}

	remaining, err := s.remainingPot(tx, market)
	if err != nil {
		return decimal.Zero, err
	}

	var share decimal.Decimal
	if market.Mode == models.MarketModeSafe {
		// Safe mode: winning-card rent comes back first, then the remainder
		// splits time-weighted across the same holders.
		var totalRefund decimal.Decimal
		if err := tx.Model(&models.CardTime{}).
			Where("card_id = ?", winningCard.ID).
			Select("COALESCE(SUM(rent_paid), 0)").
			Scan(&totalRefund).Error; err != nil {
			return decimal.Zero, fmt.Errorf("failed to sum winning card rent: %w", err)
		}

		distributable := remaining.Sub(totalRefund)
		if distributable.IsNegative() {
			distributable = decimal.Zero
		}
		share = held.RentPaid.Add(timeWeighted(distributable, held.SecondsHeld, totalSeconds))
	} else {
		share = timeWeighted(remaining, held.SecondsHeld, totalSeconds)
	}

	// The reserved winner bonus goes to the winning card's longest holder.
	if market.WinnerCut.IsPositive() && winningCard.LongestOwnerID != nil && *winningCard.LongestOwnerID == userID {
		share = share.Add(percentOf(market.WinnerCut, market.TotalCollected()))
	}

	return share, nil
}

// timeWeighted returns pot × seconds/totalSeconds, truncated.
func timeWeighted(pot decimal.Decimal, seconds, totalSeconds int64) decimal.Decimal {
	return pot.
		Mul(decimal.NewFromInt(seconds)).
		Div(decimal.NewFromInt(totalSeconds)).
		Truncate(moneyScale)
}

// remainingPot is the collected total minus every configured cut, whether or
// not the cut has been claimed yet.
func (s *PayoutService) remainingPot(tx *gorm.DB, market *models.Market) (decimal.Decimal, error) {
	total := market.TotalCollected()
	remaining := total

	if market.ArtistID != nil && market.ArtistCut.IsPositive() {
		remaining = remaining.Sub(percentOf(market.ArtistCut, total))
	}
	if market.CreatorID != nil && market.CreatorCut.IsPositive() {
		remaining = remaining.Sub(percentOf(market.CreatorCut, total))
	}
	if market.AffiliateID != nil && market.AffiliateCut.IsPositive() {
		remaining = remaining.Sub(percentOf(market.AffiliateCut, total))
	}
	if market.WinnerCut.IsPositive() {
		remaining = remaining.Sub(percentOf(market.WinnerCut, total))
	}

	if market.CardAffiliateCut.IsPositive() {
		var cards []models.Card
		if err := tx.Where("market_id = ? AND card_affiliate_wallet IS NOT NULL", market.ID).Find(&cards).Error; err != nil {
			return decimal.Zero, fmt.Errorf("failed to get affiliate cards: %w", err)
		}
		for _, card := range cards {
			remaining = remaining.Sub(percentOf(market.CardAffiliateCut, card.RentCollected))
		}
	}

	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return remaining, nil
}

// ClaimCard awards final title of a card to its longest holder. Only legal
// after the circuit breaker fired; the on-chain transfer is best effort.
func (s *PayoutService) ClaimCard(ctx context.Context, userID, cardID uint, now time.Time) error {
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

	var card models.Card
	var claimantWallet string

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&card, cardID).Error; err != nil {
			return fmt.Errorf("failed to get card: %w", err)
		}

		var market models.Market
		if err := tx.First(&market, card.MarketID).Error; err != nil {
			return fmt.Errorf("failed to get market: %w", err)
		}

		if market.State != models.MarketStateCircuitBroken {
			return fmt.Errorf("card claims are only available after the circuit breaker")
		}
		if card.Claimed {
			return models.ErrAlreadyClaimed
		}
		if card.LongestOwnerID == nil || *card.LongestOwnerID != userID {
			return models.ErrNotLongestOwner
		}

		var claimant models.User
		if err := tx.First(&claimant, userID).Error; err != nil {
			return fmt.Errorf("failed to get claimant: %w", err)
		}
		claimantWallet = claimant.WalletAddress

		card.Claimed = true
		card.ClaimedByID = &userID
		card.ClaimedAt = &now
		return tx.Save(&card).Error
	})
	if err != nil {
		return err
	}

	// Balance effects are committed before any external call; a failed chain
	// transfer never reopens the claim.
	if s.titles != nil {
		txHash, err := s.titles.TransferCardTitle(ctx, card.MarketID, card.Index, claimantWallet)
		if err != nil {
			log.Printf("Warning: title transfer for card %d failed: %v", cardID, err)
			return nil
		}
		if err := s.db.WithContext(ctx).
			Model(&models.Card{}).
			Where("id = ?", cardID).
			Update("claim_tx_hash", txHash).Error; err != nil {
			log.Printf("Warning: failed to record claim tx for card %d: %v", cardID, err)
		}
	}
	return nil
}

// getOrCreateUserByWallet looks a user up by wallet, creating a bare account
// so an off-platform affiliate can be credited.
func getOrCreateUserByWallet(tx *gorm.DB, wallet string) (*models.User, error) {
	var user models.User
	err := tx.Where("wallet_address = ?", wallet).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{WalletAddress: wallet, Balance: decimal.Zero}
		if err := tx.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user for wallet %s: %w", wallet, err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by wallet: %w", err)
	}
	return &user, nil
}
