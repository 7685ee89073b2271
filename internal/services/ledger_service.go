package services

import (
	"context"
	"fmt"
	"time"

	"rental-market/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService is the balance store: each user's free deposit and each
// market's pot. Every movement leaves a transaction record. The rent and
// payout engines call the package-level helpers inside their own gorm
// transactions so balance effects commit atomically with card state.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Deposit credits a user's free balance.
func (s *LedgerService) Deposit(ctx context.Context, userID uint, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return models.ErrZeroAmount
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		user.Balance = user.Balance.Add(amount)
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		return recordTransaction(tx, userID, nil, nil, models.TransactionTypeDeposit, amount, "deposit")
	})
}

// Withdraw debits a user's free balance back to the outside world.
func (s *LedgerService) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return models.ErrZeroAmount
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		if user.Balance.LessThan(amount) {
			return models.ErrInsufficientBalance
		}

		user.Balance = user.Balance.Sub(amount)
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		return recordTransaction(tx, userID, nil, nil, models.TransactionTypeWithdrawal, amount, "withdrawal")
	})
}

// Balance returns a user's free balance.
func (s *LedgerService) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Balance, nil
}

// GetTransactions returns a user's transaction history, newest first.
func (s *LedgerService) GetTransactions(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return txs, nil
}

// transferToPot moves amount from the user's free balance into the market
// pot. Caller must have loaded user and market inside tx and saves them.
func transferToPot(user *models.User, market *models.Market, amount decimal.Decimal) error {
	if user.Balance.LessThan(amount) {
		return models.ErrInsufficientBalance
	}
	user.Balance = user.Balance.Sub(amount)
	market.PotBalance = market.PotBalance.Add(amount)
	return nil
}

// payFromPot moves amount from the market pot to a user's free balance and
// records the transaction. Guards the pot against overdraw.
func payFromPot(tx *gorm.DB, market *models.Market, userID uint, cardID *uint, amount decimal.Decimal, txType models.TransactionType, desc string) error {
	if market.PotBalance.LessThan(amount) {
		return models.ErrInsufficientPot
	}

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return fmt.Errorf("failed to get recipient: %w", err)
	}

	market.PotBalance = market.PotBalance.Sub(amount)
	user.Balance = user.Balance.Add(amount)

	if err := tx.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to credit recipient: %w", err)
	}

	return recordTransaction(tx, userID, &market.ID, cardID, txType, amount, desc)
}

// recordTransaction writes a ledger entry inside the given transaction.
func recordTransaction(tx *gorm.DB, userID uint, marketID, cardID *uint, txType models.TransactionType, amount decimal.Decimal, desc string) error {
	rec := models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		MarketID:    marketID,
		CardID:      cardID,
		Type:        txType,
		Amount:      amount,
		Description: desc,
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}
