package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"rental-market/internal/models"
	"rental-market/internal/utils"

	"github.com/shopspring/decimal"
)

// AuthService handles authentication business logic
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// ProcessWalletLogin finds or creates a user by wallet address
func (s *AuthService) ProcessWalletLogin(walletAddress string) (*models.User, error) {
	var user models.User

	result := s.db.Where("wallet_address = ?", walletAddress).First(&user)

	if result.Error == gorm.ErrRecordNotFound {
		// New user — create account
		nickname, err := utils.GenerateNickname()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nickname: %w", err)
		}

		user = models.User{
			WalletAddress: walletAddress,
			Nickname:      nickname,
			Balance:       decimal.Zero,
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	} else {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
