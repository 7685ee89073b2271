package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rental-market/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// :memory: is unique per connection unless using cache=shared, so keep a
	// shared handle and wipe the tables for each test.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.Market{},
		&models.Card{},
		&models.MarketAccount{},
		&models.CardTime{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	for _, table := range []string{"card_times", "market_accounts", "transactions", "cards", "markets", "users"} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, wallet string, balance string) *models.User {
	user := models.User{
		WalletAddress: wallet,
		Nickname:      wallet,
		Balance:       decimal.RequireFromString(balance),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", wallet, err)
	}
	return &user
}

// createTestMarket builds a two-card classic market locking 28 days after
// base, with the given artist/creator cuts.
func createTestMarket(t *testing.T, db *gorm.DB, creatorID uint, base time.Time, artistCut, creatorCut string, artistID *uint) *models.Market {
	svc := NewMarketService(db, NewKeyedMutex(), 24*time.Hour)
	market, err := svc.CreateMarket(context.Background(), creatorID, &models.CreateMarketRequest{
		Title:      "test market",
		CardNames:  []string{"Outcome A", "Outcome B"},
		LockTime:   base.Add(28 * 24 * time.Hour).Unix(),
		ArtistCut:  artistCut,
		CreatorCut: creatorCut,
		ArtistID:   artistID,
	}, base)
	if err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	return market
}

func getCard(t *testing.T, db *gorm.DB, marketID uint, index uint) *models.Card {
	var card models.Card
	if err := db.Where("market_id = ? AND card_index = ?", marketID, index).First(&card).Error; err != nil {
		t.Fatalf("failed to get card %d of market %d: %v", index, marketID, err)
	}
	return &card
}

func getMarket(t *testing.T, db *gorm.DB, marketID uint) *models.Market {
	var market models.Market
	if err := db.First(&market, marketID).Error; err != nil {
		t.Fatalf("failed to get market %d: %v", marketID, err)
	}
	return &market
}

func getUser(t *testing.T, db *gorm.DB, userID uint) *models.User {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to get user %d: %v", userID, err)
	}
	return &user
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
