package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rental-market/internal/models"
)

type fakeTitleRegistry struct {
	calls []string
	fail  bool
}

func (f *fakeTitleRegistry) TransferCardTitle(_ context.Context, marketID, cardIndex uint, wallet string) (string, error) {
	f.calls = append(f.calls, fmt.Sprintf("%d/%d/%s", marketID, cardIndex, wallet))
	if f.fail {
		return "", errors.New("rpc unavailable")
	}
	return "sig-abc123", nil
}

// Full lifecycle: three renters take turns on one card, the market locks,
// resolves, and the pot drains to exactly zero through fees and payouts.
//
// Card 0 timeline (28-day market, 6% artist and 4% creator cuts):
//
//	day 0-7    A at 3/day  -> 21
//	day 7-14   B at 6/day  -> 42 (B exits voluntarily)
//	day 14-28  C at 6/day  -> 84
//
// Total rent 147. Artist 8.82, creator 5.88, remainder 132.30 split
// 7:7:14 across held time -> 33.075 / 33.075 / 66.15.
func TestResolvedMarketDistribution(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-1", "0")
	artist := createTestUser(t, db, "pay-artist-1", "0")
	userA := createTestUser(t, db, "pay-a-1", "100")
	userB := createTestUser(t, db, "pay-b-1", "100")
	userC := createTestUser(t, db, "pay-c-1", "100")

	market := createTestMarket(t, db, creator.ID, testBase, "6", "4", &artist.ID)
	card := getCard(t, db, market.ID, 0)

	locks := NewKeyedMutex()
	bids := NewBidService(db, locks, 10)
	markets := NewMarketService(db, locks, 24*time.Hour)
	payouts := NewPayoutService(db, locks, nil)

	day := 24 * time.Hour
	if err := bids.PlaceBid(ctx, userA.ID, card.ID, mustDecimal("3"), 0, testBase); err != nil {
		t.Fatalf("A's bid failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, userB.ID, card.ID, mustDecimal("6"), 0, testBase.Add(7*day)); err != nil {
		t.Fatalf("B's bid failed: %v", err)
	}
	if err := bids.ExitCard(ctx, userB.ID, card.ID, testBase.Add(14*day)); err != nil {
		t.Fatalf("B's exit failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, userC.ID, card.ID, mustDecimal("6"), 0, testBase.Add(14*day)); err != nil {
		t.Fatalf("C's bid failed: %v", err)
	}

	// Nothing is withdrawable while the market is live.
	if _, err := payouts.Withdraw(ctx, userA.ID, market.ID, testBase.Add(20*day)); !errors.Is(err, models.ErrNotWithdrawable) {
		t.Errorf("expected ErrNotWithdrawable on open market, got %v", err)
	}
	if err := payouts.PayArtist(ctx, market.ID); !errors.Is(err, models.ErrNotWithdrawable) {
		t.Errorf("expected ErrNotWithdrawable for early artist cut, got %v", err)
	}

	if err := markets.Lock(ctx, market.ID, testBase.Add(28*day)); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := markets.Resolve(ctx, market.ID, card.ID, testBase.Add(28*day)); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	market = getMarket(t, db, market.ID)
	if !market.TotalRentCollected.Equal(mustDecimal("147")) {
		t.Fatalf("expected 147 total rent, got %s", market.TotalRentCollected)
	}

	// One-shot fee cuts.
	if err := payouts.PayArtist(ctx, market.ID); err != nil {
		t.Fatalf("PayArtist failed: %v", err)
	}
	if got := getUser(t, db, artist.ID).Balance; !got.Equal(mustDecimal("8.82")) {
		t.Errorf("expected artist paid 8.82, got %s", got)
	}
	if err := payouts.PayArtist(ctx, market.ID); !errors.Is(err, models.ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid on second artist payment, got %v", err)
	}
	if got := getUser(t, db, artist.ID).Balance; !got.Equal(mustDecimal("8.82")) {
		t.Errorf("artist balance changed by rejected payment: %s", got)
	}

	if err := payouts.PayMarketCreator(ctx, market.ID); err != nil {
		t.Fatalf("PayMarketCreator failed: %v", err)
	}
	if got := getUser(t, db, creator.ID).Balance; !got.Equal(mustDecimal("5.88")) {
		t.Errorf("expected creator paid 5.88, got %s", got)
	}

	// Time-weighted winner payouts.
	withdrawals := []struct {
		userID   uint
		expected string
		balance  string
	}{
		{userA.ID, "33.075", "112.075"}, // 100 - 21 rent + 33.075
		{userB.ID, "33.075", "91.075"},  // 100 - 42 rent + 33.075
		{userC.ID, "66.15", "82.15"},    // 100 - 84 rent + 66.15
	}
	for _, w := range withdrawals {
		amount, err := payouts.Withdraw(ctx, w.userID, market.ID, testBase.Add(29*day))
		if err != nil {
			t.Fatalf("Withdraw for user %d failed: %v", w.userID, err)
		}
		if !amount.Equal(mustDecimal(w.expected)) {
			t.Errorf("expected user %d to withdraw %s, got %s", w.userID, w.expected, amount)
		}
		if got := getUser(t, db, w.userID).Balance; !got.Equal(mustDecimal(w.balance)) {
			t.Errorf("expected user %d balance %s, got %s", w.userID, w.balance, got)
		}
	}

	if _, err := payouts.Withdraw(ctx, userA.ID, market.ID, testBase.Add(29*day)); !errors.Is(err, models.ErrAlreadyWithdrawn) {
		t.Errorf("expected ErrAlreadyWithdrawn on repeat, got %v", err)
	}
	// The creator never held the winning card.
	if _, err := payouts.Withdraw(ctx, creator.ID, market.ID, testBase.Add(29*day)); !errors.Is(err, models.ErrNotAWinner) {
		t.Errorf("expected ErrNotAWinner for non-holder, got %v", err)
	}

	// Every unit of rent is accounted for.
	market = getMarket(t, db, market.ID)
	if !market.PotBalance.IsZero() {
		t.Errorf("expected pot drained to zero, got %s", market.PotBalance)
	}
}

func TestWithdrawLosingCardHolder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-2", "0")
	winner := createTestUser(t, db, "pay-winner-2", "100")
	loser := createTestUser(t, db, "pay-loser-2", "100")
	market := createTestMarket(t, db, creator.ID, testBase, "", "", nil)
	cardA := getCard(t, db, market.ID, 0)
	cardB := getCard(t, db, market.ID, 1)

	locks := NewKeyedMutex()
	bids := NewBidService(db, locks, 10)
	markets := NewMarketService(db, locks, 24*time.Hour)
	payouts := NewPayoutService(db, locks, nil)

	if err := bids.PlaceBid(ctx, winner.ID, cardA.ID, mustDecimal("1"), 0, testBase); err != nil {
		t.Fatalf("winner's bid failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, loser.ID, cardB.ID, mustDecimal("1"), 0, testBase); err != nil {
		t.Fatalf("loser's bid failed: %v", err)
	}

	lockAt := testBase.Add(28 * 24 * time.Hour)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := markets.Resolve(ctx, market.ID, cardA.ID, lockAt); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Losing-card rent funds the winners.
	if _, err := payouts.Withdraw(ctx, loser.ID, market.ID, lockAt); !errors.Is(err, models.ErrNotAWinner) {
		t.Errorf("expected ErrNotAWinner for losing card holder, got %v", err)
	}
	amount, err := payouts.Withdraw(ctx, winner.ID, market.ID, lockAt)
	if err != nil {
		t.Fatalf("winner withdraw failed: %v", err)
	}
	if !amount.Equal(mustDecimal("56")) {
		t.Errorf("expected sole winner to take the full 56 pot, got %s", amount)
	}
}

func TestCircuitBreakerRefund(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-3", "0")
	renter := createTestUser(t, db, "pay-renter-3", "100")
	bystander := createTestUser(t, db, "pay-bystander-3", "100")
	market := createTestMarket(t, db, creator.ID, testBase, "", "", nil)
	card := getCard(t, db, market.ID, 0)

	locks := NewKeyedMutex()
	bids := NewBidService(db, locks, 10)
	markets := NewMarketService(db, locks, 24*time.Hour)
	payouts := NewPayoutService(db, locks, nil)

	if err := bids.PlaceBid(ctx, renter.ID, card.ID, mustDecimal("2"), 0, testBase); err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}

	lockAt := testBase.Add(28 * 24 * time.Hour)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	breakAt := lockAt.Add(25 * time.Hour)
	if err := markets.CircuitBreaker(ctx, market.ID, breakAt); err != nil {
		t.Fatalf("CircuitBreaker failed: %v", err)
	}

	amount, err := payouts.Withdraw(ctx, renter.ID, market.ID, breakAt)
	if err != nil {
		t.Fatalf("refund withdraw failed: %v", err)
	}
	if !amount.Equal(mustDecimal("56")) {
		t.Errorf("expected full 56 refund, got %s", amount)
	}
	if got := getUser(t, db, renter.ID).Balance; !got.Equal(mustDecimal("100")) {
		t.Errorf("expected renter made whole at 100, got %s", got)
	}

	if _, err := payouts.Withdraw(ctx, renter.ID, market.ID, breakAt); !errors.Is(err, models.ErrAlreadyWithdrawn) {
		t.Errorf("expected ErrAlreadyWithdrawn on repeat refund, got %v", err)
	}
	if _, err := payouts.Withdraw(ctx, bystander.ID, market.ID, breakAt); !errors.Is(err, models.ErrPaidNoRent) {
		t.Errorf("expected ErrPaidNoRent for bystander, got %v", err)
	}
}

func TestClaimCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-4", "0")
	holder := createTestUser(t, db, "pay-holder-4", "100")
	rival := createTestUser(t, db, "pay-rival-4", "100")
	market := createTestMarket(t, db, creator.ID, testBase, "", "", nil)
	card := getCard(t, db, market.ID, 0)

	locks := NewKeyedMutex()
	bids := NewBidService(db, locks, 10)
	markets := NewMarketService(db, locks, 24*time.Hour)
	registry := &fakeTitleRegistry{}
	payouts := NewPayoutService(db, locks, registry)

	day := 24 * time.Hour
	// holder keeps the card for 20 days, rival only the last 8.
	if err := bids.PlaceBid(ctx, holder.ID, card.ID, mustDecimal("1"), 0, testBase); err != nil {
		t.Fatalf("holder's bid failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, rival.ID, card.ID, mustDecimal("2"), 0, testBase.Add(20*day)); err != nil {
		t.Fatalf("rival's bid failed: %v", err)
	}

	lockAt := testBase.Add(28 * day)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Claims are gated on the circuit breaker.
	if err := payouts.ClaimCard(ctx, holder.ID, card.ID, lockAt); err == nil {
		t.Errorf("expected error claiming before circuit breaker")
	}

	breakAt := lockAt.Add(25 * time.Hour)
	if err := markets.CircuitBreaker(ctx, market.ID, breakAt); err != nil {
		t.Fatalf("CircuitBreaker failed: %v", err)
	}

	if err := payouts.ClaimCard(ctx, rival.ID, card.ID, breakAt); !errors.Is(err, models.ErrNotLongestOwner) {
		t.Errorf("expected ErrNotLongestOwner for rival, got %v", err)
	}
	if err := payouts.ClaimCard(ctx, holder.ID, card.ID, breakAt); err != nil {
		t.Fatalf("ClaimCard failed: %v", err)
	}
	if err := payouts.ClaimCard(ctx, holder.ID, card.ID, breakAt); !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed on repeat, got %v", err)
	}

	card = getCard(t, db, market.ID, 0)
	if !card.Claimed || card.ClaimedByID == nil || *card.ClaimedByID != holder.ID {
		t.Errorf("expected card claimed by holder")
	}
	if card.ClaimTxHash == nil || *card.ClaimTxHash != "sig-abc123" {
		t.Errorf("expected claim tx hash recorded, got %v", card.ClaimTxHash)
	}
	if len(registry.calls) != 1 {
		t.Errorf("expected one title transfer, got %d", len(registry.calls))
	}
}

func TestClaimCardSurvivesRegistryFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-5", "0")
	holder := createTestUser(t, db, "pay-holder-5", "100")
	market := createTestMarket(t, db, creator.ID, testBase, "", "", nil)
	card := getCard(t, db, market.ID, 0)

	locks := NewKeyedMutex()
	bids := NewBidService(db, locks, 10)
	markets := NewMarketService(db, locks, 24*time.Hour)
	payouts := NewPayoutService(db, locks, &fakeTitleRegistry{fail: true})

	if err := bids.PlaceBid(ctx, holder.ID, card.ID, mustDecimal("1"), 0, testBase); err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}
	lockAt := testBase.Add(28 * 24 * time.Hour)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	breakAt := lockAt.Add(25 * time.Hour)
	if err := markets.CircuitBreaker(ctx, market.ID, breakAt); err != nil {
		t.Fatalf("CircuitBreaker failed: %v", err)
	}

	// The chain transfer failing must not surface or reopen the claim.
	if err := payouts.ClaimCard(ctx, holder.ID, card.ID, breakAt); err != nil {
		t.Fatalf("ClaimCard failed: %v", err)
	}

	card = getCard(t, db, market.ID, 0)
	if !card.Claimed {
		t.Errorf("expected claim committed despite registry failure")
	}
	if card.ClaimTxHash != nil {
		t.Errorf("expected no tx hash after failed transfer, got %v", card.ClaimTxHash)
	}
}

func TestSponsorshipWidensPotWithoutTime(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-6", "0")
	sponsor := createTestUser(t, db, "pay-sponsor-6", "500")
	renter := createTestUser(t, db, "pay-renter-6", "100")
	market := createTestMarket(t, db, creator.ID, testBase, "", "", nil)
	card := getCard(t, db, market.ID, 0)

	locks := NewKeyedMutex()
	bids := NewBidService(db, locks, 10)
	markets := NewMarketService(db, locks, 24*time.Hour)
	payouts := NewPayoutService(db, locks, nil)

	if err := markets.Sponsor(ctx, sponsor.ID, market.ID, mustDecimal("300"), testBase); err != nil {
		t.Fatalf("Sponsor failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, renter.ID, card.ID, mustDecimal("1"), 0, testBase); err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}

	lockAt := testBase.Add(28 * 24 * time.Hour)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := markets.Resolve(ctx, market.ID, card.ID, lockAt); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// 28 rent + 300 sponsorship, all of it to the sole holder.
	amount, err := payouts.Withdraw(ctx, renter.ID, market.ID, lockAt)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !amount.Equal(mustDecimal("328")) {
		t.Errorf("expected 328 payout, got %s", amount)
	}

	// Sponsoring bought no held time, so the sponsor has no claim.
	if _, err := payouts.Withdraw(ctx, sponsor.ID, market.ID, lockAt); !errors.Is(err, models.ErrNotAWinner) {
		t.Errorf("expected ErrNotAWinner for sponsor, got %v", err)
	}

	var sponsorTime int64
	db.Model(&models.CardTime{}).Where("user_id = ?", sponsor.ID).Count(&sponsorTime)
	if sponsorTime != 0 {
		t.Errorf("sponsorship created card time rows: %d", sponsorTime)
	}
}

func TestSafeModeRefundsWinningCardRent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-7", "0")
	userA := createTestUser(t, db, "pay-a-7", "100")
	userB := createTestUser(t, db, "pay-b-7", "100")

	locks := NewKeyedMutex()
	markets := NewMarketService(db, locks, 24*time.Hour)
	bids := NewBidService(db, locks, 10)
	payouts := NewPayoutService(db, locks, nil)

	market, err := markets.CreateMarket(ctx, creator.ID, &models.CreateMarketRequest{
		Title:     "safe market",
		CardNames: []string{"A", "B"},
		LockTime:  testBase.Add(14 * 24 * time.Hour).Unix(),
		Mode:      string(models.MarketModeSafe),
	}, testBase)
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	cardA := getCard(t, db, market.ID, 0)
	cardB := getCard(t, db, market.ID, 1)

	if err := bids.PlaceBid(ctx, userA.ID, cardA.ID, mustDecimal("2"), 0, testBase); err != nil {
		t.Fatalf("A's bid failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, userB.ID, cardB.ID, mustDecimal("4"), 0, testBase); err != nil {
		t.Fatalf("B's bid failed: %v", err)
	}

	lockAt := testBase.Add(14 * 24 * time.Hour)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := markets.Resolve(ctx, market.ID, cardA.ID, lockAt); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// A paid 28 on the winning card, B 56 on the loser. A gets the 28 back
	// first, then the remaining 56 time-weighted (all of it, being the sole
	// holder): 84 total.
	amount, err := payouts.Withdraw(ctx, userA.ID, market.ID, lockAt)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !amount.Equal(mustDecimal("84")) {
		t.Errorf("expected 84 payout in safe mode, got %s", amount)
	}

	market = getMarket(t, db, market.ID)
	if !market.PotBalance.IsZero() {
		t.Errorf("expected pot drained, got %s", market.PotBalance)
	}
}

func TestWinnerBonusGoesToLongestHolder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-8", "0")
	early := createTestUser(t, db, "pay-early-8", "100")
	late := createTestUser(t, db, "pay-late-8", "100")

	locks := NewKeyedMutex()
	markets := NewMarketService(db, locks, 24*time.Hour)
	bids := NewBidService(db, locks, 10)
	payouts := NewPayoutService(db, locks, nil)

	day := 24 * time.Hour
	market, err := markets.CreateMarket(ctx, creator.ID, &models.CreateMarketRequest{
		Title:     "bonus market",
		CardNames: []string{"A", "B"},
		LockTime:  testBase.Add(10 * day).Unix(),
		WinnerCut: "10",
	}, testBase)
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	card := getCard(t, db, market.ID, 0)

	// early holds 6 days at 5/day (30), late holds 4 days at 10/day (40).
	if err := bids.PlaceBid(ctx, early.ID, card.ID, mustDecimal("5"), 0, testBase); err != nil {
		t.Fatalf("early's bid failed: %v", err)
	}
	if err := bids.PlaceBid(ctx, late.ID, card.ID, mustDecimal("10"), 0, testBase.Add(6*day)); err != nil {
		t.Fatalf("late's bid failed: %v", err)
	}

	lockAt := testBase.Add(10 * day)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := markets.Resolve(ctx, market.ID, card.ID, lockAt); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Total 70, winner bonus 7, distributable 63 split 6:4.
	amount, err := payouts.Withdraw(ctx, early.ID, market.ID, lockAt)
	if err != nil {
		t.Fatalf("early's withdraw failed: %v", err)
	}
	if !amount.Equal(mustDecimal("37.8").Add(mustDecimal("7"))) {
		t.Errorf("expected longest holder to get 44.8 including the bonus, got %s", amount)
	}

	amount, err = payouts.Withdraw(ctx, late.ID, market.ID, lockAt)
	if err != nil {
		t.Fatalf("late's withdraw failed: %v", err)
	}
	if !amount.Equal(mustDecimal("25.2")) {
		t.Errorf("expected 25.2 without the bonus, got %s", amount)
	}
}

func TestCardAffiliateCut(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, db, "pay-creator-9", "0")
	renter := createTestUser(t, db, "pay-renter-9", "100")

	locks := NewKeyedMutex()
	markets := NewMarketService(db, locks, 24*time.Hour)
	bids := NewBidService(db, locks, 10)
	payouts := NewPayoutService(db, locks, nil)

	market, err := markets.CreateMarket(ctx, creator.ID, &models.CreateMarketRequest{
		Title:                "affiliate market",
		CardNames:            []string{"A", "B"},
		LockTime:             testBase.Add(10 * 24 * time.Hour).Unix(),
		CardAffiliateCut:     "5",
		CardAffiliateWallets: []string{"affiliate-wallet-9", ""},
	}, testBase)
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}
	card := getCard(t, db, market.ID, 0)

	if err := bids.PlaceBid(ctx, renter.ID, card.ID, mustDecimal("10"), 0, testBase); err != nil {
		t.Fatalf("PlaceBid failed: %v", err)
	}

	lockAt := testBase.Add(10 * 24 * time.Hour)
	if err := markets.Lock(ctx, market.ID, lockAt); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := markets.Resolve(ctx, market.ID, card.ID, lockAt); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// 5% of the card's own 100 rent; the account is created on the fly for
	// the off-platform wallet.
	if err := payouts.PayCardAffiliate(ctx, card.ID); err != nil {
		t.Fatalf("PayCardAffiliate failed: %v", err)
	}

	var affiliate models.User
	if err := db.Where("wallet_address = ?", "affiliate-wallet-9").First(&affiliate).Error; err != nil {
		t.Fatalf("affiliate account not created: %v", err)
	}
	if !affiliate.Balance.Equal(mustDecimal("5")) {
		t.Errorf("expected affiliate paid 5, got %s", affiliate.Balance)
	}

	if err := payouts.PayCardAffiliate(ctx, card.ID); !errors.Is(err, models.ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid on repeat, got %v", err)
	}

	// The second card has no affiliate configured.
	cardB := getCard(t, db, market.ID, 1)
	if err := payouts.PayCardAffiliate(ctx, cardB.ID); err == nil {
		t.Errorf("expected error for card without affiliate")
	}
}
