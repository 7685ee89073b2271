package jobs

import (
	"context"
	"log"
	"time"

	"rental-market/internal/repository"
	"rental-market/internal/services"
)

// RentCollector periodically settles rent on all open markets and locks the
// ones whose lock time has passed. Settlement is idempotent, so running it
// eagerly only tightens foreclosure timing.
type RentCollector struct {
	rentService   *services.RentService
	marketService *services.MarketService
	repo          *repository.Repository
	interval      time.Duration
	stopChan      chan struct{}
}

// NewRentCollector creates a new rent collector job
func NewRentCollector(rentService *services.RentService, marketService *services.MarketService, repo *repository.Repository, interval time.Duration) *RentCollector {
	return &RentCollector{
		rentService:   rentService,
		marketService: marketService,
		repo:          repo,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collection loop
func (rc *RentCollector) Start() {
	log.Printf("[RentCollector] Starting rent collection job (interval: %v)", rc.interval)

	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.collect()
		case <-rc.stopChan:
			log.Println("[RentCollector] Stopping rent collection job")
			return
		}
	}
}

// Stop stops the collection loop
func (rc *RentCollector) Stop() {
	close(rc.stopChan)
}

// collect settles every open market and locks the ones past their lock time
func (rc *RentCollector) collect() {
	ctx := context.Background()
	now := time.Now()

	markets, err := rc.repo.ListOpenMarkets(ctx)
	if err != nil {
		log.Printf("[RentCollector] Error listing open markets: %v", err)
		return
	}

	for _, market := range markets {
		if !now.Before(market.LockTime) {
			if err := rc.marketService.Lock(ctx, market.ID, now); err != nil {
				log.Printf("[RentCollector] Error locking market %d: %v", market.ID, err)
			}
			continue
		}

		if err := rc.rentService.SettleMarket(ctx, market.ID, now); err != nil {
			log.Printf("[RentCollector] Error settling market %d: %v", market.ID, err)
		}
	}
}
