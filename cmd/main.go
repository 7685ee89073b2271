package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rental-market/internal/auth"
	"rental-market/internal/blockchain"
	"rental-market/internal/config"
	"rental-market/internal/database"
	"rental-market/internal/handlers"
	"rental-market/internal/jobs"
	"rental-market/internal/repository"
	"rental-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()
	repo := repository.NewRepository(db)

	// All operations against one market are serialized through this lock.
	marketLocks := services.NewKeyedMutex()

	// Initialize Solana title registry
	solanaClient := blockchain.NewSolanaClient(
		cfg.Solana.Network,
		cfg.Solana.ServerPrivateKey,
	)
	titleRegistry := blockchain.NewTitleRegistry(solanaClient, cfg.Solana.TitleProgramID)

	// Initialize services
	authService := services.NewAuthService(db)
	ledgerService := services.NewLedgerService(db)
	rentService := services.NewRentService(db, marketLocks)
	bidService := services.NewBidService(db, marketLocks, cfg.Market.MinimumRaisePercent)
	marketService := services.NewMarketService(db, marketLocks, cfg.Market.CircuitBreakerDelay)
	payoutService := services.NewPayoutService(db, marketLocks, titleRegistry)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(ledgerService)
	marketHandler := handlers.NewMarketHandler(marketService, repo)
	rentalHandler := handlers.NewRentalHandler(bidService, rentService, repo)
	payoutHandler := handlers.NewPayoutHandler(payoutService)

	// Start rent collection job
	collector := jobs.NewRentCollector(rentService, marketService, repo, cfg.Market.RentCollectionInterval)
	go collector.Start()
	log.Println("Rent collection job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:id", marketHandler.GetMarketByID)
	router.GET("/api/markets/:id/pot", marketHandler.GetMarketPot)
	router.GET("/api/cards/:id", rentalHandler.GetCard)
	router.GET("/api/cards/:id/times", rentalHandler.GetCardTimes)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// User endpoints
		userRoutes := api.Group("/user")
		{
			userRoutes.GET("/balance", userHandler.GetBalance)
			userRoutes.POST("/deposit", userHandler.Deposit)
			userRoutes.POST("/withdraw", userHandler.WithdrawBalance)
			userRoutes.GET("/transactions", userHandler.GetTransactions)
		}

		// Market lifecycle endpoints
		api.POST("/markets", marketHandler.CreateMarket)
		api.POST("/markets/:id/lock", marketHandler.LockMarket)
		api.POST("/markets/:id/resolve", marketHandler.ResolveMarket)
		api.POST("/markets/:id/circuit-breaker", marketHandler.CircuitBreaker)
		api.POST("/markets/:id/sponsor", marketHandler.Sponsor)
		api.POST("/markets/:id/settle", rentalHandler.SettleMarket)

		// Rental endpoints
		api.POST("/cards/:id/bid", rentalHandler.PlaceBid)
		api.POST("/cards/:id/exit", rentalHandler.ExitCard)
		api.POST("/markets/:id/exit-all", rentalHandler.ExitAll)

		// Payout endpoints
		api.POST("/markets/:id/pay-artist", payoutHandler.PayArtist)
		api.POST("/markets/:id/pay-creator", payoutHandler.PayMarketCreator)
		api.POST("/markets/:id/pay-affiliate", payoutHandler.PayAffiliate)
		api.POST("/cards/:id/pay-affiliate", payoutHandler.PayCardAffiliate)
		api.POST("/markets/:id/withdraw", payoutHandler.Withdraw)
		api.POST("/cards/:id/claim", payoutHandler.ClaimCard)
	}

	// HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	collector.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
