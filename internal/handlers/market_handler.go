package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rental-market/internal/auth"
	"rental-market/internal/models"
	"rental-market/internal/repository"
	"rental-market/internal/services"
)

// MarketHandler handles market lifecycle endpoints
type MarketHandler struct {
	marketService *services.MarketService
	repo          *repository.Repository
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(marketService *services.MarketService, repo *repository.Repository) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
		repo:          repo,
	}
}

// CreateMarket creates a market with its card set
// POST /api/markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.marketService.CreateMarket(c.Request.Context(), userID, &req, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, market)
}

// GetMarkets lists markets, optionally by state
// GET /api/markets?state=OPEN
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	state := models.MarketState(c.Query("state"))

	markets, err := h.repo.ListMarkets(c.Request.Context(), state, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, markets)
}

// GetMarketByID returns a market with its cards
// GET /api/markets/:id
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	market, err := h.repo.GetMarketByID(c.Request.Context(), marketID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "market not found"})
		return
	}

	c.JSON(http.StatusOK, market)
}

// GetMarketPot returns the market's pot and collected totals
// GET /api/markets/:id/pot
func (h *MarketHandler) GetMarketPot(c *gin.Context) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	market, err := h.repo.GetMarketByID(c.Request.Context(), marketID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "market not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pot_balance":           market.PotBalance.String(),
		"total_rent_collected":  market.TotalRentCollected.String(),
		"sponsorship_collected": market.SponsorshipCollected.String(),
	})
}

// LockMarket transitions a market past its lock time into the Locked state
// POST /api/markets/:id/lock
func (h *MarketHandler) LockMarket(c *gin.Context) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	if err := h.marketService.Lock(c.Request.Context(), marketID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "locked"})
}

// ResolveMarket records the winning card reported by the resolution source
// POST /api/markets/:id/resolve
func (h *MarketHandler) ResolveMarket(c *gin.Context) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req models.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.marketService.Resolve(c.Request.Context(), marketID, req.WinningCardID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// CircuitBreaker breaks a market whose resolution never arrived
// POST /api/markets/:id/circuit-breaker
func (h *MarketHandler) CircuitBreaker(c *gin.Context) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	if err := h.marketService.CircuitBreaker(c.Request.Context(), marketID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "circuit broken"})
}

// Sponsor adds funds directly to the market pot
// POST /api/markets/:id/sponsor
func (h *MarketHandler) Sponsor(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req models.SponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	if err := h.marketService.Sponsor(c.Request.Context(), userID, marketID, amount, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(v), err
}
