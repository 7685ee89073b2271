package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rental-market/internal/auth"
	"rental-market/internal/models"
	"rental-market/internal/repository"
	"rental-market/internal/services"
)

// RentalHandler handles bidding, rent settlement and card reads
type RentalHandler struct {
	bidService  *services.BidService
	rentService *services.RentService
	repo        *repository.Repository
}

// NewRentalHandler creates a new RentalHandler
func NewRentalHandler(bidService *services.BidService, rentService *services.RentService, repo *repository.Repository) *RentalHandler {
	return &RentalHandler{
		bidService:  bidService,
		rentService: rentService,
		repo:        repo,
	}
}

// PlaceBid rents a card at a new price
// POST /api/cards/:id/bid
func (h *RentalHandler) PlaceBid(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cardID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	var req models.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	timeLimit := time.Duration(req.TimeLimitSeconds) * time.Second
	if err := h.bidService.PlaceBid(c.Request.Context(), userID, cardID, price, timeLimit, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ExitCard voluntarily forecloses one rented card
// POST /api/cards/:id/exit
func (h *RentalHandler) ExitCard(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cardID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	if err := h.bidService.ExitCard(c.Request.Context(), userID, cardID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ExitAll forecloses every card the user rents in a market
// POST /api/markets/:id/exit-all
func (h *RentalHandler) ExitAll(c *gin.Context) {
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

	if err := h.bidService.ExitAll(c.Request.Context(), userID, marketID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SettleMarket settles rent on every card of a market
// POST /api/markets/:id/settle
func (h *RentalHandler) SettleMarket(c *gin.Context) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	if err := h.rentService.SettleMarket(c.Request.Context(), marketID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetCard returns one card's current state
// GET /api/cards/:id
func (h *RentalHandler) GetCard(c *gin.Context) {
	cardID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	card, err := h.repo.GetCardByID(c.Request.Context(), cardID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	c.JSON(http.StatusOK, card.ToResponse())
}

// GetCardTimes returns the time-held ledger for a card
// GET /api/cards/:id/times
func (h *RentalHandler) GetCardTimes(c *gin.Context) {
	cardID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	times, err := h.repo.GetCardTimes(c.Request.Context(), cardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, times)
}
