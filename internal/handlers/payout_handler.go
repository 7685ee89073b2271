package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rental-market/internal/auth"
	"rental-market/internal/services"
)

// PayoutHandler handles fee cuts, winner withdrawals and card claims
type PayoutHandler struct {
	payoutService *services.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// PayArtist pays the artist cut
// POST /api/markets/:id/pay-artist
func (h *PayoutHandler) PayArtist(c *gin.Context) {
	h.payRole(c, h.payoutService.PayArtist)
}

// PayMarketCreator pays the creator cut
// POST /api/markets/:id/pay-creator
func (h *PayoutHandler) PayMarketCreator(c *gin.Context) {
	h.payRole(c, h.payoutService.PayMarketCreator)
}

// PayAffiliate pays the affiliate cut
// POST /api/markets/:id/pay-affiliate
func (h *PayoutHandler) PayAffiliate(c *gin.Context) {
	h.payRole(c, h.payoutService.PayAffiliate)
}

func (h *PayoutHandler) payRole(c *gin.Context, pay func(ctx context.Context, marketID uint) error) {
	marketID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	if err := pay(c.Request.Context(), marketID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

// PayCardAffiliate pays one card's affiliate cut
// POST /api/cards/:id/pay-affiliate
func (h *PayoutHandler) PayCardAffiliate(c *gin.Context) {
	cardID, err := parseUintParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	if err := h.payoutService.PayCardAffiliate(c.Request.Context(), cardID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

// Withdraw pays the caller their winner share or circuit-breaker refund
// POST /api/markets/:id/withdraw
func (h *PayoutHandler) Withdraw(c *gin.Context) {
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

	amount, err := h.payoutService.Withdraw(c.Request.Context(), userID, marketID, time.Now())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"amount": amount.String()})
}

// ClaimCard claims final title of a card after the circuit breaker
// POST /api/cards/:id/claim
func (h *PayoutHandler) ClaimCard(c *gin.Context) {
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

	if err := h.payoutService.ClaimCard(c.Request.Context(), userID, cardID, time.Now()); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "claimed"})
}
