package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ArowuTest/prizedraw-backend/internal/middleware"
	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DrawHandler handles draw-related HTTP requests
type DrawHandler struct {
	drawService   services.DrawService
	recordService *services.RecordService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(drawService services.DrawService, recordService *services.RecordService) *DrawHandler {
	return &DrawHandler{
		drawService:   drawService,
		recordService: recordService,
	}
}

// DrawRequest is the body of POST /draw
type DrawRequest struct {
	ActivityID string `json:"activityId" binding:"required"`
}

// Draw handles POST /draw
func (h *DrawHandler) Draw(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "UNAUTHORIZED"})
		return
	}

	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(req.ActivityID)
	if err != nil {
		badRequest(c, "Invalid activity ID format")
		return
	}

	record, err := h.drawService.RequestDraw(c.Request.Context(), userID, activityID)
	if err != nil {
		if errors.Is(err, services.ErrReconciliationPending) && record != nil {
			_ = c.Error(err)
			c.JSON(http.StatusAccepted, gin.H{
				"error":    "Draw accepted but not yet recorded",
				"code":     "RECONCILIATION_PENDING",
				"recordId": record.ID.Hex(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListMine handles GET /draws/me
func (h *DrawHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "UNAUTHORIZED"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > 100 {
		limit = 100
	}

	records, err := h.recordService.ListMine(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "page": page, "limit": limit})
}
