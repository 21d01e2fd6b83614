package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/ArowuTest/prizedraw-backend/internal/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler handles activity administration and record fulfillment
type AdminHandler struct {
	activityService *services.ActivityService
	recordService   *services.RecordService
	reconciler      services.ReconciliationSweeper
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(activityService *services.ActivityService, recordService *services.RecordService, reconciler services.ReconciliationSweeper) *AdminHandler {
	return &AdminHandler{
		activityService: activityService,
		recordService:   recordService,
		reconciler:      reconciler,
	}
}

// CreateActivity handles POST /admin/activities
func (h *AdminHandler) CreateActivity(c *gin.Context) {
	var req models.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	activity, err := h.activityService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

// UpdateActivity handles PUT /admin/activities/:id
func (h *AdminHandler) UpdateActivity(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid ID format")
		return
	}
	var req models.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	activity, err := h.activityService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

// ImportPrizes handles POST /admin/activities/:id/prizes/import.
// The CSV comes either as multipart field "file" or as the raw request body.
func (h *AdminHandler) ImportPrizes(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid ID format")
		return
	}

	var src io.Reader = c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "Failed to open uploaded file")
			return
		}
		defer f.Close()
		src = f
	}

	result, err := utils.ParsePrizeCSV(src)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(result.Prizes) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No valid prize rows", "code": "INVALID_ACTIVITY", "rowErrors": result.Errors})
		return
	}

	activity, err := h.activityService.AppendPrizes(c.Request.Context(), id, result.Prizes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activity":  activity,
		"totalRows": result.TotalRows,
		"imported":  len(result.Prizes),
		"rowErrors": result.Errors,
	})
}

// UpdateRecordStatus handles PATCH /admin/draw-records/:id/status
func (h *AdminHandler) UpdateRecordStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid ID format")
		return
	}
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	record, err := h.recordService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListReconciliations handles GET /admin/reconciliations?status=pending
func (h *AdminHandler) ListReconciliations(c *gin.Context) {
	status := models.ReconciliationStatus(c.DefaultQuery("status", string(models.ReconciliationPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.reconciler.List(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// SweepReconciliations handles POST /admin/reconciliations/sweep
func (h *AdminHandler) SweepReconciliations(c *gin.Context) {
	result, err := h.reconciler.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
