package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/ArowuTest/prizedraw-backend/internal/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatisticsHandler serves draw statistics
type StatisticsHandler struct {
	aggregator services.StatisticsAggregator
	location   *time.Location
}

// NewStatisticsHandler creates a new StatisticsHandler. Dates are read in loc.
func NewStatisticsHandler(aggregator services.StatisticsAggregator, loc *time.Location) *StatisticsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatisticsHandler{aggregator: aggregator, location: loc}
}

// Get handles GET /statistics?activityId=&from=&to=&top= (or dateRange=from,to)
func (h *StatisticsHandler) Get(c *gin.Context) {
	var q models.StatisticsQuery

	if s := c.Query("activityId"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			badRequest(c, "Invalid activity ID format")
			return
		}
		q.Filter.ActivityID = &id
	}

	from, to := c.Query("from"), c.Query("to")
	if dr := c.Query("dateRange"); dr != "" {
		from, to = utils.SplitDateRange(dr)
	}
	start, end, err := utils.ParseDateRange(from, to, h.location)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	q.Filter.From, q.Filter.To = start, end

	if s := c.Query("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			badRequest(c, "top must be a positive integer")
			return
		}
		q.TopN = n
	}

	stats, err := h.aggregator.Compute(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
