package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/service"
)

const defaultAnalyticsWindow = 30 * 24 * time.Hour

// HandleOrderAnalytics handles GET /v1/analytics/orders?start=&end=.
// Bounds accept RFC 3339 or a plain date; a plain end date covers that whole day.
// Without bounds the last 30 days are reported.
func HandleOrderAnalytics(analytics *service.AnalyticsService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		r := service.DateRange{Start: now.Add(-defaultAnalyticsWindow), End: now}

		if v := c.Query("start"); v != "" {
			start, _, err := parseBound(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
				return
			}
			r.Start = start
		}
		if v := c.Query("end"); v != "" {
			end, dateOnly, err := parseBound(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
				return
			}
			if dateOnly {
				end = end.Add(24*time.Hour - time.Nanosecond)
			}
			r.End = end
		}

		report, err := analytics.GetOrderAnalytics(c.Request.Context(), r)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func parseBound(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	return t, true, err
}
