package v1

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/cartsync/server/internal/errors"
)

// MetricsOverviewResponse represents the overview response of API metrics.
type MetricsOverviewResponse struct {
	TotalRequests int64               `json:"total_requests"`
	SuccessRate   float64             `json:"success_rate"`
	AvgLatencyMs  int64               `json:"avg_latency_ms"`
	P50LatencyMs  int64               `json:"p50_latency_ms"`
	P95LatencyMs  int64               `json:"p95_latency_ms"`
	ErrorCount    int64               `json:"error_count"`
	Operations    []OperationOverview `json:"operations"`
}

// OperationOverview holds the metrics of one route.
type OperationOverview struct {
	Operation    string `json:"operation"`
	Requests     int64  `json:"requests"`
	Errors       int64  `json:"errors"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

// GetMetricsOverview returns the request metrics since process start.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return s.writeError(c, apierrors.InvalidArgument("invalid top parameter"))
		}
		limit = n
	}

	snap := s.Metrics.Snapshot()
	resp := MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		AvgLatencyMs:  snap.AverageDuration(),
		P50LatencyMs:  snap.P50.Milliseconds(),
		P95LatencyMs:  snap.P95.Milliseconds(),
		ErrorCount:    snap.RequestFailed,
		Operations:    make([]OperationOverview, 0, len(snap.Operations)),
	}
	for name, op := range snap.Operations {
		resp.Operations = append(resp.Operations, OperationOverview{
			Operation:    name,
			Requests:     op.ExecutionCount,
			Errors:       op.ErrorCount,
			AvgLatencyMs: op.AverageDuration,
		})
	}
	sort.Slice(resp.Operations, func(i, j int) bool {
		if resp.Operations[i].Requests != resp.Operations[j].Requests {
			return resp.Operations[i].Requests > resp.Operations[j].Requests
		}
		return resp.Operations[i].Operation < resp.Operations[j].Operation
	})
	if limit > 0 && len(resp.Operations) > limit {
		resp.Operations = resp.Operations[:limit]
	}
	return c.JSON(http.StatusOK, resp)
}
