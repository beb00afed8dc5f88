package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/ports"
)

type DashboardHandler struct {
	service ports.DashboardService
}

func NewDashboardHandler(service ports.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// StatusCounts returns the live number of issues per status.
//
// @Summary      Current status counts
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64
// @Failure      403  {object}  errorResponse
// @Router       /api/v1/dashboard/status_counts [get]
func (h *DashboardHandler) StatusCounts(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	counts, err := h.service.StatusCounts(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusCountsResponse(counts))
}

// Snapshots returns the persisted daily snapshots in a date range.
//
// @Summary      Daily snapshots
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "First date, YYYY-MM-DD"
// @Param        to    query     string  false  "Last date, YYYY-MM-DD"
// @Success      200   {array}   snapshotResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/dashboard/snapshots [get]
func (h *DashboardHandler) Snapshots(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}

	snaps, err := h.service.Snapshots(c.Request().Context(), actor, from, to)
	if err != nil {
		return err
	}
	resp := make([]snapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		resp = append(resp, toSnapshotResponse(s))
	}
	return c.JSON(http.StatusOK, resp)
}

// queryDate parses an optional YYYY-MM-DD parameter; absent yields zero.
func queryDate(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", domain.ErrValidation, name)
	}
	return t, nil
}
