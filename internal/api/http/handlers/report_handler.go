package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-warehouse/internal/api/dto"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	"github.com/spec-kit/ticket-warehouse/internal/service"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// ReportHandler serves the warehouse reporting endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{service: reportService}
}

// Filters GET /reports/filters.
func (h *ReportHandler) Filters(c *fiber.Ctx) error {
	opts, err := h.service.FilterOptions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFilterOptionsResponse(opts)})
}

// Tickets GET /reports/tickets?year=&month=&party=&status=.
func (h *ReportHandler) Tickets(c *fiber.Ctx) error {
	filter, err := parseReportFilter(c)
	if err != nil {
		return err
	}
	rows, err := h.service.Tickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketReportRows(rows)})
}

func parseReportFilter(c *fiber.Ctx) (repository.ReportFilter, error) {
	var filter repository.ReportFilter
	var err error

	if filter.Year, err = optionalInt(c, "year"); err != nil {
		return filter, err
	}
	if filter.Month, err = optionalInt(c, "month"); err != nil {
		return filter, err
	}
	filter.Parties = multiQuery(c, "party", false)
	filter.Statuses = multiQuery(c, "status", true)
	filter.Limit = parseInt(c.Query("limit"), 0)
	filter.Offset = parseInt(c.Query("offset"), 0)
	return filter, nil
}

func optionalInt(c *fiber.Ctx, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be an integer", map[string]any{key: raw})
	}
	return &val, nil
}

// multiQuery collects a repeatable query parameter, optionally also splitting on commas.
func multiQuery(c *fiber.Ctx, key string, splitCommas bool) []string {
	var values []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		parts := []string{string(raw)}
		if splitCommas {
			parts = strings.Split(string(raw), ",")
		}
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
