package dto

import "github.com/spec-kit/ticket-warehouse/internal/repository"

// MonthOption pairs a month number with its name.
type MonthOption struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// FilterOptionsResponse lists the values the ticket report can be filtered by.
type FilterOptionsResponse struct {
	Years    []int         `json:"years"`
	Months   []MonthOption `json:"months"`
	Parties  []string      `json:"parties"`
	Statuses []string      `json:"statuses"`
}

// TicketReportRow is one ticket fact with its dimension attributes.
type TicketReportRow struct {
	TicketKey        int64   `json:"ticket_key"`
	SourceID         string  `json:"source_id"`
	SourceSystem     string  `json:"source_system"`
	Title            *string `json:"title"`
	Year             *int    `json:"year"`
	Month            *int    `json:"month"`
	WeekdayName      *string `json:"weekday_name"`
	Hour             *int    `json:"hour"`
	DayPeriod        *string `json:"day_period"`
	ResponsibleParty *string `json:"responsible_party"`
	Status           *string `json:"status"`
	InteractionCount *int    `json:"interaction_count"`
}

// NewFilterOptionsResponse converts repository options, never emitting null lists.
func NewFilterOptionsResponse(opts repository.FilterOptions) FilterOptionsResponse {
	resp := FilterOptionsResponse{
		Years:    append([]int{}, opts.Years...),
		Months:   make([]MonthOption, 0, len(opts.Months)),
		Parties:  append([]string{}, opts.Parties...),
		Statuses: append([]string{}, opts.Statuses...),
	}
	for _, m := range opts.Months {
		resp.Months = append(resp.Months, MonthOption{Number: m.Number, Name: m.Name})
	}
	return resp
}

// NewTicketReportRows converts repository rows.
func NewTicketReportRows(rows []repository.TicketReportRow) []TicketReportRow {
	out := make([]TicketReportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, TicketReportRow{
			TicketKey:        r.TicketKey,
			SourceID:         r.SourceID,
			SourceSystem:     r.SourceSystem,
			Title:            r.Title,
			Year:             r.Year,
			Month:            r.Month,
			WeekdayName:      r.WeekdayName,
			Hour:             r.Hour,
			DayPeriod:        r.DayPeriod,
			ResponsibleParty: r.PartyName,
			Status:           r.StatusName,
			InteractionCount: r.InteractionCount,
		})
	}
	return out
}
