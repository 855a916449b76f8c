package repository

import (
	"context"
	"fmt"
	"strings"
)

// ReportFilter narrows the ticket report. Empty fields do not filter.
type ReportFilter struct {
	Year     *int
	Month    *int
	Parties  []string
	Statuses []string
	Limit    int
	Offset   int
}

// TicketReportRow is one fact joined with its dimensions.
type TicketReportRow struct {
	TicketKey        int64
	SourceID         string
	SourceSystem     string
	Title            *string
	Year             *int
	Month            *int
	WeekdayName      *string
	Hour             *int
	DayPeriod        *string
	PartyName        *string
	StatusName       *string
	InteractionCount *int
}

// MonthOption pairs a month number with its stored name.
type MonthOption struct {
	Number int
	Name   string
}

// FilterOptions lists the values the report can be filtered by.
type FilterOptions struct {
	Years    []int
	Months   []MonthOption
	Parties  []string
	Statuses []string
}

// ReportRepository serves the read side of the warehouse.
type ReportRepository interface {
	FilterOptions(ctx context.Context) (FilterOptions, error)
	Tickets(ctx context.Context, filter ReportFilter) ([]TicketReportRow, error)
}

type reportRepository struct {
	db DBTX
}

// NewReportRepository instantiates repository.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var opts FilterOptions

	years, err := r.db.Query(ctx, `SELECT DISTINCT year FROM dim_date ORDER BY year`)
	if err != nil {
		return opts, err
	}
	defer years.Close()
	for years.Next() {
		var year int
		if err := years.Scan(&year); err != nil {
			return opts, err
		}
		opts.Years = append(opts.Years, year)
	}
	if err := years.Err(); err != nil {
		return opts, err
	}

	months, err := r.db.Query(ctx, `SELECT DISTINCT month, month_name FROM dim_date ORDER BY month`)
	if err != nil {
		return opts, err
	}
	defer months.Close()
	for months.Next() {
		var m MonthOption
		if err := months.Scan(&m.Number, &m.Name); err != nil {
			return opts, err
		}
		opts.Months = append(opts.Months, m)
	}
	if err := months.Err(); err != nil {
		return opts, err
	}

	if opts.Parties, err = r.strings(ctx, `SELECT DISTINCT full_name FROM dim_responsible_party ORDER BY full_name`); err != nil {
		return opts, err
	}
	if opts.Statuses, err = r.strings(ctx, `SELECT name FROM dim_status ORDER BY name`); err != nil {
		return opts, err
	}
	return opts, nil
}

func (r *reportRepository) strings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, rows.Err()
}

func (r *reportRepository) Tickets(ctx context.Context, filter ReportFilter) ([]TicketReportRow, error) {
	base := `SELECT f.ticket_sk, f.source_id, f.source_system, f.title,
                    d.year, d.month, d.weekday_name, t.hour, t.day_period,
                    p.full_name, s.name, i.interaction_count
             FROM fact_ticket f
             LEFT JOIN dim_date d ON d.date_sk = f.opened_date_sk
             LEFT JOIN dim_time t ON t.time_sk = f.opened_time_sk
             LEFT JOIN dim_responsible_party p ON p.party_sk = f.party_sk
             LEFT JOIN dim_status s ON s.status_sk = f.status_sk
             LEFT JOIN dim_interaction i ON i.interaction_sk = f.interaction_sk`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Year != nil {
		args = append(args, *filter.Year)
		clauses = append(clauses, fmt.Sprintf("d.year=$%d", len(args)))
	}
	if filter.Month != nil {
		args = append(args, *filter.Month)
		clauses = append(clauses, fmt.Sprintf("d.month=$%d", len(args)))
	}
	if len(filter.Parties) > 0 {
		placeholders := make([]string, len(filter.Parties))
		for i, party := range filter.Parties {
			args = append(args, party)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("p.full_name IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("s.name IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY f.ticket_sk LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []TicketReportRow{}
	for rows.Next() {
		var row TicketReportRow
		if err := rows.Scan(
			&row.TicketKey,
			&row.SourceID,
			&row.SourceSystem,
			&row.Title,
			&row.Year,
			&row.Month,
			&row.WeekdayName,
			&row.Hour,
			&row.DayPeriod,
			&row.PartyName,
			&row.StatusName,
			&row.InteractionCount,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
