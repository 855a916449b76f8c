package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportColumns = []string{
	"ticket_sk", "source_id", "source_system", "title", "year", "month", "weekday_name",
	"hour", "day_period", "full_name", "name", "interaction_count",
}

func TestTicketsAppliesEveryFilter(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)
	year, month := 2024, 3
	title, weekday, period, party, status := "Printer jammed", "Thursday", "Morning", "Ana Souza", "Resolved"
	hour, interactions := 9, 2

	mock.ExpectQuery(`d\.year=\$1 AND d\.month=\$2 AND p\.full_name IN \(\$3\) AND s\.name IN \(\$4,\$5\)`).
		WithArgs(2024, 3, "Ana Souza", "New", "Resolved").
		WillReturnRows(pgxmock.NewRows(reportColumns).
			AddRow(int64(1), "1001", "Octa", &title, &year, &month, &weekday, &hour, &period, &party, &status, &interactions))

	rows, err := repo.Tickets(context.Background(), ReportFilter{
		Year:     &year,
		Month:    &month,
		Parties:  []string{"Ana Souza"},
		Statuses: []string{"New", "Resolved"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].TicketKey)
	assert.Equal(t, "Octa", rows[0].SourceSystem)
	assert.Equal(t, "Thursday", *rows[0].WeekdayName)
	assert.Equal(t, 9, *rows[0].Hour)
	assert.Equal(t, "Resolved", *rows[0].StatusName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketsEmptyResultIsEmptySlice(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 ORDER BY f.ticket_sk LIMIT 500 OFFSET 0")).
		WillReturnRows(pgxmock.NewRows(reportColumns))

	rows, err := repo.Tickets(context.Background(), ReportFilter{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterOptions(t *testing.T) {
	mock := newMock(t)
	repo := NewReportRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT year FROM dim_date")).
		WillReturnRows(pgxmock.NewRows([]string{"year"}).AddRow(2023).AddRow(2024))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT month, month_name FROM dim_date")).
		WillReturnRows(pgxmock.NewRows([]string{"month", "month_name"}).AddRow(3, "March"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT full_name FROM dim_responsible_party")).
		WillReturnRows(pgxmock.NewRows([]string{"full_name"}).AddRow("Ana Souza"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM dim_status")).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("New").AddRow("Resolved"))

	opts, err := repo.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, opts.Years)
	assert.Equal(t, []MonthOption{{Number: 3, Name: "March"}}, opts.Months)
	assert.Equal(t, []string{"Ana Souza"}, opts.Parties)
	assert.Equal(t, []string{"New", "Resolved"}, opts.Statuses)
	assert.NoError(t, mock.ExpectationsWereMet())
}
