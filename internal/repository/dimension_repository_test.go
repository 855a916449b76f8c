package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func expectSavepoint(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("^SAVEPOINT conform_row$").WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
}

func expectRelease(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("^RELEASE SAVEPOINT conform_row$").WillReturnResult(pgxmock.NewResult("RELEASE", 0))
}

func TestInsertStatusReportsWhetherRowWasCreated(t *testing.T) {
	mock := newMock(t)
	repo := NewDimensionRepository(mock)

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_status (name)")).
		WithArgs("New").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRelease(mock)

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_status (name)")).
		WithArgs("New").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	expectRelease(mock)

	inserted, err := repo.InsertStatus(context.Background(), domain.StatusNew)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertStatus(context.Background(), domain.StatusNew)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintViolationRollsBackToSavepoint(t *testing.T) {
	mock := newMock(t)
	repo := NewDimensionRepository(mock)

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_interaction")).
		WithArgs(-1).
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check violation"})
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT conform_row$").WillReturnResult(pgxmock.NewResult("ROLLBACK", 0))

	inserted, err := repo.InsertInteractionCount(context.Background(), -1)
	require.Error(t, err)
	assert.False(t, inserted)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConstraint))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOtherErrorsAreReturnedUnchanged(t *testing.T) {
	mock := newMock(t)
	repo := NewDimensionRepository(mock)
	boom := errors.New("connection reset")

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_status")).
		WithArgs("Resolved").
		WillReturnError(boom)

	_, err := repo.InsertStatus(context.Background(), domain.StatusResolved)
	require.ErrorIs(t, err, boom)
	assert.False(t, apperrors.IsCode(err, apperrors.CodeConstraint))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDateWritesDerivedAttributes(t *testing.T) {
	mock := newMock(t)
	repo := NewDimensionRepository(mock)
	date := domain.CalendarDate{Year: 2024, Month: time.March, Day: 14}

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_date")).
		WithArgs(time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC), 2024, 3, 14, 1, 3, "March", "Thursday").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRelease(mock)

	inserted, err := repo.InsertDate(context.Background(), domain.NewDateDimension(date, domain.LocaleEnglish))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTimeWritesDayPeriod(t *testing.T) {
	mock := newMock(t)
	repo := NewDimensionRepository(mock)
	clock := domain.TimeOfDay{Hour: 18, Minute: 30, Second: 0}

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_time")).
		WithArgs(pgtype.Time{Microseconds: clock.Micros(), Valid: true}, 18, 30, 0, "Evening").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRelease(mock)

	inserted, err := repo.InsertTime(context.Background(), domain.NewTimeDimension(clock))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPartyWritesNullSurname(t *testing.T) {
	mock := newMock(t)
	repo := NewDimensionRepository(mock)

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (source_id, source_system) DO UPDATE")).
		WithArgs("7", "Sults", "Cher", (*string)(nil), "Cher", (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRelease(mock)

	err := repo.UpsertParty(context.Background(), domain.Party{
		NativeID:  "7",
		Source:    domain.SourceSults,
		FirstName: "Cher",
		FullName:  "Cher",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
