package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestUpsertFactOverwritesWithNulls(t *testing.T) {
	mock := newMock(t)
	repo := NewFactRepository(mock)
	title := "Printer jammed"

	fact := domain.Fact{
		NativeID:      "1001",
		Source:        domain.SourceOcta,
		Title:         &title,
		OpenedDateKey: int64Ptr(1),
		OpenedTimeKey: int64Ptr(2),
		PartyKey:      int64Ptr(5),
	}

	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (source_id, source_system) DO UPDATE SET")).
		WithArgs("1001", "Octa", &title, int64Ptr(1), int64Ptr(2), (*int64)(nil), (*int64)(nil), int64Ptr(5), (*int64)(nil), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRelease(mock)

	require.NoError(t, repo.UpsertFact(context.Background(), fact))
	assert.NoError(t, mock.ExpectationsWereMet())
}
