package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

func TestInTxCommitsOnSuccess(t *testing.T) {
	mock := newMock(t)
	wh := NewWarehouse(mock)

	mock.ExpectBegin()
	expectSavepoint(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dim_status")).
		WithArgs("In Progress").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectRelease(mock)
	mock.ExpectCommit()

	err := wh.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.Dimensions().InsertStatus(context.Background(), domain.StatusInProgress)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	mock := newMock(t)
	wh := NewWarehouse(mock)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := wh.InTx(context.Background(), func(tx Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
