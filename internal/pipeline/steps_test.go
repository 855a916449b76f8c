package pipeline

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/events"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	"github.com/spec-kit/ticket-warehouse/internal/repository/memstore"
	"github.com/spec-kit/ticket-warehouse/internal/source"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

type fakeConnector struct {
	store     *memstore.Store
	src       source.Querier
	sourceErr error
	opened    int
	closed    int
}

func (c *fakeConnector) Warehouse(context.Context) (repository.Warehouse, func(), error) {
	c.opened++
	return c.store, func() { c.closed++ }, nil
}

func (c *fakeConnector) Source(context.Context, domain.SourceSystem) (source.Querier, func(), error) {
	if c.sourceErr != nil {
		return nil, func() {}, c.sourceErr
	}
	c.opened++
	return c.src, func() { c.closed++ }, nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func expectSultsExtraction(mock pgxmock.PgxPoolIface, opened, resolved time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT aberto FROM chamados_sults`)).
		WillReturnRows(pgxmock.NewRows([]string{"aberto"}).AddRow(opened).AddRow(resolved))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM responsaveis_sults`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "nome", "email"}).
			AddRow("7", strPtr("Ana Souza"), (*string)(nil)).
			AddRow("8", strPtr("Carlos"), (*string)(nil)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT situacao::text`)).
		WillReturnRows(pgxmock.NewRows([]string{"situacao"}).AddRow("2").AddRow("9"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT count_interacao_publico`)).
		WillReturnRows(pgxmock.NewRows([]string{"count_interacao_publico"}).AddRow(3).AddRow(0))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id::text, titulo`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "titulo", "aberto", "concluido", "situacao", "responsavel_id", "count_interacao_publico"}).
			AddRow(strPtr("101"), strPtr("Printer down"), timePtr(opened), timePtr(resolved), strPtr("2"), strPtr("7"), intPtr(3)).
			AddRow(strPtr("102"), (*string)(nil), timePtr(resolved), (*time.Time)(nil), strPtr("9"), strPtr("99"), intPtr(0)))
}

func TestStepBuilderConformsSultsIntoWarehouse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	opened := time.Date(2024, 3, 14, 9, 15, 0, 0, time.UTC)
	resolved := time.Date(2024, 3, 15, 19, 5, 30, 0, time.UTC)
	expectSultsExtraction(mock, opened, resolved)

	store := memstore.New()
	connector := &fakeConnector{store: store, src: mock}
	builder := NewStepBuilder(connector, domain.LocaleEnglish, "", zap.NewNop())

	steps, err := builder.Steps(domain.SourceSults)
	require.NoError(t, err)
	require.Len(t, steps, len(StepNames))
	for i, step := range steps {
		assert.Equal(t, StepNames[i], step.Name)
		assert.Equal(t, step.Name != StepFact, step.Exclusive)
	}

	payloads, err := NewOrchestrator(nil, nil, LockConfig{}, zap.NewNop()).Run(context.Background(), "run-1", domain.SourceSults, steps)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, connector.opened, connector.closed)

	byStep := map[string]events.StepPayload{}
	for _, p := range payloads {
		byStep[p.Step] = p
	}
	assert.Equal(t, 4, byStep[StepDateTime].Rows)
	assert.Equal(t, 2, byStep[StepResponsibleParty].Rows)
	assert.Equal(t, 1, byStep[StepStatus].Rows)
	assert.Equal(t, 1, byStep[StepStatus].Skipped)
	assert.Equal(t, 2, byStep[StepInteraction].Rows)
	assert.Equal(t, 2, byStep[StepFact].Rows)

	dates := store.Dates()
	require.Len(t, dates, 2)
	assert.Equal(t, "Thursday", dates[0].WeekdayName)
	assert.Equal(t, "Friday", dates[1].WeekdayName)
	times := store.Times()
	require.Len(t, times, 2)
	assert.Equal(t, domain.PeriodMorning, times[0].Period)
	assert.Equal(t, domain.PeriodEvening, times[1].Period)
	assert.Len(t, store.Parties(), 2)
	assert.Len(t, store.Statuses(), 1)
	assert.Len(t, store.Interactions(), 2)

	full, ok := store.Fact(domain.SourceSults, "101")
	require.True(t, ok)
	assert.Equal(t, "Printer down", *full.Title)
	assert.Equal(t, dates[0].Key, *full.OpenedDateKey)
	assert.Equal(t, times[0].Key, *full.OpenedTimeKey)
	assert.Equal(t, dates[1].Key, *full.ResolvedDateKey)
	assert.Equal(t, times[1].Key, *full.ResolvedTimeKey)
	assert.Equal(t, store.Statuses()[domain.StatusResolved], *full.StatusKey)
	assert.Equal(t, store.Interactions()[3], *full.InteractionKey)
	require.NotNil(t, full.PartyKey)

	partial, ok := store.Fact(domain.SourceSults, "102")
	require.True(t, ok)
	assert.Nil(t, partial.Title)
	assert.Nil(t, partial.ResolvedDateKey)
	assert.Nil(t, partial.ResolvedTimeKey)
	assert.Nil(t, partial.StatusKey)
	assert.Nil(t, partial.PartyKey)
	assert.Equal(t, store.Interactions()[0], *partial.InteractionKey)
}

func TestStepFailsWhenSourceUnreachable(t *testing.T) {
	store := memstore.New()
	connector := &fakeConnector{
		store:     store,
		sourceErr: apperrors.NewConnectivityError("source:Octa", errors.New("connection refused")),
	}
	steps, err := NewStepBuilder(connector, domain.LocaleEnglish, "", zap.NewNop()).Steps(domain.SourceOcta)
	require.NoError(t, err)

	payloads, err := NewOrchestrator(nil, nil, LockConfig{}, zap.NewNop()).Run(context.Background(), "run-1", domain.SourceOcta, steps)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepDateTime, stepErr.Step)
	assert.Equal(t, apperrors.ExitConnectivity, stepErr.ExitCode)
	assert.Contains(t, stepErr.Output, "cannot reach source:Octa")
	assert.Len(t, payloads, 1)
	assert.Empty(t, store.Dates())
	assert.Zero(t, connector.opened)
}

func TestDryRunConnectorWritesToMemory(t *testing.T) {
	store := memstore.New()
	connector := &DryRunConnector{Connector: &fakeConnector{}, Store: store}

	wh, closeFn, err := connector.Warehouse(context.Background())
	require.NoError(t, err)
	defer closeFn()
	assert.Same(t, store, wh)
}

func TestStepsRejectsUnknownSource(t *testing.T) {
	_, err := NewStepBuilder(&fakeConnector{}, domain.LocaleEnglish, "", zap.NewNop()).Steps(domain.SourceSystem("Zendesk"))
	require.Error(t, err)
}
