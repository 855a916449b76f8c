package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/conform"
	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	"github.com/spec-kit/ticket-warehouse/internal/source"
)

// Step names in execution order.
const (
	StepDateTime         = "date-time"
	StepResponsibleParty = "responsible-party"
	StepStatus           = "status"
	StepInteraction      = "interaction"
	StepFact             = "fact"
)

// StepNames lists every step in execution order.
var StepNames = []string{StepDateTime, StepResponsibleParty, StepStatus, StepInteraction, StepFact}

// StepBuilder produces the step list of a source.
type StepBuilder struct {
	connector Connector
	locale    domain.CalendarLocale
	adapters  func(domain.SourceSystem) (source.Adapter, error)
}

// NewStepBuilder loads adapters with vocabularies from vocabularyDir.
func NewStepBuilder(connector Connector, locale domain.CalendarLocale, vocabularyDir string, logger *zap.Logger) *StepBuilder {
	return &StepBuilder{
		connector: connector,
		locale:    locale,
		adapters: func(system domain.SourceSystem) (source.Adapter, error) {
			return source.Load(system, vocabularyDir, logger)
		},
	}
}

// Steps returns the dimension steps, all exclusive, followed by the fact step.
func (b *StepBuilder) Steps(system domain.SourceSystem) ([]Step, error) {
	adapter, err := b.adapters(system)
	if err != nil {
		return nil, err
	}
	return []Step{
		{Name: StepDateTime, Exclusive: true, Run: b.step(adapter, b.dateTime)},
		{Name: StepResponsibleParty, Exclusive: true, Run: b.step(adapter, b.responsibleParties)},
		{Name: StepStatus, Exclusive: true, Run: b.step(adapter, b.statuses)},
		{Name: StepInteraction, Exclusive: true, Run: b.step(adapter, b.interactions)},
		{Name: StepFact, Run: b.step(adapter, b.facts)},
	}, nil
}

type stepBody func(ctx context.Context, env stepEnv) (StepStats, error)

type stepEnv struct {
	adapter   source.Adapter
	source    source.Querier
	warehouse repository.Warehouse
	logger    *zap.Logger
}

// step opens the source and warehouse connections for one step and closes
// them when it returns.
func (b *StepBuilder) step(adapter source.Adapter, body stepBody) StepFunc {
	return func(ctx context.Context, logger *zap.Logger) (StepStats, error) {
		src, closeSource, err := b.connector.Source(ctx, adapter.System())
		defer closeSource()
		if err != nil {
			return StepStats{}, err
		}

		wh, closeWarehouse, err := b.connector.Warehouse(ctx)
		defer closeWarehouse()
		if err != nil {
			return StepStats{}, err
		}

		return body(ctx, stepEnv{adapter: adapter, source: src, warehouse: wh, logger: logger})
	}
}

func (b *StepBuilder) dateTime(ctx context.Context, env stepEnv) (StepStats, error) {
	timestamps, err := env.adapter.ExtractTimestamps(ctx, env.source)
	if err != nil {
		return StepStats{}, err
	}
	env.logger.Debug("timestamps extracted", zap.Int("count", len(timestamps)))

	dates, times, err := conform.NewDimensionConformer(env.warehouse, b.locale, env.logger).DatesAndTimes(ctx, timestamps)
	if err != nil {
		return StepStats{}, fmt.Errorf("load calendar dimensions: %w", err)
	}
	return StepStats{Rows: dates.Written + times.Written, Skipped: dates.Skipped + times.Skipped}, nil
}

func (b *StepBuilder) responsibleParties(ctx context.Context, env stepEnv) (StepStats, error) {
	parties, err := env.adapter.ExtractParties(ctx, env.source)
	if err != nil {
		return StepStats{}, err
	}
	env.logger.Debug("parties extracted", zap.Int("count", len(parties)))

	res, err := conform.NewDimensionConformer(env.warehouse, b.locale, env.logger).ResponsibleParties(ctx, env.adapter.System(), parties)
	if err != nil {
		return StepStats{}, fmt.Errorf("load responsible parties: %w", err)
	}
	return StepStats{Rows: res.Written, Skipped: res.Skipped}, nil
}

func (b *StepBuilder) statuses(ctx context.Context, env stepEnv) (StepStats, error) {
	tokens, err := env.adapter.ExtractStatusTokens(ctx, env.source)
	if err != nil {
		return StepStats{}, err
	}

	names := make([]domain.StatusName, 0, len(tokens))
	unmapped := 0
	for _, token := range tokens {
		name, ok := env.adapter.NormalizeStatus(token)
		if !ok {
			unmapped++
			env.logger.Warn("unmapped status token", zap.String("token", token))
			continue
		}
		names = append(names, name)
	}

	res, err := conform.NewDimensionConformer(env.warehouse, b.locale, env.logger).StatusNames(ctx, names)
	if err != nil {
		return StepStats{}, fmt.Errorf("load statuses: %w", err)
	}
	return StepStats{Rows: res.Written, Skipped: res.Skipped + unmapped}, nil
}

func (b *StepBuilder) interactions(ctx context.Context, env stepEnv) (StepStats, error) {
	counts, err := env.adapter.ExtractInteractionCounts(ctx, env.source)
	if err != nil {
		return StepStats{}, err
	}

	res, err := conform.NewDimensionConformer(env.warehouse, b.locale, env.logger).InteractionCounts(ctx, counts)
	if err != nil {
		return StepStats{}, fmt.Errorf("load interaction counts: %w", err)
	}
	return StepStats{Rows: res.Written, Skipped: res.Skipped}, nil
}

func (b *StepBuilder) facts(ctx context.Context, env stepEnv) (StepStats, error) {
	tickets, err := env.adapter.ExtractTickets(ctx, env.source)
	if err != nil {
		return StepStats{}, err
	}
	env.logger.Debug("tickets extracted", zap.Int("count", len(tickets)))

	res, err := conform.NewFactConformer(env.warehouse, env.logger).Load(ctx, env.adapter, tickets)
	if err != nil {
		return StepStats{}, fmt.Errorf("load facts: %w", err)
	}
	return StepStats{Rows: res.Upserted, Skipped: res.Skipped}, nil
}
