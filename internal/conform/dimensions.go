package conform

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// Dimension names used in results and logs.
const (
	DimensionDate        = "dim_date"
	DimensionTime        = "dim_time"
	DimensionStatus      = "dim_status"
	DimensionInteraction = "dim_interaction"
	DimensionParty       = "dim_responsible_party"
)

// Result counts what one dimension load did.
type Result struct {
	Dimension string
	// Distinct is the number of distinct candidate values after deduplication.
	Distinct int
	// Written counts inserted rows, or upserted rows for the party dimension.
	Written int
	// Skipped counts rows rolled back on a constraint violation.
	Skipped int
}

// DimensionConformer writes deduplicated, normalized values into the
// dimension tables. Every operation is idempotent.
type DimensionConformer struct {
	warehouse repository.Warehouse
	locale    domain.CalendarLocale
	logger    *zap.Logger
}

// NewDimensionConformer instantiates the conformer.
func NewDimensionConformer(warehouse repository.Warehouse, locale domain.CalendarLocale, logger *zap.Logger) *DimensionConformer {
	return &DimensionConformer{warehouse: warehouse, locale: locale, logger: logger}
}

// CalendarDates loads the distinct dates of timestamps.
func (c *DimensionConformer) CalendarDates(ctx context.Context, timestamps []time.Time) (Result, error) {
	dates := distinctDates(timestamps)
	if len(dates) == 0 {
		c.logger.Info("no dates to conform")
		return Result{Dimension: DimensionDate}, nil
	}

	var res Result
	err := c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = c.writeDates(ctx, tx.Dimensions(), dates)
		return err
	})
	return c.done(res, err)
}

// Times loads the distinct times of day of timestamps.
func (c *DimensionConformer) Times(ctx context.Context, timestamps []time.Time) (Result, error) {
	times := distinctTimes(timestamps)
	if len(times) == 0 {
		c.logger.Info("no times to conform")
		return Result{Dimension: DimensionTime}, nil
	}

	var res Result
	err := c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = c.writeTimes(ctx, tx.Dimensions(), times)
		return err
	})
	return c.done(res, err)
}

// DatesAndTimes loads both calendar dimensions in one transaction.
func (c *DimensionConformer) DatesAndTimes(ctx context.Context, timestamps []time.Time) (Result, Result, error) {
	dates, times := distinctDates(timestamps), distinctTimes(timestamps)
	if len(dates) == 0 {
		c.logger.Info("no timestamps to conform")
		return Result{Dimension: DimensionDate}, Result{Dimension: DimensionTime}, nil
	}

	var dateRes, timeRes Result
	err := c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if dateRes, err = c.writeDates(ctx, tx.Dimensions(), dates); err != nil {
			return err
		}
		timeRes, err = c.writeTimes(ctx, tx.Dimensions(), times)
		return err
	})
	if err != nil {
		return dateRes, timeRes, err
	}
	c.logResult(dateRes)
	c.logResult(timeRes)
	return dateRes, timeRes, nil
}

// StatusNames loads one row per distinct canonical status.
func (c *DimensionConformer) StatusNames(ctx context.Context, names []domain.StatusName) (Result, error) {
	distinct := make([]domain.StatusName, 0, len(names))
	seen := make(map[domain.StatusName]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		distinct = append(distinct, name)
	}

	res := Result{Dimension: DimensionStatus, Distinct: len(distinct)}
	if len(distinct) == 0 {
		c.logger.Info("no statuses to conform")
		return res, nil
	}

	err := c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		dims := tx.Dimensions()
		for _, name := range distinct {
			inserted, err := dims.InsertStatus(ctx, name)
			if err := c.tally(&res, inserted, err, zap.String("status", string(name))); err != nil {
				return err
			}
		}
		return nil
	})
	return c.done(res, err)
}

// InteractionCounts loads one row per distinct count.
func (c *DimensionConformer) InteractionCounts(ctx context.Context, counts []int) (Result, error) {
	distinct := make([]int, 0, len(counts))
	seen := make(map[int]struct{}, len(counts))
	for _, n := range counts {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		distinct = append(distinct, n)
	}
	sort.Ints(distinct)

	res := Result{Dimension: DimensionInteraction, Distinct: len(distinct)}
	if len(distinct) == 0 {
		c.logger.Info("no interaction counts to conform")
		return res, nil
	}

	err := c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		dims := tx.Dimensions()
		for _, n := range distinct {
			inserted, err := dims.InsertInteractionCount(ctx, n)
			if err := c.tally(&res, inserted, err, zap.Int("interaction_count", n)); err != nil {
				return err
			}
		}
		return nil
	})
	return c.done(res, err)
}

// ResponsibleParties upserts the parties of source. Parties without a usable
// name or id are skipped. When a native id repeats, the last occurrence wins.
func (c *DimensionConformer) ResponsibleParties(ctx context.Context, source domain.SourceSystem, raws []domain.RawParty) (Result, error) {
	order := make([]string, 0, len(raws))
	byID := make(map[string]domain.Party, len(raws))
	for _, raw := range raws {
		party, ok := domain.NewParty(raw, source)
		if !ok {
			c.logger.Warn("skipping responsible party",
				zap.Error(apperrors.NewTransformError("party has no usable name", map[string]any{"source_id": raw.NativeID})),
			)
			continue
		}
		if _, seen := byID[party.NativeID]; !seen {
			order = append(order, party.NativeID)
		}
		byID[party.NativeID] = party
	}

	res := Result{Dimension: DimensionParty, Distinct: len(order)}
	if len(order) == 0 {
		c.logger.Info("no responsible parties to conform")
		return res, nil
	}

	err := c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		dims := tx.Dimensions()
		for _, id := range order {
			err := dims.UpsertParty(ctx, byID[id])
			if err := c.tally(&res, err == nil, err, zap.String("source_id", id)); err != nil {
				return err
			}
		}
		return nil
	})
	return c.done(res, err)
}

func (c *DimensionConformer) writeDates(ctx context.Context, dims repository.DimensionWriter, dates []domain.CalendarDate) (Result, error) {
	res := Result{Dimension: DimensionDate, Distinct: len(dates)}
	for _, d := range dates {
		inserted, err := dims.InsertDate(ctx, domain.NewDateDimension(d, c.locale))
		if err := c.tally(&res, inserted, err, zap.Stringer("date", d)); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *DimensionConformer) writeTimes(ctx context.Context, dims repository.DimensionWriter, times []domain.TimeOfDay) (Result, error) {
	res := Result{Dimension: DimensionTime, Distinct: len(times)}
	for _, t := range times {
		inserted, err := dims.InsertTime(ctx, domain.NewTimeDimension(t))
		if err := c.tally(&res, inserted, err, zap.Stringer("time", t)); err != nil {
			return res, err
		}
	}
	return res, nil
}

// tally records one row outcome. Constraint violations are counted and
// swallowed; any other error is returned.
func (c *DimensionConformer) tally(res *Result, written bool, err error, field zap.Field) error {
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeConstraint) {
			res.Skipped++
			c.logger.Warn("row rejected by constraint", zap.String("dimension", res.Dimension), field, zap.Error(err))
			return nil
		}
		return err
	}
	if written {
		res.Written++
	}
	return nil
}

func (c *DimensionConformer) done(res Result, err error) (Result, error) {
	if err != nil {
		return res, err
	}
	c.logResult(res)
	return res, nil
}

func (c *DimensionConformer) logResult(res Result) {
	c.logger.Info("dimension conformed",
		zap.String("dimension", res.Dimension),
		zap.Int("distinct", res.Distinct),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped),
	)
}

func distinctDates(timestamps []time.Time) []domain.CalendarDate {
	seen := make(map[domain.CalendarDate]struct{}, len(timestamps))
	dates := make([]domain.CalendarDate, 0, len(timestamps))
	for _, ts := range timestamps {
		d := domain.DateOf(ts)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Time().Before(dates[j].Time()) })
	return dates
}

func distinctTimes(timestamps []time.Time) []domain.TimeOfDay {
	seen := make(map[domain.TimeOfDay]struct{}, len(timestamps))
	times := make([]domain.TimeOfDay, 0, len(timestamps))
	for _, ts := range timestamps {
		t := domain.TimeOfDayOf(ts)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Micros() < times[j].Micros() })
	return times
}
