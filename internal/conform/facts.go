package conform

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// Fact attributes that can fail to resolve.
const (
	AttrOpenedDate   = "opened_date"
	AttrOpenedTime   = "opened_time"
	AttrResolvedDate = "resolved_date"
	AttrResolvedTime = "resolved_time"
	AttrParty        = "party"
	AttrStatus       = "status"
	AttrInteraction  = "interaction"
)

// StatusNormalizer maps a source's raw status token to a canonical name.
type StatusNormalizer interface {
	System() domain.SourceSystem
	NormalizeStatus(token string) (domain.StatusName, bool)
}

// FactResult counts what one fact load did.
type FactResult struct {
	Records  int
	Upserted int
	// Skipped counts records without a native id or rejected by a constraint.
	Skipped int
	// Unresolved counts, per attribute, present values with no dimension row.
	Unresolved map[string]int
	// UnmappedStatuses counts raw status tokens missing from the vocabulary.
	UnmappedStatuses map[string]int
}

// FactConformer resolves source tickets into facts and upserts them.
type FactConformer struct {
	warehouse repository.Warehouse
	logger    *zap.Logger
}

// NewFactConformer instantiates the conformer.
func NewFactConformer(warehouse repository.Warehouse, logger *zap.Logger) *FactConformer {
	return &FactConformer{warehouse: warehouse, logger: logger}
}

// Load must run after the dimension loads of the same run committed: it
// reads the lookup cache once at its start.
func (c *FactConformer) Load(ctx context.Context, rules StatusNormalizer, records []domain.RawTicket) (FactResult, error) {
	res := FactResult{Records: len(records), Unresolved: map[string]int{}, UnmappedStatuses: map[string]int{}}
	if len(records) == 0 {
		c.logger.Info("no tickets to load")
		return res, nil
	}

	source := rules.System()
	cache, err := LoadCache(ctx, c.warehouse.Lookups(), source)
	if err != nil {
		return res, err
	}
	c.logger.Debug("lookup cache loaded",
		zap.Int("dates", cache.Dates.Len()),
		zap.Int("times", cache.Times.Len()),
		zap.Int("statuses", cache.Statuses.Len()),
		zap.Int("interactions", cache.Interactions.Len()),
		zap.Int("parties", cache.Parties.Len()),
	)

	err = c.warehouse.InTx(ctx, func(tx repository.Tx) error {
		facts := tx.Facts()
		for _, rec := range records {
			if strings.TrimSpace(rec.NativeID) == "" {
				res.Skipped++
				c.logger.Warn("skipping ticket",
					zap.Error(apperrors.NewTransformError("ticket has no native id", map[string]any{"source": string(source)})),
				)
				continue
			}

			fact, misses := Resolve(cache, rules, rec)
			for _, attr := range misses {
				res.Unresolved[attr]++
			}
			if token, unmapped := unmappedStatus(rules, rec); unmapped {
				res.UnmappedStatuses[token]++
			}

			if err := facts.UpsertFact(ctx, fact); err != nil {
				if apperrors.IsCode(err, apperrors.CodeConstraint) {
					res.Skipped++
					c.logger.Warn("fact rejected by constraint", zap.String("source_id", rec.NativeID), zap.Error(err))
					continue
				}
				return fmt.Errorf("upsert ticket %s: %w", rec.NativeID, err)
			}
			res.Upserted++
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	for token, n := range res.UnmappedStatuses {
		c.logger.Warn("unmapped status token", zap.String("token", token), zap.Int("tickets", n))
	}
	c.logger.Info("facts loaded",
		zap.Int("records", res.Records),
		zap.Int("upserted", res.Upserted),
		zap.Int("skipped", res.Skipped),
		zap.Any("unresolved", res.Unresolved),
	)
	return res, nil
}

// Resolve builds the fact for rec. Each attribute resolves independently; a
// miss leaves only that key nil and is reported in misses.
func Resolve(cache *Cache, rules StatusNormalizer, rec domain.RawTicket) (domain.Fact, []string) {
	fact := domain.Fact{
		NativeID: rec.NativeID,
		Source:   rules.System(),
		Title:    rec.Title,
	}
	var misses []string
	note := func(attr string, missed bool) {
		if missed {
			misses = append(misses, attr)
		}
	}

	if rec.OpenedAt != nil {
		date, clock := domain.SplitTimestamp(*rec.OpenedAt)
		var missed bool
		fact.OpenedDateKey, missed = resolveKey(cache.Dates, &date)
		note(AttrOpenedDate, missed)
		fact.OpenedTimeKey, missed = resolveKey(cache.Times, &clock)
		note(AttrOpenedTime, missed)
	}
	if rec.ResolvedAt != nil {
		date, clock := domain.SplitTimestamp(*rec.ResolvedAt)
		var missed bool
		fact.ResolvedDateKey, missed = resolveKey(cache.Dates, &date)
		note(AttrResolvedDate, missed)
		fact.ResolvedTimeKey, missed = resolveKey(cache.Times, &clock)
		note(AttrResolvedTime, missed)
	}

	var missed bool
	fact.PartyKey, missed = resolveKey(cache.Parties, rec.ResponsibleID)
	note(AttrParty, missed)

	if rec.StatusToken != nil {
		if name, ok := rules.NormalizeStatus(*rec.StatusToken); ok {
			fact.StatusKey, missed = resolveKey(cache.Statuses, &name)
			note(AttrStatus, missed)
		}
	}

	fact.InteractionKey, missed = resolveKey(cache.Interactions, rec.InteractionCount)
	note(AttrInteraction, missed)

	return fact, misses
}

func unmappedStatus(rules StatusNormalizer, rec domain.RawTicket) (string, bool) {
	if rec.StatusToken == nil {
		return "", false
	}
	if _, ok := rules.NormalizeStatus(*rec.StatusToken); ok {
		return "", false
	}
	return *rec.StatusToken, true
}
