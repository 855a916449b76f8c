package repository

import (
	"context"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

// FactWriter upserts ticket facts keyed by (source id, source system).
type FactWriter interface {
	UpsertFact(ctx context.Context, f domain.Fact) error
}

type factRepository struct {
	db DBTX
}

// NewFactRepository binds the writer to a transaction or pool.
func NewFactRepository(db DBTX) FactWriter {
	return &factRepository{db: db}
}

// UpsertFact overwrites every non-key column, including with NULL, when the
// ticket was loaded before.
func (r *factRepository) UpsertFact(ctx context.Context, f domain.Fact) error {
	const query = `
        INSERT INTO fact_ticket (source_id, source_system, title, opened_date_sk, opened_time_sk,
            resolved_date_sk, resolved_time_sk, party_sk, status_sk, interaction_sk)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (source_id, source_system) DO UPDATE SET
            title = EXCLUDED.title,
            opened_date_sk = EXCLUDED.opened_date_sk,
            opened_time_sk = EXCLUDED.opened_time_sk,
            resolved_date_sk = EXCLUDED.resolved_date_sk,
            resolved_time_sk = EXCLUDED.resolved_time_sk,
            party_sk = EXCLUDED.party_sk,
            status_sk = EXCLUDED.status_sk,
            interaction_sk = EXCLUDED.interaction_sk`
	_, err := execUnderSavepoint(ctx, r.db, "fact_ticket", query,
		f.NativeID,
		string(f.Source),
		f.Title,
		f.OpenedDateKey,
		f.OpenedTimeKey,
		f.ResolvedDateKey,
		f.ResolvedTimeKey,
		f.PartyKey,
		f.StatusKey,
		f.InteractionKey,
	)
	return err
}
