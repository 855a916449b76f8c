package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

// LookupReader reads every dimension in full as natural key to surrogate key maps.
type LookupReader interface {
	DateKeys(ctx context.Context) (map[domain.CalendarDate]int64, error)
	TimeKeys(ctx context.Context) (map[domain.TimeOfDay]int64, error)
	StatusKeys(ctx context.Context) (map[domain.StatusName]int64, error)
	InteractionKeys(ctx context.Context) (map[int]int64, error)
	PartyKeys(ctx context.Context, source domain.SourceSystem) (map[string]int64, error)
}

type lookupRepository struct {
	db DBTX
}

// NewLookupRepository instantiates repository.
func NewLookupRepository(db DBTX) LookupReader {
	return &lookupRepository{db: db}
}

func (r *lookupRepository) DateKeys(ctx context.Context) (map[domain.CalendarDate]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT full_date, date_sk FROM dim_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[domain.CalendarDate]int64)
	for rows.Next() {
		var (
			date time.Time
			sk   int64
		)
		if err := rows.Scan(&date, &sk); err != nil {
			return nil, err
		}
		keys[domain.DateOf(date)] = sk
	}
	return keys, rows.Err()
}

func (r *lookupRepository) TimeKeys(ctx context.Context) (map[domain.TimeOfDay]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT full_time, time_sk FROM dim_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[domain.TimeOfDay]int64)
	for rows.Next() {
		var (
			clock pgtype.Time
			sk    int64
		)
		if err := rows.Scan(&clock, &sk); err != nil {
			return nil, err
		}
		if !clock.Valid {
			continue
		}
		keys[domain.TimeOfDayFromMicros(clock.Microseconds)] = sk
	}
	return keys, rows.Err()
}

func (r *lookupRepository) StatusKeys(ctx context.Context) (map[domain.StatusName]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT name, status_sk FROM dim_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[domain.StatusName]int64)
	for rows.Next() {
		var (
			name string
			sk   int64
		)
		if err := rows.Scan(&name, &sk); err != nil {
			return nil, err
		}
		keys[domain.StatusName(name)] = sk
	}
	return keys, rows.Err()
}

func (r *lookupRepository) InteractionKeys(ctx context.Context) (map[int]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT interaction_count, interaction_sk FROM dim_interaction`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[int]int64)
	for rows.Next() {
		var (
			count int
			sk    int64
		)
		if err := rows.Scan(&count, &sk); err != nil {
			return nil, err
		}
		keys[count] = sk
	}
	return keys, rows.Err()
}

// PartyKeys only returns parties of source so native ids never collide across systems.
func (r *lookupRepository) PartyKeys(ctx context.Context, source domain.SourceSystem) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT source_id, party_sk FROM dim_responsible_party WHERE source_system=$1`, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]int64)
	for rows.Next() {
		var (
			id string
			sk int64
		)
		if err := rows.Scan(&id, &sk); err != nil {
			return nil, err
		}
		keys[id] = sk
	}
	return keys, rows.Err()
}
