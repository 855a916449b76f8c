package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

// DimensionWriter inserts dimension rows. Value dimensions are insert-only and
// report whether a new row was created; parties are upserted.
type DimensionWriter interface {
	InsertDate(ctx context.Context, d domain.DateDimension) (bool, error)
	InsertTime(ctx context.Context, t domain.TimeDimension) (bool, error)
	InsertStatus(ctx context.Context, name domain.StatusName) (bool, error)
	InsertInteractionCount(ctx context.Context, count int) (bool, error)
	UpsertParty(ctx context.Context, p domain.Party) error
}

type dimensionRepository struct {
	db DBTX
}

// NewDimensionRepository binds the writer to a transaction or pool.
func NewDimensionRepository(db DBTX) DimensionWriter {
	return &dimensionRepository{db: db}
}

func (r *dimensionRepository) InsertDate(ctx context.Context, d domain.DateDimension) (bool, error) {
	const query = `
        INSERT INTO dim_date (full_date, year, month, day, quarter, weekday, month_name, weekday_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (full_date) DO NOTHING`
	n, err := execUnderSavepoint(ctx, r.db, "dim_date", query,
		d.Date.Time(),
		d.Year,
		d.Month,
		d.Day,
		d.Quarter,
		d.Weekday,
		d.MonthName,
		d.WeekdayName,
	)
	return n > 0, err
}

func (r *dimensionRepository) InsertTime(ctx context.Context, t domain.TimeDimension) (bool, error) {
	const query = `
        INSERT INTO dim_time (full_time, hour, minute, second, day_period)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (full_time) DO NOTHING`
	n, err := execUnderSavepoint(ctx, r.db, "dim_time", query,
		pgtype.Time{Microseconds: t.Time.Micros(), Valid: true},
		t.Hour,
		t.Minute,
		t.Second,
		string(t.Period),
	)
	return n > 0, err
}

func (r *dimensionRepository) InsertStatus(ctx context.Context, name domain.StatusName) (bool, error) {
	const query = `INSERT INTO dim_status (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	n, err := execUnderSavepoint(ctx, r.db, "dim_status", query, string(name))
	return n > 0, err
}

func (r *dimensionRepository) InsertInteractionCount(ctx context.Context, count int) (bool, error) {
	const query = `INSERT INTO dim_interaction (interaction_count) VALUES ($1) ON CONFLICT (interaction_count) DO NOTHING`
	n, err := execUnderSavepoint(ctx, r.db, "dim_interaction", query, count)
	return n > 0, err
}

func (r *dimensionRepository) UpsertParty(ctx context.Context, p domain.Party) error {
	const query = `
        INSERT INTO dim_responsible_party (source_id, source_system, first_name, surname, full_name, email)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (source_id, source_system) DO UPDATE SET
            first_name = EXCLUDED.first_name,
            surname = EXCLUDED.surname,
            full_name = EXCLUDED.full_name,
            email = EXCLUDED.email`
	_, err := execUnderSavepoint(ctx, r.db, "dim_responsible_party", query,
		p.NativeID,
		string(p.Source),
		p.FirstName,
		p.Surname,
		p.FullName,
		p.Email,
	)
	return err
}
