// Package memstore is an in-memory warehouse with the same conflict semantics
// as the Postgres schema. It backs dry runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// DateRow is a stored date dimension row.
type DateRow struct {
	Key int64
	domain.DateDimension
}

// TimeRow is a stored time dimension row.
type TimeRow struct {
	Key int64
	domain.TimeDimension
}

// PartyRow is a stored responsible-party row.
type PartyRow struct {
	Key int64
	domain.Party
}

// FactRow is a stored fact row.
type FactRow struct {
	Key int64
	domain.Fact
}

type naturalKey struct {
	id     string
	source domain.SourceSystem
}

type state struct {
	dates        map[domain.CalendarDate]DateRow
	times        map[domain.TimeOfDay]TimeRow
	statuses     map[domain.StatusName]int64
	interactions map[int]int64
	parties      map[naturalKey]PartyRow
	facts        map[naturalKey]FactRow
}

func newState() state {
	return state{
		dates:        map[domain.CalendarDate]DateRow{},
		times:        map[domain.TimeOfDay]TimeRow{},
		statuses:     map[domain.StatusName]int64{},
		interactions: map[int]int64{},
		parties:      map[naturalKey]PartyRow{},
		facts:        map[naturalKey]FactRow{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.dates {
		c.dates[k] = v
	}
	for k, v := range s.times {
		c.times[k] = v
	}
	for k, v := range s.statuses {
		c.statuses[k] = v
	}
	for k, v := range s.interactions {
		c.interactions[k] = v
	}
	for k, v := range s.parties {
		c.parties[k] = v
	}
	for k, v := range s.facts {
		c.facts[k] = v
	}
	return c
}

// Store is a repository.Warehouse kept in memory. Transactions are serialized.
type Store struct {
	mu    sync.Mutex
	state state
	// sequences survive rollbacks, like SERIAL columns.
	seq map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), seq: map[string]int64{}}
}

// InTx runs fn against a copy of the state and keeps the copy only if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(&tx{store: s, state: &work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Lookups reads committed state.
func (s *Store) Lookups() repository.LookupReader {
	return &lockedReader{store: s}
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Dates returns the committed date rows ordered by date.
func (s *Store) Dates() []DateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]DateRow, 0, len(s.state.dates))
	for _, row := range s.state.dates {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Time().Before(rows[j].Date.Time()) })
	return rows
}

// Times returns the committed time rows ordered by time of day.
func (s *Store) Times() []TimeRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]TimeRow, 0, len(s.state.times))
	for _, row := range s.state.times {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time.Micros() < rows[j].Time.Micros() })
	return rows
}

// Statuses returns the committed status keys.
func (s *Store) Statuses() map[domain.StatusName]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.state.statuses)
}

// Interactions returns the committed interaction count keys.
func (s *Store) Interactions() map[int]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.state.interactions)
}

// Parties returns the committed party rows ordered by key.
func (s *Store) Parties() []PartyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]PartyRow, 0, len(s.state.parties))
	for _, row := range s.state.parties {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

// Facts returns the committed fact rows ordered by key.
func (s *Store) Facts() []FactRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]FactRow, 0, len(s.state.facts))
	for _, row := range s.state.facts {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

// Fact finds a committed fact by its natural key.
func (s *Store) Fact(source domain.SourceSystem, nativeID string) (FactRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.facts[naturalKey{id: nativeID, source: source}]
	return row, ok
}

func copyMap[K comparable](in map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func checkViolation(table, constraint string) error {
	return apperrors.NewConstraintError(table, &pgconn.PgError{
		Code:           "23514",
		Message:        fmt.Sprintf("new row for relation %q violates check constraint", table),
		TableName:      table,
		ConstraintName: constraint,
	})
}

func foreignKeyViolation(table, constraint string) error {
	return apperrors.NewConstraintError(table, &pgconn.PgError{
		Code:           "23503",
		Message:        fmt.Sprintf("insert or update on table %q violates foreign key constraint", table),
		TableName:      table,
		ConstraintName: constraint,
	})
}

type tx struct {
	store *Store
	state *state
}

func (t *tx) Dimensions() repository.DimensionWriter { return t }
func (t *tx) Facts() repository.FactWriter           { return t }
func (t *tx) Lookups() repository.LookupReader       { return reader{state: t.state} }

func (t *tx) InsertDate(_ context.Context, d domain.DateDimension) (bool, error) {
	if _, ok := t.state.dates[d.Date]; ok {
		return false, nil
	}
	t.state.dates[d.Date] = DateRow{Key: t.store.next("dim_date"), DateDimension: d}
	return true, nil
}

func (t *tx) InsertTime(_ context.Context, d domain.TimeDimension) (bool, error) {
	if _, ok := t.state.times[d.Time]; ok {
		return false, nil
	}
	t.state.times[d.Time] = TimeRow{Key: t.store.next("dim_time"), TimeDimension: d}
	return true, nil
}

func (t *tx) InsertStatus(_ context.Context, name domain.StatusName) (bool, error) {
	if _, ok := t.state.statuses[name]; ok {
		return false, nil
	}
	t.state.statuses[name] = t.store.next("dim_status")
	return true, nil
}

func (t *tx) InsertInteractionCount(_ context.Context, count int) (bool, error) {
	if count < 0 {
		return false, checkViolation("dim_interaction", "dim_interaction_interaction_count_check")
	}
	if _, ok := t.state.interactions[count]; ok {
		return false, nil
	}
	t.state.interactions[count] = t.store.next("dim_interaction")
	return true, nil
}

func (t *tx) UpsertParty(_ context.Context, p domain.Party) error {
	key := naturalKey{id: p.NativeID, source: p.Source}
	if row, ok := t.state.parties[key]; ok {
		row.Party = p
		t.state.parties[key] = row
		return nil
	}
	t.state.parties[key] = PartyRow{Key: t.store.next("dim_responsible_party"), Party: p}
	return nil
}

func (t *tx) UpsertFact(_ context.Context, f domain.Fact) error {
	if err := t.checkFactReferences(f); err != nil {
		return err
	}
	key := naturalKey{id: f.NativeID, source: f.Source}
	if row, ok := t.state.facts[key]; ok {
		row.Fact = f
		t.state.facts[key] = row
		return nil
	}
	t.state.facts[key] = FactRow{Key: t.store.next("fact_ticket"), Fact: f}
	return nil
}

func (t *tx) checkFactReferences(f domain.Fact) error {
	refs := []struct {
		key    *int64
		exists func(int64) bool
		name   string
	}{
		{f.OpenedDateKey, t.hasDate, "fact_ticket_opened_date_sk_fkey"},
		{f.ResolvedDateKey, t.hasDate, "fact_ticket_resolved_date_sk_fkey"},
		{f.OpenedTimeKey, t.hasTime, "fact_ticket_opened_time_sk_fkey"},
		{f.ResolvedTimeKey, t.hasTime, "fact_ticket_resolved_time_sk_fkey"},
		{f.PartyKey, t.hasParty, "fact_ticket_party_sk_fkey"},
		{f.StatusKey, func(k int64) bool { return hasValue(t.state.statuses, k) }, "fact_ticket_status_sk_fkey"},
		{f.InteractionKey, func(k int64) bool { return hasValue(t.state.interactions, k) }, "fact_ticket_interaction_sk_fkey"},
	}
	for _, ref := range refs {
		if ref.key != nil && !ref.exists(*ref.key) {
			return foreignKeyViolation("fact_ticket", ref.name)
		}
	}
	return nil
}

func (t *tx) hasDate(k int64) bool {
	for _, row := range t.state.dates {
		if row.Key == k {
			return true
		}
	}
	return false
}

func (t *tx) hasTime(k int64) bool {
	for _, row := range t.state.times {
		if row.Key == k {
			return true
		}
	}
	return false
}

func (t *tx) hasParty(k int64) bool {
	for _, row := range t.state.parties {
		if row.Key == k {
			return true
		}
	}
	return false
}

func hasValue[K comparable](m map[K]int64, v int64) bool {
	for _, key := range m {
		if key == v {
			return true
		}
	}
	return false
}

type reader struct {
	state *state
}

func (r reader) DateKeys(context.Context) (map[domain.CalendarDate]int64, error) {
	keys := make(map[domain.CalendarDate]int64, len(r.state.dates))
	for k, row := range r.state.dates {
		keys[k] = row.Key
	}
	return keys, nil
}

func (r reader) TimeKeys(context.Context) (map[domain.TimeOfDay]int64, error) {
	keys := make(map[domain.TimeOfDay]int64, len(r.state.times))
	for k, row := range r.state.times {
		keys[k] = row.Key
	}
	return keys, nil
}

func (r reader) StatusKeys(context.Context) (map[domain.StatusName]int64, error) {
	return copyMap(r.state.statuses), nil
}

func (r reader) InteractionKeys(context.Context) (map[int]int64, error) {
	return copyMap(r.state.interactions), nil
}

func (r reader) PartyKeys(_ context.Context, source domain.SourceSystem) (map[string]int64, error) {
	keys := map[string]int64{}
	for k, row := range r.state.parties {
		if k.source == source {
			keys[k.id] = row.Key
		}
	}
	return keys, nil
}

type lockedReader struct {
	store *Store
}

func (r *lockedReader) with() (reader, func()) {
	r.store.mu.Lock()
	return reader{state: &r.store.state}, r.store.mu.Unlock
}

func (r *lockedReader) DateKeys(ctx context.Context) (map[domain.CalendarDate]int64, error) {
	rd, unlock := r.with()
	defer unlock()
	return rd.DateKeys(ctx)
}

func (r *lockedReader) TimeKeys(ctx context.Context) (map[domain.TimeOfDay]int64, error) {
	rd, unlock := r.with()
	defer unlock()
	return rd.TimeKeys(ctx)
}

func (r *lockedReader) StatusKeys(ctx context.Context) (map[domain.StatusName]int64, error) {
	rd, unlock := r.with()
	defer unlock()
	return rd.StatusKeys(ctx)
}

func (r *lockedReader) InteractionKeys(ctx context.Context) (map[int]int64, error) {
	rd, unlock := r.with()
	defer unlock()
	return rd.InteractionKeys(ctx)
}

func (r *lockedReader) PartyKeys(ctx context.Context, source domain.SourceSystem) (map[string]int64, error) {
	rd, unlock := r.with()
	defer unlock()
	return rd.PartyKeys(ctx, source)
}
