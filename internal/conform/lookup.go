package conform

import (
	"context"
	"fmt"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
)

// KeyTable maps a dimension's natural key to its surrogate key.
type KeyTable[K comparable] struct {
	keys map[K]int64
}

// NewKeyTable wraps keys. A nil map is an empty table.
func NewKeyTable[K comparable](keys map[K]int64) KeyTable[K] {
	if keys == nil {
		keys = map[K]int64{}
	}
	return KeyTable[K]{keys: keys}
}

// Resolve returns the surrogate key for k.
func (t KeyTable[K]) Resolve(k K) (int64, bool) {
	sk, ok := t.keys[k]
	return sk, ok
}

// Len returns the number of entries.
func (t KeyTable[K]) Len() int {
	return len(t.keys)
}

// resolveKey looks up an optional natural key. missed reports a present value
// with no matching row.
func resolveKey[K comparable](t KeyTable[K], k *K) (sk *int64, missed bool) {
	if k == nil {
		return nil, false
	}
	v, ok := t.Resolve(*k)
	if !ok {
		return nil, true
	}
	return &v, false
}

// Cache holds every lookup table for one fact load. It is built per run and
// never reused.
type Cache struct {
	Dates        KeyTable[domain.CalendarDate]
	Times        KeyTable[domain.TimeOfDay]
	Statuses     KeyTable[domain.StatusName]
	Interactions KeyTable[int]
	Parties      KeyTable[string]
}

// LoadCache reads every dimension in full. Parties are limited to source.
func LoadCache(ctx context.Context, reader repository.LookupReader, source domain.SourceSystem) (*Cache, error) {
	dates, err := reader.DateKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load date keys: %w", err)
	}
	times, err := reader.TimeKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load time keys: %w", err)
	}
	statuses, err := reader.StatusKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load status keys: %w", err)
	}
	interactions, err := reader.InteractionKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interaction keys: %w", err)
	}
	parties, err := reader.PartyKeys(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load party keys: %w", err)
	}

	return &Cache{
		Dates:        NewKeyTable(dates),
		Times:        NewKeyTable(times),
		Statuses:     NewKeyTable(statuses),
		Interactions: NewKeyTable(interactions),
		Parties:      NewKeyTable(parties),
	}, nil
}
