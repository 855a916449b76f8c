package domain

import "time"

// RawTicket is a source ticket/case normalized by its source adapter. Only
// ResolvedAt carries per-source derivation; every other field is a column copy.
type RawTicket struct {
	NativeID         string
	Title            *string
	OpenedAt         *time.Time
	ResolvedAt       *time.Time
	StatusToken      *string
	ResponsibleID    *string
	InteractionCount *int
}

// Fact is one row of the ticket fact table. Nil keys are unresolved attributes.
type Fact struct {
	NativeID        string
	Source          SourceSystem
	Title           *string
	OpenedDateKey   *int64
	OpenedTimeKey   *int64
	ResolvedDateKey *int64
	ResolvedTimeKey *int64
	PartyKey        *int64
	StatusKey       *int64
	InteractionKey  *int64
}
