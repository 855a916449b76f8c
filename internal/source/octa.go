package source

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

type octaAdapter struct {
	adapterBase
}

// octaResolvedAt applies Octa's resolution rule: a ticket is resolved at its
// last update only when its status normalizes to Resolved.
func octaResolvedAt(updatedAt *time.Time, status domain.StatusName, mapped bool) *time.Time {
	if !mapped || status != domain.StatusResolved || updatedAt == nil {
		return nil
	}
	return updatedAt
}

func (a *octaAdapter) resolvedAt(updatedAt *time.Time, statusToken *string) *time.Time {
	if statusToken == nil {
		return nil
	}
	status, ok := a.NormalizeStatus(*statusToken)
	return octaResolvedAt(updatedAt, status, ok)
}

func (a *octaAdapter) ExtractTimestamps(ctx context.Context, q Querier) ([]time.Time, error) {
	const query = `
        SELECT t.created_at, t.updated_at, s.status_name
        FROM tickets_octa t
        LEFT JOIN status_octa s ON s.ticket_id = t.id`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("extract octa timestamps: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var (
			createdAt, updatedAt *time.Time
			status               *string
		)
		if err := rows.Scan(&createdAt, &updatedAt, &status); err != nil {
			return nil, err
		}
		if createdAt != nil {
			result = append(result, *createdAt)
		}
		if resolved := a.resolvedAt(updatedAt, status); resolved != nil {
			result = append(result, *resolved)
		}
	}
	return result, rows.Err()
}

func (a *octaAdapter) ExtractStatusTokens(ctx context.Context, q Querier) ([]string, error) {
	return queryStrings(ctx, q, `SELECT DISTINCT status_name FROM status_octa WHERE status_name IS NOT NULL`)
}

func (a *octaAdapter) ExtractInteractionCounts(ctx context.Context, q Querier) ([]int, error) {
	return queryInts(ctx, q, `SELECT DISTINCT interactions_count FROM tickets_octa WHERE interactions_count IS NOT NULL`)
}

func (a *octaAdapter) ExtractParties(ctx context.Context, q Querier) ([]domain.RawParty, error) {
	const query = `
        SELECT DISTINCT assigned_id::text, assigned_name, assigned_email
        FROM assigned_octa
        WHERE assigned_id IS NOT NULL`
	return queryParties(ctx, q, query)
}

func (a *octaAdapter) ExtractTickets(ctx context.Context, q Querier) ([]domain.RawTicket, error) {
	const query = `
        SELECT t.id::text, t.summary, t.created_at, t.updated_at, s.status_name,
               a.assigned_id::text, t.interactions_count
        FROM tickets_octa t
        LEFT JOIN status_octa s ON s.ticket_id = t.id
        LEFT JOIN assigned_octa a ON a.ticket_id = t.id`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("extract octa tickets: %w", err)
	}
	defer rows.Close()

	var result []domain.RawTicket
	for rows.Next() {
		var (
			id        *string
			updatedAt *time.Time
			ticket    domain.RawTicket
		)
		if err := rows.Scan(
			&id,
			&ticket.Title,
			&ticket.OpenedAt,
			&updatedAt,
			&ticket.StatusToken,
			&ticket.ResponsibleID,
			&ticket.InteractionCount,
		); err != nil {
			return nil, err
		}
		if id == nil || *id == "" {
			a.skipRecord("ticket has no native id", map[string]any{"table": "tickets_octa"})
			continue
		}
		ticket.NativeID = *id
		ticket.ResolvedAt = a.resolvedAt(updatedAt, ticket.StatusToken)
		result = append(result, ticket)
	}
	return result, rows.Err()
}
