package source

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
)

type sultsAdapter struct {
	adapterBase
}

func (a *sultsAdapter) ExtractTimestamps(ctx context.Context, q Querier) ([]time.Time, error) {
	const query = `
        SELECT aberto FROM chamados_sults WHERE aberto IS NOT NULL
        UNION
        SELECT concluido FROM chamados_sults WHERE concluido IS NOT NULL`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("extract sults timestamps: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		result = append(result, ts)
	}
	return result, rows.Err()
}

// ExtractStatusTokens returns the numeric situacao codes as text.
func (a *sultsAdapter) ExtractStatusTokens(ctx context.Context, q Querier) ([]string, error) {
	return queryStrings(ctx, q, `SELECT DISTINCT situacao::text FROM chamados_sults WHERE situacao IS NOT NULL`)
}

func (a *sultsAdapter) ExtractInteractionCounts(ctx context.Context, q Querier) ([]int, error) {
	return queryInts(ctx, q, `SELECT DISTINCT count_interacao_publico FROM chamados_sults WHERE count_interacao_publico IS NOT NULL`)
}

// ExtractParties reads responsaveis_sults, which carries no email.
func (a *sultsAdapter) ExtractParties(ctx context.Context, q Querier) ([]domain.RawParty, error) {
	const query = `SELECT id::text, nome, NULL::text FROM responsaveis_sults WHERE id IS NOT NULL`
	return queryParties(ctx, q, query)
}

func (a *sultsAdapter) ExtractTickets(ctx context.Context, q Querier) ([]domain.RawTicket, error) {
	const query = `
        SELECT id::text, titulo, aberto, concluido, situacao::text,
               responsavel_id::text, count_interacao_publico
        FROM chamados_sults`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("extract sults tickets: %w", err)
	}
	defer rows.Close()

	var result []domain.RawTicket
	for rows.Next() {
		var (
			id     *string
			ticket domain.RawTicket
		)
		if err := rows.Scan(
			&id,
			&ticket.Title,
			&ticket.OpenedAt,
			&ticket.ResolvedAt,
			&ticket.StatusToken,
			&ticket.ResponsibleID,
			&ticket.InteractionCount,
		); err != nil {
			return nil, err
		}
		if id == nil || *id == "" {
			a.skipRecord("ticket has no native id", map[string]any{"table": "chamados_sults"})
			continue
		}
		ticket.NativeID = *id
		result = append(result, ticket)
	}
	return result, rows.Err()
}
