package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/domain"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// Querier is the read surface a source database must offer.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Adapter extracts one source system's staging data in a source-neutral shape.
// Adapters never write to the source.
type Adapter interface {
	System() domain.SourceSystem
	// ExtractTimestamps returns every opened-at and every derived resolved-at.
	ExtractTimestamps(ctx context.Context, q Querier) ([]time.Time, error)
	ExtractStatusTokens(ctx context.Context, q Querier) ([]string, error)
	ExtractInteractionCounts(ctx context.Context, q Querier) ([]int, error)
	ExtractParties(ctx context.Context, q Querier) ([]domain.RawParty, error)
	ExtractTickets(ctx context.Context, q Querier) ([]domain.RawTicket, error)
	NormalizeStatus(token string) (domain.StatusName, bool)
}

// New builds the adapter for system using vocab for status normalization.
func New(system domain.SourceSystem, vocab *Vocabulary, logger *zap.Logger) (Adapter, error) {
	if vocab == nil {
		return nil, fmt.Errorf("no vocabulary for %s", system)
	}
	base := adapterBase{system: system, vocab: vocab, logger: logger.With(zap.String("source", string(system)))}
	switch system {
	case domain.SourceOcta:
		return &octaAdapter{adapterBase: base}, nil
	case domain.SourceSults:
		return &sultsAdapter{adapterBase: base}, nil
	default:
		return nil, fmt.Errorf("unknown source system %q", system)
	}
}

// Load resolves the vocabulary for system from dir (or the built-in copy) and
// builds its adapter.
func Load(system domain.SourceSystem, vocabularyDir string, logger *zap.Logger) (Adapter, error) {
	vocab, err := LoadVocabulary(system, vocabularyDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("vocabulary loaded",
		zap.String("source", string(system)),
		zap.Int("version", vocab.Version),
		zap.Int("tokens", len(vocab.Statuses)),
	)
	return New(system, vocab, logger)
}

type adapterBase struct {
	system domain.SourceSystem
	vocab  *Vocabulary
	logger *zap.Logger
}

func (a adapterBase) System() domain.SourceSystem { return a.system }

func (a adapterBase) NormalizeStatus(token string) (domain.StatusName, bool) {
	return a.vocab.Normalize(token)
}

func (a adapterBase) skipRecord(reason string, details map[string]any) {
	a.logger.Warn("skipping source record", zap.Error(apperrors.NewTransformError(reason, details)))
}

func queryStrings(ctx context.Context, q Querier, query string) ([]string, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, rows.Err()
}

func queryInts(ctx context.Context, q Querier, query string) ([]int, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var value int
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, rows.Err()
}

func queryParties(ctx context.Context, q Querier, query string) ([]domain.RawParty, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RawParty
	for rows.Next() {
		var party domain.RawParty
		if err := rows.Scan(&party.NativeID, &party.FullName, &party.Email); err != nil {
			return nil, err
		}
		result = append(result, party)
	}
	return result, rows.Err()
}
