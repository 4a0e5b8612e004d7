package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

type postgresAnalysisRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

// NewPostgresAnalysisRepo constructs the PostgreSQL-backed analysis repository.
// Comparables and the opportunity assessment are stored as JSONB documents;
// they are written once and read whole, never queried field-by-field.
func NewPostgresAnalysisRepo(conn *postgres.Connection, log logging.Logger) analysis.Repository {
	return &postgresAnalysisRepo{conn: conn, log: log}
}

func (r *postgresAnalysisRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

func (r *postgresAnalysisRepo) Save(ctx context.Context, a *analysis.AppealAnalysis) error {
	comparables, err := json.Marshal(a.Comparables)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode comparables")
	}
	opportunity, err := json.Marshal(a.Opportunity)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode opportunity analysis")
	}

	query := `
		INSERT INTO appeal_analyses (id, pin, result_limit, comparables, opportunity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.executor().ExecContext(ctx, query,
		a.ID, a.PIN, a.Limit, comparables, opportunity, a.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to save analysis")
	}
	return nil
}

func (r *postgresAnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*analysis.AppealAnalysis, error) {
	query := `
		SELECT id, pin, result_limit, comparables, opportunity, created_at
		FROM appeal_analyses
		WHERE id = $1
	`
	return scanAnalysis(r.executor().QueryRowContext(ctx, query, id))
}

func (r *postgresAnalysisRepo) ListByPIN(ctx context.Context, pin string, limit int) ([]*analysis.AppealAnalysis, error) {
	query := `
		SELECT id, pin, result_limit, comparables, opportunity, created_at
		FROM appeal_analyses
		WHERE pin = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.executor().QueryContext(ctx, query, pin, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to list analyses")
	}
	defer rows.Close()

	var out []*analysis.AppealAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate analyses")
	}
	return out, nil
}

func scanAnalysis(row scanner) (*analysis.AppealAnalysis, error) {
	var (
		a           analysis.AppealAnalysis
		comparables []byte
		opportunity []byte
	)
	err := row.Scan(&a.ID, &a.PIN, &a.Limit, &comparables, &opportunity, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrCodeAnalysisNotFound, "analysis not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan analysis")
	}

	if err := json.Unmarshal(comparables, &a.Comparables); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode comparables")
	}
	if len(opportunity) > 0 {
		if err := json.Unmarshal(opportunity, &a.Opportunity); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode opportunity analysis")
		}
	}
	return &a, nil
}
