package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/parcelworks/appealengine/internal/domain/property"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// appealSuccessLookbackYears bounds how far back a prior reduction still
// counts as recent appeal history.
const appealSuccessLookbackYears = 3

type postgresPropertyRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

// NewPostgresPropertyRepo constructs the PostgreSQL-backed property repository.
func NewPostgresPropertyRepo(conn *postgres.Connection, log logging.Logger) property.Repository {
	return &postgresPropertyRepo{conn: conn, log: log}
}

func (r *postgresPropertyRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

func (r *postgresPropertyRepo) GetByPIN(ctx context.Context, pin property.PIN) (*property.SubjectProperty, error) {
	query := `
		SELECT pin, class_code, township_code, neighborhood_code,
		       square_feet, bedrooms, year_built, assessed_value, prior_assessed_value
		FROM properties
		WHERE pin = $1
	`
	row := r.executor().QueryRowContext(ctx, query, pin.String())
	return scanSubjectProperty(row)
}

func (r *postgresPropertyRepo) Upsert(ctx context.Context, subject *property.SubjectProperty) error {
	query := `
		INSERT INTO properties (
			pin, class_code, township_code, neighborhood_code,
			square_feet, bedrooms, year_built, assessed_value, prior_assessed_value, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
		)
		ON CONFLICT (pin) DO UPDATE SET
			class_code = EXCLUDED.class_code,
			township_code = EXCLUDED.township_code,
			neighborhood_code = EXCLUDED.neighborhood_code,
			square_feet = EXCLUDED.square_feet,
			bedrooms = EXCLUDED.bedrooms,
			year_built = EXCLUDED.year_built,
			assessed_value = EXCLUDED.assessed_value,
			prior_assessed_value = EXCLUDED.prior_assessed_value,
			updated_at = NOW()
	`
	_, err := r.executor().ExecContext(ctx, query,
		subject.PIN.String(), subject.ClassCode, subject.TownshipCode, subject.NeighborhoodCode,
		subject.SquareFeet, subject.Bedrooms, subject.YearBuilt,
		subject.AssessedValue, subject.PriorAssessedValue,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to upsert property")
	}
	return nil
}

func (r *postgresPropertyRepo) HadRecentAppealSuccess(ctx context.Context, pin property.PIN) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appeal_outcomes
			WHERE pin = $1
			  AND reduced = TRUE
			  AND decided_at > NOW() - make_interval(years => $2)
		)
	`
	var had bool
	err := r.executor().QueryRowContext(ctx, query, pin.String(), appealSuccessLookbackYears).Scan(&had)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to query appeal history")
	}
	return had, nil
}

func scanSubjectProperty(row scanner) (*property.SubjectProperty, error) {
	var (
		s       property.SubjectProperty
		rawPIN  string
		sqft    sql.NullFloat64
		beds    sql.NullInt64
		year    sql.NullInt64
		value   sql.NullFloat64
		prior   sql.NullFloat64
	)
	err := row.Scan(&rawPIN, &s.ClassCode, &s.TownshipCode, &s.NeighborhoodCode,
		&sqft, &beds, &year, &value, &prior)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrCodePropertyNotFound, "property not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan property")
	}

	s.PIN = property.PIN(rawPIN)
	if sqft.Valid {
		s.SquareFeet = &sqft.Float64
	}
	if beds.Valid {
		v := int(beds.Int64)
		s.Bedrooms = &v
	}
	if year.Valid {
		v := int(year.Int64)
		s.YearBuilt = &v
	}
	if value.Valid {
		s.AssessedValue = &value.Float64
	}
	if prior.Valid {
		s.PriorAssessedValue = &prior.Float64
	}
	return &s, nil
}
