package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/parcelworks/appealengine/internal/domain/property"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

type PropertyRepoSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo property.Repository
}

func (s *PropertyRepoSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	conn := postgres.NewConnectionWithDB(s.db, logging.NewNopLogger())
	s.repo = NewPostgresPropertyRepo(conn, logging.NewNopLogger())
}

func (s *PropertyRepoSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *PropertyRepoSuite) TestGetByPIN() {
	rows := sqlmock.NewRows([]string{
		"pin", "class_code", "township_code", "neighborhood_code",
		"square_feet", "bedrooms", "year_built", "assessed_value", "prior_assessed_value",
	}).AddRow("14081020180000", "299", "70", "30", 1000.0, 2, 1990, 20000.0, 18000.0)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT pin, class_code")).
		WithArgs("14081020180000").
		WillReturnRows(rows)

	got, err := s.repo.GetByPIN(context.Background(), property.PIN("14081020180000"))
	s.Require().NoError(err)
	s.Equal(property.PIN("14081020180000"), got.PIN)
	s.Equal("299", got.ClassCode)
	s.Require().NotNil(got.Bedrooms)
	s.Equal(2, *got.Bedrooms)
	s.Require().NotNil(got.SquareFeet)
	s.Equal(1000.0, *got.SquareFeet)
}

func (s *PropertyRepoSuite) TestGetByPIN_NullableFields() {
	rows := sqlmock.NewRows([]string{
		"pin", "class_code", "township_code", "neighborhood_code",
		"square_feet", "bedrooms", "year_built", "assessed_value", "prior_assessed_value",
	}).AddRow("14081020180000", "299", "70", "30", nil, nil, nil, 20000.0, nil)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT pin, class_code")).
		WithArgs("14081020180000").
		WillReturnRows(rows)

	got, err := s.repo.GetByPIN(context.Background(), property.PIN("14081020180000"))
	s.Require().NoError(err)
	s.Nil(got.SquareFeet)
	s.Nil(got.Bedrooms)
	s.Nil(got.YearBuilt)
	s.Nil(got.PriorAssessedValue)
	s.Require().NotNil(got.AssessedValue)
}

func (s *PropertyRepoSuite) TestGetByPIN_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT pin, class_code")).
		WithArgs("14081020180000").
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetByPIN(context.Background(), property.PIN("14081020180000"))
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodePropertyNotFound))
}

func (s *PropertyRepoSuite) TestUpsert() {
	sqft := 1000.0
	beds := 2
	subject := &property.SubjectProperty{
		PIN:          property.PIN("14081020180000"),
		ClassCode:    "299",
		TownshipCode: "70",
		SquareFeet:   &sqft,
		Bedrooms:     &beds,
	}

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO properties")).
		WithArgs("14081020180000", "299", "70", "",
			1000.0, 2, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.Require().NoError(s.repo.Upsert(context.Background(), subject))
}

func (s *PropertyRepoSuite) TestHadRecentAppealSuccess() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("14081020180000", appealSuccessLookbackYears).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	had, err := s.repo.HadRecentAppealSuccess(context.Background(), property.PIN("14081020180000"))
	s.Require().NoError(err)
	s.True(had)
}

func TestPropertyRepoSuite(t *testing.T) {
	suite.Run(t, new(PropertyRepoSuite))
}

func TestScanSubjectProperty_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := postgres.NewConnectionWithDB(db, logging.NewNopLogger())
	repo := NewPostgresPropertyRepo(conn, logging.NewNopLogger())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pin, class_code")).
		WillReturnError(sql.ErrConnDone)

	_, err = repo.GetByPIN(context.Background(), property.PIN("14081020180000"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
}
