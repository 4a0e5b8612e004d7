package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/postgres"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

type AnalysisRepoSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo analysis.Repository
}

func (s *AnalysisRepoSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	conn := postgres.NewConnectionWithDB(s.db, logging.NewNopLogger())
	s.repo = NewPostgresAnalysisRepo(conn, logging.NewNopLogger())
}

func (s *AnalysisRepoSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func sampleAnalysis() *analysis.AppealAnalysis {
	return &analysis.AppealAnalysis{
		ID:  uuid.MustParse("8b5a7f6e-0a4f-4a2b-9c3d-1e2f3a4b5c6d"),
		PIN: "14081020180000",
		Comparables: []analysis.Comparable{
			{PIN: "14081020181002", Kind: property.KindAssessment},
		},
		Opportunity: &analysis.OpportunityAnalysis{
			OpportunityScore: 56,
			Confidence:       analysis.ConfidenceHigh,
			AppealGrounds:    []analysis.AppealGround{analysis.GroundComparableSales},
		},
		Limit:     10,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *AnalysisRepoSuite) TestSave() {
	a := sampleAnalysis()
	comparables, _ := json.Marshal(a.Comparables)
	opportunity, _ := json.Marshal(a.Opportunity)

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO appeal_analyses")).
		WithArgs(a.ID, a.PIN, a.Limit, comparables, opportunity, a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.Require().NoError(s.repo.Save(context.Background(), a))
}

func (s *AnalysisRepoSuite) TestGetByID() {
	a := sampleAnalysis()
	comparables, _ := json.Marshal(a.Comparables)
	opportunity, _ := json.Marshal(a.Opportunity)

	rows := sqlmock.NewRows([]string{"id", "pin", "result_limit", "comparables", "opportunity", "created_at"}).
		AddRow(a.ID, a.PIN, a.Limit, comparables, opportunity, a.CreatedAt)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, pin, result_limit")).
		WithArgs(a.ID).
		WillReturnRows(rows)

	got, err := s.repo.GetByID(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(a.PIN, got.PIN)
	s.Require().Len(got.Comparables, 1)
	s.Equal("14081020181002", got.Comparables[0].PIN)
	s.Require().NotNil(got.Opportunity)
	s.Equal(56, got.Opportunity.OpportunityScore)
	s.Equal(analysis.ConfidenceHigh, got.Opportunity.Confidence)
}

func (s *AnalysisRepoSuite) TestGetByID_NotFound() {
	id := uuid.New()
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, pin, result_limit")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetByID(context.Background(), id)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeAnalysisNotFound))
}

func (s *AnalysisRepoSuite) TestListByPIN() {
	a := sampleAnalysis()
	comparables, _ := json.Marshal(a.Comparables)
	opportunity, _ := json.Marshal(a.Opportunity)

	rows := sqlmock.NewRows([]string{"id", "pin", "result_limit", "comparables", "opportunity", "created_at"}).
		AddRow(uuid.New(), a.PIN, a.Limit, comparables, opportunity, a.CreatedAt).
		AddRow(uuid.New(), a.PIN, a.Limit, comparables, opportunity, a.CreatedAt.Add(-time.Hour))

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, pin, result_limit")).
		WithArgs(a.PIN, 5).
		WillReturnRows(rows)

	got, err := s.repo.ListByPIN(context.Background(), a.PIN, 5)
	s.Require().NoError(err)
	s.Len(got, 2)
}

func TestAnalysisRepoSuite(t *testing.T) {
	suite.Run(t, new(AnalysisRepoSuite))
}
