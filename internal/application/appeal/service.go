package appeal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
	"github.com/parcelworks/appealengine/internal/infrastructure/database/redis"
	"github.com/parcelworks/appealengine/internal/infrastructure/messaging/kafka"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/logging"
	"github.com/parcelworks/appealengine/internal/infrastructure/monitoring/prometheus"
	"github.com/parcelworks/appealengine/internal/intelligence/comps"
	"github.com/parcelworks/appealengine/internal/intelligence/opportunity"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// sourceFetchBudget bounds per-source candidate pulls so one analysis never
// drags the whole portal row cap through the scorer.
const sourceFetchBudget = 200

// eventPublisher is the slice of the kafka producer the service needs.
type eventPublisher interface {
	PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// reportArchiver writes completed analyses to long-term object storage.
type reportArchiver interface {
	Store(ctx context.Context, report *analysis.AppealAnalysis) error
}

// subjectLoader fetches a subject snapshot when the local store misses.
type subjectLoader interface {
	Load(ctx context.Context, pin property.PIN) (*property.SubjectProperty, error)
}

// Deps collects everything the service needs.  Cache, Publisher, Archive,
// and Loader may be nil; the service degrades around missing side-channels.
type Deps struct {
	Properties property.Repository
	Analyses   analysis.Repository
	Sources    []CandidateSource
	Loader     subjectLoader
	Cache      redis.Cache
	Publisher  eventPublisher
	Archive    reportArchiver
	Metrics    prometheus.MetricsCollector
	Logger     logging.Logger

	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

// Service runs appeal analyses end to end.
type Service struct {
	deps    Deps
	matcher *comps.Matcher
}

// NewService constructs the analysis service.
func NewService(deps Deps) *Service {
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewNopCollector()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &Service{deps: deps, matcher: comps.NewMatcher()}
}

// AnalyzeRequest is one analysis invocation.  Trigger labels where the
// request came from ("api", "worker", "cli") for metrics.
type AnalyzeRequest struct {
	PIN     string
	Limit   int
	Trigger string
}

// Analyze runs the full pipeline for one parcel: load the subject, fetch
// candidate pools concurrently, match and score comparables, compute the
// opportunity analysis, and persist the result.  Failures in the cache,
// event stream, and archive are logged and swallowed; the analysis result
// is returned regardless.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*analysis.AppealAnalysis, error) {
	started := time.Now()

	pin, err := property.ParsePIN(req.PIN)
	if err != nil {
		return nil, err
	}
	limit := s.normalizeLimit(req.Limit)

	trigger := req.Trigger
	if trigger == "" {
		trigger = "api"
	}
	s.deps.Metrics.IncAnalysisRequested(trigger)

	if cached := s.cachedAnalysis(ctx, pin, limit); cached != nil {
		return cached, nil
	}

	result, err := s.analyze(ctx, pin, limit)
	if err != nil {
		s.deps.Metrics.IncAnalysisFailed(failureReason(err))
		s.publishFailed(ctx, pin, err)
		return nil, err
	}

	s.persist(ctx, result, limit)

	s.deps.Metrics.ObserveAnalysisDuration(time.Since(started))
	s.deps.Metrics.ObserveComparableCount(len(result.Comparables))
	if result.Opportunity != nil {
		s.deps.Metrics.IncAnalysisCompleted(string(result.Opportunity.Confidence))
	}
	return result, nil
}

// analyze is the pure pipeline: subject, candidates, comparables, scoring.
func (s *Service) analyze(ctx context.Context, pin property.PIN, limit int) (*analysis.AppealAnalysis, error) {
	subject, err := s.loadSubject(ctx, pin)
	if err != nil {
		return nil, err
	}

	pool := s.fetchCandidates(ctx, subject, limit)
	comparables, err := s.matcher.ScoreComparables(subject, pool, limit)
	if err != nil {
		return nil, err
	}

	stats := comps.Aggregate(subject, comparables)

	hadSuccess := false
	if ok, err := s.deps.Properties.HadRecentAppealSuccess(ctx, pin); err != nil {
		s.deps.Logger.Warn("appeal history lookup failed",
			logging.String("pin", string(pin)), logging.Err(err))
	} else {
		hadSuccess = ok
	}

	subjectValue := 0.0
	if subject.AssessedValue != nil {
		subjectValue = *subject.AssessedValue
	}

	opp := opportunity.Score(opportunity.Input{
		SubjectValue:            subjectValue,
		ComparableValues:        stats.Values,
		HasRecentAppealSuccess:  hadSuccess,
		AssessmentChangePercent: subject.YoYChangePercent(),
		SqFt:                    stats.SqFt,
		Sales:                   stats.Sales,
	})

	return &analysis.AppealAnalysis{
		ID:          uuid.New(),
		PIN:         string(pin),
		Limit:       limit,
		Comparables: comparables,
		Opportunity: opp,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Comparables runs matching only, without scoring or persistence.
func (s *Service) Comparables(ctx context.Context, rawPIN string, limit int) ([]analysis.Comparable, error) {
	pin, err := property.ParsePIN(rawPIN)
	if err != nil {
		return nil, err
	}
	limit = s.normalizeLimit(limit)

	subject, err := s.loadSubject(ctx, pin)
	if err != nil {
		return nil, err
	}
	pool := s.fetchCandidates(ctx, subject, limit)
	return s.matcher.ScoreComparables(subject, pool, limit)
}

// GetProperty returns the subject snapshot for a parcel.
func (s *Service) GetProperty(ctx context.Context, rawPIN string) (*property.SubjectProperty, error) {
	pin, err := property.ParsePIN(rawPIN)
	if err != nil {
		return nil, err
	}
	return s.loadSubject(ctx, pin)
}

// GetAnalysis returns one stored analysis by id.
func (s *Service) GetAnalysis(ctx context.Context, id uuid.UUID) (*analysis.AppealAnalysis, error) {
	return s.deps.Analyses.GetByID(ctx, id)
}

// ListAnalyses returns recent stored analyses for a parcel, newest first.
func (s *Service) ListAnalyses(ctx context.Context, rawPIN string, limit int) ([]*analysis.AppealAnalysis, error) {
	pin, err := property.ParsePIN(rawPIN)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = s.deps.DefaultLimit
	}
	return s.deps.Analyses.ListByPIN(ctx, string(pin), limit)
}

// EnqueueAnalysis publishes an analysis request for asynchronous processing.
func (s *Service) EnqueueAnalysis(ctx context.Context, rawPIN string, limit int) error {
	pin, err := property.ParsePIN(rawPIN)
	if err != nil {
		return err
	}
	if s.deps.Publisher == nil {
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "event stream is not configured")
	}
	return s.deps.Publisher.PublishEvent(ctx, kafka.TopicAnalysisRequested, "analysis.requested",
		string(pin), kafka.AnalysisRequestedPayload{
			PIN:         string(pin),
			Limit:       s.normalizeLimit(limit),
			RequestedAt: time.Now().UTC(),
		})
}

// loadSubject reads the subject from the local store, falling back to the
// portal loader on a miss.  Portal-loaded subjects are written back so the
// next analysis hits the store.
func (s *Service) loadSubject(ctx context.Context, pin property.PIN) (*property.SubjectProperty, error) {
	subject, err := s.deps.Properties.GetByPIN(ctx, pin)
	if err == nil {
		return subject, nil
	}
	if !apperrors.IsCode(err, apperrors.ErrCodePropertyNotFound) || s.deps.Loader == nil {
		return nil, err
	}

	subject, err = s.deps.Loader.Load(ctx, pin)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Properties.Upsert(ctx, subject); err != nil {
		s.deps.Logger.Warn("failed to store portal-loaded subject",
			logging.String("pin", string(pin)), logging.Err(err))
	}
	return subject, nil
}

// fetchCandidates runs every source concurrently and merges the results into
// a deduplicated pool.  A failed source contributes nothing; the analysis
// proceeds on whatever the remaining sources returned.
func (s *Service) fetchCandidates(ctx context.Context, subject *property.SubjectProperty, limit int) []property.CandidateRecord {
	results := make([][]property.CandidateRecord, len(s.deps.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.deps.Sources {
		i, src := i, src
		g.Go(func() error {
			records, err := src.Fetch(gctx, subject, sourceFetchBudget)
			if err != nil {
				s.deps.Metrics.IncSourceFetchError(src.Name())
				s.deps.Logger.Warn("candidate source failed",
					logging.String("source", src.Name()),
					logging.String("pin", string(subject.PIN)),
					logging.Err(err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	return comps.BuildPool(limit, results...)
}

func (s *Service) cachedAnalysis(ctx context.Context, pin property.PIN, limit int) *analysis.AppealAnalysis {
	if s.deps.Cache == nil {
		return nil
	}
	var cached analysis.AppealAnalysis
	if err := s.deps.Cache.Get(ctx, analysisCacheKey(pin, limit), &cached); err != nil {
		if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			s.deps.Logger.Warn("analysis cache read failed",
				logging.String("pin", string(pin)), logging.Err(err))
		}
		s.deps.Metrics.IncCacheMiss("analysis")
		return nil
	}
	s.deps.Metrics.IncCacheHit("analysis")
	return &cached
}

// persist stores the analysis and fans out the side effects.  Only logging
// happens on failure; the caller already holds the result.
func (s *Service) persist(ctx context.Context, result *analysis.AppealAnalysis, limit int) {
	if err := s.deps.Analyses.Save(ctx, result); err != nil {
		s.deps.Logger.Error("failed to persist analysis",
			logging.String("pin", result.PIN), logging.Err(err))
	}

	if s.deps.Cache != nil {
		key := analysisCacheKey(property.PIN(result.PIN), limit)
		if err := s.deps.Cache.Set(ctx, key, result, s.deps.CacheTTL); err != nil {
			s.deps.Logger.Warn("failed to cache analysis",
				logging.String("pin", result.PIN), logging.Err(err))
		}
	}

	if s.deps.Publisher != nil && result.Opportunity != nil {
		err := s.deps.Publisher.PublishEvent(ctx, kafka.TopicAnalysisCompleted, "analysis.completed",
			result.PIN, kafka.AnalysisCompletedPayload{
				AnalysisID:       result.ID.String(),
				PIN:              result.PIN,
				OpportunityScore: result.Opportunity.OpportunityScore,
				Confidence:       string(result.Opportunity.Confidence),
				ComparableCount:  len(result.Comparables),
				CompletedAt:      result.CreatedAt,
			})
		if err != nil {
			s.deps.Logger.Warn("failed to publish completion event",
				logging.String("pin", result.PIN), logging.Err(err))
		}
	}

	if s.deps.Archive != nil {
		if err := s.deps.Archive.Store(ctx, result); err != nil {
			s.deps.Logger.Warn("failed to archive analysis report",
				logging.String("pin", result.PIN), logging.Err(err))
		}
	}
}

func (s *Service) publishFailed(ctx context.Context, pin property.PIN, cause error) {
	if s.deps.Publisher == nil {
		return
	}
	err := s.deps.Publisher.PublishEvent(ctx, kafka.TopicAnalysisFailed, "analysis.failed",
		string(pin), kafka.AnalysisFailedPayload{
			PIN:      string(pin),
			Reason:   cause.Error(),
			FailedAt: time.Now().UTC(),
		})
	if err != nil {
		s.deps.Logger.Warn("failed to publish failure event",
			logging.String("pin", string(pin)), logging.Err(err))
	}
}

func (s *Service) normalizeLimit(limit int) int {
	if limit == 0 {
		return s.deps.DefaultLimit
	}
	if s.deps.MaxLimit > 0 && limit > s.deps.MaxLimit {
		return s.deps.MaxLimit
	}
	return limit
}

func analysisCacheKey(pin property.PIN, limit int) string {
	return fmt.Sprintf("analysis:%s:%d", pin, limit)
}

// failureReason buckets an error for the failure counter.
func failureReason(err error) string {
	if code := apperrors.GetCode(err); code != apperrors.CodeOK {
		return string(code)
	}
	return "unknown"
}
