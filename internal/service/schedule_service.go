package service

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

const (
	activeScheduleCacheKey = "schedule:active"
	activeScheduleGenKey   = "schedule:active:gen"
)

// activeScheduleKey names the cache entry for one generation. Replace bumps the
// generation after commit, so a load that read the old row before the commit
// can only write into a key nobody reads any more.
func activeScheduleKey(gen int64) string {
	return activeScheduleCacheKey + ":" + strconv.FormatInt(gen, 10)
}

type scheduleStore interface {
	GetActive(ctx context.Context) (*models.ScheduleConfig, error)
	Replace(ctx context.Context, cfg *models.ScheduleConfig) error
	List(ctx context.Context, page, size int) ([]models.ScheduleConfig, int, error)
}

// ScheduleService resolves and replaces the attendance schedule.
type ScheduleService struct {
	repo      scheduleStore
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	loads     singleflight.Group
}

// NewScheduleService constructs the service. cache may be nil.
func NewScheduleService(repo scheduleStore, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("time_of_day", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return &ScheduleService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// GetActive returns the active schedule. Concurrent cache misses share one
// database read.
func (s *ScheduleService) GetActive(ctx context.Context) (*models.ScheduleConfig, error) {
	key := activeScheduleKey(s.cache.Generation(ctx, activeScheduleGenKey))
	var cached models.ScheduleConfig
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		cfg, err := s.repo.GetActive(ctx)
		if err != nil {
			return nil, storeError(err, "failed to load schedule")
		}
		if cfg == nil {
			return nil, appErrors.ErrScheduleNotConfigured
		}
		s.cache.Set(ctx, key, cfg, s.cacheTTL)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	cfg := *v.(*models.ScheduleConfig)
	return &cfg, nil
}

// Replace installs a new active schedule version.
func (s *ScheduleService) Replace(ctx context.Context, req dto.ReplaceScheduleRequest, actorID string) (*models.ScheduleConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	entry, _ := models.ParseTimeOfDay(req.EntryTime)
	departure, _ := models.ParseTimeOfDay(req.DepartureTime)
	if departure <= entry {
		return nil, appErrors.Clone(appErrors.ErrValidation, "departure_time must be after entry_time")
	}

	cfg := &models.ScheduleConfig{
		EntryTime:          entry,
		DepartureTime:      departure,
		GracePeriodMinutes: *req.GracePeriodMinutes,
		CenterLat:          *req.CenterLat,
		CenterLon:          *req.CenterLon,
		RadiusMeters:       req.RadiusMeters,
	}
	if actorID != "" {
		cfg.CreatedBy = &actorID
	}

	previous := activeScheduleKey(s.cache.Generation(ctx, activeScheduleGenKey))
	if err := s.repo.Replace(ctx, cfg); err != nil {
		return nil, storeError(err, "failed to replace schedule")
	}
	s.loads.Forget(previous)
	gen, err := s.cache.Bump(ctx, activeScheduleGenKey)
	switch {
	case err != nil:
		if err := s.cache.Invalidate(ctx, previous); err != nil {
			s.logger.Warn("active schedule cache left stale until ttl", zap.Duration("ttl", s.cacheTTL))
		}
	case s.cache.Enabled():
		s.cache.Set(ctx, activeScheduleKey(gen), cfg, s.cacheTTL)
	}

	s.logger.Info("schedule replaced",
		zap.String("schedule_id", cfg.ID),
		zap.String("actor_id", actorID),
		zap.Stringer("entry_time", cfg.EntryTime),
		zap.Stringer("departure_time", cfg.DepartureTime),
	)
	return cfg, nil
}

// History lists past and current schedule versions newest first.
func (s *ScheduleService) History(ctx context.Context, page, size int) ([]models.ScheduleConfig, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, page, size)
	if err != nil {
		return nil, nil, storeError(err, "failed to list schedules")
	}
	return items, pagination(page, size, total), nil
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
