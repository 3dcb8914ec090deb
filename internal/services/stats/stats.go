// Package services отдаёт сводные показатели панели управления.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// StatsRepository определяет методы хранилища для сводной статистики.
type StatsRepository interface {
	GetStatistics(ctx context.Context) (*models.Statistics, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// StatsService считает показатели для панели управления с коротким кешем.
type StatsService struct {
	repo  StatsRepository
	cache Cache
	log   *slog.Logger
}

// NewStatsService создает новый экземпляр StatsService.
func NewStatsService(repo StatsRepository, cache Cache, log *slog.Logger) *StatsService {
	return &StatsService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

const statsCacheKey = "statistics"

// Get возвращает сводные показатели.
func (s *StatsService) Get(ctx context.Context) (*models.Statistics, error) {
	var result *models.Statistics
	found, err := s.cache.Get(statsCacheKey, &result)
	if err != nil {
		s.log.Warn("cache lookup failed", slog.String("key", statsCacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}
	result, err = s.repo.GetStatistics(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(statsCacheKey, result, time.Minute); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", statsCacheKey), sl.Err(err))
	}
	return result, nil
}
