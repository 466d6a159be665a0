package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/workrecords/internal/domain/model"
	"github.com/bigkaa/workrecords/internal/repository"
)

// StatsService — сводная статистика по суммам всех записей.
type StatsService struct {
	repo   repository.RecordRepository
	logger *slog.Logger
}

// NewStatsService создаёт сервис статистики.
func NewStatsService(repo repository.RecordRepository, logger *slog.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		logger: logger.With(slog.String("component", "stats_service")),
	}
}

// Get вычисляет статистику одной агрегацией в хранилище.
// Для пустого хранилища все значения равны 0.
func (s *StatsService) Get(ctx context.Context) (*model.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.Error("Ошибка вычисления статистики", slog.String("error", err.Error()))
		return nil, fmt.Errorf("вычисление статистики: %w", err)
	}
	if stats == nil || stats.TotalRecords == 0 {
		return &model.Stats{}, nil
	}
	return stats, nil
}
