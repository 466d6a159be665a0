// cleanup.go — best-effort освобождение изображений в медиа-хранилище.
// Результат очистки возвращается отдельно от результата основной
// операции и никогда не превращается в её ошибку.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/workrecords/internal/media"
)

// Причины очистки (лейбл метрик и поле логов).
const (
	cleanupReasonDelete  = "delete"
	cleanupReasonReplace = "replace"
	cleanupReasonAbort   = "abort"
)

// mediaCleanupTotal — результаты удаления изображений.
var mediaCleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wr_media_cleanup_total",
		Help: "Количество попыток удаления изображений из медиа-хранилища",
	},
	[]string{"reason", "result"},
)

// CleanupReport — итог освобождения изображений.
type CleanupReport struct {
	// Attempted — количество запрошенных удалений
	Attempted int
	// Failed — количество неудачных удалений (отсутствующие изображения не считаются)
	Failed int
	// Errors — ошибки неудачных удалений
	Errors []error
}

// OK возвращает true, если все изображения освобождены.
func (r *CleanupReport) OK() bool {
	return r == nil || r.Failed == 0
}

// releaseImages параллельно удаляет изображения и ждёт завершения всех
// попыток. Отмена контекста запроса не прерывает очистку: каждое удаление
// ограничено только таймаутом медиа-хранилища.
func (s *RecordService) releaseImages(ctx context.Context, recordID string, publicIDs []string, reason string) *CleanupReport {
	report := &CleanupReport{Attempted: len(publicIDs)}
	if len(publicIDs) == 0 {
		return report
	}

	baseCtx := context.WithoutCancel(ctx)
	errs := make([]error, len(publicIDs))

	var wg sync.WaitGroup
	for i, publicID := range publicIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(baseCtx, s.mediaTimeout)
			defer cancel()
			errs[i] = s.media.Delete(callCtx, publicID)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		switch {
		case err == nil:
			mediaCleanupTotal.WithLabelValues(reason, "ok").Inc()
		case errors.Is(err, media.ErrNotFound):
			mediaCleanupTotal.WithLabelValues(reason, "missing").Inc()
			s.logger.Debug("Изображение уже отсутствует в хранилище",
				slog.String("record_id", recordID),
				slog.String("public_id", publicIDs[i]),
			)
		default:
			mediaCleanupTotal.WithLabelValues(reason, "error").Inc()
			report.Failed++
			report.Errors = append(report.Errors, err)
			s.logger.Warn("Не удалось удалить изображение",
				slog.String("record_id", recordID),
				slog.String("public_id", publicIDs[i]),
				slog.String("reason", reason),
				slog.String("error", err.Error()),
			)
		}
	}

	if report.Failed > 0 {
		s.logger.Warn("Очистка изображений завершена с ошибками",
			slog.String("record_id", recordID),
			slog.String("reason", reason),
			slog.Int("attempted", report.Attempted),
			slog.Int("failed", report.Failed),
		)
	}
	return report
}

// defaultMediaTimeout — таймаут обращения к медиа-хранилищу, если не задан.
const defaultMediaTimeout = 30 * time.Second
