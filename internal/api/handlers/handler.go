// handler.go — общие вспомогательные функции обработчиков Work Records API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/workrecords/internal/api/errors"
	"github.com/bigkaa/workrecords/internal/media"
	"github.com/bigkaa/workrecords/internal/query"
	"github.com/bigkaa/workrecords/internal/service"
)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
// Сообщения валидации и ограничений загрузки передаются клиенту как есть,
// внутренние ошибки логируются и заменяются общим сообщением.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, query.ErrInvalidParam),
		errors.Is(err, media.ErrUnsupportedFormat),
		errors.Is(err, media.ErrFileTooLarge),
		errors.Is(err, media.ErrTooManyFiles):
		apierrors.BadRequest(w, err.Error())
	case errors.As(err, &tooLarge):
		apierrors.RequestTooLarge(w, "Request body too large")
	case errors.Is(err, service.ErrMediaUpload):
		logger.Error("Ошибка медиа-хранилища",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.BadGateway(w, service.ErrMediaUpload.Error())
	default:
		logger.Error("Внутренняя ошибка",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Server error")
	}
}
